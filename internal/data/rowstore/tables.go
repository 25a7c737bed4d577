package rowstore

// Table is a logical positional table. Column order is the write order and
// must never change for data already stored.
type Table struct {
	Name    string
	Columns []string
}

// Index returns the position of col, or -1.
func (t Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

func (t Table) Width() int { return len(t.Columns) }

var (
	Courses = Table{
		Name: "Courses",
		Columns: []string{
			"course_id", "program_name", "session_no", "theme", "event_type", "event_date",
			"location", "host_org", "speakers", "survey_form_version", "response_source_file",
			"status", "created_at", "updated_at",
		},
	}
	SurveyItems = Table{
		Name: "Survey_Items",
		Columns: []string{
			"item_id", "item_code", "item_group", "item_text", "metric_type", "dimension",
			"scale_min", "scale_max", "scale_label_min", "scale_label_max", "options",
			"applies_to_speaker", "applies_to_session", "default_order", "is_active",
			"created_at", "updated_at",
		},
	}
	CourseItemMap = Table{
		Name: "Course_Item_Map",
		Columns: []string{
			"map_id", "course_id", "item_id", "order_in_course", "is_required",
			"custom_item_text", "created_at",
		},
	}
	Responses = Table{
		Name: "Responses",
		Columns: []string{
			"response_id", "course_id", "respondent_id", "timestamp", "item_id",
			"response_value", "response_value_num", "choice_value", "comment_text",
			"source_row_index", "ingest_batch_id",
		},
	}
	Respondents = Table{
		Name: "Respondents",
		Columns: []string{
			"respondent_id", "course_id", "pii_consent", "company", "department", "job_role",
			"tenure_years", "name", "phone", "email", "hashed_contact", "extra_meta", "created_at",
		},
	}
)

// AllTables lists every table the survey dataset needs.
func AllTables() []Table {
	return []Table{Courses, SurveyItems, CourseItemMap, Responses, Respondents}
}

// Lookup resolves a table by its store name.
func Lookup(name string) (Table, bool) {
	for _, t := range AllTables() {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

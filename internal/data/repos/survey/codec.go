package survey

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	types "github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"github.com/yungbote/surveybridge-backend/internal/pkg/pointers"
)

// Every record crosses the positional boundary here and nowhere else.

func encodeItem(it *types.SurveyItem) ([]string, error) {
	values := []string{
		it.ItemID,
		it.ItemCode,
		it.ItemGroup,
		it.ItemText,
		string(it.MetricType),
		string(it.Dimension),
		formatIntPtr(it.ScaleMin),
		formatIntPtr(it.ScaleMax),
		it.ScaleLabelMin,
		it.ScaleLabelMax,
		it.Options,
		it.AppliesToSpeaker,
		it.AppliesToSession,
		strconv.Itoa(it.DefaultOrder),
		formatBool(it.IsActive),
		formatTime(it.CreatedAt),
		formatTime(it.UpdatedAt),
	}
	return values, rowstore.CheckWidth(rowstore.SurveyItems, values)
}

func decodeItem(r rowstore.Row) *types.SurveyItem {
	t := rowstore.SurveyItems
	return &types.SurveyItem{
		ItemID:           r.Field(t, "item_id"),
		ItemCode:         r.Field(t, "item_code"),
		ItemGroup:        r.Field(t, "item_group"),
		ItemText:         r.Field(t, "item_text"),
		MetricType:       types.MetricType(r.Field(t, "metric_type")),
		Dimension:        types.Dimension(r.Field(t, "dimension")),
		ScaleMin:         parseIntPtr(r.Field(t, "scale_min")),
		ScaleMax:         parseIntPtr(r.Field(t, "scale_max")),
		ScaleLabelMin:    r.Field(t, "scale_label_min"),
		ScaleLabelMax:    r.Field(t, "scale_label_max"),
		Options:          r.Field(t, "options"),
		AppliesToSpeaker: r.Field(t, "applies_to_speaker"),
		AppliesToSession: r.Field(t, "applies_to_session"),
		DefaultOrder:     parseInt(r.Field(t, "default_order")),
		IsActive:         parseBool(r.Field(t, "is_active")),
		CreatedAt:        parseTime(r.Field(t, "created_at")),
		UpdatedAt:        parseTime(r.Field(t, "updated_at")),
	}
}

func encodeMapping(m *types.CourseItemMapping) ([]string, error) {
	values := []string{
		m.MapID,
		m.CourseID,
		m.ItemID,
		strconv.Itoa(m.OrderInCourse),
		formatBool(m.IsRequired),
		m.CustomItemText,
		formatTime(m.CreatedAt),
	}
	return values, rowstore.CheckWidth(rowstore.CourseItemMap, values)
}

func decodeMapping(r rowstore.Row) *types.CourseItemMapping {
	t := rowstore.CourseItemMap
	return &types.CourseItemMapping{
		MapID:          r.Field(t, "map_id"),
		CourseID:       r.Field(t, "course_id"),
		ItemID:         r.Field(t, "item_id"),
		OrderInCourse:  parseInt(r.Field(t, "order_in_course")),
		IsRequired:     parseBool(r.Field(t, "is_required")),
		CustomItemText: r.Field(t, "custom_item_text"),
		CreatedAt:      parseTime(r.Field(t, "created_at")),
	}
}

func encodeRespondent(p *types.Respondent) ([]string, error) {
	values := []string{
		p.RespondentID,
		p.CourseID,
		p.PIIConsent,
		p.Company,
		p.Department,
		p.JobRole,
		p.TenureYears,
		p.Name,
		p.Phone,
		p.Email,
		p.HashedContact,
		p.ExtraMeta,
		formatTime(p.CreatedAt),
	}
	return values, rowstore.CheckWidth(rowstore.Respondents, values)
}

func decodeRespondent(r rowstore.Row) *types.Respondent {
	t := rowstore.Respondents
	return &types.Respondent{
		RespondentID:  r.Field(t, "respondent_id"),
		CourseID:      r.Field(t, "course_id"),
		PIIConsent:    r.Field(t, "pii_consent"),
		Company:       r.Field(t, "company"),
		Department:    r.Field(t, "department"),
		JobRole:       r.Field(t, "job_role"),
		TenureYears:   r.Field(t, "tenure_years"),
		Name:          r.Field(t, "name"),
		Phone:         r.Field(t, "phone"),
		Email:         r.Field(t, "email"),
		HashedContact: r.Field(t, "hashed_contact"),
		ExtraMeta:     r.Field(t, "extra_meta"),
		CreatedAt:     parseTime(r.Field(t, "created_at")),
	}
}

func encodeResponse(x *types.Response) ([]string, error) {
	values := []string{
		x.ResponseID,
		x.CourseID,
		x.RespondentID,
		x.Timestamp,
		x.ItemID,
		x.ResponseValue,
		formatFloatPtr(x.ResponseValueNum),
		x.ChoiceValue,
		x.CommentText,
		strconv.Itoa(x.SourceRowIndex),
		x.IngestBatchID,
	}
	return values, rowstore.CheckWidth(rowstore.Responses, values)
}

func decodeResponse(r rowstore.Row) *types.Response {
	t := rowstore.Responses
	return &types.Response{
		ResponseID:       r.Field(t, "response_id"),
		CourseID:         r.Field(t, "course_id"),
		RespondentID:     r.Field(t, "respondent_id"),
		Timestamp:        r.Field(t, "timestamp"),
		ItemID:           r.Field(t, "item_id"),
		ResponseValue:    r.Field(t, "response_value"),
		ResponseValueNum: parseFloatPtr(r.Field(t, "response_value_num")),
		ChoiceValue:      r.Field(t, "choice_value"),
		CommentText:      r.Field(t, "comment_text"),
		SourceRowIndex:   parseInt(r.Field(t, "source_row_index")),
		IngestBatchID:    r.Field(t, "ingest_batch_id"),
	}
}

func encodeCourse(c *types.Course) ([]string, error) {
	values := []string{
		c.CourseID,
		c.ProgramName,
		c.SessionNo,
		c.Theme,
		c.EventType,
		c.EventDate,
		c.Location,
		c.HostOrg,
		c.Speakers,
		c.SurveyFormVersion,
		c.ResponseSourceFile,
		c.Status,
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	}
	return values, rowstore.CheckWidth(rowstore.Courses, values)
}

func decodeCourse(r rowstore.Row) *types.Course {
	t := rowstore.Courses
	return &types.Course{
		CourseID:           r.Field(t, "course_id"),
		ProgramName:        r.Field(t, "program_name"),
		SessionNo:          r.Field(t, "session_no"),
		Theme:              r.Field(t, "theme"),
		EventType:          r.Field(t, "event_type"),
		EventDate:          r.Field(t, "event_date"),
		Location:           r.Field(t, "location"),
		HostOrg:            r.Field(t, "host_org"),
		Speakers:           r.Field(t, "speakers"),
		SurveyFormVersion:  r.Field(t, "survey_form_version"),
		ResponseSourceFile: r.Field(t, "response_source_file"),
		Status:             r.Field(t, "status"),
		CreatedAt:          parseTime(r.Field(t, "created_at")),
		UpdatedAt:          parseTime(r.Field(t, "updated_at")),
	}
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func formatIntPtr(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func parseIntPtr(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return pointers.Int(n)
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func formatFloatPtr(p *float64) string {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func parseFloatPtr(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return pointers.Float64(f)
}

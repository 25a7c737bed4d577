package survey

import "time"

const (
	CourseStatusActive   = "active"
	CourseStatusArchived = "archived"
)

// Course is one offering of a survey.
type Course struct {
	CourseID           string    `json:"course_id"`
	ProgramName        string    `json:"program_name,omitempty"`
	SessionNo          string    `json:"session_no,omitempty"`
	Theme              string    `json:"theme,omitempty"`
	EventType          string    `json:"event_type,omitempty"`
	EventDate          string    `json:"event_date,omitempty"`
	Location           string    `json:"location,omitempty"`
	HostOrg            string    `json:"host_org,omitempty"`
	Speakers           string    `json:"speakers,omitempty"`
	SurveyFormVersion  string    `json:"survey_form_version,omitempty"`
	ResponseSourceFile string    `json:"response_source_file,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CourseItemMapping links a course to a registry item. At most one exists
// per (CourseID, ItemID).
type CourseItemMapping struct {
	MapID          string    `json:"map_id"`
	CourseID       string    `json:"course_id"`
	ItemID         string    `json:"item_id"`
	OrderInCourse  int       `json:"order_in_course"`
	IsRequired     bool      `json:"is_required"`
	CustomItemText string    `json:"custom_item_text,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// CourseItem is a mapping joined with its registry item.
type CourseItem struct {
	SurveyItem
	OrderInCourse  int    `json:"order_in_course"`
	IsRequired     bool   `json:"is_required"`
	CustomItemText string `json:"custom_item_text,omitempty"`
}

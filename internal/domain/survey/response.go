package survey

import "time"

type Respondent struct {
	RespondentID  string    `json:"respondent_id"`
	CourseID      string    `json:"course_id"`
	PIIConsent    string    `json:"pii_consent,omitempty"`
	Company       string    `json:"company,omitempty"`
	Department    string    `json:"department,omitempty"`
	JobRole       string    `json:"job_role,omitempty"`
	TenureYears   string    `json:"tenure_years,omitempty"`
	Name          string    `json:"name,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	HashedContact string    `json:"hashed_contact,omitempty"`
	ExtraMeta     string    `json:"extra_meta,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Response is one non-empty answer cell. Responses are never mutated.
type Response struct {
	ResponseID       string   `json:"response_id"`
	CourseID         string   `json:"course_id"`
	RespondentID     string   `json:"respondent_id"`
	Timestamp        string   `json:"timestamp,omitempty"`
	ItemID           string   `json:"item_id"`
	ResponseValue    string   `json:"response_value"`
	ResponseValueNum *float64 `json:"response_value_num"`
	ChoiceValue      string   `json:"choice_value,omitempty"`
	CommentText      string   `json:"comment_text,omitempty"`
	SourceRowIndex   int      `json:"source_row_index"`
	IngestBatchID    string   `json:"ingest_batch_id"`
}

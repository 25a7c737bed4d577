package ingestrun

import (
	"time"

	"github.com/yungbote/surveybridge-backend/internal/ingestion/manifest"
)

const (
	WorkflowName           = "survey_manifest_ingest"
	ActivityIngestCourse   = "survey_ingest_course"
	ActivityClearResponses = "survey_clear_responses"

	DefaultCoursePause = 3 * time.Second
)

type Input struct {
	ClearFirst  bool             `json:"clear_first"`
	Courses     []manifest.Entry `json:"courses"`
	CoursePause time.Duration    `json:"course_pause"`
}

// CourseResult is the outcome of one manifest entry. A failed entry carries
// Error and does not stop the run.
type CourseResult struct {
	CourseID    string         `json:"course_id"`
	File        string         `json:"file"`
	BatchID     string         `json:"batch_id,omitempty"`
	Rows        int            `json:"rows"`
	Respondents int            `json:"respondents"`
	Responses   int            `json:"responses"`
	Skipped     map[string]int `json:"skipped,omitempty"`
	FailedCells int            `json:"failed_cells"`
	Unmatched   []string       `json:"unmatched,omitempty"`
	Error       string         `json:"error,omitempty"`
}

type Result struct {
	Cleared map[string]int `json:"cleared,omitempty"`
	Courses []CourseResult `json:"courses"`
	Failed  int            `json:"failed"`
}

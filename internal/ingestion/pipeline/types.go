package pipeline

import (
	"context"
	"time"

	"github.com/yungbote/surveybridge-backend/internal/ingestion/mapping"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/schema"
	"github.com/yungbote/surveybridge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/surveybridge-backend/internal/platform/envutil"
	"github.com/yungbote/surveybridge-backend/internal/platform/gcp"
	"github.com/yungbote/surveybridge-backend/internal/realtime/bus"
)

// Request is one response export to ingest for a course.
type Request struct {
	CourseID    string
	FileName    string
	Data        []byte
	Description string
	// SourceURI marks data that already lives in the upload archive; it is
	// recorded as the course's source file and not archived again.
	SourceURI string
}

type SkipReason string

const (
	SkipEmpty       SkipReason = "empty"
	SkipPlaceholder SkipReason = "placeholder"
	SkipNonNumeric  SkipReason = "non_numeric"
)

// CellResult is the outcome of one bound answer cell. Exactly one of
// ResponseID, Skipped or Error is set.
type CellResult struct {
	Row        int        `json:"row"`
	Header     string     `json:"header"`
	ItemID     string     `json:"item_id"`
	ResponseID string     `json:"response_id,omitempty"`
	Skipped    SkipReason `json:"skipped,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type RowResult struct {
	Row          int          `json:"row"`
	RespondentID string       `json:"respondent_id,omitempty"`
	Cells        []CellResult `json:"cells,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// ColumnPlan records how one header was read.
type ColumnPlan struct {
	Position        int                   `json:"position"`
	Header          string                `json:"header"`
	Class           schema.Classification `json:"class"`
	Rule            string                `json:"rule"`
	RespondentField string                `json:"respondent_field,omitempty"`
	Inference       *schema.Inference     `json:"inference,omitempty"`
	ItemCode        string                `json:"item_code,omitempty"`
	ItemID          string                `json:"item_id,omitempty"`
}

// Summary is the best-effort tally of one file.
type Summary struct {
	CourseID        string              `json:"course_id"`
	FileName        string              `json:"file_name"`
	SourceFile      string              `json:"source_file,omitempty"`
	BatchID         string              `json:"batch_id,omitempty"`
	Format          string              `json:"format"`
	Encoding        string              `json:"encoding,omitempty"`
	Sheet           string              `json:"sheet,omitempty"`
	DryRun          bool                `json:"dry_run,omitempty"`
	Columns         []ColumnPlan        `json:"columns"`
	QuestionColumns int                 `json:"question_columns"`
	PIIColumns      int                 `json:"pii_columns"`
	NoiseColumns    int                 `json:"noise_columns"`
	ItemsRegistered int                 `json:"items_registered"`
	ItemsReused     int                 `json:"items_reused"`
	Mapping         mapping.RemapResult `json:"mapping"`
	BoundColumns    int                 `json:"bound_columns"`
	Unmatched       []string            `json:"unmatched"`
	Rows            int                 `json:"rows"`
	Respondents     int                 `json:"respondents"`
	Responses       int                 `json:"responses"`
	Skipped         map[SkipReason]int  `json:"skipped"`
	FailedRows      []RowResult         `json:"failed_rows,omitempty"`
	FailedCells     []CellResult        `json:"failed_cells,omitempty"`
	StartedAt       time.Time           `json:"started_at"`
	FinishedAt      time.Time           `json:"finished_at"`
}

func (s *Summary) SkippedTotal() int {
	n := 0
	for _, v := range s.Skipped {
		n += v
	}
	return n
}

type Options struct {
	// Every PauseEvery rows the ingestor sleeps RowPause. Zero disables it.
	PauseEvery int
	RowPause   time.Duration
	// HashKey keys the BLAKE2b contact hash.
	HashKey []byte
	Archive gcp.UploadArchive
	Events  bus.Bus
	Sleep   func(ctx context.Context, d time.Duration) error
	Now     func() time.Time
}

func DefaultOptions() Options {
	return Options{
		PauseEvery: 10,
		RowPause:   500 * time.Millisecond,
		Sleep:      ctxutil.Sleep,
		Now:        time.Now,
	}
}

// OptionsFromEnv reads INGEST_PAUSE_EVERY, INGEST_ROW_PAUSE_MS and
// CONTACT_HASH_KEY on top of DefaultOptions.
func OptionsFromEnv() Options {
	o := DefaultOptions()
	o.PauseEvery = envutil.Int("INGEST_PAUSE_EVERY", o.PauseEvery)
	o.RowPause = envutil.Millis("INGEST_ROW_PAUSE_MS", int(o.RowPause/time.Millisecond))
	if k := envutil.String("CONTACT_HASH_KEY", ""); k != "" {
		o.HashKey = []byte(k)
	}
	return o
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Sleep == nil {
		o.Sleep = d.Sleep
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	if o.PauseEvery < 0 {
		o.PauseEvery = 0
	}
	return o
}

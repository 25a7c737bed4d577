package ingestrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/surveybridge-backend/internal/ingestion/manifest"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/pipeline"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/reader"
	"github.com/yungbote/surveybridge-backend/internal/observability"
	apperr "github.com/yungbote/surveybridge-backend/internal/pkg/errors"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

// Ingester is the slice of the pipeline the activities drive.
type Ingester interface {
	IngestFile(ctx context.Context, req pipeline.Request) (*pipeline.Summary, error)
	ClearResponses(ctx context.Context) (map[string]int, error)
}

type Activities struct {
	Log     *logger.Logger
	Ingest  Ingester
	Archive manifest.ArchiveReader
}

func (a *Activities) IngestCourse(ctx context.Context, entry manifest.Entry) (CourseResult, error) {
	res := CourseResult{CourseID: entry.CourseID, File: entry.File}
	if a == nil || a.Ingest == nil {
		return res, fmt.Errorf("ingestrun: activity not configured")
	}
	started := time.Now()
	activity.RecordHeartbeat(ctx, entry.CourseID)

	req, err := entry.Request(ctx, a.Archive)
	if err != nil {
		a.observe(ActivityIngestCourse, "failed", started)
		return res, temporal.NewNonRetryableApplicationError(err.Error(), "source_unavailable", err)
	}
	sum, err := a.Ingest.IngestFile(ctx, req)
	if sum != nil {
		res.BatchID = sum.BatchID
		res.Rows = sum.Rows
		res.Respondents = sum.Respondents
		res.Responses = sum.Responses
		res.FailedCells = len(sum.FailedCells)
		res.Unmatched = sum.Unmatched
		if len(sum.Skipped) > 0 {
			res.Skipped = make(map[string]int, len(sum.Skipped))
			for k, v := range sum.Skipped {
				res.Skipped[string(k)] = v
			}
		}
	}
	if err != nil {
		a.observe(ActivityIngestCourse, "failed", started)
		if permanent(err) {
			res.Error = err.Error()
			return res, nil
		}
		return res, err
	}
	a.observe(ActivityIngestCourse, "succeeded", started)
	if a.Log != nil {
		a.Log.Info("course ingested", "course_id", entry.CourseID, "responses", res.Responses, "batch_id", res.BatchID)
	}
	return res, nil
}

func (a *Activities) ClearResponses(ctx context.Context) (map[string]int, error) {
	if a == nil || a.Ingest == nil {
		return nil, fmt.Errorf("ingestrun: activity not configured")
	}
	started := time.Now()
	out, err := a.Ingest.ClearResponses(ctx)
	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	a.observe(ActivityClearResponses, status, started)
	return out, err
}

func (a *Activities) observe(name, status string, started time.Time) {
	observability.Current().ObserveActivity(name, status, time.Since(started))
}

// permanent errors will fail the same way on every attempt.
func permanent(err error) bool {
	var fe *reader.FileError
	return errors.As(err, &fe) || errors.Is(err, apperr.ErrInvalidArgument)
}

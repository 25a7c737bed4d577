package services

import (
	"context"
	"fmt"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/surveybridge-backend/internal/ingestion/manifest"
	apperr "github.com/yungbote/surveybridge-backend/internal/pkg/errors"
	"github.com/yungbote/surveybridge-backend/internal/platform/envutil"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
	"github.com/yungbote/surveybridge-backend/internal/temporalx/ingestrun"
)

type IngestRun struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
	Courses    int    `json:"courses"`
}

type IngestRunService interface {
	// Start validates the manifest and hands it to the durable workflow.
	Start(ctx context.Context, m *manifest.Manifest) (*IngestRun, error)
	Available() bool
}

type ingestRunService struct {
	log         *logger.Logger
	tc          temporalsdkclient.Client
	coursePause time.Duration
}

// NewIngestRunService accepts a nil client; Start then reports ErrUnavailable.
func NewIngestRunService(baseLog *logger.Logger, tc temporalsdkclient.Client) IngestRunService {
	return &ingestRunService{
		log:         baseLog.With("service", "IngestRunService"),
		tc:          tc,
		coursePause: CoursePauseFromEnv(),
	}
}

// CoursePauseFromEnv reads INGEST_COURSE_PAUSE_MS.
func CoursePauseFromEnv() time.Duration {
	return envutil.Millis("INGEST_COURSE_PAUSE_MS", int(ingestrun.DefaultCoursePause/time.Millisecond))
}

func (s *ingestRunService) Available() bool { return s.tc != nil }

func (s *ingestRunService) Start(ctx context.Context, m *manifest.Manifest) (*IngestRun, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: manifest required", apperr.ErrInvalidArgument)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if s.tc == nil {
		return nil, fmt.Errorf("%w: durable runs need TEMPORAL_ADDRESS", apperr.ErrUnavailable)
	}
	workflowID, runID, err := ingestrun.Start(ctx, s.tc, ingestrun.Input{
		ClearFirst:  m.ClearFirst,
		Courses:     m.Courses,
		CoursePause: s.coursePause,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("ingest run started", "workflow_id", workflowID, "courses", len(m.Courses), "clear_first", m.ClearFirst)
	return &IngestRun{WorkflowID: workflowID, RunID: runID, Courses: len(m.Courses)}, nil
}

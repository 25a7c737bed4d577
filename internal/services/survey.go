package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/surveybridge-backend/internal/data/repos"
	types "github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/pipeline"
	apperr "github.com/yungbote/surveybridge-backend/internal/pkg/errors"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type SurveyService interface {
	// Ingest runs one uploaded export through the pipeline.
	Ingest(ctx context.Context, req pipeline.Request) (*pipeline.Summary, error)
	// Plan classifies a file without writing.
	Plan(name string, data []byte) (*pipeline.Summary, error)
	// GET
	ListItems(ctx context.Context) ([]*types.SurveyItem, error)
	ListCourses(ctx context.Context) ([]*types.Course, error)
	CourseItems(ctx context.Context, courseID string) ([]*types.CourseItem, error)
	CourseResponses(ctx context.Context, courseID, batchID string) ([]*types.Response, error)
}

type surveyService struct {
	log      *logger.Logger
	repos    *repos.SurveyRepos
	ingestor *pipeline.Ingestor
}

func NewSurveyService(baseLog *logger.Logger, r *repos.SurveyRepos, ingestor *pipeline.Ingestor) SurveyService {
	return &surveyService{
		log:      baseLog.With("service", "SurveyService"),
		repos:    r,
		ingestor: ingestor,
	}
}

func (s *surveyService) Ingest(ctx context.Context, req pipeline.Request) (*pipeline.Summary, error) {
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", apperr.ErrInvalidArgument)
	}
	return s.ingestor.IngestFile(ctx, req)
}

func (s *surveyService) Plan(name string, data []byte) (*pipeline.Summary, error) {
	return s.ingestor.Plan(name, data)
}

func (s *surveyService) ListItems(ctx context.Context) ([]*types.SurveyItem, error) {
	items, err := s.repos.Items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list survey items: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ItemCode < items[j].ItemCode })
	return items, nil
}

func (s *surveyService) ListCourses(ctx context.Context) ([]*types.Course, error) {
	return s.repos.Courses.List(ctx)
}

func (s *surveyService) CourseItems(ctx context.Context, courseID string) ([]*types.CourseItem, error) {
	courseID, err := s.requireCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return s.ingestor.Mappings().CourseItems(ctx, courseID)
}

// CourseResponses lists a course's responses, optionally narrowed to one batch.
func (s *surveyService) CourseResponses(ctx context.Context, courseID, batchID string) ([]*types.Response, error) {
	courseID, err := s.requireCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return s.repos.Responses.ListByCourse(ctx, courseID)
	}
	all, err := s.repos.Responses.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Response, 0, len(all))
	for _, r := range all {
		if r.CourseID == courseID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *surveyService) requireCourse(ctx context.Context, courseID string) (string, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return "", fmt.Errorf("%w: course_id required", apperr.ErrInvalidArgument)
	}
	if _, err := s.repos.Courses.Get(ctx, courseID); err != nil {
		return "", err
	}
	return courseID, nil
}

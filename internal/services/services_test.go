package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/surveybridge-backend/internal/data/repos"
	"github.com/yungbote/surveybridge-backend/internal/data/repos/testutil"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/manifest"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/pipeline"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/schema"
	apperr "github.com/yungbote/surveybridge-backend/internal/pkg/errors"
)

func newSurveyService(t *testing.T) SurveyService {
	t.Helper()
	log := testutil.Logger(t)
	r := repos.NewSurveyRepos(testutil.MemoryStore(t), log)
	ing := pipeline.NewIngestor(r, schema.Embedded(), pipeline.Options{PauseEvery: 1000}, log)
	return NewSurveyService(log, r, ing)
}

func TestSurveyServiceIngestAndRead(t *testing.T) {
	ctx := context.Background()
	svc := newSurveyService(t)
	data := []byte("타임스탬프(Timestamp),전반적으로 만족하셨나요? (1-5점),소속 회사\n2024-01-01T00:00Z,4,SK하이닉스\n2024-01-01T00:05Z,5,삼성전자\n")

	sum, err := svc.Ingest(ctx, pipeline.Request{CourseID: "CARD-1", FileName: "a.csv", Data: data})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if sum.Responses != 4 {
		t.Fatalf("responses: want=4 got=%d", sum.Responses)
	}

	items, err := svc.ListItems(ctx)
	if err != nil || len(items) != 2 {
		t.Fatalf("ListItems: want=2 got=%d err=%v", len(items), err)
	}
	courseItems, err := svc.CourseItems(ctx, "CARD-1")
	if err != nil || len(courseItems) != 2 {
		t.Fatalf("CourseItems: want=2 got=%d err=%v", len(courseItems), err)
	}

	all, err := svc.CourseResponses(ctx, "CARD-1", "")
	if err != nil || len(all) != 4 {
		t.Fatalf("CourseResponses: want=4 got=%d err=%v", len(all), err)
	}
	byBatch, err := svc.CourseResponses(ctx, "CARD-1", sum.BatchID)
	if err != nil || len(byBatch) != 4 {
		t.Fatalf("CourseResponses batch: want=4 got=%d err=%v", len(byBatch), err)
	}
	none, err := svc.CourseResponses(ctx, "CARD-1", "B-missing")
	if err != nil || len(none) != 0 {
		t.Fatalf("CourseResponses other batch: want=0 got=%d err=%v", len(none), err)
	}

	courses, err := svc.ListCourses(ctx)
	if err != nil || len(courses) != 1 {
		t.Fatalf("ListCourses: want=1 got=%d err=%v", len(courses), err)
	}
}

func TestSurveyServiceUnknownCourse(t *testing.T) {
	svc := newSurveyService(t)
	if _, err := svc.CourseItems(context.Background(), "CARD-missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("CourseItems: want ErrNotFound got=%v", err)
	}
	if _, err := svc.CourseResponses(context.Background(), " ", ""); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("CourseResponses: want ErrInvalidArgument got=%v", err)
	}
}

func TestSurveyServiceRejectsEmptyUpload(t *testing.T) {
	svc := newSurveyService(t)
	_, err := svc.Ingest(context.Background(), pipeline.Request{CourseID: "CARD-1", FileName: "a.csv"})
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("Ingest: want ErrInvalidArgument got=%v", err)
	}
}

func TestIngestRunServiceWithoutTemporal(t *testing.T) {
	svc := NewIngestRunService(testutil.Logger(t), nil)
	if svc.Available() {
		t.Fatalf("Available: want=false")
	}
	m := &manifest.Manifest{Courses: []manifest.Entry{{CourseID: "CARD-1", File: "a.csv"}}}
	if _, err := svc.Start(context.Background(), m); !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("Start: want ErrUnavailable got=%v", err)
	}
	if _, err := svc.Start(context.Background(), &manifest.Manifest{}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("Start empty: want ErrInvalidArgument got=%v", err)
	}
}

func TestCoursePauseFromEnv(t *testing.T) {
	t.Setenv("INGEST_COURSE_PAUSE_MS", "")
	if got := CoursePauseFromEnv(); got.Seconds() != 3 {
		t.Fatalf("default: want=3s got=%v", got)
	}
	t.Setenv("INGEST_COURSE_PAUSE_MS", "250")
	if got := CoursePauseFromEnv(); got.Milliseconds() != 250 {
		t.Fatalf("override: want=250ms got=%v", got)
	}
}

package survey

import (
	"context"
	"fmt"

	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	types "github.com/yungbote/surveybridge-backend/internal/domain/survey"
	pkgerrors "github.com/yungbote/surveybridge-backend/internal/pkg/errors"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type CourseRepo interface {
	Upsert(ctx context.Context, c *types.Course) error
	Get(ctx context.Context, courseID string) (*types.Course, error)
	List(ctx context.Context) ([]*types.Course, error)
}

type courseRepo struct {
	store rowstore.Store
	log   *logger.Logger
}

func NewCourseRepo(store rowstore.Store, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{store: store, log: repoLog}
}

// Upsert keeps the original created_at of an existing course.
func (r *courseRepo) Upsert(ctx context.Context, c *types.Course) error {
	if existing, err := r.Get(ctx, c.CourseID); err == nil && !existing.CreatedAt.IsZero() {
		c.CreatedAt = existing.CreatedAt
	}
	values, err := encodeCourse(c)
	if err != nil {
		return err
	}
	return upsertByKey(ctx, r.store, rowstore.Courses, "course_id", c.CourseID, values)
}

func (r *courseRepo) Get(ctx context.Context, courseID string) (*types.Course, error) {
	rows, err := r.store.FindRows(ctx, rowstore.Courses, rowstore.FieldEquals(rowstore.Courses, "course_id", courseID))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("course %s: %w", courseID, pkgerrors.ErrNotFound)
	}
	return decodeCourse(rows[0]), nil
}

func (r *courseRepo) List(ctx context.Context) ([]*types.Course, error) {
	rows, err := r.store.FindRows(ctx, rowstore.Courses, rowstore.All)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Course, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodeCourse(row))
	}
	return out, nil
}

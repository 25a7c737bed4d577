package survey

import (
	"context"

	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	types "github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type MappingRepo interface {
	ListByCourse(ctx context.Context, courseID string) ([]*types.CourseItemMapping, error)
	DeleteByCourse(ctx context.Context, courseID string) (int, error)
	Create(ctx context.Context, m *types.CourseItemMapping) error
}

type mappingRepo struct {
	store rowstore.Store
	log   *logger.Logger
}

func NewMappingRepo(store rowstore.Store, baseLog *logger.Logger) MappingRepo {
	repoLog := baseLog.With("repo", "MappingRepo")
	return &mappingRepo{store: store, log: repoLog}
}

func (r *mappingRepo) ListByCourse(ctx context.Context, courseID string) ([]*types.CourseItemMapping, error) {
	rows, err := r.store.FindRows(ctx, rowstore.CourseItemMap, rowstore.FieldEquals(rowstore.CourseItemMap, "course_id", courseID))
	if err != nil {
		return nil, err
	}
	out := make([]*types.CourseItemMapping, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodeMapping(row))
	}
	return out, nil
}

// DeleteByCourse removes every mapping row of courseID in one descending
// delete and returns how many went.
func (r *mappingRepo) DeleteByCourse(ctx context.Context, courseID string) (int, error) {
	rows, err := r.store.FindRows(ctx, rowstore.CourseItemMap, rowstore.FieldEquals(rowstore.CourseItemMap, "course_id", courseID))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	refs := make([]int, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, row.Ref)
	}
	if err := r.store.DeleteRows(ctx, rowstore.CourseItemMap, refs); err != nil {
		return 0, err
	}
	r.log.Debug("mappings deleted", "course_id", courseID, "count", len(refs))
	return len(refs), nil
}

func (r *mappingRepo) Create(ctx context.Context, m *types.CourseItemMapping) error {
	values, err := encodeMapping(m)
	if err != nil {
		return err
	}
	return r.store.AppendRow(ctx, rowstore.CourseItemMap, values)
}

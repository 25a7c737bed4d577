package survey

import (
	"context"

	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	types "github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type ResponseRepo interface {
	Create(ctx context.Context, x *types.Response) error
	ListByCourse(ctx context.Context, courseID string) ([]*types.Response, error)
	ListByBatch(ctx context.Context, batchID string) ([]*types.Response, error)
}

type responseRepo struct {
	store rowstore.Store
	log   *logger.Logger
}

func NewResponseRepo(store rowstore.Store, baseLog *logger.Logger) ResponseRepo {
	repoLog := baseLog.With("repo", "ResponseRepo")
	return &responseRepo{store: store, log: repoLog}
}

func (r *responseRepo) Create(ctx context.Context, x *types.Response) error {
	values, err := encodeResponse(x)
	if err != nil {
		return err
	}
	return r.store.AppendRow(ctx, rowstore.Responses, values)
}

func (r *responseRepo) ListByCourse(ctx context.Context, courseID string) ([]*types.Response, error) {
	return r.list(ctx, "course_id", courseID)
}

func (r *responseRepo) ListByBatch(ctx context.Context, batchID string) ([]*types.Response, error) {
	return r.list(ctx, "ingest_batch_id", batchID)
}

func (r *responseRepo) list(ctx context.Context, col, value string) ([]*types.Response, error) {
	rows, err := r.store.FindRows(ctx, rowstore.Responses, rowstore.FieldEquals(rowstore.Responses, col, value))
	if err != nil {
		return nil, err
	}
	out := make([]*types.Response, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodeResponse(row))
	}
	return out, nil
}

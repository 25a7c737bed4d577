package survey

import (
	"context"
	"fmt"

	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	types "github.com/yungbote/surveybridge-backend/internal/domain/survey"
	pkgerrors "github.com/yungbote/surveybridge-backend/internal/pkg/errors"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type ItemRepo interface {
	List(ctx context.Context) ([]*types.SurveyItem, error)
	FindByCode(ctx context.Context, code string) (*types.SurveyItem, error)
	Upsert(ctx context.Context, item *types.SurveyItem) error
}

type itemRepo struct {
	store rowstore.Store
	log   *logger.Logger
}

func NewItemRepo(store rowstore.Store, baseLog *logger.Logger) ItemRepo {
	repoLog := baseLog.With("repo", "ItemRepo")
	return &itemRepo{store: store, log: repoLog}
}

func (r *itemRepo) List(ctx context.Context) ([]*types.SurveyItem, error) {
	rows, err := r.store.FindRows(ctx, rowstore.SurveyItems, rowstore.All)
	if err != nil {
		return nil, err
	}
	out := make([]*types.SurveyItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodeItem(row))
	}
	return out, nil
}

// FindByCode returns the first item carrying code, or ErrNotFound.
func (r *itemRepo) FindByCode(ctx context.Context, code string) (*types.SurveyItem, error) {
	rows, err := r.store.FindRows(ctx, rowstore.SurveyItems, rowstore.FieldEquals(rowstore.SurveyItems, "item_code", code))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("item_code %s: %w", code, pkgerrors.ErrNotFound)
	}
	return decodeItem(rows[0]), nil
}

func (r *itemRepo) Upsert(ctx context.Context, item *types.SurveyItem) error {
	values, err := encodeItem(item)
	if err != nil {
		return err
	}
	return upsertByKey(ctx, r.store, rowstore.SurveyItems, "item_id", item.ItemID, values)
}

// upsertByKey rewrites the first row whose key column equals key, or
// appends when none does.
func upsertByKey(ctx context.Context, s rowstore.Store, t rowstore.Table, col, key string, values []string) error {
	if key == "" {
		return fmt.Errorf("%s: empty %s: %w", t.Name, col, pkgerrors.ErrInvalidArgument)
	}
	rows, err := s.FindRows(ctx, t, rowstore.FieldEquals(t, col, key))
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return s.UpdateRow(ctx, t, rows[0].Ref, values)
	}
	return s.AppendRow(ctx, t, values)
}

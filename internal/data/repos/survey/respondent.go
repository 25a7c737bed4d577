package survey

import (
	"context"

	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	types "github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type RespondentRepo interface {
	Upsert(ctx context.Context, p *types.Respondent) error
	ListByCourse(ctx context.Context, courseID string) ([]*types.Respondent, error)
}

type respondentRepo struct {
	store rowstore.Store
	log   *logger.Logger
}

func NewRespondentRepo(store rowstore.Store, baseLog *logger.Logger) RespondentRepo {
	repoLog := baseLog.With("repo", "RespondentRepo")
	return &respondentRepo{store: store, log: repoLog}
}

// Upsert is keyed by respondent_id so a retried row never duplicates.
func (r *respondentRepo) Upsert(ctx context.Context, p *types.Respondent) error {
	values, err := encodeRespondent(p)
	if err != nil {
		return err
	}
	return upsertByKey(ctx, r.store, rowstore.Respondents, "respondent_id", p.RespondentID, values)
}

func (r *respondentRepo) ListByCourse(ctx context.Context, courseID string) ([]*types.Respondent, error) {
	rows, err := r.store.FindRows(ctx, rowstore.Respondents, rowstore.FieldEquals(rowstore.Respondents, "course_id", courseID))
	if err != nil {
		return nil, err
	}
	out := make([]*types.Respondent, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodeRespondent(row))
	}
	return out, nil
}

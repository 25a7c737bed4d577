package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	types "github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"github.com/yungbote/surveybridge-backend/internal/pkg/ids"
	"github.com/yungbote/surveybridge-backend/internal/pkg/pointers"
)

// ItemFixture builds an active likert item without persisting it.
func ItemFixture(code, text string, order int) *types.SurveyItem {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &types.SurveyItem{
		ItemID:        ids.Item(),
		ItemCode:      code,
		ItemText:      text,
		MetricType:    types.MetricLikert,
		Dimension:     types.DimensionSatisfaction,
		ScaleMin:      pointers.Int(1),
		ScaleMax:      pointers.Int(5),
		ScaleLabelMin: "매우 낮음",
		ScaleLabelMax: "매우 높음",
		DefaultOrder:  order,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func SeedRow(tb testing.TB, ctx context.Context, s rowstore.Store, t rowstore.Table, values ...string) {
	tb.Helper()
	if err := s.AppendRow(ctx, t, values); err != nil {
		tb.Fatalf("seed %s: %v", t.Name, err)
	}
}

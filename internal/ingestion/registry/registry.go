package registry

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/surveybridge-backend/internal/data/repos"
	"github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/schema"
	"github.com/yungbote/surveybridge-backend/internal/normalization"
	apperr "github.com/yungbote/surveybridge-backend/internal/pkg/errors"
	"github.com/yungbote/surveybridge-backend/internal/pkg/ids"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

const slugRunes = 30

// Code derives the item code from the item text and its inferred shape.
// Identical text always yields the same code.
func Code(text string, dim survey.Dimension, mt survey.MetricType) string {
	base := string(dim)
	if base == "" {
		base = string(mt)
	}
	if base == "" {
		base = "item"
	}
	sum := md5.Sum([]byte(text))
	hash := hex.EncodeToString(sum[:])[:6]
	return strings.ToUpper(normalization.Slugify(base, slugRunes) + "_" + normalization.Slugify(text, slugRunes) + "_" + hash)
}

// Registered is one question column bound to its registry item.
type Registered struct {
	Header   string
	Position int
	Item     *survey.SurveyItem
	Created  bool
}

// Registry is the shared, append-only question catalogue. Its code cache is
// rebuilt from the store by Load at the start of every run.
type Registry struct {
	items  repos.ItemRepo
	engine *schema.Engine
	log    *logger.Logger
	now    func() time.Time

	mu     sync.Mutex
	loaded bool
	byCode map[string]*survey.SurveyItem
	order  []*survey.SurveyItem
}

func New(items repos.ItemRepo, engine *schema.Engine, baseLog *logger.Logger) *Registry {
	return &Registry{
		items:  items,
		engine: engine,
		log:    baseLog.With("service", "Registry"),
		now:    time.Now,
		byCode: map[string]*survey.SurveyItem{},
	}
}

func (r *Registry) Load(ctx context.Context) error {
	list, err := r.items.List(ctx)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byCode = make(map[string]*survey.SurveyItem, len(list))
	r.order = make([]*survey.SurveyItem, 0, len(list))
	for _, it := range list {
		if _, dup := r.byCode[it.ItemCode]; dup {
			continue
		}
		r.byCode[it.ItemCode] = it
		r.order = append(r.order, it)
	}
	r.loaded = true
	r.log.Debug("registry loaded", "items", len(r.order))
	return nil
}

// Register returns the item for header, creating it when its code is new.
// created reports whether a new item was persisted.
func (r *Registry) Register(ctx context.Context, header string, order int) (*survey.SurveyItem, bool, error) {
	if strings.TrimSpace(header) == "" {
		return nil, false, fmt.Errorf("register: empty header")
	}
	if !r.isLoaded() {
		if err := r.Load(ctx); err != nil {
			return nil, false, err
		}
	}

	draft := r.engine.DescribeItem(header, order)
	code := Code(draft.ItemText, draft.Dimension, draft.MetricType)

	r.mu.Lock()
	existing, ok := r.byCode[code]
	r.mu.Unlock()
	if ok {
		return existing, false, nil
	}
	// Another writer sharing the store may have registered it since Load.
	stored, err := r.items.FindByCode(ctx, code)
	switch {
	case err == nil:
		r.remember(stored)
		return stored, false, nil
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, false, fmt.Errorf("register %s: %w", code, err)
	}

	now := r.now().UTC()
	item := &survey.SurveyItem{
		ItemID:           ids.Item(),
		ItemCode:         code,
		ItemGroup:        draft.ItemGroup,
		ItemText:         draft.ItemText,
		MetricType:       draft.MetricType,
		Dimension:        draft.Dimension,
		ScaleMin:         draft.ScaleMin,
		ScaleMax:         draft.ScaleMax,
		ScaleLabelMin:    draft.ScaleLabelMin,
		ScaleLabelMax:    draft.ScaleLabelMax,
		Options:          draft.Options,
		AppliesToSpeaker: draft.AppliesToSpeaker,
		AppliesToSession: draft.AppliesToSession,
		DefaultOrder:     draft.DefaultOrder,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := r.items.Upsert(ctx, item); err != nil {
		return nil, false, fmt.Errorf("register %s: %w", code, err)
	}

	r.remember(item)
	r.log.Info("item registered", "item_id", item.ItemID, "item_code", code, "metric_type", item.MetricType)
	return item, true, nil
}

// RegisterHeaders registers every header classified as a question, in
// column order. Position and default_order are the 0-based column index.
func (r *Registry) RegisterHeaders(ctx context.Context, headers []string) ([]Registered, error) {
	var out []Registered
	for pos, h := range headers {
		if r.engine.Classify(h) != schema.ClassQuestion {
			continue
		}
		item, created, err := r.Register(ctx, h, pos)
		if err != nil {
			return out, err
		}
		out = append(out, Registered{Header: h, Position: pos, Item: item, Created: created})
	}
	return out, nil
}

// Items is a snapshot of every known item in load-then-creation order.
func (r *Registry) Items() []*survey.SurveyItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*survey.SurveyItem, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) remember(it *survey.SurveyItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCode[it.ItemCode]; ok {
		return
	}
	r.byCode[it.ItemCode] = it
	r.order = append(r.order, it)
}

func (r *Registry) isLoaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

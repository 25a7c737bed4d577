package mapping

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yungbote/surveybridge-backend/internal/data/repos"
	"github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"github.com/yungbote/surveybridge-backend/internal/pkg/ids"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type RemapResult struct {
	Removed int `json:"removed"`
	Created int `json:"created"`
}

// Manager owns the course to item links. A course's mappings are a derived
// view of its latest upload and are always replaced wholesale.
type Manager struct {
	mappings repos.MappingRepo
	items    repos.ItemRepo
	log      *logger.Logger
	now      func() time.Time
}

func NewManager(mappings repos.MappingRepo, items repos.ItemRepo, baseLog *logger.Logger) *Manager {
	return &Manager{
		mappings: mappings,
		items:    items,
		log:      baseLog.With("service", "MappingManager"),
		now:      time.Now,
	}
}

// Remap deletes every mapping of courseID, then maps each distinct item
// with order_in_course = default_order and is_required = true.
func (m *Manager) Remap(ctx context.Context, courseID string, items []*survey.SurveyItem) (RemapResult, error) {
	var res RemapResult
	if courseID == "" {
		return res, fmt.Errorf("remap: empty course_id")
	}
	removed, err := m.mappings.DeleteByCourse(ctx, courseID)
	if err != nil {
		return res, fmt.Errorf("remap %s: delete: %w", courseID, err)
	}
	res.Removed = removed

	now := m.now().UTC()
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it == nil || it.ItemID == "" || seen[it.ItemID] {
			continue
		}
		seen[it.ItemID] = true
		mp := &survey.CourseItemMapping{
			MapID:         ids.Mapping(),
			CourseID:      courseID,
			ItemID:        it.ItemID,
			OrderInCourse: it.DefaultOrder,
			IsRequired:    true,
			CreatedAt:     now,
		}
		if err := m.mappings.Create(ctx, mp); err != nil {
			return res, fmt.Errorf("remap %s: create %s: %w", courseID, it.ItemID, err)
		}
		res.Created++
	}
	m.log.Info("course remapped", "course_id", courseID, "removed", res.Removed, "created", res.Created)
	return res, nil
}

// CourseItems joins the course's mappings with their registry items, sorted
// by order_in_course. Mappings whose item is gone are skipped.
func (m *Manager) CourseItems(ctx context.Context, courseID string) ([]*survey.CourseItem, error) {
	maps, err := m.mappings.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(maps) == 0 {
		return []*survey.CourseItem{}, nil
	}
	all, err := m.items.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*survey.SurveyItem, len(all))
	for _, it := range all {
		byID[it.ItemID] = it
	}
	out := make([]*survey.CourseItem, 0, len(maps))
	for _, mp := range maps {
		it, ok := byID[mp.ItemID]
		if !ok {
			m.log.Warn("mapping points at unknown item", "course_id", courseID, "item_id", mp.ItemID)
			continue
		}
		out = append(out, &survey.CourseItem{
			SurveyItem:     *it,
			OrderInCourse:  mp.OrderInCourse,
			IsRequired:     mp.IsRequired,
			CustomItemText: mp.CustomItemText,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderInCourse < out[j].OrderInCourse })
	return out, nil
}

package observability

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/surveybridge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/surveybridge-backend/internal/platform/envutil"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type qualityAlertState struct {
	mu   sync.Mutex
	last map[string]time.Time
}

var qualityAlerts qualityAlertState

// ReportSkippedCells warns when the share of skipped cells in a file crosses
// INGEST_SKIP_ALERT_RATIO. Alerts per course are throttled by
// INGEST_SKIP_ALERT_COOLDOWN_SECONDS.
func ReportSkippedCells(ctx context.Context, log *logger.Logger, courseID string, written int, skipped map[string]int) bool {
	if log == nil || len(skipped) == 0 {
		return false
	}
	total := written
	reasons := make([]string, 0, len(skipped))
	skippedTotal := 0
	for reason, n := range skipped {
		total += n
		skippedTotal += n
		reasons = append(reasons, reason)
	}
	if total == 0 {
		return false
	}
	ratio := float64(skippedTotal) / float64(total)
	if ratio < envutil.Float("INGEST_SKIP_ALERT_RATIO", 0.5) {
		return false
	}
	courseID = strings.TrimSpace(courseID)
	if !qualityAlerts.allow(courseID, time.Duration(envutil.Int("INGEST_SKIP_ALERT_COOLDOWN_SECONDS", 300))*time.Second) {
		return false
	}
	sort.Strings(reasons)
	kv := []interface{}{
		"course_id", courseID,
		"skipped", skippedTotal,
		"total", total,
		"ratio", ratio,
		"reasons", strings.Join(reasons, ","),
	}
	kv = append(kv, ctxutil.TraceFields(ctx)...)
	log.Warn("high skipped cell ratio", kv...)
	return true
}

func (s *qualityAlertState) allow(key string, cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		s.last = map[string]time.Time{}
	}
	now := time.Now()
	if last, ok := s.last[key]; ok && cooldown > 0 && now.Sub(last) < cooldown {
		return false
	}
	s.last[key] = now
	return true
}

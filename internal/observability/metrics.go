package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/surveybridge-backend/internal/platform/envutil"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter

	ingestFiles     *CounterVec
	ingestDuration  *HistogramVec
	ingestCells     *CounterVec
	ingestSkipped   *CounterVec
	itemsRegistered *Counter
	storeRetries    *CounterVec

	activityTime *HistogramVec
	workerTotal  *Counter
	workerError  *Counter

	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	n := envutil.Int("METRICS_SCRAPE_INTERVAL_SECONDS", 10)
	if n <= 0 {
		n = 10
	}
	return time.Duration(n) * time.Second
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("sb_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"sb_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("sb_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("sb_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("sb_api_requests_error_total", "Total API requests with 5xx status."),

		ingestFiles: NewCounterVec("sb_ingest_files_total", "Response files ingested by status.", []string{"status"}),
		ingestDuration: NewHistogramVec(
			"sb_ingest_duration_seconds",
			"Response file ingestion duration in seconds.",
			[]string{"status"},
			[]float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		),
		ingestCells:     NewCounterVec("sb_ingest_cells_total", "Response cells by outcome.", []string{"outcome"}),
		ingestSkipped:   NewCounterVec("sb_ingest_cells_skipped_total", "Skipped response cells by reason.", []string{"reason"}),
		itemsRegistered: NewCounter("sb_items_registered_total", "Survey items created by the registry."),
		storeRetries:    NewCounterVec("sb_store_retries_total", "Rate-limited row store calls retried, by operation.", []string{"op"}),

		activityTime: NewHistogramVec(
			"sb_worker_activity_duration_seconds",
			"Worker activity duration in seconds.",
			[]string{"activity", "status"},
			[]float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		),
		workerTotal: NewCounter("sb_worker_activity_total", "Total worker activities."),
		workerError: NewCounter("sb_worker_activity_error_total", "Total worker activities with failure status."),

		pgStats:   NewGaugeVec("sb_postgres_stats", "Postgres connection stats.", []string{"metric"}),
		redisUp:   NewGauge("sb_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing: NewGauge("sb_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError,
		m.ingestFiles, m.ingestDuration, m.ingestCells, m.ingestSkipped, m.itemsRegistered, m.storeRetries,
		m.activityTime, m.workerTotal, m.workerError,
		m.pgStats, m.redisUp, m.redisPing,
	}
	for _, c := range all {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// IngestStats is the per-file tally reported once an ingestion run ends.
type IngestStats struct {
	Status          string
	Duration        time.Duration
	CellsWritten    int
	CellsFailed     int
	Skipped         map[string]int
	ItemsRegistered int
}

func (m *Metrics) ObserveIngest(s IngestStats) {
	if m == nil {
		return
	}
	status := s.Status
	if status == "" {
		status = "unknown"
	}
	m.ingestFiles.Inc(status)
	m.ingestDuration.Observe(s.Duration.Seconds(), status)
	m.ingestCells.Add(float64(s.CellsWritten), "written")
	m.ingestCells.Add(float64(s.CellsFailed), "failed")
	for reason, n := range s.Skipped {
		m.ingestCells.Add(float64(n), "skipped")
		m.ingestSkipped.Add(float64(n), reason)
	}
	m.itemsRegistered.Add(float64(s.ItemsRegistered))
}

func (m *Metrics) IncStoreRetry(op string) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	m.storeRetries.Inc(op)
}

func (m *Metrics) ObserveActivity(activityName, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if activityName == "" {
		activityName = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.activityTime.Observe(dur.Seconds(), activityName, status)
	m.workerTotal.Inc()
	if isFailureStatus(status) {
		m.workerError.Inc()
	}
}

// StartPostgresCollector samples connection pool stats when the row store
// runs on Postgres.
func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	interval := scrapeInterval()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

package app

import (
	"context"
	"fmt"
	"net"

	temporalsdkclient "go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"

	httpserver "github.com/yungbote/surveybridge-backend/internal/http"
	httpH "github.com/yungbote/surveybridge-backend/internal/http/handlers"
	"github.com/yungbote/surveybridge-backend/internal/observability"
	"github.com/yungbote/surveybridge-backend/internal/platform/envutil"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
	"github.com/yungbote/surveybridge-backend/internal/realtime"
	"github.com/yungbote/surveybridge-backend/internal/realtime/bus"
	"github.com/yungbote/surveybridge-backend/internal/services"
	"github.com/yungbote/surveybridge-backend/internal/temporalx"
	"github.com/yungbote/surveybridge-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Core     *Core
	Hub      *realtime.Hub
	Bus      bus.Bus
	Temporal temporalsdkclient.Client
	Metrics  *observability.Metrics
	Server   *httpserver.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: envutil.String("APP_ENV", ""),
		Version:     envutil.String("APP_VERSION", ""),
	})
	metrics := observability.Init(log)

	hub := realtime.NewHub(log)
	eventBus, err := newBus(log, hub)
	if err != nil {
		log.Sync()
		return nil, err
	}

	core, err := NewCore(ctx, log, cfg, eventBus)
	if err != nil {
		_ = eventBus.Close()
		log.Sync()
		return nil, err
	}

	tc, err := temporalx.Dial(ctx, log)
	if err != nil {
		log.Warn("Temporal unavailable; durable ingest runs disabled", "error", err)
		tc = nil
	}

	surveySvc := services.NewSurveyService(log, core.Repos, core.Ingestor)
	runSvc := services.NewIngestRunService(log, tc)

	server := httpserver.NewServer(httpserver.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		ServiceName:      cfg.ServiceName,
		SurveyHandler:    httpH.NewSurveyHandler(log, surveySvc),
		IngestRunHandler: httpH.NewIngestRunHandler(log, runSvc),
		EventsHandler:    httpH.NewEventsHandler(log, hub),
		HealthHandler:    httpH.NewHealthHandler(),
	})

	return &App{
		Log:          log,
		Cfg:          cfg,
		Core:         core,
		Hub:          hub,
		Bus:          eventBus,
		Temporal:     tc,
		Metrics:      metrics,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// newBus uses Redis pub/sub when REDIS_ADDR is set so every replica's SSE
// clients see every ingest; otherwise events stay in-process.
func newBus(log *logger.Logger, hub *realtime.Hub) (bus.Bus, error) {
	if envutil.String("REDIS_ADDR", "") == "" {
		return bus.NewLocalBus(hub), nil
	}
	b, err := bus.NewRedisBus(log)
	if err != nil {
		return nil, fmt.Errorf("init redis bus: %w", err)
	}
	return b, nil
}

// Run serves HTTP and, when configured, the Temporal worker and the event
// forwarder until ctx ends or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Bus.StartForwarder(gctx, a.Hub.Broadcast)
	})

	if a.Temporal != nil && a.Cfg.RunWorker {
		runner, err := temporalworker.NewRunner(a.Log, a.Temporal, a.Core.Ingestor, a.Core.ArchiveReader())
		if err != nil {
			return err
		}
		g.Go(func() error { return runner.Start(gctx) })
	}

	if a.Metrics != nil {
		a.Metrics.StartServer(gctx, a.Log, a.Cfg.MetricsAddr)
		if a.Core.DB != nil {
			a.Metrics.StartPostgresCollector(gctx, a.Log, a.Core.DB)
		}
		if addr := envutil.String("REDIS_ADDR", ""); addr != "" {
			a.Metrics.StartRedisCollector(gctx, a.Log, addr)
		}
	}

	addr := net.JoinHostPort("", a.Cfg.Port)
	a.Log.Info("HTTP server listening", "addr", addr, "store_backend", string(a.Cfg.StoreBackend))
	g.Go(func() error { return a.Server.Run(gctx, addr) })

	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Temporal != nil {
		a.Temporal.Close()
	}
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

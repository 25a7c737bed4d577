package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/surveybridge-backend/internal/platform/envutil"
)

type StoreBackend string

const (
	StoreBackendMemory   StoreBackend = "memory"
	StoreBackendPostgres StoreBackend = "postgres"
	StoreBackendSQLite   StoreBackend = "sqlite"
	StoreBackendSheets   StoreBackend = "sheets"
)

type Config struct {
	LogMode      string
	Port         string
	StoreBackend StoreBackend
	ServiceName  string
	MetricsAddr  string
	// RunWorker starts the Temporal worker in-process when Temporal is configured.
	RunWorker    bool
}

type ConfigError struct {
	Key   string
	Value string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid config"
	}
	return fmt.Sprintf("invalid %s=%q", e.Key, e.Value)
}

func LoadConfig() (Config, error) {
	cfg := Config{
		LogMode:      envutil.String("LOG_MODE", "development"),
		Port:         envutil.String("PORT", "8080"),
		StoreBackend: StoreBackend(strings.ToLower(envutil.String("STORE_BACKEND", string(StoreBackendMemory)))),
		ServiceName:  envutil.String("OTEL_SERVICE_NAME", "surveybridge"),
		MetricsAddr:  envutil.String("METRICS_ADDR", ""),
		RunWorker:    envutil.Bool("RUN_TEMPORAL_WORKER", true),
	}
	switch cfg.StoreBackend {
	case StoreBackendMemory, StoreBackendPostgres, StoreBackendSQLite, StoreBackendSheets:
	default:
		return cfg, &ConfigError{Key: "STORE_BACKEND", Value: string(cfg.StoreBackend)}
	}
	return cfg, nil
}

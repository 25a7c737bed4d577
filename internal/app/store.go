package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/surveybridge-backend/internal/data/db"
	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	"github.com/yungbote/surveybridge-backend/internal/platform/gsheets"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type StoreBootstrapErrorCode string

const (
	StoreBootstrapErrorInvalidConfig StoreBootstrapErrorCode = "invalid_config"
	StoreBootstrapErrorConnectFailed StoreBootstrapErrorCode = "connect_failed"
	StoreBootstrapErrorEnsureFailed  StoreBootstrapErrorCode = "ensure_tables_failed"
)

type StoreBootstrapError struct {
	Code    StoreBootstrapErrorCode
	Backend StoreBackend
	Cause   error
}

func (e *StoreBootstrapError) Error() string {
	if e == nil {
		return "row store bootstrap failed"
	}
	return fmt.Sprintf("row store bootstrap failed (code=%s backend=%s): %v", e.Code, e.Backend, e.Cause)
}

func (e *StoreBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

var (
	openPostgres = func(log *logger.Logger) (*gorm.DB, error) {
		pg, err := db.NewPostgresService(log)
		if err != nil {
			return nil, err
		}
		return pg.DB(), nil
	}
	openSQLite = func(log *logger.Logger) (*gorm.DB, error) {
		s, err := db.NewSQLiteService(log)
		if err != nil {
			return nil, err
		}
		return s.DB(), nil
	}
)

// openStore builds the configured backend wrapped in rate-limit retries and
// write pacing, and makes sure every table exists. The gorm handle is nil
// for the memory and sheets backends.
func openStore(ctx context.Context, log *logger.Logger, backend StoreBackend) (rowstore.Store, *gorm.DB, error) {
	var (
		base   rowstore.Store
		gormDB *gorm.DB
		err    error
	)
	switch backend {
	case StoreBackendMemory, "":
		base = rowstore.NewMemoryStore()
	case StoreBackendPostgres, StoreBackendSQLite:
		if backend == StoreBackendPostgres {
			gormDB, err = openPostgres(log)
		} else {
			gormDB, err = openSQLite(log)
		}
		if err != nil {
			return nil, nil, &StoreBootstrapError{Code: StoreBootstrapErrorConnectFailed, Backend: backend, Cause: err}
		}
		if err := db.AutoMigrateAll(gormDB); err != nil {
			return nil, nil, &StoreBootstrapError{Code: StoreBootstrapErrorEnsureFailed, Backend: backend, Cause: err}
		}
		base = rowstore.NewGormStore(gormDB, log)
	case StoreBackendSheets:
		cfg, err := gsheets.ResolveConfigFromEnv()
		if err != nil {
			return nil, nil, &StoreBootstrapError{Code: StoreBootstrapErrorInvalidConfig, Backend: backend, Cause: err}
		}
		svc, err := gsheets.NewService(ctx, cfg)
		if err != nil {
			return nil, nil, &StoreBootstrapError{Code: StoreBootstrapErrorConnectFailed, Backend: backend, Cause: err}
		}
		base = rowstore.NewSheetsStore(svc, cfg.SpreadsheetID, log)
	default:
		return nil, nil, &StoreBootstrapError{
			Code:    StoreBootstrapErrorInvalidConfig,
			Backend: backend,
			Cause:   &ConfigError{Key: "STORE_BACKEND", Value: string(backend)},
		}
	}

	store := rowstore.Retrying(rowstore.ThrottledFromEnv(base), rowstore.RetryPolicyFromEnv(), log)
	if initer, ok := store.(rowstore.Initializer); ok {
		if err := initer.EnsureTables(ctx, rowstore.AllTables()...); err != nil {
			return nil, nil, &StoreBootstrapError{Code: StoreBootstrapErrorEnsureFailed, Backend: backend, Cause: err}
		}
	}
	log.Info("Row store ready", "backend", string(backend))
	return store, gormDB, nil
}

package app

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/surveybridge-backend/internal/data/db"
	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "excel")
	_, err := LoadConfig()
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Key != "STORE_BACKEND" {
		t.Fatalf("LoadConfig: want ConfigError got=%v", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("PORT", "")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StoreBackend != StoreBackendMemory || cfg.Port != "8080" {
		t.Fatalf("defaults: got=%+v", cfg)
	}
}

func TestOpenStoreMemory(t *testing.T) {
	store, gormDB, err := openStore(context.Background(), logger.Nop(), StoreBackendMemory)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	if gormDB != nil {
		t.Fatalf("memory backend: want nil gorm handle")
	}
	if err := store.AppendRow(context.Background(), rowstore.Courses, make([]string, len(rowstore.Courses.Columns))); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
}

func TestOpenStoreSQLite(t *testing.T) {
	prev := openSQLite
	t.Cleanup(func() { openSQLite = prev })
	openSQLite = func(*logger.Logger) (*gorm.DB, error) {
		return db.OpenSQLite("file::memory:?cache=shared")
	}

	store, gormDB, err := openStore(context.Background(), logger.Nop(), StoreBackendSQLite)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	if gormDB == nil {
		t.Fatalf("sqlite backend: want gorm handle")
	}
	rows, err := store.FindRows(context.Background(), rowstore.SurveyItems, rowstore.All)
	if err != nil || len(rows) != 0 {
		t.Fatalf("FindRows: want empty got=%d err=%v", len(rows), err)
	}
}

func TestOpenStoreConnectFailure(t *testing.T) {
	prev := openPostgres
	t.Cleanup(func() { openPostgres = prev })
	openPostgres = func(*logger.Logger) (*gorm.DB, error) { return nil, errors.New("connection refused") }

	_, _, err := openStore(context.Background(), logger.Nop(), StoreBackendPostgres)
	var be *StoreBootstrapError
	if !errors.As(err, &be) || be.Code != StoreBootstrapErrorConnectFailed {
		t.Fatalf("openStore: want connect_failed got=%v", err)
	}
}

func TestOpenStoreSheetsNeedsSpreadsheet(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "")
	_, _, err := openStore(context.Background(), logger.Nop(), StoreBackendSheets)
	var be *StoreBootstrapError
	if !errors.As(err, &be) || be.Code != StoreBootstrapErrorInvalidConfig {
		t.Fatalf("openStore: want invalid_config got=%v", err)
	}
}

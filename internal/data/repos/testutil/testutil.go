package testutil

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/surveybridge-backend/internal/data/db"
	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	pgOnce sync.Once
	pgDB   *gorm.DB
	pgErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// MemoryStore returns a fresh in-memory store with every survey table.
func MemoryStore(tb testing.TB) rowstore.Store {
	tb.Helper()
	s := rowstore.NewMemoryStore()
	if err := s.(rowstore.Initializer).EnsureTables(context.Background(), rowstore.AllTables()...); err != nil {
		tb.Fatalf("ensure tables: %v", err)
	}
	return s
}

// SQLiteStore returns a gorm store over a private in-memory SQLite database.
func SQLiteStore(tb testing.TB) rowstore.Store {
	tb.Helper()
	gdb, err := db.OpenSQLite(":memory:")
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	s := rowstore.NewGormStore(gdb, Logger(tb))
	if err := s.(rowstore.Initializer).EnsureTables(context.Background(), rowstore.AllTables()...); err != nil {
		tb.Fatalf("ensure tables: %v", err)
	}
	return s
}

// PostgresStore is skipped unless TEST_POSTGRES_DSN is set.
func PostgresStore(tb testing.TB) rowstore.Store {
	tb.Helper()

	pgOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			pgErr = errMissingDSN
			return
		}
		pgDB, pgErr = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if pgErr != nil {
			return
		}
		pgErr = db.AutoMigrateAll(pgDB)
	})

	if errors.Is(pgErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run row store integration tests")
	}
	if pgErr != nil {
		tb.Fatalf("failed to init test db: %v", pgErr)
	}
	tx := pgDB.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return rowstore.NewGormStore(tx, Logger(tb))
}

package testutil

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/gormsession/dbctx"
	"github.com/yungbote/gormsession/internal/platform/logger"
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.NewNop()
}

// SQLitePath returns a fresh database file path below the test's temp dir.
func SQLitePath(tb testing.TB) string {
	tb.Helper()
	return filepath.Join(tb.TempDir(), "test.db")
}

// SQLiteDSN returns a DSN for a fresh database file that waits on locks
// instead of failing immediately.
func SQLiteDSN(tb testing.TB) string {
	tb.Helper()
	return SQLitePath(tb) + "?_busy_timeout=5000&_foreign_keys=on"
}

// DB opens a migrated SQLite database private to the test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open(SQLiteDSN(tb)), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite pool: %v", err)
	}
	tb.Cleanup(func() { _ = sqlDB.Close() })
	if err := dbctx.Install(db); err != nil {
		tb.Fatalf("install dbctx plugin: %v", err)
	}
	if err := Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

// Context opens a dbctx.Context over db and closes it with the test.
func Context(tb testing.TB, db *gorm.DB, opts ...dbctx.Option) *dbctx.Context {
	tb.Helper()
	c, err := dbctx.New(db, opts...)
	if err != nil {
		tb.Fatalf("new context: %v", err)
	}
	tb.Cleanup(func() { _ = c.Close() })
	return c
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Contact{})
}

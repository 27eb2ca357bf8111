// Package sqlite registers GORM over SQLite with a dig container. It mirrors
// package postgres and is meant for embedded deployments and tests.
package sqlite

import (
	"strings"

	"go.uber.org/dig"
	litedriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/gormsession/config"
	"github.com/yungbote/gormsession/dbctx"
	"github.com/yungbote/gormsession/dberr"
	"github.com/yungbote/gormsession/di"
	"github.com/yungbote/gormsession/internal/platform/logger"
)

type openParams struct {
	dig.In

	Settings *config.DatabaseSettings
	Logger   *logger.Logger `optional:"true"`
}

// Register provides *config.DatabaseSettings, a *gorm.DB and a dbctx.Factory,
// the same way postgres.Register does.
func Register(c *dig.Container, opts ...Option) error {
	if c == nil {
		return dberr.NilArgument("sqlite.register", "container")
	}
	o := newOptions(opts)
	if err := c.Provide(func(cfg *config.Configuration) (*config.DatabaseSettings, error) {
		return config.DatabaseSettingsFromConfiguration(cfg, o.section)
	}); err != nil {
		return err
	}
	if err := c.Provide(func(p openParams) (*gorm.DB, error) {
		return Open(p.Settings, p.Logger, opts...)
	}); err != nil {
		return err
	}
	return di.AddContext(c, o.lifetime)
}

// Open opens a *gorm.DB with the session plugin installed. In-memory
// databases are limited to one connection so every context sees the same
// data.
func Open(settings *config.DatabaseSettings, log *logger.Logger, opts ...Option) (*gorm.DB, error) {
	const op = "sqlite.open"
	if settings == nil {
		return nil, dberr.NilArgument(op, "settings")
	}
	dsn := strings.TrimSpace(settings.ConnectionString)
	if dsn == "" {
		return nil, dberr.InvalidConfiguration(op, "connection string is empty")
	}
	o := newOptions(opts)

	gormCfg, err := di.EnableLoggingIfNecessary(&gorm.Config{}, log, settings.LoggingBehavior)
	if err != nil {
		return nil, err
	}
	for _, fn := range o.gorm {
		fn(gormCfg)
	}
	dialectorCfg := litedriver.Config{DSN: dsn}
	for _, fn := range o.dialector {
		fn(&dialectorCfg)
	}

	if log != nil {
		log.Debug("opening sqlite", "memory", inMemory(dsn), "logging_behavior", settings.LoggingBehavior.String())
	}
	db, err := gorm.Open(litedriver.New(dialectorCfg), gormCfg)
	if err != nil {
		return nil, err
	}
	if inMemory(dsn) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := dbctx.Install(db); err != nil {
		return nil, err
	}
	return db, nil
}

func inMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Package postgres registers GORM over PostgreSQL (pgx) with a dig container.
package postgres

import (
	"github.com/jackc/pgx/v5"
	"go.uber.org/dig"
	pgdriver "gorm.io/driver/postgres"
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

// Register provides, in order:
//   - *config.DatabaseSettings read from the *config.Configuration that must
//     already be in the container,
//   - a *gorm.DB opened from those settings,
//   - a dbctx.Factory with the configured lifetime.
//
// Everything is built lazily on first resolution.
func Register(c *dig.Container, opts ...Option) error {
	if c == nil {
		return dberr.NilArgument("postgres.register", "container")
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

// Open validates the connection string and opens a *gorm.DB with the session
// plugin installed. log may be nil while logging is off.
func Open(settings *config.DatabaseSettings, log *logger.Logger, opts ...Option) (*gorm.DB, error) {
	const op = "postgres.open"
	if settings == nil {
		return nil, dberr.NilArgument(op, "settings")
	}
	connCfg, err := pgx.ParseConfig(settings.ConnectionString)
	if err != nil {
		return nil, dberr.Wrap(dberr.CodeInvalidConfiguration, op, err)
	}
	o := newOptions(opts)

	gormCfg, err := di.EnableLoggingIfNecessary(&gorm.Config{}, log, settings.LoggingBehavior)
	if err != nil {
		return nil, err
	}
	for _, fn := range o.gorm {
		fn(gormCfg)
	}
	dialectorCfg := pgdriver.Config{DSN: settings.ConnectionString}
	for _, fn := range o.dialector {
		fn(&dialectorCfg)
	}

	if log != nil {
		log.Debug("opening postgres",
			"host", connCfg.Host,
			"port", connCfg.Port,
			"database", connCfg.Database,
			"logging_behavior", settings.LoggingBehavior.String(),
		)
	}
	db, err := gorm.Open(pgdriver.New(dialectorCfg), gormCfg)
	if err != nil {
		return nil, err
	}
	if err := dbctx.Install(db); err != nil {
		return nil, err
	}
	return db, nil
}

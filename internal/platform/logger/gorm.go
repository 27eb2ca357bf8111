package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// GormConfig controls how statements reach the zap logger.
type GormConfig struct {
	LogLevel                  gormLogger.LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
	// ParameterizedQueries keeps bind parameters out of logged SQL.
	ParameterizedQueries bool
}

// GormLogger adapts Logger to gorm.io/gorm/logger.Interface.
type GormLogger struct {
	log *Logger
	cfg GormConfig
}

var (
	_ gormLogger.Interface = (*GormLogger)(nil)
	_ gorm.ParamsFilter    = (*GormLogger)(nil)
)

func NewGormLogger(log *Logger, cfg GormConfig) *GormLogger {
	if log == nil {
		log = NewNop()
	}
	if cfg.LogLevel == 0 {
		cfg.LogLevel = gormLogger.Warn
	}
	return &GormLogger{log: log.With("component", "gorm"), cfg: cfg}
}

func (g *GormLogger) Config() GormConfig { return g.cfg }

func (g *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	cp := *g
	cp.cfg.LogLevel = level
	return &cp
}

func (g *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if g.cfg.LogLevel >= gormLogger.Info {
		g.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if g.cfg.LogLevel >= gormLogger.Warn {
		g.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if g.cfg.LogLevel >= gormLogger.Error {
		g.log.Error(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.cfg.LogLevel <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && g.cfg.LogLevel >= gormLogger.Error &&
		(!errors.Is(err, gormLogger.ErrRecordNotFound) || !g.cfg.IgnoreRecordNotFoundError):
		sql, rows := fc()
		g.log.Error("sql failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case g.cfg.SlowThreshold > 0 && elapsed > g.cfg.SlowThreshold && g.cfg.LogLevel >= gormLogger.Warn:
		sql, rows := fc()
		g.log.Warn("slow sql", "sql", sql, "rows", rows, "elapsed", elapsed, "threshold", g.cfg.SlowThreshold)
	case g.cfg.LogLevel >= gormLogger.Info:
		sql, rows := fc()
		g.log.Info("sql", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}

// ParamsFilter drops bind parameters unless sensitive data logging is on.
func (g *GormLogger) ParamsFilter(_ context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if g.cfg.ParameterizedQueries {
		return sql, nil
	}
	return sql, params
}

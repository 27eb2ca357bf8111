package di

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/gormsession/config"
	"github.com/yungbote/gormsession/dberr"
	"github.com/yungbote/gormsession/internal/platform/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// EnableLoggingIfNecessary configures cfg.Logger for behavior. LoggingOff
// silences GORM. Both enabled behaviors need log; LoggingEnabled keeps bind
// parameters out of the output and LoggingEnabledWithSensitiveData includes
// them.
func EnableLoggingIfNecessary(cfg *gorm.Config, log *logger.Logger, behavior config.LoggingBehavior) (*gorm.Config, error) {
	const op = "di.enable_logging"
	if cfg == nil {
		return nil, dberr.NilArgument(op, "cfg")
	}

	var parameterized bool
	switch behavior {
	case config.LoggingOff:
		cfg.Logger = gormLogger.Discard
		return cfg, nil
	case config.LoggingEnabled:
		parameterized = true
	case config.LoggingEnabledWithSensitiveData:
		parameterized = false
	default:
		return nil, dberr.InvalidConfiguration(op, fmt.Sprintf("unknown logging behavior %s", behavior))
	}

	if log == nil {
		return nil, dberr.InvalidConfiguration(op, fmt.Sprintf(
			"The logging behavior for GORM is set to %q, but there is no logger registered with the container.", behavior.String()))
	}
	cfg.Logger = logger.NewGormLogger(log, logger.GormConfig{
		LogLevel:                  gormLogger.Info,
		SlowThreshold:             slowQueryThreshold,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      parameterized,
	})
	return cfg, nil
}

package config

import (
	"fmt"
	"strings"

	"github.com/yungbote/gormsession/dberr"
	"github.com/yungbote/gormsession/internal/platform/envutil"
)

// DefaultSectionName is the section database settings are read from.
const DefaultSectionName = "database"

// DatabaseSettings holds what a driver registration needs to open the ORM.
type DatabaseSettings struct {
	ConnectionString string          `yaml:"connectionString"`
	LoggingBehavior  LoggingBehavior `yaml:"loggingBehavior"`
}

// DatabaseSettingsFromConfiguration reads section from cfg and applies the
// <SECTION>_CONNECTION_STRING and <SECTION>_LOGGING_BEHAVIOR environment
// overrides. An empty section name falls back to DefaultSectionName.
func DatabaseSettingsFromConfiguration(cfg *Configuration, section string) (*DatabaseSettings, error) {
	const op = "config.database_settings"
	if cfg == nil {
		return nil, dberr.NilArgument(op, "configuration")
	}
	section = strings.TrimSpace(section)
	if section == "" {
		section = DefaultSectionName
	}

	settings := &DatabaseSettings{}
	if _, err := cfg.Decode(section, settings); err != nil {
		return nil, err
	}

	prefix := envutil.Key(section)
	if v, ok := envutil.Lookup(prefix + "_CONNECTION_STRING"); ok {
		settings.ConnectionString = v
	}
	if v, ok := envutil.Lookup(prefix + "_LOGGING_BEHAVIOR"); ok {
		behavior, err := ParseLoggingBehavior(v)
		if err != nil {
			return nil, err
		}
		settings.LoggingBehavior = behavior
	}

	settings.ConnectionString = strings.TrimSpace(settings.ConnectionString)
	if settings.ConnectionString == "" {
		return nil, dberr.InvalidConfiguration(op, fmt.Sprintf("section %q has no connection string", section))
	}
	return settings, nil
}

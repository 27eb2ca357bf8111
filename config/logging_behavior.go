package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/gormsession/dberr"
)

// LoggingBehavior selects how much the ORM logs.
type LoggingBehavior int

const (
	// LoggingOff turns ORM logging off.
	LoggingOff LoggingBehavior = iota
	// LoggingEnabled logs statements without their parameter values.
	LoggingEnabled
	// LoggingEnabledWithSensitiveData logs statements including parameter values.
	LoggingEnabledWithSensitiveData
)

func (b LoggingBehavior) String() string {
	switch b {
	case LoggingOff:
		return "Off"
	case LoggingEnabled:
		return "Enabled"
	case LoggingEnabledWithSensitiveData:
		return "EnabledWithSensitiveData"
	default:
		return fmt.Sprintf("LoggingBehavior(%d)", int(b))
	}
}

// ParseLoggingBehavior accepts the behavior names (any case) or their numeric values.
func ParseLoggingBehavior(raw string) (LoggingBehavior, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "off", "0":
		return LoggingOff, nil
	case "enabled", "1":
		return LoggingEnabled, nil
	case "enabledwithsensitivedata", "enabled_with_sensitive_data", "2":
		return LoggingEnabledWithSensitiveData, nil
	default:
		return LoggingOff, dberr.InvalidConfiguration("config.logging_behavior", fmt.Sprintf("unknown logging behavior %q", raw))
	}
}

func (b *LoggingBehavior) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseLoggingBehavior(value.Value)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

func (b LoggingBehavior) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

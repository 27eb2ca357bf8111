package postgres

import (
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/gormsession/config"
	"github.com/yungbote/gormsession/di"
)

type options struct {
	section   string
	lifetime  di.Lifetime
	dialector []func(*pgdriver.Config)
	gorm      []func(*gorm.Config)
}

// Option customises Register and Open.
type Option func(*options)

// WithSectionName reads the settings from section instead of "database".
func WithSectionName(section string) Option {
	return func(o *options) { o.section = section }
}

// WithLifetime sets the context lifetime. Default Transient.
func WithLifetime(lifetime di.Lifetime) Option {
	return func(o *options) { o.lifetime = lifetime }
}

// WithDialectorConfig adjusts the driver configuration after the connection
// string has been applied.
func WithDialectorConfig(fn func(*pgdriver.Config)) Option {
	return func(o *options) {
		if fn != nil {
			o.dialector = append(o.dialector, fn)
		}
	}
}

// WithGormConfig adjusts the GORM configuration after logging has been set up.
func WithGormConfig(fn func(*gorm.Config)) Option {
	return func(o *options) {
		if fn != nil {
			o.gorm = append(o.gorm, fn)
		}
	}
}

func newOptions(opts []Option) options {
	o := options{section: config.DefaultSectionName, lifetime: di.Transient}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

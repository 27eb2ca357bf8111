package sqlite

import (
	litedriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/gormsession/config"
	"github.com/yungbote/gormsession/di"
)

type options struct {
	section   string
	lifetime  di.Lifetime
	dialector []func(*litedriver.Config)
	gorm      []func(*gorm.Config)
}

type Option func(*options)

func WithSectionName(section string) Option {
	return func(o *options) { o.section = section }
}

func WithLifetime(lifetime di.Lifetime) Option {
	return func(o *options) { o.lifetime = lifetime }
}

func WithDialectorConfig(fn func(*litedriver.Config)) Option {
	return func(o *options) {
		if fn != nil {
			o.dialector = append(o.dialector, fn)
		}
	}
}

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

package di

import (
	"errors"
	"io"

	"go.uber.org/dig"
	"gorm.io/gorm"

	"github.com/yungbote/gormsession/dbctx"
	"github.com/yungbote/gormsession/dberr"
)

type shutdownParams struct {
	dig.In

	DB      *gorm.DB      `optional:"true"`
	Factory dbctx.Factory `optional:"true"`
}

// Shutdown closes the singleton context, if any, and the connection pool
// behind the container's *gorm.DB.
func Shutdown(c *dig.Container) error {
	if c == nil {
		return dberr.NilArgument("di.shutdown", "container")
	}
	return c.Invoke(func(p shutdownParams) error {
		var errs []error
		if closer, ok := p.Factory.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
		if p.DB != nil {
			sqlDB, err := p.DB.DB()
			if err != nil {
				errs = append(errs, err)
			} else {
				errs = append(errs, sqlDB.Close())
			}
		}
		return errors.Join(errs...)
	})
}

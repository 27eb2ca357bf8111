package di

import (
	"context"

	"go.uber.org/dig"

	"github.com/yungbote/gormsession/dbctx"
	"github.com/yungbote/gormsession/dberr"
)

// Opener opens a session of type S.
type Opener[S any] func(ctx context.Context) (S, error)

// AddSession registers an Opener for S. Each call opens a context from the
// registered dbctx.Factory and passes it to newSession. When newSession fails
// a context opened just for it is closed again.
func AddSession[S any](c *dig.Container, newSession func(*dbctx.Context) (S, error)) error {
	const op = "di.add_session"
	if c == nil {
		return dberr.NilArgument(op, "container")
	}
	if newSession == nil {
		return dberr.NilArgument(op, "newSession")
	}
	return c.Provide(func(f dbctx.Factory) Opener[S] {
		return func(ctx context.Context) (S, error) {
			var zero S
			dc, err := f.Open(ctx)
			if err != nil {
				return zero, err
			}
			s, err := newSession(dc)
			if err != nil {
				if owned(f) {
					_ = dc.Close()
				}
				return zero, err
			}
			return s, nil
		}
	})
}

func owned(f dbctx.Factory) bool {
	lf, ok := f.(interface{ Lifetime() Lifetime })
	return !ok || lf.Lifetime() == Transient
}

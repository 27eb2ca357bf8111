package session

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/gormsession/dbctx"
	"github.com/yungbote/gormsession/dberr"
)

type readOnlyOptions struct {
	tracking bool
}

// ReadOnlyOption configures NewReadOnly.
type ReadOnlyOption func(*readOnlyOptions)

// WithQueryTracking keeps query tracking on for a read-only session. Loaded
// entities are then tracked even though they can never be saved.
func WithQueryTracking(enabled bool) ReadOnlyOption {
	return func(o *readOnlyOptions) { o.tracking = enabled }
}

// ReadOnly is a session over a context that never writes. Its modes live on
// the session, so a context shared with a ReadWrite session keeps working for
// both.
type ReadOnly struct {
	ctx      *dbctx.Context
	tracking bool
	readOnly bool
}

// NewReadOnly opens a session that does not track queries and whose handles
// reject writes. c itself is left as it is.
func NewReadOnly(c *dbctx.Context, opts ...ReadOnlyOption) (*ReadOnly, error) {
	if c == nil {
		return nil, dberr.NilArgument("session.new_read_only", "context")
	}
	var o readOnlyOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &ReadOnly{ctx: c, tracking: o.tracking, readOnly: true}, nil
}

// Context returns the underlying context. Its own modes are not the session's;
// use QueryTracking and DB for those.
func (s *ReadOnly) Context() *dbctx.Context { return s.ctx }

func (s *ReadOnly) QueryTracking() bool { return s.tracking }

// DB returns a query handle bound to ctx with the session's modes.
func (s *ReadOnly) DB(ctx context.Context) *gorm.DB {
	return s.ctx.DBWith(ctx, s.tracking, s.readOnly)
}

// Close closes the underlying context. Closing twice is a no-op.
func (s *ReadOnly) Close() error { return s.ctx.Close() }

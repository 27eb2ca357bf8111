package di

import (
	"context"
	"sync"

	"go.uber.org/dig"
	"gorm.io/gorm"

	"github.com/yungbote/gormsession/dbctx"
	"github.com/yungbote/gormsession/dberr"
	"github.com/yungbote/gormsession/internal/platform/logger"
)

var (
	errNoScope     = dberr.InvalidOperation("di.open", "a scoped context can only be opened inside di.WithScope")
	errScopeClosed = dberr.InvalidOperation("di.open", "the scope has already ended")
	errShutDown    = dberr.InvalidOperation("di.open", "the container has been shut down")
)

type contextParams struct {
	dig.In

	DB     *gorm.DB
	Logger *logger.Logger `optional:"true"`
}

// AddContext registers a dbctx.Factory with the given lifetime. The container
// must be able to provide a *gorm.DB; a *logger.Logger is used when present.
//
// Contexts from Scoped and Singleton factories are shared, so closing a
// session built on one closes it for every other holder.
func AddContext(c *dig.Container, lifetime Lifetime) error {
	const op = "di.add_context"
	if c == nil {
		return dberr.NilArgument(op, "container")
	}
	if !lifetime.valid() {
		return dberr.NewError(dberr.CodeInvalidArgument, op, "unknown lifetime "+lifetime.String(), nil)
	}
	return c.Provide(func(p contextParams) (dbctx.Factory, error) {
		return newFactory(p.DB, p.Logger, lifetime)
	})
}

// factory implements dbctx.Factory for every lifetime.
type factory struct {
	db       *gorm.DB
	log      *logger.Logger
	lifetime Lifetime

	connect func() (*dbctx.Context, error)

	mu     sync.Mutex
	shared *dbctx.Context
	closed bool
}

func newFactory(db *gorm.DB, log *logger.Logger, lifetime Lifetime) (*factory, error) {
	if db == nil {
		return nil, dberr.NilArgument("di.new_factory", "db")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if err := dbctx.Install(db); err != nil {
		return nil, err
	}
	f := &factory{db: db, log: log.With("lifetime", lifetime.String()), lifetime: lifetime}
	f.connect = f.newContext
	return f, nil
}

func (f *factory) Lifetime() Lifetime { return f.lifetime }

func (f *factory) Open(ctx context.Context) (*dbctx.Context, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	switch f.lifetime {
	case Singleton:
		return f.singleton()
	case Scoped:
		s := scopeFrom(ctx)
		if s == nil {
			return nil, errNoScope
		}
		return s.open(f)
	default:
		return f.connect()
	}
}

// singleton returns the shared context, creating it on first use. A failed
// attempt is not remembered; the next Open tries again.
func (f *factory) singleton() (*dbctx.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, errShutDown
	}
	if f.shared != nil {
		return f.shared, nil
	}
	c, err := f.connect()
	if err != nil {
		f.log.Warn("singleton db context failed to open", "error", err)
		return nil, err
	}
	f.shared = c
	return c, nil
}

func (f *factory) newContext() (*dbctx.Context, error) {
	return dbctx.New(f.db, dbctx.WithLogger(f.log))
}

// Close closes the singleton context, if one was opened. Later opens fail.
func (f *factory) Close() error {
	if f.lifetime != Singleton {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.shared == nil {
		return nil
	}
	return f.shared.Close()
}

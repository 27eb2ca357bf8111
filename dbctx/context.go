// Package dbctx provides the unit of work the sessions are built on: one
// Context owns a change set and at most one transaction on top of a shared
// *gorm.DB, and releases both when it is closed.
//
// A Context is meant for a single caller and is not safe for concurrent use.
package dbctx

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/gormsession/dberr"
	"github.com/yungbote/gormsession/internal/observability"
	"github.com/yungbote/gormsession/internal/platform/logger"
)

// Factory opens contexts. Implementations decide whether a call yields a
// fresh Context or a shared one.
type Factory interface {
	Open(ctx context.Context) (*Context, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context) (*Context, error)

func (f FactoryFunc) Open(ctx context.Context) (*Context, error) { return f(ctx) }

type Option func(*Context)

// WithLogger sets the logger used for lifecycle debug output.
func WithLogger(log *logger.Logger) Option {
	return func(c *Context) {
		if log != nil {
			c.log = log
		}
	}
}

// WithQueryTracking controls whether query results are tracked. Default on.
func WithQueryTracking(enabled bool) Option {
	return func(c *Context) { c.tracking = enabled }
}

// WithReadOnly rejects every write issued through the context. Default off.
func WithReadOnly(readOnly bool) Option {
	return func(c *Context) { c.readOnly = readOnly }
}

// Context is one unit of work over a *gorm.DB.
type Context struct {
	id       uuid.UUID
	db       *gorm.DB
	log      *logger.Logger
	tracker  *ChangeTracker
	tracking bool
	readOnly bool
	tx       *Transaction
	closed   bool
}

// New creates a Context over db. The connection pool behind db stays owned by
// the caller; closing the Context never closes it.
func New(db *gorm.DB, opts ...Option) (*Context, error) {
	if db == nil {
		return nil, dberr.NilArgument("dbctx.new", "db")
	}
	if err := Install(db); err != nil {
		return nil, err
	}
	c := &Context{
		id:       uuid.New(),
		db:       db,
		log:      logger.NewNop(),
		tracker:  newChangeTracker(db),
		tracking: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.log = c.log.With("context_id", c.id.String())
	c.log.Debug("db context opened", "tracking", c.tracking, "read_only", c.readOnly)
	return c, nil
}

func (c *Context) ID() uuid.UUID { return c.id }

// DB returns a handle bound to ctx and to the active transaction, if any.
// Rows loaded through it are tracked while query tracking is on. On a closed
// context the handle carries ErrClosed.
func (c *Context) DB(ctx context.Context) *gorm.DB {
	return c.DBWith(ctx, c.tracking, c.readOnly)
}

// DBWith is DB with the caller's own tracking and read-only modes instead of
// the context's. Several sessions sharing one Context each use it so that
// none of them changes what the others see. A read-only Context stays
// read-only whatever readOnly says.
func (c *Context) DBWith(ctx context.Context, tracking, readOnly bool) *gorm.DB {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.closed {
		tx := c.db.Session(&gorm.Session{NewDB: true, Context: ctx})
		_ = tx.AddError(ErrClosed)
		return tx
	}
	var t *ChangeTracker
	if tracking {
		t = c.tracker
	}
	base := c.db
	if c.tx != nil {
		base = c.tx.tx
	}
	return base.WithContext(withMarkers(ctx, t, readOnly || c.readOnly))
}

func (c *Context) QueryTracking() bool { return c.tracking }

func (c *Context) SetQueryTracking(enabled bool) { c.tracking = enabled }

func (c *Context) ReadOnly() bool { return c.readOnly }

func (c *Context) SetReadOnly(readOnly bool) { c.readOnly = readOnly }

func (c *Context) checkWritable() error {
	if c.closed {
		return ErrClosed
	}
	if c.readOnly {
		return ErrReadOnly
	}
	return nil
}

// Add stages entity for insertion.
func (c *Context) Add(entity interface{}) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	return c.tracker.add(entity)
}

// Update stages entity for a full update. Untracked entities without a
// primary key are inserted, following gorm's Save.
func (c *Context) Update(entity interface{}) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	return c.tracker.update(entity)
}

// Remove stages entity for deletion. Removing an entity that was only added
// simply forgets it.
func (c *Context) Remove(entity interface{}) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	return c.tracker.remove(entity)
}

// Attach starts tracking entity as unchanged.
func (c *Context) Attach(ctx context.Context, entity interface{}) error {
	if c.closed {
		return ErrClosed
	}
	return c.tracker.attach(orBackground(ctx), entity)
}

// DetectChanges marks tracked entities whose fields differ from their
// snapshot as modified. Entries, HasChanges and SaveChanges call it.
func (c *Context) DetectChanges(ctx context.Context) {
	c.tracker.DetectChanges(orBackground(ctx))
}

func (c *Context) Entries(ctx context.Context) []Entry {
	return c.tracker.Entries(orBackground(ctx))
}

func (c *Context) HasChanges(ctx context.Context) bool {
	return c.tracker.HasChanges(orBackground(ctx))
}

// SaveChanges writes the pending change set and returns the affected row
// count. Without an active transaction the writes run in their own
// transaction; with one they join it and nothing is committed here.
func (c *Context) SaveChanges(ctx context.Context) (int64, error) {
	if err := c.checkWritable(); err != nil {
		return 0, err
	}
	ctx = orBackground(ctx)
	ctx, span := observability.StartSpan(ctx, "dbctx.save_changes", trace.WithAttributes(
		attribute.String("db.context_id", c.id.String()),
		attribute.Bool("db.in_transaction", c.tx != nil),
	))

	writeCtx := withMarkers(ctx, nil, false)
	var rows int64
	var err error
	if c.tx != nil {
		rows, err = c.tracker.flush(writeCtx, c.tx.tx.WithContext(writeCtx))
	} else {
		err = c.db.WithContext(writeCtx).Transaction(func(tx *gorm.DB) error {
			var flushErr error
			rows, flushErr = c.tracker.flush(writeCtx, tx)
			return flushErr
		})
	}
	if err != nil {
		c.log.Debug("save changes failed", "error", err)
		observability.EndSpan(span, err)
		return 0, err
	}
	c.tracker.acceptChanges(writeCtx)
	span.SetAttributes(attribute.Int64("db.rows_affected", rows))
	observability.EndSpan(span, nil)
	c.log.Debug("changes saved", "rows", rows)
	return rows, nil
}

// BeginTransaction starts a transaction that every later statement and
// SaveChanges call of this context joins until it is committed, rolled back
// or closed. The transaction lives as long as ctx does.
func (c *Context) BeginTransaction(ctx context.Context, opts ...*sql.TxOptions) (*Transaction, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.tx != nil {
		return nil, ErrTransactionActive
	}
	ctx = orBackground(ctx)
	ctx, span := observability.StartSpan(ctx, "dbctx.begin_transaction",
		trace.WithAttributes(attribute.String("db.context_id", c.id.String())))
	tx := c.db.WithContext(ctx).Begin(opts...)
	if tx.Error != nil {
		observability.EndSpan(span, tx.Error)
		return nil, tx.Error
	}
	observability.EndSpan(span, nil)
	c.tx = &Transaction{owner: c, tx: tx, state: txActive}
	c.log.Debug("transaction started")
	return c.tx, nil
}

// CurrentTransaction returns the active transaction or nil.
func (c *Context) CurrentTransaction() *Transaction { return c.tx }

// Close rolls back the active transaction, drops pending changes and makes
// every later call fail with ErrClosed. Closing twice is a no-op.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	var err error
	if c.tx != nil {
		err = c.tx.Close()
	}
	c.tracker.clear()
	c.closed = true
	c.log.Debug("db context closed")
	return err
}

func (c *Context) Closed() bool { return c.closed }

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func ignoreTxDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

package dbctx

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/gormsession/dberr"
	"github.com/yungbote/gormsession/internal/observability"
)

type txState int

const (
	txActive txState = iota
	txCommitted
	txRolledBack
)

// Transaction is a transaction begun on a Context. Committing it persists only
// what was already written through the context; staged changes still need
// SaveChanges first.
type Transaction struct {
	owner *Context
	tx    *gorm.DB
	state txState
}

// Commit commits the transaction. A cancelled ctx leaves it active so Close
// can still roll it back.
func (t *Transaction) Commit(ctx context.Context) error {
	if t == nil {
		return dberr.NilArgument("dbctx.commit", "transaction")
	}
	if t.state != txActive {
		return ErrTransactionDone
	}
	ctx = orBackground(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	_, span := observability.StartSpan(ctx, "dbctx.commit",
		trace.WithAttributes(attribute.String("db.context_id", t.owner.id.String())))
	err := t.tx.Commit().Error
	// database/sql finalises the transaction whether or not COMMIT succeeded.
	if err != nil {
		t.finish(txRolledBack)
	} else {
		t.finish(txCommitted)
	}
	observability.EndSpan(span, err)
	t.owner.log.Debug("transaction committed", "error", err)
	return err
}

// Rollback rolls the transaction back.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t == nil {
		return dberr.NilArgument("dbctx.rollback", "transaction")
	}
	if t.state != txActive {
		return ErrTransactionDone
	}
	_, span := observability.StartSpan(orBackground(ctx), "dbctx.rollback",
		trace.WithAttributes(attribute.String("db.context_id", t.owner.id.String())))
	err := ignoreTxDone(t.tx.Rollback().Error)
	t.finish(txRolledBack)
	observability.EndSpan(span, err)
	t.owner.log.Debug("transaction rolled back", "error", err)
	return err
}

// Close rolls the transaction back unless it was committed or rolled back
// already.
func (t *Transaction) Close() error {
	if t == nil || t.state != txActive {
		return nil
	}
	return t.Rollback(context.Background())
}

// Done reports whether the transaction was committed or rolled back.
func (t *Transaction) Done() bool { return t.state != txActive }

// Committed reports whether Commit succeeded.
func (t *Transaction) Committed() bool { return t.state == txCommitted }

func (t *Transaction) finish(state txState) {
	t.state = state
	if t.owner.tx == t {
		t.owner.tx = nil
	}
}

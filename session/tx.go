package session

import (
	"context"

	"github.com/yungbote/gormsession/dbctx"
	"github.com/yungbote/gormsession/dberr"
)

// Tx adapts a dbctx.Transaction to Transaction.
type Tx struct {
	tx *dbctx.Transaction
}

func NewTx(tx *dbctx.Transaction) (*Tx, error) {
	if tx == nil {
		return nil, dberr.NilArgument("session.new_tx", "transaction")
	}
	return &Tx{tx: tx}, nil
}

func (t *Tx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

// Close rolls back unless the transaction was committed.
func (t *Tx) Close() error { return t.tx.Close() }

package session

import (
	"context"
	"errors"

	"github.com/yungbote/gormsession/dberr"
)

// InTx runs fn inside a transaction of s, then saves pending changes and
// commits. The transaction is always closed, so any failure rolls it back.
func InTx(ctx context.Context, s TransactionalSession, fn func(ctx context.Context) error) (err error) {
	if fn == nil {
		return nil
	}
	if s == nil {
		return dberr.NilArgument("session.in_tx", "session")
	}
	tx, err := s.BeginTransaction(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := tx.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err = fn(ctx); err != nil {
		return err
	}
	if err = s.SaveChanges(ctx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

package session

import (
	"context"

	"github.com/yungbote/gormsession/dbctx"
	"github.com/yungbote/gormsession/dberr"
)

// Transactional is a ReadWrite session that can begin transactions. It does
// not keep track of the transactions it hands out; callers close them.
type Transactional struct {
	*ReadWrite
}

func NewTransactional(c *dbctx.Context) (*Transactional, error) {
	if c == nil {
		return nil, dberr.NilArgument("session.new_transactional", "context")
	}
	rw, err := NewReadWrite(c)
	if err != nil {
		return nil, err
	}
	return &Transactional{ReadWrite: rw}, nil
}

// BeginTransaction begins a transaction. It fails while another one is still
// active. Commit does not call SaveChanges.
func (s *Transactional) BeginTransaction(ctx context.Context) (Transaction, error) {
	tx, err := s.ctx.BeginTransaction(ctx)
	if err != nil {
		return nil, err
	}
	return NewTx(tx)
}

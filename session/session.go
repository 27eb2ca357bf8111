// Package session provides the session types applications build their data
// access on. A session wraps exactly one dbctx.Context and closes it when the
// session is closed.
//
//   - ReadOnly disables change tracking and rejects writes; it can only be
//     closed.
//   - ReadWrite tracks changes and writes them only when SaveChanges is called.
//     Closing it without saving discards them.
//   - Transactional additionally begins transactions. Committing one does not
//     save tracked changes, so SaveChanges must be called before Commit.
//     Closing an uncommitted transaction rolls it back.
//
// Application sessions embed one of the three types and add their own query
// methods on top of DB.
package session

import "context"

// ReadOnlySession is a session that only reads.
type ReadOnlySession interface {
	Close() error
}

// Session is a session that writes tracked changes on SaveChanges.
type Session interface {
	ReadOnlySession
	SaveChanges(ctx context.Context) error
}

// TransactionalSession is a session that can begin transactions. Only one
// transaction may be active at a time.
type TransactionalSession interface {
	Session
	BeginTransaction(ctx context.Context) (Transaction, error)
}

// Transaction is a transaction begun by a TransactionalSession. Close rolls
// it back unless Commit succeeded.
type Transaction interface {
	Commit(ctx context.Context) error
	Close() error
}

var (
	_ ReadOnlySession      = (*ReadOnly)(nil)
	_ Session              = (*ReadWrite)(nil)
	_ TransactionalSession = (*Transactional)(nil)
	_ Transaction          = (*Tx)(nil)
)

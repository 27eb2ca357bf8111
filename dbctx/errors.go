package dbctx

import "github.com/yungbote/gormsession/dberr"

var (
	// ErrClosed is returned by every operation on a closed Context.
	ErrClosed = dberr.InvalidOperation("dbctx", "context is closed")
	// ErrReadOnly is returned when a write reaches a read-only Context.
	ErrReadOnly = dberr.InvalidOperation("dbctx", "context is read-only")
	// ErrTransactionActive is returned when a transaction is begun while another one is active.
	ErrTransactionActive = dberr.InvalidOperation("dbctx", "a transaction is already active; nested transactions are not supported")
	// ErrTransactionDone is returned when a finished transaction is committed or rolled back again.
	ErrTransactionDone = dberr.InvalidOperation("dbctx", "transaction has already been committed or rolled back")
)

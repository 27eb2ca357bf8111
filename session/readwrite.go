package session

import (
	"context"

	"github.com/yungbote/gormsession/dbctx"
	"github.com/yungbote/gormsession/dberr"
)

// ReadWrite is a session whose tracked changes are written on SaveChanges.
type ReadWrite struct {
	*ReadOnly
}

// NewReadWrite opens a session that tracks queries. Writes are rejected only
// when c itself was created read-only.
func NewReadWrite(c *dbctx.Context) (*ReadWrite, error) {
	if c == nil {
		return nil, dberr.NilArgument("session.new_read_write", "context")
	}
	return &ReadWrite{ReadOnly: &ReadOnly{ctx: c, tracking: true}}, nil
}

// Add stages entity for insertion.
func (s *ReadWrite) Add(entity interface{}) error { return s.ctx.Add(entity) }

// Update stages entity for a full update.
func (s *ReadWrite) Update(entity interface{}) error { return s.ctx.Update(entity) }

// Remove stages entity for deletion.
func (s *ReadWrite) Remove(entity interface{}) error { return s.ctx.Remove(entity) }

// Attach tracks an entity loaded elsewhere as unchanged.
func (s *ReadWrite) Attach(ctx context.Context, entity interface{}) error {
	return s.ctx.Attach(ctx, entity)
}

// SaveChanges writes every pending change.
func (s *ReadWrite) SaveChanges(ctx context.Context) error {
	_, err := s.ctx.SaveChanges(ctx)
	return err
}

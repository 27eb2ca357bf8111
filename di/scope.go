package di

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/gormsession/dbctx"
)

type scopeKey struct{}

type scope struct {
	mu       sync.Mutex
	contexts map[*factory]*dbctx.Context
	closed   bool
}

// WithScope returns a context carrying a new scope for Scoped factories and
// the function that ends it. Ending the scope closes every context opened in
// it; calling it again is a no-op.
func WithScope(ctx context.Context) (context.Context, func() error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &scope{contexts: make(map[*factory]*dbctx.Context)}
	return context.WithValue(ctx, scopeKey{}, s), s.close
}

func scopeFrom(ctx context.Context) *scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeKey{}).(*scope)
	return s
}

func (s *scope) open(f *factory) (*dbctx.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errScopeClosed
	}
	if c, ok := s.contexts[f]; ok {
		return c, nil
	}
	c, err := f.connect()
	if err != nil {
		return nil, err
	}
	s.contexts[f] = c
	return c, nil
}

func (s *scope) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for _, c := range s.contexts {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.contexts = nil
	return errors.Join(errs...)
}

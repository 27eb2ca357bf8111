package di_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"
	"gorm.io/gorm"

	"github.com/yungbote/gormsession/dbctx"
	"github.com/yungbote/gormsession/dberr"
	"github.com/yungbote/gormsession/di"
	"github.com/yungbote/gormsession/internal/testutil"
	"github.com/yungbote/gormsession/session"
)

func newContainer(t *testing.T, lifetime di.Lifetime) (*dig.Container, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	c := dig.New()
	require.NoError(t, c.Provide(func() *gorm.DB { return db }))
	require.NoError(t, di.AddContext(c, lifetime))
	return c, db
}

func openFactory(t *testing.T, c *dig.Container) dbctx.Factory {
	t.Helper()
	var f dbctx.Factory
	require.NoError(t, c.Invoke(func(got dbctx.Factory) { f = got }))
	return f
}

func TestParseLifetime(t *testing.T) {
	cases := map[string]di.Lifetime{
		"":            di.Transient,
		"Transient":   di.Transient,
		"scoped":      di.Scoped,
		" SINGLETON ": di.Singleton,
	}
	for raw, want := range cases {
		got, err := di.ParseLifetime(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := di.ParseLifetime("forever")
	assert.True(t, errors.Is(err, dberr.ErrInvalidConfiguration))
}

func TestAddContextArguments(t *testing.T) {
	assert.True(t, errors.Is(di.AddContext(nil, di.Transient), dberr.ErrInvalidArgument))
	assert.True(t, errors.Is(di.AddContext(dig.New(), di.Lifetime(9)), dberr.ErrInvalidArgument))
	assert.True(t, errors.Is(di.AddSession[*session.ReadOnly](nil, func(c *dbctx.Context) (*session.ReadOnly, error) {
		return session.NewReadOnly(c)
	}), dberr.ErrInvalidArgument))
	assert.True(t, errors.Is(di.AddSession[*session.ReadOnly](dig.New(), nil), dberr.ErrInvalidArgument))
}

func TestTransientOpensFreshContexts(t *testing.T) {
	c, _ := newContainer(t, di.Transient)
	f := openFactory(t, c)

	a, err := f.Open(context.Background())
	require.NoError(t, err)
	defer a.Close()
	b, err := f.Open(context.Background())
	require.NoError(t, err)
	defer b.Close()

	assert.NotSame(t, a, b)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestSingletonSharesOneContext(t *testing.T) {
	c, _ := newContainer(t, di.Singleton)
	f := openFactory(t, c)

	a, err := f.Open(context.Background())
	require.NoError(t, err)
	b, err := f.Open(context.Background())
	require.NoError(t, err)
	assert.Same(t, a, b)

	require.NoError(t, di.Shutdown(c))
	assert.True(t, a.Closed())
}

func TestScopedContextsFollowScopes(t *testing.T) {
	c, _ := newContainer(t, di.Scoped)
	f := openFactory(t, c)

	_, err := f.Open(context.Background())
	assert.True(t, errors.Is(err, dberr.ErrInvalidOperation))

	first, end := di.WithScope(context.Background())
	a, err := f.Open(first)
	require.NoError(t, err)
	b, err := f.Open(first)
	require.NoError(t, err)
	assert.Same(t, a, b)

	second, endSecond := di.WithScope(context.Background())
	defer endSecond()
	other, err := f.Open(second)
	require.NoError(t, err)
	assert.NotSame(t, a, other)

	require.NoError(t, end())
	require.NoError(t, end())
	assert.True(t, a.Closed())
	assert.False(t, other.Closed())

	_, err = f.Open(first)
	assert.True(t, errors.Is(err, dberr.ErrInvalidOperation))
}

func TestOpenHonoursCancelledContext(t *testing.T) {
	c, _ := newContainer(t, di.Transient)
	f := openFactory(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Open(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSessionsResolveThroughContainer(t *testing.T) {
	ctx := context.Background()
	c, db := newContainer(t, di.Transient)
	testutil.SeedContacts(t, ctx, db, "John Doe", "Margaret Johnson")

	require.NoError(t, di.AddSession(c, func(dc *dbctx.Context) (*session.ReadWrite, error) {
		return session.NewReadWrite(dc)
	}))
	require.NoError(t, di.AddSession(c, func(dc *dbctx.Context) (*session.ReadOnly, error) {
		return session.NewReadOnly(dc)
	}))

	var openWriter di.Opener[*session.ReadWrite]
	var openReader di.Opener[*session.ReadOnly]
	require.NoError(t, c.Invoke(func(w di.Opener[*session.ReadWrite], r di.Opener[*session.ReadOnly]) {
		openWriter, openReader = w, r
	}))

	w, err := openWriter(ctx)
	require.NoError(t, err)
	var john testutil.Contact
	require.NoError(t, w.DB(ctx).Order("id").First(&john).Error)
	john.Name = "John Johnson"
	require.NoError(t, w.Add(testutil.NewContact("Emil Johnson")))
	require.NoError(t, w.SaveChanges(ctx))
	require.NoError(t, w.Close())

	r, err := openReader(ctx)
	require.NoError(t, err)
	defer r.Close()
	assert.NotEqual(t, w.Context().ID(), r.Context().ID())

	var names []string
	require.NoError(t, r.DB(ctx).Model(&testutil.Contact{}).Order("id").Pluck("name", &names).Error)
	assert.Equal(t, []string{"John Johnson", "Margaret Johnson", "Emil Johnson"}, names)
}

func TestScopedSessionsKeepTheirOwnModes(t *testing.T) {
	for _, readerFirst := range []bool{false, true} {
		ctx := context.Background()
		c, db := newContainer(t, di.Scoped)
		require.NoError(t, di.AddSession(c, func(dc *dbctx.Context) (*session.ReadWrite, error) {
			return session.NewReadWrite(dc)
		}))
		require.NoError(t, di.AddSession(c, func(dc *dbctx.Context) (*session.ReadOnly, error) {
			return session.NewReadOnly(dc)
		}))

		scoped, end := di.WithScope(ctx)
		var w *session.ReadWrite
		var r *session.ReadOnly
		require.NoError(t, c.Invoke(func(openWriter di.Opener[*session.ReadWrite], openReader di.Opener[*session.ReadOnly]) {
			var err error
			if readerFirst {
				r, err = openReader(scoped)
				require.NoError(t, err)
			}
			w, err = openWriter(scoped)
			require.NoError(t, err)
			if !readerFirst {
				r, err = openReader(scoped)
				require.NoError(t, err)
			}
		}))
		assert.Same(t, w.Context(), r.Context())

		require.NoError(t, w.Add(testutil.NewContact("Emil Johnson")))
		require.NoError(t, w.SaveChanges(scoped))

		err := r.DB(scoped).Create(testutil.NewContact("sneaky")).Error
		assert.True(t, errors.Is(err, dbctx.ErrReadOnly), "reader first=%v", readerFirst)
		assert.False(t, r.QueryTracking())
		assert.True(t, w.QueryTracking())
		assert.Equal(t, []string{"Emil Johnson"}, testutil.ContactNames(t, ctx, db))

		require.NoError(t, end())
		assert.True(t, w.Context().Closed())
	}
}

func TestFailingSessionConstructorClosesContext(t *testing.T) {
	c, _ := newContainer(t, di.Transient)
	boom := errors.New("boom")
	var opened *dbctx.Context
	require.NoError(t, di.AddSession(c, func(dc *dbctx.Context) (*session.ReadOnly, error) {
		opened = dc
		return nil, boom
	}))

	require.NoError(t, c.Invoke(func(open di.Opener[*session.ReadOnly]) {
		_, err := open(context.Background())
		assert.ErrorIs(t, err, boom)
	}))
	require.NotNil(t, opened)
	assert.True(t, opened.Closed())
}

func TestShutdownClosesPool(t *testing.T) {
	c, db := newContainer(t, di.Transient)
	require.NoError(t, di.Shutdown(c))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
	assert.True(t, errors.Is(di.Shutdown(nil), dberr.ErrInvalidArgument))
}

package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/gormsession/dbctx"
	"github.com/yungbote/gormsession/dberr"
	"github.com/yungbote/gormsession/internal/testutil"
	"github.com/yungbote/gormsession/session"
)

func TestConstructorsRejectNil(t *testing.T) {
	_, err := session.NewReadOnly(nil)
	assert.True(t, errors.Is(err, dberr.ErrInvalidArgument))
	_, err = session.NewReadWrite(nil)
	assert.True(t, errors.Is(err, dberr.ErrInvalidArgument))
	_, err = session.NewTransactional(nil)
	assert.True(t, errors.Is(err, dberr.ErrInvalidArgument))
	_, err = session.NewTx(nil)
	assert.True(t, errors.Is(err, dberr.ErrInvalidArgument))
}

func TestLoadDataViaReadOnlySession(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	testutil.SeedContacts(t, ctx, db, "John Doe", "Margaret Johnson")

	s, err := session.NewReadOnly(testutil.Context(t, db))
	require.NoError(t, err)
	defer s.Close()

	var contacts []testutil.Contact
	require.NoError(t, s.DB(ctx).Order("id").Find(&contacts).Error)
	require.Len(t, contacts, 2)
	assert.Equal(t, "John Doe", contacts[0].Name)
	assert.Equal(t, "Margaret Johnson", contacts[1].Name)

	assert.False(t, s.QueryTracking())
	assert.Empty(t, s.Context().Entries(ctx))
}

func TestReadOnlySessionRejectsWrites(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)

	s, err := session.NewReadOnly(testutil.Context(t, db))
	require.NoError(t, err)
	defer s.Close()

	err = s.DB(ctx).Create(testutil.NewContact("sneaky")).Error
	assert.True(t, errors.Is(err, dbctx.ErrReadOnly))
	assert.Empty(t, testutil.ContactNames(t, ctx, db))
}

func TestSessionsSharingOneContextKeepTheirModes(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	testutil.SeedContacts(t, ctx, db, "John Doe")
	c := testutil.Context(t, db)

	w, err := session.NewReadWrite(c)
	require.NoError(t, err)
	r, err := session.NewReadOnly(c)
	require.NoError(t, err)

	assert.True(t, w.QueryTracking())
	assert.False(t, r.QueryTracking())
	assert.True(t, c.QueryTracking())
	assert.False(t, c.ReadOnly())

	err = r.DB(ctx).Create(testutil.NewContact("sneaky")).Error
	assert.True(t, errors.Is(err, dbctx.ErrReadOnly))

	require.NoError(t, w.Add(testutil.NewContact("Emil Johnson")))
	require.NoError(t, w.SaveChanges(ctx))
	assert.Equal(t, []string{"John Doe", "Emil Johnson"}, testutil.ContactNames(t, ctx, db))
	require.Len(t, c.Entries(ctx), 1)

	var loaded []testutil.Contact
	require.NoError(t, r.DB(ctx).Find(&loaded).Error)
	assert.Len(t, loaded, 2)
	assert.Len(t, c.Entries(ctx), 1, "read-only queries must not be tracked")
}

func TestReadOnlySessionCanKeepTracking(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	testutil.SeedContacts(t, ctx, db, "John Doe")

	s, err := session.NewReadOnly(testutil.Context(t, db), session.WithQueryTracking(true))
	require.NoError(t, err)
	defer s.Close()

	var john testutil.Contact
	require.NoError(t, s.DB(ctx).First(&john).Error)
	assert.Len(t, s.Context().Entries(ctx), 1)
}

func TestInsertAndUpdateData(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	seeded := testutil.SeedContacts(t, ctx, db, "John Doe", "Margaret Johnson")

	s, err := session.NewReadWrite(testutil.Context(t, db))
	require.NoError(t, err)

	var john testutil.Contact
	require.NoError(t, s.DB(ctx).First(&john, seeded[0].ID).Error)
	john.Name = "John Johnson"
	require.NoError(t, s.Add(testutil.NewContact("Emil Johnson")))
	require.NoError(t, s.SaveChanges(ctx))
	require.NoError(t, s.Close())

	r, err := session.NewReadOnly(testutil.Context(t, db))
	require.NoError(t, err)
	defer r.Close()
	var names []string
	require.NoError(t, r.DB(ctx).Model(&testutil.Contact{}).Order("id").Pluck("name", &names).Error)
	assert.Equal(t, []string{"John Johnson", "Margaret Johnson", "Emil Johnson"}, names)
}

func TestClosingWithoutSaveDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	testutil.SeedContacts(t, ctx, db, "John Doe")

	s, err := session.NewReadWrite(testutil.Context(t, db))
	require.NoError(t, err)

	var john testutil.Contact
	require.NoError(t, s.DB(ctx).First(&john).Error)
	john.Name = "John Johnson"
	require.NoError(t, s.Add(testutil.NewContact("Emil Johnson")))
	require.NoError(t, s.Close())

	assert.Equal(t, []string{"John Doe"}, testutil.ContactNames(t, ctx, db))
	assert.True(t, errors.Is(s.SaveChanges(ctx), dbctx.ErrClosed))
}

func TestUpdateAndRemoveThroughSession(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	seeded := testutil.SeedContacts(t, ctx, db, "John Doe", "Margaret Johnson")

	s, err := session.NewReadWrite(testutil.Context(t, db))
	require.NoError(t, err)
	defer s.Close()

	detached := &testutil.Contact{ID: seeded[0].ID}
	require.NoError(t, db.First(detached).Error)
	require.NoError(t, s.Attach(ctx, detached))
	detached.Name = "Johnny"
	require.NoError(t, s.Remove(seeded[1]))
	require.NoError(t, s.SaveChanges(ctx))

	assert.Equal(t, []string{"Johnny"}, testutil.ContactNames(t, ctx, db))

	detached.Name = "John"
	require.NoError(t, s.Update(detached))
	require.NoError(t, s.SaveChanges(ctx))
	assert.Equal(t, []string{"John"}, testutil.ContactNames(t, ctx, db))
}

func TestCommitDoesNotSaveChanges(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)

	s, err := session.NewTransactional(testutil.Context(t, db))
	require.NoError(t, err)
	defer s.Close()

	tx, err := s.BeginTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Add(testutil.NewContact("John Doe")))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Close())

	assert.Empty(t, testutil.ContactNames(t, ctx, db))
}

func TestSaveChangesThenCommitPersists(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)

	s, err := session.NewTransactional(testutil.Context(t, db))
	require.NoError(t, err)
	defer s.Close()

	tx, err := s.BeginTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Add(testutil.NewContact("John Doe")))
	require.NoError(t, s.SaveChanges(ctx))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Close())

	tx, err = s.BeginTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Add(testutil.NewContact("Margaret Johnson")))
	require.NoError(t, s.SaveChanges(ctx))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Close())

	assert.Equal(t, []string{"John Doe", "Margaret Johnson"}, testutil.ContactNames(t, ctx, db))
}

func TestClosingUncommittedTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)

	s, err := session.NewTransactional(testutil.Context(t, db))
	require.NoError(t, err)
	defer s.Close()

	tx, err := s.BeginTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Add(testutil.NewContact("John Doe")))
	require.NoError(t, s.SaveChanges(ctx))
	require.NoError(t, tx.Close())

	assert.Empty(t, testutil.ContactNames(t, ctx, db))
}

func TestTransactionsDoNotNest(t *testing.T) {
	ctx := context.Background()
	s, err := session.NewTransactional(testutil.Context(t, testutil.DB(t)))
	require.NoError(t, err)
	defer s.Close()

	tx, err := s.BeginTransaction(ctx)
	require.NoError(t, err)
	defer tx.Close()

	_, err = s.BeginTransaction(ctx)
	assert.True(t, errors.Is(err, dbctx.ErrTransactionActive))
}

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/gormsession/config"
	"github.com/yungbote/gormsession/dbctx"
	"github.com/yungbote/gormsession/dberr"
	"github.com/yungbote/gormsession/di"
	"github.com/yungbote/gormsession/internal/testutil"
	"github.com/yungbote/gormsession/postgres"
	"github.com/yungbote/gormsession/session"
)

func TestOpenRejectsNilSettings(t *testing.T) {
	_, err := postgres.Open(nil, nil)
	assert.True(t, errors.Is(err, dberr.ErrInvalidArgument))
}

func TestOpenRejectsMalformedConnectionString(t *testing.T) {
	_, err := postgres.Open(&config.DatabaseSettings{
		ConnectionString: "postgres://user@localhost:notaport/app",
	}, nil)
	assert.True(t, errors.Is(err, dberr.ErrInvalidConfiguration))
}

func TestOpenRequiresLoggerWhenLoggingIsOn(t *testing.T) {
	_, err := postgres.Open(&config.DatabaseSettings{
		ConnectionString: "postgres://user@localhost:5432/app",
		LoggingBehavior:  config.LoggingEnabled,
	}, nil)
	assert.True(t, errors.Is(err, dberr.ErrInvalidConfiguration))
}

func TestRegisterReadsSettingsFromSection(t *testing.T) {
	cfg, err := config.Parse([]byte(`
reporting:
  connectionString: postgres://reporter@localhost:5432/reports
  loggingBehavior: EnabledWithSensitiveData
`))
	require.NoError(t, err)

	c := dig.New()
	require.NoError(t, c.Provide(func() *config.Configuration { return cfg }))
	require.NoError(t, postgres.Register(c, postgres.WithSectionName("reporting"), postgres.WithLifetime(di.Scoped)))

	require.NoError(t, c.Invoke(func(s *config.DatabaseSettings) {
		assert.Equal(t, "postgres://reporter@localhost:5432/reports", s.ConnectionString)
		assert.Equal(t, config.LoggingEnabledWithSensitiveData, s.LoggingBehavior)
	}))
}

func TestRegisterSurfacesConfigurationErrors(t *testing.T) {
	c := dig.New()
	require.NoError(t, c.Provide(config.Empty))
	require.NoError(t, postgres.Register(c))

	err := c.Invoke(func(*gorm.DB) {})
	require.Error(t, err)
	assert.True(t, errors.Is(dig.RootCause(err), dberr.ErrInvalidConfiguration))
	assert.True(t, errors.Is(postgres.Register(nil), dberr.ErrInvalidArgument))
}

func TestErrorClassification(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("insert contact: %w", &pgconn.PgError{Code: code})
	}
	assert.True(t, postgres.IsUniqueViolation(wrap("23505")))
	assert.False(t, postgres.IsUniqueViolation(wrap("23503")))
	assert.True(t, postgres.IsForeignKeyViolation(wrap("23503")))
	for _, code := range []string{"40001", "40P01", "55P03"} {
		assert.True(t, postgres.IsRetryable(wrap(code)), code)
	}
	assert.False(t, postgres.IsRetryable(wrap("23505")))
	assert.False(t, postgres.IsRetryable(errors.New("plain")))
	assert.False(t, postgres.IsUniqueViolation(nil))
}

func TestSessionsAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set TEST_POSTGRES_DSN to run postgres integration tests")
	}
	ctx := context.Background()

	db, err := postgres.Open(&config.DatabaseSettings{ConnectionString: dsn}, nil,
		postgres.WithDialectorConfig(func(c *pgdriver.Config) {
			c.PreferSimpleProtocol = true
		}),
	)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, testutil.Migrate(db))
	require.NoError(t, db.Exec("TRUNCATE contacts RESTART IDENTITY").Error)

	dc, err := dbctx.New(db)
	require.NoError(t, err)
	s, err := session.NewTransactional(dc)
	require.NoError(t, err)
	defer s.Close()

	john := testutil.NewContact("John Doe")
	require.NoError(t, session.InTx(ctx, s, func(context.Context) error { return s.Add(john) }))
	assert.Equal(t, []string{"John Doe"}, testutil.ContactNames(t, ctx, db))

	dup := testutil.NewContact("Duplicate")
	dup.ID = john.ID
	require.NoError(t, s.Add(dup))
	err = s.SaveChanges(ctx)
	assert.True(t, postgres.IsUniqueViolation(err), "got %v", err)
}

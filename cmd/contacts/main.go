package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/dig"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/gormsession/config"
	"github.com/yungbote/gormsession/di"
	"github.com/yungbote/gormsession/internal/observability"
	"github.com/yungbote/gormsession/internal/platform/envutil"
	"github.com/yungbote/gormsession/internal/platform/logger"
	"github.com/yungbote/gormsession/postgres"
	"github.com/yungbote/gormsession/session"
	"github.com/yungbote/gormsession/sqlite"
)

const defaultConfig = `
database:
  connectionString: "file:contacts.db?_busy_timeout=5000&_foreign_keys=on"
  loggingBehavior: Off
`

func main() {
	os.Exit(realMain())
}

// realMain returns the process exit code so that every deferred cleanup runs
// before the process exits.
func realMain() int {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "contacts",
		Environment: envutil.String("APP_ENV", "development"),
	}); shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Warn("otel shutdown failed", "error", err)
			}
		}()
	}

	cfg, err := loadConfig(envutil.String("CONFIG_PATH", ""))
	if err != nil {
		log.Error("Failed to load configuration", "error", err)
		return 1
	}
	c, err := buildContainer(cfg, log, envutil.String("DATABASE_DRIVER", "sqlite"))
	if err != nil {
		log.Error("Failed to build container", "error", err)
		return 1
	}
	defer func() {
		if err := di.Shutdown(c); err != nil {
			log.Warn("Database shutdown failed", "error", err)
		}
	}()

	if err := c.Invoke(func(db *gorm.DB, openGet di.Opener[GetContactsSession], openChange di.Opener[ChangeContactsSession], openRename di.Opener[RenameContactsSession]) error {
		if err := db.WithContext(ctx).AutoMigrate(&Contact{}); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		return run(ctx, log, openGet, openChange, openRename)
	}); err != nil {
		log.Error("Contacts demo failed", "error", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Configuration, error) {
	if strings.TrimSpace(path) == "" {
		return config.Parse([]byte(defaultConfig))
	}
	return config.Load(path)
}

func buildContainer(cfg *config.Configuration, log *logger.Logger, driver string) (*dig.Container, error) {
	c := dig.New()
	if err := c.Provide(func() *config.Configuration { return cfg }); err != nil {
		return nil, err
	}
	if err := c.Provide(func() *logger.Logger { return log }); err != nil {
		return nil, err
	}

	var err error
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		err = sqlite.Register(c)
	case "postgres", "postgresql":
		err = postgres.Register(c)
	default:
		err = fmt.Errorf("unknown DATABASE_DRIVER %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := di.AddSession(c, newGetContactsSession); err != nil {
		return nil, err
	}
	if err := di.AddSession(c, newChangeContactsSession); err != nil {
		return nil, err
	}
	if err := di.AddSession(c, newRenameContactsSession); err != nil {
		return nil, err
	}
	return c, nil
}

func run(
	ctx context.Context,
	log *logger.Logger,
	openGet di.Opener[GetContactsSession],
	openChange di.Opener[ChangeContactsSession],
	openRename di.Opener[RenameContactsSession],
) error {
	change, err := openChange(ctx)
	if err != nil {
		return err
	}
	added := &Contact{Name: "John Doe", Tags: datatypes.JSON([]byte(`["family"]`))}
	if err := change.AddContact(added); err != nil {
		_ = change.Close()
		return err
	}
	if err := change.SaveChanges(ctx); err != nil {
		_ = change.Close()
		return err
	}
	if err := change.Close(); err != nil {
		return err
	}
	log.Info("Contact added", "id", added.ID, "external_id", added.ExternalID.String())

	rename, err := openRename(ctx)
	if err != nil {
		return err
	}
	err = session.InTx(ctx, rename, func(ctx context.Context) error {
		contact, err := rename.ContactByName(ctx, "John Doe")
		if err != nil {
			return err
		}
		contact.Name = "John Johnson"
		return nil
	})
	if closeErr := rename.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	if err != nil {
		return err
	}

	get, err := openGet(ctx)
	if err != nil {
		return err
	}
	defer get.Close()
	contacts, err := get.Contacts(ctx)
	if err != nil {
		return err
	}
	for _, contact := range contacts {
		log.Info("Contact", "id", contact.ID, "name", contact.Name, "tags", string(contact.Tags))
	}
	return nil
}

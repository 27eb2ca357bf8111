package dbctx

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"
)

const pluginName = "gormsession:dbctx"

type trackerKey struct{}
type readOnlyKey struct{}

// Plugin wires query tracking and the read-only guard into a *gorm.DB.
// New installs it on demand; Install is exposed for callers that build the
// *gorm.DB themselves and want to fail early.
type Plugin struct{}

var _ gorm.Plugin = Plugin{}

func (Plugin) Name() string { return pluginName }

func (Plugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().After("gorm:query").Register(pluginName+":track", trackQueryResults); err != nil {
		return err
	}
	if err := db.Callback().Create().Before("gorm:begin_transaction").Register(pluginName+":guard_create", rejectReadOnly); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:begin_transaction").Register(pluginName+":guard_update", rejectReadOnly); err != nil {
		return err
	}
	return db.Callback().Delete().Before("gorm:begin_transaction").Register(pluginName+":guard_delete", rejectReadOnly)
}

var installMu sync.Mutex

// Install registers Plugin on db unless it is already present.
func Install(db *gorm.DB) error {
	installMu.Lock()
	defer installMu.Unlock()
	if db.Config.Plugins != nil {
		if _, ok := db.Config.Plugins[pluginName]; ok {
			return nil
		}
	}
	if err := db.Use(Plugin{}); err != nil && !errors.Is(err, gorm.ErrRegistered) {
		return err
	}
	return nil
}

func withMarkers(ctx context.Context, t *ChangeTracker, readOnly bool) context.Context {
	ctx = context.WithValue(ctx, trackerKey{}, t)
	return context.WithValue(ctx, readOnlyKey{}, readOnly)
}

func trackerFrom(ctx context.Context) *ChangeTracker {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(trackerKey{}).(*ChangeTracker)
	return t
}

func readOnlyFrom(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	ro, _ := ctx.Value(readOnlyKey{}).(bool)
	return ro
}

func trackQueryResults(db *gorm.DB) {
	if db.Error != nil || db.Statement == nil || db.Statement.Schema == nil {
		return
	}
	t := trackerFrom(db.Statement.Context)
	if t == nil {
		return
	}
	t.trackLoaded(db.Statement.Context, db.Statement.Schema, db.Statement.ReflectValue)
}

func rejectReadOnly(db *gorm.DB) {
	if db.Statement != nil && readOnlyFrom(db.Statement.Context) {
		_ = db.AddError(ErrReadOnly)
	}
}

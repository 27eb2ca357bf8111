package dbctx

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/yungbote/gormsession/dberr"
)

// EntryState is the lifecycle state of a tracked entity.
type EntryState int

const (
	Unchanged EntryState = iota + 1
	Added
	Modified
	Deleted
)

func (s EntryState) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("EntryState(%d)", int(s))
	}
}

// Entry describes one tracked entity.
type Entry struct {
	Entity interface{}
	State  EntryState
	// Changed lists the struct fields that differ from the snapshot taken when
	// the entity was loaded or last saved. Empty for explicit updates, which
	// write every column.
	Changed []string
}

type entry struct {
	ptr        reflect.Value
	schema     *schema.Schema
	state      EntryState
	snapshot   map[string]interface{}
	changed    []string
	fullUpdate bool
}

// ChangeTracker is the pending change set of one Context. Entities are keyed by
// pointer identity; entities loaded into a slice are tracked through the slice
// element address, so appending to that slice afterwards detaches them.
type ChangeTracker struct {
	namer   schema.Namer
	entries []*entry
	index   map[uintptr]*entry
}

var schemaCache sync.Map

func newChangeTracker(db *gorm.DB) *ChangeTracker {
	return &ChangeTracker{
		namer: db.NamingStrategy,
		index: make(map[uintptr]*entry),
	}
}

func (t *ChangeTracker) resolve(op string, entity interface{}) (reflect.Value, *schema.Schema, error) {
	if entity == nil {
		return reflect.Value{}, nil, dberr.NilArgument(op, "entity")
	}
	ptr := reflect.ValueOf(entity)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() || ptr.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, nil, dberr.NewError(dberr.CodeInvalidArgument, op,
			fmt.Sprintf("entity must be a non-nil pointer to a struct, got %T", entity), nil)
	}
	sch, err := schema.Parse(entity, &schemaCache, t.namer)
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return ptr, sch, nil
}

func (t *ChangeTracker) lookup(ptr reflect.Value) *entry {
	return t.index[ptr.Pointer()]
}

func (t *ChangeTracker) insert(e *entry) {
	t.index[e.ptr.Pointer()] = e
	t.entries = append(t.entries, e)
}

func (t *ChangeTracker) detach(e *entry) {
	delete(t.index, e.ptr.Pointer())
	for i, cur := range t.entries {
		if cur == e {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

func (t *ChangeTracker) add(entity interface{}) error {
	ptr, sch, err := t.resolve("dbctx.add", entity)
	if err != nil {
		return err
	}
	if e := t.lookup(ptr); e != nil {
		if e.state == Deleted {
			e.state, e.fullUpdate = Modified, true
		}
		return nil
	}
	t.insert(&entry{ptr: ptr, schema: sch, state: Added})
	return nil
}

func (t *ChangeTracker) update(entity interface{}) error {
	ptr, sch, err := t.resolve("dbctx.update", entity)
	if err != nil {
		return err
	}
	e := t.lookup(ptr)
	if e == nil {
		t.insert(&entry{ptr: ptr, schema: sch, state: Modified, fullUpdate: true})
		return nil
	}
	if e.state != Added {
		e.state, e.fullUpdate, e.changed = Modified, true, nil
	}
	return nil
}

func (t *ChangeTracker) remove(entity interface{}) error {
	ptr, sch, err := t.resolve("dbctx.remove", entity)
	if err != nil {
		return err
	}
	e := t.lookup(ptr)
	switch {
	case e == nil:
		t.insert(&entry{ptr: ptr, schema: sch, state: Deleted})
	case e.state == Added:
		t.detach(e)
	default:
		e.state, e.fullUpdate, e.changed = Deleted, false, nil
	}
	return nil
}

func (t *ChangeTracker) attach(ctx context.Context, entity interface{}) error {
	ptr, sch, err := t.resolve("dbctx.attach", entity)
	if err != nil {
		return err
	}
	t.attachValue(ctx, ptr, sch)
	return nil
}

func (t *ChangeTracker) attachValue(ctx context.Context, ptr reflect.Value, sch *schema.Schema) {
	if e := t.lookup(ptr); e != nil {
		if e.state == Unchanged {
			e.snapshot = takeSnapshot(ctx, sch, ptr)
		}
		return
	}
	t.insert(&entry{ptr: ptr, schema: sch, state: Unchanged, snapshot: takeSnapshot(ctx, sch, ptr)})
}

// trackLoaded attaches the rows a query materialised into rv.
func (t *ChangeTracker) trackLoaded(ctx context.Context, sch *schema.Schema, rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			t.trackElem(ctx, sch, rv.Index(i))
		}
	case reflect.Struct:
		t.trackElem(ctx, sch, rv)
	}
}

func (t *ChangeTracker) trackElem(ctx context.Context, sch *schema.Schema, elem reflect.Value) {
	for elem.Kind() == reflect.Interface && !elem.IsNil() {
		elem = elem.Elem()
	}
	var ptr reflect.Value
	switch {
	case elem.Kind() == reflect.Ptr:
		if elem.IsNil() {
			return
		}
		ptr = elem
	case elem.CanAddr():
		ptr = elem.Addr()
	default:
		return
	}
	if ptr.Elem().Type() != sch.ModelType {
		return
	}
	t.attachValue(ctx, ptr, sch)
}

// DetectChanges compares unchanged entries against their snapshots and marks
// the ones that differ as modified.
func (t *ChangeTracker) DetectChanges(ctx context.Context) {
	for _, e := range t.entries {
		if e.state != Unchanged && !(e.state == Modified && !e.fullUpdate) {
			continue
		}
		changed := changedFields(ctx, e)
		switch {
		case len(changed) > 0:
			e.state, e.changed = Modified, changed
		case e.state == Modified:
			e.state, e.changed = Unchanged, nil
		}
	}
}

// Entries returns the tracked entities after detecting changes.
func (t *ChangeTracker) Entries(ctx context.Context) []Entry {
	t.DetectChanges(ctx)
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, Entry{
			Entity:  e.ptr.Interface(),
			State:   e.state,
			Changed: append([]string(nil), e.changed...),
		})
	}
	return out
}

// HasChanges reports whether SaveChanges would write anything.
func (t *ChangeTracker) HasChanges(ctx context.Context) bool {
	t.DetectChanges(ctx)
	for _, e := range t.entries {
		if e.state != Unchanged {
			return true
		}
	}
	return false
}

// flush writes added, modified and deleted entities through tx, in that order.
func (t *ChangeTracker) flush(ctx context.Context, tx *gorm.DB) (int64, error) {
	t.DetectChanges(ctx)
	var rows int64
	for _, state := range []EntryState{Added, Modified, Deleted} {
		for _, e := range t.entries {
			if e.state != state {
				continue
			}
			res := write(tx, e)
			if res.Error != nil {
				return rows, res.Error
			}
			rows += res.RowsAffected
		}
	}
	return rows, nil
}

func write(tx *gorm.DB, e *entry) *gorm.DB {
	entity := e.ptr.Interface()
	switch e.state {
	case Added:
		return tx.Create(entity)
	case Modified:
		if e.fullUpdate {
			return tx.Save(entity)
		}
		return tx.Model(entity).Select(e.changed).Updates(entity)
	default:
		return tx.Delete(entity)
	}
}

// acceptChanges marks everything written by flush as unchanged.
func (t *ChangeTracker) acceptChanges(ctx context.Context) {
	kept := t.entries[:0]
	for _, e := range t.entries {
		if e.state == Deleted {
			delete(t.index, e.ptr.Pointer())
			continue
		}
		e.state, e.fullUpdate, e.changed = Unchanged, false, nil
		e.snapshot = takeSnapshot(ctx, e.schema, e.ptr)
		kept = append(kept, e)
	}
	for i := len(kept); i < len(t.entries); i++ {
		t.entries[i] = nil
	}
	t.entries = kept
}

func (t *ChangeTracker) clear() {
	t.entries = nil
	t.index = make(map[uintptr]*entry)
}

func takeSnapshot(ctx context.Context, sch *schema.Schema, ptr reflect.Value) map[string]interface{} {
	rv := ptr.Elem()
	snap := make(map[string]interface{}, len(sch.Fields))
	for _, f := range sch.Fields {
		if f.DBName == "" || !f.Readable {
			continue
		}
		v, _ := f.ValueOf(ctx, rv)
		snap[f.Name] = copyValue(v)
	}
	return snap
}

func changedFields(ctx context.Context, e *entry) []string {
	rv := e.ptr.Elem()
	var changed []string
	for _, f := range e.schema.Fields {
		if f.DBName == "" || !f.Readable || f.PrimaryKey {
			continue
		}
		before, ok := e.snapshot[f.Name]
		if !ok {
			continue
		}
		now, _ := f.ValueOf(ctx, rv)
		if !reflect.DeepEqual(before, now) {
			changed = append(changed, f.Name)
		}
	}
	return changed
}

// copyValue detaches slice-backed values (byte slices, JSON columns) from the
// entity so in-place edits show up as changes.
func copyValue(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.IsNil() {
		return v
	}
	cp := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	reflect.Copy(cp, rv)
	return cp.Interface()
}

package testutil

import (
	"context"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Contact struct {
	ID   uint           `gorm:"primaryKey"`
	Name string         `gorm:"not null"`
	Tags datatypes.JSON `gorm:"not null"`
}

func NewContact(name string) *Contact {
	return &Contact{Name: name, Tags: datatypes.JSON([]byte("[]"))}
}

func SeedContacts(tb testing.TB, ctx context.Context, db *gorm.DB, names ...string) []*Contact {
	tb.Helper()
	out := make([]*Contact, 0, len(names))
	for _, name := range names {
		c := NewContact(name)
		if err := db.WithContext(ctx).Create(c).Error; err != nil {
			tb.Fatalf("seed contact %q: %v", name, err)
		}
		out = append(out, c)
	}
	return out
}

// ContactNames loads every contact name ordered by id, bypassing any session.
func ContactNames(tb testing.TB, ctx context.Context, db *gorm.DB) []string {
	tb.Helper()
	var names []string
	if err := db.WithContext(ctx).Model(&Contact{}).Order("id").Pluck("name", &names).Error; err != nil {
		tb.Fatalf("load contact names: %v", err)
	}
	return names
}

package main

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/gormsession/dbctx"
	"github.com/yungbote/gormsession/session"
)

type Contact struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ExternalID uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"external_id"`
	Name       string         `gorm:"not null" json:"name"`
	Tags       datatypes.JSON `gorm:"not null" json:"tags"`
}

func (c *Contact) BeforeCreate(*gorm.DB) error {
	if c.ExternalID == uuid.Nil {
		c.ExternalID = uuid.New()
	}
	if len(c.Tags) == 0 {
		c.Tags = datatypes.JSON([]byte("[]"))
	}
	return nil
}

// GetContactsSession reads contacts.
type GetContactsSession interface {
	session.ReadOnlySession
	Contacts(ctx context.Context) ([]Contact, error)
}

// ChangeContactsSession loads and stages contacts for saving.
type ChangeContactsSession interface {
	session.Session
	ContactByID(ctx context.Context, id uint) (*Contact, error)
	AddContact(contact *Contact) error
}

// RenameContactsSession renames contacts inside explicit transactions.
type RenameContactsSession interface {
	session.TransactionalSession
	ContactByName(ctx context.Context, name string) (*Contact, error)
}

type getContactsSession struct {
	*session.ReadOnly
}

func newGetContactsSession(c *dbctx.Context) (GetContactsSession, error) {
	s, err := session.NewReadOnly(c)
	if err != nil {
		return nil, err
	}
	return &getContactsSession{ReadOnly: s}, nil
}

func (s *getContactsSession) Contacts(ctx context.Context) ([]Contact, error) {
	var out []Contact
	if err := s.DB(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type changeContactsSession struct {
	*session.ReadWrite
}

func newChangeContactsSession(c *dbctx.Context) (ChangeContactsSession, error) {
	s, err := session.NewReadWrite(c)
	if err != nil {
		return nil, err
	}
	return &changeContactsSession{ReadWrite: s}, nil
}

func (s *changeContactsSession) ContactByID(ctx context.Context, id uint) (*Contact, error) {
	var c Contact
	if err := s.DB(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *changeContactsSession) AddContact(contact *Contact) error { return s.Add(contact) }

type renameContactsSession struct {
	*session.Transactional
}

func newRenameContactsSession(c *dbctx.Context) (RenameContactsSession, error) {
	s, err := session.NewTransactional(c)
	if err != nil {
		return nil, err
	}
	return &renameContactsSession{Transactional: s}, nil
}

func (s *renameContactsSession) ContactByName(ctx context.Context, name string) (*Contact, error) {
	var c Contact
	if err := s.DB(ctx).Where("name = ?", name).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

package models

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// All lists every model in dependency order for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&StudentParent{},
		&Teacher{},
		&Parent{},
		&Dismisser{},
		&Student{},
		&CarlineQueueEntry{},
		&QueueEntryStudent{},
		&StudentPickupEvent{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}

// Migrate builds the schema from the models. Both sides of the
// student/parent many2many are bound to StudentParent first, otherwise gorm
// creates student_parents with the two key columns only.
func Migrate(tx *gorm.DB) error {
	joins := []struct {
		model any
		field string
	}{
		{&Student{}, "Parents"},
		{&Parent{}, "Students"},
	}
	for _, j := range joins {
		if err := tx.SetupJoinTable(j.model, j.field, &StudentParent{}); err != nil {
			return fmt.Errorf("setup join table %T.%s: %w", j.model, j.field, err)
		}
	}
	return tx.AutoMigrate(All()...)
}

// ensureID assigns a fresh UUID when the caller did not provide one.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error               { ensureID(&u.ID); return nil }
func (t *Teacher) BeforeCreate(*gorm.DB) error            { ensureID(&t.ID); return nil }
func (p *Parent) BeforeCreate(*gorm.DB) error             { ensureID(&p.ID); return nil }
func (d *Dismisser) BeforeCreate(*gorm.DB) error          { ensureID(&d.ID); return nil }
func (s *Student) BeforeCreate(*gorm.DB) error            { ensureID(&s.ID); return nil }
func (e *CarlineQueueEntry) BeforeCreate(*gorm.DB) error  { ensureID(&e.ID); return nil }
func (e *StudentPickupEvent) BeforeCreate(*gorm.DB) error { ensureID(&e.ID); return nil }
func (e *OutboxEvent) BeforeCreate(*gorm.DB) error        { ensureID(&e.ID); return nil }
func (e *OutboxDLQ) BeforeCreate(*gorm.DB) error          { ensureID(&e.ID); return nil }

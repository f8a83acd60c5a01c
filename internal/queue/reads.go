package queue

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
)

func orderByCreated(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// withEntryDetails preloads everything a dismisser dashboard renders.
func withEntryDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Parent.User").
		Preload("Students.Student.Teacher.User").
		Preload("PickupEvents", orderByCreated).
		Preload("PickupEvents.Student")
}

// CurrentQueue lists open entries in raw position order.
func (s *Service) CurrentQueue(ctx context.Context) ([]models.CarlineQueueEntry, error) {
	var entries []models.CarlineQueueEntry
	err := withEntryDetails(s.db.WithContext(ctx)).
		Where("processed_at IS NULL").
		Order("position ASC").
		Find(&entries).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load current queue")
	}
	return entries, nil
}

// Entry loads one queue entry with its details, open or not.
func (s *Service) Entry(ctx context.Context, queueEntryID uuid.UUID) (*models.CarlineQueueEntry, error) {
	var entry models.CarlineQueueEntry
	err := withEntryDetails(s.db.WithContext(ctx)).Take(&entry, "id = ?", queueEntryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "queue entry not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load queue entry")
	}
	return &entry, nil
}

// Position returns the entry with its rank among open entries, which can be
// lower than the raw position once earlier entries close.
func (s *Service) Position(ctx context.Context, queueEntryID uuid.UUID) (*PositionResult, error) {
	entry, err := s.Entry(ctx, queueEntryID)
	if err != nil {
		return nil, err
	}
	var ahead int64
	err = s.db.WithContext(ctx).
		Model(&models.CarlineQueueEntry{}).
		Where("processed_at IS NULL AND position < ?", entry.Position).
		Count(&ahead).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count entries ahead")
	}
	return &PositionResult{CarlineQueueEntry: *entry, PositionInQueue: int(ahead) + 1}, nil
}

// StudentsForParent lists the students a parent may collect.
func (s *Service) StudentsForParent(ctx context.Context, parentID uuid.UUID) ([]models.Student, error) {
	var students []models.Student
	err := s.db.WithContext(ctx).
		Preload("Teacher.User").
		Joins("JOIN student_parents sp ON sp.student_id = students.id").
		Where("sp.parent_id = ?", parentID).
		Order("students.name ASC").
		Find(&students).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load parent students")
	}
	return students, nil
}

func (s *Service) loadEvent(ctx context.Context, id uuid.UUID) (*models.StudentPickupEvent, error) {
	var event models.StudentPickupEvent
	err := s.db.WithContext(ctx).
		Preload("Student").
		Preload("Parent.User").
		Preload("QueueEntry").
		Take(&event, "id = ?", id).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pickup event")
	}
	return &event, nil
}

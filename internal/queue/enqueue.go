package queue

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/carline-backend/pkg/db"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/outbox"
	"github.com/angelmondragon/carline-backend/pkg/outbox/payloads"
)

const openPositionConstraint = "carline_queue_entries_open_position_key"

// Enqueue appends a parent to the carline. Callers must already have checked
// that every student is authorized for the parent.
func (s *Service) Enqueue(ctx context.Context, parentID uuid.UUID, studentIDs []uuid.UUID, dismisserID uuid.UUID) (*EnqueueResult, error) {
	ids := dedupe(studentIDs)
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one student is required")
	}

	var (
		entry  models.CarlineQueueEntry
		events []models.StudentPickupEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if db.IsPostgres(tx) {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", advisoryLockKey).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock queue")
			}
		}

		if !s.allowDuplicates {
			if err := rejectQueuedStudents(tx, ids); err != nil {
				return err
			}
		}

		position, err := nextPosition(tx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute position")
		}

		now := s.now()
		entry = models.CarlineQueueEntry{
			ParentID:    parentID,
			Position:    position,
			DismisserID: dismisserID,
		}
		if err := tx.Omit(clause.Associations).Create(&entry).Error; err != nil {
			if db.IsUniqueViolation(err, openPositionConstraint) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "queue position already taken, retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create queue entry")
		}

		links := make([]models.QueueEntryStudent, 0, len(ids))
		for _, id := range ids {
			links = append(links, models.QueueEntryStudent{QueueEntryID: entry.ID, StudentID: id})
		}
		if err := tx.Omit(clause.Associations).Create(&links).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link queue students")
		}

		res := tx.Model(&models.Parent{}).
			Where("id = ?", parentID).
			Updates(map[string]any{
				"status":       enums.ParentStatusArrived,
				"arrival_time": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "mark parent arrived")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "parent not found")
		}

		events = make([]models.StudentPickupEvent, 0, len(ids))
		for _, id := range ids {
			events = append(events, models.StudentPickupEvent{
				StudentID:    id,
				ParentID:     parentID,
				QueueEntryID: entry.ID,
				Status:       enums.PickupStatusQueued,
			})
		}
		if err := tx.Omit(clause.Associations).Create(&events).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create pickup events")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQueueEntryCreated,
			AggregateType: enums.AggregateQueueEntry,
			AggregateID:   entry.ID,
			Actor:         &outbox.ActorRef{UserID: dismisserID, Role: string(enums.UserRoleDismisser)},
			OccurredAt:    now,
			Data: payloads.QueueEntryCreatedEvent{
				QueueEntryID: entry.ID,
				ParentID:     parentID,
				DismisserID:  dismisserID,
				Position:     entry.Position,
				StudentIDs:   ids,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCreated()
	s.info(ctx, "queue.enqueue", map[string]any{
		"queue_entry_id": entry.ID.String(),
		"parent_id":      parentID.String(),
		"dismisser_id":   dismisserID.String(),
		"position":       entry.Position,
		"student_count":  len(ids),
	})

	loaded, err := s.Entry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	return &EnqueueResult{QueueEntry: loaded, PickupEvents: loaded.PickupEvents}, nil
}

// nextPosition is max(position) over open entries plus one.
func nextPosition(tx *gorm.DB) (int, error) {
	var maxPosition int64
	row := tx.Model(&models.CarlineQueueEntry{}).
		Select("COALESCE(MAX(position), 0)").
		Where("processed_at IS NULL").
		Row()
	if err := row.Scan(&maxPosition); err != nil {
		return 0, err
	}
	return int(maxPosition) + 1, nil
}

func rejectQueuedStudents(tx *gorm.DB, ids []uuid.UUID) error {
	var queued []uuid.UUID
	err := tx.Model(&models.QueueEntryStudent{}).
		Joins("JOIN carline_queue_entries e ON e.id = queue_entry_students.queue_entry_id").
		Where("e.processed_at IS NULL").
		Where("queue_entry_students.student_id IN ?", ids).
		Distinct().
		Pluck("queue_entry_students.student_id", &queued).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check open entries")
	}
	if len(queued) > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "student already in an open queue entry").
			WithDetails(map[string]any{"studentIds": queued})
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/outbox"
	"github.com/angelmondragon/carline-backend/pkg/outbox/payloads"
)

// MarkReady sets the student READY and advances their most recent pending
// pickup event. When no event is pending the student status still changes and
// the returned event is nil.
func (s *Service) MarkReady(ctx context.Context, studentID, teacherID uuid.UUID) (*models.StudentPickupEvent, error) {
	var moved *models.StudentPickupEvent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.now()
		if err := setStudentStatus(tx, studentID, enums.StudentStatusReady); err != nil {
			return err
		}

		var event models.StudentPickupEvent
		err := tx.Where("student_id = ? AND status IN ?", studentID, enums.PendingPickupStatuses).
			Order("created_at DESC").
			Order("id DESC").
			Take(&event).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find pending pickup event")
		}

		res := tx.Model(&models.StudentPickupEvent{}).
			Where("id = ? AND status IN ?", event.ID, enums.PendingPickupStatuses).
			Updates(map[string]any{
				"status":              enums.PickupStatusReady,
				"notified_teacher_at": now,
				"updated_at":          now,
			})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "mark pickup ready")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup event was already advanced")
		}
		event.Status = enums.PickupStatusReady
		event.NotifiedTeacherAt = &now
		moved = &event

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStudentReady,
			AggregateType: enums.AggregatePickupEvent,
			AggregateID:   event.ID,
			Actor:         &outbox.ActorRef{UserID: teacherID, Role: string(enums.UserRoleTeacher)},
			OccurredAt:    now,
			Data: payloads.StudentReadyEvent{
				QueueEntryID:      event.QueueEntryID,
				PickupEventID:     event.ID,
				StudentID:         studentID,
				TeacherID:         teacherID,
				NotifiedTeacherAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"student_id": studentID.String(),
		"teacher_id": teacherID.String(),
	}
	if moved == nil {
		s.info(ctx, "queue.mark_ready.no_pending_event", fields)
		return nil, nil
	}
	s.metrics.IncTransition(string(enums.PickupStatusReady))
	fields["pickup_event_id"] = moved.ID.String()
	fields["queue_entry_id"] = moved.QueueEntryID.String()
	s.info(ctx, "queue.mark_ready", fields)
	return s.loadEvent(ctx, moved.ID)
}

// Dismiss hands a READY student over and closes the queue entry once none of
// its pickup events remain undismissed. Returns nil when the student had no
// READY event for the entry.
func (s *Service) Dismiss(ctx context.Context, studentID, dismisserID, queueEntryID uuid.UUID) (*models.StudentPickupEvent, error) {
	var (
		moved  *models.StudentPickupEvent
		closed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.now()
		if err := setStudentStatus(tx, studentID, enums.StudentStatusDismissed); err != nil {
			return err
		}

		var event models.StudentPickupEvent
		err := tx.Where("student_id = ? AND queue_entry_id = ? AND status = ?", studentID, queueEntryID, enums.PickupStatusReady).
			Take(&event).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find ready pickup event")
		default:
			res := tx.Model(&models.StudentPickupEvent{}).
				Where("id = ? AND status = ?", event.ID, enums.PickupStatusReady).
				Updates(map[string]any{
					"status":           enums.PickupStatusDismissed,
					"dismissed_at":     now,
					"dismissed_by":     dismisserID,
					"dismissal_method": enums.DismissalMethodCarline,
					"updated_at":       now,
				})
			if res.Error != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "dismiss pickup event")
			}
			if res.RowsAffected == 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup event was already dismissed")
			}
			event.Status = enums.PickupStatusDismissed
			moved = &event

			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventStudentDismissed,
				AggregateType: enums.AggregatePickupEvent,
				AggregateID:   event.ID,
				Actor:         &outbox.ActorRef{UserID: dismisserID, Role: string(enums.UserRoleDismisser)},
				OccurredAt:    now,
				Data: payloads.StudentDismissedEvent{
					QueueEntryID:  queueEntryID,
					PickupEventID: event.ID,
					StudentID:     studentID,
					DismisserID:   dismisserID,
					DismissedAt:   now,
				},
			}); err != nil {
				return err
			}
		}

		closed, err = closeIfComplete(tx, queueEntryID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close queue entry")
		}
		if !closed {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQueueEntryClosed,
			AggregateType: enums.AggregateQueueEntry,
			AggregateID:   queueEntryID,
			Actor:         &outbox.ActorRef{UserID: dismisserID, Role: string(enums.UserRoleDismisser)},
			OccurredAt:    now,
			Data: payloads.QueueEntryClosedEvent{
				QueueEntryID: queueEntryID,
				ProcessedAt:  now,
				Reason:       payloads.CloseReasonDismissed,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"student_id":     studentID.String(),
		"dismisser_id":   dismisserID.String(),
		"queue_entry_id": queueEntryID.String(),
		"entry_closed":   closed,
	}
	if closed {
		s.metrics.AddClosed(payloads.CloseReasonDismissed, 1)
	}
	if moved == nil {
		s.info(ctx, "queue.dismiss.no_ready_event", fields)
		return nil, nil
	}
	s.metrics.IncTransition(string(enums.PickupStatusDismissed))
	fields["pickup_event_id"] = moved.ID.String()
	s.info(ctx, "queue.dismiss", fields)
	return s.loadEvent(ctx, moved.ID)
}

// closeIfComplete stamps processed_at exactly once, and only when every pickup
// event of the entry is DISMISSED. The check and the write are one statement.
func closeIfComplete(tx *gorm.DB, queueEntryID uuid.UUID, now time.Time) (bool, error) {
	res := tx.Exec(`UPDATE carline_queue_entries
SET processed_at = ?, updated_at = ?
WHERE id = ?
  AND processed_at IS NULL
  AND NOT EXISTS (
    SELECT 1 FROM student_pickup_events
    WHERE queue_entry_id = ? AND status <> ?
  )`, now, now, queueEntryID, queueEntryID, enums.PickupStatusDismissed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func setStudentStatus(tx *gorm.DB, studentID uuid.UUID, status enums.StudentStatus) error {
	res := tx.Model(&models.Student{}).
		Where("id = ?", studentID).
		Update("status", status)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update student status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "student not found")
	}
	return nil
}

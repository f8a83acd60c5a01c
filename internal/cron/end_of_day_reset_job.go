package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/metrics"
	"github.com/angelmondragon/carline-backend/pkg/outbox"
	"github.com/angelmondragon/carline-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type EndOfDayResetJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Outbox   outbox.Emitter
	Metrics  *metrics.QueueMetrics
	Location *time.Location
}

// NewEndOfDayResetJob closes carline entries left open from a previous school
// day and returns students and parents to their start-of-day state. Rows
// touched today are left alone, so the job is safe to run on any cadence.
func NewEndOfDayResetJob(params EndOfDayResetJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &endOfDayResetJob{
		logg:    params.Logger,
		db:      params.DB,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		loc:     loc,
		now:     time.Now,
	}, nil
}

type endOfDayResetJob struct {
	logg    *logger.Logger
	db      txRunner
	outbox  outbox.Emitter
	metrics *metrics.QueueMetrics
	loc     *time.Location
	now     func() time.Time
}

func (j *endOfDayResetJob) Name() string { return "end-of-day-reset" }

func (j *endOfDayResetJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	local := now.In(j.loc)
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, j.loc).UTC()

	closed, closeErr := j.closeStaleEntries(ctx, startOfDay, now)
	students, studentErr := j.resetStudents(ctx, startOfDay, now)
	parents, parentErr := j.resetParents(ctx, startOfDay, now)

	j.metrics.AddClosed(payloads.CloseReasonEndOfDay, closed)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"start_of_day":     startOfDay,
		"entries_closed":   closed,
		"students_reset":   students,
		"parents_reset":    parents,
		"school_time_zone": j.loc.String(),
	})
	if err := multierr.Combine(closeErr, studentErr, parentErr); err != nil {
		return fmt.Errorf("end of day reset: %w", err)
	}
	j.logg.Info(logCtx, "end of day reset complete")
	return nil
}

func (j *endOfDayResetJob) closeStaleEntries(ctx context.Context, startOfDay, now time.Time) (int, error) {
	var closed int
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var ids []uuid.UUID
		if err := tx.Model(&models.CarlineQueueEntry{}).
			Where("processed_at IS NULL AND created_at < ?", startOfDay).
			Order("position ASC").
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		for _, id := range ids {
			res := tx.Model(&models.CarlineQueueEntry{}).
				Where("id = ? AND processed_at IS NULL", id).
				Updates(map[string]any{"processed_at": now, "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			if err := j.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventQueueEntryClosed,
				AggregateType: enums.AggregateQueueEntry,
				AggregateID:   id,
				OccurredAt:    now,
				Data: payloads.QueueEntryClosedEvent{
					QueueEntryID: id,
					ProcessedAt:  now,
					Reason:       payloads.CloseReasonEndOfDay,
				},
			}); err != nil {
				return err
			}
			closed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("close stale entries: %w", err)
	}
	return closed, nil
}

func (j *endOfDayResetJob) resetStudents(ctx context.Context, startOfDay, now time.Time) (int64, error) {
	var rows int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Student{}).
			Where("status <> ? AND updated_at < ?", enums.StudentStatusAwaiting, startOfDay).
			Updates(map[string]any{"status": enums.StudentStatusAwaiting, "updated_at": now})
		rows = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("reset students: %w", err)
	}
	return rows, nil
}

func (j *endOfDayResetJob) resetParents(ctx context.Context, startOfDay, now time.Time) (int64, error) {
	var rows int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Parent{}).
			Where("status = ? AND (arrival_time IS NULL OR arrival_time < ?)", enums.ParentStatusArrived, startOfDay).
			Updates(map[string]any{"status": enums.ParentStatusNotArrived, "arrival_time": nil, "updated_at": now})
		rows = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("reset parents: %w", err)
	}
	return rows, nil
}

package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/pkg/logger"
)

const (
	outboxRetentionDays = 30
	dlqRetentionDays    = 90
	// rows parked at the publisher's attempt ceiling are swept with published ones
	outboxMinAttempts = 10
)

type OutboxRetentionJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Repository   outboxRetentionRepo
	DLQ          dlqRetentionRepo
	Retention    int
	DLQRetention int
	MinAttempts  int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob keeps outbox_events and outbox_dlq bounded. The DLQ
// repository is optional; without it only outbox rows are pruned.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		dlq:          params.DLQ,
		retention:    positiveOr(params.Retention, outboxRetentionDays),
		dlqRetention: positiveOr(params.DLQRetention, dlqRetentionDays),
		minAttempts:  positiveOr(params.MinAttempts, outboxMinAttempts),
		now:          time.Now,
	}
	if job.dlqRetention < job.retention {
		job.dlqRetention = job.retention
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	repo         outboxRetentionRepo
	dlq          dlqRetentionRepo
	retention    int
	dlqRetention int
	minAttempts  int
	now          func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	outboxCutoff := daysBefore(now, j.retention)
	dlqCutoff := daysBefore(now, j.dlqRetention)

	var outboxDeleted, dlqDeleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if outboxDeleted, err = j.repo.DeletePublishedBefore(ctx, tx, outboxCutoff, j.minAttempts); err != nil {
			return fmt.Errorf("prune outbox_events: %w", err)
		}
		if j.dlq == nil {
			return nil
		}
		if dlqDeleted, err = j.dlq.DeleteFailedBefore(ctx, tx, dlqCutoff); err != nil {
			return fmt.Errorf("prune outbox_dlq: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"outbox_cutoff": outboxCutoff,
		"dlq_cutoff":    dlqCutoff,
		"min_attempts":  j.minAttempts,
		"outbox_pruned": outboxDeleted,
		"dlq_pruned":    dlqDeleted,
	}), "outbox retention cleanup complete")
	return nil
}

func daysBefore(t time.Time, days int) time.Time {
	return t.Add(-time.Duration(days) * 24 * time.Hour)
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

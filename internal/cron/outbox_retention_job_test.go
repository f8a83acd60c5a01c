package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/pkg/db"
	"github.com/angelmondragon/carline-backend/pkg/db/dbtest"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/outbox"
)

func TestOutboxRetentionJobUsesDefaults(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	dlq := &fakeDLQRetentionRepo{}
	job := newOutboxRetentionJob(t, OutboxRetentionJobParams{Repository: repo, DLQ: dlq})
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, now.Add(-outboxRetentionDays*24*time.Hour), repo.lastCutoff)
	require.Equal(t, outboxMinAttempts, repo.minAttempts)
	require.Equal(t, now.Add(-dlqRetentionDays*24*time.Hour), dlq.lastCutoff)
	require.Equal(t, 1, repo.called)
}

func TestOutboxRetentionJobKeepsDeadLettersAtLeastAsLong(t *testing.T) {
	job := newOutboxRetentionJob(t, OutboxRetentionJobParams{
		Repository:   &fakeOutboxRetentionRepo{},
		Retention:    45,
		DLQRetention: 7,
	})
	require.Equal(t, 45, job.dlqRetention)
}

func TestOutboxRetentionJobWithoutDLQ(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{}
	job := newOutboxRetentionJob(t, OutboxRetentionJobParams{Repository: repo})
	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 1, repo.called)
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	dlq := &fakeDLQRetentionRepo{}
	job := newOutboxRetentionJob(t, OutboxRetentionJobParams{
		Repository: &fakeOutboxRetentionRepo{err: errors.New("boom")},
		DLQ:        dlq,
	})

	err := job.Run(context.Background())
	require.ErrorContains(t, err, "prune outbox_events")
	require.Zero(t, dlq.called)
}

func TestOutboxRetentionJobPrunesSQLite(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Now().UTC()
	old := now.Add(-120 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	for _, failedAt := range []time.Time{old, recent} {
		require.NoError(t, conn.Create(&models.OutboxDLQ{
			EventType:     enums.EventStudentReady,
			AggregateType: enums.AggregatePickupEvent,
			Payload:       []byte(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			FailedAt:      failedAt,
		}).Error)
	}

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		DB:         db.NewFromGorm(conn),
		Repository: outbox.NewRepository(conn),
		DLQ:        outbox.NewDLQRepository(),
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var remaining []models.OutboxDLQ
	require.NoError(t, conn.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.WithinDuration(t, recent, remaining[0].FailedAt, time.Second)
}

func newOutboxRetentionJob(t *testing.T, params OutboxRetentionJobParams) *outboxRetentionJob {
	t.Helper()
	params.Logger = logger.Nop()
	params.DB = outboxRetentionTxRunner{}
	jobIface, err := NewOutboxRetentionJob(params)
	require.NoError(t, err)
	job, ok := jobIface.(*outboxRetentionJob)
	require.True(t, ok, "expected outboxRetentionJob, got %T", jobIface)
	return job
}

type fakeOutboxRetentionRepo struct {
	lastCutoff  time.Time
	minAttempts int
	called      int
	err         error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	f.minAttempts = minAttemptCount
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

type fakeDLQRetentionRepo struct {
	lastCutoff time.Time
	called     int
}

func (f *fakeDLQRetentionRepo) DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	return 2, nil
}

type outboxRetentionTxRunner struct{}

func (outboxRetentionTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/pkg/config"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/metrics"
	"github.com/angelmondragon/carline-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

// eventSink delivers one resolved outbox row to the configured transport.
type eventSink interface {
	Name() string
	Ping(context.Context) error
	Publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Sink          eventSink
	Repository    outboxRepository
	Registry      registryResolver
	DLQRepository dlqRepository
	Metrics       *metrics.OutboxMetrics
}

// Service drains outbox_events into the configured sink. Each batch runs in
// one transaction holding FOR UPDATE SKIP LOCKED on its rows, so several
// publishers can run side by side.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	sink         eventSink
	registry     registryResolver
	dlq          dlqRepository
	metrics      *metrics.OutboxMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Sink == nil:
		return nil, errors.New("event sink is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	cfg := params.Config.Outbox
	poll := defaultPollInterval
	if cfg.PollIntervalMS > 0 {
		poll = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		sink:         params.Sink,
		registry:     params.Registry,
		dlq:          params.DLQRepository,
		metrics:      params.Metrics,
		batchSize:    orDefault(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  orDefault(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: poll,
	}, nil
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// Run polls until ctx ends. A full batch is followed immediately by the next
// one; an empty batch sleeps one poll interval; a failed batch backs off
// exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	deps := []struct {
		name string
		ping func(context.Context) error
	}{
		{name: "database", ping: s.db.Ping},
		{name: s.sink.Name(), ping: s.sink.Ping},
	}
	for _, dep := range deps {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, dep.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}

	retry := backoff{base: s.pollInterval, max: maxBackoff}
	for ctx.Err() == nil {
		processed, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait = retry.next()
		case processed:
			retry.reset()
			continue
		default:
			retry.reset()
			wait = s.pollInterval
		}
		if err := sleep(ctx, wait+jitter()); err != nil {
			break
		}
	}
	s.logg.Info(ctx, "outbox publisher context canceled")
	return ctx.Err()
}

// tally counts what happened to the rows of one batch.
type tally map[string]int

// processBatch reports whether any rows were claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	start := time.Now()
	counts := tally{}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		for _, event := range events {
			outcome, err := s.deliver(ctx, tx, event)
			if err != nil {
				return err
			}
			counts[outcome]++
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	total := 0
	for outcome, n := range counts {
		s.metrics.AddDeliveries(s.sink.Name(), outcome, n)
		total += n
	}
	if total > 0 {
		s.metrics.ObserveBatch(time.Since(start))
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"published":     counts[metrics.OutboxPublished],
			"retried":       counts[metrics.OutboxRetried],
			"dead_lettered": counts[metrics.OutboxDeadLettered],
		}), "outbox batch drained")
	}
	return total > 0, nil
}

// deliver resolves and publishes one row, then records the result on it.
// The returned error is a storage failure that aborts the batch; publish
// failures are recorded on the row and reported through the outcome.
func (s *Service) deliver(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (string, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return metrics.OutboxDeadLettered, s.deadLetter(ctx, tx, event, nil, enums.OutboxDLQReasonNonRetryable, err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	pubErr := s.sink.Publish(publishCtx, event, resolved)
	cancel()

	fields := s.eventFields(event, resolved)
	if pubErr == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return "", fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return metrics.OutboxPublished, nil
	}

	if registry.IsNonRetryable(pubErr) {
		return metrics.OutboxDeadLettered, s.deadLetter(ctx, tx, event, fields, enums.OutboxDLQReasonNonRetryable, pubErr)
	}
	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= s.maxAttempts {
		terminal := fmt.Errorf("max publish attempts reached: %w", pubErr)
		return metrics.OutboxDeadLettered, s.deadLetter(ctx, tx, event, fields, enums.OutboxDLQReasonMaxAttempts, terminal)
	}

	fields["error"] = pubErr.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox publish failed")
	if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return "", fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return metrics.OutboxRetried, nil
}

// deadLetter copies the row to outbox_dlq and parks it at the attempt ceiling
// so it is never claimed again.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, fields map[string]any, reason enums.OutboxDLQErrorReason, cause error) error {
	if fields == nil {
		fields = s.eventFields(event, nil)
	}
	fields["error_reason"] = reason
	fields["error"] = cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox event will not be retried")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
		"sink":           s.sink.Name(),
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	if resolved == nil {
		return fields
	}
	if resolved.Envelope.EventID != "" {
		fields["event_id"] = resolved.Envelope.EventID
		fields["occurred_at"] = resolved.Envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if resolved.QueueEntryID != uuid.Nil {
		fields["queue_entry_id"] = resolved.QueueEntryID.String()
	}
	if resolved.Descriptor.Topic != "" {
		fields["topic"] = resolved.Descriptor.Topic
	}
	return fields
}

// backoff doubles from base up to max on consecutive failures.
type backoff struct {
	base, max, current time.Duration
}

func (b *backoff) next() time.Duration {
	switch {
	case b.current <= 0:
		b.current = b.base
	case b.current*2 > b.max:
		b.current = b.max
	default:
		b.current *= 2
	}
	return b.current
}

func (b *backoff) reset() { b.current = 0 }

func jitter() time.Duration {
	return rand.N(jitterWindow)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

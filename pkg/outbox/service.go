package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	"github.com/angelmondragon/carline-backend/pkg/logger"
)

// DomainEvent is what services hand to Emit. AggregateType may be left
// empty; it is derived from EventType.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	OccurredAt    time.Time
}

// Emitter writes domain events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit appends one row to outbox_events using tx, so the event commits or
// rolls back with the state change that produced it.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	row, err := s.build(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":       row.ID.String(),
			"event_type":     row.EventType,
			"aggregate_type": row.AggregateType,
			"aggregate_id":   row.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

func (s *Service) build(event DomainEvent) (models.OutboxEvent, error) {
	aggregate := event.EventType.Aggregate()
	switch {
	case aggregate == "":
		return models.OutboxEvent{}, fmt.Errorf("invalid outbox event type %q", event.EventType)
	case event.AggregateType != "" && event.AggregateType != aggregate:
		return models.OutboxEvent{}, fmt.Errorf("%s belongs to %s, not %s", event.EventType, aggregate, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return models.OutboxEvent{}, errors.New("aggregate id required")
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	id := uuid.New()
	payload, err := json.Marshal(Envelope{
		Version:    SchemaVersion,
		EventID:    id.String(),
		OccurredAt: occurred.UTC(),
		Actor:      event.Actor,
		Data:       data,
	})
	if err != nil {
		return models.OutboxEvent{}, err
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: aggregate,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}, nil
}

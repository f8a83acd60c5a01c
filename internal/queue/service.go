package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/pkg/db"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/metrics"
	"github.com/angelmondragon/carline-backend/pkg/outbox"
)

// advisoryLockKey serializes position assignment across API replicas on Postgres.
const advisoryLockKey int64 = 0x6361726c696e65

// Engine is the carline queue engine consumed by the role services.
type Engine interface {
	Enqueue(ctx context.Context, parentID uuid.UUID, studentIDs []uuid.UUID, dismisserID uuid.UUID) (*EnqueueResult, error)
	MarkReady(ctx context.Context, studentID, teacherID uuid.UUID) (*models.StudentPickupEvent, error)
	Dismiss(ctx context.Context, studentID, dismisserID, queueEntryID uuid.UUID) (*models.StudentPickupEvent, error)
	CurrentQueue(ctx context.Context) ([]models.CarlineQueueEntry, error)
	Position(ctx context.Context, queueEntryID uuid.UUID) (*PositionResult, error)
	StudentsForParent(ctx context.Context, parentID uuid.UUID) ([]models.Student, error)
	Entry(ctx context.Context, queueEntryID uuid.UUID) (*models.CarlineQueueEntry, error)
}

// EnqueueResult is the new entry with its QUEUED pickup events.
type EnqueueResult struct {
	QueueEntry   *models.CarlineQueueEntry   `json:"queueEntry"`
	PickupEvents []models.StudentPickupEvent `json:"pickupEvents"`
}

// PositionResult carries the effective rank among open entries.
type PositionResult struct {
	models.CarlineQueueEntry
	PositionInQueue int `json:"positionInQueue"`
}

// ServiceParams wires the engine.
type ServiceParams struct {
	DB                     *gorm.DB
	Tx                     db.TxRunner
	Outbox                 outbox.Emitter
	Metrics                *metrics.QueueMetrics
	Logger                 *logger.Logger
	AllowDuplicateStudents bool
	Now                    func() time.Time
}

// Service implements Engine. Every mutating operation is one transaction.
type Service struct {
	db              *gorm.DB
	tx              db.TxRunner
	outbox          outbox.Emitter
	metrics         *metrics.QueueMetrics
	logg            *logger.Logger
	allowDuplicates bool
	now             func() time.Time
}

var _ Engine = (*Service)(nil)

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("db required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:              params.DB,
		tx:              params.Tx,
		outbox:          params.Outbox,
		metrics:         params.Metrics,
		logg:            params.Logger,
		allowDuplicates: params.AllowDuplicateStudents,
		now:             func() time.Time { return now().UTC() },
	}, nil
}

func (s *Service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/pkg/db/dbtest"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	"github.com/angelmondragon/carline-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	entryID := uuid.New()
	occurred := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventQueueEntryClosed,
			AggregateType: enums.AggregateQueueEntry,
			AggregateID:   entryID,
			OccurredAt:    occurred,
			Data:          payloads.QueueEntryClosedEvent{QueueEntryID: entryID, ProcessedAt: occurred, Reason: payloads.CloseReasonDismissed},
		})
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, conn.Take(&row).Error)
	require.Equal(t, entryID, row.AggregateID)

	var env Envelope
	require.NoError(t, json.Unmarshal(row.Payload, &env))
	require.Equal(t, SchemaVersion, env.Version)
	require.Equal(t, row.ID.String(), env.EventID)
	require.True(t, env.OccurredAt.Equal(occurred))

	var data payloads.QueueEntryClosedEvent
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, payloads.CloseReasonDismissed, data.Reason)
}

func TestEmitRejectsInvalidEvents(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))
	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{EventType: "bogus", AggregateType: enums.AggregateQueueEntry})
	})
	require.Error(t, err)
}

func TestEmitDerivesAggregateType(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	pickupID := uuid.New()

	require.NoError(t, svc.Emit(context.Background(), conn, DomainEvent{
		EventType:   enums.EventStudentReady,
		AggregateID: pickupID,
		Data:        payloads.StudentReadyEvent{QueueEntryID: uuid.New(), PickupEventID: pickupID},
	}))

	var row models.OutboxEvent
	require.NoError(t, conn.Take(&row).Error)
	require.Equal(t, enums.AggregatePickupEvent, row.AggregateType)
}

func TestEmitRejectsAggregateMismatch(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventStudentReady,
		AggregateType: enums.AggregateQueueEntry,
		AggregateID:   uuid.New(),
		Data:          struct{}{},
	})
	require.ErrorContains(t, err, "belongs to pickup_event")

	err = svc.Emit(context.Background(), conn, DomainEvent{EventType: enums.EventQueueEntryClosed, Data: struct{}{}})
	require.ErrorContains(t, err, "aggregate id required")
}

func TestDecodeEnvelope(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"x","data":{"a":1}}`))
	require.NoError(t, err)

	_, err = DecodeEnvelope([]byte(`{"version":2,"data":{}}`))
	require.ErrorContains(t, err, "unsupported envelope version")

	_, err = DecodeEnvelope([]byte(`{"version":1,"data":null}`))
	require.ErrorIs(t, err, errEmptyData)

	_, err = DecodeEnvelope([]byte(`not json`))
	require.Error(t, err)
}

func TestPublishBookkeeping(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	first := models.OutboxEvent{EventType: enums.EventStudentReady, AggregateType: enums.AggregatePickupEvent, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	second := models.OutboxEvent{EventType: enums.EventStudentDismissed, AggregateType: enums.AggregatePickupEvent, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	require.NoError(t, repo.Insert(conn, first))
	require.NoError(t, repo.Insert(conn, second))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkTerminalTx(conn, rows[1].ID, errors.New("bad payload"), 3))

	pending, err := repo.CountPending(3)
	require.NoError(t, err)
	require.Zero(t, pending)

	var parked models.OutboxEvent
	require.NoError(t, conn.Take(&parked, "id = ?", rows[1].ID).Error)
	require.Equal(t, 3, parked.AttemptCount)
	require.Equal(t, "bad payload", *parked.LastError)
}

func TestDeletePublishedBefore(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mk := func(created time.Time, published *time.Time, attempts int) uuid.UUID {
		row := models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     enums.EventStudentReady,
			AggregateType: enums.AggregatePickupEvent,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			CreatedAt:     created,
			PublishedAt:   published,
			AttemptCount:  attempts,
		}
		require.NoError(t, conn.Create(&row).Error)
		return row.ID
	}
	mk(old, &old, 0)
	mk(old, nil, 10)
	keepPending := mk(old, nil, 2)
	keepRecent := mk(recent, &recent, 0)

	deleted, err := repo.DeletePublishedBefore(context.Background(), conn, cutoff, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	var ids []uuid.UUID
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Order("created_at ASC").Pluck("id", &ids).Error)
	require.ElementsMatch(t, []uuid.UUID{keepPending, keepRecent}, ids)
}

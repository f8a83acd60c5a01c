package rabbitmq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carline-backend/pkg/config"
)

type fakeChannel struct {
	err       error
	calls     int
	published []amqp.Publishing
	keys      []string
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _ string, key string, _, _ bool, msg amqp.Publishing) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestBrokerPublishPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	broker := newBrokerWithChannel(ch, "carline.queue.events", NewCircuitBreaker("test", nil))

	err := broker.Publish(context.Background(), Message{ID: "evt-1", Type: "student_ready", Body: []byte(`{"a":1}`)})
	require.NoError(t, err)
	require.Len(t, ch.published, 1)
	require.Equal(t, "carline.queue.events", ch.keys[0])
	require.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	require.Equal(t, "application/json", ch.published[0].ContentType)
	require.Equal(t, "evt-1", ch.published[0].MessageId)
	require.Equal(t, "student_ready", ch.published[0].Type)
}

func TestBrokerBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ch := &fakeChannel{err: errors.New("connection reset")}
	broker := newBrokerWithChannel(ch, "q", NewCircuitBreaker("test", nil))

	for i := 0; i < 3; i++ {
		require.Error(t, broker.Publish(context.Background(), Message{ID: "x"}))
	}
	require.Equal(t, gobreaker.StateOpen, broker.State())

	err := broker.Publish(context.Background(), Message{ID: "x"})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, 3, ch.calls)
}

func TestBrokerPublishCanceledContext(t *testing.T) {
	ch := &fakeChannel{}
	broker := newBrokerWithChannel(ch, "q", NewCircuitBreaker("test", nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, broker.Publish(ctx, Message{}), context.Canceled)
	require.Zero(t, ch.calls)
}

func TestNewBrokerRequiresURL(t *testing.T) {
	_, err := NewBroker(config.RabbitMQConfig{Queue: "q"}, nil)
	require.Error(t, err)
}

package rabbitmq

import (
	"context"
	"errors"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"github.com/angelmondragon/carline-backend/pkg/config"
	"github.com/angelmondragon/carline-backend/pkg/logger"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Message is one event body plus the headers consumers route on.
type Message struct {
	ID        string
	Type      string
	Body      []byte
	Timestamp int64
}

// Broker publishes carline events to a durable queue on the default exchange.
type Broker struct {
	conn      *amqp.Connection
	ch        channel
	queueName string
	cb        *gobreaker.CircuitBreaker
}

// NewBroker dials RabbitMQ and declares the durable events queue.
func NewBroker(cfg config.RabbitMQConfig, logg *logger.Logger) (*Broker, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Broker{
		conn:      conn,
		ch:        ch,
		queueName: cfg.Queue,
		cb:        NewCircuitBreaker("rabbitmq-publisher", logg),
	}, nil
}

func newBrokerWithChannel(ch channel, queueName string, cb *gobreaker.CircuitBreaker) *Broker {
	return &Broker{ch: ch, queueName: queueName, cb: cb}
}

// Publish sends a persistent JSON message through the circuit breaker.
func (b *Broker) Publish(ctx context.Context, msg Message) error {
	if b == nil || b.ch == nil {
		return errors.New("rabbitmq broker not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         msg.Type,
		Body:         msg.Body,
	}
	if msg.Timestamp > 0 {
		publishing.Timestamp = time.Unix(msg.Timestamp, 0).UTC()
	}
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.ch.PublishWithContext(ctx, "", b.queueName, false, false, publishing)
	})
	return err
}

// State exposes the breaker state for readiness checks.
func (b *Broker) State() gobreaker.State {
	if b == nil || b.cb == nil {
		return gobreaker.StateClosed
	}
	return b.cb.State()
}

func (b *Broker) Close() error {
	if b == nil {
		return nil
	}
	if b.ch != nil {
		if err := b.ch.Close(); err != nil {
			return err
		}
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/carline-backend/internal/bootstrap"
	"github.com/angelmondragon/carline-backend/pkg/config"
	"github.com/angelmondragon/carline-backend/pkg/metrics"
	"github.com/angelmondragon/carline-backend/pkg/outbox"
	"github.com/angelmondragon/carline-backend/pkg/outbox/registry"
	"github.com/angelmondragon/carline-backend/pkg/pubsub"
	"github.com/angelmondragon/carline-backend/pkg/rabbitmq"
	"github.com/angelmondragon/carline-backend/pkg/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := bootstrap.MustStart(ctx, "outbox-publisher")
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger
	ctx = rt.Context(ctx)

	sink, err := buildSink(ctx, rt)
	if err != nil {
		rt.Exit(ctx, "failed to bootstrap event sink", err)
	}
	ctx = logg.WithField(ctx, "sink", sink.Name())

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub, cfg.Events)
	if err != nil {
		rt.Exit(ctx, "failed to build event registry", err)
	}
	outboxRepo := outbox.NewRepository(rt.DB.DB())
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            rt.DB,
		Sink:          sink,
		Repository:    outboxRepo,
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(),
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		rt.Exit(ctx, "failed to create outbox publisher", err)
	}

	if pending, err := outboxRepo.CountPending(service.maxAttempts); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "could not count pending outbox rows")
	} else {
		ctx = logg.WithField(ctx, "pending", pending)
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Service.MetricsAddr, logg); err != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()

	logg.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Exit(ctx, "outbox publisher stopped unexpectedly", err)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

// buildSink dials the transport selected by CARLINE_EVENTS_SINK and ties its
// shutdown to the runtime.
func buildSink(ctx context.Context, rt *bootstrap.Runtime) (eventSink, error) {
	cfg := rt.Config
	switch cfg.Events.NormalizedSink() {
	case config.EventSinkRedis:
		client, err := rt.Redis(ctx)
		if err != nil {
			return nil, err
		}
		return redisSink{client: client}, nil
	case config.EventSinkPubSub:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, rt.Logger)
		if err != nil {
			return nil, err
		}
		sink := newPubSubSink(client)
		rt.OnClose("pubsub", func() error {
			sink.Stop()
			return client.Close()
		})
		return sink, nil
	case config.EventSinkRabbitMQ:
		broker, err := rabbitmq.NewBroker(cfg.RabbitMQ, rt.Logger)
		if err != nil {
			return nil, err
		}
		rt.OnClose("rabbitmq", broker.Close)
		return rabbitSink{broker: broker}, nil
	default:
		return discardSink{logg: rt.Logger}, nil
	}
}

var (
	_ eventSink = redisSink{}
	_ eventSink = rabbitSink{}
	_ eventSink = discardSink{}
	_ eventSink = (*pubsubSink)(nil)

	_ redisPublisher = (*redis.Client)(nil)
)

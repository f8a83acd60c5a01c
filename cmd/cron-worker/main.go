package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/carline-backend/internal/bootstrap"
	"github.com/angelmondragon/carline-backend/internal/cron"
	"github.com/angelmondragon/carline-backend/pkg/metrics"
	"github.com/angelmondragon/carline-backend/pkg/outbox"
)

func main() {
	once := flag.Bool("once", false, "run the selected jobs a single time and exit")
	jobs := flag.String("jobs", "", "comma separated job names for -once (default: all)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := bootstrap.MustStart(ctx, "cron-worker")
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger
	ctx = logg.WithField(rt.Context(ctx), "timezone", cfg.Cron.Location().String())

	redisClient, err := rt.Redis(ctx)
	if err != nil {
		rt.Exit(ctx, "failed to bootstrap redis", err)
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.Interval)
	if err != nil {
		rt.Exit(ctx, "failed to create cron lock", err)
	}

	outboxRepo := outbox.NewRepository(rt.DB.DB())
	resetJob, err := cron.NewEndOfDayResetJob(cron.EndOfDayResetJobParams{
		Logger:   logg,
		DB:       rt.DB,
		Outbox:   outbox.NewService(outboxRepo, logg),
		Metrics:  metrics.NewQueueMetrics(prometheus.DefaultRegisterer),
		Location: cfg.Cron.Location(),
	})
	if err != nil {
		rt.Exit(ctx, "failed to create end-of-day reset job", err)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		DB:           rt.DB,
		Repository:   outboxRepo,
		DLQ:          outbox.NewDLQRepository(),
		Retention:    cfg.Outbox.RetentionDays,
		DLQRetention: cfg.Outbox.DLQRetentionDays,
		MinAttempts:  cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		rt.Exit(ctx, "failed to create outbox retention job", err)
	}

	registry, err := cron.NewRegistry(resetJob, retentionJob)
	if err != nil {
		rt.Exit(ctx, "failed to register cron jobs", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		rt.Exit(ctx, "failed to create cron service", err)
	}

	if *once {
		names := splitJobs(*jobs)
		logg.Info(logg.WithField(ctx, "jobs", strings.Join(names, ",")), "running cron jobs once")
		if err := service.RunOnce(ctx, names...); err != nil {
			rt.Exit(ctx, "cron run failed", err)
		}
		return
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Service.MetricsAddr, logg); err != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Exit(ctx, "cron worker stopped unexpectedly", err)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

// lockName scopes the lock per environment so staging and prod workers
// sharing a redis never block each other.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}

func splitJobs(raw string) []string {
	var names []string
	for part := range strings.SplitSeq(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

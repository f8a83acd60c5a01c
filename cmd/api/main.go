package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/carline-backend/api/routes"
	"github.com/angelmondragon/carline-backend/internal/auditlog"
	"github.com/angelmondragon/carline-backend/internal/auth"
	"github.com/angelmondragon/carline-backend/internal/bootstrap"
	"github.com/angelmondragon/carline-backend/internal/dismissers"
	"github.com/angelmondragon/carline-backend/internal/parents"
	"github.com/angelmondragon/carline-backend/internal/queue"
	"github.com/angelmondragon/carline-backend/internal/roster"
	"github.com/angelmondragon/carline-backend/internal/teachers"
	"github.com/angelmondragon/carline-backend/internal/users"
	"github.com/angelmondragon/carline-backend/pkg/auth/session"
	"github.com/angelmondragon/carline-backend/pkg/env"
	"github.com/angelmondragon/carline-backend/pkg/metrics"
	"github.com/angelmondragon/carline-backend/pkg/outbox"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := bootstrap.MustStart(ctx, "api")
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger

	// PORT is set by the hosting platform and wins over config.
	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx = logg.WithField(rt.Context(ctx), "addr", addr)

	redisClient, err := rt.Redis(ctx)
	if err != nil {
		rt.Exit(ctx, "failed to bootstrap redis", err)
	}
	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		rt.Exit(ctx, "failed to create session manager", err)
	}

	services, err := buildServices(rt, sessionManager)
	if err != nil {
		rt.Exit(ctx, "failed to build services", err)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, rt.DB, redisClient, sessionManager, services, promhttp.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		rt.Exit(ctx, "api server stopped unexpectedly", err)
	}
}

func buildServices(rt *bootstrap.Runtime, sessions *session.Manager) (routes.Services, error) {
	cfg, logg, dbClient := rt.Config, rt.Logger, rt.DB

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Services{}, err
	}
	engine, err := queue.NewService(queue.ServiceParams{
		DB:                     dbClient.DB(),
		Tx:                     dbClient,
		Outbox:                 outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Metrics:                metrics.NewQueueMetrics(prometheus.DefaultRegisterer),
		Logger:                 logg,
		AllowDuplicateStudents: cfg.Queue.AllowDuplicateStudents,
	})
	if err != nil {
		return routes.Services{}, err
	}

	rosterRepo := roster.NewRepository(dbClient.DB())
	svc := routes.Services{Auth: authService}
	if svc.Dismissers, err = dismissers.NewService(rosterRepo, engine); err != nil {
		return routes.Services{}, err
	}
	if svc.Teachers, err = teachers.NewService(rosterRepo, engine); err != nil {
		return routes.Services{}, err
	}
	if svc.Parents, err = parents.NewService(rosterRepo, engine); err != nil {
		return routes.Services{}, err
	}
	if svc.AuditLog, err = auditlog.NewService(auditlog.NewRepository(dbClient.DB())); err != nil {
		return routes.Services{}, err
	}
	return svc, nil
}

// Package bootstrap holds the startup sequence shared by every binary:
// .env, config, logger, database and dev migrations.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/carline-backend/pkg/config"
	"github.com/angelmondragon/carline-backend/pkg/db"
	"github.com/angelmondragon/carline-backend/pkg/instance"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/migrate"
	"github.com/angelmondragon/carline-backend/pkg/redis"
)

// Runtime is a started service. Close releases what it opened in reverse order.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client

	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// Start loads configuration for the named service and connects the database.
// On failure anything already opened is closed.
func Start(ctx context.Context, service string) (*Runtime, error) {
	logg := logger.New(logger.Options{ServiceName: service})
	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = service

	rt := &Runtime{
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: service,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		}),
	}

	rt.DB, err = db.New(ctx, cfg.DB, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	rt.OnClose("database", rt.DB.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
		rt.Close()
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return rt, nil
}

// Redis connects the shared redis client and closes it with the runtime.
func (rt *Runtime) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, rt.Config.Redis, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}
	rt.OnClose("redis", client.Close)
	return client, nil
}

// OnClose registers fn to run during Close.
func (rt *Runtime) OnClose(name string, fn func() error) {
	rt.closers = append(rt.closers, closer{name: name, fn: fn})
}

// Close runs every registered closer, newest first, and logs failures.
func (rt *Runtime) Close() {
	var errs error
	for _, c := range slices.Backward(rt.closers) {
		if err := c.fn(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	rt.closers = nil
	if errs != nil {
		rt.Logger.Error(context.Background(), "shutdown finished with errors", errs)
	}
}

// Context tags ctx with the fields every log line of this process carries.
func (rt *Runtime) Context(ctx context.Context) context.Context {
	return rt.Logger.WithFields(ctx, map[string]any{
		"env":         rt.Config.App.Env,
		"serviceKind": rt.Config.Service.Kind,
		"instance":    instance.GetID(),
	})
}

// Exit logs err, releases resources and terminates the process.
func (rt *Runtime) Exit(ctx context.Context, msg string, err error) {
	rt.Logger.Error(ctx, msg, err)
	rt.Close()
	os.Exit(1)
}

// MustStart is Start for main functions: it exits the process on failure.
func MustStart(ctx context.Context, service string) *Runtime {
	rt, err := Start(ctx, service)
	if err != nil {
		logger.New(logger.Options{ServiceName: service}).Error(ctx, "startup failed", err)
		os.Exit(1)
	}
	return rt
}

package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/carline-backend/api/responses"
	"github.com/angelmondragon/carline-backend/pkg/config"
	"github.com/angelmondragon/carline-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

const envHeader = "X-Carline-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings postgres and redis; either failing marks the pod unready.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbPinger db.Pinger, redisPinger redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{"database": "ok", "redis": "ok"}
		var failed error
		if dbPinger == nil {
			checks["database"] = "missing"
			failed = pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")
		} else if err := dbPinger.Ping(ctx); err != nil {
			checks["database"] = "down"
			failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable")
		}
		if redisPinger == nil {
			checks["redis"] = "missing"
			failed = pkgerrors.New(pkgerrors.CodeDependency, "redis unavailable")
		} else if err := redisPinger.Ping(ctx); err != nil {
			checks["redis"] = "down"
			failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable")
		}

		if failed != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.As(failed).WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

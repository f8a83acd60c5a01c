package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/carline-backend/api/controllers"
	"github.com/angelmondragon/carline-backend/api/middleware"
	"github.com/angelmondragon/carline-backend/internal/auth"
	"github.com/angelmondragon/carline-backend/pkg/auth/session"
	"github.com/angelmondragon/carline-backend/pkg/config"
	"github.com/angelmondragon/carline-backend/pkg/db"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer touches.
type RedisStore interface {
	redis.Pinger
	redis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Services groups the role-facing business services mounted under /api.
type Services struct {
	Auth       auth.Service
	Dismissers controllers.DismisserService
	Teachers   controllers.TeacherService
	Parents    controllers.ParentService
	AuditLog   controllers.AuditLogService
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient RedisStore,
	sessionManager session.AccessSessionChecker,
	svcs Services,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, cfg, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, cfg, logg))
		r.With(middleware.Auth(cfg.JWT, cfg.Cookie, sessionManager, logg)).Get("/me", controllers.AuthMe(svcs.Auth, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, cfg.Cookie, sessionManager, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/dismisser", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleDismisser, logg))
			r.Get("/parents", controllers.DismisserParents(svcs.Dismissers, logg))
			r.Get("/queue", controllers.DismisserQueue(svcs.Dismissers, logg))
			r.Get("/queue/{queueEntryId}", controllers.DismisserQueueEntry(svcs.Dismissers, logg))
			r.Post("/queue", controllers.DismisserEnqueue(svcs.Dismissers, logg))
			r.Post("/dismiss", controllers.DismisserDismiss(svcs.Dismissers, logg))
		})

		r.Route("/teacher", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleTeacher, logg))
			r.Get("/students", controllers.TeacherStudents(svcs.Teachers, logg))
			r.Post("/mark-ready", controllers.TeacherMarkReady(svcs.Teachers, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
			r.Get("/logs", controllers.AdminLogs(svcs.AuditLog, logg))
		})

		r.Route("/parent", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleParent, logg))
			r.Get("/students", controllers.ParentStudents(svcs.Parents, logg))
		})
	})

	return r
}

package middleware

import (
	"net/http"

	"github.com/angelmondragon/carline-backend/api/responses"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/logger"
)

// RequireRole rejects callers whose role is not role. Must run after Auth.
func RequireRole(role enums.UserRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := IdentityFromContext(ctx); !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, unauthorizedMessage))
				return
			}
			if got := RoleFromContext(ctx); got != role {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"required_role": role,
						"actor_role":    got,
					}), "role check failed")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "Forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

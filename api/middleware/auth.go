package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/carline-backend/api/responses"
	pkgAuth "github.com/angelmondragon/carline-backend/pkg/auth"
	"github.com/angelmondragon/carline-backend/pkg/auth/session"
	"github.com/angelmondragon/carline-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/logger"
)

const unauthorizedMessage = "Unauthorized"

// TokenFromRequest prefers the auth cookie and falls back to a bearer header.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil {
		if v := strings.TrimSpace(cookie.Value); v != "" {
			return v
		}
	}
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}

// Auth verifies the session token and seeds the request context with the caller.
func Auth(cfg config.JWTConfig, cookie config.CookieConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, cookie.Name)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, unauthorizedMessage))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, unauthorizedMessage))
				return
			}
			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, unauthorizedMessage))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID, claims.UserID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, unauthorizedMessage))
					return
				}
			}

			identity := claims.Identity()
			ctx := WithIdentity(r.Context(), identity)
			if logg != nil {
				ctx = logg.WithUserID(ctx, identity.UserID.String())
				ctx = logg.WithActorRole(ctx, string(identity.Role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

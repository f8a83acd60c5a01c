package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carline-backend/api/middleware"
	"github.com/angelmondragon/carline-backend/api/responses"
	"github.com/angelmondragon/carline-backend/api/validators"
	"github.com/angelmondragon/carline-backend/internal/auth"
	"github.com/angelmondragon/carline-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/types"
)

type loginResponse struct {
	Success bool `json:"success"`
	*auth.LoginResponse
}

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, authCookie(cfg, result.AccessToken, int(cfg.JWT.TTL().Seconds())))
		w.Header().Set(middleware.TokenHeader, result.AccessToken)
		responses.WriteSuccess(w, loginResponse{Success: true, LoginResponse: result})
	}
}

// AuthLogout revokes the caller's session and clears the auth cookie.
func AuthLogout(svc auth.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc != nil {
			token := middleware.TokenFromRequest(r, cfg.Cookie.Name)
			if err := svc.Logout(r.Context(), token); err != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "auth.logout_revoke_failed")
			}
		}

		http.SetCookie(w, authCookie(cfg, "", -1))
		responses.WriteSuccess(w, types.MutationResult{Success: true, Message: "Logged out successfully"})
	}
}

// AuthMe returns the caller's account.
func AuthMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"))
			return
		}

		user, err := svc.Me(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"user": user})
	}
}

func authCookie(cfg *config.Config, value string, maxAge int) *http.Cookie {
	cookie := &http.Cookie{
		Name:     cfg.Cookie.Name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Cookie.Secure || cfg.App.IsProd(),
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		cookie.Expires = time.Unix(0, 0)
	}
	return cookie
}

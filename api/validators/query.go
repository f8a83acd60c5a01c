package validators

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
)

// ParseUUIDParam reads a chi route parameter as a UUID.
func ParseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, key+" is required").WithDetails(map[string]any{"field": key})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, key+" must be a valid id").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

// QueryValue returns a trimmed, length-capped query parameter.
func QueryValue(r *http.Request, key string) string {
	return SanitizeString(r.URL.Query().Get(key), 64)
}

package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/carline-backend/api/middleware"
	"github.com/angelmondragon/carline-backend/api/responses"
	"github.com/angelmondragon/carline-backend/internal/parents"
	"github.com/angelmondragon/carline-backend/pkg/logger"
)

type ParentService interface {
	Students(ctx context.Context, userID uuid.UUID) ([]parents.StudentView, error)
}

// ParentStudents lists the caller's children with their pickup progress.
func ParentStudents(svc ParentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		students, err := svc.Students(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if students == nil {
			students = []parents.StudentView{}
		}
		responses.WriteSuccess(w, map[string]any{"students": students})
	}
}

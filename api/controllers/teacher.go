package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/carline-backend/api/middleware"
	"github.com/angelmondragon/carline-backend/api/responses"
	"github.com/angelmondragon/carline-backend/api/validators"
	"github.com/angelmondragon/carline-backend/internal/teachers"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/types"
)

// TeacherService backs the classroom routes.
type TeacherService interface {
	Students(ctx context.Context, userID uuid.UUID) ([]teachers.StudentView, error)
	MarkReady(ctx context.Context, userID, studentID uuid.UUID) (*teachers.MarkReadyResult, error)
}

type markReadyRequest struct {
	StudentID string `json:"studentId" validate:"required,uuid"`
}

type markReadyResponse struct {
	types.MutationResult
	PickupEvent *models.StudentPickupEvent `json:"pickupEvent"`
}

func TeacherStudents(svc TeacherService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		students, err := svc.Students(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if students == nil {
			students = []teachers.StudentView{}
		}
		responses.WriteSuccess(w, map[string]any{"students": students})
	}
}

// TeacherMarkReady sends one of the caller's students to the curb.
func TeacherMarkReady(svc TeacherService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body markReadyRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.MarkReady(r.Context(), middleware.UserIDFromContext(r.Context()), uuid.MustParse(body.StudentID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mark ready returned no result"))
			return
		}

		responses.WriteSuccess(w, markReadyResponse{
			MutationResult: types.MutationResult{
				Success: true,
				Message: fmt.Sprintf("%s has been marked as ready for pickup by %s", result.StudentName, result.ParentName),
			},
			PickupEvent: result.PickupEvent,
		})
	}
}

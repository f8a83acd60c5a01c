package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/carline-backend/api/middleware"
	"github.com/angelmondragon/carline-backend/api/responses"
	"github.com/angelmondragon/carline-backend/api/validators"
	"github.com/angelmondragon/carline-backend/internal/dismissers"
	"github.com/angelmondragon/carline-backend/internal/queue"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/types"
)

// DismisserService is the curb-side surface used by the dismisser routes.
type DismisserService interface {
	ListParents(ctx context.Context) ([]dismissers.ParentSummary, error)
	Queue(ctx context.Context) ([]models.CarlineQueueEntry, error)
	QueueEntry(ctx context.Context, queueEntryID uuid.UUID) (*queue.PositionResult, error)
	Enqueue(ctx context.Context, userID uuid.UUID, input dismissers.EnqueueInput) (*queue.EnqueueResult, error)
	Dismiss(ctx context.Context, userID uuid.UUID, input dismissers.DismissInput) (*dismissers.DismissResult, error)
}

type enqueueRequest struct {
	ParentID   string   `json:"parentId" validate:"required,uuid"`
	StudentIDs []string `json:"studentIds" validate:"required,min=1,unique,dive,uuid"`
}

type dismissRequest struct {
	StudentID    string `json:"studentId" validate:"required,uuid"`
	QueueEntryID string `json:"queueEntryId" validate:"required,uuid"`
}

type enqueueResponse struct {
	types.MutationResult
	*queue.EnqueueResult
}

type dismissResponse struct {
	types.MutationResult
	PickupEvent *models.StudentPickupEvent `json:"pickupEvent"`
}

// DismisserParents lists every parent with their authorized students.
func DismisserParents(svc DismisserService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parents, err := svc.ListParents(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"parents": parents})
	}
}

// DismisserQueue returns the open queue entries by position.
func DismisserQueue(svc DismisserService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.Queue(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if entries == nil {
			entries = []models.CarlineQueueEntry{}
		}
		responses.WriteSuccess(w, map[string]any{"queue": entries})
	}
}

// DismisserQueueEntry returns one entry with its effective position.
func DismisserQueueEntry(svc DismisserService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := validators.ParseUUIDParam(r, "queueEntryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.QueueEntry(r.Context(), entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// DismisserEnqueue checks a parent in and queues the selected students.
func DismisserEnqueue(svc DismisserService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body enqueueRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := dismissers.EnqueueInput{ParentID: uuid.MustParse(body.ParentID)}
		for _, raw := range body.StudentIDs {
			input.StudentIDs = append(input.StudentIDs, uuid.MustParse(raw))
		}

		result, err := svc.Enqueue(r.Context(), middleware.UserIDFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if result != nil && result.QueueEntry != nil {
			ctx := logg.WithQueueEntryID(r.Context(), result.QueueEntry.ID.String())
			logg.Info(ctx, "queue.enqueued")
		}
		responses.WriteSuccess(w, enqueueResponse{
			MutationResult: types.MutationResult{Success: true},
			EnqueueResult:  result,
		})
	}
}

// DismisserDismiss hands a READY student to their parent.
func DismisserDismiss(svc DismisserService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body dismissRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Dismiss(r.Context(), middleware.UserIDFromContext(r.Context()), dismissers.DismissInput{
			StudentID:    uuid.MustParse(body.StudentID),
			QueueEntryID: uuid.MustParse(body.QueueEntryID),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dismiss returned no result"))
			return
		}

		responses.WriteSuccess(w, dismissResponse{
			MutationResult: types.MutationResult{
				Success: true,
				Message: fmt.Sprintf("%s has been dismissed successfully", result.StudentName),
			},
			PickupEvent: result.PickupEvent,
		})
	}
}

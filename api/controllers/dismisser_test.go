package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carline-backend/internal/dismissers"
	"github.com/angelmondragon/carline-backend/internal/queue"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/logger"
)

type stubDismisserService struct {
	parents    []dismissers.ParentSummary
	queue      []models.CarlineQueueEntry
	position   *queue.PositionResult
	enqueue    *queue.EnqueueResult
	dismiss    *dismissers.DismissResult
	err        error
	gotUser    uuid.UUID
	gotEnqueue dismissers.EnqueueInput
	gotDismiss dismissers.DismissInput
	gotEntryID uuid.UUID
}

func (s *stubDismisserService) ListParents(ctx context.Context) ([]dismissers.ParentSummary, error) {
	return s.parents, s.err
}

func (s *stubDismisserService) Queue(ctx context.Context) ([]models.CarlineQueueEntry, error) {
	return s.queue, s.err
}

func (s *stubDismisserService) QueueEntry(ctx context.Context, queueEntryID uuid.UUID) (*queue.PositionResult, error) {
	s.gotEntryID = queueEntryID
	return s.position, s.err
}

func (s *stubDismisserService) Enqueue(ctx context.Context, userID uuid.UUID, input dismissers.EnqueueInput) (*queue.EnqueueResult, error) {
	s.gotUser = userID
	s.gotEnqueue = input
	return s.enqueue, s.err
}

func (s *stubDismisserService) Dismiss(ctx context.Context, userID uuid.UUID, input dismissers.DismissInput) (*dismissers.DismissResult, error) {
	s.gotUser = userID
	s.gotDismiss = input
	return s.dismiss, s.err
}

func TestDismisserParentsWrapsList(t *testing.T) {
	svc := &stubDismisserService{parents: []dismissers.ParentSummary{{ID: uuid.New(), Name: "Jordan Lee", Status: enums.ParentStatusNotArrived}}}

	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/dismisser/parents", nil), enums.UserRoleDismisser)
	resp := httptest.NewRecorder()
	DismisserParents(svc, logger.Nop()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	parents, ok := decodeData(t, resp.Body)["parents"].([]any)
	require.True(t, ok)
	require.Len(t, parents, 1)
	assert.Equal(t, "Jordan Lee", parents[0].(map[string]any)["name"])
}

func TestDismisserQueueEmptyIsArray(t *testing.T) {
	svc := &stubDismisserService{}

	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/dismisser/queue", nil), enums.UserRoleDismisser)
	resp := httptest.NewRecorder()
	DismisserQueue(svc, logger.Nop()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":{"queue":[]}}`, resp.Body.String())
}

func TestDismisserQueueEntryParsesParam(t *testing.T) {
	entryID := uuid.New()
	svc := &stubDismisserService{position: &queue.PositionResult{
		CarlineQueueEntry: models.CarlineQueueEntry{ID: entryID, Position: 4},
		PositionInQueue:   2,
	}}

	router := chi.NewRouter()
	router.Get("/api/dismisser/queue/{queueEntryId}", DismisserQueueEntry(svc, logger.Nop()))

	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/dismisser/queue/"+entryID.String(), nil), enums.UserRoleDismisser)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, entryID, svc.gotEntryID)
	assert.EqualValues(t, 2, decodeData(t, resp.Body)["positionInQueue"])
}

func TestDismisserQueueEntryRejectsBadID(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/api/dismisser/queue/{queueEntryId}", DismisserQueueEntry(&stubDismisserService{}, logger.Nop()))

	req := httptest.NewRequest(http.MethodGet, "/api/dismisser/queue/not-a-uuid", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDismisserEnqueueSuccess(t *testing.T) {
	parentID := uuid.New()
	studentID := uuid.New()
	entry := &models.CarlineQueueEntry{ID: uuid.New(), ParentID: parentID, Position: 1}
	svc := &stubDismisserService{enqueue: &queue.EnqueueResult{
		QueueEntry:   entry,
		PickupEvents: []models.StudentPickupEvent{{ID: uuid.New(), StudentID: studentID, QueueEntryID: entry.ID, Status: enums.PickupStatusQueued}},
	}}

	body := `{"parentId":"` + parentID.String() + `","studentIds":["` + studentID.String() + `"]}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/dismisser/queue", bytes.NewBufferString(body)), enums.UserRoleDismisser)
	resp := httptest.NewRecorder()
	DismisserEnqueue(svc, logger.Nop()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotEqual(t, uuid.Nil, svc.gotUser)
	assert.Equal(t, parentID, svc.gotEnqueue.ParentID)
	assert.Equal(t, []uuid.UUID{studentID}, svc.gotEnqueue.StudentIDs)

	data := decodeData(t, resp.Body)
	assert.Equal(t, true, data["success"])
	assert.NotNil(t, data["queueEntry"])
	events, ok := data["pickupEvents"].([]any)
	require.True(t, ok)
	assert.Len(t, events, 1)
	assert.NotContains(t, data, "message")
}

func TestDismisserEnqueueValidation(t *testing.T) {
	cases := map[string]string{
		"missing parent":    `{"studentIds":["` + uuid.NewString() + `"]}`,
		"empty students":    `{"parentId":"` + uuid.NewString() + `","studentIds":[]}`,
		"bad student id":    `{"parentId":"` + uuid.NewString() + `","studentIds":["nope"]}`,
		"unknown field":     `{"parentId":"` + uuid.NewString() + `","studentIds":["` + uuid.NewString() + `"],"extra":1}`,
		"duplicate student": `{"parentId":"` + uuid.NewString() + `","studentIds":["11111111-1111-1111-1111-111111111111","11111111-1111-1111-1111-111111111111"]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubDismisserService{}
			req := withCaller(httptest.NewRequest(http.MethodPost, "/api/dismisser/queue", bytes.NewBufferString(body)), enums.UserRoleDismisser)
			resp := httptest.NewRecorder()
			DismisserEnqueue(svc, logger.Nop()).ServeHTTP(resp, req)

			require.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, uuid.Nil, svc.gotEnqueue.ParentID)
		})
	}
}

func TestDismisserEnqueueMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{pkgerrors.New(pkgerrors.CodeForbidden, "Not authorized to pick up one or more students"), http.StatusForbidden},
		{pkgerrors.New(pkgerrors.CodeNotFound, "Parent not found"), http.StatusNotFound},
		{pkgerrors.New(pkgerrors.CodeConflict, "Student already queued"), http.StatusConflict},
	}
	for _, tc := range cases {
		svc := &stubDismisserService{err: tc.err}
		body := `{"parentId":"` + uuid.NewString() + `","studentIds":["` + uuid.NewString() + `"]}`
		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/dismisser/queue", bytes.NewBufferString(body)), enums.UserRoleDismisser)
		resp := httptest.NewRecorder()
		DismisserEnqueue(svc, logger.Nop()).ServeHTTP(resp, req)

		require.Equal(t, tc.status, resp.Code)
		assert.Equal(t, pkgerrors.As(tc.err).Message(), decodeError(t, resp.Body)["error"])
	}
}

func TestDismisserDismissMessage(t *testing.T) {
	studentID := uuid.New()
	entryID := uuid.New()
	svc := &stubDismisserService{dismiss: &dismissers.DismissResult{
		PickupEvent: &models.StudentPickupEvent{ID: uuid.New(), StudentID: studentID, QueueEntryID: entryID, Status: enums.PickupStatusDismissed},
		StudentName: "Sam Lee",
	}}

	body := `{"studentId":"` + studentID.String() + `","queueEntryId":"` + entryID.String() + `"}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/dismisser/dismiss", bytes.NewBufferString(body)), enums.UserRoleDismisser)
	resp := httptest.NewRecorder()
	DismisserDismiss(svc, logger.Nop()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, studentID, svc.gotDismiss.StudentID)
	assert.Equal(t, entryID, svc.gotDismiss.QueueEntryID)

	data := decodeData(t, resp.Body)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, "Sam Lee has been dismissed successfully", data["message"])
	event, ok := data["pickupEvent"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "DISMISSED", event["status"])
}

func TestDismisserDismissNotReady(t *testing.T) {
	svc := &stubDismisserService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "Student is not ready for dismissal")}

	body := `{"studentId":"` + uuid.NewString() + `","queueEntryId":"` + uuid.NewString() + `"}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/dismisser/dismiss", bytes.NewBufferString(body)), enums.UserRoleDismisser)
	resp := httptest.NewRecorder()
	DismisserDismiss(svc, logger.Nop()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Student is not ready for dismissal", decodeError(t, resp.Body)["error"])
}

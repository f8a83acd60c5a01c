package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carline-backend/internal/auditlog"
	"github.com/angelmondragon/carline-backend/pkg/config"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/pagination"
)

type stubAuditLogService struct {
	page   *auditlog.Page
	err    error
	filter auditlog.Filter
}

func (s *stubAuditLogService) List(ctx context.Context, f auditlog.Filter) (*auditlog.Page, error) {
	s.filter = f
	return s.page, s.err
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func TestAdminLogsPassesFilters(t *testing.T) {
	svc := &stubAuditLogService{page: &auditlog.Page{
		Logs: []auditlog.Log{{
			ID:      uuid.New(),
			Student: auditlog.StudentRef{Name: "Ava Smith", Grade: "2", Teacher: "Ms. Rivera"},
			Parent:  auditlog.ParentRef{Name: "Pat Smith", Email: "pat@school.test"},
			Status:  enums.PickupStatusDismissed,
		}},
		Pagination: pagination.Meta{Page: 2, Limit: 10, Total: 11, TotalPages: 2},
	}}

	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/admin/logs?page=2&limit=10&dateFrom=2026-01-05&dateTo=2026-01-06&status=DISMISSED", nil), enums.UserRoleAdmin)
	resp := httptest.NewRecorder()
	AdminLogs(svc, logger.Nop()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, auditlog.Filter{Page: "2", Limit: "10", DateFrom: "2026-01-05", DateTo: "2026-01-06", Status: "DISMISSED"}, svc.filter)

	data := decodeData(t, resp.Body)
	logs, ok := data["logs"].([]any)
	require.True(t, ok)
	require.Len(t, logs, 1)
	meta, ok := data["pagination"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 11, meta["total"])
	assert.EqualValues(t, 2, meta["totalPages"])
}

func TestAdminLogsInvalidStatus(t *testing.T) {
	svc := &stubAuditLogService{err: pkgerrors.New(pkgerrors.CodeValidation, "Invalid status filter")}

	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/admin/logs?status=LOST", nil), enums.UserRoleAdmin)
	resp := httptest.NewRecorder()
	AdminLogs(svc, logger.Nop()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Invalid status filter", decodeError(t, resp.Body)["error"])
}

func TestHealthLive(t *testing.T) {
	resp := httptest.NewRecorder()
	HealthLive(testConfig()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "dev", resp.Header().Get("X-Carline-Env"))
	assert.Equal(t, "live", decodeData(t, resp.Body)["status"])
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, logger.Nop(), stubPinger{}, stubPinger{}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ready", decodeData(t, resp.Body)["status"])

	resp = httptest.NewRecorder()
	HealthReady(cfg, logger.Nop(), stubPinger{}, stubPinger{err: errors.New("dial tcp: refused")}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	payload := decodeError(t, resp.Body)
	details, ok := payload["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", details["database"])
	assert.Equal(t, "down", details["redis"])
}

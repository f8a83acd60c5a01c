package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/carline-backend/api/responses"
	"github.com/angelmondragon/carline-backend/api/validators"
	"github.com/angelmondragon/carline-backend/internal/auditlog"
	"github.com/angelmondragon/carline-backend/pkg/logger"
)

// AuditLogService pages through dismissal history.
type AuditLogService interface {
	List(ctx context.Context, f auditlog.Filter) (*auditlog.Page, error)
}

// AdminLogs returns pickup events newest first with optional filters.
func AdminLogs(svc AuditLogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := auditlog.Filter{
			Page:     validators.QueryValue(r, "page"),
			Limit:    validators.QueryValue(r, "limit"),
			DateFrom: validators.QueryValue(r, "dateFrom"),
			DateTo:   validators.QueryValue(r, "dateTo"),
			Status:   validators.QueryValue(r, "status"),
		}

		page, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

package auditlog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/pagination"
)

// Filter carries the raw admin query string values.
type Filter struct {
	Page     string
	Limit    string
	DateFrom string
	DateTo   string
	Status   string
}

type Log struct {
	ID        uuid.UUID          `json:"id"`
	Student   StudentRef         `json:"student"`
	Parent    ParentRef          `json:"parent"`
	Dismisser *DismisserRef      `json:"dismisser"`
	Status    enums.PickupStatus `json:"status"`
	// DismissalMethod is null until the event is dismissed.
	DismissalMethod *enums.DismissalMethod `json:"dismissalMethod"`
	Timeline        Timeline               `json:"timeline"`
}

type StudentRef struct {
	Name    string `json:"name"`
	Grade   string `json:"grade"`
	Teacher string `json:"teacher"`
}

type ParentRef struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type DismisserRef struct {
	Name string `json:"name"`
}

type Timeline struct {
	Queued          time.Time  `json:"queued"`
	NotifiedTeacher *time.Time `json:"notifiedTeacher"`
	Dismissed       *time.Time `json:"dismissed"`
	QueuePosition   *int       `json:"queuePosition"`
	QueuedAt        *time.Time `json:"queuedAt"`
	ProcessedAt     *time.Time `json:"processedAt"`
}

type Page struct {
	Logs       []Log           `json:"logs"`
	Pagination pagination.Meta `json:"pagination"`
}

type store interface {
	List(ctx context.Context, q Query) ([]models.StudentPickupEvent, int64, error)
}

type Service struct {
	repo store
}

func NewService(repo store) (*Service, error) {
	if repo == nil {
		return nil, errors.New("audit log repository required")
	}
	return &Service{repo: repo}, nil
}

// List validates the filter and returns the matching page of dismissal history.
func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	q, err := parseFilter(f)
	if err != nil {
		return nil, err
	}
	events, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pickup events")
	}

	logs := make([]Log, 0, len(events))
	for i := range events {
		logs = append(logs, toLog(&events[i]))
	}
	return &Page{Logs: logs, Pagination: pagination.NewMeta(q.Page, total)}, nil
}

func parseFilter(f Filter) (Query, error) {
	params, err := pagination.ParseParams(f.Page, f.Limit)
	if err != nil {
		return Query{}, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	q := Query{Page: params}

	if v := strings.TrimSpace(f.DateFrom); v != "" {
		from, _, err := parseDate(v)
		if err != nil {
			return Query{}, pkgerrors.New(pkgerrors.CodeValidation, "dateFrom must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		q.DateFrom = &from
	}
	if v := strings.TrimSpace(f.DateTo); v != "" {
		to, dateOnly, err := parseDate(v)
		if err != nil {
			return Query{}, pkgerrors.New(pkgerrors.CodeValidation, "dateTo must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		// a bare date includes the whole day
		if dateOnly {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		q.DateTo = &to
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateTo.Before(*q.DateFrom) {
		return Query{}, pkgerrors.New(pkgerrors.CodeValidation, "dateTo must not be before dateFrom")
	}

	if v := strings.TrimSpace(f.Status); v != "" {
		status, err := enums.ParsePickupStatus(v)
		if err != nil {
			return Query{}, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		q.Status = status
	}
	return q, nil
}

func parseDate(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), false, nil
}

func toLog(ev *models.StudentPickupEvent) Log {
	log := Log{
		ID:              ev.ID,
		Status:          ev.Status,
		DismissalMethod: ev.DismissalMethod,
		Timeline: Timeline{
			Queued:          ev.CreatedAt,
			NotifiedTeacher: ev.NotifiedTeacherAt,
			Dismissed:       ev.DismissedAt,
		},
	}
	if st := ev.Student; st != nil {
		log.Student = StudentRef{Name: st.Name, Grade: st.Grade}
		if st.Teacher != nil {
			log.Student.Teacher = st.Teacher.User.Name
		}
	}
	if p := ev.Parent; p != nil {
		log.Parent = ParentRef{Name: p.User.Name, Email: p.User.Email}
	}
	if d := ev.Dismisser; d != nil {
		log.Dismisser = &DismisserRef{Name: d.User.Name}
	}
	if e := ev.QueueEntry; e != nil {
		position := e.Position
		queuedAt := e.CreatedAt
		log.Timeline.QueuePosition = &position
		log.Timeline.QueuedAt = &queuedAt
		log.Timeline.ProcessedAt = e.ProcessedAt
	}
	return log
}

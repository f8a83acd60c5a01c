package auditlog

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/internal/repo"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	"github.com/angelmondragon/carline-backend/pkg/pagination"
)

// Query narrows the pickup history. Zero values disable a filter.
type Query struct {
	Page     pagination.Params
	DateFrom *time.Time
	DateTo   *time.Time
	Status   enums.PickupStatus
}

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) filtered(ctx context.Context, q Query) *gorm.DB {
	tx := r.DB(ctx).Model(&models.StudentPickupEvent{})
	if q.DateFrom != nil {
		tx = tx.Where("created_at >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		tx = tx.Where("created_at <= ?", *q.DateTo)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	return tx
}

// List returns one page of pickup events, newest first, and the filtered total.
func (r *Repository) List(ctx context.Context, q Query) ([]models.StudentPickupEvent, int64, error) {
	var total int64
	if err := r.filtered(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := q.Page.Normalize()
	var events []models.StudentPickupEvent
	err := r.filtered(ctx, q).
		Preload("Student.Teacher.User").
		Preload("Parent.User").
		Preload("Dismisser.User").
		Preload("QueueEntry").
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

package coretracking

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/internal/repo"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

// Repository persists core charges.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Tx(tx)}
}

func (r *Repository) FindPart(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.DB(ctx).First(&part, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *Repository) CustomerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Customer{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *Repository) Create(ctx context.Context, core *models.CoreCharge) error {
	return r.DB(ctx).Create(core).Error
}

func (r *Repository) Find(ctx context.Context, id uuid.UUID) (*models.CoreCharge, error) {
	var core models.CoreCharge
	if err := r.DB(ctx).First(&core, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &core, nil
}

// Transition applies updates only while the row is still in status from.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.CoreStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.DB(ctx).
		Model(&models.CoreCharge{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	return res.RowsAffected == 1, res.Error
}

// Query filters the core charge listing.
type Query struct {
	Status     *enums.CoreStatus
	CustomerID *uuid.UUID
	PartID     *uuid.UUID
	Cursor     *pagination.Cursor
	Limit      int
}

func (r *Repository) List(ctx context.Context, q Query) ([]models.CoreCharge, error) {
	query := r.DB(ctx).Model(&models.CoreCharge{})
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.CustomerID != nil {
		query = query.Where("customer_id = ?", *q.CustomerID)
	}
	if q.PartID != nil {
		query = query.Where("part_id = ?", *q.PartID)
	}
	query = query.Scopes(pagination.Keyset("created_at", q.Cursor, q.Limit))
	var rows []models.CoreCharge
	err := query.Find(&rows).Error
	return rows, err
}

type valueTotal struct {
	Count int64           `gorm:"column:count"`
	Total decimal.Decimal `gorm:"column:total"`
}

// TotalByStatus sums core value over rows in status.
func (r *Repository) TotalByStatus(ctx context.Context, status enums.CoreStatus) (int64, decimal.Decimal, error) {
	var out valueTotal
	err := r.DB(ctx).
		Model(&models.CoreCharge{}).
		Select("COUNT(*) AS count, COALESCE(SUM(core_value), 0) AS total").
		Where("status = ?", status).
		Scan(&out).Error
	return out.Count, out.Total, err
}

package settings

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dealerworks/dms-backend/internal/repo"
	"github.com/dealerworks/dms-backend/pkg/db/models"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Find(ctx context.Context, key string) (*models.DashboardSettings, error) {
	var row models.DashboardSettings
	if err := r.DB(ctx).First(&row, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Save upserts the full row keyed by Key.
func (r *Repository) Save(ctx context.Context, row *models.DashboardSettings) error {
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"retention_rate", "satisfaction_score", "updated_by", "updated_at"}),
		}).
		Create(row).Error
}

func (r *Repository) CountCustomers(ctx context.Context, since *time.Time) (int64, error) {
	query := r.DB(ctx).Model(&models.Customer{})
	if since != nil {
		query = query.Where("created_at >= ?", since.UTC())
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

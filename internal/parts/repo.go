package parts

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/internal/repo"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

// Repository persists the parts catalog and stocking locations.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Tx(tx)}
}

func (r *Repository) CreatePart(ctx context.Context, part *models.Part) error {
	return r.DB(ctx).Create(part).Error
}

func (r *Repository) FindPart(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.DB(ctx).First(&part, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

// FindPartByNumber matches the stored part number exactly; numbers are
// normalized to upper case on write.
func (r *Repository) FindPartByNumber(ctx context.Context, number string) (*models.Part, error) {
	var part models.Part
	if err := r.DB(ctx).First(&part, "part_number = ?", number).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *Repository) UpdatePart(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.DB(ctx).Model(&models.Part{}).Where("id = ?", id).Updates(updates).Error
}

// PartQuery narrows the catalog listing.
type PartQuery struct {
	Search          string
	Category        string
	IncludeInactive bool
	Cursor          *pagination.Cursor
	Limit           int
}

func (r *Repository) ListParts(ctx context.Context, q PartQuery) ([]models.Part, error) {
	query := r.DB(ctx).Model(&models.Part{})
	if !q.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		like := "%" + term + "%"
		query = query.Where("(LOWER(part_number) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	if category := strings.TrimSpace(q.Category); category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(category))
	}
	query = query.Scopes(pagination.Keyset("created_at", q.Cursor, q.Limit))

	var rows []models.Part
	err := query.Find(&rows).Error
	return rows, err
}

// StockRow is one inventory record joined with its location.
type StockRow struct {
	models.InventoryRecord
	LocationCode string `gorm:"column:location_code"`
	LocationName string `gorm:"column:location_name"`
}

func (r *Repository) StockByPart(ctx context.Context, partID uuid.UUID) ([]StockRow, error) {
	var rows []StockRow
	err := r.DB(ctx).
		Table("inventory_records AS ir").
		Select("ir.*, l.code AS location_code, l.name AS location_name").
		Joins("JOIN locations l ON l.id = ir.location_id").
		Where("ir.part_id = ?", partID).
		Order("l.code ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) CreateLocation(ctx context.Context, location *models.Location) error {
	return r.DB(ctx).Create(location).Error
}

func (r *Repository) ListLocations(ctx context.Context, includeInactive bool) ([]models.Location, error) {
	query := r.DB(ctx).Model(&models.Location{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var rows []models.Location
	err := query.Order("code ASC").Find(&rows).Error
	return rows, err
}

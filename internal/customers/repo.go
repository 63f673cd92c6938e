package customers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/internal/repo"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.DB(ctx).Create(customer).Error
}

func (r *Repository) Find(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.DB(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *Repository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Customer{}).Where("LOWER(email) = ?", strings.ToLower(email)).Count(&count).Error
	return count > 0, err
}

// FindAccount returns nil without error when the customer is not enrolled.
func (r *Repository) FindAccount(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyAccount, error) {
	var rows []models.LoyaltyAccount
	if err := r.DB(ctx).Where("customer_id = ?", customerID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

type Query struct {
	Search string
	Cursor *pagination.Cursor
	Limit  int
}

func (r *Repository) List(ctx context.Context, q Query) ([]models.Customer, error) {
	query := r.DB(ctx).Model(&models.Customer{})
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		like := "%" + term + "%"
		query = query.Where(
			"(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?)",
			like, like, like,
		)
	}
	var rows []models.Customer
	err := query.Scopes(pagination.Keyset("created_at", q.Cursor, q.Limit)).Find(&rows).Error
	return rows, err
}

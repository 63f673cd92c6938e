package customers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dealerworks/dms-backend/pkg/db"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

type CustomerDTO struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CustomerDetailDTO adds the loyalty standing when the customer is enrolled.
type CustomerDetailDTO struct {
	CustomerDTO
	LoyaltyTier   *enums.LoyaltyTier `json:"loyalty_tier,omitempty"`
	LoyaltyPoints *int               `json:"loyalty_points,omitempty"`
}

type CustomerListDTO struct {
	Items      []CustomerDTO `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type CreateInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*CustomerDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CustomerDetailDTO, error)
	List(ctx context.Context, search string, params pagination.Params) (*CustomerListDTO, error)
}

type service struct {
	repo     *Repository
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	return &service{
		repo:     repo,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CustomerDTO, error) {
	first := strings.TrimSpace(input.FirstName)
	last := strings.TrimSpace(input.LastName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if first == "" || last == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}

	taken, err := s.repo.EmailTaken(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check customer email")
	}
	if taken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a customer with this email already exists")
	}

	var phone *string
	if input.Phone != nil && strings.TrimSpace(*input.Phone) != "" {
		p := strings.TrimSpace(*input.Phone)
		phone = &p
	}
	now := s.now()
	customer := &models.Customer{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a customer with this email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}
	dto := newCustomerDTO(customer)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CustomerDetailDTO, error) {
	customer, err := s.repo.Find(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	out := &CustomerDetailDTO{CustomerDTO: newCustomerDTO(customer)}
	account, err := s.repo.FindAccount(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loyalty account")
	}
	if account != nil {
		tier, points := account.Tier, account.CurrentPoints
		out.LoyaltyTier = &tier
		out.LoyaltyPoints = &points
	}
	return out, nil
}

func (s *service) List(ctx context.Context, search string, params pagination.Params) (*CustomerListDTO, error) {
	page, err := pagination.NewPage(params)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, Query{Search: search, Cursor: page.Cursor, Limit: page.Fetch()})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	out := &CustomerListDTO{Items: []CustomerDTO{}}
	rows, out.NextCursor = pagination.Trim(rows, page.Limit, func(c *models.Customer) pagination.Cursor {
		return pagination.Cursor{At: c.CreatedAt, ID: c.ID}
	})
	for i := range rows {
		out.Items = append(out.Items, newCustomerDTO(&rows[i]))
	}
	return out, nil
}

func newCustomerDTO(c *models.Customer) CustomerDTO {
	return CustomerDTO{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
	}
}

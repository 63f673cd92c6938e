package purchasing

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
)

type SupplierInput struct {
	Name          string
	SupplierType  enums.SupplierType
	AccountNumber *string
	ContactName   *string
	Email         *string
	Phone         *string
	Address       *string
	Website       *string
	ShippingTerms *string
	PaymentTerms  *string
	OrderMethods  []string
	LeadTimeDays  int
}

// SupplierUpdateInput changes only the fields that are set.
type SupplierUpdateInput struct {
	Name          *string
	SupplierType  *enums.SupplierType
	AccountNumber *string
	ContactName   *string
	Email         *string
	Phone         *string
	Address       *string
	Website       *string
	ShippingTerms *string
	PaymentTerms  *string
	OrderMethods  *[]string
	LeadTimeDays  *int
	IsActive      *bool
}

func (s *service) CreateSupplier(ctx context.Context, input SupplierInput) (*SupplierDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name is required")
	}
	if !input.SupplierType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid supplier type %q", input.SupplierType)
	}
	if input.LeadTimeDays < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lead time cannot be negative")
	}

	taken, err := s.repo.SupplierNameTaken(ctx, name, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check supplier name")
	}
	if taken {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "supplier %q already exists", name)
	}

	now := s.now()
	supplier := &models.Supplier{
		Name:          name,
		SupplierType:  input.SupplierType,
		AccountNumber: nonEmpty(input.AccountNumber),
		ContactName:   nonEmpty(input.ContactName),
		Email:         nonEmpty(input.Email),
		Phone:         nonEmpty(input.Phone),
		Address:       nonEmpty(input.Address),
		Website:       nonEmpty(input.Website),
		ShippingTerms: nonEmpty(input.ShippingTerms),
		PaymentTerms:  nonEmpty(input.PaymentTerms),
		OrderMethods:  cleanMethods(input.OrderMethods),
		LeadTimeDays:  input.LeadTimeDays,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supplier")
	}
	dto := NewSupplierDTO(supplier)
	return &dto, nil
}

func (s *service) GetSupplier(ctx context.Context, id uuid.UUID) (*SupplierDTO, error) {
	supplier, err := s.repo.FindSupplier(ctx, id)
	if err != nil {
		return nil, notFound(err, "supplier")
	}
	dto := NewSupplierDTO(supplier)
	return &dto, nil
}

func (s *service) ListSuppliers(ctx context.Context, query SupplierQuery) ([]SupplierDTO, error) {
	rows, err := s.repo.ListSuppliers(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	out := make([]SupplierDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewSupplierDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateSupplier(ctx context.Context, id uuid.UUID, input SupplierUpdateInput) (*SupplierDTO, error) {
	if _, err := s.repo.FindSupplier(ctx, id); err != nil {
		return nil, notFound(err, "supplier")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name cannot be empty")
		}
		taken, err := s.repo.SupplierNameTaken(ctx, name, &id)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check supplier name")
		}
		if taken {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "supplier %q already exists", name)
		}
		updates["name"] = name
	}
	if input.SupplierType != nil {
		if !input.SupplierType.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid supplier type %q", *input.SupplierType)
		}
		updates["supplier_type"] = *input.SupplierType
	}
	if input.LeadTimeDays != nil {
		if *input.LeadTimeDays < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "lead time cannot be negative")
		}
		updates["lead_time_days"] = *input.LeadTimeDays
	}
	for column, value := range map[string]*string{
		"account_number": input.AccountNumber,
		"contact_name":   input.ContactName,
		"email":          input.Email,
		"phone":          input.Phone,
		"address":        input.Address,
		"website":        input.Website,
		"shipping_terms": input.ShippingTerms,
		"payment_terms":  input.PaymentTerms,
	} {
		if value != nil {
			updates[column] = nonEmpty(value)
		}
	}
	if input.OrderMethods != nil {
		updates["order_methods"] = cleanMethods(*input.OrderMethods)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no supplier fields to update")
	}
	updates["updated_at"] = s.now()

	if err := s.repo.UpdateSupplier(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier")
	}
	return s.GetSupplier(ctx, id)
}

// DeactivateSupplier hides the supplier from new orders and recommendations.
// Existing orders keep their reference.
func (s *service) DeactivateSupplier(ctx context.Context, id uuid.UUID) (*SupplierDTO, error) {
	inactive := false
	return s.UpdateSupplier(ctx, id, SupplierUpdateInput{IsActive: &inactive})
}

func cleanMethods(methods []string) pq.StringArray {
	out := pq.StringArray{}
	seen := map[string]bool{}
	for _, m := range methods {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

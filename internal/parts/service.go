package parts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/pkg/db"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

// maxSupersessionDepth bounds chain walks so bad data cannot loop forever.
const maxSupersessionDepth = 20

// Service manages the parts catalog and stocking locations.
type Service interface {
	CreatePart(ctx context.Context, input CreatePartInput) (*PartDTO, error)
	GetPart(ctx context.Context, id uuid.UUID) (*PartDetailDTO, error)
	GetPartByNumber(ctx context.Context, number string) (*PartDetailDTO, error)
	ListParts(ctx context.Context, input ListPartsInput) (*PartListDTO, error)
	UpdatePart(ctx context.Context, id uuid.UUID, input UpdatePartInput) (*PartDTO, error)
	DeactivatePart(ctx context.Context, id uuid.UUID) error
	SupersessionChain(ctx context.Context, id uuid.UUID) ([]PartDTO, error)

	CreateLocation(ctx context.Context, input LocationInput) (*LocationDTO, error)
	ListLocations(ctx context.Context, includeInactive bool) ([]LocationDTO, error)
}

type CreatePartInput struct {
	PartNumber         string
	Description        string
	Manufacturer       *string
	Category           *string
	CostPrice          decimal.Decimal
	RetailPrice        decimal.Decimal
	CoreCharge         decimal.Decimal
	SupersededByPartID *uuid.UUID
}

// UpdatePartInput changes only the fields that are set. ClearSupersession
// removes the replacement link.
type UpdatePartInput struct {
	Description        *string
	Manufacturer       *string
	Category           *string
	CostPrice          *decimal.Decimal
	RetailPrice        *decimal.Decimal
	CoreCharge         *decimal.Decimal
	SupersededByPartID *uuid.UUID
	ClearSupersession  bool
	IsActive           *bool
}

type ListPartsInput struct {
	Search          string
	Category        string
	IncludeInactive bool
	Pagination      pagination.Params
}

type LocationInput struct {
	Code string
	Name string
}

type service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("parts repository required")
	}
	return &service{
		repo: repo,
		logg: logg,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func normalizePartNumber(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func (s *service) CreatePart(ctx context.Context, input CreatePartInput) (*PartDTO, error) {
	number := normalizePartNumber(input.PartNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part number is required")
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if err := validatePrices(&input.CostPrice, &input.RetailPrice, &input.CoreCharge); err != nil {
		return nil, err
	}
	if input.SupersededByPartID != nil {
		if _, err := s.repo.FindPart(ctx, *input.SupersededByPartID); err != nil {
			return nil, supersedingLookupError(err)
		}
	}

	now := s.now()
	part := &models.Part{
		PartNumber:         number,
		Description:        description,
		Manufacturer:       trimmed(input.Manufacturer),
		Category:           trimmed(input.Category),
		CostPrice:          input.CostPrice,
		RetailPrice:        input.RetailPrice,
		HasCore:            input.CoreCharge.IsPositive(),
		CoreCharge:         input.CoreCharge,
		SupersededByPartID: input.SupersededByPartID,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.CreatePart(ctx, part); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "part number %s already exists", number)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create part")
	}
	dto := NewPartDTO(part)
	return &dto, nil
}

func (s *service) GetPart(ctx context.Context, id uuid.UUID) (*PartDetailDTO, error) {
	part, err := s.repo.FindPart(ctx, id)
	if err != nil {
		return nil, partLookupError(err)
	}
	return s.detail(ctx, part)
}

func (s *service) GetPartByNumber(ctx context.Context, number string) (*PartDetailDTO, error) {
	number = normalizePartNumber(number)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part number is required")
	}
	part, err := s.repo.FindPartByNumber(ctx, number)
	if err != nil {
		return nil, partLookupError(err)
	}
	return s.detail(ctx, part)
}

func (s *service) detail(ctx context.Context, part *models.Part) (*PartDetailDTO, error) {
	out := &PartDetailDTO{PartDTO: NewPartDTO(part), Stock: []StockDTO{}}
	if part.SupersededByPartID != nil {
		next, err := s.repo.FindPart(ctx, *part.SupersededByPartID)
		if err != nil && !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load superseding part")
		}
		if next != nil {
			out.SupersededByPartNumber = &next.PartNumber
		}
	}
	rows, err := s.repo.StockByPart(ctx, part.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	for _, row := range rows {
		out.Stock = append(out.Stock, newStockDTO(row))
		out.TotalOnHand += row.QuantityOnHand
	}
	return out, nil
}

func (s *service) ListParts(ctx context.Context, input ListPartsInput) (*PartListDTO, error) {
	page, err := pagination.NewPage(input.Pagination)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListParts(ctx, PartQuery{
		Search:          input.Search,
		Category:        input.Category,
		IncludeInactive: input.IncludeInactive,
		Cursor:          page.Cursor,
		Limit:           page.Fetch(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parts")
	}

	result := &PartListDTO{Items: []PartDTO{}}
	rows, result.NextCursor = pagination.Trim(rows, page.Limit, func(p *models.Part) pagination.Cursor {
		return pagination.Cursor{At: p.CreatedAt, ID: p.ID}
	})
	for i := range rows {
		result.Items = append(result.Items, NewPartDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) UpdatePart(ctx context.Context, id uuid.UUID, input UpdatePartInput) (*PartDTO, error) {
	part, err := s.repo.FindPart(ctx, id)
	if err != nil {
		return nil, partLookupError(err)
	}
	if err := validatePrices(input.CostPrice, input.RetailPrice, input.CoreCharge); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
		}
		updates["description"] = description
	}
	if input.Manufacturer != nil {
		updates["manufacturer"] = trimmed(input.Manufacturer)
	}
	if input.Category != nil {
		updates["category"] = trimmed(input.Category)
	}
	if input.CostPrice != nil {
		updates["cost_price"] = *input.CostPrice
	}
	if input.RetailPrice != nil {
		updates["retail_price"] = *input.RetailPrice
	}
	if input.CoreCharge != nil {
		updates["core_charge"] = *input.CoreCharge
		updates["has_core"] = input.CoreCharge.IsPositive()
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	switch {
	case input.ClearSupersession:
		updates["superseded_by_part_id"] = nil
	case input.SupersededByPartID != nil:
		if err := s.checkSupersession(ctx, part.ID, *input.SupersededByPartID); err != nil {
			return nil, err
		}
		updates["superseded_by_part_id"] = *input.SupersededByPartID
	}
	if len(updates) > 0 {
		updates["updated_at"] = s.now()
	}

	if err := s.repo.UpdatePart(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update part")
	}
	if part, err = s.repo.FindPart(ctx, id); err != nil {
		return nil, partLookupError(err)
	}
	dto := NewPartDTO(part)
	return &dto, nil
}

// checkSupersession rejects a replacement link that points at the part itself
// or whose own chain leads back to it.
func (s *service) checkSupersession(ctx context.Context, partID, targetID uuid.UUID) error {
	if partID == targetID {
		return pkgerrors.New(pkgerrors.CodeValidation, "a part cannot supersede itself")
	}
	current := targetID
	for depth := 0; depth < maxSupersessionDepth; depth++ {
		next, err := s.repo.FindPart(ctx, current)
		if err != nil {
			if depth == 0 {
				return supersedingLookupError(err)
			}
			if db.IsNotFound(err) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "walk supersession chain")
		}
		if next.SupersededByPartID == nil {
			return nil
		}
		if *next.SupersededByPartID == partID {
			return pkgerrors.New(pkgerrors.CodeValidation, "supersession would create a cycle").
				WithDetails(map[string]any{"part_id": partID, "superseded_by_part_id": targetID})
		}
		current = *next.SupersededByPartID
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "supersession chain is too deep")
}

// DeactivatePart is a soft delete; inventory and ledger rows keep pointing at it.
func (s *service) DeactivatePart(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindPart(ctx, id); err != nil {
		return partLookupError(err)
	}
	err := s.repo.UpdatePart(ctx, id, map[string]any{"is_active": false, "updated_at": s.now()})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate part")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "part_id", id.String()), "parts.deactivated")
	}
	return nil
}

// SupersessionChain returns the part followed by each replacement in turn; the
// last element is the current equivalent. The walk stops at a repeated part.
func (s *service) SupersessionChain(ctx context.Context, id uuid.UUID) ([]PartDTO, error) {
	part, err := s.repo.FindPart(ctx, id)
	if err != nil {
		return nil, partLookupError(err)
	}
	chain := []PartDTO{NewPartDTO(part)}
	seen := map[uuid.UUID]bool{part.ID: true}
	for part.SupersededByPartID != nil && len(chain) < maxSupersessionDepth {
		nextID := *part.SupersededByPartID
		if seen[nextID] {
			break
		}
		next, err := s.repo.FindPart(ctx, nextID)
		if err != nil {
			if db.IsNotFound(err) {
				break
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "walk supersession chain")
		}
		seen[nextID] = true
		chain = append(chain, NewPartDTO(next))
		part = next
	}
	return chain, nil
}

func (s *service) CreateLocation(ctx context.Context, input LocationInput) (*LocationDTO, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	name := strings.TrimSpace(input.Name)
	if code == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location code and name are required")
	}
	now := s.now()
	location := &models.Location{Code: code, Name: name, IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.CreateLocation(ctx, location); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "location code %s already exists", code)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create location")
	}
	dto := NewLocationDTO(location)
	return &dto, nil
}

func (s *service) ListLocations(ctx context.Context, includeInactive bool) ([]LocationDTO, error) {
	rows, err := s.repo.ListLocations(ctx, includeInactive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list locations")
	}
	out := make([]LocationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewLocationDTO(&rows[i]))
	}
	return out, nil
}

func validatePrices(values ...*decimal.Decimal) error {
	for _, v := range values {
		if v != nil && v.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
		}
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func partLookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
}

func supersedingLookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeValidation, "superseding part does not exist")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load superseding part")
}

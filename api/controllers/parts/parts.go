package parts

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/api/responses"
	"github.com/dealerworks/dms-backend/api/validators"
	partsvc "github.com/dealerworks/dms-backend/internal/parts"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

type createPartRequest struct {
	PartNumber         string           `json:"part_number" validate:"required,max=64"`
	Description        string           `json:"description" validate:"required,max=255"`
	Manufacturer       *string          `json:"manufacturer,omitempty" validate:"omitempty,max=128"`
	Category           *string          `json:"category,omitempty" validate:"omitempty,max=64"`
	CostPrice          decimal.Decimal  `json:"cost_price"`
	RetailPrice        decimal.Decimal  `json:"retail_price"`
	CoreCharge         *decimal.Decimal `json:"core_charge,omitempty"`
	SupersededByPartID *uuid.UUID       `json:"superseded_by_part_id,omitempty"`
}

type updatePartRequest struct {
	Description        *string          `json:"description,omitempty" validate:"omitempty,min=1,max=255"`
	Manufacturer       *string          `json:"manufacturer,omitempty" validate:"omitempty,max=128"`
	Category           *string          `json:"category,omitempty" validate:"omitempty,max=64"`
	CostPrice          *decimal.Decimal `json:"cost_price,omitempty"`
	RetailPrice        *decimal.Decimal `json:"retail_price,omitempty"`
	CoreCharge         *decimal.Decimal `json:"core_charge,omitempty"`
	SupersededByPartID *uuid.UUID       `json:"superseded_by_part_id,omitempty"`
	ClearSupersession  bool             `json:"clear_supersession,omitempty"`
	IsActive           *bool            `json:"is_active,omitempty"`
}

// List returns a cursor page of parts filtered by ?search, ?category and ?include_inactive.
func List(svc partsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		includeInactive, err := validators.ParseQueryBool(r, "include_inactive")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListParts(r.Context(), partsvc.ListPartsInput{
			Search:          validators.SanitizeString(r.URL.Query().Get("search"), 128),
			Category:        validators.SanitizeString(r.URL.Query().Get("category"), 64),
			IncludeInactive: includeInactive,
			Pagination:      params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func Create(svc partsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createPartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := partsvc.CreatePartInput{
			PartNumber:         body.PartNumber,
			Description:        body.Description,
			Manufacturer:       body.Manufacturer,
			Category:           body.Category,
			CostPrice:          body.CostPrice,
			RetailPrice:        body.RetailPrice,
			SupersededByPartID: body.SupersededByPartID,
		}
		if body.CoreCharge != nil {
			input.CoreCharge = *body.CoreCharge
		}

		part, err := svc.CreatePart(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, part)
	}
}

// Get returns the part with its stock by location.
func Get(svc partsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.GetPart(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

func GetByNumber(svc partsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := strings.TrimSpace(chi.URLParam(r, "partNumber"))
		if number == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "part number is required"))
			return
		}
		part, err := svc.GetPartByNumber(r.Context(), number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

func Update(svc partsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updatePartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.ClearSupersession && body.SupersededByPartID != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cannot set and clear supersession together"))
			return
		}

		part, err := svc.UpdatePart(r.Context(), id, partsvc.UpdatePartInput{
			Description:        body.Description,
			Manufacturer:       body.Manufacturer,
			Category:           body.Category,
			CostPrice:          body.CostPrice,
			RetailPrice:        body.RetailPrice,
			CoreCharge:         body.CoreCharge,
			SupersededByPartID: body.SupersededByPartID,
			ClearSupersession:  body.ClearSupersession,
			IsActive:           body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

// Delete deactivates the part; ledger rows keep referencing it.
func Delete(svc partsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeactivatePart(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func Supersession(svc partsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		chain, err := svc.SupersessionChain(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, chain)
	}
}

package cores

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/api/middleware"
	"github.com/dealerworks/dms-backend/api/responses"
	"github.com/dealerworks/dms-backend/api/validators"
	coresvc "github.com/dealerworks/dms-backend/internal/coretracking"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

type createCoreRequest struct {
	PartID        uuid.UUID        `json:"part_id" validate:"required"`
	CustomerID    *uuid.UUID       `json:"customer_id,omitempty"`
	InvoiceNumber *string          `json:"invoice_number,omitempty" validate:"omitempty,max=64"`
	CoreValue     *decimal.Decimal `json:"core_value,omitempty"`
	Notes         *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type returnCoreRequest struct {
	Damaged           bool       `json:"damaged"`
	DamageDescription string     `json:"damage_description,omitempty" validate:"max=500"`
	Notes             string     `json:"notes,omitempty" validate:"max=1000"`
	ReturnedAt        *time.Time `json:"returned_at,omitempty"`
}

type creditCoreRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Notes  string           `json:"notes,omitempty" validate:"max=1000"`
}

func Create(svc coresvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createCoreRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		core, err := svc.Create(r.Context(), coresvc.CreateInput{
			PartID:        body.PartID,
			CustomerID:    body.CustomerID,
			InvoiceNumber: body.InvoiceNumber,
			CoreValue:     body.CoreValue,
			Notes:         body.Notes,
			PerformedBy:   middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, core)
	}
}

// List filters by ?status, ?customer_id and ?part_id.
func List(svc coresvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := coresvc.ListInput{Pagination: params}
		if input.CustomerID, err = validators.ParseQueryUUID(r, "customer_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.PartID, err = validators.ParseQueryUUID(r, "part_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, parseErr := enums.ParseCoreStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid core status"))
				return
			}
			input.Status = &status
		}

		list, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func Get(svc coresvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "coreId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		core, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, core)
	}
}

func Return(svc coresvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "coreId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body returnCoreRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		core, err := svc.ProcessReturn(r.Context(), id, coresvc.ReturnInput{
			Damaged:           body.Damaged,
			DamageDescription: body.DamageDescription,
			Notes:             body.Notes,
			ReturnedAt:        body.ReturnedAt,
			PerformedBy:       middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, core)
	}
}

func Credit(svc coresvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "coreId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body creditCoreRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		core, err := svc.ApplyCredit(r.Context(), id, coresvc.CreditInput{
			Amount:      body.Amount,
			Notes:       body.Notes,
			PerformedBy: middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, core)
	}
}

// Outstanding reports the value of cores still owed by customers.
func Outstanding(svc coresvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total, err := svc.OutstandingValue(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, total)
	}
}

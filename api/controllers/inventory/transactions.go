package inventory

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/api/middleware"
	"github.com/dealerworks/dms-backend/api/responses"
	"github.com/dealerworks/dms-backend/api/validators"
	inventorysvc "github.com/dealerworks/dms-backend/internal/inventory"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

type movementRequest struct {
	PartID          uuid.UUID `json:"part_id" validate:"required"`
	LocationID      uuid.UUID `json:"location_id" validate:"required"`
	Quantity        int       `json:"quantity" validate:"required,gt=0"`
	ReferenceType   *string   `json:"reference_type,omitempty" validate:"omitempty,max=32"`
	ReferenceNumber *string   `json:"reference_number,omitempty" validate:"omitempty,max=64"`
	Notes           *string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type receiptRequest struct {
	movementRequest
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
}

type saleRequest struct {
	movementRequest
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type adjustRequest struct {
	PartID          uuid.UUID `json:"part_id" validate:"required"`
	LocationID      uuid.UUID `json:"location_id" validate:"required"`
	Delta           int       `json:"quantity_change" validate:"required"`
	Reason          string    `json:"reason" validate:"required,max=32"`
	ReferenceNumber *string   `json:"reference_number,omitempty" validate:"omitempty,max=64"`
	Notes           *string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type transferRequest struct {
	PartID          uuid.UUID `json:"part_id" validate:"required"`
	FromLocationID  uuid.UUID `json:"from_location_id" validate:"required"`
	ToLocationID    uuid.UUID `json:"to_location_id" validate:"required"`
	Quantity        int       `json:"quantity" validate:"required,gt=0"`
	ReferenceNumber *string   `json:"reference_number,omitempty" validate:"omitempty,max=64"`
	Notes           *string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (m movementRequest) toInput(r *http.Request) inventorysvc.MovementInput {
	return inventorysvc.MovementInput{
		PartID:          m.PartID,
		LocationID:      m.LocationID,
		Quantity:        m.Quantity,
		ReferenceType:   m.ReferenceType,
		ReferenceNumber: m.ReferenceNumber,
		Notes:           m.Notes,
		PerformedBy:     middleware.ActorFromContext(r.Context()),
	}
}

func Issue(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return movementHandler(logg, svc.Issue)
}

func Return(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return movementHandler(logg, svc.Return)
}

func movementHandler(logg *logger.Logger, apply func(ctx context.Context, input inventorysvc.MovementInput) (*inventorysvc.TransactionDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body movementRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := apply(r.Context(), body.toInput(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

func Receipt(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body receiptRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.Receipt(r.Context(), inventorysvc.ReceiptInput{
			MovementInput: body.toInput(r),
			UnitCost:      body.UnitCost,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

func Sale(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body saleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.Sale(r.Context(), inventorysvc.SaleInput{
			MovementInput: body.toInput(r),
			UnitPrice:     body.UnitPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

func Adjust(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body adjustRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.Adjust(r.Context(), inventorysvc.AdjustInput{
			PartID:          body.PartID,
			LocationID:      body.LocationID,
			Delta:           body.Delta,
			Reason:          body.Reason,
			ReferenceNumber: body.ReferenceNumber,
			Notes:           body.Notes,
			PerformedBy:     middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// Transfer returns both ledger legs.
func Transfer(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body transferRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Transfer(r.Context(), inventorysvc.TransferInput{
			PartID:          body.PartID,
			FromLocationID:  body.FromLocationID,
			ToLocationID:    body.ToLocationID,
			Quantity:        body.Quantity,
			ReferenceNumber: body.ReferenceNumber,
			Notes:           body.Notes,
			PerformedBy:     middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ListTransactions pages the ledger. Filters: part_id, location_id, type, from, to.
func ListTransactions(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := inventorysvc.ListTransactionsInput{Pagination: params}
		if input.PartID, err = validators.ParseQueryUUID(r, "part_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.LocationID, err = validators.ParseQueryUUID(r, "location_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.From, err = validators.ParseQueryTime(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.To, err = validators.ParseQueryTime(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := r.URL.Query().Get("type"); raw != "" {
			txType, parseErr := enums.ParsePartTransactionType(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid transaction type"))
				return
			}
			input.Type = &txType
		}

		list, err := svc.ListTransactions(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetTransaction(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.GetTransaction(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

func PartHistory(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partID, err := validators.ParseUUIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.PartHistory(r.Context(), partID, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

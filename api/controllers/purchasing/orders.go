package purchasing

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/api/middleware"
	"github.com/dealerworks/dms-backend/api/responses"
	"github.com/dealerworks/dms-backend/api/validators"
	purchasingsvc "github.com/dealerworks/dms-backend/internal/purchasing"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

type orderLineRequest struct {
	PartID   uuid.UUID        `json:"part_id" validate:"required"`
	Quantity int              `json:"quantity" validate:"gt=0"`
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
}

type createOrderRequest struct {
	SupplierID     uuid.UUID               `json:"supplier_id" validate:"required"`
	LocationID     uuid.UUID               `json:"location_id" validate:"required"`
	OrderType      enums.PurchaseOrderType `json:"order_type,omitempty"`
	ExpectedDate   *time.Time              `json:"expected_date,omitempty"`
	ShippingMethod *string                 `json:"shipping_method,omitempty" validate:"omitempty,max=64"`
	ShippingCost   *decimal.Decimal        `json:"shipping_cost,omitempty"`
	TaxAmount      *decimal.Decimal        `json:"tax_amount,omitempty"`
	Notes          *string                 `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Lines          []orderLineRequest      `json:"lines" validate:"max=200,dive"`
}

type updateOrderRequest struct {
	ExpectedDate   *time.Time          `json:"expected_date,omitempty"`
	ShippingMethod *string             `json:"shipping_method,omitempty" validate:"omitempty,max=64"`
	TrackingNumber *string             `json:"tracking_number,omitempty" validate:"omitempty,max=64"`
	ShippingCost   *decimal.Decimal    `json:"shipping_cost,omitempty"`
	TaxAmount      *decimal.Decimal    `json:"tax_amount,omitempty"`
	Notes          *string             `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Lines          *[]orderLineRequest `json:"lines,omitempty" validate:"omitempty,max=200,dive"`
}

type receiveLineRequest struct {
	LineID   uuid.UUID `json:"line_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"gt=0"`
}

type receiveOrderRequest struct {
	Lines []receiveLineRequest `json:"lines" validate:"required,min=1,max=200,dive"`
	Notes *string              `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func toLineInputs(lines []orderLineRequest) []purchasingsvc.OrderLineInput {
	out := make([]purchasingsvc.OrderLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, purchasingsvc.OrderLineInput{
			PartID:   line.PartID,
			Quantity: line.Quantity,
			UnitCost: line.UnitCost,
		})
	}
	return out
}

func CreateOrder(svc purchasingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CreateOrder(r.Context(), purchasingsvc.CreateOrderInput{
			SupplierID:     body.SupplierID,
			LocationID:     body.LocationID,
			OrderType:      body.OrderType,
			ExpectedDate:   body.ExpectedDate,
			ShippingMethod: body.ShippingMethod,
			ShippingCost:   body.ShippingCost,
			TaxAmount:      body.TaxAmount,
			Notes:          body.Notes,
			Lines:          toLineInputs(body.Lines),
			RequestedBy:    middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListOrders filters by ?status, ?supplier_id and ?order_type.
func ListOrders(svc purchasingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := purchasingsvc.ListOrdersInput{Pagination: params}
		if input.SupplierID, err = validators.ParseQueryUUID(r, "supplier_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, parseErr := enums.ParsePurchaseOrderStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid order status"))
				return
			}
			input.Status = &status
		}
		if raw := r.URL.Query().Get("order_type"); raw != "" {
			orderType, parseErr := enums.ParsePurchaseOrderType(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid order type"))
				return
			}
			input.OrderType = &orderType
		}

		list, err := svc.ListOrders(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetOrder(svc purchasingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func UpdateOrder(svc purchasingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := purchasingsvc.UpdateOrderInput{
			ExpectedDate:   body.ExpectedDate,
			ShippingMethod: body.ShippingMethod,
			TrackingNumber: body.TrackingNumber,
			ShippingCost:   body.ShippingCost,
			TaxAmount:      body.TaxAmount,
			Notes:          body.Notes,
		}
		if body.Lines != nil {
			lines := toLineInputs(*body.Lines)
			input.Lines = &lines
		}
		order, err := svc.UpdateOrder(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func DeleteOrder(svc purchasingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteOrder(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func SubmitOrder(svc purchasingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.SubmitOrder(r.Context(), id, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func CancelOrder(svc purchasingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CancelOrder(r.Context(), id, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ReceiveOrder books a delivery against the order's open lines.
func ReceiveOrder(svc purchasingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body receiveOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := purchasingsvc.ReceiveInput{
			Notes:       body.Notes,
			PerformedBy: middleware.ActorFromContext(r.Context()),
		}
		for _, line := range body.Lines {
			input.Lines = append(input.Lines, purchasingsvc.ReceiveLineInput{LineID: line.LineID, Quantity: line.Quantity})
		}
		result, err := svc.ReceiveOrder(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ReorderRecommendations accepts an optional ?location_id.
func ReorderRecommendations(svc purchasingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locationID, err := validators.ParseQueryUUID(r, "location_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recs, err := svc.ReorderRecommendations(r.Context(), locationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, recs)
	}
}

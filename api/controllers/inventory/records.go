package inventory

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dealerworks/dms-backend/api/middleware"
	"github.com/dealerworks/dms-backend/api/responses"
	"github.com/dealerworks/dms-backend/api/validators"
	inventorysvc "github.com/dealerworks/dms-backend/internal/inventory"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

type createRecordRequest struct {
	PartID          uuid.UUID `json:"part_id" validate:"required"`
	LocationID      uuid.UUID `json:"location_id" validate:"required"`
	QuantityOnHand  int       `json:"quantity_on_hand" validate:"gte=0"`
	ReorderPoint    int       `json:"reorder_point" validate:"gte=0"`
	ReorderQuantity int       `json:"reorder_quantity" validate:"gte=0"`
	BinLocation     *string   `json:"bin_location,omitempty" validate:"omitempty,max=32"`
}

type updateRecordRequest struct {
	ReorderPoint    *int    `json:"reorder_point,omitempty" validate:"omitempty,gte=0"`
	ReorderQuantity *int    `json:"reorder_quantity,omitempty" validate:"omitempty,gte=0"`
	BinLocation     *string `json:"bin_location,omitempty" validate:"omitempty,max=32"`
	QuantityOnHand  *int    `json:"quantity_on_hand,omitempty" validate:"omitempty,gte=0"`
	Reason          *string `json:"reason,omitempty" validate:"omitempty,max=64"`
}

// ListRecords filters by ?part_id and ?location_id.
func ListRecords(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partID, err := validators.ParseQueryUUID(r, "part_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locationID, err := validators.ParseQueryUUID(r, "location_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records, err := svc.ListRecords(r.Context(), inventorysvc.RecordQuery{PartID: partID, LocationID: locationID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

func CreateRecord(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createRecordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.CreateRecord(r.Context(), inventorysvc.CreateRecordInput{
			PartID:          body.PartID,
			LocationID:      body.LocationID,
			QuantityOnHand:  body.QuantityOnHand,
			ReorderPoint:    body.ReorderPoint,
			ReorderQuantity: body.ReorderQuantity,
			BinLocation:     body.BinLocation,
			PerformedBy:     middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

func GetRecord(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.GetRecord(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// UpdateRecord changes reorder settings; a counted quantity_on_hand is booked
// as an adjustment for the difference.
func UpdateRecord(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateRecordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.UpdateRecord(r.Context(), id, inventorysvc.UpdateRecordInput{
			ReorderPoint:    body.ReorderPoint,
			ReorderQuantity: body.ReorderQuantity,
			BinLocation:     body.BinLocation,
			QuantityOnHand:  body.QuantityOnHand,
			Reason:          body.Reason,
			PerformedBy:     middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func LowStock(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locationID, err := validators.ParseQueryUUID(r, "location_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records, err := svc.LowStock(r.Context(), locationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
)

// RecordDTO is the inventory record payload returned to clients.
type RecordDTO struct {
	ID              uuid.UUID `json:"id"`
	PartID          uuid.UUID `json:"part_id"`
	LocationID      uuid.UUID `json:"location_id"`
	QuantityOnHand  int       `json:"quantity_on_hand"`
	ReorderPoint    int       `json:"reorder_point"`
	ReorderQuantity int       `json:"reorder_quantity"`
	BinLocation     *string   `json:"bin_location,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TransactionDTO is one part transaction ledger row.
type TransactionDTO struct {
	ID                    uuid.UUID                 `json:"id"`
	TransactionType       enums.PartTransactionType `json:"transaction_type"`
	PartID                uuid.UUID                 `json:"part_id"`
	LocationID            uuid.UUID                 `json:"location_id"`
	Quantity              int                       `json:"quantity"`
	QuantityDelta         int                       `json:"quantity_delta"`
	ResultingQuantity     int                       `json:"resulting_quantity"`
	SourceLocationID      *uuid.UUID                `json:"source_location_id,omitempty"`
	DestinationLocationID *uuid.UUID                `json:"destination_location_id,omitempty"`
	UnitCost              decimal.Decimal           `json:"unit_cost"`
	UnitPrice             decimal.Decimal           `json:"unit_price"`
	ExtendedCost          decimal.Decimal           `json:"extended_cost"`
	ExtendedPrice         decimal.Decimal           `json:"extended_price"`
	ReferenceType         *string                   `json:"reference_type,omitempty"`
	ReferenceNumber       *string                   `json:"reference_number,omitempty"`
	Notes                 *string                   `json:"notes,omitempty"`
	PerformedBy           *string                   `json:"performed_by,omitempty"`
	TransactionDate       time.Time                 `json:"transaction_date"`
}

// TransferDTO carries both legs of a transfer.
type TransferDTO struct {
	Outbound TransactionDTO `json:"outbound"`
	Inbound  TransactionDTO `json:"inbound"`
}

// TransactionListDTO is a cursor page of ledger rows.
type TransactionListDTO struct {
	Items      []TransactionDTO `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

func NewRecordDTO(record *models.InventoryRecord) RecordDTO {
	return RecordDTO{
		ID:              record.ID,
		PartID:          record.PartID,
		LocationID:      record.LocationID,
		QuantityOnHand:  record.QuantityOnHand,
		ReorderPoint:    record.ReorderPoint,
		ReorderQuantity: record.ReorderQuantity,
		BinLocation:     record.BinLocation,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

func NewTransactionDTO(entry *models.PartTransaction) TransactionDTO {
	return TransactionDTO{
		ID:                    entry.ID,
		TransactionType:       entry.TransactionType,
		PartID:                entry.PartID,
		LocationID:            entry.LocationID,
		Quantity:              entry.Quantity,
		QuantityDelta:         entry.QuantityDelta,
		ResultingQuantity:     entry.ResultingQuantity,
		SourceLocationID:      entry.SourceLocationID,
		DestinationLocationID: entry.DestinationLocationID,
		UnitCost:              entry.UnitCost,
		UnitPrice:             entry.UnitPrice,
		ExtendedCost:          entry.ExtendedCost,
		ExtendedPrice:         entry.ExtendedPrice,
		ReferenceType:         entry.ReferenceType,
		ReferenceNumber:       entry.ReferenceNumber,
		Notes:                 entry.Notes,
		PerformedBy:           entry.PerformedBy,
		TransactionDate:       entry.TransactionDate,
	}
}

func newRecordDTOs(rows []models.InventoryRecord) []RecordDTO {
	out := make([]RecordDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewRecordDTO(&rows[i]))
	}
	return out
}

func newTransactionDTOs(rows []models.PartTransaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewTransactionDTO(&rows[i]))
	}
	return out
}

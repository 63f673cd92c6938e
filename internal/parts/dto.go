package parts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/pkg/db/models"
)

type PartDTO struct {
	ID                 uuid.UUID       `json:"id"`
	PartNumber         string          `json:"part_number"`
	Description        string          `json:"description"`
	Manufacturer       *string         `json:"manufacturer,omitempty"`
	Category           *string         `json:"category,omitempty"`
	CostPrice          decimal.Decimal `json:"cost_price"`
	RetailPrice        decimal.Decimal `json:"retail_price"`
	HasCore            bool            `json:"has_core"`
	CoreCharge         decimal.Decimal `json:"core_charge"`
	SupersededByPartID *uuid.UUID      `json:"superseded_by_part_id,omitempty"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// StockDTO is the on-hand quantity of a part at one location.
type StockDTO struct {
	InventoryRecordID uuid.UUID `json:"inventory_record_id"`
	LocationID        uuid.UUID `json:"location_id"`
	LocationCode      string    `json:"location_code"`
	LocationName      string    `json:"location_name"`
	BinLocation       *string   `json:"bin_location,omitempty"`
	QuantityOnHand    int       `json:"quantity_on_hand"`
	ReorderPoint      int       `json:"reorder_point"`
	ReorderQuantity   int       `json:"reorder_quantity"`
}

// PartDetailDTO adds stock per location and the replacement part number.
type PartDetailDTO struct {
	PartDTO
	SupersededByPartNumber *string    `json:"superseded_by_part_number,omitempty"`
	TotalOnHand            int        `json:"total_on_hand"`
	Stock                  []StockDTO `json:"stock"`
}

type PartListDTO struct {
	Items      []PartDTO `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

type LocationDTO struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPartDTO(part *models.Part) PartDTO {
	return PartDTO{
		ID:                 part.ID,
		PartNumber:         part.PartNumber,
		Description:        part.Description,
		Manufacturer:       part.Manufacturer,
		Category:           part.Category,
		CostPrice:          part.CostPrice,
		RetailPrice:        part.RetailPrice,
		HasCore:            part.HasCore,
		CoreCharge:         part.CoreCharge,
		SupersededByPartID: part.SupersededByPartID,
		IsActive:           part.IsActive,
		CreatedAt:          part.CreatedAt,
		UpdatedAt:          part.UpdatedAt,
	}
}

func newStockDTO(row StockRow) StockDTO {
	return StockDTO{
		InventoryRecordID: row.ID,
		LocationID:        row.LocationID,
		LocationCode:      row.LocationCode,
		LocationName:      row.LocationName,
		BinLocation:       row.BinLocation,
		QuantityOnHand:    row.QuantityOnHand,
		ReorderPoint:      row.ReorderPoint,
		ReorderQuantity:   row.ReorderQuantity,
	}
}

func NewLocationDTO(location *models.Location) LocationDTO {
	return LocationDTO{
		ID:        location.ID,
		Code:      location.Code,
		Name:      location.Name,
		IsActive:  location.IsActive,
		CreatedAt: location.CreatedAt,
	}
}

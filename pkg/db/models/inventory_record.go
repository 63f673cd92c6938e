package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryRecord holds the on-hand quantity of one part at one location.
type InventoryRecord struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartID          uuid.UUID `gorm:"column:part_id;type:uuid;not null"`
	LocationID      uuid.UUID `gorm:"column:location_id;type:uuid;not null"`
	QuantityOnHand  int       `gorm:"column:quantity_on_hand;not null;default:0"`
	ReorderPoint    int       `gorm:"column:reorder_point;not null;default:0"`
	ReorderQuantity int       `gorm:"column:reorder_quantity;not null;default:0"`
	BinLocation     *string   `gorm:"column:bin_location"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/pkg/enums"
)

// PartTransaction is an immutable inventory movement. LocationID is the row the
// entry affected; QuantityDelta is the signed change applied to it and
// ResultingQuantity the on-hand snapshot right after.
type PartTransaction struct {
	ID                    uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionType       enums.PartTransactionType `gorm:"column:transaction_type;type:part_transaction_type_enum;not null"`
	PartID                uuid.UUID                 `gorm:"column:part_id;type:uuid;not null"`
	LocationID            uuid.UUID                 `gorm:"column:location_id;type:uuid;not null"`
	Quantity              int                       `gorm:"column:quantity;not null"`
	QuantityDelta         int                       `gorm:"column:quantity_delta;not null"`
	ResultingQuantity     int                       `gorm:"column:resulting_quantity;not null"`
	SourceLocationID      *uuid.UUID                `gorm:"column:source_location_id;type:uuid"`
	DestinationLocationID *uuid.UUID                `gorm:"column:destination_location_id;type:uuid"`
	UnitCost              decimal.Decimal           `gorm:"column:unit_cost;type:numeric(12,2);not null;default:0"`
	UnitPrice             decimal.Decimal           `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	ExtendedCost          decimal.Decimal           `gorm:"column:extended_cost;type:numeric(14,2);not null;default:0"`
	ExtendedPrice         decimal.Decimal           `gorm:"column:extended_price;type:numeric(14,2);not null;default:0"`
	ReferenceType         *string                   `gorm:"column:reference_type"`
	ReferenceNumber       *string                   `gorm:"column:reference_number"`
	Notes                 *string                   `gorm:"column:notes"`
	PerformedBy           *string                   `gorm:"column:performed_by"`
	TransactionDate       time.Time                 `gorm:"column:transaction_date;not null"`
	CreatedAt             time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

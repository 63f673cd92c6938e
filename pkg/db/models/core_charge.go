package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/pkg/enums"
)

// CoreCharge tracks the refundable deposit on a returnable part.
type CoreCharge struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartID        uuid.UUID        `gorm:"column:part_id;type:uuid;not null"`
	CustomerID    *uuid.UUID       `gorm:"column:customer_id;type:uuid"`
	InvoiceNumber *string          `gorm:"column:invoice_number"`
	CoreValue     decimal.Decimal  `gorm:"column:core_value;type:numeric(12,2);not null"`
	Status        enums.CoreStatus `gorm:"column:status;type:core_status_enum;not null"`
	SoldAt        time.Time        `gorm:"column:sold_at;not null"`
	ReturnedAt    *time.Time       `gorm:"column:returned_at"`
	CreditedAt    *time.Time       `gorm:"column:credited_at"`
	CreditAmount  *decimal.Decimal `gorm:"column:credit_amount;type:numeric(12,2)"`
	Notes         *string          `gorm:"column:notes"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

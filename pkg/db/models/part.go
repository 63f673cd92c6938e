package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Part is a catalog entry. SupersededByPartID points at the part that replaces it.
type Part struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartNumber         string          `gorm:"column:part_number;not null;uniqueIndex"`
	Description        string          `gorm:"column:description;not null"`
	Manufacturer       *string         `gorm:"column:manufacturer"`
	Category           *string         `gorm:"column:category"`
	CostPrice          decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2);not null;default:0"`
	RetailPrice        decimal.Decimal `gorm:"column:retail_price;type:numeric(12,2);not null;default:0"`
	HasCore            bool            `gorm:"column:has_core;not null;default:false"`
	CoreCharge         decimal.Decimal `gorm:"column:core_charge;type:numeric(12,2);not null;default:0"`
	SupersededByPartID *uuid.UUID      `gorm:"column:superseded_by_part_id;type:uuid"`
	IsActive           bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Location is a stocking location (warehouse, bin area, branch).
type Location struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code      string    `gorm:"column:code;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;not null"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

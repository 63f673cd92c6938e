package coretracking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
)

type CoreChargeDTO struct {
	ID            uuid.UUID        `json:"id"`
	PartID        uuid.UUID        `json:"part_id"`
	CustomerID    *uuid.UUID       `json:"customer_id,omitempty"`
	InvoiceNumber *string          `json:"invoice_number,omitempty"`
	CoreValue     decimal.Decimal  `json:"core_value"`
	Status        enums.CoreStatus `json:"status"`
	SoldAt        time.Time        `json:"sold_at"`
	ReturnedAt    *time.Time       `json:"returned_at,omitempty"`
	CreditedAt    *time.Time       `json:"credited_at,omitempty"`
	CreditAmount  *decimal.Decimal `json:"credit_amount,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type CoreChargeListDTO struct {
	Items      []CoreChargeDTO `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// OutstandingDTO totals cores sold and not yet returned.
type OutstandingDTO struct {
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func NewCoreChargeDTO(core *models.CoreCharge) CoreChargeDTO {
	return CoreChargeDTO{
		ID:            core.ID,
		PartID:        core.PartID,
		CustomerID:    core.CustomerID,
		InvoiceNumber: core.InvoiceNumber,
		CoreValue:     core.CoreValue,
		Status:        core.Status,
		SoldAt:        core.SoldAt,
		ReturnedAt:    core.ReturnedAt,
		CreditedAt:    core.CreditedAt,
		CreditAmount:  core.CreditAmount,
		Notes:         core.Notes,
		CreatedAt:     core.CreatedAt,
		UpdatedAt:     core.UpdatedAt,
	}
}

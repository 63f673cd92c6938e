package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/pkg/enums"
)

// PartTransactionRecordedEvent mirrors one ledger row and the stock it left behind.
type PartTransactionRecordedEvent struct {
	TransactionID     uuid.UUID                 `json:"transaction_id"`
	TransactionType   enums.PartTransactionType `json:"transaction_type"`
	PartID            uuid.UUID                 `json:"part_id"`
	LocationID        uuid.UUID                 `json:"location_id"`
	Quantity          int                       `json:"quantity"`
	QuantityDelta     int                       `json:"quantity_delta"`
	ResultingQuantity int                       `json:"resulting_quantity"`
	ReferenceNumber   *string                   `json:"reference_number,omitempty"`
	TransactionDate   time.Time                 `json:"transaction_date"`
}

// InventoryLowStockEvent is raised by the low stock scan.
type InventoryLowStockEvent struct {
	InventoryRecordID uuid.UUID `json:"inventory_record_id"`
	PartID            uuid.UUID `json:"part_id"`
	LocationID        uuid.UUID `json:"location_id"`
	QuantityOnHand    int       `json:"quantity_on_hand"`
	ReorderPoint      int       `json:"reorder_point"`
	ReorderQuantity   int       `json:"reorder_quantity"`
}

// LoyaltyPointsEvent covers earned, adjusted and expired ledger entries.
type LoyaltyPointsEvent struct {
	AccountID     uuid.UUID                    `json:"account_id"`
	CustomerID    uuid.UUID                    `json:"customer_id"`
	TransactionID uuid.UUID                    `json:"transaction_id"`
	Type          enums.LoyaltyTransactionType `json:"type"`
	Points        int                          `json:"points"`
	Balance       int                          `json:"balance"`
	Source        string                       `json:"source"`
}

// LoyaltyTierChangedEvent reports a promotion or manual tier change.
type LoyaltyTierChangedEvent struct {
	AccountID    uuid.UUID         `json:"account_id"`
	CustomerID   uuid.UUID         `json:"customer_id"`
	PreviousTier enums.LoyaltyTier `json:"previous_tier"`
	Tier         enums.LoyaltyTier `json:"tier"`
	Reason       string            `json:"reason,omitempty"`
}

// RewardRedeemedEvent is emitted once per successful redemption.
type RewardRedeemedEvent struct {
	RedemptionID   uuid.UUID              `json:"redemption_id"`
	CustomerID     uuid.UUID              `json:"customer_id"`
	RewardID       uuid.UUID              `json:"reward_id"`
	RedemptionCode string                 `json:"redemption_code"`
	PointsSpent    int                    `json:"points_spent"`
	Status         enums.RedemptionStatus `json:"status"`
}

// RedemptionStatusChangedEvent covers approve, use, cancel and expiry.
type RedemptionStatusChangedEvent struct {
	RedemptionID   uuid.UUID              `json:"redemption_id"`
	CustomerID     uuid.UUID              `json:"customer_id"`
	PreviousStatus enums.RedemptionStatus `json:"previous_status"`
	Status         enums.RedemptionStatus `json:"status"`
	RefundedPoints int                    `json:"refunded_points,omitempty"`
}

// CoreStatusChangedEvent follows a core charge through sold, returned and credited.
type CoreStatusChangedEvent struct {
	CoreChargeID uuid.UUID        `json:"core_charge_id"`
	PartID       uuid.UUID        `json:"part_id"`
	CustomerID   *uuid.UUID       `json:"customer_id,omitempty"`
	Status       enums.CoreStatus `json:"status"`
	CoreValue    decimal.Decimal  `json:"core_value"`
	CreditAmount *decimal.Decimal `json:"credit_amount,omitempty"`
}

// PurchaseOrderStatusChangedEvent follows an order through submit, receipt and cancel.
type PurchaseOrderStatusChangedEvent struct {
	OrderID        uuid.UUID                 `json:"order_id"`
	OrderNumber    string                    `json:"order_number"`
	SupplierID     uuid.UUID                 `json:"supplier_id"`
	LocationID     uuid.UUID                 `json:"location_id"`
	PreviousStatus enums.PurchaseOrderStatus `json:"previous_status"`
	Status         enums.PurchaseOrderStatus `json:"status"`
	ReceivedLines  int                       `json:"received_lines,omitempty"`
	TotalAmount    decimal.Decimal           `json:"total_amount"`
}

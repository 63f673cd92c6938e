package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/pkg/enums"
)

// Supplier is a vendor parts are ordered from.
type Supplier struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string             `gorm:"column:name;not null;uniqueIndex"`
	SupplierType  enums.SupplierType `gorm:"column:supplier_type;type:supplier_type_enum;not null"`
	AccountNumber *string            `gorm:"column:account_number"`
	ContactName   *string            `gorm:"column:contact_name"`
	Email         *string            `gorm:"column:email"`
	Phone         *string            `gorm:"column:phone"`
	Address       *string            `gorm:"column:address"`
	Website       *string            `gorm:"column:website"`
	ShippingTerms *string            `gorm:"column:shipping_terms"`
	PaymentTerms  *string            `gorm:"column:payment_terms"`
	OrderMethods  pq.StringArray     `gorm:"column:order_methods;type:text[]"`
	LeadTimeDays  int                `gorm:"column:lead_time_days;not null;default:0"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// PurchaseOrder is an order placed with a supplier, received into LocationID.
type PurchaseOrder struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber    string                    `gorm:"column:order_number;not null;uniqueIndex"`
	SupplierID     uuid.UUID                 `gorm:"column:supplier_id;type:uuid;not null"`
	LocationID     uuid.UUID                 `gorm:"column:location_id;type:uuid;not null"`
	Status         enums.PurchaseOrderStatus `gorm:"column:status;type:purchase_order_status_enum;not null"`
	OrderType      enums.PurchaseOrderType   `gorm:"column:order_type;type:purchase_order_type_enum;not null"`
	OrderDate      time.Time                 `gorm:"column:order_date;not null"`
	ExpectedDate   *time.Time                `gorm:"column:expected_date"`
	RequestedBy    *string                   `gorm:"column:requested_by"`
	ShippingMethod *string                   `gorm:"column:shipping_method"`
	TrackingNumber *string                   `gorm:"column:tracking_number"`
	Subtotal       decimal.Decimal           `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	ShippingCost   decimal.Decimal           `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	TaxAmount      decimal.Decimal           `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	TotalAmount    decimal.Decimal           `gorm:"column:total_amount;type:numeric(12,2);not null;default:0"`
	Notes          *string                   `gorm:"column:notes"`
	SubmittedAt    *time.Time                `gorm:"column:submitted_at"`
	CompletedAt    *time.Time                `gorm:"column:completed_at"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// PurchaseOrderLine is one part on an order. ReceivedQuantity never exceeds Quantity.
type PurchaseOrderLine struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	PartID           uuid.UUID             `gorm:"column:part_id;type:uuid;not null"`
	Quantity         int                   `gorm:"column:quantity;not null"`
	ReceivedQuantity int                   `gorm:"column:received_quantity;not null;default:0"`
	UnitCost         decimal.Decimal       `gorm:"column:unit_cost;type:numeric(12,2);not null"`
	ExtendedCost     decimal.Decimal       `gorm:"column:extended_cost;type:numeric(12,2);not null"`
	Status           enums.OrderLineStatus `gorm:"column:status;type:order_line_status_enum;not null"`
	ReceivedAt       *time.Time            `gorm:"column:received_at"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// Outstanding is the quantity still due from the supplier.
func (l PurchaseOrderLine) Outstanding() int {
	if l.Status == enums.OrderLineCancelled {
		return 0
	}
	return l.Quantity - l.ReceivedQuantity
}

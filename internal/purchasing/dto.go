package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/internal/inventory"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
)

type SupplierDTO struct {
	ID            uuid.UUID          `json:"id"`
	Name          string             `json:"name"`
	SupplierType  enums.SupplierType `json:"supplier_type"`
	AccountNumber *string            `json:"account_number,omitempty"`
	ContactName   *string            `json:"contact_name,omitempty"`
	Email         *string            `json:"email,omitempty"`
	Phone         *string            `json:"phone,omitempty"`
	Address       *string            `json:"address,omitempty"`
	Website       *string            `json:"website,omitempty"`
	ShippingTerms *string            `json:"shipping_terms,omitempty"`
	PaymentTerms  *string            `json:"payment_terms,omitempty"`
	OrderMethods  []string           `json:"order_methods"`
	LeadTimeDays  int                `json:"lead_time_days"`
	IsActive      bool               `json:"is_active"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func NewSupplierDTO(s *models.Supplier) SupplierDTO {
	methods := []string(s.OrderMethods)
	if methods == nil {
		methods = []string{}
	}
	return SupplierDTO{
		ID:            s.ID,
		Name:          s.Name,
		SupplierType:  s.SupplierType,
		AccountNumber: s.AccountNumber,
		ContactName:   s.ContactName,
		Email:         s.Email,
		Phone:         s.Phone,
		Address:       s.Address,
		Website:       s.Website,
		ShippingTerms: s.ShippingTerms,
		PaymentTerms:  s.PaymentTerms,
		OrderMethods:  methods,
		LeadTimeDays:  s.LeadTimeDays,
		IsActive:      s.IsActive,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

type OrderLineDTO struct {
	ID               uuid.UUID             `json:"id"`
	PartID           uuid.UUID             `json:"part_id"`
	Quantity         int                   `json:"quantity"`
	ReceivedQuantity int                   `json:"received_quantity"`
	Outstanding      int                   `json:"outstanding"`
	UnitCost         decimal.Decimal       `json:"unit_cost"`
	ExtendedCost     decimal.Decimal       `json:"extended_cost"`
	Status           enums.OrderLineStatus `json:"status"`
	ReceivedAt       *time.Time            `json:"received_at,omitempty"`
}

func NewOrderLineDTO(l *models.PurchaseOrderLine) OrderLineDTO {
	return OrderLineDTO{
		ID:               l.ID,
		PartID:           l.PartID,
		Quantity:         l.Quantity,
		ReceivedQuantity: l.ReceivedQuantity,
		Outstanding:      l.Outstanding(),
		UnitCost:         l.UnitCost,
		ExtendedCost:     l.ExtendedCost,
		Status:           l.Status,
		ReceivedAt:       l.ReceivedAt,
	}
}

// OrderDTO is a purchase order with its lines. Lines is empty in list responses.
type OrderDTO struct {
	ID             uuid.UUID                 `json:"id"`
	OrderNumber    string                    `json:"order_number"`
	SupplierID     uuid.UUID                 `json:"supplier_id"`
	LocationID     uuid.UUID                 `json:"location_id"`
	Status         enums.PurchaseOrderStatus `json:"status"`
	OrderType      enums.PurchaseOrderType   `json:"order_type"`
	OrderDate      time.Time                 `json:"order_date"`
	ExpectedDate   *time.Time                `json:"expected_date,omitempty"`
	RequestedBy    *string                   `json:"requested_by,omitempty"`
	ShippingMethod *string                   `json:"shipping_method,omitempty"`
	TrackingNumber *string                   `json:"tracking_number,omitempty"`
	Subtotal       decimal.Decimal           `json:"subtotal"`
	ShippingCost   decimal.Decimal           `json:"shipping_cost"`
	TaxAmount      decimal.Decimal           `json:"tax_amount"`
	TotalAmount    decimal.Decimal           `json:"total_amount"`
	Notes          *string                   `json:"notes,omitempty"`
	SubmittedAt    *time.Time                `json:"submitted_at,omitempty"`
	CompletedAt    *time.Time                `json:"completed_at,omitempty"`
	Lines          []OrderLineDTO            `json:"lines"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

func NewOrderDTO(o *models.PurchaseOrder, lines []models.PurchaseOrderLine) OrderDTO {
	out := OrderDTO{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		SupplierID:     o.SupplierID,
		LocationID:     o.LocationID,
		Status:         o.Status,
		OrderType:      o.OrderType,
		OrderDate:      o.OrderDate,
		ExpectedDate:   o.ExpectedDate,
		RequestedBy:    o.RequestedBy,
		ShippingMethod: o.ShippingMethod,
		TrackingNumber: o.TrackingNumber,
		Subtotal:       o.Subtotal,
		ShippingCost:   o.ShippingCost,
		TaxAmount:      o.TaxAmount,
		TotalAmount:    o.TotalAmount,
		Notes:          o.Notes,
		SubmittedAt:    o.SubmittedAt,
		CompletedAt:    o.CompletedAt,
		Lines:          make([]OrderLineDTO, 0, len(lines)),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	for i := range lines {
		out.Lines = append(out.Lines, NewOrderLineDTO(&lines[i]))
	}
	return out
}

type OrderListDTO struct {
	Items      []OrderDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ReceiveResultDTO pairs the updated order with the receipt rows it booked.
type ReceiveResultDTO struct {
	Order        OrderDTO                   `json:"order"`
	Transactions []inventory.TransactionDTO `json:"transactions"`
}

// RecommendationDTO suggests an order quantity for a low stock record.
type RecommendationDTO struct {
	InventoryRecordID   uuid.UUID       `json:"inventory_record_id"`
	PartID              uuid.UUID       `json:"part_id"`
	PartNumber          string          `json:"part_number"`
	Description         string          `json:"description"`
	LocationID          uuid.UUID       `json:"location_id"`
	QuantityOnHand      int             `json:"quantity_on_hand"`
	ReorderPoint        int             `json:"reorder_point"`
	OnOrder             int             `json:"on_order"`
	RecommendedQuantity int             `json:"recommended_quantity"`
	UnitCost            decimal.Decimal `json:"unit_cost"`
	EstimatedCost       decimal.Decimal `json:"estimated_cost"`
	SupplierID          *uuid.UUID      `json:"supplier_id,omitempty"`
	SupplierName        *string         `json:"supplier_name,omitempty"`
	LeadTimeDays        int             `json:"lead_time_days"`
	ExpectedDate        time.Time       `json:"expected_date"`
}

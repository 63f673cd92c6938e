package enums

import "fmt"

// PurchaseOrderStatus maps to the purchase_order_status_enum enum in Postgres.
type PurchaseOrderStatus string

const (
	PurchaseOrderDraft     PurchaseOrderStatus = "draft"
	PurchaseOrderSubmitted PurchaseOrderStatus = "submitted"
	PurchaseOrderPartial   PurchaseOrderStatus = "partial"
	PurchaseOrderComplete  PurchaseOrderStatus = "complete"
	PurchaseOrderCancelled PurchaseOrderStatus = "cancelled"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderDraft,
	PurchaseOrderSubmitted,
	PurchaseOrderPartial,
	PurchaseOrderComplete,
	PurchaseOrderCancelled,
}

func (s PurchaseOrderStatus) IsValid() bool {
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Receivable reports whether stock can still be booked against the order.
func (s PurchaseOrderStatus) Receivable() bool {
	return s == PurchaseOrderSubmitted || s == PurchaseOrderPartial
}

func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	for _, candidate := range validPurchaseOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order status %q", value)
}

// PurchaseOrderType maps to the purchase_order_type_enum enum in Postgres.
type PurchaseOrderType string

const (
	PurchaseOrderStock     PurchaseOrderType = "stock"
	PurchaseOrderSpecial   PurchaseOrderType = "special"
	PurchaseOrderEmergency PurchaseOrderType = "emergency"
)

var validPurchaseOrderTypes = []PurchaseOrderType{
	PurchaseOrderStock,
	PurchaseOrderSpecial,
	PurchaseOrderEmergency,
}

func (t PurchaseOrderType) IsValid() bool {
	for _, candidate := range validPurchaseOrderTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParsePurchaseOrderType(value string) (PurchaseOrderType, error) {
	for _, candidate := range validPurchaseOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order type %q", value)
}

// OrderLineStatus maps to the order_line_status_enum enum in Postgres.
type OrderLineStatus string

const (
	OrderLineOrdered     OrderLineStatus = "ordered"
	OrderLineBackordered OrderLineStatus = "backordered"
	OrderLineReceived    OrderLineStatus = "received"
	OrderLineCancelled   OrderLineStatus = "cancelled"
)

// Closed lines take no further receipts.
func (s OrderLineStatus) Closed() bool {
	return s == OrderLineReceived || s == OrderLineCancelled
}

// SupplierType maps to the supplier_type_enum enum in Postgres.
type SupplierType string

const (
	SupplierManufacturer SupplierType = "manufacturer"
	SupplierDistributor  SupplierType = "distributor"
	SupplierAftermarket  SupplierType = "aftermarket"
	SupplierLocal        SupplierType = "local"
)

var validSupplierTypes = []SupplierType{
	SupplierManufacturer,
	SupplierDistributor,
	SupplierAftermarket,
	SupplierLocal,
}

func (t SupplierType) IsValid() bool {
	for _, candidate := range validSupplierTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseSupplierType(value string) (SupplierType, error) {
	for _, candidate := range validSupplierTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid supplier type %q", value)
}

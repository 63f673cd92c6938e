package enums

import "fmt"

// PartTransactionType maps to the part_transaction_type_enum enum in Postgres.
type PartTransactionType string

const (
	PartTransactionReceipt    PartTransactionType = "receipt"
	PartTransactionSale       PartTransactionType = "sale"
	PartTransactionTransfer   PartTransactionType = "transfer"
	PartTransactionReturn     PartTransactionType = "return"
	PartTransactionAdjustment PartTransactionType = "adjustment"
	PartTransactionIssue      PartTransactionType = "issue"
)

var validPartTransactionTypes = []PartTransactionType{
	PartTransactionReceipt,
	PartTransactionSale,
	PartTransactionTransfer,
	PartTransactionReturn,
	PartTransactionAdjustment,
	PartTransactionIssue,
}

// IsValid reports whether the value matches the canonical part transaction enum.
func (t PartTransactionType) IsValid() bool {
	for _, candidate := range validPartTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Depletes reports whether the type can only be recorded against existing stock.
func (t PartTransactionType) Depletes() bool {
	return t == PartTransactionSale || t == PartTransactionIssue
}

// ParsePartTransactionType converts raw input into PartTransactionType.
func ParsePartTransactionType(value string) (PartTransactionType, error) {
	for _, candidate := range validPartTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid part transaction type %q", value)
}

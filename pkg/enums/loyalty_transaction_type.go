package enums

import "fmt"

// LoyaltyTransactionType maps to the loyalty_transaction_type_enum enum in Postgres.
type LoyaltyTransactionType string

const (
	LoyaltyTransactionEarned   LoyaltyTransactionType = "earned"
	LoyaltyTransactionRedeemed LoyaltyTransactionType = "redeemed"
	LoyaltyTransactionExpired  LoyaltyTransactionType = "expired"
	LoyaltyTransactionAdjusted LoyaltyTransactionType = "adjusted"
	LoyaltyTransactionReversed LoyaltyTransactionType = "reversed"
)

var validLoyaltyTransactionTypes = []LoyaltyTransactionType{
	LoyaltyTransactionEarned,
	LoyaltyTransactionRedeemed,
	LoyaltyTransactionExpired,
	LoyaltyTransactionAdjusted,
	LoyaltyTransactionReversed,
}

func (t LoyaltyTransactionType) IsValid() bool {
	for _, candidate := range validLoyaltyTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLoyaltyTransactionType converts raw input into LoyaltyTransactionType.
func ParseLoyaltyTransactionType(value string) (LoyaltyTransactionType, error) {
	for _, candidate := range validLoyaltyTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loyalty transaction type %q", value)
}

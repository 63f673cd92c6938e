package enums

import (
	"fmt"
	"strings"
)

// EarnActivity classifies what a customer did to earn points.
type EarnActivity string

const (
	EarnActivityService  EarnActivity = "service"
	EarnActivityParts    EarnActivity = "parts"
	EarnActivityReferral EarnActivity = "referral"
	EarnActivityPurchase EarnActivity = "purchase"
	EarnActivityOther    EarnActivity = "other"
)

var validEarnActivities = []EarnActivity{
	EarnActivityService,
	EarnActivityParts,
	EarnActivityReferral,
	EarnActivityPurchase,
	EarnActivityOther,
}

func (a EarnActivity) IsValid() bool {
	for _, candidate := range validEarnActivities {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseEarnActivity is case-insensitive; unknown activities are rejected.
func ParseEarnActivity(value string) (EarnActivity, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validEarnActivities {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid earn activity %q", value)
}

package enums

import (
	"fmt"
	"strings"
)

// LoyaltyTier maps to the loyalty_tier_enum enum in Postgres.
type LoyaltyTier string

const (
	LoyaltyTierBronze   LoyaltyTier = "bronze"
	LoyaltyTierSilver   LoyaltyTier = "silver"
	LoyaltyTierGold     LoyaltyTier = "gold"
	LoyaltyTierPlatinum LoyaltyTier = "platinum"
)

// RewardEligibilityAll is stored in a reward's eligible tiers to open it to every tier.
const RewardEligibilityAll = "all"

// validLoyaltyTiers is ordered from lowest to highest rank.
var validLoyaltyTiers = []LoyaltyTier{
	LoyaltyTierBronze,
	LoyaltyTierSilver,
	LoyaltyTierGold,
	LoyaltyTierPlatinum,
}

// LoyaltyTiers returns every tier in ascending rank.
func LoyaltyTiers() []LoyaltyTier {
	out := make([]LoyaltyTier, len(validLoyaltyTiers))
	copy(out, validLoyaltyTiers)
	return out
}

func (t LoyaltyTier) IsValid() bool {
	return t.Rank() >= 0
}

// Rank is the zero-based position of the tier, or -1 when unknown.
func (t LoyaltyTier) Rank() int {
	for i, candidate := range validLoyaltyTiers {
		if candidate == t {
			return i
		}
	}
	return -1
}

func (t LoyaltyTier) String() string {
	return string(t)
}

// ParseLoyaltyTier is case-insensitive so "Gold" and "gold" both resolve.
func ParseLoyaltyTier(value string) (LoyaltyTier, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validLoyaltyTiers {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loyalty tier %q", value)
}

package enums

import "fmt"

// RewardStatus maps to the reward_status_enum enum in Postgres.
type RewardStatus string

const (
	RewardStatusActive       RewardStatus = "active"
	RewardStatusInactive     RewardStatus = "inactive"
	RewardStatusDiscontinued RewardStatus = "discontinued"
	RewardStatusComingSoon   RewardStatus = "coming_soon"
)

var validRewardStatuses = []RewardStatus{
	RewardStatusActive,
	RewardStatusInactive,
	RewardStatusDiscontinued,
	RewardStatusComingSoon,
}

func (s RewardStatus) IsValid() bool {
	for _, candidate := range validRewardStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRewardStatus converts raw input into RewardStatus.
func ParseRewardStatus(value string) (RewardStatus, error) {
	for _, candidate := range validRewardStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reward status %q", value)
}

// RewardCategory maps to the reward_category_enum enum in Postgres.
type RewardCategory string

const (
	RewardCategoryService     RewardCategory = "service"
	RewardCategoryParts       RewardCategory = "parts"
	RewardCategoryExperience  RewardCategory = "experience"
	RewardCategoryDiscount    RewardCategory = "discount"
	RewardCategoryGiftCard    RewardCategory = "gift_card"
	RewardCategoryMerchandise RewardCategory = "merchandise"
	RewardCategoryAccess      RewardCategory = "access"
)

var validRewardCategories = []RewardCategory{
	RewardCategoryService,
	RewardCategoryParts,
	RewardCategoryExperience,
	RewardCategoryDiscount,
	RewardCategoryGiftCard,
	RewardCategoryMerchandise,
	RewardCategoryAccess,
}

func (c RewardCategory) IsValid() bool {
	for _, candidate := range validRewardCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseRewardCategory converts raw input into RewardCategory.
func ParseRewardCategory(value string) (RewardCategory, error) {
	for _, candidate := range validRewardCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reward category %q", value)
}

// RedemptionStatus maps to the redemption_status_enum enum in Postgres.
type RedemptionStatus string

const (
	RedemptionStatusActive    RedemptionStatus = "active"
	RedemptionStatusUsed      RedemptionStatus = "used"
	RedemptionStatusExpired   RedemptionStatus = "expired"
	RedemptionStatusCancelled RedemptionStatus = "cancelled"
	RedemptionStatusPending   RedemptionStatus = "pending"
)

var validRedemptionStatuses = []RedemptionStatus{
	RedemptionStatusActive,
	RedemptionStatusUsed,
	RedemptionStatusExpired,
	RedemptionStatusCancelled,
	RedemptionStatusPending,
}

func (s RedemptionStatus) IsValid() bool {
	for _, candidate := range validRedemptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRedemptionStatus converts raw input into RedemptionStatus.
func ParseRedemptionStatus(value string) (RedemptionStatus, error) {
	for _, candidate := range validRedemptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid redemption status %q", value)
}

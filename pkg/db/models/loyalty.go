package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/pkg/enums"
)

// LoyaltyAccount is the per-customer points balance.
type LoyaltyAccount struct {
	ID                     uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID             uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;uniqueIndex"`
	Tier                   enums.LoyaltyTier `gorm:"column:tier;type:loyalty_tier_enum;not null"`
	CurrentPoints          int               `gorm:"column:current_points;not null;default:0"`
	LifetimePointsEarned   int               `gorm:"column:lifetime_points_earned;not null;default:0"`
	LifetimePointsRedeemed int               `gorm:"column:lifetime_points_redeemed;not null;default:0"`
	EnrollmentDate         time.Time         `gorm:"column:enrollment_date;not null"`
	LastActivityAt         *time.Time        `gorm:"column:last_activity_at"`
	TierUpdatedAt          *time.Time        `gorm:"column:tier_updated_at"`
	CreatedAt              time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// LoyaltyTransaction is an append-only points ledger entry. PointsBalance is
// the account balance right after the entry was applied.
type LoyaltyTransaction struct {
	ID              uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID       uuid.UUID                    `gorm:"column:account_id;type:uuid;not null"`
	CustomerID      uuid.UUID                    `gorm:"column:customer_id;type:uuid;not null"`
	TransactionType enums.LoyaltyTransactionType `gorm:"column:transaction_type;type:loyalty_transaction_type_enum;not null"`
	Points          int                          `gorm:"column:points;not null"`
	PointsBalance   int                          `gorm:"column:points_balance;not null"`
	Source          string                       `gorm:"column:source;not null"`
	ReferenceID     *string                      `gorm:"column:reference_id"`
	Description     string                       `gorm:"column:description;not null"`
	ExpiresAt       *time.Time                   `gorm:"column:expires_at"`
	CreatedAt       time.Time                    `gorm:"column:created_at;autoCreateTime"`
}

// LoyaltyTierConfig holds the threshold and multiplier for a tier.
type LoyaltyTierConfig struct {
	Tier             enums.LoyaltyTier `gorm:"column:tier;type:loyalty_tier_enum;primaryKey"`
	Name             string            `gorm:"column:name;not null"`
	MinimumPoints    int               `gorm:"column:minimum_points;not null"`
	PointsMultiplier decimal.Decimal   `gorm:"column:points_multiplier;type:numeric(6,3);not null;default:1"`
	Benefits         pq.StringArray    `gorm:"column:benefits;type:text[]"`
	IsActive         bool              `gorm:"column:is_active;not null;default:true"`
	DisplayOrder     int               `gorm:"column:display_order;not null;default:0"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// LoyaltyReward is a catalog item customers can redeem points for.
// A nil QuantityAvailable means unlimited stock.
type LoyaltyReward struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string               `gorm:"column:name;not null"`
	Description       string               `gorm:"column:description;not null;default:''"`
	Category          enums.RewardCategory `gorm:"column:category;type:reward_category_enum;not null"`
	PointsCost        int                  `gorm:"column:points_cost;not null"`
	EligibleTiers     pq.StringArray       `gorm:"column:eligible_tiers;type:text[];not null"`
	QuantityAvailable *int                 `gorm:"column:quantity_available"`
	QuantityRedeemed  int                  `gorm:"column:quantity_redeemed;not null;default:0"`
	Status            enums.RewardStatus   `gorm:"column:status;type:reward_status_enum;not null"`
	ExpirationDays    *int                 `gorm:"column:expiration_days"`
	RequiresApproval  bool                 `gorm:"column:requires_approval;not null;default:false"`
	Terms             *string              `gorm:"column:terms"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// RedeemedReward records one redemption of a reward by a customer.
type RedeemedReward struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID      uuid.UUID              `gorm:"column:account_id;type:uuid;not null"`
	CustomerID     uuid.UUID              `gorm:"column:customer_id;type:uuid;not null"`
	RewardID       uuid.UUID              `gorm:"column:reward_id;type:uuid;not null"`
	RedemptionCode string                 `gorm:"column:redemption_code;not null"`
	PointsSpent    int                    `gorm:"column:points_spent;not null"`
	Status         enums.RedemptionStatus `gorm:"column:status;type:redemption_status_enum;not null"`
	RedeemedAt     time.Time              `gorm:"column:redeemed_at;not null"`
	ExpiresAt      *time.Time             `gorm:"column:expires_at"`
	UsedAt         *time.Time             `gorm:"column:used_at"`
	Notes          *string                `gorm:"column:notes"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

package loyalty

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
)

type AccountDTO struct {
	ID                     uuid.UUID         `json:"id"`
	CustomerID             uuid.UUID         `json:"customer_id"`
	Tier                   enums.LoyaltyTier `json:"tier"`
	CurrentPoints          int               `json:"current_points"`
	LifetimePointsEarned   int               `json:"lifetime_points_earned"`
	LifetimePointsRedeemed int               `json:"lifetime_points_redeemed"`
	EnrollmentDate         time.Time         `json:"enrollment_date"`
	LastActivityAt         *time.Time        `json:"last_activity_at,omitempty"`
	TierUpdatedAt          *time.Time        `json:"tier_updated_at,omitempty"`
}

type TransactionDTO struct {
	ID              uuid.UUID                    `json:"id"`
	AccountID       uuid.UUID                    `json:"account_id"`
	CustomerID      uuid.UUID                    `json:"customer_id"`
	TransactionType enums.LoyaltyTransactionType `json:"transaction_type"`
	Points          int                          `json:"points"`
	PointsBalance   int                          `json:"points_balance"`
	Source          string                       `json:"source"`
	ReferenceID     *string                      `json:"reference_id,omitempty"`
	Description     string                       `json:"description"`
	ExpiresAt       *time.Time                   `json:"expires_at,omitempty"`
	CreatedAt       time.Time                    `json:"created_at"`
}

// TransactionListDTO is a cursor page of points ledger entries.
type TransactionListDTO struct {
	Items      []TransactionDTO `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type TierDTO struct {
	Tier             enums.LoyaltyTier `json:"tier"`
	Name             string            `json:"name"`
	MinimumPoints    int               `json:"minimum_points"`
	PointsMultiplier decimal.Decimal   `json:"points_multiplier"`
	Benefits         []string          `json:"benefits"`
	IsActive         bool              `json:"is_active"`
	DisplayOrder     int               `json:"display_order"`
}

// RewardDTO describes a catalog reward. QuantityRemaining is nil for unlimited stock.
type RewardDTO struct {
	ID                uuid.UUID            `json:"id"`
	Name              string               `json:"name"`
	Description       string               `json:"description"`
	Category          enums.RewardCategory `json:"category"`
	PointsCost        int                  `json:"points_cost"`
	EligibleTiers     []string             `json:"eligible_tiers"`
	QuantityAvailable *int                 `json:"quantity_available,omitempty"`
	QuantityRedeemed  int                  `json:"quantity_redeemed"`
	QuantityRemaining *int                 `json:"quantity_remaining,omitempty"`
	Status            enums.RewardStatus   `json:"status"`
	ExpirationDays    *int                 `json:"expiration_days,omitempty"`
	RequiresApproval  bool                 `json:"requires_approval"`
	Terms             *string              `json:"terms,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

type RedemptionDTO struct {
	ID             uuid.UUID              `json:"id"`
	AccountID      uuid.UUID              `json:"account_id"`
	CustomerID     uuid.UUID              `json:"customer_id"`
	RewardID       uuid.UUID              `json:"reward_id"`
	RedemptionCode string                 `json:"redemption_code"`
	PointsSpent    int                    `json:"points_spent"`
	Status         enums.RedemptionStatus `json:"status"`
	RedeemedAt     time.Time              `json:"redeemed_at"`
	ExpiresAt      *time.Time             `json:"expires_at,omitempty"`
	UsedAt         *time.Time             `json:"used_at,omitempty"`
	Notes          *string                `json:"notes,omitempty"`
}

// RedemptionResult reports the outcome of a redeem request. A rejected
// redemption is not an error: Success is false and Message says why.
type RedemptionResult struct {
	Success         bool           `json:"success"`
	Message         string         `json:"message"`
	Redemption      *RedemptionDTO `json:"redemption,omitempty"`
	RemainingPoints int            `json:"remaining_points"`
}

// EarnResultDTO is returned by AddPoints.
type EarnResultDTO struct {
	Account       AccountDTO        `json:"account"`
	PointsAwarded int               `json:"points_awarded"`
	Transaction   TransactionDTO    `json:"transaction"`
	PreviousTier  enums.LoyaltyTier `json:"previous_tier"`
	TierChanged   bool              `json:"tier_changed"`
}

// StatusDTO is the customer facing loyalty summary.
type StatusDTO struct {
	CustomerID             uuid.UUID          `json:"customer_id"`
	AccountID              uuid.UUID          `json:"account_id"`
	Tier                   enums.LoyaltyTier  `json:"tier"`
	TierName               string             `json:"tier_name"`
	CurrentPoints          int                `json:"current_points"`
	LifetimePointsEarned   int                `json:"lifetime_points_earned"`
	LifetimePointsRedeemed int                `json:"lifetime_points_redeemed"`
	MemberSince            time.Time          `json:"member_since"`
	NextTier               *enums.LoyaltyTier `json:"next_tier,omitempty"`
	PointsToNextTier       int                `json:"points_to_next_tier"`
	PointsExpiringSoon     int                `json:"points_expiring_soon"`
	PointsExpirationDate   *time.Time         `json:"points_expiration_date,omitempty"`
	Benefits               []string           `json:"benefits"`
	AvailableRewards       []RewardDTO        `json:"available_rewards"`
}

// ExpirySummary counts what an expiry sweep processed.
type ExpirySummary struct {
	Entries int `json:"entries"`
	Points  int `json:"points"`
}

func NewAccountDTO(account *models.LoyaltyAccount) AccountDTO {
	return AccountDTO{
		ID:                     account.ID,
		CustomerID:             account.CustomerID,
		Tier:                   account.Tier,
		CurrentPoints:          account.CurrentPoints,
		LifetimePointsEarned:   account.LifetimePointsEarned,
		LifetimePointsRedeemed: account.LifetimePointsRedeemed,
		EnrollmentDate:         account.EnrollmentDate,
		LastActivityAt:         account.LastActivityAt,
		TierUpdatedAt:          account.TierUpdatedAt,
	}
}

func NewTransactionDTO(entry *models.LoyaltyTransaction) TransactionDTO {
	return TransactionDTO{
		ID:              entry.ID,
		AccountID:       entry.AccountID,
		CustomerID:      entry.CustomerID,
		TransactionType: entry.TransactionType,
		Points:          entry.Points,
		PointsBalance:   entry.PointsBalance,
		Source:          entry.Source,
		ReferenceID:     entry.ReferenceID,
		Description:     entry.Description,
		ExpiresAt:       entry.ExpiresAt,
		CreatedAt:       entry.CreatedAt,
	}
}

func NewTierDTO(cfg *models.LoyaltyTierConfig) TierDTO {
	benefits := []string(cfg.Benefits)
	if benefits == nil {
		benefits = []string{}
	}
	return TierDTO{
		Tier:             cfg.Tier,
		Name:             cfg.Name,
		MinimumPoints:    cfg.MinimumPoints,
		PointsMultiplier: cfg.PointsMultiplier,
		Benefits:         benefits,
		IsActive:         cfg.IsActive,
		DisplayOrder:     cfg.DisplayOrder,
	}
}

func NewRewardDTO(reward *models.LoyaltyReward) RewardDTO {
	dto := RewardDTO{
		ID:                reward.ID,
		Name:              reward.Name,
		Description:       reward.Description,
		Category:          reward.Category,
		PointsCost:        reward.PointsCost,
		EligibleTiers:     []string(reward.EligibleTiers),
		QuantityAvailable: reward.QuantityAvailable,
		QuantityRedeemed:  reward.QuantityRedeemed,
		Status:            reward.Status,
		ExpirationDays:    reward.ExpirationDays,
		RequiresApproval:  reward.RequiresApproval,
		Terms:             reward.Terms,
		CreatedAt:         reward.CreatedAt,
		UpdatedAt:         reward.UpdatedAt,
	}
	if reward.QuantityAvailable != nil {
		remaining := *reward.QuantityAvailable - reward.QuantityRedeemed
		if remaining < 0 {
			remaining = 0
		}
		dto.QuantityRemaining = &remaining
	}
	return dto
}

func NewRedemptionDTO(redemption *models.RedeemedReward) RedemptionDTO {
	return RedemptionDTO{
		ID:             redemption.ID,
		AccountID:      redemption.AccountID,
		CustomerID:     redemption.CustomerID,
		RewardID:       redemption.RewardID,
		RedemptionCode: redemption.RedemptionCode,
		PointsSpent:    redemption.PointsSpent,
		Status:         redemption.Status,
		RedeemedAt:     redemption.RedeemedAt,
		ExpiresAt:      redemption.ExpiresAt,
		UsedAt:         redemption.UsedAt,
		Notes:          redemption.Notes,
	}
}

func newRewardDTOs(rows []models.LoyaltyReward) []RewardDTO {
	out := make([]RewardDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewRewardDTO(&rows[i]))
	}
	return out
}

func newRedemptionDTOs(rows []models.RedeemedReward) []RedemptionDTO {
	out := make([]RedemptionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewRedemptionDTO(&rows[i]))
	}
	return out
}

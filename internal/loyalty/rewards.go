package loyalty

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/pkg/db"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/outbox"
	"github.com/dealerworks/dms-backend/pkg/outbox/payloads"
)

// RewardInput creates a catalog reward. Empty EligibleTiers opens it to all tiers.
type RewardInput struct {
	Name              string
	Description       string
	Category          string
	PointsCost        int
	EligibleTiers     []string
	QuantityAvailable *int
	Status            string
	ExpirationDays    *int
	RequiresApproval  bool
	Terms             *string
}

// RewardUpdateInput carries a partial reward update. ClearQuantityLimit makes
// the reward unlimited again and cannot be combined with QuantityAvailable.
type RewardUpdateInput struct {
	Name               *string
	Description        *string
	Category           *string
	PointsCost         *int
	EligibleTiers      []string
	QuantityAvailable  *int
	ClearQuantityLimit bool
	Status             *string
	ExpirationDays     *int
	RequiresApproval   *bool
	Terms              *string
}

func (s *service) CreateReward(ctx context.Context, input RewardInput) (*RewardDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward name is required")
	}
	if input.PointsCost <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points cost must be greater than zero")
	}
	category, err := enums.ParseRewardCategory(input.Category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reward category")
	}
	status := enums.RewardStatusActive
	if input.Status != "" {
		if status, err = enums.ParseRewardStatus(input.Status); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reward status")
		}
	}
	tiers, err := normalizeEligibleTiers(input.EligibleTiers)
	if err != nil {
		return nil, err
	}
	if err := validateRewardLimits(input.QuantityAvailable, input.ExpirationDays); err != nil {
		return nil, err
	}

	reward := &models.LoyaltyReward{
		Name:              name,
		Description:       strings.TrimSpace(input.Description),
		Category:          category,
		PointsCost:        input.PointsCost,
		EligibleTiers:     tiers,
		QuantityAvailable: input.QuantityAvailable,
		Status:            status,
		ExpirationDays:    input.ExpirationDays,
		RequiresApproval:  input.RequiresApproval,
		Terms:             input.Terms,
	}
	if err := s.repo.CreateReward(ctx, reward); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reward")
	}
	return s.GetReward(ctx, reward.ID)
}

func (s *service) UpdateReward(ctx context.Context, id uuid.UUID, input RewardUpdateInput) (*RewardDTO, error) {
	reward, err := s.repo.FindReward(ctx, id)
	if err != nil {
		return nil, rewardLookupError(err)
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward name is required")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		category, err := enums.ParseRewardCategory(*input.Category)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reward category")
		}
		updates["category"] = category
	}
	if input.PointsCost != nil {
		if *input.PointsCost <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "points cost must be greater than zero")
		}
		updates["points_cost"] = *input.PointsCost
	}
	if input.EligibleTiers != nil {
		tiers, err := normalizeEligibleTiers(input.EligibleTiers)
		if err != nil {
			return nil, err
		}
		updates["eligible_tiers"] = tiers
	}
	if err := validateRewardLimits(input.QuantityAvailable, input.ExpirationDays); err != nil {
		return nil, err
	}
	if input.ClearQuantityLimit {
		if input.QuantityAvailable != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity available cannot be set while clearing the limit")
		}
		updates["quantity_available"] = nil
	}
	if input.QuantityAvailable != nil {
		if *input.QuantityAvailable < reward.QuantityRedeemed {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity available cannot be below quantity redeemed")
		}
		updates["quantity_available"] = *input.QuantityAvailable
	}
	if input.Status != nil {
		status, err := enums.ParseRewardStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reward status")
		}
		updates["status"] = status
	}
	if input.ExpirationDays != nil {
		updates["expiration_days"] = *input.ExpirationDays
	}
	if input.RequiresApproval != nil {
		updates["requires_approval"] = *input.RequiresApproval
	}
	if input.Terms != nil {
		updates["terms"] = *input.Terms
	}

	if err := s.repo.UpdateReward(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update reward")
	}
	return s.GetReward(ctx, id)
}

func (s *service) GetReward(ctx context.Context, id uuid.UUID) (*RewardDTO, error) {
	reward, err := s.repo.FindReward(ctx, id)
	if err != nil {
		return nil, rewardLookupError(err)
	}
	dto := NewRewardDTO(reward)
	return &dto, nil
}

func (s *service) ListRewards(ctx context.Context, status *enums.RewardStatus) ([]RewardDTO, error) {
	rows, err := s.repo.ListRewards(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rewards")
	}
	return newRewardDTOs(rows), nil
}

// ApproveRedemption activates a pending redemption.
func (s *service) ApproveRedemption(ctx context.Context, id uuid.UUID, performedBy *string) (*RedemptionDTO, error) {
	return s.transition(ctx, id, performedBy, func(r *models.RedeemedReward, now time.Time) (enums.RedemptionStatus, map[string]any, error) {
		if r.Status != enums.RedemptionStatusPending {
			return "", nil, stateConflict(r.Status, "approved")
		}
		return enums.RedemptionStatusActive, nil, nil
	})
}

// UseRedemption marks an active, unexpired redemption as used.
func (s *service) UseRedemption(ctx context.Context, id uuid.UUID, performedBy *string) (*RedemptionDTO, error) {
	return s.transition(ctx, id, performedBy, func(r *models.RedeemedReward, now time.Time) (enums.RedemptionStatus, map[string]any, error) {
		if r.Status != enums.RedemptionStatusActive {
			return "", nil, stateConflict(r.Status, "used")
		}
		if r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
			return "", nil, pkgerrors.New(pkgerrors.CodeStateConflict, "redemption has expired")
		}
		return enums.RedemptionStatusUsed, map[string]any{"used_at": now}, nil
	})
}

// CancelRedemption cancels a pending or active redemption and refunds its
// points, releasing the reward stock it held.
func (s *service) CancelRedemption(ctx context.Context, id uuid.UUID, reason string, performedBy *string) (*RedemptionDTO, error) {
	reason = strings.TrimSpace(reason)
	return s.transition(ctx, id, performedBy, func(r *models.RedeemedReward, now time.Time) (enums.RedemptionStatus, map[string]any, error) {
		if r.Status != enums.RedemptionStatusPending && r.Status != enums.RedemptionStatusActive {
			return "", nil, stateConflict(r.Status, "cancelled")
		}
		if reason == "" {
			return enums.RedemptionStatusCancelled, nil, nil
		}
		return enums.RedemptionStatusCancelled, map[string]any{"notes": reason}, nil
	})
}

type transitionFunc func(r *models.RedeemedReward, now time.Time) (enums.RedemptionStatus, map[string]any, error)

func (s *service) transition(ctx context.Context, id uuid.UUID, performedBy *string, decide transitionFunc) (*RedemptionDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption id is required")
	}
	now := s.now()
	var (
		updated  *models.RedeemedReward
		refunded int
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		redemption, err := txRepo.FindRedemption(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "redemption not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load redemption")
		}
		next, extra, err := decide(redemption, now)
		if err != nil {
			return err
		}
		previous := redemption.Status
		ok, err := txRepo.TransitionRedemption(ctx, id, previous, next, extra)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update redemption")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "redemption status changed concurrently")
		}

		if next == enums.RedemptionStatusCancelled {
			if err := s.refund(ctx, txRepo, redemption, now); err != nil {
				return err
			}
			refunded = redemption.PointsSpent
		}

		if updated, err = txRepo.FindRedemption(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload redemption")
		}
		return s.emitRedemptionStatus(ctx, tx, updated, previous, refunded, performedBy, now)
	})
	if err != nil {
		return nil, asServiceError(err, "update redemption")
	}
	if refunded > 0 && s.metrics != nil {
		s.metrics.AddPoints(string(enums.LoyaltyTransactionReversed), refunded)
	}
	dto := NewRedemptionDTO(updated)
	return &dto, nil
}

func (s *service) refund(ctx context.Context, txRepo *Repository, redemption *models.RedeemedReward, now time.Time) error {
	if err := txRepo.RefundRedemption(ctx, redemption.AccountID, redemption.PointsSpent, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund points")
	}
	if err := txRepo.ReleaseReward(ctx, redemption.RewardID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release reward")
	}
	account, err := txRepo.FindAccount(ctx, redemption.AccountID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload loyalty account")
	}
	reference := redemption.ID.String()
	entry := &models.LoyaltyTransaction{
		AccountID:       account.ID,
		CustomerID:      account.CustomerID,
		TransactionType: enums.LoyaltyTransactionReversed,
		Points:          redemption.PointsSpent,
		PointsBalance:   account.CurrentPoints,
		Source:          sourceRefund,
		ReferenceID:     &reference,
		Description:     "Refund for cancelled redemption " + redemption.RedemptionCode,
		CreatedAt:       now,
	}
	if err := txRepo.CreateTransaction(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert loyalty transaction")
	}
	return nil
}

func (s *service) emitRedemptionStatus(ctx context.Context, tx *gorm.DB, r *models.RedeemedReward, previous enums.RedemptionStatus, refunded int, performedBy *string, now time.Time) error {
	return s.emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRedemptionStatusChanged,
		AggregateType: enums.AggregateRedemption,
		AggregateID:   r.ID,
		Actor:         actorRef(performedBy),
		OccurredAt:    now,
		Data: payloads.RedemptionStatusChangedEvent{
			RedemptionID:   r.ID,
			CustomerID:     r.CustomerID,
			PreviousStatus: previous,
			Status:         r.Status,
			RefundedPoints: refunded,
		},
	})
}

func stateConflict(current enums.RedemptionStatus, target string) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "redemption in status %s cannot be %s", current, target).
		WithDetails(map[string]any{"status": current})
}

func rewardLookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reward")
}

func normalizeEligibleTiers(values []string) (pq.StringArray, error) {
	if len(values) == 0 {
		return pq.StringArray{enums.RewardEligibilityAll}, nil
	}
	out := make(pq.StringArray, 0, len(values))
	seen := map[string]bool{}
	for _, value := range values {
		v := strings.ToLower(strings.TrimSpace(value))
		if v != enums.RewardEligibilityAll {
			tier, err := enums.ParseLoyaltyTier(v)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid eligible tier")
			}
			v = string(tier)
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

func validateRewardLimits(quantity, expirationDays *int) error {
	if quantity != nil && *quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity available cannot be negative")
	}
	if expirationDays != nil && *expirationDays <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "expiration days must be greater than zero")
	}
	return nil
}

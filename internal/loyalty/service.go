package loyalty

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/pkg/db"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
	"github.com/dealerworks/dms-backend/pkg/outbox"
	"github.com/dealerworks/dms-backend/pkg/outbox/payloads"
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

const (
	// DefaultPointsExpiryDays is how long earned points stay spendable.
	DefaultPointsExpiryDays = 365
	// DefaultRedemptionExpiryDays applies to rewards without expiration days.
	DefaultRedemptionExpiryDays = 365

	expiringWindow = 30 * 24 * time.Hour

	sourceRedemption = "reward_redemption"
	sourceRefund     = "redemption_cancelled"
	sourceTierUpdate = "tier_update"
	sourceExpiry     = "points_expiry"
)

// Service manages loyalty accounts, points, rewards and redemptions.
type Service interface {
	AddPoints(ctx context.Context, input AddPointsInput) (*EarnResultDTO, error)
	RedeemPoints(ctx context.Context, input RedeemInput) (*RedemptionResult, error)
	GetStatus(ctx context.Context, customerID uuid.UUID) (*StatusDTO, error)
	History(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*TransactionListDTO, error)
	AvailableRewards(ctx context.Context, customerID uuid.UUID) ([]RewardDTO, error)
	Redemptions(ctx context.Context, customerID uuid.UUID) ([]RedemptionDTO, error)
	UpdateTier(ctx context.Context, input UpdateTierInput) (*StatusDTO, error)
	AdjustPoints(ctx context.Context, input AdjustPointsInput) (*TransactionDTO, error)
	CalculateEarnablePoints(ctx context.Context, input CalculateInput) (int, error)
	Tiers(ctx context.Context) ([]TierDTO, error)
	SyncTiers(ctx context.Context, defs []TierDefinition) error

	CreateReward(ctx context.Context, input RewardInput) (*RewardDTO, error)
	UpdateReward(ctx context.Context, id uuid.UUID, input RewardUpdateInput) (*RewardDTO, error)
	GetReward(ctx context.Context, id uuid.UUID) (*RewardDTO, error)
	ListRewards(ctx context.Context, status *enums.RewardStatus) ([]RewardDTO, error)
	ApproveRedemption(ctx context.Context, id uuid.UUID, performedBy *string) (*RedemptionDTO, error)
	UseRedemption(ctx context.Context, id uuid.UUID, performedBy *string) (*RedemptionDTO, error)
	CancelRedemption(ctx context.Context, id uuid.UUID, reason string, performedBy *string) (*RedemptionDTO, error)

	ExpirePoints(ctx context.Context, now time.Time) (ExpirySummary, error)
	ExpireRedemptions(ctx context.Context, now time.Time) (int, error)
}

type AddPointsInput struct {
	CustomerID  uuid.UUID
	Points      int
	Source      string
	ReferenceID *string
	PerformedBy *string
}

type RedeemInput struct {
	CustomerID  uuid.UUID
	RewardID    uuid.UUID
	PerformedBy *string
}

type UpdateTierInput struct {
	CustomerID  uuid.UUID
	Tier        string
	Reason      string
	PerformedBy *string
}

// AdjustPointsInput is a manual balance correction. Delta may be negative.
type AdjustPointsInput struct {
	CustomerID  uuid.UUID
	Delta       int
	Reason      string
	PerformedBy *string
}

// CalculateInput previews points for a purchase. Tier may be empty.
type CalculateInput struct {
	Activity string
	Amount   decimal.Decimal
	Tier     string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type pointsMetrics interface {
	AddPoints(entryType string, points int)
	IncRedemption(outcome string)
}

// ServiceParams wires the loyalty service dependencies.
type ServiceParams struct {
	Repo             *Repository
	DB               txRunner
	Outbox           outbox.Emitter
	Metrics          pointsMetrics
	Logger           *logger.Logger
	PointsExpiryDays int
}

type service struct {
	repo       *Repository
	db         txRunner
	outbox     outbox.Emitter
	metrics    pointsMetrics
	logg       *logger.Logger
	expiryDays int
	now        func() time.Time
	codeSuffix func() int
}

// NewService constructs the loyalty service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("loyalty repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	expiry := params.PointsExpiryDays
	if expiry <= 0 {
		expiry = DefaultPointsExpiryDays
	}
	return &service{
		repo:       params.Repo,
		db:         params.DB,
		outbox:     params.Outbox,
		metrics:    params.Metrics,
		logg:       params.Logger,
		expiryDays: expiry,
		now:        func() time.Time { return time.Now().UTC() },
		codeSuffix: func() int { return 1000 + rand.IntN(9000) },
	}, nil
}

// AddPoints awards floor(points x tier multiplier) to the customer, enrolling
// them at Bronze first when needed. Tier re-evaluation only ever promotes.
func (s *service) AddPoints(ctx context.Context, input AddPointsInput) (*EarnResultDTO, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if input.Points <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must be greater than zero")
	}
	source := strings.TrimSpace(input.Source)
	if source == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source is required")
	}

	now := s.now()
	var (
		result   EarnResultDTO
		promoted bool
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := ensureCustomer(ctx, txRepo, input.CustomerID); err != nil {
			return err
		}
		account, err := txRepo.EnsureAccount(ctx, input.CustomerID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enroll loyalty account")
		}
		configs, err := txRepo.ListTierConfigs(ctx, true)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tier config")
		}
		tiers := newTierTable(configs)

		awarded := int(decimal.NewFromInt(int64(input.Points)).Mul(tiers.multiplier(account.Tier)).Floor().IntPart())
		if err := txRepo.CreditPoints(ctx, account.ID, awarded, true, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit points")
		}
		if account, err = txRepo.FindAccount(ctx, account.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload loyalty account")
		}

		expires := now.AddDate(0, 0, s.expiryDays)
		entry := &models.LoyaltyTransaction{
			AccountID:       account.ID,
			CustomerID:      account.CustomerID,
			TransactionType: enums.LoyaltyTransactionEarned,
			Points:          awarded,
			PointsBalance:   account.CurrentPoints,
			Source:          source,
			ReferenceID:     input.ReferenceID,
			Description:     fmt.Sprintf("Points earned from %s", source),
			ExpiresAt:       &expires,
			CreatedAt:       now,
		}
		if err := txRepo.CreateTransaction(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert loyalty transaction")
		}
		if err := s.emitPoints(ctx, tx, enums.EventLoyaltyPointsEarned, account, entry, input.PerformedBy); err != nil {
			return err
		}

		result.PreviousTier = account.Tier
		if target, ok := tiers.forPoints(account.CurrentPoints); ok && target.Rank() > account.Tier.Rank() {
			if err := s.changeTier(ctx, tx, txRepo, account, target, "points threshold reached", input.PerformedBy, now); err != nil {
				return err
			}
			promoted = true
		}

		result.Account = NewAccountDTO(account)
		result.PointsAwarded = awarded
		result.Transaction = NewTransactionDTO(entry)
		result.TierChanged = promoted
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "add points")
	}
	if s.metrics != nil {
		s.metrics.AddPoints(string(enums.LoyaltyTransactionEarned), result.PointsAwarded)
	}
	if promoted && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"customer_id":   input.CustomerID.String(),
			"previous_tier": result.PreviousTier,
			"tier":          result.Account.Tier,
		})
		s.logg.Info(logCtx, "loyalty.tier.promoted")
	}
	return &result, nil
}

// changeTier persists the new tier on account and queues the change event.
func (s *service) changeTier(ctx context.Context, tx *gorm.DB, txRepo *Repository, account *models.LoyaltyAccount, tier enums.LoyaltyTier, reason string, performedBy *string, now time.Time) error {
	previous := account.Tier
	if err := txRepo.SetTier(ctx, account.ID, tier, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tier")
	}
	account.Tier = tier
	account.TierUpdatedAt = &now

	return s.emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventLoyaltyTierChanged,
		AggregateType: enums.AggregateLoyaltyAccount,
		AggregateID:   account.ID,
		Actor:         actorRef(performedBy),
		OccurredAt:    now,
		Data: payloads.LoyaltyTierChangedEvent{
			AccountID:    account.ID,
			CustomerID:   account.CustomerID,
			PreviousTier: previous,
			Tier:         tier,
			Reason:       reason,
		},
	})
}

// redeemRejected carries a soft failure out of the redeem transaction so the
// writes roll back.
type redeemRejected struct {
	message   string
	remaining int
}

func (r *redeemRejected) Error() string { return r.message }

// RedeemPoints spends points on a reward. Checks run in order: account, reward,
// reward active, balance, tier eligibility, remaining stock.
func (s *service) RedeemPoints(ctx context.Context, input RedeemInput) (*RedemptionResult, error) {
	if input.CustomerID == uuid.Nil || input.RewardID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id and reward id are required")
	}

	now := s.now()
	var result *RedemptionResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		account, err := txRepo.FindAccountByCustomer(ctx, input.CustomerID)
		if err != nil {
			if db.IsNotFound(err) {
				return &redeemRejected{message: "Customer loyalty record not found"}
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loyalty account")
		}
		reward, err := txRepo.FindReward(ctx, input.RewardID)
		if err != nil {
			if db.IsNotFound(err) {
				return &redeemRejected{message: "Reward not found", remaining: account.CurrentPoints}
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reward")
		}
		reject := func(msg string) error {
			return &redeemRejected{message: msg, remaining: account.CurrentPoints}
		}
		switch {
		case reward.Status != enums.RewardStatusActive:
			return reject("Reward is not active")
		case account.CurrentPoints < reward.PointsCost:
			return reject("Insufficient points for redemption")
		case !eligible(reward.EligibleTiers, account.Tier):
			return reject("Customer tier not eligible for this reward")
		case !inStock(reward):
			return reject("Reward is no longer available")
		}

		ok, err := txRepo.DebitPointsGuarded(ctx, account.ID, reward.PointsCost, true, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit points")
		}
		if !ok {
			return reject("Insufficient points for redemption")
		}
		if ok, err = txRepo.ClaimReward(ctx, reward.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim reward")
		}
		if !ok {
			return reject("Reward is no longer available")
		}

		code, err := s.redemptionCode(ctx, txRepo, now)
		if err != nil {
			return err
		}
		days := DefaultRedemptionExpiryDays
		if reward.ExpirationDays != nil && *reward.ExpirationDays > 0 {
			days = *reward.ExpirationDays
		}
		expires := now.AddDate(0, 0, days)
		status := enums.RedemptionStatusActive
		if reward.RequiresApproval {
			status = enums.RedemptionStatusPending
		}
		redemption := &models.RedeemedReward{
			AccountID:      account.ID,
			CustomerID:     account.CustomerID,
			RewardID:       reward.ID,
			RedemptionCode: code,
			PointsSpent:    reward.PointsCost,
			Status:         status,
			RedeemedAt:     now,
			ExpiresAt:      &expires,
		}
		if err := txRepo.CreateRedemption(ctx, redemption); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert redemption")
		}

		if account, err = txRepo.FindAccount(ctx, account.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload loyalty account")
		}
		reference := redemption.ID.String()
		entry := &models.LoyaltyTransaction{
			AccountID:       account.ID,
			CustomerID:      account.CustomerID,
			TransactionType: enums.LoyaltyTransactionRedeemed,
			Points:          -reward.PointsCost,
			PointsBalance:   account.CurrentPoints,
			Source:          sourceRedemption,
			ReferenceID:     &reference,
			Description:     fmt.Sprintf("Redeemed: %s", reward.Name),
			CreatedAt:       now,
		}
		if err := txRepo.CreateTransaction(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert loyalty transaction")
		}

		err = s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRewardRedeemed,
			AggregateType: enums.AggregateRedemption,
			AggregateID:   redemption.ID,
			Actor:         actorRef(input.PerformedBy),
			OccurredAt:    now,
			Data: payloads.RewardRedeemedEvent{
				RedemptionID:   redemption.ID,
				CustomerID:     redemption.CustomerID,
				RewardID:       reward.ID,
				RedemptionCode: code,
				PointsSpent:    reward.PointsCost,
				Status:         status,
			},
		})
		if err != nil {
			return err
		}

		dto := NewRedemptionDTO(redemption)
		result = &RedemptionResult{
			Success:         true,
			Message:         "Reward redeemed",
			Redemption:      &dto,
			RemainingPoints: account.CurrentPoints,
		}
		return nil
	})

	var rejected *redeemRejected
	if errors.As(err, &rejected) {
		s.countRedemption("rejected")
		return &RedemptionResult{Message: rejected.message, RemainingPoints: rejected.remaining}, nil
	}
	if err != nil {
		s.countRedemption("error")
		return nil, asServiceError(err, "redeem points")
	}
	s.countRedemption("success")
	if s.metrics != nil {
		s.metrics.AddPoints(string(enums.LoyaltyTransactionRedeemed), result.Redemption.PointsSpent)
	}
	return result, nil
}

// redemptionCode builds RDM{yyyyMMdd}{1000-9999}, retrying on collision.
func (s *service) redemptionCode(ctx context.Context, txRepo *Repository, now time.Time) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code := fmt.Sprintf("RDM%s%d", now.Format("20060102"), s.codeSuffix())
		exists, err := txRepo.RedemptionCodeExists(ctx, code)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check redemption code")
		}
		if !exists {
			return code, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique redemption code")
}

// GetStatus summarizes the customer's standing, enrolling them when needed.
func (s *service) GetStatus(ctx context.Context, customerID uuid.UUID) (*StatusDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if err := ensureCustomer(ctx, s.repo, customerID); err != nil {
		return nil, err
	}
	now := s.now()
	account, err := s.repo.EnsureAccount(ctx, customerID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enroll loyalty account")
	}
	configs, err := s.repo.ListTierConfigs(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tier config")
	}
	tiers := newTierTable(configs)

	status := &StatusDTO{
		CustomerID:             account.CustomerID,
		AccountID:              account.ID,
		Tier:                   account.Tier,
		TierName:               string(account.Tier),
		CurrentPoints:          account.CurrentPoints,
		LifetimePointsEarned:   account.LifetimePointsEarned,
		LifetimePointsRedeemed: account.LifetimePointsRedeemed,
		MemberSince:            account.EnrollmentDate,
		Benefits:               []string{},
	}
	if current := tiers.find(account.Tier); current != nil {
		status.TierName = current.Name
		if len(current.Benefits) > 0 {
			status.Benefits = []string(current.Benefits)
		}
	}
	if next := tiers.next(account.Tier); next != nil {
		tier := next.Tier
		status.NextTier = &tier
		if gap := next.MinimumPoints - account.CurrentPoints; gap > 0 {
			status.PointsToNextTier = gap
		}
	}

	expiring, err := s.repo.ExpiringSoon(ctx, customerID, now, now.Add(expiringWindow))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load expiring points")
	}
	for i, entry := range expiring {
		status.PointsExpiringSoon += entry.Points
		if i == 0 {
			status.PointsExpirationDate = entry.ExpiresAt
		}
	}

	rewards, err := s.eligibleRewards(ctx, account.Tier)
	if err != nil {
		return nil, err
	}
	status.AvailableRewards = []RewardDTO{}
	for _, reward := range rewards {
		if reward.PointsCost <= account.CurrentPoints {
			status.AvailableRewards = append(status.AvailableRewards, reward)
		}
	}
	return status, nil
}

func (s *service) History(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*TransactionListDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	page, err := pagination.NewPage(params)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListTransactions(ctx, customerID, page.Cursor, page.Fetch())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list loyalty transactions")
	}

	result := &TransactionListDTO{}
	rows, result.NextCursor = pagination.Trim(rows, page.Limit, func(t *models.LoyaltyTransaction) pagination.Cursor {
		return pagination.Cursor{At: t.CreatedAt, ID: t.ID}
	})
	result.Items = make([]TransactionDTO, 0, len(rows))
	for i := range rows {
		result.Items = append(result.Items, NewTransactionDTO(&rows[i]))
	}
	return result, nil
}

// AvailableRewards lists in-stock active rewards open to the customer's tier.
// Customers without an account see what Bronze members see.
func (s *service) AvailableRewards(ctx context.Context, customerID uuid.UUID) ([]RewardDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if err := ensureCustomer(ctx, s.repo, customerID); err != nil {
		return nil, err
	}
	tier := enums.LoyaltyTierBronze
	account, err := s.repo.FindAccountByCustomer(ctx, customerID)
	switch {
	case err == nil:
		tier = account.Tier
	case !db.IsNotFound(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loyalty account")
	}
	return s.eligibleRewards(ctx, tier)
}

func (s *service) eligibleRewards(ctx context.Context, tier enums.LoyaltyTier) ([]RewardDTO, error) {
	active := enums.RewardStatusActive
	rows, err := s.repo.ListRewards(ctx, &active)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rewards")
	}
	out := make([]RewardDTO, 0, len(rows))
	for i := range rows {
		if eligible(rows[i].EligibleTiers, tier) && inStock(&rows[i]) {
			out = append(out, NewRewardDTO(&rows[i]))
		}
	}
	return out, nil
}

func (s *service) Redemptions(ctx context.Context, customerID uuid.UUID) ([]RedemptionDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	rows, err := s.repo.ListRedemptions(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list redemptions")
	}
	return newRedemptionDTOs(rows), nil
}

// UpdateTier sets the tier manually and records a zero point adjusted entry.
func (s *service) UpdateTier(ctx context.Context, input UpdateTierInput) (*StatusDTO, error) {
	tier, err := enums.ParseLoyaltyTier(input.Tier)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tier level")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "manual update"
	}

	now := s.now()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		account, err := loadAccount(ctx, txRepo, input.CustomerID)
		if err != nil {
			return err
		}
		previous := account.Tier
		if err := s.changeTier(ctx, tx, txRepo, account, tier, reason, input.PerformedBy, now); err != nil {
			return err
		}
		entry := &models.LoyaltyTransaction{
			AccountID:       account.ID,
			CustomerID:      account.CustomerID,
			TransactionType: enums.LoyaltyTransactionAdjusted,
			Points:          0,
			PointsBalance:   account.CurrentPoints,
			Source:          sourceTierUpdate,
			Description:     fmt.Sprintf("Tier changed from %s to %s: %s", previous, tier, reason),
			CreatedAt:       now,
		}
		if err := txRepo.CreateTransaction(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert loyalty transaction")
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "update tier")
	}
	return s.GetStatus(ctx, input.CustomerID)
}

// AdjustPoints applies a manual correction. The balance may not go below zero
// and the tier is left unchanged.
func (s *service) AdjustPoints(ctx context.Context, input AdjustPointsInput) (*TransactionDTO, error) {
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment cannot be zero")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment reason is required")
	}

	now := s.now()
	var entry *models.LoyaltyTransaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		account, err := loadAccount(ctx, txRepo, input.CustomerID)
		if err != nil {
			return err
		}
		if input.Delta > 0 {
			err = txRepo.CreditPoints(ctx, account.ID, input.Delta, false, now)
		} else {
			var ok bool
			ok, err = txRepo.DebitPointsGuarded(ctx, account.ID, -input.Delta, false, now)
			if err == nil && !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "adjustment would make points negative").
					WithDetails(map[string]any{"current_points": account.CurrentPoints, "delta": input.Delta})
			}
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust points")
		}
		if account, err = txRepo.FindAccount(ctx, account.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload loyalty account")
		}

		entry = &models.LoyaltyTransaction{
			AccountID:       account.ID,
			CustomerID:      account.CustomerID,
			TransactionType: enums.LoyaltyTransactionAdjusted,
			Points:          input.Delta,
			PointsBalance:   account.CurrentPoints,
			Source:          "manual_adjustment",
			Description:     reason,
			CreatedAt:       now,
		}
		if err := txRepo.CreateTransaction(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert loyalty transaction")
		}
		return s.emitPoints(ctx, tx, enums.EventLoyaltyPointsAdjusted, account, entry, input.PerformedBy)
	})
	if err != nil {
		return nil, asServiceError(err, "adjust points")
	}
	if s.metrics != nil {
		s.metrics.AddPoints(string(enums.LoyaltyTransactionAdjusted), input.Delta)
	}
	dto := NewTransactionDTO(entry)
	return &dto, nil
}

var activityBonus = map[string]decimal.Decimal{
	string(enums.EarnActivityService):  decimal.RequireFromString("1.5"),
	string(enums.EarnActivityParts):    decimal.RequireFromString("1.2"),
	string(enums.EarnActivityReferral): decimal.RequireFromString("2.0"),
}

// CalculateEarnablePoints previews points for a purchase: one point per whole
// currency unit, scaled by the tier multiplier and then the activity bonus,
// truncating after each step.
func (s *service) CalculateEarnablePoints(ctx context.Context, input CalculateInput) (int, error) {
	if input.Amount.IsNegative() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount cannot be negative")
	}
	points := input.Amount.Floor()

	if strings.TrimSpace(input.Tier) != "" {
		tier, err := enums.ParseLoyaltyTier(input.Tier)
		if err != nil {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid tier level")
		}
		configs, err := s.repo.ListTierConfigs(ctx, true)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tier config")
		}
		points = points.Mul(newTierTable(configs).multiplier(tier)).Floor()
	}

	bonus, ok := activityBonus[strings.ToLower(strings.TrimSpace(input.Activity))]
	if !ok {
		bonus = decimal.NewFromInt(1)
	}
	return int(points.Mul(bonus).Floor().IntPart()), nil
}

func (s *service) Tiers(ctx context.Context) ([]TierDTO, error) {
	rows, err := s.repo.ListTierConfigs(ctx, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tiers")
	}
	out := make([]TierDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewTierDTO(&rows[i]))
	}
	return out, nil
}

// SyncTiers upserts tier definitions, typically loaded from the tier file at
// startup. Tiers not named in defs are left as they are.
func (s *service) SyncTiers(ctx context.Context, defs []TierDefinition) error {
	configs, err := toTierConfigs(defs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tier definitions")
	}
	now := s.now()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for i := range configs {
			configs[i].UpdatedAt = now
			if err := txRepo.UpsertTierConfig(ctx, &configs[i]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("upsert tier %s", configs[i].Tier))
			}
		}
		return nil
	})
	if err != nil {
		return asServiceError(err, "sync tiers")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "tiers", len(configs)), "loyalty.tiers.synced")
	}
	return nil
}

func (s *service) emitPoints(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, account *models.LoyaltyAccount, entry *models.LoyaltyTransaction, performedBy *string) error {
	return s.emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateLoyaltyAccount,
		AggregateID:   account.ID,
		Actor:         actorRef(performedBy),
		OccurredAt:    entry.CreatedAt,
		Data: payloads.LoyaltyPointsEvent{
			AccountID:     account.ID,
			CustomerID:    account.CustomerID,
			TransactionID: entry.ID,
			Type:          entry.TransactionType,
			Points:        entry.Points,
			Balance:       entry.PointsBalance,
			Source:        entry.Source,
		},
	})
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("queue %s event", event.EventType))
	}
	return nil
}

func (s *service) countRedemption(outcome string) {
	if s.metrics != nil {
		s.metrics.IncRedemption(outcome)
	}
}

func ensureCustomer(ctx context.Context, repo *Repository, id uuid.UUID) error {
	if _, err := repo.FindCustomer(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return nil
}

func loadAccount(ctx context.Context, repo *Repository, customerID uuid.UUID) (*models.LoyaltyAccount, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	account, err := repo.FindAccountByCustomer(ctx, customerID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loyalty account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loyalty account")
	}
	return account, nil
}

func actorRef(performedBy *string) *outbox.ActorRef {
	if performedBy == nil || *performedBy == "" {
		return nil
	}
	return &outbox.ActorRef{UserID: *performedBy}
}

func asServiceError(err error, action string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

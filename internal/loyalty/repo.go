package loyalty

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

// Repository persists loyalty accounts, the points ledger, tier configuration,
// the reward catalog and redemptions.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *Repository) FindAccountByCustomer(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	if err := r.db.WithContext(ctx).First(&account, "customer_id = ?", customerID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *Repository) FindAccount(ctx context.Context, id uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// EnsureAccount inserts a Bronze account for the customer unless one exists
// and returns the stored row.
func (r *Repository) EnsureAccount(ctx context.Context, customerID uuid.UUID, now time.Time) (*models.LoyaltyAccount, error) {
	account := &models.LoyaltyAccount{
		CustomerID:     customerID,
		Tier:           enums.LoyaltyTierBronze,
		EnrollmentDate: now,
		LastActivityAt: &now,
		TierUpdatedAt:  &now,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoNothing: true,
		}).
		Create(account).Error
	if err != nil {
		return nil, err
	}
	return r.FindAccountByCustomer(ctx, customerID)
}

// CreditPoints adds points to the balance. Earned points also count toward
// the lifetime total.
func (r *Repository) CreditPoints(ctx context.Context, accountID uuid.UUID, points int, earned bool, now time.Time) error {
	updates := map[string]any{
		"current_points":   gorm.Expr("current_points + ?", points),
		"last_activity_at": now,
		"updated_at":       now,
	}
	if earned {
		updates["lifetime_points_earned"] = gorm.Expr("lifetime_points_earned + ?", points)
	}
	return r.db.WithContext(ctx).
		Model(&models.LoyaltyAccount{}).
		Where("id = ?", accountID).
		Updates(updates).Error
}

// DebitPointsGuarded removes points only when the balance covers them. It
// reports false when the guard rejected the update.
func (r *Repository) DebitPointsGuarded(ctx context.Context, accountID uuid.UUID, points int, redeemed bool, now time.Time) (bool, error) {
	updates := map[string]any{
		"current_points":   gorm.Expr("current_points - ?", points),
		"last_activity_at": now,
		"updated_at":       now,
	}
	if redeemed {
		updates["lifetime_points_redeemed"] = gorm.Expr("lifetime_points_redeemed + ?", points)
	}
	res := r.db.WithContext(ctx).
		Model(&models.LoyaltyAccount{}).
		Where("id = ? AND current_points >= ?", accountID, points).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RefundRedemption returns spent points to the balance and backs them out of
// the lifetime redeemed total.
func (r *Repository) RefundRedemption(ctx context.Context, accountID uuid.UUID, points int, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.LoyaltyAccount{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"current_points":           gorm.Expr("current_points + ?", points),
			"lifetime_points_redeemed": gorm.Expr("lifetime_points_redeemed - ?", points),
			"last_activity_at":         now,
			"updated_at":               now,
		}).Error
}

func (r *Repository) SetTier(ctx context.Context, accountID uuid.UUID, tier enums.LoyaltyTier, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.LoyaltyAccount{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"tier":            tier,
			"tier_updated_at": now,
			"updated_at":      now,
		}).Error
}

func (r *Repository) CreateTransaction(ctx context.Context, entry *models.LoyaltyTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListTransactions returns a customer's ledger newest first. limit should
// already include the look-ahead row.
func (r *Repository) ListTransactions(ctx context.Context, customerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LoyaltyTransaction, error) {
	query := r.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Where("customer_id = ?", customerID).
		Scopes(pagination.Keyset("created_at", cursor, limit))
	var rows []models.LoyaltyTransaction
	err := query.Find(&rows).Error
	return rows, err
}

// ExpiringSoon returns earned entries expiring in (now, until], soonest first.
func (r *Repository) ExpiringSoon(ctx context.Context, customerID uuid.UUID, now, until time.Time) ([]models.LoyaltyTransaction, error) {
	var rows []models.LoyaltyTransaction
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND transaction_type = ?", customerID, enums.LoyaltyTransactionEarned).
		Where("expires_at > ? AND expires_at <= ?", now, until).
		Order("expires_at ASC").
		Find(&rows).Error
	return rows, err
}

// LedgerTotals sums an account's ledger for the expiry sweep. Earned covers
// earned entries created at or before earnedThrough. Spent is the net of
// redemptions, refunds and manual adjustments, reported as a positive amount
// when points left the balance. Expired is the total already written off.
type LedgerTotals struct {
	Earned  int
	Spent   int
	Expired int
}

func (r *Repository) LedgerTotals(ctx context.Context, accountID uuid.UUID, earnedThrough time.Time) (LedgerTotals, error) {
	var row struct {
		Earned  int
		Other   int
		Expired int
	}
	err := r.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Select(`COALESCE(SUM(CASE WHEN transaction_type = ? AND created_at <= ? THEN points ELSE 0 END), 0) AS earned,
COALESCE(SUM(CASE WHEN transaction_type IN ? THEN points ELSE 0 END), 0) AS other,
COALESCE(SUM(CASE WHEN transaction_type = ? THEN points ELSE 0 END), 0) AS expired`,
			enums.LoyaltyTransactionEarned, earnedThrough,
			[]enums.LoyaltyTransactionType{enums.LoyaltyTransactionRedeemed, enums.LoyaltyTransactionReversed, enums.LoyaltyTransactionAdjusted},
			enums.LoyaltyTransactionExpired).
		Where("account_id = ?", accountID).
		Scan(&row).Error
	if err != nil {
		return LedgerTotals{}, err
	}
	totals := LedgerTotals{Earned: row.Earned, Expired: -row.Expired}
	if row.Other < 0 {
		totals.Spent = -row.Other
	}
	return totals, nil
}

// ListExpiredEarned returns earned entries past expiration that have no
// expired entry referencing them yet.
func (r *Repository) ListExpiredEarned(ctx context.Context, now time.Time, limit int) ([]models.LoyaltyTransaction, error) {
	query := r.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Where("transaction_type = ? AND expires_at IS NOT NULL AND expires_at <= ?", enums.LoyaltyTransactionEarned, now).
		Where(`NOT EXISTS (
SELECT 1 FROM loyalty_transactions AS e
WHERE e.transaction_type = ? AND e.reference_id = CAST(loyalty_transactions.id AS TEXT)
)`, enums.LoyaltyTransactionExpired).
		Order("expires_at ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.LoyaltyTransaction
	err := query.Find(&rows).Error
	return rows, err
}

func (r *Repository) ListTierConfigs(ctx context.Context, activeOnly bool) ([]models.LoyaltyTierConfig, error) {
	query := r.db.WithContext(ctx).Model(&models.LoyaltyTierConfig{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []models.LoyaltyTierConfig
	err := query.Order("minimum_points ASC").Find(&rows).Error
	return rows, err
}

// UpsertTierConfig writes every column of cfg, keyed by tier.
func (r *Repository) UpsertTierConfig(ctx context.Context, cfg *models.LoyaltyTierConfig) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tier"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "minimum_points", "points_multiplier", "benefits", "is_active", "display_order", "updated_at",
			}),
		}).
		Create(cfg).Error
	if err != nil || cfg.IsActive {
		return err
	}
	// is_active has a column default, so a false value is not part of the insert.
	return r.db.WithContext(ctx).
		Model(&models.LoyaltyTierConfig{}).
		Where("tier = ?", cfg.Tier).
		Update("is_active", false).Error
}

func (r *Repository) CreateReward(ctx context.Context, reward *models.LoyaltyReward) error {
	return r.db.WithContext(ctx).Create(reward).Error
}

func (r *Repository) FindReward(ctx context.Context, id uuid.UUID) (*models.LoyaltyReward, error) {
	var reward models.LoyaltyReward
	if err := r.db.WithContext(ctx).First(&reward, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *Repository) UpdateReward(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.LoyaltyReward{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ListRewards orders the catalog by cost. A nil status returns every reward.
func (r *Repository) ListRewards(ctx context.Context, status *enums.RewardStatus) ([]models.LoyaltyReward, error) {
	query := r.db.WithContext(ctx).Model(&models.LoyaltyReward{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var rows []models.LoyaltyReward
	err := query.Order("points_cost ASC").Order("name ASC").Find(&rows).Error
	return rows, err
}

// ClaimReward counts one redemption against the reward stock. It reports
// false when limited stock is exhausted.
func (r *Repository) ClaimReward(ctx context.Context, rewardID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LoyaltyReward{}).
		Where("id = ? AND (quantity_available IS NULL OR quantity_redeemed < quantity_available)", rewardID).
		Updates(map[string]any{
			"quantity_redeemed": gorm.Expr("quantity_redeemed + 1"),
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) ReleaseReward(ctx context.Context, rewardID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.LoyaltyReward{}).
		Where("id = ? AND quantity_redeemed > 0", rewardID).
		Updates(map[string]any{
			"quantity_redeemed": gorm.Expr("quantity_redeemed - 1"),
			"updated_at":        time.Now().UTC(),
		}).Error
}

func (r *Repository) CreateRedemption(ctx context.Context, redemption *models.RedeemedReward) error {
	return r.db.WithContext(ctx).Create(redemption).Error
}

func (r *Repository) RedemptionCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RedeemedReward{}).
		Where("redemption_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) FindRedemption(ctx context.Context, id uuid.UUID) (*models.RedeemedReward, error) {
	var redemption models.RedeemedReward
	if err := r.db.WithContext(ctx).First(&redemption, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &redemption, nil
}

func (r *Repository) ListRedemptions(ctx context.Context, customerID uuid.UUID) ([]models.RedeemedReward, error) {
	var rows []models.RedeemedReward
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("redeemed_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// TransitionRedemption moves a redemption to status only while it is still in
// from. It reports false when another writer moved it first.
func (r *Repository) TransitionRedemption(ctx context.Context, id uuid.UUID, from enums.RedemptionStatus, to enums.RedemptionStatus, extra map[string]any) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.RedeemedReward{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListLapsedRedemptions returns active redemptions whose expiration passed.
func (r *Repository) ListLapsedRedemptions(ctx context.Context, now time.Time, limit int) ([]models.RedeemedReward, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", enums.RedemptionStatusActive, now).
		Order("expires_at ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.RedeemedReward
	err := query.Find(&rows).Error
	return rows, err
}

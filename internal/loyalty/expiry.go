package loyalty

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/pkg/db"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
)

const (
	expiryBatchSize       = 500
	expiredReferenceIndex = "ux_loyalty_transactions_expired_reference"
)

// ExpirePoints writes an expired entry for every earned entry past its
// expiration. Spending consumes the oldest earned points first, so an entry
// only loses what is still outstanding of it; see outstandingPoints. Each entry
// is handled in its own transaction; failures are collected and the sweep goes on.
func (s *service) ExpirePoints(ctx context.Context, now time.Time) (ExpirySummary, error) {
	var summary ExpirySummary
	rows, err := s.repo.ListExpiredEarned(ctx, now, expiryBatchSize)
	if err != nil {
		return summary, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired points")
	}

	var errs error
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return summary, multierr.Append(errs, err)
		}
		deducted, err := s.expireEntry(ctx, &rows[i], now)
		if err != nil {
			if db.IsUniqueViolation(err, expiredReferenceIndex) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("expire entry %s: %w", rows[i].ID, err))
			continue
		}
		summary.Entries++
		summary.Points += deducted
	}
	if s.metrics != nil && summary.Points > 0 {
		s.metrics.AddPoints(string(enums.LoyaltyTransactionExpired), summary.Points)
	}
	return summary, errs
}

func (s *service) expireEntry(ctx context.Context, earned *models.LoyaltyTransaction, now time.Time) (int, error) {
	deducted := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		account, err := txRepo.FindAccount(ctx, earned.AccountID)
		if err != nil {
			return err
		}
		totals, err := txRepo.LedgerTotals(ctx, account.ID, earned.CreatedAt)
		if err != nil {
			return err
		}
		deducted = outstandingPoints(earned.Points, totals, account.CurrentPoints)
		if deducted > 0 {
			ok, err := txRepo.DebitPointsGuarded(ctx, account.ID, deducted, false, now)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("balance changed during expiry")
			}
			if account, err = txRepo.FindAccount(ctx, account.ID); err != nil {
				return err
			}
		}

		reference := earned.ID.String()
		entry := &models.LoyaltyTransaction{
			AccountID:       account.ID,
			CustomerID:      account.CustomerID,
			TransactionType: enums.LoyaltyTransactionExpired,
			Points:          -deducted,
			PointsBalance:   account.CurrentPoints,
			Source:          sourceExpiry,
			ReferenceID:     &reference,
			Description:     fmt.Sprintf("Expired points earned %s", earned.CreatedAt.UTC().Format("2006-01-02")),
			CreatedAt:       now,
		}
		if err := txRepo.CreateTransaction(ctx, entry); err != nil {
			return err
		}
		if deducted == 0 {
			return nil
		}
		return s.emitPoints(ctx, tx, enums.EventLoyaltyPointsExpired, account, entry, nil)
	})
	return deducted, err
}

// outstandingPoints is the part of an earned entry not yet consumed by
// spending or earlier expiries, capped at the current balance.
func outstandingPoints(entryPoints int, totals LedgerTotals, balance int) int {
	remaining := totals.Earned - totals.Spent - totals.Expired
	if remaining < 0 {
		remaining = 0
	}
	return min(entryPoints, remaining, balance)
}

// ExpireRedemptions moves active redemptions past their expiration to expired.
func (s *service) ExpireRedemptions(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.repo.ListLapsedRedemptions(ctx, now, expiryBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list lapsed redemptions")
	}

	expired := 0
	var errs error
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return expired, multierr.Append(errs, err)
		}
		row := rows[i]
		moved := false
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			ok, err := txRepo.TransitionRedemption(ctx, row.ID, enums.RedemptionStatusActive, enums.RedemptionStatusExpired, nil)
			if err != nil || !ok {
				return err
			}
			moved = true
			row.Status = enums.RedemptionStatusExpired
			return s.emitRedemptionStatus(ctx, tx, &row, enums.RedemptionStatusActive, 0, nil, now)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire redemption %s: %w", row.ID, err))
			continue
		}
		if moved {
			expired++
		}
	}
	return expired, errs
}

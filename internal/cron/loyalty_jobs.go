package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/dealerworks/dms-backend/internal/loyalty"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

type pointsExpirer interface {
	ExpirePoints(ctx context.Context, now time.Time) (loyalty.ExpirySummary, error)
}

type redemptionExpirer interface {
	ExpireRedemptions(ctx context.Context, now time.Time) (int, error)
}

type PointsExpiryJobParams struct {
	Logger  *logger.Logger
	Loyalty pointsExpirer
}

func NewPointsExpiryJob(params PointsExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Loyalty == nil {
		return nil, fmt.Errorf("loyalty service required")
	}
	return &pointsExpiryJob{logg: params.Logger, loyalty: params.Loyalty, now: time.Now}, nil
}

type pointsExpiryJob struct {
	logg    *logger.Logger
	loyalty pointsExpirer
	now     func() time.Time
}

func (j *pointsExpiryJob) Name() string { return "loyalty_points_expiry" }

// Run reports partial progress even when some entries failed; the error
// carries every failure.
func (j *pointsExpiryJob) Run(ctx context.Context) error {
	summary, err := j.loyalty.ExpirePoints(ctx, j.now().UTC())
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"entries_expired": summary.Entries,
		"points_expired":  summary.Points,
	}), "loyalty points expiry complete")
	if err != nil {
		return fmt.Errorf("expire points: %w", err)
	}
	return nil
}

type RedemptionExpiryJobParams struct {
	Logger  *logger.Logger
	Loyalty redemptionExpirer
}

func NewRedemptionExpiryJob(params RedemptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Loyalty == nil {
		return nil, fmt.Errorf("loyalty service required")
	}
	return &redemptionExpiryJob{logg: params.Logger, loyalty: params.Loyalty, now: time.Now}, nil
}

type redemptionExpiryJob struct {
	logg    *logger.Logger
	loyalty redemptionExpirer
	now     func() time.Time
}

func (j *redemptionExpiryJob) Name() string { return "loyalty_redemption_expiry" }

func (j *redemptionExpiryJob) Run(ctx context.Context) error {
	expired, err := j.loyalty.ExpireRedemptions(ctx, j.now().UTC())
	j.logg.Info(j.logg.WithField(ctx, "redemptions_expired", expired), "loyalty redemption expiry complete")
	if err != nil {
		return fmt.Errorf("expire redemptions: %w", err)
	}
	return nil
}

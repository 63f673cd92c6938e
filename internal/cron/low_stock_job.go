package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/dealerworks/dms-backend/pkg/logger"
)

type lowStockAlerter interface {
	EmitLowStockAlerts(ctx context.Context, now time.Time) (int, error)
}

type LowStockJobParams struct {
	Logger    *logger.Logger
	Inventory lowStockAlerter
}

func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	return &lowStockJob{logg: params.Logger, inventory: params.Inventory, now: time.Now}, nil
}

// lowStockJob queues low stock alerts; the outbox dedupe key keeps reruns on the same day quiet.
type lowStockJob struct {
	logg      *logger.Logger
	inventory lowStockAlerter
	now       func() time.Time
}

func (j *lowStockJob) Name() string { return "inventory_low_stock_scan" }

func (j *lowStockJob) Run(ctx context.Context) error {
	found, err := j.inventory.EmitLowStockAlerts(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("low stock scan: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "low_stock_records", found), "inventory low stock scan complete")
	return nil
}

// Package settings stores the operator-maintained CRM dashboard figures in
// the database so every API instance reads the same values.
package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/pkg/db"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

var (
	defaultRetentionRate     = decimal.RequireFromString("93.00")
	defaultSatisfactionScore = decimal.RequireFromString("82.00")
	hundred                  = decimal.NewFromInt(100)
)

type DashboardDTO struct {
	RetentionRate         decimal.Decimal `json:"retention_rate"`
	SatisfactionScore     decimal.Decimal `json:"satisfaction_score"`
	TotalCustomers        int64           `json:"total_customers"`
	NewCustomersThisMonth int64           `json:"new_customers_this_month"`
	UpdatedBy             *string         `json:"updated_by,omitempty"`
	UpdatedAt             *time.Time      `json:"updated_at,omitempty"`
}

// UpdateInput leaves nil fields unchanged. Both figures are percentages.
type UpdateInput struct {
	RetentionRate     *decimal.Decimal
	SatisfactionScore *decimal.Decimal
	UpdatedBy         *string
}

type Service interface {
	Get(ctx context.Context) (*DashboardDTO, error)
	Update(ctx context.Context, input UpdateInput) (*DashboardDTO, error)
}

type service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	return &service{repo: repo, logg: logg, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) load(ctx context.Context) (*models.DashboardSettings, error) {
	row, err := s.repo.Find(ctx, models.DashboardSettingsKey)
	if err == nil {
		return row, nil
	}
	if db.IsNotFound(err) {
		return &models.DashboardSettings{
			Key:               models.DashboardSettingsKey,
			RetentionRate:     defaultRetentionRate,
			SatisfactionScore: defaultSatisfactionScore,
		}, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dashboard settings")
}

func (s *service) Get(ctx context.Context) (*DashboardDTO, error) {
	row, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.dashboard(ctx, row)
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*DashboardDTO, error) {
	if err := checkPercent("retention rate", input.RetentionRate); err != nil {
		return nil, err
	}
	if err := checkPercent("satisfaction score", input.SatisfactionScore); err != nil {
		return nil, err
	}
	row, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if input.RetentionRate != nil {
		row.RetentionRate = input.RetentionRate.Round(2)
	}
	if input.SatisfactionScore != nil {
		row.SatisfactionScore = input.SatisfactionScore.Round(2)
	}
	if input.UpdatedBy != nil && strings.TrimSpace(*input.UpdatedBy) != "" {
		by := strings.TrimSpace(*input.UpdatedBy)
		row.UpdatedBy = &by
	}
	row.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save dashboard settings")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"retention_rate":     row.RetentionRate.String(),
			"satisfaction_score": row.SatisfactionScore.String(),
		}), "dashboard.settings.updated")
	}
	return s.dashboard(ctx, row)
}

func (s *service) dashboard(ctx context.Context, row *models.DashboardSettings) (*DashboardDTO, error) {
	total, err := s.repo.CountCustomers(ctx, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count customers")
	}
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	recent, err := s.repo.CountCustomers(ctx, &monthStart)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count new customers")
	}
	out := &DashboardDTO{
		RetentionRate:         row.RetentionRate,
		SatisfactionScore:     row.SatisfactionScore,
		TotalCustomers:        total,
		NewCustomersThisMonth: recent,
		UpdatedBy:             row.UpdatedBy,
	}
	if !row.UpdatedAt.IsZero() {
		at := row.UpdatedAt
		out.UpdatedAt = &at
	}
	return out, nil
}

func checkPercent(field string, v *decimal.Decimal) error {
	if v == nil {
		return nil
	}
	if v.IsNegative() || v.GreaterThan(hundred) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between 0 and 100", field)
	}
	return nil
}

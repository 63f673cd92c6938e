package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardSettingsKey is the row holding the CRM dashboard targets.
const DashboardSettingsKey = "crm_dashboard"

// DashboardSettings persists the operator-maintained dashboard figures.
type DashboardSettings struct {
	Key               string          `gorm:"column:key;primaryKey"`
	RetentionRate     decimal.Decimal `gorm:"column:retention_rate;type:numeric(5,2);not null"`
	SatisfactionScore decimal.Decimal `gorm:"column:satisfaction_score;type:numeric(5,2);not null"`
	UpdatedBy         *string         `gorm:"column:updated_by"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

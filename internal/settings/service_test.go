package settings

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerworks/dms-backend/pkg/db/dbtest"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
)

func newTestService(t *testing.T) (*service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo, nil)
	require.NoError(t, err)
	s := svc.(*service)
	s.now = func() time.Time { return time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC) }
	return s, repo
}

func TestGetReturnsSeededFigures(t *testing.T) {
	svc, repo := newTestService(t)
	db := repo.DB(context.Background())
	require.NoError(t, db.Create(&models.Customer{FirstName: "Old", LastName: "Timer", Email: "old@example.com", CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}).Error)
	require.NoError(t, db.Create(&models.Customer{FirstName: "New", LastName: "Comer", Email: "new@example.com", CreatedAt: time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC)}).Error)

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, got.RetentionRate.Equal(decimal.RequireFromString("93")))
	assert.True(t, got.SatisfactionScore.Equal(decimal.RequireFromString("82")))
	assert.EqualValues(t, 2, got.TotalCustomers)
	assert.EqualValues(t, 1, got.NewCustomersThisMonth)
}

func TestUpdatePersistsAcrossInstances(t *testing.T) {
	svc, repo := newTestService(t)
	rate := decimal.RequireFromString("95.456")
	who := "manager@dealer"

	updated, err := svc.Update(context.Background(), UpdateInput{RetentionRate: &rate, UpdatedBy: &who})
	require.NoError(t, err)
	assert.Equal(t, "95.46", updated.RetentionRate.StringFixed(2))
	assert.True(t, updated.SatisfactionScore.Equal(decimal.RequireFromString("82")))

	other, err := NewService(repo, nil)
	require.NoError(t, err)
	got, err := other.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "95.46", got.RetentionRate.StringFixed(2))
	require.NotNil(t, got.UpdatedBy)
	assert.Equal(t, who, *got.UpdatedBy)
}

func TestUpdateRejectsOutOfRange(t *testing.T) {
	svc, _ := newTestService(t)
	tooHigh := decimal.RequireFromString("100.5")
	negative := decimal.RequireFromString("-1")

	_, err := svc.Update(context.Background(), UpdateInput{SatisfactionScore: &tooHigh})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Update(context.Background(), UpdateInput{RetentionRate: &negative})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetFallsBackToDefaultsWhenRowMissing(t *testing.T) {
	svc, repo := newTestService(t)
	require.NoError(t, repo.DB(context.Background()).Where("key = ?", models.DashboardSettingsKey).Delete(&models.DashboardSettings{}).Error)

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, got.RetentionRate.Equal(defaultRetentionRate))
	assert.Nil(t, got.UpdatedAt)
}

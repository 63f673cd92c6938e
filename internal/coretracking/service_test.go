package coretracking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/pkg/db/dbtest"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/outbox"
)

var soldAt = time.Date(2025, 4, 2, 15, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *service
	conn     *gorm.DB
	corePart *models.Part
	plain    *models.Part
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.OpenClient(t)
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		DB:     client,
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)

	f := &fixture{svc: svc.(*service), conn: conn}
	f.svc.now = func() time.Time { return soldAt }
	f.corePart = &models.Part{
		PartNumber:  "ALT-200",
		Description: "Remanufactured alternator",
		RetailPrice: decimal.RequireFromString("289.99"),
		HasCore:     true,
		CoreCharge:  decimal.RequireFromString("60.00"),
	}
	f.plain = &models.Part{PartNumber: "WIPER-18", Description: "Wiper blade"}
	require.NoError(t, conn.Create(f.corePart).Error)
	require.NoError(t, conn.Create(f.plain).Error)
	return f
}

func (f *fixture) sell(t *testing.T) *CoreChargeDTO {
	t.Helper()
	invoice := "INV-1001"
	core, err := f.svc.Create(context.Background(), CreateInput{PartID: f.corePart.ID, InvoiceNumber: &invoice})
	require.NoError(t, err)
	return core
}

func TestCreateDefaultsCoreValueFromPart(t *testing.T) {
	f := newFixture(t)
	core := f.sell(t)

	assert.Equal(t, enums.CoreStatusSold, core.Status)
	assert.True(t, core.CoreValue.Equal(decimal.RequireFromString("60")))
	assert.True(t, core.SoldAt.Equal(soldAt))
	require.NotNil(t, core.InvoiceNumber)
	assert.Equal(t, "INV-1001", *core.InvoiceNumber)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventCoreStatusChanged).Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestCreateRejectsPartWithoutCore(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{PartID: f.plain.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(context.Background(), CreateInput{PartID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	stranger := uuid.New()
	_, err = f.svc.Create(context.Background(), CreateInput{PartID: f.corePart.ID, CustomerID: &stranger})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	negative := decimal.NewFromInt(-5)
	_, err = f.svc.Create(context.Background(), CreateInput{PartID: f.corePart.ID, CoreValue: &negative})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestReturnThenCredit(t *testing.T) {
	f := newFixture(t)
	core := f.sell(t)

	returned, err := f.svc.ProcessReturn(context.Background(), core.ID, ReturnInput{
		Damaged:           true,
		DamageDescription: "cracked housing",
		Notes:             "Dropped off at counter",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.CoreStatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnedAt)
	require.NotNil(t, returned.Notes)
	assert.Equal(t, "RETURN (2025-04-02): Dropped off at counter DAMAGED: cracked housing", *returned.Notes)

	_, err = f.svc.ProcessReturn(context.Background(), core.ID, ReturnInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	partial := decimal.RequireFromString("30.00")
	credited, err := f.svc.ApplyCredit(context.Background(), core.ID, CreditInput{Amount: &partial, Notes: "damage deduction"})
	require.NoError(t, err)
	assert.Equal(t, enums.CoreStatusCredited, credited.Status)
	require.NotNil(t, credited.CreditAmount)
	assert.True(t, credited.CreditAmount.Equal(partial))
	assert.Contains(t, *credited.Notes, "\nCREDIT (2025-04-02): damage deduction")

	_, err = f.svc.ApplyCredit(context.Background(), core.ID, CreditInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCreditRequiresReturnAndDefaultsToCoreValue(t *testing.T) {
	f := newFixture(t)
	core := f.sell(t)

	_, err := f.svc.ApplyCredit(context.Background(), core.ID, CreditInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.ProcessReturn(context.Background(), core.ID, ReturnInput{})
	require.NoError(t, err)

	negative := decimal.NewFromInt(-1)
	_, err = f.svc.ApplyCredit(context.Background(), core.ID, CreditInput{Amount: &negative})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	credited, err := f.svc.ApplyCredit(context.Background(), core.ID, CreditInput{})
	require.NoError(t, err)
	require.NotNil(t, credited.CreditAmount)
	assert.True(t, credited.CreditAmount.Equal(decimal.RequireFromString("60")))
	assert.Nil(t, credited.Notes)

	_, err = f.svc.ProcessReturn(context.Background(), uuid.New(), ReturnInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestOutstandingValueAndListing(t *testing.T) {
	f := newFixture(t)
	first := f.sell(t)
	f.svc.now = func() time.Time { return soldAt.Add(time.Minute) }
	f.sell(t)
	override := decimal.RequireFromString("45.50")
	f.svc.now = func() time.Time { return soldAt.Add(2 * time.Minute) }
	_, err := f.svc.Create(context.Background(), CreateInput{PartID: f.corePart.ID, CoreValue: &override})
	require.NoError(t, err)

	_, err = f.svc.ProcessReturn(context.Background(), first.ID, ReturnInput{})
	require.NoError(t, err)

	outstanding, err := f.svc.OutstandingValue(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, outstanding.Count)
	assert.True(t, outstanding.Total.Equal(decimal.RequireFromString("105.5")), outstanding.Total.String())

	sold := enums.CoreStatusSold
	list, err := f.svc.List(context.Background(), ListInput{Status: &sold})
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)

	returned := enums.CoreStatusReturned
	list, err = f.svc.List(context.Background(), ListInput{Status: &returned})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, first.ID, list.Items[0].ID)

	got, err := f.svc.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CoreStatusReturned, got.Status)
}

package inventory

import (
	"context"
	"errors"
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
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

type fixture struct {
	svc  *service
	conn *gorm.DB
	part *models.Part
	main *models.Location
	back *models.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.OpenClient(t)

	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		DB:     client,
		Outbox: emitter,
	})
	require.NoError(t, err)

	f := &fixture{svc: svc.(*service), conn: conn}
	f.part = seedPart(t, conn, "BRK-1001")
	f.main = seedLocation(t, conn, "MAIN")
	f.back = seedLocation(t, conn, "BACK")
	return f
}

func seedPart(t *testing.T, conn *gorm.DB, number string) *models.Part {
	t.Helper()
	part := &models.Part{
		PartNumber:  number,
		Description: "Front brake pad set",
		CostPrice:   decimal.RequireFromString("20.50"),
		RetailPrice: decimal.RequireFromString("45.00"),
		IsActive:    true,
	}
	require.NoError(t, conn.Create(part).Error)
	return part
}

func seedLocation(t *testing.T, conn *gorm.DB, code string) *models.Location {
	t.Helper()
	location := &models.Location{Code: code, Name: code + " warehouse", IsActive: true}
	require.NoError(t, conn.Create(location).Error)
	return location
}

func (f *fixture) stock(t *testing.T, location *models.Location, qty int) {
	t.Helper()
	_, err := f.svc.Receipt(context.Background(), ReceiptInput{MovementInput: MovementInput{
		PartID:     f.part.ID,
		LocationID: location.ID,
		Quantity:   qty,
	}})
	require.NoError(t, err)
}

func (f *fixture) onHand(t *testing.T, location *models.Location) int {
	t.Helper()
	var record models.InventoryRecord
	err := f.conn.Where("part_id = ? AND location_id = ?", f.part.ID, location.ID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return -1
	}
	require.NoError(t, err)
	return record.QuantityOnHand
}

func (f *fixture) ledger(t *testing.T) []models.PartTransaction {
	t.Helper()
	var rows []models.PartTransaction
	require.NoError(t, f.conn.Order("created_at ASC").Find(&rows).Error)
	return rows
}

func (f *fixture) outboxCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func TestIssueMoreThanOnHandIsRejected(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.main, 3)

	_, err := f.svc.Issue(context.Background(), MovementInput{
		PartID:     f.part.ID,
		LocationID: f.main.ID,
		Quantity:   5,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, map[string]any{"available": 3, "requested": 5}, pkgerrors.As(err).Details())

	assert.Equal(t, 3, f.onHand(t, f.main))
	assert.Len(t, f.ledger(t), 1, "only the receipt should be recorded")
}

func TestIssueDecrementsAndRecordsLedger(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.main, 10)

	ref := "RO-5521"
	got, err := f.svc.Issue(context.Background(), MovementInput{
		PartID:          f.part.ID,
		LocationID:      f.main.ID,
		Quantity:        4,
		ReferenceNumber: &ref,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PartTransactionIssue, got.TransactionType)
	assert.Equal(t, 4, got.Quantity)
	assert.Equal(t, -4, got.QuantityDelta)
	assert.Equal(t, 6, got.ResultingQuantity)
	require.NotNil(t, got.SourceLocationID)
	assert.Equal(t, f.main.ID, *got.SourceLocationID)
	assert.True(t, got.ExtendedCost.Equal(decimal.RequireFromString("82.00")))
	assert.True(t, got.ExtendedPrice.Equal(decimal.RequireFromString("180.00")))

	assert.Equal(t, 6, f.onHand(t, f.main))
	assert.EqualValues(t, 2, f.outboxCount(t, enums.EventPartTransactionRecorded))
}

func TestIssueWithoutRecordIsInsufficient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Issue(context.Background(), MovementInput{
		PartID:     f.part.ID,
		LocationID: f.main.ID,
		Quantity:   1,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	assert.Empty(t, f.ledger(t))
}

func TestIssueUnknownPartIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Issue(context.Background(), MovementInput{
		PartID:     uuid.New(),
		LocationID: f.main.ID,
		Quantity:   1,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestMovementRejectsNonPositiveQuantity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Return(context.Background(), MovementInput{
		PartID:     f.part.ID,
		LocationID: f.main.ID,
		Quantity:   0,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestReturnCreatesRecordWhenMissing(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, -1, f.onHand(t, f.back))

	got, err := f.svc.Return(context.Background(), MovementInput{
		PartID:     f.part.ID,
		LocationID: f.back.ID,
		Quantity:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, got.ResultingQuantity)
	assert.Equal(t, 2, f.onHand(t, f.back))

	_, err = f.svc.Return(context.Background(), MovementInput{
		PartID:     f.part.ID,
		LocationID: f.back.ID,
		Quantity:   3,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, f.onHand(t, f.back))
}

func TestAdjustAppliesSignedDelta(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.main, 10)

	got, err := f.svc.Adjust(context.Background(), AdjustInput{
		PartID:     f.part.ID,
		LocationID: f.main.ID,
		Delta:      -4,
		Reason:     "damaged",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, got.Quantity)
	assert.Equal(t, 6, got.ResultingQuantity)
	require.NotNil(t, got.SourceLocationID)
	assert.Nil(t, got.DestinationLocationID)
	require.NotNil(t, got.ReferenceType)
	assert.Equal(t, "damaged", *got.ReferenceType)

	got, err = f.svc.Adjust(context.Background(), AdjustInput{
		PartID:     f.part.ID,
		LocationID: f.main.ID,
		Delta:      3,
		Reason:     "cycle_count",
	})
	require.NoError(t, err)
	assert.Equal(t, 9, got.ResultingQuantity)
	assert.Nil(t, got.SourceLocationID)
	require.NotNil(t, got.DestinationLocationID)
	assert.Equal(t, f.main.ID, *got.DestinationLocationID)
}

func TestAdjustRejectsNegativeResult(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.main, 2)

	_, err := f.svc.Adjust(context.Background(), AdjustInput{
		PartID:     f.part.ID,
		LocationID: f.main.ID,
		Delta:      -3,
		Reason:     "shrinkage",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, 2, f.onHand(t, f.main))
}

func TestAdjustNegativeWithoutRecordIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Adjust(context.Background(), AdjustInput{
		PartID:     f.part.ID,
		LocationID: f.back.ID,
		Delta:      -1,
		Reason:     "shrinkage",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, -1, f.onHand(t, f.back))
}

func TestAdjustValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Adjust(context.Background(), AdjustInput{PartID: f.part.ID, LocationID: f.main.ID, Delta: 0, Reason: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Adjust(context.Background(), AdjustInput{PartID: f.part.ID, LocationID: f.main.ID, Delta: 1, Reason: "  "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTransferWritesBothLegs(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.main, 8)

	got, err := f.svc.Transfer(context.Background(), TransferInput{
		PartID:         f.part.ID,
		FromLocationID: f.main.ID,
		ToLocationID:   f.back.ID,
		Quantity:       5,
	})
	require.NoError(t, err)

	assert.Equal(t, f.main.ID, got.Outbound.LocationID)
	assert.Equal(t, -5, got.Outbound.QuantityDelta)
	assert.Equal(t, 3, got.Outbound.ResultingQuantity)
	assert.Equal(t, f.back.ID, got.Inbound.LocationID)
	assert.Equal(t, 5, got.Inbound.QuantityDelta)
	assert.Equal(t, 5, got.Inbound.ResultingQuantity)
	for _, leg := range []TransactionDTO{got.Outbound, got.Inbound} {
		assert.Equal(t, enums.PartTransactionTransfer, leg.TransactionType)
		assert.Equal(t, f.main.ID, *leg.SourceLocationID)
		assert.Equal(t, f.back.ID, *leg.DestinationLocationID)
	}

	assert.Equal(t, 3, f.onHand(t, f.main))
	assert.Equal(t, 5, f.onHand(t, f.back))
	assert.Len(t, f.ledger(t), 3)
}

func TestTransferInsufficientLeavesBothRowsUntouched(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.main, 2)
	f.stock(t, f.back, 1)

	_, err := f.svc.Transfer(context.Background(), TransferInput{
		PartID:         f.part.ID,
		FromLocationID: f.main.ID,
		ToLocationID:   f.back.ID,
		Quantity:       3,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, 2, f.onHand(t, f.main))
	assert.Equal(t, 1, f.onHand(t, f.back))
	assert.Len(t, f.ledger(t), 2)
}

func TestTransferRequiresDistinctLocations(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Transfer(context.Background(), TransferInput{
		PartID:         f.part.ID,
		FromLocationID: f.main.ID,
		ToLocationID:   f.main.ID,
		Quantity:       1,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestReceiptAndSalePricing(t *testing.T) {
	f := newFixture(t)
	po := "PO-88"
	cost := decimal.RequireFromString("18.25")

	receipt, err := f.svc.Receipt(context.Background(), ReceiptInput{
		MovementInput: MovementInput{PartID: f.part.ID, LocationID: f.main.ID, Quantity: 4, ReferenceNumber: &po},
		UnitCost:      &cost,
	})
	require.NoError(t, err)
	assert.True(t, receipt.UnitCost.Equal(cost))
	assert.True(t, receipt.ExtendedCost.Equal(decimal.RequireFromString("73.00")))
	require.NotNil(t, receipt.ReferenceType)
	assert.Equal(t, referencePurchaseOrder, *receipt.ReferenceType)

	invoice := "INV-1"
	sale, err := f.svc.Sale(context.Background(), SaleInput{
		MovementInput: MovementInput{PartID: f.part.ID, LocationID: f.main.ID, Quantity: 3, ReferenceNumber: &invoice},
	})
	require.NoError(t, err)
	assert.True(t, sale.UnitPrice.Equal(f.part.RetailPrice))
	assert.True(t, sale.ExtendedPrice.Equal(decimal.RequireFromString("135.00")))
	assert.Equal(t, referenceInvoice, *sale.ReferenceType)
	assert.Equal(t, 1, f.onHand(t, f.main))
}

func TestCreateRecordBooksInitialCount(t *testing.T) {
	f := newFixture(t)

	record, err := f.svc.CreateRecord(context.Background(), CreateRecordInput{
		PartID:         f.part.ID,
		LocationID:     f.main.ID,
		QuantityOnHand: 12,
		ReorderPoint:   4,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, record.QuantityOnHand)
	assert.Equal(t, 4, record.ReorderPoint)

	rows := f.ledger(t)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.PartTransactionAdjustment, rows[0].TransactionType)
	assert.Equal(t, reasonInitialCount, *rows[0].ReferenceType)

	_, err = f.svc.CreateRecord(context.Background(), CreateRecordInput{PartID: f.part.ID, LocationID: f.main.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestUpdateRecordBooksCountDifference(t *testing.T) {
	f := newFixture(t)
	record, err := f.svc.CreateRecord(context.Background(), CreateRecordInput{
		PartID:         f.part.ID,
		LocationID:     f.main.ID,
		QuantityOnHand: 10,
	})
	require.NoError(t, err)

	counted := 7
	point := 3
	bin := "A-04"
	updated, err := f.svc.UpdateRecord(context.Background(), record.ID, UpdateRecordInput{
		QuantityOnHand: &counted,
		ReorderPoint:   &point,
		BinLocation:    &bin,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.QuantityOnHand)
	assert.Equal(t, 3, updated.ReorderPoint)
	require.NotNil(t, updated.BinLocation)
	assert.Equal(t, "A-04", *updated.BinLocation)

	rows := f.ledger(t)
	require.Len(t, rows, 2)
	assert.Equal(t, -3, rows[1].QuantityDelta)
	assert.Equal(t, reasonCountCorrection, *rows[1].ReferenceType)

	_, err = f.svc.UpdateRecord(context.Background(), uuid.New(), UpdateRecordInput{ReorderPoint: &point})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestLowStockUsesReorderPointOrDefault(t *testing.T) {
	f := newFixture(t)
	other := seedPart(t, f.conn, "FLT-2002")

	_, err := f.svc.CreateRecord(context.Background(), CreateRecordInput{PartID: f.part.ID, LocationID: f.main.ID, QuantityOnHand: 8, ReorderPoint: 10})
	require.NoError(t, err)
	_, err = f.svc.CreateRecord(context.Background(), CreateRecordInput{PartID: other.ID, LocationID: f.main.ID, QuantityOnHand: 6})
	require.NoError(t, err)
	_, err = f.svc.CreateRecord(context.Background(), CreateRecordInput{PartID: other.ID, LocationID: f.back.ID, QuantityOnHand: 5})
	require.NoError(t, err)

	low, err := f.svc.LowStock(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, low, 2)

	byLocation, err := f.svc.LowStock(context.Background(), &f.back.ID)
	require.NoError(t, err)
	require.Len(t, byLocation, 1)
	assert.Equal(t, other.ID, byLocation[0].PartID)
}

func TestEmitLowStockAlertsDedupesPerDay(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRecord(context.Background(), CreateRecordInput{PartID: f.part.ID, LocationID: f.main.ID, QuantityOnHand: 1})
	require.NoError(t, err)

	day := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)
	n, err := f.svc.EmitLowStockAlerts(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = f.svc.EmitLowStockAlerts(context.Background(), day.Add(2*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.outboxCount(t, enums.EventInventoryLowStock))

	_, err = f.svc.EmitLowStockAlerts(context.Background(), day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.outboxCount(t, enums.EventInventoryLowStock))
}

func TestListTransactionsPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	step := 0
	f.svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}
	for i := 0; i < 5; i++ {
		f.stock(t, f.main, 1)
	}

	first, err := f.svc.ListTransactions(context.Background(), ListTransactionsInput{
		PartID:     &f.part.ID,
		Pagination: pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, 5, first.Items[0].ResultingQuantity)
	assert.Equal(t, 4, first.Items[1].ResultingQuantity)

	second, err := f.svc.ListTransactions(context.Background(), ListTransactionsInput{
		PartID:     &f.part.ID,
		Pagination: pagination.Params{Limit: 2, Cursor: first.NextCursor},
	})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, 3, second.Items[0].ResultingQuantity)

	receipt := enums.PartTransactionReceipt
	from := base.Add(4 * time.Minute)
	filtered, err := f.svc.ListTransactions(context.Background(), ListTransactionsInput{Type: &receipt, From: &from})
	require.NoError(t, err)
	assert.Len(t, filtered.Items, 2)
	assert.Empty(t, filtered.NextCursor)

	_, err = f.svc.ListTransactions(context.Background(), ListTransactionsInput{Pagination: pagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPartHistoryAndGetTransaction(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.main, 3)

	history, err := f.svc.PartHistory(context.Background(), f.part.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, history, 1)

	got, err := f.svc.GetTransaction(context.Background(), history[0].ID)
	require.NoError(t, err)
	assert.Equal(t, history[0].ID, got.ID)

	_, err = f.svc.GetTransaction(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.PartHistory(context.Background(), uuid.New(), nil, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	from := time.Now().Add(time.Hour)
	to := time.Now()
	_, err = f.svc.PartHistory(context.Background(), f.part.ID, &from, &to)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	assert.Equal(t, "inventory repository required", err.Error())
}

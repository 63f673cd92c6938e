package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/pkg/db"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/outbox"
	"github.com/dealerworks/dms-backend/pkg/outbox/payloads"
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

// DefaultLowStockThreshold applies to rows that have no reorder point.
const DefaultLowStockThreshold = 5

const (
	referencePurchaseOrder = "purchase_order"
	referenceInvoice       = "invoice"
	reasonInitialCount     = "initial_count"
	reasonCountCorrection  = "count_correction"
)

// Service exposes stock movements, inventory records and ledger queries.
type Service interface {
	Issue(ctx context.Context, input MovementInput) (*TransactionDTO, error)
	Return(ctx context.Context, input MovementInput) (*TransactionDTO, error)
	Receipt(ctx context.Context, input ReceiptInput) (*TransactionDTO, error)
	Sale(ctx context.Context, input SaleInput) (*TransactionDTO, error)
	Adjust(ctx context.Context, input AdjustInput) (*TransactionDTO, error)
	Transfer(ctx context.Context, input TransferInput) (*TransferDTO, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (*TransactionDTO, error)
	ListTransactions(ctx context.Context, input ListTransactionsInput) (*TransactionListDTO, error)
	PartHistory(ctx context.Context, partID uuid.UUID, from, to *time.Time) ([]TransactionDTO, error)

	CreateRecord(ctx context.Context, input CreateRecordInput) (*RecordDTO, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*RecordDTO, error)
	ListRecords(ctx context.Context, query RecordQuery) ([]RecordDTO, error)
	UpdateRecord(ctx context.Context, id uuid.UUID, input UpdateRecordInput) (*RecordDTO, error)
	LowStock(ctx context.Context, locationID *uuid.UUID) ([]RecordDTO, error)
	EmitLowStockAlerts(ctx context.Context, now time.Time) (int, error)
}

// MovementInput is shared by issue and return.
type MovementInput struct {
	PartID          uuid.UUID
	LocationID      uuid.UUID
	Quantity        int
	ReferenceType   *string
	ReferenceNumber *string
	Notes           *string
	PerformedBy     *string
}

// ReceiptInput books stock in from a supplier. UnitCost defaults to the part cost.
type ReceiptInput struct {
	MovementInput
	UnitCost *decimal.Decimal
}

// SaleInput books stock out to a customer. UnitPrice defaults to the part retail price.
type SaleInput struct {
	MovementInput
	UnitPrice *decimal.Decimal
}

// AdjustInput applies a signed correction. Reason is stored as the reference type.
type AdjustInput struct {
	PartID          uuid.UUID
	LocationID      uuid.UUID
	Delta           int
	Reason          string
	ReferenceNumber *string
	Notes           *string
	PerformedBy     *string
}

// TransferInput moves stock between two locations.
type TransferInput struct {
	PartID          uuid.UUID
	FromLocationID  uuid.UUID
	ToLocationID    uuid.UUID
	Quantity        int
	ReferenceNumber *string
	Notes           *string
	PerformedBy     *string
}

// ListTransactionsInput filters and pages the ledger.
type ListTransactionsInput struct {
	PartID     *uuid.UUID
	LocationID *uuid.UUID
	Type       *enums.PartTransactionType
	From       *time.Time
	To         *time.Time
	Pagination pagination.Params
}

// CreateRecordInput opens stock for a part at a location.
type CreateRecordInput struct {
	PartID          uuid.UUID
	LocationID      uuid.UUID
	QuantityOnHand  int
	ReorderPoint    int
	ReorderQuantity int
	BinLocation     *string
	PerformedBy     *string
}

// UpdateRecordInput changes reorder settings and optionally sets a counted quantity.
type UpdateRecordInput struct {
	ReorderPoint    *int
	ReorderQuantity *int
	BinLocation     *string
	QuantityOnHand  *int
	Reason          *string
	PerformedBy     *string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type movementMetrics interface {
	IncMovement(txType string)
	IncInsufficient(txType string)
}

// ServiceParams wires the inventory service dependencies.
type ServiceParams struct {
	Repo              *Repository
	DB                txRunner
	Outbox            outbox.Emitter
	Metrics           movementMetrics
	LowStockThreshold int
}

type service struct {
	repo      *Repository
	db        txRunner
	outbox    outbox.Emitter
	metrics   movementMetrics
	threshold int
	now       func() time.Time
}

// NewService constructs the inventory service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	threshold := params.LowStockThreshold
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &service{
		repo:      params.Repo,
		db:        params.DB,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		threshold: threshold,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// movement is one side of an inventory-affecting operation.
type movement struct {
	txType          enums.PartTransactionType
	part            *models.Part
	locationID      uuid.UUID
	delta           int
	source          *uuid.UUID
	destination     *uuid.UUID
	unitCost        decimal.Decimal
	unitPrice       decimal.Decimal
	referenceType   *string
	referenceNumber *string
	notes           *string
	performedBy     *string
	at              time.Time
}

func (s *service) Issue(ctx context.Context, input MovementInput) (*TransactionDTO, error) {
	return s.single(ctx, enums.PartTransactionIssue, input, func(part *models.Part) movement {
		return movement{
			delta:         -input.Quantity,
			unitCost:      part.CostPrice,
			unitPrice:     part.RetailPrice,
			referenceType: input.ReferenceType,
		}
	})
}

func (s *service) Return(ctx context.Context, input MovementInput) (*TransactionDTO, error) {
	return s.single(ctx, enums.PartTransactionReturn, input, func(part *models.Part) movement {
		return movement{
			delta:         input.Quantity,
			unitCost:      part.CostPrice,
			unitPrice:     part.RetailPrice,
			referenceType: input.ReferenceType,
		}
	})
}

func (s *service) Receipt(ctx context.Context, input ReceiptInput) (*TransactionDTO, error) {
	if input.UnitCost != nil && input.UnitCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit cost cannot be negative")
	}
	return s.single(ctx, enums.PartTransactionReceipt, input.MovementInput, func(part *models.Part) movement {
		cost := part.CostPrice
		if input.UnitCost != nil {
			cost = *input.UnitCost
		}
		return movement{
			delta:         input.Quantity,
			unitCost:      cost,
			unitPrice:     part.RetailPrice,
			referenceType: defaultReference(input.ReferenceType, input.ReferenceNumber, referencePurchaseOrder),
		}
	})
}

func (s *service) Sale(ctx context.Context, input SaleInput) (*TransactionDTO, error) {
	if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	return s.single(ctx, enums.PartTransactionSale, input.MovementInput, func(part *models.Part) movement {
		price := part.RetailPrice
		if input.UnitPrice != nil {
			price = *input.UnitPrice
		}
		return movement{
			delta:         -input.Quantity,
			unitCost:      part.CostPrice,
			unitPrice:     price,
			referenceType: defaultReference(input.ReferenceType, input.ReferenceNumber, referenceInvoice),
		}
	})
}

// single runs a one-sided movement; build fills in the type specific fields.
func (s *service) single(ctx context.Context, txType enums.PartTransactionType, input MovementInput, build func(*models.Part) movement) (*TransactionDTO, error) {
	if err := validateIDs(input.PartID, input.LocationID); err != nil {
		return nil, err
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	var entry *models.PartTransaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		part, err := loadPart(ctx, txRepo, input.PartID)
		if err != nil {
			return err
		}
		if err := ensureLocation(ctx, txRepo, input.LocationID); err != nil {
			return err
		}

		m := build(part)
		m.txType = txType
		m.part = part
		m.locationID = input.LocationID
		m.referenceNumber = input.ReferenceNumber
		m.notes = input.Notes
		m.performedBy = input.PerformedBy
		m.at = s.now()
		if m.delta < 0 {
			m.source = &input.LocationID
		} else {
			m.destination = &input.LocationID
		}

		entry, err = s.apply(ctx, tx, txRepo, m)
		return err
	})
	if err != nil {
		return nil, asServiceError(err, fmt.Sprintf("record %s", txType))
	}
	dto := NewTransactionDTO(entry)
	return &dto, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*TransactionDTO, error) {
	if err := validateIDs(input.PartID, input.LocationID); err != nil {
		return nil, err
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment delta cannot be zero")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment reason is required")
	}

	var entry *models.PartTransaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		part, err := loadPart(ctx, txRepo, input.PartID)
		if err != nil {
			return err
		}
		if err := ensureLocation(ctx, txRepo, input.LocationID); err != nil {
			return err
		}
		entry, err = s.apply(ctx, tx, txRepo, s.adjustment(part, input.LocationID, input.Delta, reason, input.ReferenceNumber, input.Notes, input.PerformedBy))
		return err
	})
	if err != nil {
		return nil, asServiceError(err, "record adjustment")
	}
	dto := NewTransactionDTO(entry)
	return &dto, nil
}

func (s *service) adjustment(part *models.Part, locationID uuid.UUID, delta int, reason string, referenceNumber, notes, performedBy *string) movement {
	m := movement{
		txType:          enums.PartTransactionAdjustment,
		part:            part,
		locationID:      locationID,
		delta:           delta,
		unitCost:        part.CostPrice,
		unitPrice:       part.RetailPrice,
		referenceType:   &reason,
		referenceNumber: referenceNumber,
		notes:           notes,
		performedBy:     performedBy,
		at:              s.now(),
	}
	if delta < 0 {
		m.source = &locationID
	} else {
		m.destination = &locationID
	}
	return m
}

func (s *service) Transfer(ctx context.Context, input TransferInput) (*TransferDTO, error) {
	if err := validateIDs(input.PartID, input.FromLocationID); err != nil {
		return nil, err
	}
	if input.ToLocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination location id is required")
	}
	if input.FromLocationID == input.ToLocationID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source and destination locations must differ")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	var outbound, inbound *models.PartTransaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		part, err := loadPart(ctx, txRepo, input.PartID)
		if err != nil {
			return err
		}
		if err := ensureLocation(ctx, txRepo, input.FromLocationID); err != nil {
			return err
		}
		if err := ensureLocation(ctx, txRepo, input.ToLocationID); err != nil {
			return err
		}

		from, to := input.FromLocationID, input.ToLocationID
		at := s.now()
		leg := movement{
			txType:          enums.PartTransactionTransfer,
			part:            part,
			source:          &from,
			destination:     &to,
			unitCost:        part.CostPrice,
			unitPrice:       part.RetailPrice,
			referenceNumber: input.ReferenceNumber,
			notes:           input.Notes,
			performedBy:     input.PerformedBy,
			at:              at,
		}

		out := leg
		out.locationID = from
		out.delta = -input.Quantity
		if outbound, err = s.apply(ctx, tx, txRepo, out); err != nil {
			return err
		}

		in := leg
		in.locationID = to
		in.delta = input.Quantity
		inbound, err = s.apply(ctx, tx, txRepo, in)
		return err
	})
	if err != nil {
		return nil, asServiceError(err, "record transfer")
	}
	return &TransferDTO{
		Outbound: NewTransactionDTO(outbound),
		Inbound:  NewTransactionDTO(inbound),
	}, nil
}

// apply moves stock for one side, writes its ledger row and queues the event.
// Depletion uses a guarded update so concurrent writers cannot overdraw.
func (s *service) apply(ctx context.Context, tx *gorm.DB, txRepo *Repository, m movement) (*models.PartTransaction, error) {
	qty := m.delta
	if qty < 0 {
		qty = -qty
	}

	if m.delta < 0 {
		record, err := txRepo.FindRecord(ctx, m.part.ID, m.locationID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, s.insufficient(m.txType, 0, qty)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
		}
		ok, err := txRepo.DecrementGuarded(ctx, record.ID, qty)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement inventory")
		}
		if !ok {
			available := record.QuantityOnHand
			if current, err := txRepo.FindRecordByID(ctx, record.ID); err == nil {
				available = current.QuantityOnHand
			}
			return nil, s.insufficient(m.txType, available, qty)
		}
	} else if err := txRepo.Increment(ctx, m.part.ID, m.locationID, qty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment inventory")
	}

	record, err := txRepo.FindRecord(ctx, m.part.ID, m.locationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory record")
	}

	quantity := decimal.NewFromInt(int64(qty))
	entry := &models.PartTransaction{
		TransactionType:       m.txType,
		PartID:                m.part.ID,
		LocationID:            m.locationID,
		Quantity:              qty,
		QuantityDelta:         m.delta,
		ResultingQuantity:     record.QuantityOnHand,
		SourceLocationID:      m.source,
		DestinationLocationID: m.destination,
		UnitCost:              m.unitCost,
		UnitPrice:             m.unitPrice,
		ExtendedCost:          m.unitCost.Mul(quantity),
		ExtendedPrice:         m.unitPrice.Mul(quantity),
		ReferenceType:         m.referenceType,
		ReferenceNumber:       m.referenceNumber,
		Notes:                 m.notes,
		PerformedBy:           m.performedBy,
		TransactionDate:       m.at,
	}
	if err := txRepo.CreateTransaction(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert part transaction")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventPartTransactionRecorded,
		AggregateType: enums.AggregateInventoryRecord,
		AggregateID:   record.ID,
		Actor:         actorRef(m.performedBy),
		OccurredAt:    m.at,
		Data: payloads.PartTransactionRecordedEvent{
			TransactionID:     entry.ID,
			TransactionType:   entry.TransactionType,
			PartID:            entry.PartID,
			LocationID:        entry.LocationID,
			Quantity:          entry.Quantity,
			QuantityDelta:     entry.QuantityDelta,
			ResultingQuantity: entry.ResultingQuantity,
			ReferenceNumber:   entry.ReferenceNumber,
			TransactionDate:   entry.TransactionDate,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue part transaction event")
	}

	if s.metrics != nil {
		s.metrics.IncMovement(string(m.txType))
	}
	return entry, nil
}

func (s *service) insufficient(txType enums.PartTransactionType, available, requested int) error {
	if s.metrics != nil {
		s.metrics.IncInsufficient(string(txType))
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient inventory").
		WithDetails(map[string]any{
			"available": available,
			"requested": requested,
		})
}

func (s *service) GetTransaction(ctx context.Context, id uuid.UUID) (*TransactionDTO, error) {
	entry, err := s.repo.FindTransaction(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	dto := NewTransactionDTO(entry)
	return &dto, nil
}

func (s *service) ListTransactions(ctx context.Context, input ListTransactionsInput) (*TransactionListDTO, error) {
	if err := validateRange(input.From, input.To); err != nil {
		return nil, err
	}
	page, err := pagination.NewPage(input.Pagination)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListTransactions(ctx, TransactionQuery{
		PartID:     input.PartID,
		LocationID: input.LocationID,
		Type:       input.Type,
		From:       input.From,
		To:         input.To,
		Cursor:     page.Cursor,
		Limit:      page.Fetch(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	result := &TransactionListDTO{}
	rows, result.NextCursor = pagination.Trim(rows, page.Limit, func(t *models.PartTransaction) pagination.Cursor {
		return pagination.Cursor{At: t.TransactionDate, ID: t.ID}
	})
	result.Items = newTransactionDTOs(rows)
	return result, nil
}

func (s *service) PartHistory(ctx context.Context, partID uuid.UUID, from, to *time.Time) ([]TransactionDTO, error) {
	if partID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
	}
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	if _, err := loadPart(ctx, s.repo, partID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListTransactions(ctx, TransactionQuery{
		PartID: &partID,
		From:   from,
		To:     to,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part history")
	}
	return newTransactionDTOs(rows), nil
}

func (s *service) CreateRecord(ctx context.Context, input CreateRecordInput) (*RecordDTO, error) {
	if err := validateIDs(input.PartID, input.LocationID); err != nil {
		return nil, err
	}
	if input.QuantityOnHand < 0 || input.ReorderPoint < 0 || input.ReorderQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantities cannot be negative")
	}

	var recordID uuid.UUID
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		part, err := loadPart(ctx, txRepo, input.PartID)
		if err != nil {
			return err
		}
		if err := ensureLocation(ctx, txRepo, input.LocationID); err != nil {
			return err
		}
		if _, err := txRepo.FindRecord(ctx, input.PartID, input.LocationID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "inventory record already exists for part at location")
		} else if !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check inventory record")
		}

		record := &models.InventoryRecord{
			PartID:          input.PartID,
			LocationID:      input.LocationID,
			ReorderPoint:    input.ReorderPoint,
			ReorderQuantity: input.ReorderQuantity,
			BinLocation:     input.BinLocation,
		}
		if err := txRepo.CreateRecord(ctx, record); err != nil {
			if db.IsUniqueViolation(err, "ux_inventory_records_part_location") {
				return pkgerrors.New(pkgerrors.CodeConflict, "inventory record already exists for part at location")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert inventory record")
		}
		recordID = record.ID

		if input.QuantityOnHand > 0 {
			_, err := s.apply(ctx, tx, txRepo, s.adjustment(part, input.LocationID, input.QuantityOnHand, reasonInitialCount, nil, nil, input.PerformedBy))
			return err
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "create inventory record")
	}
	return s.GetRecord(ctx, recordID)
}

func (s *service) GetRecord(ctx context.Context, id uuid.UUID) (*RecordDTO, error) {
	record, err := s.repo.FindRecordByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}
	dto := NewRecordDTO(record)
	return &dto, nil
}

func (s *service) ListRecords(ctx context.Context, query RecordQuery) ([]RecordDTO, error) {
	rows, err := s.repo.ListRecords(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory records")
	}
	return newRecordDTOs(rows), nil
}

// UpdateRecord saves reorder settings. A counted QuantityOnHand is booked as
// an adjustment for the difference so the ledger stays complete.
func (s *service) UpdateRecord(ctx context.Context, id uuid.UUID, input UpdateRecordInput) (*RecordDTO, error) {
	for _, v := range []*int{input.ReorderPoint, input.ReorderQuantity, input.QuantityOnHand} {
		if v != nil && *v < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantities cannot be negative")
		}
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		record, err := txRepo.FindRecordByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
		}

		updates := map[string]any{}
		if input.ReorderPoint != nil {
			updates["reorder_point"] = *input.ReorderPoint
		}
		if input.ReorderQuantity != nil {
			updates["reorder_quantity"] = *input.ReorderQuantity
		}
		if input.BinLocation != nil {
			updates["bin_location"] = *input.BinLocation
		}
		if err := txRepo.SaveRecordSettings(ctx, record.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory record")
		}

		if input.QuantityOnHand == nil || *input.QuantityOnHand == record.QuantityOnHand {
			return nil
		}
		part, err := loadPart(ctx, txRepo, record.PartID)
		if err != nil {
			return err
		}
		reason := reasonCountCorrection
		if input.Reason != nil && strings.TrimSpace(*input.Reason) != "" {
			reason = strings.TrimSpace(*input.Reason)
		}
		delta := *input.QuantityOnHand - record.QuantityOnHand
		_, err = s.apply(ctx, tx, txRepo, s.adjustment(part, record.LocationID, delta, reason, nil, nil, input.PerformedBy))
		return err
	})
	if err != nil {
		return nil, asServiceError(err, "update inventory record")
	}
	return s.GetRecord(ctx, id)
}

func (s *service) LowStock(ctx context.Context, locationID *uuid.UUID) ([]RecordDTO, error) {
	rows, err := s.repo.ListLowStock(ctx, locationID, s.threshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	return newRecordDTOs(rows), nil
}

// EmitLowStockAlerts queues one low stock event per record per UTC day and
// returns how many low stock records were found.
func (s *service) EmitLowStockAlerts(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.repo.ListLowStock(ctx, nil, s.threshold)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	day := now.UTC().Format("2006-01-02")
	queued := 0
	for i := range rows {
		row := rows[i]
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventInventoryLowStock,
				AggregateType: enums.AggregateInventoryRecord,
				AggregateID:   row.ID,
				DedupeKey:     fmt.Sprintf("%s:%s", row.ID, day),
				OccurredAt:    now,
				Data: payloads.InventoryLowStockEvent{
					InventoryRecordID: row.ID,
					PartID:            row.PartID,
					LocationID:        row.LocationID,
					QuantityOnHand:    row.QuantityOnHand,
					ReorderPoint:      row.ReorderPoint,
					ReorderQuantity:   row.ReorderQuantity,
				},
			})
		})
		if err != nil {
			return queued, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue low stock event")
		}
		queued++
	}
	return queued, nil
}

func loadPart(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Part, error) {
	part, err := repo.FindPart(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
	}
	return part, nil
}

func ensureLocation(ctx context.Context, repo *Repository, id uuid.UUID) error {
	if _, err := repo.FindLocation(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load location")
	}
	return nil
}

func validateIDs(partID, locationID uuid.UUID) error {
	if partID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
	}
	if locationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	return nil
}

func validateRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return pkgerrors.New(pkgerrors.CodeValidation, "start date must be before end date")
	}
	return nil
}

func defaultReference(given, number *string, fallback string) *string {
	if given != nil {
		return given
	}
	if number == nil {
		return nil
	}
	return &fallback
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

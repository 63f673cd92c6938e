package purchasing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/internal/inventory"
	"github.com/dealerworks/dms-backend/pkg/db"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/outbox"
	"github.com/dealerworks/dms-backend/pkg/outbox/payloads"
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

const referencePurchaseOrder = "purchase_order"

// OrderLineInput is one part on a draft order. UnitCost defaults to the part cost.
type OrderLineInput struct {
	PartID   uuid.UUID
	Quantity int
	UnitCost *decimal.Decimal
}

type CreateOrderInput struct {
	SupplierID     uuid.UUID
	LocationID     uuid.UUID
	OrderType      enums.PurchaseOrderType
	ExpectedDate   *time.Time
	ShippingMethod *string
	ShippingCost   *decimal.Decimal
	TaxAmount      *decimal.Decimal
	Notes          *string
	Lines          []OrderLineInput
	RequestedBy    *string
}

// UpdateOrderInput edits a draft. A non-nil Lines replaces every line.
type UpdateOrderInput struct {
	ExpectedDate   *time.Time
	ShippingMethod *string
	TrackingNumber *string
	ShippingCost   *decimal.Decimal
	TaxAmount      *decimal.Decimal
	Notes          *string
	Lines          *[]OrderLineInput
}

type ListOrdersInput struct {
	Status     *enums.PurchaseOrderStatus
	SupplierID *uuid.UUID
	OrderType  *enums.PurchaseOrderType
	Pagination pagination.Params
}

type ReceiveLineInput struct {
	LineID   uuid.UUID
	Quantity int
}

type ReceiveInput struct {
	Lines       []ReceiveLineInput
	Notes       *string
	PerformedBy *string
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	if input.LocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	orderType := input.OrderType
	if orderType == "" {
		orderType = enums.PurchaseOrderStock
	}
	if !orderType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order type %q", input.OrderType)
	}
	if err := validateCharges(input.ShippingCost, input.TaxAmount); err != nil {
		return nil, err
	}

	now := s.now()
	var (
		order *models.PurchaseOrder
		lines []models.PurchaseOrderLine
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		supplier, err := txRepo.FindSupplier(ctx, input.SupplierID)
		if err != nil {
			return notFound(err, "supplier")
		}
		if !supplier.IsActive {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "supplier %s is inactive", supplier.Name)
		}
		if _, err := txRepo.FindLocation(ctx, input.LocationID); err != nil {
			return notFound(err, "location")
		}

		order = &models.PurchaseOrder{
			ID:             uuid.New(),
			OrderNumber:    orderNumber(now),
			SupplierID:     supplier.ID,
			LocationID:     input.LocationID,
			Status:         enums.PurchaseOrderDraft,
			OrderType:      orderType,
			OrderDate:      now,
			ExpectedDate:   input.ExpectedDate,
			RequestedBy:    nonEmpty(input.RequestedBy),
			ShippingMethod: nonEmpty(input.ShippingMethod),
			ShippingCost:   valueOrZero(input.ShippingCost),
			TaxAmount:      valueOrZero(input.TaxAmount),
			Notes:          nonEmpty(input.Notes),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if lines, err = s.buildLines(ctx, txRepo, order.ID, input.Lines, now); err != nil {
			return err
		}
		order.Subtotal, order.TotalAmount = totals(lines, order.ShippingCost, order.TaxAmount)
		if err := txRepo.CreateOrder(ctx, order, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase order")
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "create purchase order")
	}
	dto := NewOrderDTO(order, lines)
	return &dto, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, lines, err := s.loadOrder(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := NewOrderDTO(order, lines)
	return &dto, nil
}

func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (*OrderListDTO, error) {
	page, err := pagination.NewPage(input.Pagination)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListOrders(ctx, OrderQuery{
		Status:     input.Status,
		SupplierID: input.SupplierID,
		OrderType:  input.OrderType,
		Cursor:     page.Cursor,
		Limit:      page.Fetch(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase orders")
	}
	out := &OrderListDTO{Items: []OrderDTO{}}
	rows, out.NextCursor = pagination.Trim(rows, page.Limit, func(o *models.PurchaseOrder) pagination.Cursor {
		return pagination.Cursor{At: o.CreatedAt, ID: o.ID}
	})
	for i := range rows {
		out.Items = append(out.Items, NewOrderDTO(&rows[i], nil))
	}
	return out, nil
}

func (s *service) UpdateOrder(ctx context.Context, id uuid.UUID, input UpdateOrderInput) (*OrderDTO, error) {
	if err := validateCharges(input.ShippingCost, input.TaxAmount); err != nil {
		return nil, err
	}

	now := s.now()
	var (
		order *models.PurchaseOrder
		lines []models.PurchaseOrderLine
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		current, currentLines, err := s.loadOrder(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if current.Status != enums.PurchaseOrderDraft {
			return orderConflict(current, "only draft orders can be edited")
		}

		lines = currentLines
		if input.Lines != nil {
			if err := txRepo.DeleteLines(ctx, id); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear order lines")
			}
			if lines, err = s.buildLines(ctx, txRepo, id, *input.Lines, now); err != nil {
				return err
			}
			if err := txRepo.CreateLines(ctx, lines); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order lines")
			}
		}

		shipping, tax := current.ShippingCost, current.TaxAmount
		if input.ShippingCost != nil {
			shipping = *input.ShippingCost
		}
		if input.TaxAmount != nil {
			tax = *input.TaxAmount
		}
		subtotal, total := totals(lines, shipping, tax)
		updates := map[string]any{
			"shipping_cost": shipping,
			"tax_amount":    tax,
			"subtotal":      subtotal,
			"total_amount":  total,
			"updated_at":    now,
		}
		if input.ExpectedDate != nil {
			updates["expected_date"] = input.ExpectedDate.UTC()
		}
		for column, value := range map[string]*string{
			"shipping_method": input.ShippingMethod,
			"tracking_number": input.TrackingNumber,
			"notes":           input.Notes,
		} {
			if value != nil {
				updates[column] = nonEmpty(value)
			}
		}
		ok, err := txRepo.UpdateOrderIn(ctx, id, []enums.PurchaseOrderStatus{enums.PurchaseOrderDraft}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order")
		}
		if !ok {
			return orderConflict(current, "only draft orders can be edited")
		}
		order, err = txRepo.FindOrder(ctx, id)
		if err != nil {
			return notFound(err, "purchase order")
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "update purchase order")
	}
	dto := NewOrderDTO(order, lines)
	return &dto, nil
}

func (s *service) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindOrder(ctx, id)
		if err != nil {
			return notFound(err, "purchase order")
		}
		if order.Status != enums.PurchaseOrderDraft {
			return orderConflict(order, "only draft orders can be deleted")
		}
		if err := txRepo.DeleteLines(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order lines")
		}
		ok, err := txRepo.DeleteDraft(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete purchase order")
		}
		if !ok {
			return orderConflict(order, "only draft orders can be deleted")
		}
		return nil
	})
	if err != nil {
		return asServiceError(err, "delete purchase order")
	}
	return nil
}

// SubmitOrder sends a draft with at least one line to the supplier.
func (s *service) SubmitOrder(ctx context.Context, id uuid.UUID, performedBy *string) (*OrderDTO, error) {
	now := s.now()
	return s.transition(ctx, id, performedBy, func(txRepo *Repository, order *models.PurchaseOrder, lines []models.PurchaseOrderLine) (enums.PurchaseOrderStatus, map[string]any, error) {
		if order.Status != enums.PurchaseOrderDraft {
			return "", nil, orderConflict(order, "only draft orders can be submitted")
		}
		if len(lines) == 0 {
			return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot submit an order without lines")
		}
		return enums.PurchaseOrderSubmitted, map[string]any{"submitted_at": now}, nil
	})
}

// CancelOrder closes a draft, or a submitted order nothing has been received on.
func (s *service) CancelOrder(ctx context.Context, id uuid.UUID, performedBy *string) (*OrderDTO, error) {
	now := s.now()
	return s.transition(ctx, id, performedBy, func(txRepo *Repository, order *models.PurchaseOrder, _ []models.PurchaseOrderLine) (enums.PurchaseOrderStatus, map[string]any, error) {
		if order.Status != enums.PurchaseOrderDraft && order.Status != enums.PurchaseOrderSubmitted {
			return "", nil, orderConflict(order, "only draft or submitted orders can be cancelled")
		}
		if err := txRepo.CancelOpenLines(ctx, order.ID, now); err != nil {
			return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order lines")
		}
		return enums.PurchaseOrderCancelled, nil, nil
	})
}

type transitionFunc func(txRepo *Repository, order *models.PurchaseOrder, lines []models.PurchaseOrderLine) (enums.PurchaseOrderStatus, map[string]any, error)

func (s *service) transition(ctx context.Context, id uuid.UUID, performedBy *string, decide transitionFunc) (*OrderDTO, error) {
	now := s.now()
	var (
		order *models.PurchaseOrder
		lines []models.PurchaseOrderLine
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		current, currentLines, err := s.loadOrder(ctx, txRepo, id)
		if err != nil {
			return err
		}
		next, updates, err := decide(txRepo, current, currentLines)
		if err != nil {
			return err
		}
		if updates == nil {
			updates = map[string]any{}
		}
		updates["status"] = next
		updates["updated_at"] = now
		ok, err := txRepo.UpdateOrderIn(ctx, id, []enums.PurchaseOrderStatus{current.Status}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order")
		}
		if !ok {
			return orderConflict(current, fmt.Sprintf("order cannot move to %s", next))
		}
		if order, lines, err = s.loadOrder(ctx, txRepo, id); err != nil {
			return err
		}
		return s.emit(ctx, tx, order, current.Status, 0, performedBy, now)
	})
	if err != nil {
		return nil, asServiceError(err, "update purchase order")
	}
	s.logStatus(ctx, order)
	dto := NewOrderDTO(order, lines)
	return &dto, nil
}

// ReceiveOrder books received quantities against open lines and posts each
// one as an inventory receipt at the order's location. Line updates, stock
// movements and the order status change commit or roll back together.
func (s *service) ReceiveOrder(ctx context.Context, id uuid.UUID, input ReceiveInput) (*ReceiveResultDTO, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	seen := make(map[uuid.UUID]bool, len(input.Lines))
	for _, line := range input.Lines {
		if line.LineID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id is required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "received quantity must be greater than zero")
		}
		if seen[line.LineID] {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %s listed more than once", line.LineID)
		}
		seen[line.LineID] = true
	}

	now := s.now()
	result := &ReceiveResultDTO{Transactions: []inventory.TransactionDTO{}}
	var (
		order *models.PurchaseOrder
		lines []models.PurchaseOrderLine
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		current, currentLines, err := s.loadOrder(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if !current.Status.Receivable() {
			return orderConflict(current, "only submitted or partially received orders can be received")
		}

		byID := make(map[uuid.UUID]models.PurchaseOrderLine, len(currentLines))
		for _, line := range currentLines {
			byID[line.ID] = line
		}

		stockCtx := db.ContextWithTx(ctx, tx)
		for _, in := range input.Lines {
			line, ok := byID[in.LineID]
			if !ok {
				return pkgerrors.Newf(pkgerrors.CodeNotFound, "line %s is not on order %s", in.LineID, current.OrderNumber)
			}
			if line.Status.Closed() {
				return pkgerrors.Newf(pkgerrors.CodeStateConflict, "line %s is %s", line.ID, line.Status).
					WithDetails(map[string]any{"line_id": line.ID, "status": line.Status})
			}
			ok, err := txRepo.ReceiveLine(ctx, line.ID, in.Quantity, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order line")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "received quantity exceeds ordered quantity").
					WithDetails(map[string]any{
						"line_id":     line.ID,
						"ordered":     line.Quantity,
						"received":    line.ReceivedQuantity,
						"outstanding": line.Outstanding(),
						"requested":   in.Quantity,
					})
			}
			status := enums.OrderLineBackordered
			if line.ReceivedQuantity+in.Quantity >= line.Quantity {
				status = enums.OrderLineReceived
			}
			if err := txRepo.SetLineStatus(ctx, line.ID, status, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order line status")
			}

			cost := line.UnitCost
			refType := referencePurchaseOrder
			number := current.OrderNumber
			entry, err := s.inventory.Receipt(stockCtx, inventory.ReceiptInput{
				MovementInput: inventory.MovementInput{
					PartID:          line.PartID,
					LocationID:      current.LocationID,
					Quantity:        in.Quantity,
					ReferenceType:   &refType,
					ReferenceNumber: &number,
					Notes:           nonEmpty(input.Notes),
					PerformedBy:     input.PerformedBy,
				},
				UnitCost: &cost,
			})
			if err != nil {
				return err
			}
			result.Transactions = append(result.Transactions, *entry)
		}

		if lines, err = txRepo.ListLines(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order lines")
		}
		next := receivedStatus(lines)
		updates := map[string]any{"status": next, "updated_at": now}
		if next == enums.PurchaseOrderComplete {
			updates["completed_at"] = now
		}
		ok, err := txRepo.UpdateOrderIn(ctx, id, []enums.PurchaseOrderStatus{enums.PurchaseOrderSubmitted, enums.PurchaseOrderPartial}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order")
		}
		if !ok {
			return orderConflict(current, "order changed while receiving")
		}
		if order, err = txRepo.FindOrder(ctx, id); err != nil {
			return notFound(err, "purchase order")
		}
		if next == current.Status {
			return nil
		}
		return s.emit(ctx, tx, order, current.Status, len(input.Lines), input.PerformedBy, now)
	})
	if err != nil {
		return nil, asServiceError(err, "receive purchase order")
	}
	s.logStatus(ctx, order)
	result.Order = NewOrderDTO(order, lines)
	return result, nil
}

// receivedStatus is complete once every line is received or cancelled,
// otherwise partial.
func receivedStatus(lines []models.PurchaseOrderLine) enums.PurchaseOrderStatus {
	for _, line := range lines {
		if !line.Status.Closed() {
			return enums.PurchaseOrderPartial
		}
	}
	return enums.PurchaseOrderComplete
}

func (s *service) buildLines(ctx context.Context, txRepo *Repository, orderID uuid.UUID, inputs []OrderLineInput, now time.Time) ([]models.PurchaseOrderLine, error) {
	lines := make([]models.PurchaseOrderLine, 0, len(inputs))
	for i, in := range inputs {
		if in.PartID == uuid.Nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d: part id is required", i+1)
		}
		if in.Quantity <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d: quantity must be greater than zero", i+1)
		}
		if in.UnitCost != nil && in.UnitCost.IsNegative() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d: unit cost cannot be negative", i+1)
		}
		part, err := txRepo.FindPart(ctx, in.PartID)
		if err != nil {
			return nil, notFound(err, "part")
		}
		if !part.IsActive {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "part %s is inactive", part.PartNumber)
		}
		cost := part.CostPrice
		if in.UnitCost != nil {
			cost = *in.UnitCost
		}
		lines = append(lines, models.PurchaseOrderLine{
			OrderID:      orderID,
			PartID:       part.ID,
			Quantity:     in.Quantity,
			UnitCost:     cost,
			ExtendedCost: cost.Mul(decimal.NewFromInt(int64(in.Quantity))),
			Status:       enums.OrderLineOrdered,
			CreatedAt:    now.Add(time.Duration(i) * time.Microsecond),
			UpdatedAt:    now,
		})
	}
	return lines, nil
}

func (s *service) loadOrder(ctx context.Context, r *Repository, id uuid.UUID) (*models.PurchaseOrder, []models.PurchaseOrderLine, error) {
	order, err := r.FindOrder(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "purchase order")
	}
	lines, err := r.ListLines(ctx, id)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order lines")
	}
	return order, lines, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, order *models.PurchaseOrder, previous enums.PurchaseOrderStatus, receivedLines int, performedBy *string, now time.Time) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventPurchaseOrderStatus,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   order.ID,
		OccurredAt:    now,
		Data: payloads.PurchaseOrderStatusChangedEvent{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			SupplierID:     order.SupplierID,
			LocationID:     order.LocationID,
			PreviousStatus: previous,
			Status:         order.Status,
			ReceivedLines:  receivedLines,
			TotalAmount:    order.TotalAmount,
		},
	}
	if performedBy != nil {
		event.Actor = &outbox.ActorRef{UserID: *performedBy}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit purchase order event")
	}
	return nil
}

func (s *service) logStatus(ctx context.Context, order *models.PurchaseOrder) {
	if s.logg == nil || order == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"purchase_order_id": order.ID.String(),
		"order_number":      order.OrderNumber,
		"status":            string(order.Status),
	}), "purchasing.order.status")
}

// orderNumber renders PO-YYYYMMDD-XXXXXXXX.
func orderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("PO-%s-%s", now.Format("20060102"), suffix)
}

func totals(lines []models.PurchaseOrderLine, shipping, tax decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.ExtendedCost)
	}
	return subtotal, subtotal.Add(shipping).Add(tax)
}

func validateCharges(shipping, tax *decimal.Decimal) error {
	if shipping != nil && shipping.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping cost cannot be negative")
	}
	if tax != nil && tax.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "tax amount cannot be negative")
	}
	return nil
}

func valueOrZero(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return *v
}

func orderConflict(order *models.PurchaseOrder, message string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).
		WithDetails(map[string]any{"order_number": order.OrderNumber, "status": order.Status})
}

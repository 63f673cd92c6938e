package purchasing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/internal/repo"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

// Repository persists suppliers, purchase orders and their lines.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Tx(tx)}
}

func (r *Repository) CreateSupplier(ctx context.Context, s *models.Supplier) error {
	return r.DB(ctx).Create(s).Error
}

func (r *Repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var s models.Supplier
	if err := r.DB(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// SupplierNameTaken matches names case-insensitively, ignoring excludeID.
func (r *Repository) SupplierNameTaken(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	query := r.DB(ctx).Model(&models.Supplier{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

type SupplierQuery struct {
	Search string
	Active *bool
}

func (r *Repository) ListSuppliers(ctx context.Context, q SupplierQuery) ([]models.Supplier, error) {
	query := r.DB(ctx).Model(&models.Supplier{})
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(account_number) LIKE ?)", like, like)
	}
	if q.Active != nil {
		query = query.Where("is_active = ?", *q.Active)
	}
	var rows []models.Supplier
	err := query.Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) UpdateSupplier(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).Model(&models.Supplier{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) FindPart(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.DB(ctx).First(&part, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *Repository) FindLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	var location models.Location
	if err := r.DB(ctx).First(&location, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *models.PurchaseOrder, lines []models.PurchaseOrderLine) error {
	if err := r.DB(ctx).Create(order).Error; err != nil {
		return err
	}
	return r.CreateLines(ctx, lines)
}

func (r *Repository) CreateLines(ctx context.Context, lines []models.PurchaseOrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&lines).Error
}

func (r *Repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	if err := r.DB(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) ListLines(ctx context.Context, orderID uuid.UUID) ([]models.PurchaseOrderLine, error) {
	var rows []models.PurchaseOrderLine
	err := r.DB(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) DeleteLines(ctx context.Context, orderID uuid.UUID) error {
	return r.DB(ctx).Where("order_id = ?", orderID).Delete(&models.PurchaseOrderLine{}).Error
}

// DeleteDraft removes the order only while it is still a draft.
func (r *Repository) DeleteDraft(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).
		Where("id = ? AND status = ?", id, enums.PurchaseOrderDraft).
		Delete(&models.PurchaseOrder{})
	return res.RowsAffected == 1, res.Error
}

// UpdateOrderIn applies updates only while the order is in one of statuses.
func (r *Repository) UpdateOrderIn(ctx context.Context, id uuid.UUID, statuses []enums.PurchaseOrderStatus, updates map[string]any) (bool, error) {
	res := r.DB(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ? AND status IN ?", id, statuses).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// ReceiveLine adds qty to an open line. It refuses to push the received
// quantity past the ordered quantity.
func (r *Repository) ReceiveLine(ctx context.Context, lineID uuid.UUID, qty int, at time.Time) (bool, error) {
	res := r.DB(ctx).
		Model(&models.PurchaseOrderLine{}).
		Where("id = ? AND status IN ? AND received_quantity + ? <= quantity",
			lineID, []enums.OrderLineStatus{enums.OrderLineOrdered, enums.OrderLineBackordered}, qty).
		Updates(map[string]any{
			"received_quantity": gorm.Expr("received_quantity + ?", qty),
			"received_at":       at,
			"updated_at":        at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) SetLineStatus(ctx context.Context, lineID uuid.UUID, status enums.OrderLineStatus, at time.Time) error {
	return r.DB(ctx).
		Model(&models.PurchaseOrderLine{}).
		Where("id = ?", lineID).
		Updates(map[string]any{"status": status, "updated_at": at}).Error
}

// CancelOpenLines closes every line that has not been fully received.
func (r *Repository) CancelOpenLines(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.PurchaseOrderLine{}).
		Where("order_id = ? AND status IN ?", orderID, []enums.OrderLineStatus{enums.OrderLineOrdered, enums.OrderLineBackordered}).
		Updates(map[string]any{"status": enums.OrderLineCancelled, "updated_at": at}).Error
}

type OrderQuery struct {
	Status     *enums.PurchaseOrderStatus
	SupplierID *uuid.UUID
	OrderType  *enums.PurchaseOrderType
	Cursor     *pagination.Cursor
	Limit      int
}

func (r *Repository) ListOrders(ctx context.Context, q OrderQuery) ([]models.PurchaseOrder, error) {
	query := r.DB(ctx).Model(&models.PurchaseOrder{})
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.SupplierID != nil {
		query = query.Where("supplier_id = ?", *q.SupplierID)
	}
	if q.OrderType != nil {
		query = query.Where("order_type = ?", *q.OrderType)
	}
	query = query.Scopes(pagination.Keyset("created_at", q.Cursor, q.Limit))
	var rows []models.PurchaseOrder
	err := query.Find(&rows).Error
	return rows, err
}

// OnOrder sums the quantity still due for a part at a receiving location
// across submitted and partially received orders.
func (r *Repository) OnOrder(ctx context.Context, partID, locationID uuid.UUID) (int, error) {
	var total int
	err := r.DB(ctx).
		Table("purchase_order_lines AS l").
		Joins("JOIN purchase_orders AS o ON o.id = l.order_id").
		Select("COALESCE(SUM(l.quantity - l.received_quantity), 0)").
		Where("l.part_id = ? AND o.location_id = ?", partID, locationID).
		Where("o.status IN ?", []enums.PurchaseOrderStatus{enums.PurchaseOrderSubmitted, enums.PurchaseOrderPartial}).
		Where("l.status IN ?", []enums.OrderLineStatus{enums.OrderLineOrdered, enums.OrderLineBackordered}).
		Scan(&total).Error
	return total, err
}

// LastSupplierForPart returns the active supplier the part was most recently
// ordered from, or nil when it has never been ordered.
func (r *Repository) LastSupplierForPart(ctx context.Context, partID uuid.UUID) (*models.Supplier, error) {
	var rows []models.Supplier
	err := r.DB(ctx).
		Table("suppliers AS s").
		Select("s.*").
		Joins("JOIN purchase_orders AS o ON o.supplier_id = s.id").
		Joins("JOIN purchase_order_lines AS l ON l.order_id = o.id").
		Where("l.part_id = ? AND s.is_active = ? AND o.status <> ?", partID, true, enums.PurchaseOrderCancelled).
		Order("o.created_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

// Repository persists inventory records and the part transaction ledger.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) FindPart(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).First(&part, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *Repository) FindLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	var location models.Location
	if err := r.db.WithContext(ctx).First(&location, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *Repository) FindRecordByID(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) FindRecord(ctx context.Context, partID, locationID uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.db.WithContext(ctx).
		Where("part_id = ? AND location_id = ?", partID, locationID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) CreateRecord(ctx context.Context, record *models.InventoryRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *Repository) SaveRecordSettings(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DecrementGuarded subtracts qty only when enough stock is on hand. It reports
// false when the guard rejected the update.
func (r *Repository) DecrementGuarded(ctx context.Context, recordID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE inventory_records
SET quantity_on_hand = quantity_on_hand - ?, updated_at = ?
WHERE id = ? AND quantity_on_hand >= ?`,
		qty, time.Now().UTC(), recordID, qty,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Increment adds qty to the row for (partID, locationID), creating it when missing.
func (r *Repository) Increment(ctx context.Context, partID, locationID uuid.UUID, qty int) error {
	now := time.Now().UTC()
	record := &models.InventoryRecord{
		PartID:         partID,
		LocationID:     locationID,
		QuantityOnHand: qty,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "part_id"}, {Name: "location_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity_on_hand": gorm.Expr("inventory_records.quantity_on_hand + ?", qty),
				"updated_at":       now,
			}),
		}).
		Create(record).Error
}

func (r *Repository) CreateTransaction(ctx context.Context, entry *models.PartTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *Repository) FindTransaction(ctx context.Context, id uuid.UUID) (*models.PartTransaction, error) {
	var entry models.PartTransaction
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// TransactionQuery narrows the ledger listing. Zero values are ignored.
type TransactionQuery struct {
	PartID     *uuid.UUID
	LocationID *uuid.UUID
	Type       *enums.PartTransactionType
	From       *time.Time
	To         *time.Time
	Cursor     *pagination.Cursor
	Limit      int
}

// ListTransactions returns ledger rows newest first. A positive Limit should
// already include the look-ahead row.
func (r *Repository) ListTransactions(ctx context.Context, q TransactionQuery) ([]models.PartTransaction, error) {
	query := r.db.WithContext(ctx).Model(&models.PartTransaction{})
	if q.PartID != nil {
		query = query.Where("part_id = ?", *q.PartID)
	}
	if q.LocationID != nil {
		query = query.Where("location_id = ?", *q.LocationID)
	}
	if q.Type != nil {
		query = query.Where("transaction_type = ?", *q.Type)
	}
	if q.From != nil {
		query = query.Where("transaction_date >= ?", q.From.UTC())
	}
	if q.To != nil {
		query = query.Where("transaction_date <= ?", q.To.UTC())
	}

	var rows []models.PartTransaction
	err := query.Scopes(pagination.Keyset("transaction_date", q.Cursor, q.Limit)).Find(&rows).Error
	return rows, err
}

// RecordQuery narrows the inventory record listing.
type RecordQuery struct {
	PartID     *uuid.UUID
	LocationID *uuid.UUID
}

func (r *Repository) ListRecords(ctx context.Context, q RecordQuery) ([]models.InventoryRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryRecord{})
	if q.PartID != nil {
		query = query.Where("part_id = ?", *q.PartID)
	}
	if q.LocationID != nil {
		query = query.Where("location_id = ?", *q.LocationID)
	}
	var rows []models.InventoryRecord
	err := query.Order("created_at ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

// ListLowStock returns rows at or below their reorder point. Rows without a
// reorder point fall back to defaultThreshold.
func (r *Repository) ListLowStock(ctx context.Context, locationID *uuid.UUID, defaultThreshold int) ([]models.InventoryRecord, error) {
	query := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("quantity_on_hand <= CASE WHEN reorder_point > 0 THEN reorder_point ELSE ? END", defaultThreshold)
	if locationID != nil {
		query = query.Where("location_id = ?", *locationID)
	}
	var rows []models.InventoryRecord
	err := query.Order("quantity_on_hand ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

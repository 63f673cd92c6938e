package purchasing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/pkg/db"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
)

// ReorderRecommendations walks the low stock list and proposes an order per
// record. Quantity already due on submitted orders is netted off, and records
// that are fully covered are skipped. The supplier is the one the part was
// last ordered from.
func (s *service) ReorderRecommendations(ctx context.Context, locationID *uuid.UUID) ([]RecommendationDTO, error) {
	records, err := s.stock.ListLowStock(ctx, locationID, s.threshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}

	now := s.now()
	suppliers := map[uuid.UUID]*models.Supplier{}
	out := make([]RecommendationDTO, 0, len(records))
	for _, record := range records {
		part, err := s.repo.FindPart(ctx, record.PartID)
		if err != nil {
			if db.IsNotFound(err) {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
		}
		if !part.IsActive {
			continue
		}

		onOrder, err := s.repo.OnOrder(ctx, record.PartID, record.LocationID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum quantity on order")
		}
		qty := s.targetQuantity(record) - onOrder
		if qty <= 0 {
			continue
		}

		supplier, cached := suppliers[part.ID]
		if !cached {
			if supplier, err = s.repo.LastSupplierForPart(ctx, part.ID); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load last supplier")
			}
			suppliers[part.ID] = supplier
		}

		rec := RecommendationDTO{
			InventoryRecordID:   record.ID,
			PartID:              part.ID,
			PartNumber:          part.PartNumber,
			Description:         part.Description,
			LocationID:          record.LocationID,
			QuantityOnHand:      record.QuantityOnHand,
			ReorderPoint:        record.ReorderPoint,
			OnOrder:             onOrder,
			RecommendedQuantity: qty,
			UnitCost:            part.CostPrice,
			EstimatedCost:       part.CostPrice.Mul(decimal.NewFromInt(int64(qty))),
			LeadTimeDays:        DefaultLeadTimeDays,
		}
		if supplier != nil {
			rec.SupplierID = &supplier.ID
			rec.SupplierName = &supplier.Name
			if supplier.LeadTimeDays > 0 {
				rec.LeadTimeDays = supplier.LeadTimeDays
			}
		}
		rec.ExpectedDate = now.AddDate(0, 0, rec.LeadTimeDays)
		out = append(out, rec)
	}
	return out, nil
}

// targetQuantity is the record's reorder quantity. Records without one are
// topped up to twice their low stock threshold.
func (s *service) targetQuantity(record models.InventoryRecord) int {
	if record.ReorderQuantity > 0 {
		return record.ReorderQuantity
	}
	threshold := record.ReorderPoint
	if threshold <= 0 {
		threshold = s.threshold
	}
	qty := threshold*2 - record.QuantityOnHand
	if qty < 1 {
		qty = 1
	}
	return qty
}

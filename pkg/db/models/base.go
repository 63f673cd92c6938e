package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID fills a zero primary key before insert so callers can reference the
// row inside the same transaction. Postgres also defaults the column.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (p *Part) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

func (l *Location) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}

func (i *InventoryRecord) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

func (t *PartTransaction) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}

func (c *CoreCharge) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

func (a *LoyaltyAccount) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}

func (t *LoyaltyTransaction) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}

func (r *LoyaltyReward) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}

func (r *RedeemedReward) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}

func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}

func (s *Supplier) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

func (o *PurchaseOrder) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

func (l *PurchaseOrderLine) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}

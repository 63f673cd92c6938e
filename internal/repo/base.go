package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by the catalog repositories (parts, customers, cores,
// settings) that only need a context-bound handle and transaction rebinding.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Tx rebinds the base to an open transaction.
func (b Base) Tx(tx *gorm.DB) Base {
	return Base{db: tx}
}

// Package dbtest opens throwaway SQLite databases carrying the same tables the
// goose migrations create in Postgres.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dealerworks/dms-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE parts (
  id TEXT PRIMARY KEY,
  part_number TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL,
  manufacturer TEXT,
  category TEXT,
  cost_price NUMERIC NOT NULL DEFAULT 0,
  retail_price NUMERIC NOT NULL DEFAULT 0,
  has_core INTEGER NOT NULL DEFAULT 0,
  core_charge NUMERIC NOT NULL DEFAULT 0,
  superseded_by_part_id TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE locations (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE inventory_records (
  id TEXT PRIMARY KEY,
  part_id TEXT NOT NULL,
  location_id TEXT NOT NULL,
  quantity_on_hand INTEGER NOT NULL DEFAULT 0 CHECK (quantity_on_hand >= 0),
  reorder_point INTEGER NOT NULL DEFAULT 0,
  reorder_quantity INTEGER NOT NULL DEFAULT 0,
  bin_location TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT ux_inventory_records_part_location UNIQUE (part_id, location_id)
);`,
	`CREATE TABLE part_transactions (
  id TEXT PRIMARY KEY,
  transaction_type TEXT NOT NULL,
  part_id TEXT NOT NULL,
  location_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  quantity_delta INTEGER NOT NULL,
  resulting_quantity INTEGER NOT NULL,
  source_location_id TEXT,
  destination_location_id TEXT,
  unit_cost NUMERIC NOT NULL DEFAULT 0,
  unit_price NUMERIC NOT NULL DEFAULT 0,
  extended_cost NUMERIC NOT NULL DEFAULT 0,
  extended_price NUMERIC NOT NULL DEFAULT 0,
  reference_type TEXT,
  reference_number TEXT,
  notes TEXT,
  performed_by TEXT,
  transaction_date DATETIME NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE core_charges (
  id TEXT PRIMARY KEY,
  part_id TEXT NOT NULL,
  customer_id TEXT,
  invoice_number TEXT,
  core_value NUMERIC NOT NULL,
  status TEXT NOT NULL,
  sold_at DATETIME NOT NULL,
  returned_at DATETIME,
  credited_at DATETIME,
  credit_amount NUMERIC,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE customers (
  id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  phone TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE loyalty_accounts (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL UNIQUE,
  tier TEXT NOT NULL,
  current_points INTEGER NOT NULL DEFAULT 0 CHECK (current_points >= 0),
  lifetime_points_earned INTEGER NOT NULL DEFAULT 0,
  lifetime_points_redeemed INTEGER NOT NULL DEFAULT 0,
  enrollment_date DATETIME NOT NULL,
  last_activity_at DATETIME,
  tier_updated_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE loyalty_transactions (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  transaction_type TEXT NOT NULL,
  points INTEGER NOT NULL,
  points_balance INTEGER NOT NULL,
  source TEXT NOT NULL,
  reference_id TEXT,
  description TEXT NOT NULL,
  expires_at DATETIME,
  created_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_loyalty_transactions_expired_reference ON loyalty_transactions (reference_id) WHERE transaction_type = 'expired';`,
	`CREATE TABLE loyalty_tier_configs (
  tier TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  minimum_points INTEGER NOT NULL,
  points_multiplier NUMERIC NOT NULL DEFAULT 1,
  benefits TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  display_order INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`,
	`INSERT INTO loyalty_tier_configs (tier, name, minimum_points, points_multiplier, benefits, display_order) VALUES
  ('bronze', 'Bronze', 0, 1.0, '{"Birthday bonus points"}', 1),
  ('silver', 'Silver', 1000, 1.25, '{"Free multi-point inspection","Priority service scheduling"}', 2),
  ('gold', 'Gold', 5000, 1.5, '{"Complimentary car wash","Loaner vehicle priority","10% off parts"}', 3),
  ('platinum', 'Platinum', 10000, 2.0, '{"Dedicated service advisor","Free pickup and delivery","15% off parts"}', 4);`,
	`CREATE TABLE loyalty_rewards (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL,
  points_cost INTEGER NOT NULL,
  eligible_tiers TEXT NOT NULL,
  quantity_available INTEGER,
  quantity_redeemed INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  expiration_days INTEGER,
  requires_approval INTEGER NOT NULL DEFAULT 0,
  terms TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  CHECK (quantity_available IS NULL OR quantity_redeemed <= quantity_available)
);`,
	`CREATE TABLE redeemed_rewards (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  reward_id TEXT NOT NULL,
  redemption_code TEXT NOT NULL UNIQUE,
  points_spent INTEGER NOT NULL,
  status TEXT NOT NULL,
  redeemed_at DATETIME NOT NULL,
  expires_at DATETIME,
  used_at DATETIME,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE dashboard_settings (
  key TEXT PRIMARY KEY,
  retention_rate NUMERIC NOT NULL,
  satisfaction_score NUMERIC NOT NULL,
  updated_by TEXT,
  updated_at DATETIME
);`,
	`INSERT INTO dashboard_settings (key, retention_rate, satisfaction_score) VALUES ('crm_dashboard', 93.00, 82.00);`,
	`CREATE TABLE suppliers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  supplier_type TEXT NOT NULL,
  account_number TEXT,
  contact_name TEXT,
  email TEXT,
  phone TEXT,
  address TEXT,
  website TEXT,
  shipping_terms TEXT,
  payment_terms TEXT,
  order_methods TEXT,
  lead_time_days INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE purchase_orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  supplier_id TEXT NOT NULL,
  location_id TEXT NOT NULL,
  status TEXT NOT NULL,
  order_type TEXT NOT NULL,
  order_date DATETIME NOT NULL,
  expected_date DATETIME,
  requested_by TEXT,
  shipping_method TEXT,
  tracking_number TEXT,
  subtotal NUMERIC NOT NULL DEFAULT 0,
  shipping_cost NUMERIC NOT NULL DEFAULT 0,
  tax_amount NUMERIC NOT NULL DEFAULT 0,
  total_amount NUMERIC NOT NULL DEFAULT 0,
  notes TEXT,
  submitted_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE purchase_order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  part_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  received_quantity INTEGER NOT NULL DEFAULT 0,
  unit_cost NUMERIC NOT NULL,
  extended_cost NUMERIC NOT NULL,
  status TEXT NOT NULL,
  received_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  CHECK (received_quantity <= quantity)
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  dedupe_key TEXT,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE UNIQUE INDEX ux_outbox_events_dedupe_key ON outbox_events (event_type, dedupe_key) WHERE dedupe_key IS NOT NULL;`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns a private in-memory database with the full schema applied.
// The pool is pinned to one connection so transactions and plain reads share
// the same SQLite handle.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:dms_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// OpenClient wraps Open in a *db.Client so services get WithTx.
func OpenClient(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.FromGorm(conn), conn
}

package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func readEmbedded(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := fs.Glob(Embedded(), embeddedDir+"/*_"+suffix+".sql")
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one %s migration", suffix)

	b, err := fs.ReadFile(Embedded(), matches[0])
	require.NoError(t, err)
	return string(b)
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateFS(Embedded(), embeddedDir))
}

func TestInventoryMigrationGuardsStock(t *testing.T) {
	sql := readEmbedded(t, "create_inventory_and_part_transactions")

	for _, stmt := range []string{
		"CREATE TABLE IF NOT EXISTS inventory_records",
		"CHECK (quantity_on_hand >= 0)",
		"ux_inventory_records_part_location ON inventory_records (part_id, location_id)",
		"CREATE TABLE IF NOT EXISTS part_transactions",
		"trg_part_transactions_append_only",
	} {
		require.Contains(t, sql, stmt)
	}
}

func TestLoyaltyMigrationSeedsTiers(t *testing.T) {
	sql := readEmbedded(t, "create_customers_and_loyalty")

	require.Contains(t, sql, "CHECK (current_points >= 0)")
	require.Contains(t, sql, "trg_loyalty_transactions_append_only")
	require.Contains(t, sql, "ux_redeemed_rewards_code")
	for _, row := range []string{
		"('bronze', 'Bronze', 0, 1.000",
		"('silver', 'Silver', 1000, 1.250",
		"('gold', 'Gold', 5000, 1.500",
		"('platinum', 'Platinum', 10000, 2.000",
	} {
		require.Contains(t, sql, row)
	}
}

func TestDashboardSettingsSeed(t *testing.T) {
	sql := readEmbedded(t, "create_dashboard_settings")
	require.Contains(t, sql, "VALUES ('crm_dashboard', 93.00, 82.00)")
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	err := ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid migration filename")
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(CreateOptions{Dir: dir, Name: "Add Bin Labels"})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_bin_labels.sql"))
	require.NoError(t, ValidateDir(dir))
}

func TestPurchasingMigrationGuardsReceipts(t *testing.T) {
	sql := readEmbedded(t, "create_suppliers_and_purchase_orders")

	for _, stmt := range []string{
		"CREATE TABLE IF NOT EXISTS suppliers",
		"CREATE TABLE IF NOT EXISTS purchase_orders",
		"CREATE TABLE IF NOT EXISTS purchase_order_lines",
		"CHECK (received_quantity <= quantity)",
		"ALTER TYPE aggregate_type_enum ADD VALUE IF NOT EXISTS 'purchase_order'",
		"ALTER TYPE event_type_enum ADD VALUE IF NOT EXISTS 'purchase_order_status_changed'",
	} {
		require.Contains(t, sql, stmt)
	}
}

package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreateSQLMigrationBlank(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC)

	path, err := CreateSQLMigration(CreateOptions{Dir: dir, Name: "Add Bin Location Index!", Now: fixedNow(now)})
	require.NoError(t, err)
	require.Equal(t, "20261017083000_add_bin_location_index.sql", filepath.Base(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "-- add_bin_location_index")
	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationStaysAfterNewestVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20261017120000_create_warranty_claims.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	// workstation clock behind the last shipped migration
	path, err := CreateSQLMigration(CreateOptions{
		Dir:  dir,
		Name: "add_claim_status",
		Now:  fixedNow(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	require.Equal(t, "20261017120001_add_claim_status.sql", filepath.Base(path))
	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationLedgerTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(CreateOptions{Dir: dir, Name: "create_core_credit_ledger", Template: TemplateLedger})
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	sql := string(b)
	require.Contains(t, sql, "CREATE TABLE IF NOT EXISTS core_credit_ledger (")
	require.Contains(t, sql, "CREATE TRIGGER trg_core_credit_ledger_append_only")
	require.Contains(t, sql, "EXECUTE FUNCTION reject_ledger_mutation()")
	require.Contains(t, sql, "DROP TRIGGER IF EXISTS trg_core_credit_ledger_append_only ON core_credit_ledger;")
	require.NotContains(t, sql, "updated_at")
}

func TestCreateSQLMigrationTableTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(CreateOptions{Dir: dir, Name: "create_supplier_contacts", Template: TemplateTable})
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "CREATE TABLE IF NOT EXISTS supplier_contacts (")
	require.Contains(t, string(b), "DROP TABLE IF EXISTS supplier_contacts;")
}

func TestCreateSQLMigrationRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]CreateOptions{
		"missing dir":          {Name: "create_bins"},
		"empty name":           {Dir: dir, Name: " !! "},
		"table without create": {Dir: dir, Name: "bins", Template: TemplateTable},
		"unknown template":     {Dir: dir, Name: "create_bins", Template: "view"},
	}
	for name, opts := range cases {
		_, err := CreateSQLMigration(opts)
		require.Error(t, err, name)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

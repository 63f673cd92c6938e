package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)

// Template selects the body written into a new migration.
type Template string

const (
	TemplateBlank Template = "blank"
	// TemplateTable scaffolds a uuid keyed table with timestamps.
	TemplateTable Template = "table"
	// TemplateLedger is TemplateTable guarded by reject_ledger_mutation(),
	// the append-only trigger shared with part_transactions and
	// loyalty_transactions.
	TemplateLedger Template = "ledger"
)

type CreateOptions struct {
	Dir      string
	Name     string
	Template Template
	Now      func() time.Time
}

// CreateSQLMigration writes <dir>/<YYYYMMDDHHMMSS>_<name>.sql. The version is
// kept past the newest file already in dir so a skewed clock cannot slot a
// migration before one that has shipped. Table and ledger templates take the
// table name from a create_<table> migration name.
func CreateSQLMigration(opts CreateOptions) (string, error) {
	if opts.Dir == "" {
		return "", errors.New("dir is required")
	}
	safe := sanitizeName(opts.Name)
	if safe == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", opts.Name)
	}
	if opts.Template == "" {
		opts.Template = TemplateBlank
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	body, err := renderTemplate(opts.Template, safe)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", opts.Dir, err)
	}
	version, err := nextVersion(opts.Dir, opts.Now().UTC())
	if err != nil {
		return "", err
	}

	fullpath := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.sql", version, safe))
	if _, err := os.Stat(fullpath); err == nil {
		return "", fmt.Errorf("migration already exists: %s", fullpath)
	}
	if err := os.WriteFile(fullpath, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", fullpath, err)
	}
	return fullpath, nil
}

func sanitizeName(name string) string {
	safe := strings.ToLower(strings.TrimSpace(name))
	safe = strings.ReplaceAll(safe, " ", "_")
	safe = nameSanitizeRe.ReplaceAllString(safe, "_")
	return strings.Trim(safe, "_")
}

func nextVersion(dir string, now time.Time) (string, error) {
	entries, err := fs.ReadDir(os.DirFS(dir), ".")
	if err != nil {
		return "", fmt.Errorf("read dir %q: %w", dir, err)
	}
	var latest time.Time
	for _, e := range entries {
		m := sqlFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		v, err := time.Parse(versionLayout, m[1])
		if err != nil {
			continue
		}
		if v.After(latest) {
			latest = v
		}
	}
	if !now.After(latest) {
		now = latest.Add(time.Second)
	}
	return now.Format(versionLayout), nil
}

func renderTemplate(tmpl Template, name string) (string, error) {
	switch tmpl {
	case TemplateBlank:
		return fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`, name), nil
	case TemplateTable, TemplateLedger:
	default:
		return "", fmt.Errorf("unknown migration template %q", tmpl)
	}

	table, ok := strings.CutPrefix(name, "create_")
	if !ok || table == "" {
		return "", fmt.Errorf("%s template needs a create_<table> name, got %q", tmpl, name)
	}

	if tmpl == TemplateTable {
		return fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
CREATE TABLE IF NOT EXISTS %[1]s (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    created_at timestamptz NOT NULL DEFAULT now(),
    updated_at timestamptz NOT NULL DEFAULT now()
);
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
DROP TABLE IF EXISTS %[1]s;
-- +goose StatementEnd
`, table), nil
	}

	return fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
CREATE TABLE IF NOT EXISTS %[1]s (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TRIGGER trg_%[1]s_append_only
    BEFORE UPDATE OR DELETE ON %[1]s
    FOR EACH ROW EXECUTE FUNCTION reject_ledger_mutation();
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
DROP TRIGGER IF EXISTS trg_%[1]s_append_only ON %[1]s;
DROP TABLE IF EXISTS %[1]s;
-- +goose StatementEnd
`, table), nil
}

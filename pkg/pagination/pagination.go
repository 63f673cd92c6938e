package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Params is the raw ?limit and ?cursor pair from a list endpoint.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row of a page. At holds the column the list is
// ordered by: created_at for most lists, transaction_date for the stock ledger.
type Cursor struct {
	At time.Time
	ID uuid.UUID
}

// Page is a validated page request.
type Page struct {
	Cursor *Cursor
	Limit  int
}

// NewPage validates params. A malformed cursor is a validation error.
func NewPage(params Params) (Page, error) {
	cursor, err := ParseCursor(params.Cursor)
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return Page{Cursor: cursor, Limit: NormalizeLimit(params.Limit)}, nil
}

// Fetch is the row count to read: one past the page shows whether more exist.
func (p Page) Fetch() int {
	return p.Limit + 1
}

// Keyset orders newest first on column then id, skips rows up to the cursor
// and applies the read limit.
func Keyset(column string, cursor *Cursor, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if cursor != nil {
			at := cursor.At.UTC()
			db = db.Where(fmt.Sprintf("(%[1]s < ? OR (%[1]s = ? AND id < ?))", column), at, at, cursor.ID)
		}
		db = db.Order(column + " DESC").Order("id DESC")
		if limit > 0 {
			db = db.Limit(limit)
		}
		return db
	}
}

// Trim cuts rows read with Fetch down to the page and returns the cursor of
// the next page, empty on the last one.
func Trim[T any](rows []T, limit int, key func(*T) Cursor) ([]T, string) {
	if limit <= 0 || len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(key(&rows[len(rows)-1]))
}

func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// EncodeCursor uses the URL alphabet so the cursor survives a query string
// without escaping.
func EncodeCursor(cursor Cursor) string {
	payload := cursor.At.UTC().Format(time.RFC3339Nano) + "|" + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor returns nil for an empty value.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	at, id, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, errors.New("invalid cursor format")
	}

	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{At: t, ID: parsed}, nil
}

package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_parts_part_number"}
	wrapped := fmt.Errorf("insert part: %w", pgErr)

	if !IsUniqueViolation(wrapped, "") {
		t.Fatal("expected unique violation")
	}
	if !IsUniqueViolation(wrapped, "ux_parts_part_number") {
		t.Fatal("expected constraint match")
	}
	if IsUniqueViolation(wrapped, "ux_locations_code") {
		t.Fatal("unexpected match for another constraint")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: parts.part_number"), "") {
		t.Fatal("expected sqlite message to match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil should not match")
	}
}

func TestIsCheckViolation(t *testing.T) {
	if !IsCheckViolation(&pgconn.PgError{Code: "23514"}) {
		t.Fatal("expected check violation")
	}
	if IsCheckViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("unique violation is not a check violation")
	}
	if !IsCheckViolation(errors.New("CHECK constraint failed: quantity_on_hand >= 0")) {
		t.Fatal("expected sqlite check message to match")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("load: %w", gorm.ErrRecordNotFound)) {
		t.Fatal("expected not found")
	}
	if IsNotFound(errors.New("other")) {
		t.Fatal("unexpected not found")
	}
}

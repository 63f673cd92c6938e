package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpInsufficientStockDetails(t *testing.T) {
	err := New(CodeInsufficientStock, "not enough stock").WithDetails(map[string]any{
		"part_number": "BRK-1001",
		"available":   3,
		"requested":   5,
		"lines":       []string{"ignored"},
	})

	fields := Dump(fmt.Errorf("issue: %w", err)).Fields()
	if fields["error_code"] != CodeInsufficientStock {
		t.Fatalf("expected error_code, got %v", fields["error_code"])
	}
	if fields["detail_available"] != 3 || fields["detail_requested"] != 5 || fields["detail_part_number"] != "BRK-1001" {
		t.Fatalf("expected scalar details, got %v", fields)
	}
	if _, ok := fields["detail_lines"]; ok {
		t.Fatal("nested details should stay out of the log")
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatal("empty postgres fields should be omitted")
	}
	if chain := fields["error_chain"].([]string); len(chain) != 2 {
		t.Fatalf("expected wrap chain of 2, got %v", chain)
	}
}

func TestDumpPostgresDiagnostics(t *testing.T) {
	cases := map[string]error{
		"pgx": Wrap(CodeConflict, &pgconn.PgError{Code: "23505", ConstraintName: "ux_parts_part_number", TableName: "parts"}, "duplicate part"),
		"pq":  Wrap(CodeConflict, &pq.Error{Code: "23505", Constraint: "ux_parts_part_number", Table: "parts"}, "duplicate part"),
	}
	for name, err := range cases {
		d := Dump(err)
		if d.PGCode != "23505" || d.PGConstraint != "ux_parts_part_number" || d.PGTable != "parts" {
			t.Fatalf("%s: unexpected dump %+v", name, d)
		}
		if d.Fields()["pg_constraint"] != "ux_parts_part_number" {
			t.Fatalf("%s: constraint missing from fields", name)
		}
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || d.Chain != nil {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}

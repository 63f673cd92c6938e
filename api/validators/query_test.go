package validators

import (
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&cursor=%20abc%20", nil)
	params, err := ParsePagination(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Limit != 10 || params.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", params)
	}

	params, err = ParsePagination(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Limit != pagination.DefaultLimit {
		t.Fatalf("expected default limit, got %d", params.Limit)
	}

	_, err = ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=500", nil))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryBool(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?inactive=true&bad=maybe", nil)
	if v, err := ParseQueryBool(req, "inactive"); err != nil || !v {
		t.Fatalf("expected true, got %v %v", v, err)
	}
	if v, err := ParseQueryBool(req, "missing"); err != nil || v {
		t.Fatalf("expected false, got %v %v", v, err)
	}
	if _, err := ParseQueryBool(req, "bad"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

package purchasing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	purchasingsvc "github.com/dealerworks/dms-backend/internal/purchasing"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
)

type stubPurchasingService struct {
	purchasingsvc.Service
	supplierQuery purchasingsvc.SupplierQuery
	createInput   purchasingsvc.CreateOrderInput
	listInput     purchasingsvc.ListOrdersInput
	receiveInput  purchasingsvc.ReceiveInput
	receiveErr    error
	location      *uuid.UUID
	deactivated   uuid.UUID
}

func (s *stubPurchasingService) ListSuppliers(_ context.Context, q purchasingsvc.SupplierQuery) ([]purchasingsvc.SupplierDTO, error) {
	s.supplierQuery = q
	return []purchasingsvc.SupplierDTO{}, nil
}

func (s *stubPurchasingService) DeactivateSupplier(_ context.Context, id uuid.UUID) (*purchasingsvc.SupplierDTO, error) {
	s.deactivated = id
	return &purchasingsvc.SupplierDTO{ID: id}, nil
}

func (s *stubPurchasingService) CreateOrder(_ context.Context, input purchasingsvc.CreateOrderInput) (*purchasingsvc.OrderDTO, error) {
	s.createInput = input
	return &purchasingsvc.OrderDTO{ID: uuid.New(), Status: enums.PurchaseOrderDraft}, nil
}

func (s *stubPurchasingService) ListOrders(_ context.Context, input purchasingsvc.ListOrdersInput) (*purchasingsvc.OrderListDTO, error) {
	s.listInput = input
	return &purchasingsvc.OrderListDTO{Items: []purchasingsvc.OrderDTO{}}, nil
}

func (s *stubPurchasingService) ReceiveOrder(_ context.Context, id uuid.UUID, input purchasingsvc.ReceiveInput) (*purchasingsvc.ReceiveResultDTO, error) {
	s.receiveInput = input
	if s.receiveErr != nil {
		return nil, s.receiveErr
	}
	return &purchasingsvc.ReceiveResultDTO{Order: purchasingsvc.OrderDTO{ID: id, Status: enums.PurchaseOrderPartial}}, nil
}

func (s *stubPurchasingService) ReorderRecommendations(_ context.Context, locationID *uuid.UUID) ([]purchasingsvc.RecommendationDTO, error) {
	s.location = locationID
	return []purchasingsvc.RecommendationDTO{}, nil
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateOrderMapsLines(t *testing.T) {
	svc := &stubPurchasingService{}
	partID := uuid.New()
	body := `{"supplier_id":"` + uuid.NewString() + `","location_id":"` + uuid.NewString() + `","order_type":"special",` +
		`"lines":[{"part_id":"` + partID.String() + `","quantity":3,"unit_cost":"9.95"}]}`

	resp := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/purchase-orders", strings.NewReader(body)))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.createInput.OrderType != enums.PurchaseOrderSpecial {
		t.Fatalf("order type not passed: %q", svc.createInput.OrderType)
	}
	if len(svc.createInput.Lines) != 1 || svc.createInput.Lines[0].PartID != partID || svc.createInput.Lines[0].Quantity != 3 {
		t.Fatalf("lines not mapped: %+v", svc.createInput.Lines)
	}
	if svc.createInput.Lines[0].UnitCost == nil || svc.createInput.Lines[0].UnitCost.String() != "9.95" {
		t.Fatalf("unit cost not mapped")
	}
}

func TestCreateOrderRejectsNonPositiveQuantity(t *testing.T) {
	svc := &stubPurchasingService{}
	body := `{"supplier_id":"` + uuid.NewString() + `","location_id":"` + uuid.NewString() + `",` +
		`"lines":[{"part_id":"` + uuid.NewString() + `","quantity":0}]}`

	resp := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/purchase-orders", strings.NewReader(body)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListOrdersFilters(t *testing.T) {
	svc := &stubPurchasingService{}
	resp := httptest.NewRecorder()
	ListOrders(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/purchase-orders?status=partial&order_type=emergency", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.listInput.Status == nil || *svc.listInput.Status != enums.PurchaseOrderPartial {
		t.Fatal("status filter not passed")
	}
	if svc.listInput.OrderType == nil || *svc.listInput.OrderType != enums.PurchaseOrderEmergency {
		t.Fatal("order type filter not passed")
	}

	resp = httptest.NewRecorder()
	ListOrders(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/purchase-orders?status=shipped", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.Code)
	}
}

func TestReceiveOrderPassesLines(t *testing.T) {
	svc := &stubPurchasingService{}
	lineID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"lines":[{"line_id":"`+lineID.String()+`","quantity":4}]}`))

	resp := httptest.NewRecorder()
	ReceiveOrder(svc, nil).ServeHTTP(resp, withParam(req, "orderId", uuid.NewString()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.receiveInput.Lines) != 1 || svc.receiveInput.Lines[0].LineID != lineID || svc.receiveInput.Lines[0].Quantity != 4 {
		t.Fatalf("lines not mapped: %+v", svc.receiveInput.Lines)
	}
}

func TestReceiveOrderErrors(t *testing.T) {
	svc := &stubPurchasingService{}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"lines":[]}`))
	resp := httptest.NewRecorder()
	ReceiveOrder(svc, nil).ServeHTTP(resp, withParam(req, "orderId", uuid.NewString()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty lines, got %d", resp.Code)
	}

	svc.receiveErr = pkgerrors.New(pkgerrors.CodeStateConflict, "received quantity exceeds ordered quantity")
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"lines":[{"line_id":"`+uuid.NewString()+`","quantity":50}]}`))
	resp = httptest.NewRecorder()
	ReceiveOrder(svc, nil).ServeHTTP(resp, withParam(req, "orderId", uuid.NewString()))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestListSuppliersActiveFilter(t *testing.T) {
	svc := &stubPurchasingService{}
	resp := httptest.NewRecorder()
	ListSuppliers(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/suppliers?active=true&search=motor", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.supplierQuery.Active == nil || !*svc.supplierQuery.Active || svc.supplierQuery.Search != "motor" {
		t.Fatalf("unexpected query %+v", svc.supplierQuery)
	}

	resp = httptest.NewRecorder()
	ListSuppliers(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/suppliers", nil))
	if svc.supplierQuery.Active != nil {
		t.Fatal("absent active filter should not restrict the list")
	}
}

func TestDeactivateSupplierReturnsNoContent(t *testing.T) {
	svc := &stubPurchasingService{}
	id := uuid.New()
	resp := httptest.NewRecorder()
	DeactivateSupplier(svc, nil).ServeHTTP(resp, withParam(httptest.NewRequest(http.MethodDelete, "/", nil), "supplierId", id.String()))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if svc.deactivated != id {
		t.Fatal("supplier id not passed")
	}
}

func TestReorderRecommendationsLocationFilter(t *testing.T) {
	svc := &stubPurchasingService{}
	location := uuid.New()
	resp := httptest.NewRecorder()
	ReorderRecommendations(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/purchase-orders/reorder-recommendations?location_id="+location.String(), nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.location == nil || *svc.location != location {
		t.Fatal("location filter not passed")
	}
}

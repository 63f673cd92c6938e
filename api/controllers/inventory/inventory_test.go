package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/api/middleware"
	inventorysvc "github.com/dealerworks/dms-backend/internal/inventory"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
)

type stubInventoryService struct {
	inventorysvc.Service
	issueInput    inventorysvc.MovementInput
	saleInput     inventorysvc.SaleInput
	adjustInput   inventorysvc.AdjustInput
	transferInput inventorysvc.TransferInput
	listInput     inventorysvc.ListTransactionsInput
	issueErr      error
}

func (s *stubInventoryService) Issue(_ context.Context, input inventorysvc.MovementInput) (*inventorysvc.TransactionDTO, error) {
	s.issueInput = input
	if s.issueErr != nil {
		return nil, s.issueErr
	}
	return &inventorysvc.TransactionDTO{ID: uuid.New(), TransactionType: enums.PartTransactionIssue, Quantity: input.Quantity}, nil
}

func (s *stubInventoryService) Sale(_ context.Context, input inventorysvc.SaleInput) (*inventorysvc.TransactionDTO, error) {
	s.saleInput = input
	return &inventorysvc.TransactionDTO{ID: uuid.New()}, nil
}

func (s *stubInventoryService) Adjust(_ context.Context, input inventorysvc.AdjustInput) (*inventorysvc.TransactionDTO, error) {
	s.adjustInput = input
	return &inventorysvc.TransactionDTO{ID: uuid.New()}, nil
}

func (s *stubInventoryService) Transfer(_ context.Context, input inventorysvc.TransferInput) (*inventorysvc.TransferDTO, error) {
	s.transferInput = input
	return &inventorysvc.TransferDTO{}, nil
}

func (s *stubInventoryService) ListTransactions(_ context.Context, input inventorysvc.ListTransactionsInput) (*inventorysvc.TransactionListDTO, error) {
	s.listInput = input
	return &inventorysvc.TransactionListDTO{Items: []inventorysvc.TransactionDTO{}}, nil
}

func staffRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.WithUserID(req.Context(), "staff-7"))
}

func TestIssueRecordsActor(t *testing.T) {
	svc := &stubInventoryService{}
	partID, locationID := uuid.New(), uuid.New()
	body := `{"part_id":"` + partID.String() + `","location_id":"` + locationID.String() + `","quantity":2,"reference_number":"RO-1"}`

	resp := httptest.NewRecorder()
	Issue(svc, nil).ServeHTTP(resp, staffRequest(http.MethodPost, "/api/transactions/issue", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.issueInput.PartID != partID || svc.issueInput.Quantity != 2 {
		t.Fatalf("unexpected input %+v", svc.issueInput)
	}
	if svc.issueInput.PerformedBy == nil || *svc.issueInput.PerformedBy != "staff-7" {
		t.Fatalf("expected performed_by from context, got %v", svc.issueInput.PerformedBy)
	}
}

func TestIssueInsufficientInventoryIs400(t *testing.T) {
	svc := &stubInventoryService{issueErr: pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient inventory")}
	body := `{"part_id":"` + uuid.NewString() + `","location_id":"` + uuid.NewString() + `","quantity":5}`

	resp := httptest.NewRecorder()
	Issue(svc, nil).ServeHTTP(resp, staffRequest(http.MethodPost, "/", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Message != "insufficient inventory" {
		t.Fatalf("unexpected message %q", payload.Error.Message)
	}
}

func TestIssueRejectsNonPositiveQuantity(t *testing.T) {
	body := `{"part_id":"` + uuid.NewString() + `","location_id":"` + uuid.NewString() + `","quantity":0}`
	resp := httptest.NewRecorder()
	Issue(&stubInventoryService{}, nil).ServeHTTP(resp, staffRequest(http.MethodPost, "/", body))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSaleAcceptsUnitPrice(t *testing.T) {
	svc := &stubInventoryService{}
	body := `{"part_id":"` + uuid.NewString() + `","location_id":"` + uuid.NewString() + `","quantity":1,"unit_price":"12.50"}`
	resp := httptest.NewRecorder()
	Sale(svc, nil).ServeHTTP(resp, staffRequest(http.MethodPost, "/", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.saleInput.UnitPrice == nil || !svc.saleInput.UnitPrice.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected unit price %v", svc.saleInput.UnitPrice)
	}
	if svc.saleInput.Quantity != 1 {
		t.Fatalf("expected embedded quantity decoded, got %d", svc.saleInput.Quantity)
	}
}

func TestAdjustRejectsZeroDelta(t *testing.T) {
	body := `{"part_id":"` + uuid.NewString() + `","location_id":"` + uuid.NewString() + `","quantity_change":0,"reason":"count"}`
	resp := httptest.NewRecorder()
	Adjust(&stubInventoryService{}, nil).ServeHTTP(resp, staffRequest(http.MethodPost, "/", body))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdjustPassesNegativeDelta(t *testing.T) {
	svc := &stubInventoryService{}
	body := `{"part_id":"` + uuid.NewString() + `","location_id":"` + uuid.NewString() + `","quantity_change":-3,"reason":"damaged"}`
	resp := httptest.NewRecorder()
	Adjust(svc, nil).ServeHTTP(resp, staffRequest(http.MethodPost, "/", body))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.adjustInput.Delta != -3 || svc.adjustInput.Reason != "damaged" {
		t.Fatalf("unexpected adjust input %+v", svc.adjustInput)
	}
}

func TestTransferDecodesLocations(t *testing.T) {
	svc := &stubInventoryService{}
	from, to := uuid.New(), uuid.New()
	body := `{"part_id":"` + uuid.NewString() + `","from_location_id":"` + from.String() + `","to_location_id":"` + to.String() + `","quantity":4}`
	resp := httptest.NewRecorder()
	Transfer(svc, nil).ServeHTTP(resp, staffRequest(http.MethodPost, "/", body))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.transferInput.FromLocationID != from || svc.transferInput.ToLocationID != to {
		t.Fatalf("unexpected transfer input %+v", svc.transferInput)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	svc := &stubInventoryService{}
	partID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/transactions?part_id="+partID.String()+"&type=transfer&from=2024-01-01&limit=10", nil)
	resp := httptest.NewRecorder()
	ListTransactions(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.listInput.PartID == nil || *svc.listInput.PartID != partID {
		t.Fatalf("part filter not passed")
	}
	if svc.listInput.Type == nil || *svc.listInput.Type != enums.PartTransactionTransfer {
		t.Fatalf("type filter not passed")
	}
	if svc.listInput.From == nil || svc.listInput.From.Year() != 2024 {
		t.Fatalf("from filter not passed")
	}
}

func TestListTransactionsRejectsUnknownType(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/transactions?type=teleport", nil)
	resp := httptest.NewRecorder()
	ListTransactions(&stubInventoryService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetTransactionBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("transactionId", "x")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	resp := httptest.NewRecorder()
	GetTransaction(&stubInventoryService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

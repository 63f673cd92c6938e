package loyalty

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dealerworks/dms-backend/api/middleware"
	loyaltysvc "github.com/dealerworks/dms-backend/internal/loyalty"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
)

type stubLoyaltyService struct {
	loyaltysvc.Service
	addInput     loyaltysvc.AddPointsInput
	redeemInput  loyaltysvc.RedeemInput
	redeemResult *loyaltysvc.RedemptionResult
	calcInput    loyaltysvc.CalculateInput
	cancelReason string
	cancelErr    error
	rewardStatus *enums.RewardStatus
}

func (s *stubLoyaltyService) AddPoints(_ context.Context, input loyaltysvc.AddPointsInput) (*loyaltysvc.EarnResultDTO, error) {
	s.addInput = input
	return &loyaltysvc.EarnResultDTO{}, nil
}

func (s *stubLoyaltyService) RedeemPoints(_ context.Context, input loyaltysvc.RedeemInput) (*loyaltysvc.RedemptionResult, error) {
	s.redeemInput = input
	return s.redeemResult, nil
}

func (s *stubLoyaltyService) CalculateEarnablePoints(_ context.Context, input loyaltysvc.CalculateInput) (int, error) {
	s.calcInput = input
	return 150, nil
}

func (s *stubLoyaltyService) ListRewards(_ context.Context, status *enums.RewardStatus) ([]loyaltysvc.RewardDTO, error) {
	s.rewardStatus = status
	return []loyaltysvc.RewardDTO{}, nil
}

func (s *stubLoyaltyService) CancelRedemption(_ context.Context, id uuid.UUID, reason string, _ *string) (*loyaltysvc.RedemptionDTO, error) {
	s.cancelReason = reason
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &loyaltysvc.RedemptionDTO{ID: id, Status: enums.RedemptionStatusCancelled}, nil
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestAddPointsRecordsActor(t *testing.T) {
	svc := &stubLoyaltyService{}
	customerID := uuid.New()
	staffID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"points":250,"source":"service_visit","reference_id":"RO-1042"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), staffID.String()))
	req = withParam(req, "customerId", customerID.String())

	resp := httptest.NewRecorder()
	AddPoints(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.addInput.CustomerID != customerID || svc.addInput.Points != 250 {
		t.Fatalf("unexpected input %+v", svc.addInput)
	}
	if svc.addInput.ReferenceID == nil || *svc.addInput.ReferenceID != "RO-1042" {
		t.Fatalf("reference id not passed")
	}
	if svc.addInput.PerformedBy == nil || *svc.addInput.PerformedBy != staffID.String() {
		t.Fatalf("performed_by not taken from auth context")
	}
}

func TestAddPointsRejectsNonPositive(t *testing.T) {
	req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"points":-5,"source":"manual"}`)), "customerId", uuid.NewString())
	resp := httptest.NewRecorder()
	AddPoints(&stubLoyaltyService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRedeemStatusFollowsOutcome(t *testing.T) {
	rewardID := uuid.New()
	body := `{"reward_id":"` + rewardID.String() + `"}`

	svc := &stubLoyaltyService{redeemResult: &loyaltysvc.RedemptionResult{Success: false, Message: "insufficient points", RemainingPoints: 40}}
	resp := httptest.NewRecorder()
	Redeem(svc, nil).ServeHTTP(resp, withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), "customerId", uuid.NewString()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for declined redemption, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"success":false`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if svc.redeemInput.RewardID != rewardID {
		t.Fatalf("reward id not passed")
	}

	svc.redeemResult = &loyaltysvc.RedemptionResult{Success: true, Message: "redeemed", RemainingPoints: 10}
	resp = httptest.NewRecorder()
	Redeem(svc, nil).ServeHTTP(resp, withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), "customerId", uuid.NewString()))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}

func TestCalculate(t *testing.T) {
	svc := &stubLoyaltyService{}
	resp := httptest.NewRecorder()
	Calculate(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"activity":"parts_purchase","amount":"149.99","tier":"gold"}`)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.calcInput.Activity != "parts_purchase" || svc.calcInput.Amount.String() != "149.99" || svc.calcInput.Tier != "gold" {
		t.Fatalf("unexpected input %+v", svc.calcInput)
	}
	if !strings.Contains(resp.Body.String(), `"points":150`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestListRewardsStatusFilter(t *testing.T) {
	svc := &stubLoyaltyService{}
	resp := httptest.NewRecorder()
	ListRewards(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/rewards?status=active", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.rewardStatus == nil || *svc.rewardStatus != enums.RewardStatusActive {
		t.Fatalf("status filter not passed")
	}

	resp = httptest.NewRecorder()
	ListRewards(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/rewards?status=archived", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCancelRedemption(t *testing.T) {
	svc := &stubLoyaltyService{}
	resp := httptest.NewRecorder()
	CancelRedemption(svc, nil).ServeHTTP(resp, withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)), "redemptionId", uuid.NewString()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without reason, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	CancelRedemption(svc, nil).ServeHTTP(resp, withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"customer request"}`)), "redemptionId", uuid.NewString()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.cancelReason != "customer request" {
		t.Fatalf("reason not passed")
	}

	svc.cancelErr = pkgerrors.New(pkgerrors.CodeStateConflict, "redemption already used")
	resp = httptest.NewRecorder()
	CancelRedemption(svc, nil).ServeHTTP(resp, withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"late"}`)), "redemptionId", uuid.NewString()))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestStatusRejectsBadCustomerID(t *testing.T) {
	resp := httptest.NewRecorder()
	Status(&stubLoyaltyService{}, nil).ServeHTTP(resp, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "customerId", "nope"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

package settings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/api/middleware"
	settingssvc "github.com/dealerworks/dms-backend/internal/settings"
)

type stubSettingsService struct {
	updated settingssvc.UpdateInput
}

func (s *stubSettingsService) Get(context.Context) (*settingssvc.DashboardDTO, error) {
	return &settingssvc.DashboardDTO{RetentionRate: decimal.RequireFromString("93"), TotalCustomers: 4}, nil
}

func (s *stubSettingsService) Update(_ context.Context, input settingssvc.UpdateInput) (*settingssvc.DashboardDTO, error) {
	s.updated = input
	return &settingssvc.DashboardDTO{RetentionRate: *input.RetentionRate}, nil
}

func TestGetDashboard(t *testing.T) {
	resp := httptest.NewRecorder()
	Get(&stubSettingsService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"total_customers":4`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestUpdateDashboardRecordsActor(t *testing.T) {
	svc := &stubSettingsService{}
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"retention_rate":"95.5"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), "manager-1"))
	resp := httptest.NewRecorder()
	Update(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.updated.UpdatedBy == nil || *svc.updated.UpdatedBy != "manager-1" {
		t.Fatalf("expected updated_by manager-1")
	}
	if svc.updated.SatisfactionScore != nil {
		t.Fatalf("satisfaction score should be untouched")
	}
}

func TestUpdateDashboardEmptyBody(t *testing.T) {
	resp := httptest.NewRecorder()
	Update(&stubSettingsService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

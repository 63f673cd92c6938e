package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dealerworks/dms-backend/pkg/config"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
)

func newTestService(t *testing.T, crm, financial string, failures uint32) *service {
	t.Helper()
	svc, err := NewService(config.IntegrationConfig{
		CRMBaseURL:       crm,
		FinancialBaseURL: financial,
		Timeout:          time.Second,
		BreakerFailures:  failures,
		BreakerOpenFor:   time.Minute,
	}, nil, nil)
	require.NoError(t, err)
	return svc.(*service)
}

func TestGetCustomerDecodesCRMResponse(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/customers/"+id.String(), r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":              id,
			"customer_number": "C-1001",
			"name":            "Ana Silva",
			"email":           "ana@example.com",
			"address":         map[string]any{"line1": "1 Main St", "city": "Austin", "state": "TX", "postal_code": "78701", "country": "US"},
		})
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL+"/api/", "", 3)
	got, err := svc.GetCustomer(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "C-1001", got.CustomerNumber)
	require.NotNil(t, got.Address)
	assert.Equal(t, "Austin", got.Address.City)
}

func TestGetPartPricingDecodesDecimals(t *testing.T) {
	partID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pricing/parts/"+partID.String(), r.URL.Path)
		_, _ = w.Write([]byte(`{"part_id":"` + partID.String() + `","part_number":"BRK-100","list_price":"49.99","cost":"30.10","markup_percentage":"66.08","tax_rate":"0.0825","core_charge":"15.00"}`))
	}))
	defer srv.Close()

	svc := newTestService(t, "", srv.URL, 3)
	got, err := svc.GetPartPricing(context.Background(), partID)
	require.NoError(t, err)
	assert.Equal(t, "49.99", got.ListPrice.StringFixed(2))
	require.NotNil(t, got.CoreCharge)
	assert.Equal(t, "15.00", got.CoreCharge.StringFixed(2))
}

func TestUpstreamNotFoundDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL, "", 1)
	for i := 0; i < 3; i++ {
		_, err := svc.GetCustomer(context.Background(), uuid.New())
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	}
	assert.Equal(t, gobreaker.StateClosed, svc.crm.State())
}

func TestServerErrorsOpenBreaker(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newTestService(t, "", srv.URL, 2)
	for i := 0; i < 2; i++ {
		_, err := svc.GetPartPricing(context.Background(), uuid.New())
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	}
	assert.Equal(t, gobreaker.StateOpen, svc.financial.State())

	_, err := svc.GetPartPricing(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Contains(t, err.Error(), "circuit open")
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestSlowUpstreamTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, err := NewClient(ClientConfig{Name: "crm", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil, nil)
	require.NoError(t, err)
	svc := &service{crm: client}

	_, err = svc.GetCustomer(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestUnconfiguredUpstreamIsDependencyError(t *testing.T) {
	svc := newTestService(t, "", "", 0)
	_, err := svc.GetCustomer(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	_, err = svc.GetPartPricing(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestGetCustomerPropagatesTraceContext(t *testing.T) {
	prevProvider, prevPropagator := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})

	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		_, _ = w.Write([]byte(`{"customer_number":"C-7"}`))
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL, "", 3)
	ctx, span := tp.Tracer("test").Start(context.Background(), "GET /api/integration/customers/{id}")
	defer span.End()

	_, err := svc.GetCustomer(ctx, uuid.New())
	require.NoError(t, err)
	require.NotEmpty(t, traceparent)
	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())
	assert.NotContains(t, traceparent, span.SpanContext().SpanID().String())
}

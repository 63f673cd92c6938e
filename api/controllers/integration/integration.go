package integration

import (
	"net/http"

	"github.com/dealerworks/dms-backend/api/responses"
	"github.com/dealerworks/dms-backend/api/validators"
	integrationsvc "github.com/dealerworks/dms-backend/internal/integration"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

// Customer proxies the CRM customer record.
func Customer(svc integrationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.GetCustomer(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

// PartPricing proxies price tiers from the financial service.
func PartPricing(svc integrationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pricing, err := svc.GetPartPricing(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pricing)
	}
}

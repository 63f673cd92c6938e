package settings

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/api/middleware"
	"github.com/dealerworks/dms-backend/api/responses"
	"github.com/dealerworks/dms-backend/api/validators"
	settingssvc "github.com/dealerworks/dms-backend/internal/settings"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

type updateDashboardRequest struct {
	RetentionRate     *decimal.Decimal `json:"retention_rate,omitempty"`
	SatisfactionScore *decimal.Decimal `json:"satisfaction_score,omitempty"`
}

func Get(svc settingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboard, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboard)
	}
}

func Update(svc settingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body updateDashboardRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.RetentionRate == nil && body.SatisfactionScore == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update"))
			return
		}
		dashboard, err := svc.Update(r.Context(), settingssvc.UpdateInput{
			RetentionRate:     body.RetentionRate,
			SatisfactionScore: body.SatisfactionScore,
			UpdatedBy:         middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboard)
	}
}

package loyalty

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/api/middleware"
	"github.com/dealerworks/dms-backend/api/responses"
	"github.com/dealerworks/dms-backend/api/validators"
	loyaltysvc "github.com/dealerworks/dms-backend/internal/loyalty"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

type addPointsRequest struct {
	Points      int     `json:"points" validate:"required,gt=0"`
	Source      string  `json:"source" validate:"required,max=64"`
	ReferenceID *string `json:"reference_id,omitempty" validate:"omitempty,max=64"`
}

type adjustPointsRequest struct {
	Delta  int    `json:"points" validate:"required"`
	Reason string `json:"reason" validate:"required,max=255"`
}

type redeemRequest struct {
	RewardID uuid.UUID `json:"reward_id" validate:"required"`
}

type updateTierRequest struct {
	Tier   string `json:"tier" validate:"required"`
	Reason string `json:"reason" validate:"required,max=255"`
}

type calculateRequest struct {
	Activity string          `json:"activity" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Tier     string          `json:"tier,omitempty"`
}

func Status(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := svc.GetStatus(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// AddPoints awards points at the account's tier multiplier.
func AddPoints(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body addPointsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.AddPoints(r.Context(), loyaltysvc.AddPointsInput{
			CustomerID:  customerID,
			Points:      body.Points,
			Source:      body.Source,
			ReferenceID: body.ReferenceID,
			PerformedBy: middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func AdjustPoints(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body adjustPointsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.AdjustPoints(r.Context(), loyaltysvc.AdjustPointsInput{
			CustomerID:  customerID,
			Delta:       body.Delta,
			Reason:      body.Reason,
			PerformedBy: middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

func History(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.History(r.Context(), customerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AvailableRewards lists active rewards the customer's tier may redeem.
func AvailableRewards(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rewards, err := svc.AvailableRewards(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rewards)
	}
}

func Redemptions(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		redemptions, err := svc.Redemptions(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, redemptions)
	}
}

// Redeem answers 201 when the reward was redeemed and 200 with success=false
// when the request was turned down (balance, tier, stock).
func Redeem(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body redeemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.RedeemPoints(r.Context(), loyaltysvc.RedeemInput{
			CustomerID:  customerID,
			RewardID:    body.RewardID,
			PerformedBy: middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if result.Success {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

func UpdateTier(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateTierRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := svc.UpdateTier(r.Context(), loyaltysvc.UpdateTierInput{
			CustomerID:  customerID,
			Tier:        body.Tier,
			Reason:      body.Reason,
			PerformedBy: middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

func Calculate(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body calculateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		points, err := svc.CalculateEarnablePoints(r.Context(), loyaltysvc.CalculateInput{
			Activity: body.Activity,
			Amount:   body.Amount,
			Tier:     body.Tier,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"activity": body.Activity,
			"amount":   body.Amount,
			"points":   points,
		})
	}
}

func Tiers(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tiers, err := svc.Tiers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tiers)
	}
}

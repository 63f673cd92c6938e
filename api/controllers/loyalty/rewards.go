package loyalty

import (
	"net/http"

	"github.com/dealerworks/dms-backend/api/middleware"
	"github.com/dealerworks/dms-backend/api/responses"
	"github.com/dealerworks/dms-backend/api/validators"
	loyaltysvc "github.com/dealerworks/dms-backend/internal/loyalty"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

type createRewardRequest struct {
	Name              string   `json:"name" validate:"required,max=128"`
	Description       string   `json:"description" validate:"max=1000"`
	Category          string   `json:"category" validate:"required"`
	PointsCost        int      `json:"points_cost" validate:"required,gt=0"`
	EligibleTiers     []string `json:"eligible_tiers,omitempty"`
	QuantityAvailable *int     `json:"quantity_available,omitempty" validate:"omitempty,gte=0"`
	Status            string   `json:"status,omitempty"`
	ExpirationDays    *int     `json:"expiration_days,omitempty" validate:"omitempty,gt=0"`
	RequiresApproval  bool     `json:"requires_approval"`
	Terms             *string  `json:"terms,omitempty"`
}

type updateRewardRequest struct {
	Name               *string  `json:"name,omitempty" validate:"omitempty,min=1,max=128"`
	Description        *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
	Category           *string  `json:"category,omitempty"`
	PointsCost         *int     `json:"points_cost,omitempty" validate:"omitempty,gt=0"`
	EligibleTiers      []string `json:"eligible_tiers,omitempty"`
	QuantityAvailable  *int     `json:"quantity_available,omitempty" validate:"omitempty,gte=0"`
	ClearQuantityLimit bool     `json:"clear_quantity_limit,omitempty"`
	Status             *string  `json:"status,omitempty"`
	ExpirationDays     *int     `json:"expiration_days,omitempty" validate:"omitempty,gt=0"`
	RequiresApproval   *bool    `json:"requires_approval,omitempty"`
	Terms              *string  `json:"terms,omitempty"`
}

type cancelRedemptionRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

func ListRewards(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var status *enums.RewardStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			parsed, err := enums.ParseRewardStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reward status"))
				return
			}
			status = &parsed
		}
		rewards, err := svc.ListRewards(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rewards)
	}
}

func CreateReward(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createRewardRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reward, err := svc.CreateReward(r.Context(), loyaltysvc.RewardInput{
			Name:              body.Name,
			Description:       body.Description,
			Category:          body.Category,
			PointsCost:        body.PointsCost,
			EligibleTiers:     body.EligibleTiers,
			QuantityAvailable: body.QuantityAvailable,
			Status:            body.Status,
			ExpirationDays:    body.ExpirationDays,
			RequiresApproval:  body.RequiresApproval,
			Terms:             body.Terms,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, reward)
	}
}

func GetReward(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "rewardId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reward, err := svc.GetReward(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reward)
	}
}

func UpdateReward(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "rewardId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateRewardRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reward, err := svc.UpdateReward(r.Context(), id, loyaltysvc.RewardUpdateInput{
			Name:               body.Name,
			Description:        body.Description,
			Category:           body.Category,
			PointsCost:         body.PointsCost,
			EligibleTiers:      body.EligibleTiers,
			QuantityAvailable:  body.QuantityAvailable,
			ClearQuantityLimit: body.ClearQuantityLimit,
			Status:             body.Status,
			ExpirationDays:     body.ExpirationDays,
			RequiresApproval:   body.RequiresApproval,
			Terms:              body.Terms,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reward)
	}
}

// ApproveRedemption moves a pending redemption to active.
func ApproveRedemption(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "redemptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		redemption, err := svc.ApproveRedemption(r.Context(), id, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, redemption)
	}
}

func UseRedemption(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "redemptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		redemption, err := svc.UseRedemption(r.Context(), id, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, redemption)
	}
}

// CancelRedemption refunds the points spent.
func CancelRedemption(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "redemptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body cancelRedemptionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		redemption, err := svc.CancelRedemption(r.Context(), id, body.Reason, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, redemption)
	}
}

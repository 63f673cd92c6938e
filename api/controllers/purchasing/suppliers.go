package purchasing

import (
	"net/http"
	"strings"

	"github.com/dealerworks/dms-backend/api/responses"
	"github.com/dealerworks/dms-backend/api/validators"
	purchasingsvc "github.com/dealerworks/dms-backend/internal/purchasing"
	"github.com/dealerworks/dms-backend/pkg/enums"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

type createSupplierRequest struct {
	Name          string             `json:"name" validate:"required,max=200"`
	SupplierType  enums.SupplierType `json:"supplier_type" validate:"required"`
	AccountNumber *string            `json:"account_number,omitempty" validate:"omitempty,max=64"`
	ContactName   *string            `json:"contact_name,omitempty" validate:"omitempty,max=200"`
	Email         *string            `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string            `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address       *string            `json:"address,omitempty" validate:"omitempty,max=500"`
	Website       *string            `json:"website,omitempty" validate:"omitempty,url"`
	ShippingTerms *string            `json:"shipping_terms,omitempty" validate:"omitempty,max=200"`
	PaymentTerms  *string            `json:"payment_terms,omitempty" validate:"omitempty,max=200"`
	OrderMethods  []string           `json:"order_methods,omitempty" validate:"omitempty,max=10,dive,max=32"`
	LeadTimeDays  int                `json:"lead_time_days" validate:"gte=0,lte=365"`
}

type updateSupplierRequest struct {
	Name          *string             `json:"name,omitempty" validate:"omitempty,max=200"`
	SupplierType  *enums.SupplierType `json:"supplier_type,omitempty"`
	AccountNumber *string             `json:"account_number,omitempty" validate:"omitempty,max=64"`
	ContactName   *string             `json:"contact_name,omitempty" validate:"omitempty,max=200"`
	Email         *string             `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string             `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address       *string             `json:"address,omitempty" validate:"omitempty,max=500"`
	Website       *string             `json:"website,omitempty" validate:"omitempty,url"`
	ShippingTerms *string             `json:"shipping_terms,omitempty" validate:"omitempty,max=200"`
	PaymentTerms  *string             `json:"payment_terms,omitempty" validate:"omitempty,max=200"`
	OrderMethods  *[]string           `json:"order_methods,omitempty"`
	LeadTimeDays  *int                `json:"lead_time_days,omitempty" validate:"omitempty,gte=0,lte=365"`
	IsActive      *bool               `json:"is_active,omitempty"`
}

func CreateSupplier(svc purchasingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createSupplierRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplier, err := svc.CreateSupplier(r.Context(), purchasingsvc.SupplierInput{
			Name:          body.Name,
			SupplierType:  body.SupplierType,
			AccountNumber: body.AccountNumber,
			ContactName:   body.ContactName,
			Email:         body.Email,
			Phone:         body.Phone,
			Address:       body.Address,
			Website:       body.Website,
			ShippingTerms: body.ShippingTerms,
			PaymentTerms:  body.PaymentTerms,
			OrderMethods:  body.OrderMethods,
			LeadTimeDays:  body.LeadTimeDays,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, supplier)
	}
}

// ListSuppliers filters by ?search and ?active.
func ListSuppliers(svc purchasingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := purchasingsvc.SupplierQuery{Search: validators.SanitizeString(r.URL.Query().Get("search"), 100)}
		if strings.TrimSpace(r.URL.Query().Get("active")) != "" {
			active, err := validators.ParseQueryBool(r, "active")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			query.Active = &active
		}
		suppliers, err := svc.ListSuppliers(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suppliers)
	}
}

func GetSupplier(svc purchasingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplier, err := svc.GetSupplier(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, supplier)
	}
}

func UpdateSupplier(svc purchasingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateSupplierRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplier, err := svc.UpdateSupplier(r.Context(), id, purchasingsvc.SupplierUpdateInput{
			Name:          body.Name,
			SupplierType:  body.SupplierType,
			AccountNumber: body.AccountNumber,
			ContactName:   body.ContactName,
			Email:         body.Email,
			Phone:         body.Phone,
			Address:       body.Address,
			Website:       body.Website,
			ShippingTerms: body.ShippingTerms,
			PaymentTerms:  body.PaymentTerms,
			OrderMethods:  body.OrderMethods,
			LeadTimeDays:  body.LeadTimeDays,
			IsActive:      body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, supplier)
	}
}

func DeactivateSupplier(svc purchasingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := svc.DeactivateSupplier(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// Package integration reads customer and pricing data owned by the CRM and
// financial modules.
package integration

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerworks/dms-backend/pkg/config"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

type CRMCustomer struct {
	ID                 uuid.UUID `json:"id"`
	CustomerNumber     string    `json:"customer_number"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Phone              *string   `json:"phone,omitempty"`
	Address            *Address  `json:"address,omitempty"`
	CustomerType       string    `json:"customer_type"`
	IsTaxExempt        bool      `json:"is_tax_exempt"`
	TaxExemptionNumber *string   `json:"tax_exemption_number,omitempty"`
}

type PriceTier struct {
	Name        string          `json:"name"`
	MinQuantity int             `json:"min_quantity"`
	Price       decimal.Decimal `json:"price"`
}

type PartPricing struct {
	PartID            uuid.UUID        `json:"part_id"`
	PartNumber        string           `json:"part_number"`
	ListPrice         decimal.Decimal  `json:"list_price"`
	Cost              decimal.Decimal  `json:"cost"`
	MarkupPercentage  decimal.Decimal  `json:"markup_percentage"`
	PriceTiers        []PriceTier      `json:"price_tiers,omitempty"`
	TaxRate           decimal.Decimal  `json:"tax_rate"`
	CoreCharge        *decimal.Decimal `json:"core_charge,omitempty"`
	CoreChargeTaxRate *decimal.Decimal `json:"core_charge_tax_rate,omitempty"`
}

type Service interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*CRMCustomer, error)
	GetPartPricing(ctx context.Context, partID uuid.UUID) (*PartPricing, error)
}

type service struct {
	crm       *Client
	financial *Client
}

// NewService builds clients for every configured upstream. An upstream with
// no base URL stays nil and its calls fail as a dependency error.
func NewService(cfg config.IntegrationConfig, httpClient *http.Client, logg *logger.Logger) (Service, error) {
	s := &service{}
	if cfg.CRMBaseURL != "" {
		crm, err := NewClient(clientConfig("crm", cfg.CRMBaseURL, cfg), httpClient, logg)
		if err != nil {
			return nil, err
		}
		s.crm = crm
	}
	if cfg.FinancialBaseURL != "" {
		financial, err := NewClient(clientConfig("financial", cfg.FinancialBaseURL, cfg), httpClient, logg)
		if err != nil {
			return nil, err
		}
		s.financial = financial
	}
	return s, nil
}

func clientConfig(name, baseURL string, cfg config.IntegrationConfig) ClientConfig {
	return ClientConfig{
		Name:            name,
		BaseURL:         baseURL,
		Timeout:         cfg.Timeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerOpenFor:  cfg.BreakerOpenFor,
	}
}

func (s *service) GetCustomer(ctx context.Context, id uuid.UUID) (*CRMCustomer, error) {
	if s.crm == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "crm integration not configured")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	var out CRMCustomer
	if err := s.crm.getJSON(ctx, fmt.Sprintf("/customers/%s", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) GetPartPricing(ctx context.Context, partID uuid.UUID) (*PartPricing, error) {
	if s.financial == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "financial integration not configured")
	}
	if partID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
	}
	var out PartPricing
	if err := s.financial.getJSON(ctx, fmt.Sprintf("/pricing/parts/%s", partID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

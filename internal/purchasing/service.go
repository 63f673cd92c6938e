package purchasing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/internal/inventory"
	"github.com/dealerworks/dms-backend/pkg/db"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
	"github.com/dealerworks/dms-backend/pkg/outbox"
)

// DefaultLeadTimeDays is assumed for recommendations with no known supplier.
const DefaultLeadTimeDays = 7

// Service manages suppliers, purchase orders and stock receipts against them.
type Service interface {
	CreateSupplier(ctx context.Context, input SupplierInput) (*SupplierDTO, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*SupplierDTO, error)
	ListSuppliers(ctx context.Context, query SupplierQuery) ([]SupplierDTO, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, input SupplierUpdateInput) (*SupplierDTO, error)
	DeactivateSupplier(ctx context.Context, id uuid.UUID) (*SupplierDTO, error)

	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*OrderListDTO, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, input UpdateOrderInput) (*OrderDTO, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	SubmitOrder(ctx context.Context, id uuid.UUID, performedBy *string) (*OrderDTO, error)
	CancelOrder(ctx context.Context, id uuid.UUID, performedBy *string) (*OrderDTO, error)
	ReceiveOrder(ctx context.Context, id uuid.UUID, input ReceiveInput) (*ReceiveResultDTO, error)

	ReorderRecommendations(ctx context.Context, locationID *uuid.UUID) ([]RecommendationDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// stockReceiver books received quantities into inventory.
type stockReceiver interface {
	Receipt(ctx context.Context, input inventory.ReceiptInput) (*inventory.TransactionDTO, error)
}

type lowStockLister interface {
	ListLowStock(ctx context.Context, locationID *uuid.UUID, defaultThreshold int) ([]models.InventoryRecord, error)
}

type ServiceParams struct {
	Repo              *Repository
	DB                txRunner
	Outbox            outbox.Emitter
	Inventory         stockReceiver
	Stock             lowStockLister
	Logger            *logger.Logger
	LowStockThreshold int
}

type service struct {
	repo      *Repository
	db        txRunner
	outbox    outbox.Emitter
	inventory stockReceiver
	stock     lowStockLister
	logg      *logger.Logger
	threshold int
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("purchasing repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	threshold := params.LowStockThreshold
	if threshold <= 0 {
		threshold = inventory.DefaultLowStockThreshold
	}
	return &service{
		repo:      params.Repo,
		db:        params.DB,
		outbox:    params.Outbox,
		inventory: params.Inventory,
		stock:     params.Stock,
		logg:      params.Logger,
		threshold: threshold,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func nonEmpty(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func asServiceError(err error, action string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}

func notFound(err error, what string) error {
	if db.IsNotFound(err) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", what)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

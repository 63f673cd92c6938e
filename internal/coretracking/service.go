package coretracking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/pkg/db"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
	"github.com/dealerworks/dms-backend/pkg/outbox"
	"github.com/dealerworks/dms-backend/pkg/outbox/payloads"
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

// Service tracks core deposits from sale through return and credit.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CoreChargeDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CoreChargeDTO, error)
	List(ctx context.Context, input ListInput) (*CoreChargeListDTO, error)
	ProcessReturn(ctx context.Context, id uuid.UUID, input ReturnInput) (*CoreChargeDTO, error)
	ApplyCredit(ctx context.Context, id uuid.UUID, input CreditInput) (*CoreChargeDTO, error)
	OutstandingValue(ctx context.Context) (*OutstandingDTO, error)
}

// CreateInput records a core sold with a part. CoreValue defaults to the
// part's core charge.
type CreateInput struct {
	PartID        uuid.UUID
	CustomerID    *uuid.UUID
	InvoiceNumber *string
	CoreValue     *decimal.Decimal
	Notes         *string
	PerformedBy   *string
}

type ReturnInput struct {
	Damaged           bool
	DamageDescription string
	Notes             string
	ReturnedAt        *time.Time
	PerformedBy       *string
}

// CreditInput settles a returned core. Amount defaults to the core value.
type CreditInput struct {
	Amount      *decimal.Decimal
	Notes       string
	PerformedBy *string
}

type ListInput struct {
	Status     *enums.CoreStatus
	CustomerID *uuid.UUID
	PartID     *uuid.UUID
	Pagination pagination.Params
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo   *Repository
	DB     txRunner
	Outbox outbox.Emitter
	Logger *logger.Logger
}

type service struct {
	repo   *Repository
	db     txRunner
	outbox outbox.Emitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("core repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:   params.Repo,
		db:     params.DB,
		outbox: params.Outbox,
		logg:   params.Logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CoreChargeDTO, error) {
	if input.PartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
	}
	if input.CoreValue != nil && input.CoreValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "core value cannot be negative")
	}

	now := s.now()
	var core *models.CoreCharge
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		part, err := txRepo.FindPart(ctx, input.PartID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
		}
		if !part.HasCore {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "part %s does not carry a core charge", part.PartNumber)
		}
		if input.CustomerID != nil {
			ok, err := txRepo.CustomerExists(ctx, *input.CustomerID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
			}
		}

		value := part.CoreCharge
		if input.CoreValue != nil {
			value = *input.CoreValue
		}
		core = &models.CoreCharge{
			PartID:        part.ID,
			CustomerID:    input.CustomerID,
			InvoiceNumber: nonEmpty(input.InvoiceNumber),
			CoreValue:     value,
			Status:        enums.CoreStatusSold,
			SoldAt:        now,
			Notes:         nonEmpty(input.Notes),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := txRepo.Create(ctx, core); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create core charge")
		}
		return s.emit(ctx, tx, core, input.PerformedBy, now)
	})
	if err != nil {
		return nil, asServiceError(err, "create core charge")
	}
	dto := NewCoreChargeDTO(core)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CoreChargeDTO, error) {
	core, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	dto := NewCoreChargeDTO(core)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*CoreChargeListDTO, error) {
	page, err := pagination.NewPage(input.Pagination)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, Query{
		Status:     input.Status,
		CustomerID: input.CustomerID,
		PartID:     input.PartID,
		Cursor:     page.Cursor,
		Limit:      page.Fetch(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list core charges")
	}
	out := &CoreChargeListDTO{Items: []CoreChargeDTO{}}
	rows, out.NextCursor = pagination.Trim(rows, page.Limit, func(c *models.CoreCharge) pagination.Cursor {
		return pagination.Cursor{At: c.CreatedAt, ID: c.ID}
	})
	for i := range rows {
		out.Items = append(out.Items, NewCoreChargeDTO(&rows[i]))
	}
	return out, nil
}

// ProcessReturn moves a sold core to returned and appends a dated return note,
// flagging damage when reported.
func (s *service) ProcessReturn(ctx context.Context, id uuid.UUID, input ReturnInput) (*CoreChargeDTO, error) {
	returnedAt := s.now()
	if input.ReturnedAt != nil {
		returnedAt = input.ReturnedAt.UTC()
	}
	note := strings.TrimSpace(input.Notes)
	if input.Damaged {
		damage := strings.TrimSpace(input.DamageDescription)
		if damage == "" {
			damage = "no description"
		}
		note = strings.TrimSpace(note + " DAMAGED: " + damage)
	}
	return s.transition(ctx, id, enums.CoreStatusSold, enums.CoreStatusReturned, input.PerformedBy,
		func(core *models.CoreCharge) (map[string]any, error) {
			updates := map[string]any{"returned_at": returnedAt}
			if note != "" {
				updates["notes"] = appendNote(core.Notes, fmt.Sprintf("RETURN (%s): %s", returnedAt.Format("2006-01-02"), note))
			}
			return updates, nil
		})
}

// ApplyCredit settles a returned core.
func (s *service) ApplyCredit(ctx context.Context, id uuid.UUID, input CreditInput) (*CoreChargeDTO, error) {
	if input.Amount != nil && input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount cannot be negative")
	}
	now := s.now()
	note := strings.TrimSpace(input.Notes)
	return s.transition(ctx, id, enums.CoreStatusReturned, enums.CoreStatusCredited, input.PerformedBy,
		func(core *models.CoreCharge) (map[string]any, error) {
			amount := core.CoreValue
			if input.Amount != nil {
				amount = *input.Amount
			}
			updates := map[string]any{"credited_at": now, "credit_amount": amount}
			if note != "" {
				updates["notes"] = appendNote(core.Notes, fmt.Sprintf("CREDIT (%s): %s", now.Format("2006-01-02"), note))
			}
			return updates, nil
		})
}

func (s *service) transition(ctx context.Context, id uuid.UUID, from, to enums.CoreStatus, performedBy *string, build func(*models.CoreCharge) (map[string]any, error)) (*CoreChargeDTO, error) {
	now := s.now()
	var core *models.CoreCharge
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		current, err := txRepo.Find(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if current.Status != from {
			return statusConflict(current.Status, to)
		}
		updates, err := build(current)
		if err != nil {
			return err
		}
		updates["updated_at"] = now
		ok, err := txRepo.Transition(ctx, id, from, to, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update core charge")
		}
		if !ok {
			return statusConflict(current.Status, to)
		}
		if core, err = txRepo.Find(ctx, id); err != nil {
			return lookupError(err)
		}
		return s.emit(ctx, tx, core, performedBy, now)
	})
	if err != nil {
		return nil, asServiceError(err, "update core charge")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"core_charge_id": id.String(),
			"status":         string(to),
		}), "cores.status.changed")
	}
	dto := NewCoreChargeDTO(core)
	return &dto, nil
}

func (s *service) OutstandingValue(ctx context.Context) (*OutstandingDTO, error) {
	count, total, err := s.repo.TotalByStatus(ctx, enums.CoreStatusSold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum outstanding cores")
	}
	return &OutstandingDTO{Count: count, Total: total}, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, core *models.CoreCharge, performedBy *string, now time.Time) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventCoreStatusChanged,
		AggregateType: enums.AggregateCoreCharge,
		AggregateID:   core.ID,
		OccurredAt:    now,
		Data: payloads.CoreStatusChangedEvent{
			CoreChargeID: core.ID,
			PartID:       core.PartID,
			CustomerID:   core.CustomerID,
			Status:       core.Status,
			CoreValue:    core.CoreValue,
			CreditAmount: core.CreditAmount,
		},
	}
	if performedBy != nil {
		event.Actor = &outbox.ActorRef{UserID: *performedBy}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit core status event")
	}
	return nil
}

func appendNote(existing *string, line string) string {
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return line
	}
	return *existing + "\n" + line
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

func statusConflict(current, target enums.CoreStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "core charge in status %s cannot move to %s", current, target).
		WithDetails(map[string]any{"status": current})
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "core charge not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load core charge")
}

func asServiceError(err error, action string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}

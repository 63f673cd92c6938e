package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dealerworks/dms-backend/pkg/config"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	"github.com/dealerworks/dms-backend/pkg/outbox"
	"github.com/dealerworks/dms-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// ErrUnroutable marks a row whose event type has no topic to go to.
var ErrUnroutable = errors.New("event has no topic")

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.InventoryTopic == "" {
		return nil, fmt.Errorf("inventory topic is required")
	}
	if cfg.LoyaltyTopic == "" {
		return nil, fmt.Errorf("loyalty topic is required")
	}
	if cfg.DomainTopic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventPartTransactionRecorded,
			AggregateType:  enums.AggregateInventoryRecord,
			Topic:          cfg.InventoryTopic,
			PayloadFactory: func() interface{} { return &payloads.PartTransactionRecordedEvent{} },
		},
		{
			EventType:      enums.EventInventoryLowStock,
			AggregateType:  enums.AggregateInventoryRecord,
			Topic:          cfg.InventoryTopic,
			PayloadFactory: func() interface{} { return &payloads.InventoryLowStockEvent{} },
		},
		{
			EventType:      enums.EventPurchaseOrderStatus,
			AggregateType:  enums.AggregatePurchaseOrder,
			Topic:          cfg.InventoryTopic,
			PayloadFactory: func() interface{} { return &payloads.PurchaseOrderStatusChangedEvent{} },
		},
		{
			EventType:      enums.EventLoyaltyPointsEarned,
			AggregateType:  enums.AggregateLoyaltyAccount,
			Topic:          cfg.LoyaltyTopic,
			PayloadFactory: func() interface{} { return &payloads.LoyaltyPointsEvent{} },
		},
		{
			EventType:      enums.EventLoyaltyPointsAdjusted,
			AggregateType:  enums.AggregateLoyaltyAccount,
			Topic:          cfg.LoyaltyTopic,
			PayloadFactory: func() interface{} { return &payloads.LoyaltyPointsEvent{} },
		},
		{
			EventType:      enums.EventLoyaltyPointsExpired,
			AggregateType:  enums.AggregateLoyaltyAccount,
			Topic:          cfg.LoyaltyTopic,
			PayloadFactory: func() interface{} { return &payloads.LoyaltyPointsEvent{} },
		},
		{
			EventType:      enums.EventLoyaltyTierChanged,
			AggregateType:  enums.AggregateLoyaltyAccount,
			Topic:          cfg.LoyaltyTopic,
			PayloadFactory: func() interface{} { return &payloads.LoyaltyTierChangedEvent{} },
		},
		{
			EventType:      enums.EventRewardRedeemed,
			AggregateType:  enums.AggregateRedemption,
			Topic:          cfg.LoyaltyTopic,
			PayloadFactory: func() interface{} { return &payloads.RewardRedeemedEvent{} },
		},
		{
			EventType:      enums.EventRedemptionStatusChanged,
			AggregateType:  enums.AggregateRedemption,
			Topic:          cfg.LoyaltyTopic,
			PayloadFactory: func() interface{} { return &payloads.RedemptionStatusChangedEvent{} },
		},
	} {
		reg.register(desc)
	}
	reg.register(EventDescriptor{
		EventType:      enums.EventCoreStatusChanged,
		AggregateType:  enums.AggregateCoreCharge,
		Topic:          cfg.DomainTopic,
		PayloadFactory: func() interface{} { return &payloads.CoreStatusChangedEvent{} },
	})

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("%w: unsupported event type %s", ErrUnroutable, event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("%w: aggregate mismatch: expected %s got %s", ErrUnroutable, desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", event.EventType))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

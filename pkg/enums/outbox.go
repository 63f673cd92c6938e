package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateInventoryRecord OutboxAggregateType = "inventory_record"
	AggregateLoyaltyAccount  OutboxAggregateType = "loyalty_account"
	AggregateCoreCharge      OutboxAggregateType = "core_charge"
	AggregateRedemption      OutboxAggregateType = "redemption"
	AggregatePurchaseOrder   OutboxAggregateType = "purchase_order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateInventoryRecord,
	AggregateLoyaltyAccount,
	AggregateCoreCharge,
	AggregateRedemption,
	AggregatePurchaseOrder,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventPartTransactionRecorded OutboxEventType = "part_transaction_recorded"
	EventInventoryLowStock       OutboxEventType = "inventory_low_stock"
	EventLoyaltyPointsEarned     OutboxEventType = "loyalty_points_earned"
	EventLoyaltyPointsAdjusted   OutboxEventType = "loyalty_points_adjusted"
	EventLoyaltyPointsExpired    OutboxEventType = "loyalty_points_expired"
	EventLoyaltyTierChanged      OutboxEventType = "loyalty_tier_changed"
	EventRewardRedeemed          OutboxEventType = "reward_redeemed"
	EventRedemptionStatusChanged OutboxEventType = "redemption_status_changed"
	EventCoreStatusChanged       OutboxEventType = "core_status_changed"
	EventPurchaseOrderStatus     OutboxEventType = "purchase_order_status_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPartTransactionRecorded,
	EventInventoryLowStock,
	EventLoyaltyPointsEarned,
	EventLoyaltyPointsAdjusted,
	EventLoyaltyPointsExpired,
	EventLoyaltyTierChanged,
	EventRewardRedeemed,
	EventRedemptionStatusChanged,
	EventCoreStatusChanged,
	EventPurchaseOrderStatus,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateCheckoutGroup OutboxAggregateType = "checkout_group"
	AggregateProduct       OutboxAggregateType = "product"
	AggregatePurchase      OutboxAggregateType = "purchase"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateCheckoutGroup,
	AggregateProduct,
	AggregatePurchase,
}

// IsValid reports whether the value matches a known aggregate type.
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

// OutboxEventType names a domain event written to the outbox.
type OutboxEventType string

const (
	EventOrderPlaced           OutboxEventType = "order.placed"
	EventOrderStatusAdvanced   OutboxEventType = "order.status_advanced"
	EventOrderDelivered        OutboxEventType = "order.delivered"
	EventSellerOrderDecided    OutboxEventType = "seller_order.decided"
	EventDeliveryStaffAssigned OutboxEventType = "order.staff_assigned"
	EventStockPurchased        OutboxEventType = "stock.purchased"
	EventStockLowDetected      OutboxEventType = "stock.low_detected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderStatusAdvanced,
	EventOrderDelivered,
	EventSellerOrderDecided,
	EventDeliveryStaffAssigned,
	EventStockPurchased,
	EventStockLowDetected,
}

// IsValid reports whether the value matches a known event type.
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

// OutboxDLQErrorReason explains why an event was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

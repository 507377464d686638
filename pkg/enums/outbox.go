package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox row belongs to.
type OutboxAggregateType string

const (
	AggregateSharedCart OutboxAggregateType = "shared_cart"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateSharedCart,
}

// IsValid reports whether the value is a known aggregate type.
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

// OutboxEventType names a domain event carried by the outbox.
type OutboxEventType string

const (
	EventSharedCartCompleted OutboxEventType = "shared_cart_completed"
	EventSharedCartReopened  OutboxEventType = "shared_cart_reopened"
	EventSharedCartClosed    OutboxEventType = "shared_cart_closed"
	EventSharedCartExpired   OutboxEventType = "shared_cart_expired"
)

var validOutboxEventTypes = []OutboxEventType{
	EventSharedCartCompleted,
	EventSharedCartReopened,
	EventSharedCartClosed,
	EventSharedCartExpired,
}

// IsValid reports whether the value is a known event type.
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

package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateSearchQuery OutboxAggregateType = "search_query"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateSearchQuery,
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

// OutboxEventType names a domain event written to the outbox.
type OutboxEventType string

const (
	EventSearchCompleted OutboxEventType = "search_completed"
	EventSearchFailed    OutboxEventType = "search_failed"
)

var validEventTypes = []OutboxEventType{
	EventSearchCompleted,
	EventSearchFailed,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

package ports

import (
	"context"

	"deepcae-backend/domain/events"
)

// WildcardEventType subscribes a handler to every event.
const WildcardEventType = "*"

// EventHandler is the interface that all event handlers must implement
type EventHandler interface {
	// Handle processes a domain event
	Handle(ctx context.Context, event events.DomainEvent) error

	// SupportsEvent checks if this handler supports the given event type
	SupportsEvent(eventType string) bool

	// Priority returns the handler's priority (lower numbers = higher priority)
	Priority() int

	// Name returns the handler's name for logging
	Name() string
}

// EventBus delivers engine lifecycle events to in-process observers.
// Delivery is fire-and-forget: handler errors and panics are contained
// and logged, never surfaced to the emitting operation.
type EventBus interface {
	// Register adds a handler for specific event types
	Register(eventTypes []string, handler EventHandler) error

	// On attaches a plain callback to one event type
	On(eventType string, handler func(ctx context.Context, event events.DomainEvent)) error

	// Emit dispatches an event to every matching handler
	Emit(ctx context.Context, event events.DomainEvent)
}

// EventPublisher forwards domain events to an external broker for
// consumers outside the process.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event events.DomainEvent) error
}

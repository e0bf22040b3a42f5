// Package messaging fans domain events out of the process.
package messaging

import (
	"context"
	"time"

	appevents "deepcae-backend/application/events"
	"deepcae-backend/application/ports"
	"deepcae-backend/domain/events"

	"go.uber.org/zap"
)

// EventDispatcher is the EventBus handed to the services when an
// external broker is configured. Every emitted event reaches the
// in-process handler registry first and the external publisher
// second; a publisher failure is logged and swallowed so the domain
// operation that emitted the event never fails on delivery.
type EventDispatcher struct {
	registry  *appevents.HandlerRegistry
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewEventDispatcher creates a dispatcher over the local registry.
// publisher may be nil, in which case events stay in-process.
func NewEventDispatcher(registry *appevents.HandlerRegistry, publisher ports.EventPublisher, logger *zap.Logger) *EventDispatcher {
	return &EventDispatcher{
		registry:  registry,
		publisher: publisher,
		logger:    logger,
	}
}

// Register adds a handler for specific event types.
func (d *EventDispatcher) Register(eventTypes []string, handler ports.EventHandler) error {
	return d.registry.Register(eventTypes, handler)
}

// On attaches a plain callback to one event type.
func (d *EventDispatcher) On(eventType string, handler func(ctx context.Context, event events.DomainEvent)) error {
	return d.registry.On(eventType, handler)
}

// Emit dispatches an event locally and forwards it to the external
// publisher.
func (d *EventDispatcher) Emit(ctx context.Context, event events.DomainEvent) {
	d.registry.Emit(ctx, event)
	d.forward(ctx, event)
}

// EmitBatch dispatches a batch of events in order.
func (d *EventDispatcher) EmitBatch(ctx context.Context, batch []events.DomainEvent) {
	for _, event := range batch {
		d.Emit(ctx, event)
	}
}

// forward sends one event to the external publisher. Publishing is
// synchronous so Lambda entrypoints do not leave work behind after
// the handler returns.
func (d *EventDispatcher) forward(ctx context.Context, event events.DomainEvent) {
	if d.publisher == nil {
		return
	}

	start := time.Now()
	if err := d.publisher.PublishEvent(ctx, event); err != nil {
		d.logger.Error("Failed to publish event to external bus",
			zap.String("eventType", event.GetEventType()),
			zap.String("aggregateID", event.GetAggregateID()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}

	d.logger.Debug("Event forwarded to external bus",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
		zap.Duration("duration", time.Since(start)),
	)
}

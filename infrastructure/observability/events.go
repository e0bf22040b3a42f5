package observability

import (
	"context"

	"deepcae-backend/domain/events"
)

// EventMetricsHandler counts domain events as they pass through the
// event bus. Register it with the wildcard event type so every event
// is observed.
type EventMetricsHandler struct {
	collector *Collector
}

// NewEventMetricsHandler creates an event handler backed by the
// given collector.
func NewEventMetricsHandler(collector *Collector) *EventMetricsHandler {
	return &EventMetricsHandler{collector: collector}
}

// Handle increments the per-type counter and the targeted engine
// counters. It never fails.
func (h *EventMetricsHandler) Handle(_ context.Context, event events.DomainEvent) error {
	eventType := event.GetEventType()
	h.collector.DomainEvents.WithLabelValues(eventType).Inc()

	switch eventType {
	case events.TypeSnapshotCreated:
		h.collector.SnapshotsCreated.Inc()
	case events.TypeRollbackCompleted:
		h.collector.Rollbacks.WithLabelValues("completed").Inc()
	case events.TypeRollbackFailed:
		h.collector.Rollbacks.WithLabelValues("failed").Inc()
	case events.TypeMergeAnalysisCompleted:
		h.collector.Merges.WithLabelValues("analyzed").Inc()
	case events.TypeMergeFailed:
		h.collector.Merges.WithLabelValues("failed").Inc()
	}

	return nil
}

// SupportsEvent reports true for every event type.
func (h *EventMetricsHandler) SupportsEvent(string) bool {
	return true
}

// Priority runs metrics ahead of application handlers.
func (h *EventMetricsHandler) Priority() int {
	return 10
}

// Name identifies this handler in logs.
func (h *EventMetricsHandler) Name() string {
	return "metrics-collector"
}

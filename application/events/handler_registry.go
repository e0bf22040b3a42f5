package events

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"deepcae-backend/application/ports"
	"deepcae-backend/domain/events"
)

// DefaultHandlerTimeout bounds one handler invocation.
const DefaultHandlerTimeout = 30 * time.Second

// HandlerRegistry manages event handler registration and dispatching.
// It is the engine's observer surface: handlers attach per event type
// (or the wildcard), run in priority order, and their failures and
// panics are contained here so they never reach the emitting
// operation.
type HandlerRegistry struct {
	handlers       map[string][]ports.EventHandler
	mu             sync.RWMutex
	logger         *zap.Logger
	handlerTimeout time.Duration
}

// NewHandlerRegistry creates a new event handler registry
func NewHandlerRegistry(logger *zap.Logger) *HandlerRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HandlerRegistry{
		handlers:       make(map[string][]ports.EventHandler),
		logger:         logger,
		handlerTimeout: DefaultHandlerTimeout,
	}
}

// Register adds a handler for specific event types
func (r *HandlerRegistry) Register(eventTypes []string, handler ports.EventHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	for _, eventType := range eventTypes {
		if eventType == "" {
			return fmt.Errorf("event type cannot be empty")
		}

		if !handler.SupportsEvent(eventType) {
			return fmt.Errorf("handler %s does not support event type %s", handler.Name(), eventType)
		}

		r.handlers[eventType] = append(r.handlers[eventType], handler)
		r.sortHandlersByPriority(eventType)

		r.logger.Info("Registered event handler",
			zap.String("handler", handler.Name()),
			zap.String("eventType", eventType),
			zap.Int("priority", handler.Priority()),
		)
	}

	return nil
}

// On attaches a plain callback to one event type
func (r *HandlerRegistry) On(eventType string, handler func(ctx context.Context, event events.DomainEvent)) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	return r.Register([]string{eventType}, &callbackHandler{
		eventType: eventType,
		callback:  handler,
	})
}

// Unregister removes a handler for specific event types
func (r *HandlerRegistry) Unregister(eventTypes []string, handler ports.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, eventType := range eventTypes {
		handlers := r.handlers[eventType]
		filtered := []ports.EventHandler{}

		for _, h := range handlers {
			if h != handler {
				filtered = append(filtered, h)
			}
		}

		if len(filtered) > 0 {
			r.handlers[eventType] = filtered
		} else {
			delete(r.handlers, eventType)
		}

		r.logger.Info("Unregistered event handler",
			zap.String("handler", handler.Name()),
			zap.String("eventType", eventType),
		)
	}
}

// Emit sends an event to all registered handlers. Handler errors are
// logged and swallowed; a panicking handler is recovered and reported
// the same way.
func (r *HandlerRegistry) Emit(ctx context.Context, event events.DomainEvent) {
	if event == nil {
		r.logger.Warn("Dropped nil event")
		return
	}

	eventType := event.GetEventType()

	r.mu.RLock()
	handlers := make([]ports.EventHandler, 0, len(r.handlers[eventType])+len(r.handlers[ports.WildcardEventType]))
	handlers = append(handlers, r.handlers[eventType]...)
	handlers = append(handlers, r.handlers[ports.WildcardEventType]...)
	r.mu.RUnlock()

	if len(handlers) == 0 {
		r.logger.Debug("No handlers registered for event type",
			zap.String("eventType", eventType),
		)
		return
	}

	successCount := 0
	failureCount := 0

	for _, handler := range handlers {
		start := time.Now()

		err := r.invoke(ctx, handler, event)

		duration := time.Since(start)

		if err != nil {
			failureCount++
			r.logger.Error("Event handler failed",
				zap.String("handler", handler.Name()),
				zap.String("eventType", eventType),
				zap.Error(err),
				zap.Duration("duration", duration),
			)
		} else {
			successCount++
			r.logger.Debug("Event handler succeeded",
				zap.String("handler", handler.Name()),
				zap.String("eventType", eventType),
				zap.Duration("duration", duration),
			)
		}
	}

	r.logger.Info("Event dispatched",
		zap.String("eventType", eventType),
		zap.Int("handlers", len(handlers)),
		zap.Int("succeeded", successCount),
		zap.Int("failed", failureCount),
	)
}

// EmitBatch sends multiple events to handlers
func (r *HandlerRegistry) EmitBatch(ctx context.Context, batch []events.DomainEvent) {
	for _, event := range batch {
		r.Emit(ctx, event)
	}
}

// invoke runs one handler with a timeout and panic containment.
func (r *HandlerRegistry) invoke(ctx context.Context, handler ports.EventHandler, event events.DomainEvent) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler %s panicked: %v", handler.Name(), rec)
		}
	}()

	handlerCtx, cancel := context.WithTimeout(ctx, r.handlerTimeout)
	defer cancel()

	return handler.Handle(handlerCtx, event)
}

// GetHandlers returns all handlers for a specific event type
func (r *HandlerRegistry) GetHandlers(eventType string) []ports.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handlers := r.handlers[eventType]
	result := make([]ports.EventHandler, len(handlers))
	copy(result, handlers)

	return result
}

// SetHandlerTimeout overrides the per-handler invocation bound.
func (r *HandlerRegistry) SetHandlerTimeout(timeout time.Duration) {
	if timeout > 0 {
		r.handlerTimeout = timeout
	}
}

func (r *HandlerRegistry) sortHandlersByPriority(eventType string) {
	handlers := r.handlers[eventType]
	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].Priority() < handlers[j].Priority()
	})
}

// callbackHandler adapts a bare function to the EventHandler interface
type callbackHandler struct {
	eventType string
	callback  func(ctx context.Context, event events.DomainEvent)
}

func (h *callbackHandler) Handle(ctx context.Context, event events.DomainEvent) error {
	h.callback(ctx, event)
	return nil
}

func (h *callbackHandler) SupportsEvent(eventType string) bool {
	return eventType == h.eventType || h.eventType == ports.WildcardEventType
}

func (h *callbackHandler) Priority() int { return 100 }

func (h *callbackHandler) Name() string { return "callback:" + h.eventType }

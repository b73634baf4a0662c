// Package messaging provides the in-process event bus used when the
// service runs without AWS. Handlers registered here receive events
// synchronously on the publishing goroutine.
package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lattice/application/ports"
	"lattice/domain/events"

	"go.uber.org/zap"
)

// Matches any event type when used as a subscription key
const WildcardEventType = "*"

const handlerTimeout = 30 * time.Second

// LocalEventBus dispatches events to subscribed handlers in process
type LocalEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]ports.EventHandler
	logger   *zap.Logger
}

// NewLocalEventBus creates an empty local event bus
func NewLocalEventBus(logger *zap.Logger) *LocalEventBus {
	return &LocalEventBus{
		handlers: make(map[string][]ports.EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type. The wildcard "*"
// subscribes to every event.
func (b *LocalEventBus) Subscribe(eventType string, handler ports.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if eventType != WildcardEventType && !handler.CanHandle(eventType) {
		return fmt.Errorf("handler %T does not handle event type %s", handler, eventType)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	b.logger.Info("Registered event handler",
		zap.String("handler", fmt.Sprintf("%T", handler)),
		zap.String("eventType", eventType),
	)
	return nil
}

// Unsubscribe removes a handler
func (b *LocalEventBus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	filtered := b.handlers[eventType][:0]
	for _, h := range b.handlers[eventType] {
		if h != handler {
			filtered = append(filtered, h)
		}
	}
	if len(filtered) == 0 {
		delete(b.handlers, eventType)
	} else {
		b.handlers[eventType] = filtered
	}
	return nil
}

// Publish dispatches an event to every handler subscribed to its type or
// to the wildcard. Individual handler failures are logged; the publish
// fails only when every handler failed.
func (b *LocalEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	eventType := event.GetEventType()

	// Copy under the read lock so handlers run without holding it
	b.mu.RLock()
	recipients := make([]ports.EventHandler, 0,
		len(b.handlers[eventType])+len(b.handlers[WildcardEventType]))
	recipients = append(recipients, b.handlers[eventType]...)
	recipients = append(recipients, b.handlers[WildcardEventType]...)
	b.mu.RUnlock()

	if len(recipients) == 0 {
		b.logger.Debug("No handlers registered for event type",
			zap.String("eventType", eventType),
		)
		return nil
	}

	var lastErr error
	succeeded := 0
	for _, handler := range recipients {
		handlerCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
		err := handler.Handle(handlerCtx, event)
		cancel()

		if err != nil {
			lastErr = err
			b.logger.Error("Event handler failed",
				zap.String("handler", fmt.Sprintf("%T", handler)),
				zap.String("eventType", eventType),
				zap.Error(err),
			)
			continue
		}
		succeeded++
	}

	if succeeded == 0 && lastErr != nil {
		return fmt.Errorf("all handlers failed for event %s: %w", eventType, lastErr)
	}
	return nil
}

// PublishBatch dispatches multiple events in order
func (b *LocalEventBus) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	var lastErr error
	failed := 0
	for _, event := range domainEvents {
		if err := b.Publish(ctx, event); err != nil {
			failed++
			lastErr = err
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to dispatch %d of %d events: %w", failed, len(domainEvents), lastErr)
	}
	return nil
}

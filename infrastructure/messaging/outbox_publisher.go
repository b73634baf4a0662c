package messaging

import (
	"context"
	"fmt"

	"lattice/application/ports"
	"lattice/domain/events"

	"go.uber.org/zap"
)

// OutboxPublisher is the write side of the outbox pattern. Events are
// staged as pending rows in the event store and the outbox processor
// delivers them to EventBridge in the background, so command handlers
// never call AWS on the request path and delivery is at-least-once.
type OutboxPublisher struct {
	store  ports.EventStore
	logger *zap.Logger
}

// NewOutboxPublisher creates an event bus that stages events in the store
func NewOutboxPublisher(store ports.EventStore, logger *zap.Logger) ports.EventBus {
	return &OutboxPublisher{
		store:  store,
		logger: logger,
	}
}

// Publish stages a single event
func (p *OutboxPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	if event == nil {
		return fmt.Errorf("cannot publish nil event")
	}
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch stages events as pending outbox rows
func (p *OutboxPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}
	if err := p.store.SaveEvents(ctx, domainEvents); err != nil {
		return fmt.Errorf("failed to stage events in outbox: %w", err)
	}
	return nil
}

// Subscribe is a no-op; consumers attach through EventBridge rules, not here
func (p *OutboxPublisher) Subscribe(eventType string, handler ports.EventHandler) error {
	p.logger.Warn("Subscribe called on outbox publisher; consumers attach through EventBridge rules",
		zap.String("eventType", eventType),
	)
	return nil
}

// Unsubscribe is a no-op
func (p *OutboxPublisher) Unsubscribe(eventType string, handler ports.EventHandler) error {
	return nil
}

package handlers

import (
	"context"

	"lattice/application/ports"
	"lattice/domain/events"
	"go.uber.org/zap"
)

// publishEvents sends uncommitted domain events. Publish failures are logged
// rather than failing the command; the aggregate write already happened and
// the response should not depend on event delivery.
func publishEvents(ctx context.Context, bus ports.EventPublisher, logger *zap.Logger, evts []events.DomainEvent) {
	if bus == nil || len(evts) == 0 {
		return
	}
	if err := bus.PublishBatch(ctx, evts); err != nil {
		logger.Warn("Failed to publish domain events",
			zap.Int("count", len(evts)),
			zap.Error(err),
		)
	}
}

// publishEvent sends a single domain event with the same failure policy
func publishEvent(ctx context.Context, bus ports.EventPublisher, logger *zap.Logger, event events.DomainEvent) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish domain event",
			zap.String("eventType", event.GetEventType()),
			zap.Error(err),
		)
	}
}

package messaging

import (
	"context"

	"lattice/application/ports"
	"lattice/domain/events"

	"go.uber.org/zap"
)

// EventStoreSink appends every published event to the event store. The
// local profile subscribes it to the in-process bus so the event feed
// matches what the outbox writes when running against AWS.
type EventStoreSink struct {
	store  ports.EventStore
	logger *zap.Logger
}

// NewEventStoreSink creates a sink that records events for auditing
func NewEventStoreSink(store ports.EventStore, logger *zap.Logger) *EventStoreSink {
	return &EventStoreSink{
		store:  store,
		logger: logger,
	}
}

// Handle persists the event
func (s *EventStoreSink) Handle(ctx context.Context, event events.DomainEvent) error {
	return s.store.SaveEvents(ctx, []events.DomainEvent{event})
}

// CanHandle accepts every event type
func (s *EventStoreSink) CanHandle(eventType string) bool {
	return true
}

// WorkspacePurgeHandler removes a deleted workspace's event feed. Against
// AWS the graph events consumer does this sweep; the local profile runs it
// in process.
type WorkspacePurgeHandler struct {
	store  ports.EventStore
	logger *zap.Logger
}

// NewWorkspacePurgeHandler creates the purge handler
func NewWorkspacePurgeHandler(store ports.EventStore, logger *zap.Logger) *WorkspacePurgeHandler {
	return &WorkspacePurgeHandler{
		store:  store,
		logger: logger,
	}
}

// Handle sweeps the event feed of the deleted workspace
func (h *WorkspacePurgeHandler) Handle(ctx context.Context, event events.DomainEvent) error {
	if event.GetEventType() != events.TypeWorkspaceDeleted {
		return nil
	}

	workspaceID := event.GetWorkspaceID()
	if err := h.store.DeleteEvents(ctx, workspaceID); err != nil {
		return err
	}

	h.logger.Info("Purged event feed for deleted workspace",
		zap.String("workspaceID", workspaceID),
	)
	return nil
}

// CanHandle accepts only workspace deletion
func (h *WorkspacePurgeHandler) CanHandle(eventType string) bool {
	return eventType == events.TypeWorkspaceDeleted
}

package memory

import (
	"context"
	"sync"

	"lattice/domain/events"
)

// EventStore keeps domain events in memory, in append order. It mirrors the
// DynamoDB store's deletion semantics: removing a workspace aggregate also
// removes every event raised inside that workspace.
type EventStore struct {
	mu     sync.RWMutex
	events []events.DomainEvent
}

// NewEventStore creates an empty in-memory event store
func NewEventStore() *EventStore {
	return &EventStore{}
}

// SaveEvents persists domain events
func (es *EventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	es.mu.Lock()
	defer es.mu.Unlock()
	es.events = append(es.events, domainEvents...)
	return nil
}

// GetEvents retrieves all events for an aggregate, oldest first
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var result []events.DomainEvent
	for _, event := range es.events {
		if event.GetAggregateID() == aggregateID {
			result = append(result, event)
		}
	}
	return result, nil
}

// GetEventsByType retrieves recent events of a specific type, newest first
func (es *EventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var result []events.DomainEvent
	for i := len(es.events) - 1; i >= 0; i-- {
		if es.events[i].GetEventType() == eventType {
			result = append(result, es.events[i])
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

// DeleteEvents removes all events for an aggregate, including the workspace
// feed when the aggregate is a workspace
func (es *EventStore) DeleteEvents(ctx context.Context, aggregateID string) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	kept := es.events[:0]
	for _, event := range es.events {
		if event.GetAggregateID() == aggregateID || event.GetWorkspaceID() == aggregateID {
			continue
		}
		kept = append(kept, event)
	}
	es.events = kept
	return nil
}

package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lattice/domain/core/valueobjects"
	"lattice/domain/events"
)

type recordingHandler struct {
	accepts string
	seen    []events.DomainEvent
	err     error
}

func (h *recordingHandler) Handle(ctx context.Context, event events.DomainEvent) error {
	h.seen = append(h.seen, event)
	return h.err
}

func (h *recordingHandler) CanHandle(eventType string) bool {
	return h.accepts == "" || h.accepts == eventType
}

func testEvent(t *testing.T) events.DomainEvent {
	t.Helper()
	return events.NewEntityCreated(
		valueobjects.NewEntityID(), valueobjects.NewWorkspaceID(),
		"person", "user-1", time.Now(),
	)
}

func TestLocalEventBus_PublishToSubscribers(t *testing.T) {
	bus := NewLocalEventBus(zap.NewNop())

	typed := &recordingHandler{accepts: events.TypeEntityCreated}
	wildcard := &recordingHandler{}
	other := &recordingHandler{accepts: events.TypeEdgeDeleted}

	require.NoError(t, bus.Subscribe(events.TypeEntityCreated, typed))
	require.NoError(t, bus.Subscribe(WildcardEventType, wildcard))
	require.NoError(t, bus.Subscribe(events.TypeEdgeDeleted, other))

	event := testEvent(t)
	require.NoError(t, bus.Publish(context.Background(), event))

	assert.Len(t, typed.seen, 1)
	assert.Len(t, wildcard.seen, 1)
	assert.Empty(t, other.seen)
}

func TestLocalEventBus_SubscribeValidation(t *testing.T) {
	bus := NewLocalEventBus(zap.NewNop())

	assert.Error(t, bus.Subscribe(events.TypeEntityCreated, nil))
	assert.Error(t, bus.Subscribe("", &recordingHandler{}))

	// Handlers must accept the type they subscribe to
	mismatch := &recordingHandler{accepts: events.TypeEdgeCreated}
	assert.Error(t, bus.Subscribe(events.TypeEntityCreated, mismatch))
}

func TestLocalEventBus_PublishWithNoSubscribers(t *testing.T) {
	bus := NewLocalEventBus(zap.NewNop())
	require.NoError(t, bus.Publish(context.Background(), testEvent(t)))
}

func TestLocalEventBus_HandlerFailures(t *testing.T) {
	bus := NewLocalEventBus(zap.NewNop())

	failing := &recordingHandler{accepts: events.TypeEntityCreated, err: errors.New("boom")}
	require.NoError(t, bus.Subscribe(events.TypeEntityCreated, failing))

	// Every handler failing fails the publish
	err := bus.Publish(context.Background(), testEvent(t))
	require.Error(t, err)

	// One success is enough
	healthy := &recordingHandler{accepts: events.TypeEntityCreated}
	require.NoError(t, bus.Subscribe(events.TypeEntityCreated, healthy))
	require.NoError(t, bus.Publish(context.Background(), testEvent(t)))
	assert.Len(t, healthy.seen, 1)
}

func TestLocalEventBus_Unsubscribe(t *testing.T) {
	bus := NewLocalEventBus(zap.NewNop())

	handler := &recordingHandler{accepts: events.TypeEntityCreated}
	require.NoError(t, bus.Subscribe(events.TypeEntityCreated, handler))
	require.NoError(t, bus.Unsubscribe(events.TypeEntityCreated, handler))

	require.NoError(t, bus.Publish(context.Background(), testEvent(t)))
	assert.Empty(t, handler.seen)
}

func TestLocalEventBus_PublishBatch(t *testing.T) {
	bus := NewLocalEventBus(zap.NewNop())

	wildcard := &recordingHandler{}
	require.NoError(t, bus.Subscribe(WildcardEventType, wildcard))

	batch := []events.DomainEvent{testEvent(t), testEvent(t), testEvent(t)}
	require.NoError(t, bus.PublishBatch(context.Background(), batch))
	assert.Len(t, wildcard.seen, 3)
}

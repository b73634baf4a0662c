// Package eventbridge publishes domain events to AWS EventBridge.
// Routing to consumers is configured through EventBridge rules, not here.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lattice/application/ports"
	"lattice/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"
)

const (
	// EventBridge caps PutEvents at 10 entries per call
	putEventsBatchSize = 10

	maxPublishRetries = 3
	initialBackoff    = 100 * time.Millisecond
)

// EventBridgePublisher implements the EventBus interface using AWS EventBridge
type EventBridgePublisher struct {
	client       *awseventbridge.Client
	eventBusName string
	source       string
	logger       *zap.Logger
}

// NewEventBridgePublisher creates a new EventBridge publisher
func NewEventBridgePublisher(
	client *awseventbridge.Client,
	eventBusName string,
	logger *zap.Logger,
) ports.EventBus {
	return &EventBridgePublisher{
		client:       client,
		eventBusName: eventBusName,
		source:       events.SourceAPI,
		logger:       logger,
	}
}

// Publish sends a single event to EventBridge
func (p *EventBridgePublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends multiple events to EventBridge
func (p *EventBridgePublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for i := 0; i < len(domainEvents); i += putEventsBatchSize {
		end := i + putEventsBatchSize
		if end > len(domainEvents) {
			end = len(domainEvents)
		}
		if err := p.publishChunk(ctx, domainEvents[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// publishChunk publishes up to one PutEvents call worth of events,
// resending rejected entries with backoff
func (p *EventBridgePublisher) publishChunk(ctx context.Context, chunk []events.DomainEvent) error {
	pending := chunk
	backoff := initialBackoff

	for attempt := 0; ; attempt++ {
		failed, err := p.putEvents(ctx, pending)
		if err == nil && len(failed) == 0 {
			return nil
		}

		if attempt == maxPublishRetries-1 {
			if err != nil {
				return err
			}
			return fmt.Errorf("%d events failed to publish after %d attempts", len(failed), maxPublishRetries)
		}
		if len(failed) > 0 {
			pending = failed
		}

		p.logger.Warn("Retrying event publication",
			zap.Int("attempt", attempt+1),
			zap.Int("events", len(pending)),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// putEvents issues one PutEvents call and returns the events EventBridge
// rejected. A request-level error returns every marshalable event so the
// caller can resend all of them.
func (p *EventBridgePublisher) putEvents(ctx context.Context, batch []events.DomainEvent) ([]events.DomainEvent, error) {
	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	accepted := make([]events.DomainEvent, 0, len(batch))

	for _, event := range batch {
		detail, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal event",
				zap.String("eventType", event.GetEventType()),
				zap.Error(err),
			)
			continue
		}

		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(p.source),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.GetTimestamp()),
			Resources: []string{
				fmt.Sprintf("arn:aws:lattice:%s:%s", event.GetWorkspaceID(), event.GetAggregateID()),
			},
		})
		accepted = append(accepted, event)
	}

	if len(entries) == 0 {
		return nil, nil
	}

	result, err := p.client.PutEvents(ctx, &awseventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return accepted, fmt.Errorf("publish events: %w", err)
	}

	var failed []events.DomainEvent
	if result.FailedEntryCount > 0 {
		// result.Entries lines up with the request entries
		for i, entry := range result.Entries {
			if entry.ErrorCode == nil {
				continue
			}
			p.logger.Warn("Event rejected by EventBridge",
				zap.String("eventType", accepted[i].GetEventType()),
				zap.String("errorCode", aws.ToString(entry.ErrorCode)),
				zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
			)
			failed = append(failed, accepted[i])
		}
	}

	if len(failed) == 0 {
		p.logger.Debug("Events published to EventBridge",
			zap.Int("count", len(entries)),
			zap.String("eventBus", p.eventBusName),
		)
	}
	return failed, nil
}

// Subscribe registers a handler for an event type. EventBridge routing is
// managed through rules and targets outside this process, so this only
// satisfies the interface.
func (p *EventBridgePublisher) Subscribe(eventType string, handler ports.EventHandler) error {
	p.logger.Warn("Subscribe called but EventBridge subscriptions are managed externally",
		zap.String("eventType", eventType),
	)
	return nil
}

// Unsubscribe removes a handler
func (p *EventBridgePublisher) Unsubscribe(eventType string, handler ports.EventHandler) error {
	p.logger.Warn("Unsubscribe called but EventBridge subscriptions are managed externally",
		zap.String("eventType", eventType),
	)
	return nil
}

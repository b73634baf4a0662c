package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lattice/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PublishStatus represents the publishing status of an event
type PublishStatus string

const (
	PublishStatusPending   PublishStatus = "pending"
	PublishStatusPublished PublishStatus = "published"
	PublishStatusFailed    PublishStatus = "failed"
)

// maxPublishAttempts is how many delivery tries an event gets before it is
// parked as failed
const maxPublishAttempts = 3

// eventTTL bounds how long event rows live. The TTL is the backstop for
// rows the deletion sweeps never reach, cascade-deleted aggregates included.
const eventTTL = 365 * 24 * time.Hour

// EventStore persists domain events with the outbox pattern: rows start as
// pending and the outbox processor flips them to published once the bus has
// accepted them.
type EventStore struct {
	client        *dynamodb.Client
	tableName     string
	indexName     string
	gsi2IndexName string
	logger        *zap.Logger
}

// EventRecord is the DynamoDB shape of one stored event
type EventRecord struct {
	PK            string                 `dynamodbav:"PK"` // EVENTS#<aggregate_id>
	SK            string                 `dynamodbav:"SK"` // EVENT#<timestamp>#<event_id>
	ItemType      string                 `dynamodbav:"ItemType"`
	EventID       string                 `dynamodbav:"EventID"`
	EventType     string                 `dynamodbav:"EventType"`
	AggregateID   string                 `dynamodbav:"AggregateID"`
	AggregateType string                 `dynamodbav:"AggregateType"`
	WorkspaceID   string                 `dynamodbav:"WorkspaceID"`
	EventData     map[string]interface{} `dynamodbav:"EventData"`
	Timestamp     string                 `dynamodbav:"Timestamp"`
	Version       int                    `dynamodbav:"Version"`

	PublishStatus   string `dynamodbav:"PublishStatus"`
	PublishAttempts int    `dynamodbav:"PublishAttempts"`
	LastPublishTry  string `dynamodbav:"LastPublishTry,omitempty"`
	PublishedAt     string `dynamodbav:"PublishedAt,omitempty"`
	ErrorMessage    string `dynamodbav:"ErrorMessage,omitempty"`

	GSI1PK string `dynamodbav:"GSI1PK"` // WS#<workspace_id> - workspace event feed
	GSI1SK string `dynamodbav:"GSI1SK"` // EVENT#<timestamp>
	GSI2PK string `dynamodbav:"GSI2PK"` // EVENTTYPE#<type>
	GSI2SK string `dynamodbav:"GSI2SK"` // EVENT#<timestamp>

	TTL int64 `dynamodbav:"TTL,omitempty"`
}

// NewEventStore creates a new EventStore
func NewEventStore(client *dynamodb.Client, tableName, indexName, gsi2IndexName string, logger *zap.Logger) *EventStore {
	return &EventStore{
		client:        client,
		tableName:     tableName,
		indexName:     indexName,
		gsi2IndexName: gsi2IndexName,
		logger:        logger,
	}
}

// SaveEvents persists domain events as pending outbox rows
func (es *EventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		record, err := es.eventToRecord(event)
		if err != nil {
			return fmt.Errorf("failed to convert event to record: %w", err)
		}

		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}

		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	if err := es.batchWrite(ctx, writeRequests); err != nil {
		return err
	}

	es.logger.Debug("Events saved", zap.Int("count", len(domainEvents)))
	return nil
}

// GetEvents retrieves all events for an aggregate, oldest first
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringAttr(eventsPK(aggregateID)),
		},
		ScanIndexForward: aws.Bool(true),
	}

	var allEvents []events.DomainEvent
	for {
		result, err := es.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query events: %w", err)
		}

		for _, item := range result.Items {
			var record EventRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
			}
			event, err := es.recordToEvent(record)
			if err != nil {
				return nil, err
			}
			allEvents = append(allEvents, event)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return allEvents, nil
}

// GetEventsByType retrieves recent events of a specific type, newest first
func (es *EventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		IndexName:              aws.String(es.gsi2IndexName),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringAttr(eventTypPrefix + eventType),
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := es.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by type: %w", err)
	}

	domainEvents := make([]events.DomainEvent, 0, len(result.Items))
	for _, item := range result.Items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
		}
		event, err := es.recordToEvent(record)
		if err != nil {
			return nil, err
		}
		domainEvents = append(domainEvents, event)
	}

	return domainEvents, nil
}

// DeleteEvents removes all events for an aggregate. A workspace aggregate's
// ID is also the feed key for every event raised inside it, so deleting a
// workspace sweeps the full tenant history in one call.
func (es *EventStore) DeleteEvents(ctx context.Context, aggregateID string) error {
	type rowKey struct{ pk, sk string }
	seen := make(map[rowKey]bool)
	var deletes []types.WriteRequest

	collect := func(input *dynamodb.QueryInput) error {
		for {
			result, err := es.client.Query(ctx, input)
			if err != nil {
				return fmt.Errorf("failed to query events for deletion: %w", err)
			}
			for _, item := range result.Items {
				var record struct {
					PK string `dynamodbav:"PK"`
					SK string `dynamodbav:"SK"`
				}
				if err := attributevalue.UnmarshalMap(item, &record); err != nil {
					continue
				}
				key := rowKey{pk: record.PK, sk: record.SK}
				if seen[key] {
					continue
				}
				seen[key] = true
				deletes = append(deletes, types.WriteRequest{
					DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
						"PK": stringAttr(record.PK),
						"SK": stringAttr(record.SK),
					}},
				})
			}
			if result.LastEvaluatedKey == nil {
				return nil
			}
			input.ExclusiveStartKey = result.LastEvaluatedKey
		}
	}

	if err := collect(&dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringAttr(eventsPK(aggregateID)),
		},
		ProjectionExpression: aws.String("PK, SK"),
	}); err != nil {
		return err
	}

	// Sweep the workspace feed. For non-workspace aggregates this matches
	// nothing and costs one empty query.
	if err := collect(&dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		IndexName:              aws.String(es.indexName),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringAttr("WS#" + aggregateID),
		},
		ProjectionExpression: aws.String("PK, SK"),
	}); err != nil {
		return err
	}

	if len(deletes) == 0 {
		return nil
	}
	if err := es.batchWrite(ctx, deletes); err != nil {
		return err
	}

	es.logger.Info("Events deleted",
		zap.String("aggregateID", aggregateID),
		zap.Int("rowCount", len(deletes)),
	)
	return nil
}

// GetPendingEvents retrieves events that have not been published yet
func (es *EventStore) GetPendingEvents(ctx context.Context, limit int32) ([]*EventRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	input := &dynamodb.ScanInput{
		TableName:        aws.String(es.tableName),
		FilterExpression: aws.String("PublishStatus = :status AND begins_with(PK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": stringAttr(string(PublishStatusPending)),
			":prefix": stringAttr(eventsPrefix),
		},
		Limit: aws.Int32(limit),
	}

	result, err := es.client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending events: %w", err)
	}

	records := make([]*EventRecord, 0, len(result.Items))
	for _, item := range result.Items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			es.logger.Warn("Skipping malformed event row", zap.Error(err))
			continue
		}
		records = append(records, &record)
	}

	return records, nil
}

// MarkEventAsPublished marks an event as successfully published
func (es *EventStore) MarkEventAsPublished(ctx context.Context, eventPK, eventSK string) error {
	_, err := es.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": stringAttr(eventPK),
			"SK": stringAttr(eventSK),
		},
		UpdateExpression: aws.String("SET PublishStatus = :published, PublishedAt = :publishedAt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":published":   stringAttr(string(PublishStatusPublished)),
			":publishedAt": stringAttr(time.Now().UTC().Format(time.RFC3339Nano)),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("failed to mark event as published: %w", err)
	}
	return nil
}

// MarkEventAsFailed records a failed publish attempt. Events stay pending
// until the attempt budget runs out, then park as failed.
func (es *EventStore) MarkEventAsFailed(ctx context.Context, eventPK, eventSK, errorMsg string, attempts int) error {
	status := string(PublishStatusFailed)
	if attempts < maxPublishAttempts {
		status = string(PublishStatusPending)
	}

	_, err := es.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": stringAttr(eventPK),
			"SK": stringAttr(eventSK),
		},
		UpdateExpression: aws.String("SET PublishStatus = :status, PublishAttempts = :attempts, LastPublishTry = :lastTry, ErrorMessage = :error"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":   stringAttr(status),
			":attempts": numberAttr(int64(attempts)),
			":lastTry":  stringAttr(time.Now().UTC().Format(time.RFC3339Nano)),
			":error":    stringAttr(errorMsg),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}
	return nil
}

func (es *EventStore) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	for i := 0; i < len(requests); i += 25 {
		end := i + 25
		if end > len(requests) {
			end = len(requests)
		}

		batch := map[string][]types.WriteRequest{es.tableName: requests[i:end]}
		result, err := es.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: batch})
		if err != nil {
			return fmt.Errorf("failed to write event batch: %w", err)
		}
		if len(result.UnprocessedItems) > 0 {
			retry, err := es.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: result.UnprocessedItems,
			})
			if err != nil {
				return fmt.Errorf("failed to retry event batch: %w", err)
			}
			if len(retry.UnprocessedItems) > 0 {
				return fmt.Errorf("failed to write %d event rows", len(retry.UnprocessedItems[es.tableName]))
			}
		}
	}
	return nil
}

func (es *EventStore) eventToRecord(event events.DomainEvent) (*EventRecord, error) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	eventData := make(map[string]interface{})
	if err := json.Unmarshal(eventBytes, &eventData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event to map: %w", err)
	}

	timestamp := event.GetTimestamp().UTC().Format(time.RFC3339Nano)
	eventID := uuid.New().String()
	aggregateType := strings.SplitN(event.GetEventType(), ".", 2)[0]

	return &EventRecord{
		PK:            eventsPK(event.GetAggregateID()),
		SK:            fmt.Sprintf("EVENT#%s#%s", timestamp, eventID),
		ItemType:      "EVENT",
		EventID:       eventID,
		EventType:     event.GetEventType(),
		AggregateID:   event.GetAggregateID(),
		AggregateType: aggregateType,
		WorkspaceID:   event.GetWorkspaceID(),
		EventData:     eventData,
		Timestamp:     timestamp,
		Version:       event.GetVersion(),

		PublishStatus:   string(PublishStatusPending),
		PublishAttempts: 0,

		GSI1PK: "WS#" + event.GetWorkspaceID(),
		GSI1SK: "EVENT#" + timestamp,
		GSI2PK: eventTypPrefix + event.GetEventType(),
		GSI2SK: "EVENT#" + timestamp,

		TTL: event.GetTimestamp().Add(eventTTL).Unix(),
	}, nil
}

// recordToEvent rebuilds the concrete event type from the stored payload.
// Unknown types come back as a bare BaseEvent so old rows never break reads.
func (es *EventStore) recordToEvent(record EventRecord) (events.DomainEvent, error) {
	payload, err := json.Marshal(record.EventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	decode := func(target interface{}) error {
		if err := json.Unmarshal(payload, target); err != nil {
			return fmt.Errorf("failed to decode %s event: %w", record.EventType, err)
		}
		return nil
	}

	switch record.EventType {
	case events.TypeWorkspaceCreated:
		var e events.WorkspaceCreated
		if err := decode(&e); err != nil {
			return nil, err
		}
		return e, nil
	case events.TypeWorkspaceDeleted:
		var e events.WorkspaceDeleted
		if err := decode(&e); err != nil {
			return nil, err
		}
		return e, nil
	case events.TypeWorkspaceMemberAdded:
		var e events.MemberAdded
		if err := decode(&e); err != nil {
			return nil, err
		}
		return e, nil
	case events.TypeWorkspaceMemberRemoved:
		var e events.MemberRemoved
		if err := decode(&e); err != nil {
			return nil, err
		}
		return e, nil
	case events.TypeWorkspaceMemberRoleChanged:
		var e events.MemberRoleChanged
		if err := decode(&e); err != nil {
			return nil, err
		}
		return e, nil
	case events.TypeSchemaPublished:
		var e events.SchemaPublished
		if err := decode(&e); err != nil {
			return nil, err
		}
		return e, nil
	case events.TypeEntityCreated:
		var e events.EntityCreated
		if err := decode(&e); err != nil {
			return nil, err
		}
		return e, nil
	case events.TypeEntityUpdated:
		var e events.EntityUpdated
		if err := decode(&e); err != nil {
			return nil, err
		}
		return e, nil
	case events.TypeEntityDeleted:
		var e events.EntityDeleted
		if err := decode(&e); err != nil {
			return nil, err
		}
		return e, nil
	case events.TypeEdgeCreated:
		var e events.EdgeCreated
		if err := decode(&e); err != nil {
			return nil, err
		}
		return e, nil
	case events.TypeEdgeDeleted:
		var e events.EdgeDeleted
		if err := decode(&e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		var e events.BaseEvent
		if err := decode(&e); err != nil {
			return nil, err
		}
		return e, nil
	}
}

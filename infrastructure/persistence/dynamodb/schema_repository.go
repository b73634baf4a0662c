package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lattice/application/ports"
	"lattice/domain/core/schema"
	"lattice/domain/core/valueobjects"
	pkgerrors "lattice/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// SchemaRepository implements the SchemaRepository interface using DynamoDB.
// Versions are immutable rows under the workspace partition; the conditional
// put on SaveVersion is what serializes concurrent publishes.
type SchemaRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewSchemaRepository creates a new SchemaRepository
func NewSchemaRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.SchemaRepository {
	return &SchemaRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// schemaItem stores the full definition as a JSON blob plus the summary
// fields ListVersions needs without unmarshaling the blob.
type schemaItem struct {
	PK              string `dynamodbav:"PK"`
	SK              string `dynamodbav:"SK"`
	ItemType        string `dynamodbav:"ItemType"`
	WorkspaceID     string `dynamodbav:"WorkspaceID"`
	Version         int    `dynamodbav:"Version"`
	Name            string `dynamodbav:"Name"`
	Definition      string `dynamodbav:"Definition"`
	PublishedBy     string `dynamodbav:"PublishedBy"`
	PublishedAt     string `dynamodbav:"PublishedAt"`
	EntityTypeCount int    `dynamodbav:"EntityTypeCount"`
	EdgeTypeCount   int    `dynamodbav:"EdgeTypeCount"`
}

// SaveVersion persists a schema version. Writing a version number that
// already exists fails the condition and surfaces as a conflict.
func (r *SchemaRepository) SaveVersion(ctx context.Context, workspaceID valueobjects.WorkspaceID, def *schema.SchemaDefinition) error {
	blob, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal schema definition: %w", err)
	}

	item := schemaItem{
		PK:              workspacePK(workspaceID),
		SK:              schemaSK(def.Version),
		ItemType:        "SCHEMA",
		WorkspaceID:     workspaceID.String(),
		Version:         def.Version,
		Name:            def.Name,
		Definition:      string(blob),
		PublishedBy:     def.PublishedBy,
		PublishedAt:     def.PublishedAt.UTC().Format(time.RFC3339Nano),
		EntityTypeCount: len(def.EntityTypes),
		EdgeTypeCount:   len(def.EdgeTypes),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal schema item: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return pkgerrors.NewDomainError(pkgerrors.DomainConflictError, "SCHEMA_VERSION_CONFLICT",
				"This schema version was already published").
				WithDetail("workspace_id", workspaceID.String()).
				WithDetail("version", def.Version).
				WithRetryable(true)
		}
		return fmt.Errorf("failed to save schema version: %w", err)
	}

	r.logger.Info("Schema version saved",
		zap.String("workspaceID", workspaceID.String()),
		zap.Int("version", def.Version),
		zap.Int("entityTypes", len(def.EntityTypes)),
		zap.Int("edgeTypes", len(def.EdgeTypes)),
	)

	return nil
}

// GetVersion retrieves one schema version
func (r *SchemaRepository) GetVersion(ctx context.Context, workspaceID valueobjects.WorkspaceID, version int) (*schema.SchemaDefinition, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": stringAttr(workspacePK(workspaceID)),
			"SK": stringAttr(schemaSK(version)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "SCHEMA_VERSION_NOT_FOUND",
			"The requested schema version does not exist").
			WithDetail("workspace_id", workspaceID.String()).
			WithDetail("version", version)
	}

	var item schemaItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema item: %w", err)
	}

	var def schema.SchemaDefinition
	if err := json.Unmarshal([]byte(item.Definition), &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema definition: %w", err)
	}
	return &def, nil
}

// ListVersions returns summaries of all published versions, newest first
func (r *SchemaRepository) ListVersions(ctx context.Context, workspaceID valueobjects.WorkspaceID) ([]ports.SchemaVersionSummary, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringAttr(workspacePK(workspaceID)),
			":sk": stringAttr(schemaPrefix),
		},
		ScanIndexForward: aws.Bool(false), // Newest version first
	}

	var summaries []ports.SchemaVersionSummary
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query schema versions: %w", err)
		}
		for _, raw := range result.Items {
			var item schemaItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal schema row", zap.Error(err))
				continue
			}
			summaries = append(summaries, ports.SchemaVersionSummary{
				Version:         item.Version,
				Name:            item.Name,
				PublishedBy:     item.PublishedBy,
				PublishedAt:     item.PublishedAt,
				EntityTypeCount: item.EntityTypeCount,
				EdgeTypeCount:   item.EdgeTypeCount,
			})
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return summaries, nil
}

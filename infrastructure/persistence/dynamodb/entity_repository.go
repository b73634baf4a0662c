package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"lattice/application/ports"
	"lattice/domain/core/entities"
	"lattice/domain/core/policies"
	"lattice/domain/core/valueobjects"
	pkgerrors "lattice/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// EntityRepository implements the EntityRepository interface using DynamoDB
type EntityRepository struct {
	client        *dynamodb.Client
	tableName     string
	indexName     string // GSI1 - outbound edge adjacency (cascade delete)
	gsi2IndexName string // GSI2 - inbound edge adjacency and type listings
	logger        *zap.Logger
}

// NewEntityRepository creates a new EntityRepository
func NewEntityRepository(client *dynamodb.Client, tableName, indexName, gsi2IndexName string, logger *zap.Logger) ports.EntityRepository {
	return &EntityRepository{
		client:        client,
		tableName:     tableName,
		indexName:     indexName,
		gsi2IndexName: gsi2IndexName,
		logger:        logger,
	}
}

// entityItem is the DynamoDB shape of one entity. Properties are stored as a
// JSON blob so values come back exactly as validation saw them.
type entityItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	GSI2PK        string `dynamodbav:"GSI2PK"`
	GSI2SK        string `dynamodbav:"GSI2SK"`
	ItemType      string `dynamodbav:"ItemType"`
	EntityID      string `dynamodbav:"EntityID"`
	WorkspaceID   string `dynamodbav:"WorkspaceID"`
	EntityType    string `dynamodbav:"EntityType"`
	Name          string `dynamodbav:"Name"`
	Properties    string `dynamodbav:"Properties"`
	SchemaVersion int    `dynamodbav:"SchemaVersion"`
	CreatedBy     string `dynamodbav:"CreatedBy"`
	CreatedAt     string `dynamodbav:"CreatedAt"`
	UpdatedAt     string `dynamodbav:"UpdatedAt"`
	Version       int    `dynamodbav:"Version"`
}

// Save persists an entity. Inserts require the row to be absent; updates are
// conditional on the stored version.
func (r *EntityRepository) Save(ctx context.Context, entity *entities.Entity) error {
	item, err := r.toItem(entity)
	if err != nil {
		return err
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}
	if entity.Version() <= 1 {
		input.ConditionExpression = aws.String("attribute_not_exists(PK)")
	} else {
		input.ConditionExpression = aws.String("Version < :version")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":version": numberAttr(int64(entity.Version())),
		}
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		if isConditionalCheckFailed(err) {
			return concurrentModification(err)
		}
		r.logger.Error("Failed to save entity",
			zap.Error(err),
			zap.String("entityID", entity.ID().String()),
			zap.String("workspaceID", entity.WorkspaceID().String()),
		)
		return fmt.Errorf("failed to save entity: %w", err)
	}

	r.logger.Debug("Entity saved",
		zap.String("entityID", entity.ID().String()),
		zap.String("entityType", entity.EntityType()),
		zap.Int("version", entity.Version()),
	)

	return nil
}

// GetByID retrieves an entity within a workspace
func (r *EntityRepository) GetByID(ctx context.Context, workspaceID valueobjects.WorkspaceID, id valueobjects.EntityID) (*entities.Entity, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": stringAttr(workspacePK(workspaceID)),
			"SK": stringAttr(entitySK(id)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	if result.Item == nil {
		return nil, entityNotFoundError(id)
	}

	var item entityItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return entityItemToEntity(&item)
}

// List retrieves entities matching the criteria, ordered by creation time.
// The second return is the total count before paging.
func (r *EntityRepository) List(ctx context.Context, workspaceID valueobjects.WorkspaceID, criteria ports.EntityListCriteria) ([]*entities.Entity, int, error) {
	var keyEx expression.KeyConditionBuilder
	var indexName *string
	if criteria.EntityType != "" {
		keyEx = expression.Key("GSI2PK").Equal(expression.Value(entityTypeKey(workspaceID, criteria.EntityType)))
		indexName = aws.String(r.gsi2IndexName)
	} else {
		keyEx = expression.Key("PK").Equal(expression.Value(workspacePK(workspaceID)))
		keyEx = keyEx.And(expression.Key("SK").BeginsWith(entityPrefix))
	}

	expr, err := expression.NewBuilder().
		WithKeyCondition(keyEx).
		Build()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 indexName,
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var all []*entities.Entity
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to query entities: %w", err)
		}
		for _, raw := range result.Items {
			var item entityItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal entity row", zap.Error(err))
				continue
			}
			entity, err := entityItemToEntity(&item)
			if err != nil {
				r.logger.Warn("Failed to reconstruct entity",
					zap.String("entityID", item.EntityID),
					zap.Error(err),
				)
				continue
			}
			all = append(all, entity)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt().Equal(all[j].CreatedAt()) {
			return all[i].CreatedAt().Before(all[j].CreatedAt())
		}
		return all[i].ID().String() < all[j].ID().String()
	})

	total := len(all)
	page := pageEntities(all, criteria.Limit, criteria.Offset)
	return page, total, nil
}

// Delete removes an entity together with every edge touching it, returning
// the number of edges removed. Small cascades run in a single transaction;
// larger ones delete edges first so a retry after a partial failure
// converges without orphaning anything.
func (r *EntityRepository) Delete(ctx context.Context, workspaceID valueobjects.WorkspaceID, id valueobjects.EntityID) (int, error) {
	if _, err := r.GetByID(ctx, workspaceID, id); err != nil {
		return 0, err
	}

	incident, err := adjacentEdges(ctx, r.client, r.tableName, r.indexName, r.gsi2IndexName, workspaceID, id, policies.DirectionBoth)
	if err != nil {
		return 0, err
	}

	entityKey := map[string]types.AttributeValue{
		"PK": stringAttr(workspacePK(workspaceID)),
		"SK": stringAttr(entitySK(id)),
	}

	if len(incident)+1 <= 100 {
		transactItems := make([]types.TransactWriteItem, 0, len(incident)+1)
		transactItems = append(transactItems, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName:           aws.String(r.tableName),
				Key:                 entityKey,
				ConditionExpression: aws.String("attribute_exists(PK)"),
			},
		})
		for _, edge := range incident {
			transactItems = append(transactItems, types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: aws.String(r.tableName),
					Key: map[string]types.AttributeValue{
						"PK": stringAttr(workspacePK(workspaceID)),
						"SK": stringAttr(edgeSK(edge.ID())),
					},
				},
			})
		}

		if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: transactItems,
		}); err != nil {
			if isConditionalCheckFailed(err) {
				return 0, entityNotFoundError(id)
			}
			return 0, fmt.Errorf("failed to delete entity: %w", err)
		}
	} else {
		// Cascade exceeds the transaction limit: remove edges in batches,
		// then the entity itself
		deletes := make([]types.WriteRequest, 0, len(incident))
		for _, edge := range incident {
			deletes = append(deletes, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
					"PK": stringAttr(workspacePK(workspaceID)),
					"SK": stringAttr(edgeSK(edge.ID())),
				}},
			})
		}
		for i := 0; i < len(deletes); i += 25 {
			end := i + 25
			if end > len(deletes) {
				end = len(deletes)
			}
			if _, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{r.tableName: deletes[i:end]},
			}); err != nil {
				return 0, fmt.Errorf("failed to delete incident edges: %w", err)
			}
		}

		if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:           aws.String(r.tableName),
			Key:                 entityKey,
			ConditionExpression: aws.String("attribute_exists(PK)"),
		}); err != nil {
			if isConditionalCheckFailed(err) {
				return 0, entityNotFoundError(id)
			}
			return 0, fmt.Errorf("failed to delete entity: %w", err)
		}
	}

	r.logger.Info("Entity deleted",
		zap.String("entityID", id.String()),
		zap.String("workspaceID", workspaceID.String()),
		zap.Int("removedEdges", len(incident)),
	)

	return len(incident), nil
}

func (r *EntityRepository) toItem(entity *entities.Entity) (*entityItem, error) {
	props, err := json.Marshal(entity.Properties())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity properties: %w", err)
	}

	createdAt := entity.CreatedAt().UTC().Format(time.RFC3339Nano)
	return &entityItem{
		PK:            workspacePK(entity.WorkspaceID()),
		SK:            entitySK(entity.ID()),
		GSI2PK:        entityTypeKey(entity.WorkspaceID(), entity.EntityType()),
		GSI2SK:        fmt.Sprintf("%s%s#%s", entityPrefix, createdAt, entity.ID().String()),
		ItemType:      "ENTITY",
		EntityID:      entity.ID().String(),
		WorkspaceID:   entity.WorkspaceID().String(),
		EntityType:    entity.EntityType(),
		Name:          entity.Name(),
		Properties:    string(props),
		SchemaVersion: entity.SchemaVersion(),
		CreatedBy:     entity.CreatedBy(),
		CreatedAt:     createdAt,
		UpdatedAt:     entity.UpdatedAt().UTC().Format(time.RFC3339Nano),
		Version:       entity.Version(),
	}, nil
}

func entityItemToEntity(item *entityItem) (*entities.Entity, error) {
	id, err := valueobjects.NewEntityIDFromString(item.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entity ID: %w", err)
	}
	workspaceID, err := valueobjects.NewWorkspaceIDFromString(item.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workspace ID: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entity timestamps: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entity timestamps: %w", err)
	}

	var bag valueobjects.PropertyBag
	if item.Properties != "" {
		if err := json.Unmarshal([]byte(item.Properties), &bag); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entity properties: %w", err)
		}
	} else {
		bag = valueobjects.EmptyPropertyBag()
	}

	return entities.ReconstructEntity(
		id,
		workspaceID,
		item.EntityType,
		item.Name,
		bag,
		item.SchemaVersion,
		item.CreatedBy,
		createdAt,
		updatedAt,
		item.Version,
	), nil
}

func pageEntities(all []*entities.Entity, limit, offset int) []*entities.Entity {
	if offset >= len(all) {
		return []*entities.Entity{}
	}
	page := all[offset:]
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	return page
}

func entityNotFoundError(id valueobjects.EntityID) error {
	return pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "ENTITY_NOT_FOUND",
		"The requested entity does not exist").
		WithDetail("entity_id", id.String())
}

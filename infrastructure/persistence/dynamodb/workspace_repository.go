package dynamodb

import (
	"context"
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
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// WorkspaceRepository implements the WorkspaceRepository interface using DynamoDB
type WorkspaceRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string // GSI1 - membership lookups by user
	logger    *zap.Logger
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(client *dynamodb.Client, tableName, indexName string, logger *zap.Logger) ports.WorkspaceRepository {
	return &WorkspaceRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

// workspaceItem is the DynamoDB shape of the workspace metadata row. The
// membership list is denormalized here so a single read rebuilds the
// aggregate; the MEMBER# rows exist only to serve the GSI1 user lookup.
type workspaceItem struct {
	PK                  string         `dynamodbav:"PK"`
	SK                  string         `dynamodbav:"SK"`
	ItemType            string         `dynamodbav:"ItemType"`
	WorkspaceID         string         `dynamodbav:"WorkspaceID"`
	Name                string         `dynamodbav:"Name"`
	OwnerID             string         `dynamodbav:"OwnerID"`
	Members             []memberRecord `dynamodbav:"Members"`
	ActiveSchemaVersion int            `dynamodbav:"ActiveSchemaVersion"`
	CreatedAt           string         `dynamodbav:"CreatedAt"`
	UpdatedAt           string         `dynamodbav:"UpdatedAt"`
	Version             int            `dynamodbav:"Version"`
}

type memberRecord struct {
	UserID  string `dynamodbav:"UserID"`
	Role    string `dynamodbav:"Role"`
	AddedBy string `dynamodbav:"AddedBy"`
	AddedAt string `dynamodbav:"AddedAt"`
}

// memberIndexItem is one MEMBER# row, present purely for GSI1
type memberIndexItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	GSI1PK      string `dynamodbav:"GSI1PK"`
	GSI1SK      string `dynamodbav:"GSI1SK"`
	ItemType    string `dynamodbav:"ItemType"`
	WorkspaceID string `dynamodbav:"WorkspaceID"`
	UserID      string `dynamodbav:"UserID"`
	Role        string `dynamodbav:"Role"`
}

// statsItem holds the denormalized entity and edge counters. It lives on a
// separate row so counter adjustments never race the aggregate write.
type statsItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	ItemType    string `dynamodbav:"ItemType"`
	EntityCount int64  `dynamodbav:"EntityCount"`
	EdgeCount   int64  `dynamodbav:"EdgeCount"`
}

// Save persists a workspace. The write is conditional on the stored version,
// so two writers racing from the same base conflict instead of losing an
// update. Membership index rows are kept in step inside the same transaction.
func (r *WorkspaceRepository) Save(ctx context.Context, workspace *entities.Workspace) error {
	stored, err := r.getItem(ctx, workspace.ID())
	if err != nil {
		return err
	}

	item := r.toItem(workspace)
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace: %w", err)
	}

	put := &types.Put{
		TableName: aws.String(r.tableName),
		Item:      av,
	}

	transactItems := make([]types.TransactWriteItem, 0, 2+workspace.MemberCount())

	if stored == nil {
		put.ConditionExpression = aws.String("attribute_not_exists(PK)")

		// Seed the counters alongside the first write
		statsAV, err := attributevalue.MarshalMap(statsItem{
			PK:       workspacePK(workspace.ID()),
			SK:       skStats,
			ItemType: "STATS",
		})
		if err != nil {
			return fmt.Errorf("failed to marshal workspace stats: %w", err)
		}
		transactItems = append(transactItems, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(r.tableName), Item: statsAV},
		})
	} else {
		put.ConditionExpression = aws.String("Version = :version")
		put.ExpressionAttributeValues = map[string]types.AttributeValue{
			":version": numberAttr(int64(stored.Version)),
		}
	}
	transactItems = append(transactItems, types.TransactWriteItem{Put: put})

	memberItems, err := r.memberWrites(workspace, stored)
	if err != nil {
		return err
	}
	transactItems = append(transactItems, memberItems...)

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: transactItems,
	}); err != nil {
		if isConditionalCheckFailed(err) {
			return concurrentModification(err)
		}
		r.logger.Error("Failed to save workspace",
			zap.Error(err),
			zap.String("workspaceID", workspace.ID().String()),
		)
		return fmt.Errorf("failed to save workspace: %w", err)
	}

	r.logger.Debug("Workspace saved",
		zap.String("workspaceID", workspace.ID().String()),
		zap.Int("memberCount", workspace.MemberCount()),
		zap.Int("version", workspace.Version()),
	)

	return nil
}

// GetByID retrieves a workspace by its ID
func (r *WorkspaceRepository) GetByID(ctx context.Context, id valueobjects.WorkspaceID) (*entities.Workspace, error) {
	item, err := r.getItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "WORKSPACE_NOT_FOUND",
			"The requested workspace does not exist").
			WithDetail("workspace_id", id.String())
	}
	return r.toWorkspace(item)
}

// ListByUser retrieves all workspaces the user is a member of, ordered by
// creation time
func (r *WorkspaceRepository) ListByUser(ctx context.Context, userID string) ([]*entities.Workspace, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.indexName),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringAttr(userGSIKey(userID)),
			":sk": stringAttr("WS#"),
		},
	}

	var workspaceIDs []valueobjects.WorkspaceID
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query memberships: %w", err)
		}
		for _, raw := range result.Items {
			var row memberIndexItem
			if err := attributevalue.UnmarshalMap(raw, &row); err != nil {
				r.logger.Warn("Failed to unmarshal membership row", zap.Error(err))
				continue
			}
			id, err := valueobjects.NewWorkspaceIDFromString(row.WorkspaceID)
			if err != nil {
				continue
			}
			workspaceIDs = append(workspaceIDs, id)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	workspaces := make([]*entities.Workspace, 0, len(workspaceIDs))
	for _, id := range workspaceIDs {
		item, err := r.getItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if item == nil {
			// Membership row outlived the workspace; skip the tombstone
			continue
		}
		workspace, err := r.toWorkspace(item)
		if err != nil {
			r.logger.Warn("Failed to reconstruct workspace",
				zap.String("workspaceID", id.String()),
				zap.Error(err),
			)
			continue
		}
		workspaces = append(workspaces, workspace)
	}

	sortWorkspacesByCreation(workspaces)
	return workspaces, nil
}

// Delete removes the workspace together with every row in its partition:
// metadata, stats, memberships, schema versions, entities and edges.
func (r *WorkspaceRepository) Delete(ctx context.Context, id valueobjects.WorkspaceID) error {
	item, err := r.getItem(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "WORKSPACE_NOT_FOUND",
			"The requested workspace does not exist").
			WithDetail("workspace_id", id.String())
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringAttr(workspacePK(id)),
		},
		ProjectionExpression: aws.String("PK, SK"),
	}

	var deletes []types.WriteRequest
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to query workspace rows: %w", err)
		}
		for _, raw := range result.Items {
			deletes = append(deletes, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
					"PK": raw["PK"],
					"SK": raw["SK"],
				}},
			})
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	// Batch delete (DynamoDB limit is 25 items per batch)
	for i := 0; i < len(deletes); i += 25 {
		end := i + 25
		if end > len(deletes) {
			end = len(deletes)
		}
		batch := deletes[i:end]
		result, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{r.tableName: batch},
		})
		if err != nil {
			return fmt.Errorf("failed to delete workspace rows: %w", err)
		}
		// Retry unprocessed deletes once before giving up
		if pending := result.UnprocessedItems[r.tableName]; len(pending) > 0 {
			retry, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{r.tableName: pending},
			})
			if err != nil {
				return fmt.Errorf("failed to delete workspace rows: %w", err)
			}
			if len(retry.UnprocessedItems[r.tableName]) > 0 {
				return fmt.Errorf("failed to delete %d workspace rows", len(retry.UnprocessedItems[r.tableName]))
			}
		}
	}

	r.logger.Info("Workspace deleted",
		zap.String("workspaceID", id.String()),
		zap.Int("rowCount", len(deletes)),
	)

	return nil
}

// GetStats returns the maintained entity and edge counters
func (r *WorkspaceRepository) GetStats(ctx context.Context, id valueobjects.WorkspaceID) (*ports.WorkspaceStats, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": stringAttr(workspacePK(id)),
			"SK": stringAttr(skStats),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace stats: %w", err)
	}
	if result.Item == nil {
		return &ports.WorkspaceStats{}, nil
	}

	var item statsItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workspace stats: %w", err)
	}
	return &ports.WorkspaceStats{EntityCount: item.EntityCount, EdgeCount: item.EdgeCount}, nil
}

// AdjustCounts applies deltas to the stats row. The ADD update is atomic, so
// concurrent adjustments from the event consumer never clobber each other.
func (r *WorkspaceRepository) AdjustCounts(ctx context.Context, id valueobjects.WorkspaceID, entityDelta, edgeDelta int64) error {
	if entityDelta == 0 && edgeDelta == 0 {
		return nil
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": stringAttr(workspacePK(id)),
			"SK": stringAttr(skStats),
		},
		UpdateExpression: aws.String("ADD EntityCount :entityDelta, EdgeCount :edgeDelta"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":entityDelta": numberAttr(entityDelta),
			":edgeDelta":   numberAttr(edgeDelta),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to adjust workspace counts: %w", err)
	}

	r.logger.Debug("Workspace counts adjusted",
		zap.String("workspaceID", id.String()),
		zap.Int64("entityDelta", entityDelta),
		zap.Int64("edgeDelta", edgeDelta),
	)

	return nil
}

func (r *WorkspaceRepository) getItem(ctx context.Context, id valueobjects.WorkspaceID) (*workspaceItem, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": stringAttr(workspacePK(id)),
			"SK": stringAttr(skMetadata),
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item workspaceItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workspace: %w", err)
	}
	return &item, nil
}

func (r *WorkspaceRepository) toItem(workspace *entities.Workspace) workspaceItem {
	members := workspace.Members()
	records := make([]memberRecord, 0, len(members))
	for _, m := range members {
		records = append(records, memberRecord{
			UserID:  m.UserID,
			Role:    string(m.Role),
			AddedBy: m.AddedBy,
			AddedAt: m.AddedAt.Format(time.RFC3339Nano),
		})
	}

	return workspaceItem{
		PK:                  workspacePK(workspace.ID()),
		SK:                  skMetadata,
		ItemType:            "WORKSPACE",
		WorkspaceID:         workspace.ID().String(),
		Name:                workspace.Name(),
		OwnerID:             workspace.OwnerID(),
		Members:             records,
		ActiveSchemaVersion: workspace.ActiveSchemaVersion(),
		CreatedAt:           workspace.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:           workspace.UpdatedAt().Format(time.RFC3339Nano),
		Version:             workspace.Version(),
	}
}

func (r *WorkspaceRepository) toWorkspace(item *workspaceItem) (*entities.Workspace, error) {
	id, err := valueobjects.NewWorkspaceIDFromString(item.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workspace ID: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workspace timestamps: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workspace timestamps: %w", err)
	}

	members := make([]entities.Member, 0, len(item.Members))
	for _, record := range item.Members {
		addedAt, err := time.Parse(time.RFC3339Nano, record.AddedAt)
		if err != nil {
			addedAt = createdAt
		}
		members = append(members, entities.Member{
			UserID:  record.UserID,
			Role:    policies.Role(record.Role),
			AddedBy: record.AddedBy,
			AddedAt: addedAt,
		})
	}

	return entities.ReconstructWorkspace(
		id,
		item.Name,
		item.OwnerID,
		members,
		item.ActiveSchemaVersion,
		createdAt,
		updatedAt,
		item.Version,
	), nil
}

// memberWrites returns the puts and deletes that bring the MEMBER# index
// rows in line with the aggregate's membership list.
func (r *WorkspaceRepository) memberWrites(workspace *entities.Workspace, stored *workspaceItem) ([]types.TransactWriteItem, error) {
	current := workspace.Members()
	currentSet := make(map[string]bool, len(current))

	var writes []types.TransactWriteItem
	for _, m := range current {
		currentSet[m.UserID] = true
		av, err := attributevalue.MarshalMap(memberIndexItem{
			PK:          workspacePK(workspace.ID()),
			SK:          memberSK(m.UserID),
			GSI1PK:      userGSIKey(m.UserID),
			GSI1SK:      workspacePK(workspace.ID()),
			ItemType:    "MEMBER",
			WorkspaceID: workspace.ID().String(),
			UserID:      m.UserID,
			Role:        string(m.Role),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal member row: %w", err)
		}
		writes = append(writes, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(r.tableName), Item: av},
		})
	}

	if stored != nil {
		for _, record := range stored.Members {
			if currentSet[record.UserID] {
				continue
			}
			writes = append(writes, types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: aws.String(r.tableName),
					Key: map[string]types.AttributeValue{
						"PK": stringAttr(workspacePK(workspace.ID())),
						"SK": stringAttr(memberSK(record.UserID)),
					},
				},
			})
		}
	}

	return writes, nil
}

func sortWorkspacesByCreation(workspaces []*entities.Workspace) {
	sort.Slice(workspaces, func(i, j int) bool {
		if !workspaces[i].CreatedAt().Equal(workspaces[j].CreatedAt()) {
			return workspaces[i].CreatedAt().Before(workspaces[j].CreatedAt())
		}
		return workspaces[i].ID().String() < workspaces[j].ID().String()
	})
}

package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
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

// EdgeRepository implements the EdgeRepository interface using DynamoDB
type EdgeRepository struct {
	client        *dynamodb.Client
	tableName     string
	indexName     string // GSI1 - outbound adjacency, keyed by source entity
	gsi2IndexName string // GSI2 - inbound adjacency, keyed by target entity
	logger        *zap.Logger
}

// NewEdgeRepository creates a new EdgeRepository
func NewEdgeRepository(client *dynamodb.Client, tableName, indexName, gsi2IndexName string, logger *zap.Logger) ports.EdgeRepository {
	return &EdgeRepository{
		client:        client,
		tableName:     tableName,
		indexName:     indexName,
		gsi2IndexName: gsi2IndexName,
		logger:        logger,
	}
}

// edgeItem is the DynamoDB shape of one edge. The GSI keys mirror the edge
// onto both endpoints so either direction can be queried without a scan.
type edgeItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	GSI1PK      string `dynamodbav:"GSI1PK"`
	GSI1SK      string `dynamodbav:"GSI1SK"`
	GSI2PK      string `dynamodbav:"GSI2PK"`
	GSI2SK      string `dynamodbav:"GSI2SK"`
	ItemType    string `dynamodbav:"ItemType"`
	EdgeID      string `dynamodbav:"EdgeID"`
	WorkspaceID string `dynamodbav:"WorkspaceID"`
	EdgeType    string `dynamodbav:"EdgeType"`
	SourceID    string `dynamodbav:"SourceID"`
	TargetID    string `dynamodbav:"TargetID"`
	Properties  string `dynamodbav:"Properties"`
	CreatedBy   string `dynamodbav:"CreatedBy"`
	CreatedAt   string `dynamodbav:"CreatedAt"`
}

// Save persists a new edge. The write transacts with existence checks on
// both endpoints so an edge can never outlive a concurrent entity delete.
func (r *EdgeRepository) Save(ctx context.Context, edge *entities.Edge) error {
	item, err := edgeToItem(edge)
	if err != nil {
		return err
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal edge: %w", err)
	}

	workspacePartition := workspacePK(edge.WorkspaceID())
	transactItems := []types.TransactWriteItem{
		{
			ConditionCheck: &types.ConditionCheck{
				TableName: aws.String(r.tableName),
				Key: map[string]types.AttributeValue{
					"PK": stringAttr(workspacePartition),
					"SK": stringAttr(entitySK(edge.SourceID())),
				},
				ConditionExpression: aws.String("attribute_exists(PK)"),
			},
		},
	}
	failures := []error{entityNotFoundError(edge.SourceID())}

	// A self-loop would put two operations on the same item, which DynamoDB
	// rejects; one existence check covers both ends then.
	if !edge.SourceID().Equals(edge.TargetID()) {
		transactItems = append(transactItems, types.TransactWriteItem{
			ConditionCheck: &types.ConditionCheck{
				TableName: aws.String(r.tableName),
				Key: map[string]types.AttributeValue{
					"PK": stringAttr(workspacePartition),
					"SK": stringAttr(entitySK(edge.TargetID())),
				},
				ConditionExpression: aws.String("attribute_exists(PK)"),
			},
		})
		failures = append(failures, entityNotFoundError(edge.TargetID()))
	}

	transactItems = append(transactItems, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                av,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		},
	})
	failures = append(failures, pkgerrors.NewDomainError(pkgerrors.DomainConflictError, "EDGE_ALREADY_EXISTS",
		"An edge with this ID already exists").
		WithDetail("edge_id", edge.ID().String()))

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: transactItems,
	}); err != nil {
		if failure := transactFailure(err, failures); failure != nil {
			return failure
		}
		r.logger.Error("Failed to save edge",
			zap.Error(err),
			zap.String("edgeID", edge.ID().String()),
			zap.String("workspaceID", edge.WorkspaceID().String()),
		)
		return fmt.Errorf("failed to save edge: %w", err)
	}

	r.logger.Debug("Edge saved",
		zap.String("edgeID", edge.ID().String()),
		zap.String("edgeType", edge.EdgeType()),
		zap.String("sourceID", edge.SourceID().String()),
		zap.String("targetID", edge.TargetID().String()),
	)

	return nil
}

// GetByID retrieves an edge within a workspace
func (r *EdgeRepository) GetByID(ctx context.Context, workspaceID valueobjects.WorkspaceID, id valueobjects.EdgeID) (*entities.Edge, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": stringAttr(workspacePK(workspaceID)),
			"SK": stringAttr(edgeSK(id)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get edge: %w", err)
	}
	if result.Item == nil {
		return nil, edgeNotFoundError(id)
	}

	var item edgeItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edge: %w", err)
	}
	return edgeItemToEdge(&item)
}

// List retrieves edges matching the criteria, ordered by creation time.
// The second return is the total count before paging.
func (r *EdgeRepository) List(ctx context.Context, workspaceID valueobjects.WorkspaceID, criteria ports.EdgeListCriteria) ([]*entities.Edge, int, error) {
	var all []*entities.Edge
	var err error

	if criteria.EntityID != nil {
		all, err = adjacentEdges(ctx, r.client, r.tableName, r.indexName, r.gsi2IndexName,
			workspaceID, *criteria.EntityID, policies.DirectionBoth)
		if err != nil {
			return nil, 0, err
		}
	} else {
		input := &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": stringAttr(workspacePK(workspaceID)),
				":sk": stringAttr(edgePrefix),
			},
		}
		for {
			result, err := r.client.Query(ctx, input)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to query edges: %w", err)
			}
			edges, err := unmarshalEdges(result.Items, r.logger)
			if err != nil {
				return nil, 0, err
			}
			all = append(all, edges...)
			if result.LastEvaluatedKey == nil {
				break
			}
			input.ExclusiveStartKey = result.LastEvaluatedKey
		}
		sortEdgesByCreation(all)
	}

	total := len(all)
	page := pageEdges(all, criteria.Limit, criteria.Offset)
	return page, total, nil
}

// Delete removes an edge
func (r *EdgeRepository) Delete(ctx context.Context, workspaceID valueobjects.WorkspaceID, id valueobjects.EdgeID) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": stringAttr(workspacePK(workspaceID)),
			"SK": stringAttr(edgeSK(id)),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return edgeNotFoundError(id)
		}
		return fmt.Errorf("failed to delete edge: %w", err)
	}

	r.logger.Debug("Edge deleted",
		zap.String("edgeID", id.String()),
		zap.String("workspaceID", workspaceID.String()),
	)

	return nil
}

// ExistsDuplicate reports whether an edge with the same source, target and
// type already exists. The source adjacency index bounds the scan to one
// entity's outbound edges.
func (r *EdgeRepository) ExistsDuplicate(ctx context.Context, workspaceID valueobjects.WorkspaceID, sourceID, targetID valueobjects.EntityID, edgeType string) (bool, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.indexName),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :sk)"),
		FilterExpression:       aws.String("TargetID = :target AND EdgeType = :edgeType"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":       stringAttr(entityAdjacencyKey(workspaceID, sourceID)),
			":sk":       stringAttr(edgeOutPrefix),
			":target":   stringAttr(targetID.String()),
			":edgeType": stringAttr(edgeType),
		},
		Select: types.SelectCount,
	}

	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return false, fmt.Errorf("failed to check for duplicate edge: %w", err)
		}
		if result.Count > 0 {
			return true, nil
		}
		if result.LastEvaluatedKey == nil {
			return false, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

// adjacentEdges loads the edges touching an entity by querying the adjacency
// indexes. DirectionBoth unions both queries, deduplicating self-loops which
// appear on each side once.
func adjacentEdges(ctx context.Context, client *dynamodb.Client, tableName, indexName, gsi2IndexName string,
	workspaceID valueobjects.WorkspaceID, entityID valueobjects.EntityID, direction policies.Direction) ([]*entities.Edge, error) {

	type adjacencyQuery struct {
		index    string
		keyAttr  string
		skPrefix string
	}

	var queries []adjacencyQuery
	if direction == policies.DirectionOut || direction == policies.DirectionBoth {
		queries = append(queries, adjacencyQuery{index: indexName, keyAttr: "GSI1", skPrefix: edgeOutPrefix})
	}
	if direction == policies.DirectionIn || direction == policies.DirectionBoth {
		queries = append(queries, adjacencyQuery{index: gsi2IndexName, keyAttr: "GSI2", skPrefix: edgeInPrefix})
	}

	seen := make(map[string]bool)
	var edges []*entities.Edge
	for _, q := range queries {
		input := &dynamodb.QueryInput{
			TableName:              aws.String(tableName),
			IndexName:              aws.String(q.index),
			KeyConditionExpression: aws.String(fmt.Sprintf("%sPK = :pk AND begins_with(%sSK, :sk)", q.keyAttr, q.keyAttr)),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": stringAttr(entityAdjacencyKey(workspaceID, entityID)),
				":sk": stringAttr(q.skPrefix),
			},
		}
		for {
			result, err := client.Query(ctx, input)
			if err != nil {
				return nil, fmt.Errorf("failed to query adjacency: %w", err)
			}
			for _, raw := range result.Items {
				var item edgeItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					return nil, fmt.Errorf("failed to unmarshal edge: %w", err)
				}
				if seen[item.EdgeID] {
					continue
				}
				seen[item.EdgeID] = true
				edge, err := edgeItemToEdge(&item)
				if err != nil {
					return nil, err
				}
				edges = append(edges, edge)
			}
			if result.LastEvaluatedKey == nil {
				break
			}
			input.ExclusiveStartKey = result.LastEvaluatedKey
		}
	}

	sortEdgesByCreation(edges)
	return edges, nil
}

func edgeToItem(edge *entities.Edge) (*edgeItem, error) {
	props, err := json.Marshal(edge.Properties())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal edge properties: %w", err)
	}

	createdAtNano := edge.CreatedAt().UTC().Format(time.RFC3339Nano)
	return &edgeItem{
		PK:          workspacePK(edge.WorkspaceID()),
		SK:          edgeSK(edge.ID()),
		GSI1PK:      entityAdjacencyKey(edge.WorkspaceID(), edge.SourceID()),
		GSI1SK:      fmt.Sprintf("%s%s#%s", edgeOutPrefix, createdAtNano, edge.ID().String()),
		GSI2PK:      entityAdjacencyKey(edge.WorkspaceID(), edge.TargetID()),
		GSI2SK:      fmt.Sprintf("%s%s#%s", edgeInPrefix, createdAtNano, edge.ID().String()),
		ItemType:    "EDGE",
		EdgeID:      edge.ID().String(),
		WorkspaceID: edge.WorkspaceID().String(),
		EdgeType:    edge.EdgeType(),
		SourceID:    edge.SourceID().String(),
		TargetID:    edge.TargetID().String(),
		Properties:  string(props),
		CreatedBy:   edge.CreatedBy(),
		CreatedAt:   createdAtNano,
	}, nil
}

func edgeItemToEdge(item *edgeItem) (*entities.Edge, error) {
	id, err := valueobjects.NewEdgeIDFromString(item.EdgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse edge ID: %w", err)
	}
	workspaceID, err := valueobjects.NewWorkspaceIDFromString(item.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workspace ID: %w", err)
	}
	sourceID, err := valueobjects.NewEntityIDFromString(item.SourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse edge endpoints: %w", err)
	}
	targetID, err := valueobjects.NewEntityIDFromString(item.TargetID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse edge endpoints: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse edge timestamp: %w", err)
	}

	var bag valueobjects.PropertyBag
	if item.Properties != "" {
		if err := json.Unmarshal([]byte(item.Properties), &bag); err != nil {
			return nil, fmt.Errorf("failed to unmarshal edge properties: %w", err)
		}
	} else {
		bag = valueobjects.EmptyPropertyBag()
	}

	return entities.ReconstructEdge(id, workspaceID, item.EdgeType, sourceID, targetID, bag, item.CreatedBy, createdAt), nil
}

func unmarshalEdges(items []map[string]types.AttributeValue, logger *zap.Logger) ([]*entities.Edge, error) {
	edges := make([]*entities.Edge, 0, len(items))
	for _, raw := range items {
		var item edgeItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			logger.Warn("Failed to unmarshal edge row", zap.Error(err))
			continue
		}
		edge, err := edgeItemToEdge(&item)
		if err != nil {
			logger.Warn("Failed to reconstruct edge", zap.String("edgeID", item.EdgeID), zap.Error(err))
			continue
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

func sortEdgesByCreation(edges []*entities.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if !edges[i].CreatedAt().Equal(edges[j].CreatedAt()) {
			return edges[i].CreatedAt().Before(edges[j].CreatedAt())
		}
		return edges[i].ID().String() < edges[j].ID().String()
	})
}

func pageEdges(all []*entities.Edge, limit, offset int) []*entities.Edge {
	if offset >= len(all) {
		return []*entities.Edge{}
	}
	page := all[offset:]
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	return page
}

// transactFailure maps a cancelled transaction back to the domain error for
// whichever condition failed. The failures slice is parallel to the
// transaction's items.
func transactFailure(err error, failures []error) error {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return nil
	}
	for i, reason := range tce.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" && i < len(failures) {
			return failures[i]
		}
	}
	return nil
}

func edgeNotFoundError(id valueobjects.EdgeID) error {
	return pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "EDGE_NOT_FOUND",
		"The requested edge does not exist").
		WithDetail("edge_id", id.String())
}

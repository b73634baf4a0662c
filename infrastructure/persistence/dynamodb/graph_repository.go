package dynamodb

import (
	"context"
	"fmt"

	"lattice/application/ports"
	"lattice/domain/core/aggregates"
	"lattice/domain/core/entities"
	"lattice/domain/core/policies"
	"lattice/domain/core/valueobjects"
	pkgerrors "lattice/pkg/errors"
	"lattice/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// GraphRepository implements the traversal primitives over the adjacency
// indexes. Expansion runs hop by hop: each visited entity costs one or two
// index queries and entity rows are loaded in batches, so traversal work is
// proportional to the visited subgraph, never the workspace.
type GraphRepository struct {
	client        *dynamodb.Client
	tableName     string
	indexName     string
	gsi2IndexName string
	policy        *policies.TraversalPolicy
	tracer        *observability.Tracer
	logger        *zap.Logger
}

// NewGraphRepository creates a new GraphRepository. The tracer may be nil,
// in which case operations run untraced.
func NewGraphRepository(client *dynamodb.Client, tableName, indexName, gsi2IndexName string, policy *policies.TraversalPolicy, tracer *observability.Tracer, logger *zap.Logger) ports.GraphRepository {
	return &GraphRepository{
		client:        client,
		tableName:     tableName,
		indexName:     indexName,
		gsi2IndexName: gsi2IndexName,
		policy:        policy,
		tracer:        tracer,
		logger:        logger,
	}
}

// Neighbors returns adjacent entities with the connecting edges and the
// total adjacency count before paging
func (r *GraphRepository) Neighbors(ctx context.Context, workspaceID valueobjects.WorkspaceID, entityID valueobjects.EntityID, direction policies.Direction, limit, offset int) ([]aggregates.Neighbor, int, error) {
	var neighbors []aggregates.Neighbor
	var total int
	err := r.trace(ctx, "graph.neighbors", func(ctx context.Context) error {
		var err error
		neighbors, total, err = r.neighbors(ctx, workspaceID, entityID, direction, limit, offset)
		return err
	})
	return neighbors, total, err
}

func (r *GraphRepository) neighbors(ctx context.Context, workspaceID valueobjects.WorkspaceID, entityID valueobjects.EntityID, direction policies.Direction, limit, offset int) ([]aggregates.Neighbor, int, error) {
	if _, err := r.loadEntity(ctx, workspaceID, entityID); err != nil {
		return nil, 0, err
	}

	edges, err := r.adjacency(ctx, workspaceID, entityID, direction)
	if err != nil {
		return nil, 0, err
	}

	total := len(edges)
	page := pageEdges(edges, limit, offset)

	ids := make([]valueobjects.EntityID, 0, len(page))
	for _, edge := range page {
		otherID, _ := edge.OtherEnd(entityID)
		ids = append(ids, otherID)
	}
	loaded, err := r.batchLoadEntities(ctx, workspaceID, ids)
	if err != nil {
		return nil, 0, err
	}

	neighbors := make([]aggregates.Neighbor, 0, len(page))
	for _, edge := range page {
		otherID, _ := edge.OtherEnd(entityID)
		entity, ok := loaded[otherID]
		if !ok {
			// The endpoint vanished between the adjacency query and the
			// batch load; skip the stale edge
			r.logger.Warn("Adjacent entity missing",
				zap.String("edgeID", edge.ID().String()),
				zap.String("entityID", otherID.String()),
			)
			continue
		}
		neighbors = append(neighbors, aggregates.Neighbor{Entity: entity, Edge: edge})
	}

	return neighbors, total, nil
}

// FindPath returns the shortest path between two entities by hop count,
// treating edges as undirected. The policy's visit budget bounds the search
// frontier; exhausting it reads as no path found.
func (r *GraphRepository) FindPath(ctx context.Context, workspaceID valueobjects.WorkspaceID, fromID, toID valueobjects.EntityID, maxDepth int) ([]aggregates.PathStep, error) {
	var path []aggregates.PathStep
	err := r.trace(ctx, "graph.path", func(ctx context.Context) error {
		var err error
		path, err = r.findPath(ctx, workspaceID, fromID, toID, maxDepth)
		return err
	})
	return path, err
}

func (r *GraphRepository) findPath(ctx context.Context, workspaceID valueobjects.WorkspaceID, fromID, toID valueobjects.EntityID, maxDepth int) ([]aggregates.PathStep, error) {
	fromEntity, err := r.loadEntity(ctx, workspaceID, fromID)
	if err != nil {
		return nil, err
	}
	if _, err := r.loadEntity(ctx, workspaceID, toID); err != nil {
		return nil, err
	}

	if fromID.Equals(toID) {
		return []aggregates.PathStep{{Entity: fromEntity}}, nil
	}

	type hop struct {
		id    valueobjects.EntityID
		depth int
	}

	budget := r.policy.VisitBudget()
	visited := map[valueobjects.EntityID]bool{fromID: true}
	parent := make(map[valueobjects.EntityID]valueobjects.EntityID)
	parentEdge := make(map[valueobjects.EntityID]*entities.Edge)
	queue := []hop{{id: fromID, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if maxDepth > 0 && current.depth >= maxDepth {
			continue
		}

		edges, err := r.adjacency(ctx, workspaceID, current.id, policies.DirectionBoth)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			next, ok := edge.OtherEnd(current.id)
			if !ok || visited[next] {
				continue
			}
			if budget > 0 && len(visited) >= budget {
				return nil, pathNotFoundError(fromID, toID, maxDepth)
			}
			visited[next] = true
			parent[next] = current.id
			parentEdge[next] = edge

			if next.Equals(toID) {
				return r.buildPath(ctx, workspaceID, fromID, toID, parent, parentEdge)
			}
			queue = append(queue, hop{id: next, depth: current.depth + 1})
		}
	}

	return nil, pathNotFoundError(fromID, toID, maxDepth)
}

// Traverse expands the graph from a start entity with bounded BFS
func (r *GraphRepository) Traverse(ctx context.Context, workspaceID valueobjects.WorkspaceID, startID valueobjects.EntityID, params policies.TraversalParams) (*aggregates.TraversalResult, error) {
	var result *aggregates.TraversalResult
	err := r.trace(ctx, "graph.traverse", func(ctx context.Context) error {
		var err error
		result, err = r.traverse(ctx, workspaceID, startID, params)
		return err
	})
	return result, err
}

func (r *GraphRepository) traverse(ctx context.Context, workspaceID valueobjects.WorkspaceID, startID valueobjects.EntityID, params policies.TraversalParams) (*aggregates.TraversalResult, error) {
	if _, err := r.loadEntity(ctx, workspaceID, startID); err != nil {
		return nil, err
	}

	type visit struct {
		id    valueobjects.EntityID
		depth int
	}

	budget := r.policy.VisitBudget()
	visited := map[valueobjects.EntityID]int{startID: 0}
	order := []visit{{id: startID, depth: 0}}
	queue := []valueobjects.EntityID{startID}
	adjacencyOf := make(map[valueobjects.EntityID][]*entities.Edge)
	truncated := false

	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]
		depth := visited[currentID]

		if depth >= params.Depth {
			continue
		}

		edges, err := r.adjacency(ctx, workspaceID, currentID, params.Direction)
		if err != nil {
			return nil, err
		}
		adjacencyOf[currentID] = edges

		for _, edge := range edges {
			next, ok := edge.OtherEnd(currentID)
			if !ok {
				continue
			}
			if _, seen := visited[next]; seen {
				continue
			}
			if budget > 0 && len(visited) >= budget {
				truncated = true
				break
			}
			visited[next] = depth + 1
			order = append(order, visit{id: next, depth: depth + 1})
			queue = append(queue, next)
		}
		if truncated {
			break
		}
	}

	// Page the visit order
	page := order
	if params.Offset > 0 {
		if params.Offset >= len(page) {
			page = []visit{}
		} else {
			page = page[params.Offset:]
		}
	}
	if params.Limit > 0 && len(page) > params.Limit {
		page = page[:params.Limit]
		truncated = true
	}

	ids := make([]valueobjects.EntityID, 0, len(page))
	for _, v := range page {
		ids = append(ids, v.id)
	}
	loaded, err := r.batchLoadEntities(ctx, workspaceID, ids)
	if err != nil {
		return nil, err
	}

	nodes := make([]aggregates.TraversalNode, 0, len(page))
	inPage := make(map[valueobjects.EntityID]bool, len(page))
	for _, v := range page {
		entity, ok := loaded[v.id]
		if !ok {
			r.logger.Warn("Visited entity missing", zap.String("entityID", v.id.String()))
			continue
		}
		nodes = append(nodes, aggregates.TraversalNode{Entity: entity, Depth: v.depth})
		inPage[v.id] = true
	}

	// Collect the edges connecting the returned page, honoring direction.
	// Entities at the depth boundary were never expanded, so their adjacency
	// may still need a query.
	seenEdges := make(map[valueobjects.EdgeID]bool)
	var resultEdges []*entities.Edge
	for _, node := range nodes {
		edges, ok := adjacencyOf[node.Entity.ID()]
		if !ok {
			edges, err = r.adjacency(ctx, workspaceID, node.Entity.ID(), params.Direction)
			if err != nil {
				return nil, err
			}
			adjacencyOf[node.Entity.ID()] = edges
		}
		for _, edge := range edges {
			if seenEdges[edge.ID()] {
				continue
			}
			if inPage[edge.SourceID()] && inPage[edge.TargetID()] {
				seenEdges[edge.ID()] = true
				resultEdges = append(resultEdges, edge)
			}
		}
	}
	sortEdgesByCreation(resultEdges)

	return &aggregates.TraversalResult{Nodes: nodes, Edges: resultEdges, Truncated: truncated}, nil
}

// trace runs fn inside an X-Ray subsegment when a tracer is configured
func (r *GraphRepository) trace(ctx context.Context, name string, fn func(context.Context) error) error {
	if r.tracer == nil {
		return fn(ctx)
	}
	return r.tracer.TraceFunction(ctx, name, fn)
}

func (r *GraphRepository) adjacency(ctx context.Context, workspaceID valueobjects.WorkspaceID, entityID valueobjects.EntityID, direction policies.Direction) ([]*entities.Edge, error) {
	return adjacentEdges(ctx, r.client, r.tableName, r.indexName, r.gsi2IndexName, workspaceID, entityID, direction)
}

func (r *GraphRepository) loadEntity(ctx context.Context, workspaceID valueobjects.WorkspaceID, id valueobjects.EntityID) (*entities.Entity, error) {
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

// batchLoadEntities loads entity rows in BatchGetItem chunks, keyed by ID.
// Entities missing from the table are absent from the result, not an error.
func (r *GraphRepository) batchLoadEntities(ctx context.Context, workspaceID valueobjects.WorkspaceID, ids []valueobjects.EntityID) (map[valueobjects.EntityID]*entities.Entity, error) {
	result := make(map[valueobjects.EntityID]*entities.Entity, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	seen := make(map[valueobjects.EntityID]bool, len(ids))
	unique := make([]valueobjects.EntityID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	for start := 0; start < len(unique); start += 100 {
		end := start + 100
		if end > len(unique) {
			end = len(unique)
		}

		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range unique[start:end] {
			keys = append(keys, map[string]types.AttributeValue{
				"PK": stringAttr(workspacePK(workspaceID)),
				"SK": stringAttr(entitySK(id)),
			})
		}

		request := map[string]types.KeysAndAttributes{r.tableName: {Keys: keys}}
		for attempt := 0; len(request) > 0; attempt++ {
			if attempt >= 3 {
				return nil, fmt.Errorf("failed to load entities after %d attempts", attempt)
			}
			out, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, fmt.Errorf("failed to batch load entities: %w", err)
			}
			for _, raw := range out.Responses[r.tableName] {
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
				result[entity.ID()] = entity
			}
			request = out.UnprocessedKeys
		}
	}

	return result, nil
}

func (r *GraphRepository) buildPath(ctx context.Context, workspaceID valueobjects.WorkspaceID, fromID, toID valueobjects.EntityID, parent map[valueobjects.EntityID]valueobjects.EntityID, parentEdge map[valueobjects.EntityID]*entities.Edge) ([]aggregates.PathStep, error) {
	type step struct {
		id   valueobjects.EntityID
		edge *entities.Edge
	}

	var reversed []step
	for current := toID; ; {
		reversed = append(reversed, step{id: current, edge: parentEdge[current]})
		if current.Equals(fromID) {
			break
		}
		current = parent[current]
	}

	ids := make([]valueobjects.EntityID, 0, len(reversed))
	for _, s := range reversed {
		ids = append(ids, s.id)
	}
	loaded, err := r.batchLoadEntities(ctx, workspaceID, ids)
	if err != nil {
		return nil, err
	}

	path := make([]aggregates.PathStep, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		entity, ok := loaded[reversed[i].id]
		if !ok {
			return nil, entityNotFoundError(reversed[i].id)
		}
		path = append(path, aggregates.PathStep{Entity: entity, Edge: reversed[i].edge})
	}
	return path, nil
}

func pathNotFoundError(fromID, toID valueobjects.EntityID, maxDepth int) error {
	return pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "PATH_NOT_FOUND",
		"No path exists between the entities within the depth bound").
		WithDetail("from_id", fromID.String()).
		WithDetail("to_id", toID.String()).
		WithDetail("max_depth", maxDepth)
}

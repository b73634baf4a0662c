package aggregates

import (
	"sort"

	"lattice/domain/core/entities"
	"lattice/domain/core/policies"
	"lattice/domain/core/valueobjects"
	pkgerrors "lattice/pkg/errors"
)

// WorkspaceGraph is the in-memory projection of one workspace's entities
// and edges. It keeps adjacency indexes in both directions so traversal
// never scans the full edge set, and it enforces the structural invariants
// every store must hold: no orphaned edges, no duplicate (source, target,
// type) triples, everything in the same workspace.
type WorkspaceGraph struct {
	workspaceID valueobjects.WorkspaceID
	entities    map[valueobjects.EntityID]*entities.Entity
	edges       map[valueobjects.EdgeID]*entities.Edge
	outgoing    map[valueobjects.EntityID][]*entities.Edge
	incoming    map[valueobjects.EntityID][]*entities.Edge
	dupKeys     map[string]valueobjects.EdgeID
}

// Neighbor pairs an adjacent entity with the edge that connects it
type Neighbor struct {
	Entity *entities.Entity
	Edge   *entities.Edge
}

// PathStep is one hop of a path. Edge is nil on the first step.
type PathStep struct {
	Entity *entities.Entity
	Edge   *entities.Edge
}

// TraversalNode is a visited entity together with its BFS depth
type TraversalNode struct {
	Entity *entities.Entity
	Depth  int
}

// TraversalResult is the bounded subgraph a traversal visited
type TraversalResult struct {
	Nodes     []TraversalNode
	Edges     []*entities.Edge
	Truncated bool
}

// NewWorkspaceGraph creates an empty graph projection for a workspace
func NewWorkspaceGraph(workspaceID valueobjects.WorkspaceID) *WorkspaceGraph {
	return &WorkspaceGraph{
		workspaceID: workspaceID,
		entities:    make(map[valueobjects.EntityID]*entities.Entity),
		edges:       make(map[valueobjects.EdgeID]*entities.Edge),
		outgoing:    make(map[valueobjects.EntityID][]*entities.Edge),
		incoming:    make(map[valueobjects.EntityID][]*entities.Edge),
		dupKeys:     make(map[string]valueobjects.EdgeID),
	}
}

// WorkspaceID returns the workspace this projection belongs to
func (g *WorkspaceGraph) WorkspaceID() valueobjects.WorkspaceID {
	return g.workspaceID
}

// EntityCount returns the number of entities in the graph
func (g *WorkspaceGraph) EntityCount() int {
	return len(g.entities)
}

// EdgeCount returns the number of edges in the graph
func (g *WorkspaceGraph) EdgeCount() int {
	return len(g.edges)
}

// HasEntity reports whether the entity exists in the graph
func (g *WorkspaceGraph) HasEntity(id valueobjects.EntityID) bool {
	_, ok := g.entities[id]
	return ok
}

// Entity returns an entity by ID
func (g *WorkspaceGraph) Entity(id valueobjects.EntityID) (*entities.Entity, error) {
	entity, ok := g.entities[id]
	if !ok {
		return nil, entityNotFound(id)
	}
	return entity, nil
}

// Edge returns an edge by ID
func (g *WorkspaceGraph) Edge(id valueobjects.EdgeID) (*entities.Edge, error) {
	edge, ok := g.edges[id]
	if !ok {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "EDGE_NOT_FOUND",
			"The requested edge does not exist").
			WithDetail("edge_id", id.String())
	}
	return edge, nil
}

// Entities returns all entities ordered by ID
func (g *WorkspaceGraph) Entities() []*entities.Entity {
	all := make([]*entities.Entity, 0, len(g.entities))
	for _, entity := range g.entities {
		all = append(all, entity)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID().String() < all[j].ID().String() })
	return all
}

// Edges returns all edges ordered by creation time
func (g *WorkspaceGraph) Edges() []*entities.Edge {
	all := make([]*entities.Edge, 0, len(g.edges))
	for _, edge := range g.edges {
		all = append(all, edge)
	}
	sortEdges(all)
	return all
}

// HasDuplicate reports whether an edge with the same endpoints and type
// already exists
func (g *WorkspaceGraph) HasDuplicate(sourceID, targetID valueobjects.EntityID, edgeType string) bool {
	_, ok := g.dupKeys[entities.DuplicateEdgeKey(sourceID, targetID, edgeType)]
	return ok
}

// AddEntity inserts an entity into the graph
func (g *WorkspaceGraph) AddEntity(entity *entities.Entity) error {
	if entity == nil {
		return pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "ENTITY_REQUIRED",
			"Entity is required")
	}
	if !entity.WorkspaceID().Equals(g.workspaceID) {
		return workspaceMismatch(entity.WorkspaceID())
	}
	if _, exists := g.entities[entity.ID()]; exists {
		return pkgerrors.NewDomainError(pkgerrors.DomainConflictError, "ENTITY_ALREADY_EXISTS",
			"An entity with this ID already exists").
			WithDetail("entity_id", entity.ID().String())
	}

	g.entities[entity.ID()] = entity
	return nil
}

// AddEdge inserts an edge. Both endpoints must already exist and the
// (source, target, type) triple must be unique.
func (g *WorkspaceGraph) AddEdge(edge *entities.Edge) error {
	if edge == nil {
		return pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "EDGE_REQUIRED",
			"Edge is required")
	}
	if !edge.WorkspaceID().Equals(g.workspaceID) {
		return workspaceMismatch(edge.WorkspaceID())
	}
	if _, exists := g.edges[edge.ID()]; exists {
		return pkgerrors.NewDomainError(pkgerrors.DomainConflictError, "EDGE_ALREADY_EXISTS",
			"An edge with this ID already exists").
			WithDetail("edge_id", edge.ID().String())
	}
	if !g.HasEntity(edge.SourceID()) {
		return entityNotFound(edge.SourceID())
	}
	if !g.HasEntity(edge.TargetID()) {
		return entityNotFound(edge.TargetID())
	}
	if g.HasDuplicate(edge.SourceID(), edge.TargetID(), edge.EdgeType()) {
		return pkgerrors.NewDomainError(pkgerrors.DomainConflictError, "DUPLICATE_EDGE",
			"An edge of this type between these entities already exists").
			WithDetail("source_id", edge.SourceID().String()).
			WithDetail("target_id", edge.TargetID().String()).
			WithDetail("edge_type", edge.EdgeType())
	}

	g.edges[edge.ID()] = edge
	g.outgoing[edge.SourceID()] = append(g.outgoing[edge.SourceID()], edge)
	g.incoming[edge.TargetID()] = append(g.incoming[edge.TargetID()], edge)
	g.dupKeys[edge.DuplicateKey()] = edge.ID()
	return nil
}

// ReplaceEntity swaps the stored entity for an updated instance. The entity
// must already exist; edges are untouched.
func (g *WorkspaceGraph) ReplaceEntity(entity *entities.Entity) error {
	if entity == nil {
		return pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "ENTITY_REQUIRED",
			"Entity is required")
	}
	if !entity.WorkspaceID().Equals(g.workspaceID) {
		return workspaceMismatch(entity.WorkspaceID())
	}
	if _, ok := g.entities[entity.ID()]; !ok {
		return entityNotFound(entity.ID())
	}

	g.entities[entity.ID()] = entity
	return nil
}

// RemoveEntity deletes an entity and every edge touching it, returning the
// number of edges removed in the cascade.
func (g *WorkspaceGraph) RemoveEntity(id valueobjects.EntityID) (int, error) {
	if _, ok := g.entities[id]; !ok {
		return 0, entityNotFound(id)
	}

	removed := 0
	for _, edge := range g.incidentEdges(id) {
		g.detachEdge(edge)
		removed++
	}

	delete(g.entities, id)
	delete(g.outgoing, id)
	delete(g.incoming, id)
	return removed, nil
}

// RemoveEdge deletes an edge by ID
func (g *WorkspaceGraph) RemoveEdge(id valueobjects.EdgeID) error {
	edge, ok := g.edges[id]
	if !ok {
		return pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "EDGE_NOT_FOUND",
			"The requested edge does not exist").
			WithDetail("edge_id", id.String())
	}
	g.detachEdge(edge)
	return nil
}

// Neighbors returns the entities adjacent to the given one together with
// the connecting edges, ordered by edge creation, with the page bounds
// applied. The second return is the total before paging.
func (g *WorkspaceGraph) Neighbors(id valueobjects.EntityID, direction policies.Direction, limit, offset int) ([]Neighbor, int, error) {
	if !g.HasEntity(id) {
		return nil, 0, entityNotFound(id)
	}

	edges := g.adjacent(id, direction)
	total := len(edges)

	if offset >= len(edges) {
		return []Neighbor{}, total, nil
	}
	edges = edges[offset:]
	if limit > 0 && len(edges) > limit {
		edges = edges[:limit]
	}

	neighbors := make([]Neighbor, 0, len(edges))
	for _, edge := range edges {
		// Self-loops resolve to the entity itself
		otherID, _ := edge.OtherEnd(id)
		neighbors = append(neighbors, Neighbor{Entity: g.entities[otherID], Edge: edge})
	}
	return neighbors, total, nil
}

// FindPath returns the shortest path between two entities by hop count,
// treating edges as undirected. Both endpoints must exist; a missing
// connection within maxDepth hops is a not-found error.
func (g *WorkspaceGraph) FindPath(fromID, toID valueobjects.EntityID, maxDepth int) ([]PathStep, error) {
	if !g.HasEntity(fromID) {
		return nil, entityNotFound(fromID)
	}
	if !g.HasEntity(toID) {
		return nil, entityNotFound(toID)
	}

	if fromID.Equals(toID) {
		return []PathStep{{Entity: g.entities[fromID]}}, nil
	}

	type hop struct {
		id    valueobjects.EntityID
		depth int
	}

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

		for _, edge := range g.adjacent(current.id, policies.DirectionBoth) {
			next, ok := edge.OtherEnd(current.id)
			if !ok || visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = current.id
			parentEdge[next] = edge

			if next.Equals(toID) {
				return g.buildPath(fromID, toID, parent, parentEdge), nil
			}
			queue = append(queue, hop{id: next, depth: current.depth + 1})
		}
	}

	return nil, pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "PATH_NOT_FOUND",
		"No path exists between the entities within the depth bound").
		WithDetail("from_id", fromID.String()).
		WithDetail("to_id", toID.String()).
		WithDetail("max_depth", maxDepth)
}

// Traverse expands the graph from a start entity with bounded BFS. The
// params are assumed already normalized; visitBudget caps the number of
// entities visited regardless of the requested depth and limit.
func (g *WorkspaceGraph) Traverse(startID valueobjects.EntityID, params policies.TraversalParams, visitBudget int) (*TraversalResult, error) {
	start, ok := g.entities[startID]
	if !ok {
		return nil, entityNotFound(startID)
	}

	visited := map[valueobjects.EntityID]int{startID: 0}
	order := []TraversalNode{{Entity: start, Depth: 0}}
	queue := []valueobjects.EntityID{startID}
	truncated := false

	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]
		depth := visited[currentID]

		if depth >= params.Depth {
			continue
		}

		for _, edge := range g.adjacent(currentID, params.Direction) {
			next, ok := edge.OtherEnd(currentID)
			if !ok {
				continue
			}
			if _, seen := visited[next]; seen {
				continue
			}
			if visitBudget > 0 && len(visited) >= visitBudget {
				truncated = true
				break
			}
			visited[next] = depth + 1
			order = append(order, TraversalNode{Entity: g.entities[next], Depth: depth + 1})
			queue = append(queue, next)
		}
		if truncated {
			break
		}
	}

	// Page the visit order
	nodes := order
	if params.Offset > 0 {
		if params.Offset >= len(nodes) {
			nodes = []TraversalNode{}
		} else {
			nodes = nodes[params.Offset:]
		}
	}
	if params.Limit > 0 && len(nodes) > params.Limit {
		nodes = nodes[:params.Limit]
		truncated = true
	}

	// Collect the edges connecting the returned page, honoring direction
	inPage := make(map[valueobjects.EntityID]bool, len(nodes))
	for _, node := range nodes {
		inPage[node.Entity.ID()] = true
	}
	seenEdges := make(map[valueobjects.EdgeID]bool)
	var edges []*entities.Edge
	for _, node := range nodes {
		for _, edge := range g.adjacent(node.Entity.ID(), params.Direction) {
			if seenEdges[edge.ID()] {
				continue
			}
			if inPage[edge.SourceID()] && inPage[edge.TargetID()] {
				seenEdges[edge.ID()] = true
				edges = append(edges, edge)
			}
		}
	}
	sortEdges(edges)

	return &TraversalResult{Nodes: nodes, Edges: edges, Truncated: truncated}, nil
}

// Validate checks the structural invariants of the projection
func (g *WorkspaceGraph) Validate() error {
	for _, edge := range g.edges {
		if !g.HasEntity(edge.SourceID()) {
			return pkgerrors.NewDomainError(pkgerrors.DomainInfrastructureError, "ORPHANED_EDGE",
				"Edge references a source entity that does not exist").
				WithDetail("edge_id", edge.ID().String())
		}
		if !g.HasEntity(edge.TargetID()) {
			return pkgerrors.NewDomainError(pkgerrors.DomainInfrastructureError, "ORPHANED_EDGE",
				"Edge references a target entity that does not exist").
				WithDetail("edge_id", edge.ID().String())
		}
	}
	return nil
}

// adjacent returns the edges leaving, entering, or touching an entity,
// ordered by creation time
func (g *WorkspaceGraph) adjacent(id valueobjects.EntityID, direction policies.Direction) []*entities.Edge {
	var edges []*entities.Edge
	switch direction {
	case policies.DirectionOut:
		edges = append(edges, g.outgoing[id]...)
	case policies.DirectionIn:
		edges = append(edges, g.incoming[id]...)
	default:
		edges = append(edges, g.outgoing[id]...)
		for _, edge := range g.incoming[id] {
			// Self-loops are already in the outgoing list
			if !edge.SourceID().Equals(edge.TargetID()) {
				edges = append(edges, edge)
			}
		}
	}
	sortEdges(edges)
	return edges
}

// incidentEdges returns every edge touching an entity exactly once
func (g *WorkspaceGraph) incidentEdges(id valueobjects.EntityID) []*entities.Edge {
	seen := make(map[valueobjects.EdgeID]bool)
	var edges []*entities.Edge
	for _, edge := range g.outgoing[id] {
		if !seen[edge.ID()] {
			seen[edge.ID()] = true
			edges = append(edges, edge)
		}
	}
	for _, edge := range g.incoming[id] {
		if !seen[edge.ID()] {
			seen[edge.ID()] = true
			edges = append(edges, edge)
		}
	}
	return edges
}

func (g *WorkspaceGraph) detachEdge(edge *entities.Edge) {
	delete(g.edges, edge.ID())
	delete(g.dupKeys, edge.DuplicateKey())
	g.outgoing[edge.SourceID()] = removeEdge(g.outgoing[edge.SourceID()], edge.ID())
	g.incoming[edge.TargetID()] = removeEdge(g.incoming[edge.TargetID()], edge.ID())
}

func (g *WorkspaceGraph) buildPath(fromID, toID valueobjects.EntityID, parent map[valueobjects.EntityID]valueobjects.EntityID, parentEdge map[valueobjects.EntityID]*entities.Edge) []PathStep {
	var reversed []PathStep
	for current := toID; ; {
		reversed = append(reversed, PathStep{Entity: g.entities[current], Edge: parentEdge[current]})
		if current.Equals(fromID) {
			break
		}
		current = parent[current]
	}

	path := make([]PathStep, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}

func removeEdge(edges []*entities.Edge, id valueobjects.EdgeID) []*entities.Edge {
	filtered := edges[:0]
	for _, edge := range edges {
		if !edge.ID().Equals(id) {
			filtered = append(filtered, edge)
		}
	}
	return filtered
}

func sortEdges(edges []*entities.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if !edges[i].CreatedAt().Equal(edges[j].CreatedAt()) {
			return edges[i].CreatedAt().Before(edges[j].CreatedAt())
		}
		return edges[i].ID().String() < edges[j].ID().String()
	})
}

func entityNotFound(id valueobjects.EntityID) error {
	return pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "ENTITY_NOT_FOUND",
		"The requested entity does not exist").
		WithDetail("entity_id", id.String())
}

func workspaceMismatch(id valueobjects.WorkspaceID) error {
	return pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "WORKSPACE_MISMATCH",
		"The aggregate belongs to a different workspace").
		WithDetail("workspace_id", id.String())
}

package memory

import (
	"context"

	"lattice/domain/core/aggregates"
	"lattice/domain/core/policies"
	"lattice/domain/core/valueobjects"
)

// graphView serves traversal straight from the workspace graph. Results
// reference stored entities and edges; callers treat them as read-only.
type graphView struct {
	store *Store
}

// Neighbors returns adjacent entities with the connecting edges and the
// total adjacency count before paging
func (v *graphView) Neighbors(ctx context.Context, workspaceID valueobjects.WorkspaceID, entityID valueobjects.EntityID, direction policies.Direction, limit, offset int) ([]aggregates.Neighbor, int, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.state(workspaceID)
	if err != nil {
		return nil, 0, err
	}
	return state.graph.Neighbors(entityID, direction, limit, offset)
}

// FindPath returns the shortest path between two entities by hop count
func (v *graphView) FindPath(ctx context.Context, workspaceID valueobjects.WorkspaceID, fromID, toID valueobjects.EntityID, maxDepth int) ([]aggregates.PathStep, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.state(workspaceID)
	if err != nil {
		return nil, err
	}
	return state.graph.FindPath(fromID, toID, maxDepth)
}

// Traverse expands the graph from a start entity with bounded BFS
func (v *graphView) Traverse(ctx context.Context, workspaceID valueobjects.WorkspaceID, startID valueobjects.EntityID, params policies.TraversalParams) (*aggregates.TraversalResult, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.state(workspaceID)
	if err != nil {
		return nil, err
	}
	return state.graph.Traverse(startID, params, s.policy.VisitBudget())
}

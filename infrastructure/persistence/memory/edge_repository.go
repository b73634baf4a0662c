package memory

import (
	"context"

	"lattice/application/ports"
	"lattice/domain/core/entities"
	"lattice/domain/core/valueobjects"
)

type edgeView struct {
	store *Store
}

// Save persists a new edge. The graph rejects missing endpoints, duplicate
// IDs and duplicate (source, target, type) triples.
func (v *edgeView) Save(ctx context.Context, edge *entities.Edge) error {
	s := v.store
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state(edge.WorkspaceID())
	if err != nil {
		return err
	}

	if err := state.graph.AddEdge(cloneEdge(edge)); err != nil {
		return err
	}
	state.edgeCount++
	return nil
}

// GetByID retrieves an edge within a workspace
func (v *edgeView) GetByID(ctx context.Context, workspaceID valueobjects.WorkspaceID, id valueobjects.EdgeID) (*entities.Edge, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.state(workspaceID)
	if err != nil {
		return nil, err
	}

	edge, err := state.graph.Edge(id)
	if err != nil {
		return nil, err
	}
	return cloneEdge(edge), nil
}

// List retrieves edges matching the criteria, ordered by creation time.
// The second return is the total count before paging.
func (v *edgeView) List(ctx context.Context, workspaceID valueobjects.WorkspaceID, criteria ports.EdgeListCriteria) ([]*entities.Edge, int, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.state(workspaceID)
	if err != nil {
		return nil, 0, err
	}

	var all []*entities.Edge
	for _, edge := range state.graph.Edges() {
		if criteria.EntityID != nil && !edge.Connects(*criteria.EntityID) {
			continue
		}
		all = append(all, edge)
	}

	total := len(all)
	if criteria.Offset >= len(all) {
		return []*entities.Edge{}, total, nil
	}
	page := all[criteria.Offset:]
	if criteria.Limit > 0 && len(page) > criteria.Limit {
		page = page[:criteria.Limit]
	}

	result := make([]*entities.Edge, 0, len(page))
	for _, edge := range page {
		result = append(result, cloneEdge(edge))
	}
	return result, total, nil
}

// Delete removes an edge
func (v *edgeView) Delete(ctx context.Context, workspaceID valueobjects.WorkspaceID, id valueobjects.EdgeID) error {
	s := v.store
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state(workspaceID)
	if err != nil {
		return err
	}

	if err := state.graph.RemoveEdge(id); err != nil {
		return err
	}
	state.edgeCount--
	return nil
}

// ExistsDuplicate reports whether an edge with the same source, target and
// type already exists
func (v *edgeView) ExistsDuplicate(ctx context.Context, workspaceID valueobjects.WorkspaceID, sourceID, targetID valueobjects.EntityID, edgeType string) (bool, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.state(workspaceID)
	if err != nil {
		return false, err
	}
	return state.graph.HasDuplicate(sourceID, targetID, edgeType), nil
}

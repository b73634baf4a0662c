package memory

import (
	"context"
	"sort"

	"lattice/application/ports"
	"lattice/domain/core/entities"
	"lattice/domain/core/valueobjects"
)

type entityView struct {
	store *Store
}

// Save persists an entity. Updates must carry a version newer than the
// stored one.
func (v *entityView) Save(ctx context.Context, entity *entities.Entity) error {
	s := v.store
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state(entity.WorkspaceID())
	if err != nil {
		return err
	}

	if state.graph.HasEntity(entity.ID()) {
		stored, err := state.graph.Entity(entity.ID())
		if err != nil {
			return err
		}
		if entity.Version() <= stored.Version() {
			return concurrentModificationError()
		}
		return state.graph.ReplaceEntity(cloneEntity(entity))
	}

	if err := state.graph.AddEntity(cloneEntity(entity)); err != nil {
		return err
	}
	state.entityCount++
	return nil
}

// GetByID retrieves an entity within a workspace
func (v *entityView) GetByID(ctx context.Context, workspaceID valueobjects.WorkspaceID, id valueobjects.EntityID) (*entities.Entity, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.state(workspaceID)
	if err != nil {
		return nil, err
	}

	entity, err := state.graph.Entity(id)
	if err != nil {
		return nil, err
	}
	return cloneEntity(entity), nil
}

// List retrieves entities matching the criteria, ordered by creation time.
// The second return is the total count before paging.
func (v *entityView) List(ctx context.Context, workspaceID valueobjects.WorkspaceID, criteria ports.EntityListCriteria) ([]*entities.Entity, int, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.state(workspaceID)
	if err != nil {
		return nil, 0, err
	}

	var all []*entities.Entity
	for _, entity := range state.graph.Entities() {
		if criteria.EntityType != "" && entity.EntityType() != criteria.EntityType {
			continue
		}
		all = append(all, entity)
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt().Equal(all[j].CreatedAt()) {
			return all[i].CreatedAt().Before(all[j].CreatedAt())
		}
		return all[i].ID().String() < all[j].ID().String()
	})

	total := len(all)
	if criteria.Offset >= len(all) {
		return []*entities.Entity{}, total, nil
	}
	page := all[criteria.Offset:]
	if criteria.Limit > 0 && len(page) > criteria.Limit {
		page = page[:criteria.Limit]
	}

	result := make([]*entities.Entity, 0, len(page))
	for _, entity := range page {
		result = append(result, cloneEntity(entity))
	}
	return result, total, nil
}

// Delete removes an entity together with every edge touching it, returning
// the number of edges removed
func (v *entityView) Delete(ctx context.Context, workspaceID valueobjects.WorkspaceID, id valueobjects.EntityID) (int, error) {
	s := v.store
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state(workspaceID)
	if err != nil {
		return 0, err
	}

	removed, err := state.graph.RemoveEntity(id)
	if err != nil {
		return 0, err
	}
	state.entityCount--
	state.edgeCount -= int64(removed)
	return removed, nil
}

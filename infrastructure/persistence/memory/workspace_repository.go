package memory

import (
	"context"
	"sort"

	"lattice/application/ports"
	"lattice/domain/core/aggregates"
	"lattice/domain/core/entities"
	"lattice/domain/core/schema"
	"lattice/domain/core/valueobjects"

	"go.uber.org/zap"
)

type workspaceView struct {
	store *Store
}

// Save persists a workspace. Inserts require the workspace to be absent;
// updates must carry a version newer than the stored one.
func (v *workspaceView) Save(ctx context.Context, workspace *entities.Workspace) error {
	s := v.store
	s.mu.Lock()
	defer s.mu.Unlock()

	state, exists := s.workspaces[workspace.ID()]
	if !exists {
		s.workspaces[workspace.ID()] = &workspaceState{
			workspace: cloneWorkspace(workspace),
			schemas:   make(map[int]*schema.SchemaDefinition),
			graph:     aggregates.NewWorkspaceGraph(workspace.ID()),
		}
		s.logger.Debug("Workspace created",
			zap.String("workspaceID", workspace.ID().String()),
		)
		return nil
	}

	if workspace.Version() <= state.workspace.Version() {
		return concurrentModificationError()
	}
	state.workspace = cloneWorkspace(workspace)
	return nil
}

// GetByID retrieves a workspace by its ID
func (v *workspaceView) GetByID(ctx context.Context, id valueobjects.WorkspaceID) (*entities.Workspace, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.state(id)
	if err != nil {
		return nil, err
	}
	return cloneWorkspace(state.workspace), nil
}

// ListByUser retrieves all workspaces the user is a member of, oldest first
func (v *workspaceView) ListByUser(ctx context.Context, userID string) ([]*entities.Workspace, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*entities.Workspace
	for _, state := range s.workspaces {
		if state.workspace.IsMember(userID) {
			result = append(result, cloneWorkspace(state.workspace))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt().Equal(result[j].CreatedAt()) {
			return result[i].CreatedAt().Before(result[j].CreatedAt())
		}
		return result[i].ID().String() < result[j].ID().String()
	})
	return result, nil
}

// Delete removes a workspace together with its schemas, entities and edges
func (v *workspaceView) Delete(ctx context.Context, id valueobjects.WorkspaceID) error {
	s := v.store
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state(id)
	if err != nil {
		return err
	}

	delete(s.workspaces, id)
	s.logger.Info("Workspace deleted",
		zap.String("workspaceID", id.String()),
		zap.Int("entityCount", state.graph.EntityCount()),
		zap.Int("edgeCount", state.graph.EdgeCount()),
	)
	return nil
}

// GetStats returns the maintained entity and edge counters
func (v *workspaceView) GetStats(ctx context.Context, id valueobjects.WorkspaceID) (*ports.WorkspaceStats, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.state(id)
	if err != nil {
		return nil, err
	}
	return &ports.WorkspaceStats{
		EntityCount: state.entityCount,
		EdgeCount:   state.edgeCount,
	}, nil
}

// AdjustCounts applies deltas to the workspace's counters
func (v *workspaceView) AdjustCounts(ctx context.Context, id valueobjects.WorkspaceID, entityDelta, edgeDelta int64) error {
	if entityDelta == 0 && edgeDelta == 0 {
		return nil
	}

	s := v.store
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state(id)
	if err != nil {
		return err
	}
	state.entityCount += entityDelta
	state.edgeCount += edgeDelta
	return nil
}

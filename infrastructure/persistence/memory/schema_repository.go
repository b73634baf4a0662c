package memory

import (
	"context"
	"sort"
	"time"

	"lattice/application/ports"
	"lattice/domain/core/schema"
	"lattice/domain/core/valueobjects"
	pkgerrors "lattice/pkg/errors"
)

type schemaView struct {
	store *Store
}

// SaveVersion persists a schema version. Versions are immutable; writing an
// existing number is a conflict.
func (v *schemaView) SaveVersion(ctx context.Context, workspaceID valueobjects.WorkspaceID, def *schema.SchemaDefinition) error {
	s := v.store
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state(workspaceID)
	if err != nil {
		return err
	}

	if _, exists := state.schemas[def.Version]; exists {
		return pkgerrors.NewDomainError(pkgerrors.DomainConflictError, "SCHEMA_VERSION_CONFLICT",
			"This schema version was already published").
			WithDetail("workspace_id", workspaceID.String()).
			WithDetail("version", def.Version).
			WithRetryable(true)
	}

	state.schemas[def.Version] = def
	return nil
}

// GetVersion retrieves one schema version
func (v *schemaView) GetVersion(ctx context.Context, workspaceID valueobjects.WorkspaceID, version int) (*schema.SchemaDefinition, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.state(workspaceID)
	if err != nil {
		return nil, err
	}

	def, ok := state.schemas[version]
	if !ok {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "SCHEMA_VERSION_NOT_FOUND",
			"The requested schema version does not exist").
			WithDetail("workspace_id", workspaceID.String()).
			WithDetail("version", version)
	}
	return def, nil
}

// ListVersions returns summaries of all published versions, newest first
func (v *schemaView) ListVersions(ctx context.Context, workspaceID valueobjects.WorkspaceID) ([]ports.SchemaVersionSummary, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.state(workspaceID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ports.SchemaVersionSummary, 0, len(state.schemas))
	for _, def := range state.schemas {
		summaries = append(summaries, ports.SchemaVersionSummary{
			Version:         def.Version,
			Name:            def.Name,
			PublishedBy:     def.PublishedBy,
			PublishedAt:     def.PublishedAt.UTC().Format(time.RFC3339Nano),
			EntityTypeCount: len(def.EntityTypes),
			EdgeTypeCount:   len(def.EdgeTypes),
		})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Version > summaries[j].Version })
	return summaries, nil
}

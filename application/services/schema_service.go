package services

import (
	"context"
	"encoding/json"
	"fmt"

	"lattice/application/ports"
	"lattice/domain/core/entities"
	"lattice/domain/core/schema"
	"lattice/domain/core/valueobjects"
	pkgerrors "lattice/pkg/errors"
	"go.uber.org/zap"
)

// SchemaService serves published schema versions. Versions are immutable
// once written, so cached copies never go stale; only the workspace's
// active-version pointer moves.
type SchemaService struct {
	schemaRepo ports.SchemaRepository
	cache      ports.Cache
	cacheTTL   int // seconds
	logger     *zap.Logger
}

// NewSchemaService creates a new schema service. The cache is optional; a
// nil cache disables read-through caching.
func NewSchemaService(
	schemaRepo ports.SchemaRepository,
	cache ports.Cache,
	cacheTTL int,
	logger *zap.Logger,
) *SchemaService {
	return &SchemaService{
		schemaRepo: schemaRepo,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// ActiveSchema returns the schema version the workspace currently validates
// writes against.
func (s *SchemaService) ActiveSchema(ctx context.Context, workspace *entities.Workspace) (*schema.SchemaDefinition, error) {
	if workspace.ActiveSchemaVersion() == 0 {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "SCHEMA_NOT_FOUND",
			"Workspace has no published schema").
			WithDetail("workspace_id", workspace.ID().String())
	}
	return s.Version(ctx, workspace.ID(), workspace.ActiveSchemaVersion())
}

// Version returns one published schema version, read through the cache
func (s *SchemaService) Version(ctx context.Context, workspaceID valueobjects.WorkspaceID, version int) (*schema.SchemaDefinition, error) {
	key := schemaCacheKey(workspaceID, version)

	if s.cache != nil {
		if cached, found := s.cache.Get(ctx, key); found {
			if def, ok := decodeCachedDefinition(cached); ok {
				return def, nil
			}
		}
	}

	def, err := s.schemaRepo.GetVersion(ctx, workspaceID, version)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, def, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache schema version",
				zap.String("workspaceID", workspaceID.String()),
				zap.Int("version", version),
				zap.Error(err),
			)
		}
	}

	return def, nil
}

func schemaCacheKey(workspaceID valueobjects.WorkspaceID, version int) string {
	return fmt.Sprintf("schema:%s:%d", workspaceID.String(), version)
}

// decodeCachedDefinition recovers a schema definition from a cache hit.
// The in-process cache returns the typed value; Redis round-trips values
// through JSON and hands back a generic map, which is rebuilt here.
func decodeCachedDefinition(cached interface{}) (*schema.SchemaDefinition, bool) {
	switch v := cached.(type) {
	case *schema.SchemaDefinition:
		return v, true
	case map[string]interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		var def schema.SchemaDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, false
		}
		return &def, true
	default:
		return nil, false
	}
}

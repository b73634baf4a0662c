// Package schema bootstraps a workspace's first schema version from a
// YAML seed file. Seeding runs once at startup and is a no-op when the
// workspace already has an active schema, so restarts are safe.
package schema

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"lattice/application/ports"
	"lattice/domain/core/entities"
	"lattice/domain/core/schema"
	"lattice/domain/core/validators"
	"lattice/domain/core/valueobjects"
	pkgerrors "lattice/pkg/errors"

	"go.uber.org/zap"
)

// SeedFile is the YAML layout of a schema seed. The schema block reuses
// the wire shape of a published version; version and publication fields
// are assigned here, not read from the file.
type SeedFile struct {
	Workspace SeedWorkspace           `yaml:"workspace"`
	Schema    schema.SchemaDefinition `yaml:"schema"`
}

// SeedWorkspace names the workspace the seed applies to. Name and owner
// are only used when the workspace does not exist yet.
type SeedWorkspace struct {
	Name  string `yaml:"name"`
	Owner string `yaml:"owner"`
}

// Seeder publishes a seed schema into a workspace
type Seeder struct {
	workspaces ports.WorkspaceRepository
	schemas    ports.SchemaRepository
	validator  *validators.SchemaValidator
	logger     *zap.Logger
}

// NewSeeder creates a schema seeder
func NewSeeder(
	workspaces ports.WorkspaceRepository,
	schemas ports.SchemaRepository,
	validator *validators.SchemaValidator,
	logger *zap.Logger,
) *Seeder {
	return &Seeder{
		workspaces: workspaces,
		schemas:    schemas,
		validator:  validator,
		logger:     logger,
	}
}

// Apply loads the seed file and publishes it as the workspace's first
// schema version, creating the workspace if needed. An empty path
// disables seeding.
func (s *Seeder) Apply(ctx context.Context, path, workspaceID string) error {
	if path == "" {
		return nil
	}
	if workspaceID == "" {
		return fmt.Errorf("schema seed file is set but the seed workspace ID is empty")
	}

	id, err := valueobjects.NewWorkspaceIDFromString(workspaceID)
	if err != nil {
		return fmt.Errorf("parse seed workspace ID: %w", err)
	}

	seed, err := loadSeedFile(path)
	if err != nil {
		return err
	}

	workspace, err := s.ensureWorkspace(ctx, id, seed)
	if err != nil {
		return err
	}
	if workspace.ActiveSchemaVersion() > 0 {
		s.logger.Debug("Workspace already has an active schema, skipping seed",
			zap.String("workspaceID", id.String()),
			zap.Int("activeVersion", workspace.ActiveSchemaVersion()),
		)
		return nil
	}

	def := seed.Schema
	def.Version = workspace.ActiveSchemaVersion() + 1
	def.PublishedBy = workspace.OwnerID()
	def.PublishedAt = time.Now()

	if err := s.validator.ValidateDefinition(&def); err != nil {
		return fmt.Errorf("seed schema is invalid: %w", err)
	}

	if err := s.schemas.SaveVersion(ctx, id, &def); err != nil {
		return fmt.Errorf("save seed schema version: %w", err)
	}
	if err := workspace.RecordSchemaPublished(def.Version, def.PublishedBy, len(def.EntityTypes), len(def.EdgeTypes)); err != nil {
		return err
	}
	if err := s.workspaces.Save(ctx, workspace); err != nil {
		return fmt.Errorf("activate seed schema version: %w", err)
	}
	// Bootstrap writes bypass the event pipeline
	workspace.MarkEventsAsCommitted()

	s.logger.Info("Seed schema published",
		zap.String("workspaceID", id.String()),
		zap.Int("version", def.Version),
		zap.Int("entityTypes", len(def.EntityTypes)),
		zap.Int("edgeTypes", len(def.EdgeTypes)),
	)
	return nil
}

// ensureWorkspace fetches the seed workspace, creating it from the seed
// block when absent
func (s *Seeder) ensureWorkspace(ctx context.Context, id valueobjects.WorkspaceID, seed *SeedFile) (*entities.Workspace, error) {
	workspace, err := s.workspaces.GetByID(ctx, id)
	if err == nil {
		return workspace, nil
	}
	if !pkgerrors.HasDomainCode(err, "WORKSPACE_NOT_FOUND") {
		return nil, err
	}

	workspace, err = entities.NewWorkspaceWithID(id, seed.Workspace.Name, seed.Workspace.Owner, nil)
	if err != nil {
		return nil, fmt.Errorf("create seed workspace: %w", err)
	}
	if err := s.workspaces.Save(ctx, workspace); err != nil {
		return nil, fmt.Errorf("save seed workspace: %w", err)
	}
	workspace.MarkEventsAsCommitted()

	s.logger.Info("Seed workspace created",
		zap.String("workspaceID", id.String()),
		zap.String("name", workspace.Name()),
	)
	return workspace, nil
}

func loadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse schema seed file: %w", err)
	}
	if len(seed.Schema.EntityTypes) == 0 {
		return nil, fmt.Errorf("schema seed file %s declares no entity types", path)
	}
	return &seed, nil
}

package handlers

import (
	"context"
	"fmt"
	"time"

	"lattice/application/commands"
	"lattice/application/ports"
	"lattice/application/services"
	"lattice/domain/core/policies"
	"lattice/domain/core/schema"
	"lattice/domain/core/validators"
	"lattice/domain/core/valueobjects"
	"go.uber.org/zap"
)

// PublishSchemaHandler handles schema publication. Each publish writes an
// immutable version numbered one above the workspace's active version and
// moves the active pointer to it.
type PublishSchemaHandler struct {
	authService     *services.AuthorizationService
	schemaRepo      ports.SchemaRepository
	workspaceRepo   ports.WorkspaceRepository
	schemaValidator *validators.SchemaValidator
	eventBus        ports.EventBus
	logger          *zap.Logger
}

// NewPublishSchemaHandler creates a new publish schema handler
func NewPublishSchemaHandler(
	authService *services.AuthorizationService,
	schemaRepo ports.SchemaRepository,
	workspaceRepo ports.WorkspaceRepository,
	schemaValidator *validators.SchemaValidator,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *PublishSchemaHandler {
	return &PublishSchemaHandler{
		authService:     authService,
		schemaRepo:      schemaRepo,
		workspaceRepo:   workspaceRepo,
		schemaValidator: schemaValidator,
		eventBus:        eventBus,
		logger:          logger,
	}
}

// Handle executes the publish schema command
func (h *PublishSchemaHandler) Handle(ctx context.Context, cmd commands.PublishSchemaCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(cmd.WorkspaceID)
	if err != nil {
		return err
	}

	workspace, err := h.authService.RequireAction(ctx, workspaceID, cmd.UserID, policies.ActionManageSchema)
	if err != nil {
		return err
	}

	def := &schema.SchemaDefinition{
		Version:     workspace.ActiveSchemaVersion() + 1,
		Name:        cmd.Name,
		EntityTypes: cmd.EntityTypes,
		EdgeTypes:   cmd.EdgeTypes,
		PublishedBy: cmd.UserID,
		PublishedAt: time.Now(),
	}

	if err := h.schemaValidator.ValidateDefinition(def); err != nil {
		return err
	}

	if err := workspace.RecordSchemaPublished(def.Version, cmd.UserID, len(def.EntityTypes), len(def.EdgeTypes)); err != nil {
		return err
	}

	// The version write is the concurrency guard: two concurrent publishes
	// race to the same version number and the second one conflicts.
	if err := h.schemaRepo.SaveVersion(ctx, workspaceID, def); err != nil {
		return fmt.Errorf("failed to save schema version: %w", err)
	}

	if err := h.workspaceRepo.Save(ctx, workspace); err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}

	publishEvents(ctx, h.eventBus, h.logger, workspace.GetUncommittedEvents())
	workspace.MarkEventsAsCommitted()

	h.logger.Info("Schema published",
		zap.String("workspaceID", workspaceID.String()),
		zap.Int("version", def.Version),
		zap.Int("entityTypes", len(def.EntityTypes)),
		zap.Int("edgeTypes", len(def.EdgeTypes)),
		zap.String("publishedBy", cmd.UserID),
	)

	return nil
}

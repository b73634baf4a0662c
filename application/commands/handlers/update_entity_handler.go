package handlers

import (
	"context"
	"fmt"

	"lattice/application/commands"
	"lattice/application/ports"
	"lattice/application/services"
	"lattice/domain/config"
	"lattice/domain/core/policies"
	"lattice/domain/core/validators"
	"lattice/domain/core/valueobjects"
	"go.uber.org/zap"
)

// UpdateEntityHandler handles entity update commands. Property updates are
// re-validated against the workspace's current active schema, regardless of
// the version the entity was created under.
type UpdateEntityHandler struct {
	authService     *services.AuthorizationService
	schemaService   *services.SchemaService
	schemaValidator *validators.SchemaValidator
	entityRepo      ports.EntityRepository
	eventBus        ports.EventBus
	cfg             *config.DomainConfig
	logger          *zap.Logger
}

// NewUpdateEntityHandler creates a new update entity handler
func NewUpdateEntityHandler(
	authService *services.AuthorizationService,
	schemaService *services.SchemaService,
	schemaValidator *validators.SchemaValidator,
	entityRepo ports.EntityRepository,
	eventBus ports.EventBus,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *UpdateEntityHandler {
	return &UpdateEntityHandler{
		authService:     authService,
		schemaService:   schemaService,
		schemaValidator: schemaValidator,
		entityRepo:      entityRepo,
		eventBus:        eventBus,
		cfg:             cfg,
		logger:          logger,
	}
}

// Handle executes the update entity command
func (h *UpdateEntityHandler) Handle(ctx context.Context, cmd commands.UpdateEntityCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(cmd.WorkspaceID)
	if err != nil {
		return err
	}

	entityID, err := valueobjects.NewEntityIDFromString(cmd.EntityID)
	if err != nil {
		return err
	}

	workspace, err := h.authService.RequireAction(ctx, workspaceID, cmd.UserID, policies.ActionWrite)
	if err != nil {
		return err
	}

	entity, err := h.entityRepo.GetByID(ctx, workspaceID, entityID)
	if err != nil {
		return err
	}

	if cmd.Properties != nil {
		def, err := h.schemaService.ActiveSchema(ctx, workspace)
		if err != nil {
			return err
		}

		properties, err := h.schemaValidator.ValidateEntity(def, entity.EntityType(), valueobjects.NewPropertyBag(cmd.Properties))
		if err != nil {
			return err
		}

		if err := entity.UpdateProperties(properties, def.Version, cmd.UserID); err != nil {
			return err
		}
	}

	if cmd.Name != nil {
		if err := entity.RenameWithConfig(*cmd.Name, cmd.UserID, h.cfg); err != nil {
			return err
		}
	}

	if err := h.entityRepo.Save(ctx, entity); err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}

	publishEvents(ctx, h.eventBus, h.logger, entity.GetUncommittedEvents())
	entity.MarkEventsAsCommitted()

	h.logger.Info("Entity updated",
		zap.String("workspaceID", workspaceID.String()),
		zap.String("entityID", entityID.String()),
		zap.Int("version", entity.Version()),
		zap.String("updatedBy", cmd.UserID),
	)

	return nil
}

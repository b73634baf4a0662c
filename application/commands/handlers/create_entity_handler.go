package handlers

import (
	"context"
	"fmt"

	"lattice/application/commands"
	"lattice/application/ports"
	"lattice/application/services"
	"lattice/domain/config"
	"lattice/domain/core/entities"
	"lattice/domain/core/policies"
	"lattice/domain/core/validators"
	"lattice/domain/core/valueobjects"
	pkgerrors "lattice/pkg/errors"
	"go.uber.org/zap"
)

// CreateEntityHandler handles entity creation commands
type CreateEntityHandler struct {
	authService     *services.AuthorizationService
	schemaService   *services.SchemaService
	schemaValidator *validators.SchemaValidator
	workspaceRepo   ports.WorkspaceRepository
	entityRepo      ports.EntityRepository
	eventBus        ports.EventBus
	cfg             *config.DomainConfig
	logger          *zap.Logger
}

// NewCreateEntityHandler creates a new create entity handler
func NewCreateEntityHandler(
	authService *services.AuthorizationService,
	schemaService *services.SchemaService,
	schemaValidator *validators.SchemaValidator,
	workspaceRepo ports.WorkspaceRepository,
	entityRepo ports.EntityRepository,
	eventBus ports.EventBus,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *CreateEntityHandler {
	return &CreateEntityHandler{
		authService:     authService,
		schemaService:   schemaService,
		schemaValidator: schemaValidator,
		workspaceRepo:   workspaceRepo,
		entityRepo:      entityRepo,
		eventBus:        eventBus,
		cfg:             cfg,
		logger:          logger,
	}
}

// Handle executes the create entity command
func (h *CreateEntityHandler) Handle(ctx context.Context, cmd commands.CreateEntityCommand) error {
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

	def, err := h.schemaService.ActiveSchema(ctx, workspace)
	if err != nil {
		return err
	}

	stats, err := h.workspaceRepo.GetStats(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to read workspace stats: %w", err)
	}
	if stats.EntityCount >= int64(h.cfg.MaxEntitiesPerWorkspace) {
		return pkgerrors.NewDomainError(pkgerrors.DomainBusinessRuleError, "ENTITY_LIMIT_EXCEEDED",
			"Maximum number of entities in workspace exceeded").
			WithDetail("limit", h.cfg.MaxEntitiesPerWorkspace)
	}

	properties, err := h.schemaValidator.ValidateEntity(def, cmd.EntityType, valueobjects.NewPropertyBag(cmd.Properties))
	if err != nil {
		return err
	}

	entity, err := entities.NewEntityWithID(entityID, workspaceID, cmd.EntityType, cmd.Name, properties, def.Version, cmd.UserID, h.cfg)
	if err != nil {
		return err
	}

	if err := h.entityRepo.Save(ctx, entity); err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}

	publishEvents(ctx, h.eventBus, h.logger, entity.GetUncommittedEvents())
	entity.MarkEventsAsCommitted()

	h.logger.Info("Entity created",
		zap.String("workspaceID", workspaceID.String()),
		zap.String("entityID", entity.ID().String()),
		zap.String("entityType", cmd.EntityType),
		zap.Int("schemaVersion", def.Version),
		zap.String("createdBy", cmd.UserID),
	)

	return nil
}

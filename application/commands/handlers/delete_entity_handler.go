package handlers

import (
	"context"
	"fmt"
	"time"

	"lattice/application/commands"
	"lattice/application/ports"
	"lattice/application/services"
	"lattice/domain/core/policies"
	"lattice/domain/core/valueobjects"
	"lattice/domain/events"
	"go.uber.org/zap"
)

// DeleteEntityHandler handles entity deletion commands. The repository
// removes the entity and every edge touching it in one atomic operation.
type DeleteEntityHandler struct {
	authService *services.AuthorizationService
	entityRepo  ports.EntityRepository
	eventBus    ports.EventBus
	logger      *zap.Logger
}

// NewDeleteEntityHandler creates a new delete entity handler
func NewDeleteEntityHandler(
	authService *services.AuthorizationService,
	entityRepo ports.EntityRepository,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *DeleteEntityHandler {
	return &DeleteEntityHandler{
		authService: authService,
		entityRepo:  entityRepo,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// Handle executes the delete entity command
func (h *DeleteEntityHandler) Handle(ctx context.Context, cmd commands.DeleteEntityCommand) error {
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

	if _, err := h.authService.RequireAction(ctx, workspaceID, cmd.UserID, policies.ActionWrite); err != nil {
		return err
	}

	entity, err := h.entityRepo.GetByID(ctx, workspaceID, entityID)
	if err != nil {
		return err
	}

	removedEdges, err := h.entityRepo.Delete(ctx, workspaceID, entityID)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	publishEvent(ctx, h.eventBus, h.logger,
		events.NewEntityDeleted(entityID, workspaceID, entity.EntityType(), cmd.UserID, removedEdges, time.Now()))

	h.logger.Info("Entity deleted",
		zap.String("workspaceID", workspaceID.String()),
		zap.String("entityID", entityID.String()),
		zap.Int("removedEdges", removedEdges),
		zap.String("deletedBy", cmd.UserID),
	)

	return nil
}

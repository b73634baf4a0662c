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

// DeleteEdgeHandler handles edge deletion commands
type DeleteEdgeHandler struct {
	authService *services.AuthorizationService
	edgeRepo    ports.EdgeRepository
	eventBus    ports.EventBus
	logger      *zap.Logger
}

// NewDeleteEdgeHandler creates a new delete edge handler
func NewDeleteEdgeHandler(
	authService *services.AuthorizationService,
	edgeRepo ports.EdgeRepository,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *DeleteEdgeHandler {
	return &DeleteEdgeHandler{
		authService: authService,
		edgeRepo:    edgeRepo,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// Handle executes the delete edge command
func (h *DeleteEdgeHandler) Handle(ctx context.Context, cmd commands.DeleteEdgeCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(cmd.WorkspaceID)
	if err != nil {
		return err
	}

	edgeID, err := valueobjects.NewEdgeIDFromString(cmd.EdgeID)
	if err != nil {
		return err
	}

	if _, err := h.authService.RequireAction(ctx, workspaceID, cmd.UserID, policies.ActionWrite); err != nil {
		return err
	}

	edge, err := h.edgeRepo.GetByID(ctx, workspaceID, edgeID)
	if err != nil {
		return err
	}

	if err := h.edgeRepo.Delete(ctx, workspaceID, edgeID); err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}

	publishEvent(ctx, h.eventBus, h.logger,
		events.NewEdgeDeleted(edgeID, workspaceID, edge.EdgeType(), edge.SourceID(), edge.TargetID(), cmd.UserID, time.Now()))

	h.logger.Info("Edge deleted",
		zap.String("workspaceID", workspaceID.String()),
		zap.String("edgeID", edgeID.String()),
		zap.String("deletedBy", cmd.UserID),
	)

	return nil
}

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

// DeleteWorkspaceHandler handles workspace deletion commands. Deletion
// cascades to schemas, entities and edges through the repository.
type DeleteWorkspaceHandler struct {
	authService   *services.AuthorizationService
	workspaceRepo ports.WorkspaceRepository
	eventBus      ports.EventBus
	logger        *zap.Logger
}

// NewDeleteWorkspaceHandler creates a new delete workspace handler
func NewDeleteWorkspaceHandler(
	authService *services.AuthorizationService,
	workspaceRepo ports.WorkspaceRepository,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *DeleteWorkspaceHandler {
	return &DeleteWorkspaceHandler{
		authService:   authService,
		workspaceRepo: workspaceRepo,
		eventBus:      eventBus,
		logger:        logger,
	}
}

// Handle executes the delete workspace command
func (h *DeleteWorkspaceHandler) Handle(ctx context.Context, cmd commands.DeleteWorkspaceCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(cmd.WorkspaceID)
	if err != nil {
		return err
	}

	workspace, err := h.authService.RequireAction(ctx, workspaceID, cmd.UserID, policies.ActionDeleteWorkspace)
	if err != nil {
		return err
	}

	if err := h.workspaceRepo.Delete(ctx, workspaceID); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	publishEvent(ctx, h.eventBus, h.logger, events.NewWorkspaceDeleted(workspaceID, cmd.UserID, time.Now()))

	h.logger.Info("Workspace deleted",
		zap.String("workspaceID", workspaceID.String()),
		zap.String("deletedBy", cmd.UserID),
		zap.Int("members", workspace.MemberCount()),
	)

	return nil
}

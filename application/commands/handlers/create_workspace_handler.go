package handlers

import (
	"context"
	"fmt"

	"lattice/application/commands"
	"lattice/application/ports"
	"lattice/domain/config"
	"lattice/domain/core/entities"
	"lattice/domain/core/valueobjects"
	"go.uber.org/zap"
)

// CreateWorkspaceHandler handles workspace creation commands
type CreateWorkspaceHandler struct {
	workspaceRepo ports.WorkspaceRepository
	eventBus      ports.EventBus
	cfg           *config.DomainConfig
	logger        *zap.Logger
}

// NewCreateWorkspaceHandler creates a new create workspace handler
func NewCreateWorkspaceHandler(
	workspaceRepo ports.WorkspaceRepository,
	eventBus ports.EventBus,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *CreateWorkspaceHandler {
	return &CreateWorkspaceHandler{
		workspaceRepo: workspaceRepo,
		eventBus:      eventBus,
		cfg:           cfg,
		logger:        logger,
	}
}

// Handle executes the create workspace command
func (h *CreateWorkspaceHandler) Handle(ctx context.Context, cmd commands.CreateWorkspaceCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(cmd.WorkspaceID)
	if err != nil {
		return err
	}

	workspace, err := entities.NewWorkspaceWithID(workspaceID, cmd.Name, cmd.UserID, h.cfg)
	if err != nil {
		return err
	}

	if err := h.workspaceRepo.Save(ctx, workspace); err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}

	publishEvents(ctx, h.eventBus, h.logger, workspace.GetUncommittedEvents())
	workspace.MarkEventsAsCommitted()

	h.logger.Info("Workspace created",
		zap.String("workspaceID", workspace.ID().String()),
		zap.String("ownerID", cmd.UserID),
	)

	return nil
}

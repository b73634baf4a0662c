package handlers

import (
	"context"
	"fmt"

	"lattice/application/commands"
	"lattice/application/ports"
	"lattice/application/services"
	"lattice/domain/config"
	"lattice/domain/core/policies"
	"lattice/domain/core/valueobjects"
	"go.uber.org/zap"
)

// AddMemberHandler handles member addition commands
type AddMemberHandler struct {
	authService   *services.AuthorizationService
	workspaceRepo ports.WorkspaceRepository
	eventBus      ports.EventBus
	cfg           *config.DomainConfig
	logger        *zap.Logger
}

// NewAddMemberHandler creates a new add member handler
func NewAddMemberHandler(
	authService *services.AuthorizationService,
	workspaceRepo ports.WorkspaceRepository,
	eventBus ports.EventBus,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *AddMemberHandler {
	return &AddMemberHandler{
		authService:   authService,
		workspaceRepo: workspaceRepo,
		eventBus:      eventBus,
		cfg:           cfg,
		logger:        logger,
	}
}

// Handle executes the add member command
func (h *AddMemberHandler) Handle(ctx context.Context, cmd commands.AddMemberCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(cmd.WorkspaceID)
	if err != nil {
		return err
	}

	role, err := policies.ParseRole(cmd.Role)
	if err != nil {
		return err
	}

	workspace, err := h.authService.RequireAction(ctx, workspaceID, cmd.UserID, policies.ActionManageMembers)
	if err != nil {
		return err
	}

	if err := workspace.AddMemberWithConfig(cmd.MemberID, role, cmd.UserID, h.cfg); err != nil {
		return err
	}

	if err := h.workspaceRepo.Save(ctx, workspace); err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}

	publishEvents(ctx, h.eventBus, h.logger, workspace.GetUncommittedEvents())
	workspace.MarkEventsAsCommitted()

	h.logger.Info("Member added",
		zap.String("workspaceID", workspaceID.String()),
		zap.String("memberID", cmd.MemberID),
		zap.String("role", string(role)),
		zap.String("addedBy", cmd.UserID),
	)

	return nil
}

// RemoveMemberHandler handles member removal commands
type RemoveMemberHandler struct {
	authService   *services.AuthorizationService
	workspaceRepo ports.WorkspaceRepository
	eventBus      ports.EventBus
	logger        *zap.Logger
}

// NewRemoveMemberHandler creates a new remove member handler
func NewRemoveMemberHandler(
	authService *services.AuthorizationService,
	workspaceRepo ports.WorkspaceRepository,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *RemoveMemberHandler {
	return &RemoveMemberHandler{
		authService:   authService,
		workspaceRepo: workspaceRepo,
		eventBus:      eventBus,
		logger:        logger,
	}
}

// Handle executes the remove member command. Members may remove themselves
// regardless of role; removing anyone else requires manage_members.
func (h *RemoveMemberHandler) Handle(ctx context.Context, cmd commands.RemoveMemberCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(cmd.WorkspaceID)
	if err != nil {
		return err
	}

	action := policies.ActionManageMembers
	if cmd.MemberID == cmd.UserID {
		action = policies.ActionRead
	}

	workspace, err := h.authService.RequireAction(ctx, workspaceID, cmd.UserID, action)
	if err != nil {
		return err
	}

	if err := workspace.RemoveMember(cmd.MemberID, cmd.UserID); err != nil {
		return err
	}

	if err := h.workspaceRepo.Save(ctx, workspace); err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}

	publishEvents(ctx, h.eventBus, h.logger, workspace.GetUncommittedEvents())
	workspace.MarkEventsAsCommitted()

	h.logger.Info("Member removed",
		zap.String("workspaceID", workspaceID.String()),
		zap.String("memberID", cmd.MemberID),
		zap.String("removedBy", cmd.UserID),
	)

	return nil
}

// ChangeMemberRoleHandler handles member role change commands
type ChangeMemberRoleHandler struct {
	authService   *services.AuthorizationService
	workspaceRepo ports.WorkspaceRepository
	eventBus      ports.EventBus
	logger        *zap.Logger
}

// NewChangeMemberRoleHandler creates a new change member role handler
func NewChangeMemberRoleHandler(
	authService *services.AuthorizationService,
	workspaceRepo ports.WorkspaceRepository,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *ChangeMemberRoleHandler {
	return &ChangeMemberRoleHandler{
		authService:   authService,
		workspaceRepo: workspaceRepo,
		eventBus:      eventBus,
		logger:        logger,
	}
}

// Handle executes the change member role command
func (h *ChangeMemberRoleHandler) Handle(ctx context.Context, cmd commands.ChangeMemberRoleCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(cmd.WorkspaceID)
	if err != nil {
		return err
	}

	role, err := policies.ParseRole(cmd.Role)
	if err != nil {
		return err
	}

	workspace, err := h.authService.RequireAction(ctx, workspaceID, cmd.UserID, policies.ActionManageMembers)
	if err != nil {
		return err
	}

	if err := workspace.ChangeMemberRole(cmd.MemberID, role, cmd.UserID); err != nil {
		return err
	}

	if err := h.workspaceRepo.Save(ctx, workspace); err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}

	publishEvents(ctx, h.eventBus, h.logger, workspace.GetUncommittedEvents())
	workspace.MarkEventsAsCommitted()

	h.logger.Info("Member role changed",
		zap.String("workspaceID", workspaceID.String()),
		zap.String("memberID", cmd.MemberID),
		zap.String("role", string(role)),
		zap.String("changedBy", cmd.UserID),
	)

	return nil
}

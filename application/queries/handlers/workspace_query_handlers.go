package handlers

import (
	"context"
	"fmt"

	"lattice/application/ports"
	"lattice/application/queries"
	"lattice/application/services"
	"lattice/domain/core/policies"
	"lattice/domain/core/valueobjects"
	"go.uber.org/zap"
)

// GetWorkspaceHandler handles single-workspace queries
type GetWorkspaceHandler struct {
	authService   *services.AuthorizationService
	workspaceRepo ports.WorkspaceRepository
	logger        *zap.Logger
}

// NewGetWorkspaceHandler creates a new get workspace handler
func NewGetWorkspaceHandler(
	authService *services.AuthorizationService,
	workspaceRepo ports.WorkspaceRepository,
	logger *zap.Logger,
) *GetWorkspaceHandler {
	return &GetWorkspaceHandler{
		authService:   authService,
		workspaceRepo: workspaceRepo,
		logger:        logger,
	}
}

// Handle executes the get workspace query
func (h *GetWorkspaceHandler) Handle(ctx context.Context, query queries.GetWorkspaceQuery) (*queries.GetWorkspaceResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(query.WorkspaceID)
	if err != nil {
		return nil, err
	}

	workspace, err := h.authService.RequireAction(ctx, workspaceID, query.UserID, policies.ActionRead)
	if err != nil {
		return nil, err
	}

	result := &queries.GetWorkspaceResult{
		WorkspaceResult: queries.NewWorkspaceResult(workspace, query.UserID),
	}

	stats, err := h.workspaceRepo.GetStats(ctx, workspaceID)
	if err != nil {
		h.logger.Warn("Failed to read workspace stats",
			zap.String("workspaceID", workspaceID.String()),
			zap.Error(err),
		)
		return result, nil
	}
	result.EntityCount = stats.EntityCount
	result.EdgeCount = stats.EdgeCount

	return result, nil
}

// ListWorkspacesHandler handles workspace listing queries
type ListWorkspacesHandler struct {
	workspaceRepo ports.WorkspaceRepository
	logger        *zap.Logger
}

// NewListWorkspacesHandler creates a new list workspaces handler
func NewListWorkspacesHandler(
	workspaceRepo ports.WorkspaceRepository,
	logger *zap.Logger,
) *ListWorkspacesHandler {
	return &ListWorkspacesHandler{
		workspaceRepo: workspaceRepo,
		logger:        logger,
	}
}

// Handle executes the list workspaces query
func (h *ListWorkspacesHandler) Handle(ctx context.Context, query queries.ListWorkspacesQuery) (*queries.ListWorkspacesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	workspaces, err := h.workspaceRepo.ListByUser(ctx, query.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	result := &queries.ListWorkspacesResult{
		Workspaces: make([]queries.WorkspaceResult, 0, len(workspaces)),
		Total:      len(workspaces),
	}
	for _, workspace := range workspaces {
		result.Workspaces = append(result.Workspaces, queries.NewWorkspaceResult(workspace, query.UserID))
	}

	return result, nil
}

// ListMembersHandler handles workspace member listing queries
type ListMembersHandler struct {
	authService *services.AuthorizationService
	logger      *zap.Logger
}

// NewListMembersHandler creates a new list members handler
func NewListMembersHandler(
	authService *services.AuthorizationService,
	logger *zap.Logger,
) *ListMembersHandler {
	return &ListMembersHandler{
		authService: authService,
		logger:      logger,
	}
}

// Handle executes the list members query
func (h *ListMembersHandler) Handle(ctx context.Context, query queries.ListMembersQuery) (*queries.ListMembersResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(query.WorkspaceID)
	if err != nil {
		return nil, err
	}

	workspace, err := h.authService.RequireAction(ctx, workspaceID, query.UserID, policies.ActionRead)
	if err != nil {
		return nil, err
	}

	members := workspace.Members()
	result := &queries.ListMembersResult{
		Members: make([]queries.MemberResult, 0, len(members)),
		Total:   len(members),
	}
	for _, member := range members {
		result.Members = append(result.Members, queries.NewMemberResult(member))
	}

	return result, nil
}

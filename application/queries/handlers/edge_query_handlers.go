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

// GetEdgeHandler handles single-edge queries
type GetEdgeHandler struct {
	authService *services.AuthorizationService
	edgeRepo    ports.EdgeRepository
	logger      *zap.Logger
}

// NewGetEdgeHandler creates a new get edge handler
func NewGetEdgeHandler(
	authService *services.AuthorizationService,
	edgeRepo ports.EdgeRepository,
	logger *zap.Logger,
) *GetEdgeHandler {
	return &GetEdgeHandler{
		authService: authService,
		edgeRepo:    edgeRepo,
		logger:      logger,
	}
}

// Handle executes the get edge query
func (h *GetEdgeHandler) Handle(ctx context.Context, query queries.GetEdgeQuery) (*queries.EdgeResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(query.WorkspaceID)
	if err != nil {
		return nil, err
	}

	edgeID, err := valueobjects.NewEdgeIDFromString(query.EdgeID)
	if err != nil {
		return nil, err
	}

	if _, err := h.authService.RequireAction(ctx, workspaceID, query.UserID, policies.ActionRead); err != nil {
		return nil, err
	}

	edge, err := h.edgeRepo.GetByID(ctx, workspaceID, edgeID)
	if err != nil {
		return nil, err
	}

	result := queries.NewEdgeResult(edge)
	return &result, nil
}

// ListEdgesHandler handles edge listing queries
type ListEdgesHandler struct {
	authService *services.AuthorizationService
	edgeRepo    ports.EdgeRepository
	logger      *zap.Logger
}

// NewListEdgesHandler creates a new list edges handler
func NewListEdgesHandler(
	authService *services.AuthorizationService,
	edgeRepo ports.EdgeRepository,
	logger *zap.Logger,
) *ListEdgesHandler {
	return &ListEdgesHandler{
		authService: authService,
		edgeRepo:    edgeRepo,
		logger:      logger,
	}
}

// Handle executes the list edges query
func (h *ListEdgesHandler) Handle(ctx context.Context, query queries.ListEdgesQuery) (*queries.ListEdgesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(query.WorkspaceID)
	if err != nil {
		return nil, err
	}

	if _, err := h.authService.RequireAction(ctx, workspaceID, query.UserID, policies.ActionRead); err != nil {
		return nil, err
	}

	limit, offset := clampPage(query.Limit, query.Offset)
	criteria := ports.EdgeListCriteria{
		Limit:  limit,
		Offset: offset,
	}
	if query.EntityID != "" {
		entityID, err := valueobjects.NewEntityIDFromString(query.EntityID)
		if err != nil {
			return nil, err
		}
		criteria.EntityID = &entityID
	}

	edges, total, err := h.edgeRepo.List(ctx, workspaceID, criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}

	result := &queries.ListEdgesResult{
		Edges:  make([]queries.EdgeResult, 0, len(edges)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, edge := range edges {
		result.Edges = append(result.Edges, queries.NewEdgeResult(edge))
	}

	return result, nil
}

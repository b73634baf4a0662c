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

// GetNeighborsHandler handles adjacency queries
type GetNeighborsHandler struct {
	authService *services.AuthorizationService
	graphRepo   ports.GraphRepository
	policy      *policies.TraversalPolicy
	logger      *zap.Logger
}

// NewGetNeighborsHandler creates a new get neighbors handler
func NewGetNeighborsHandler(
	authService *services.AuthorizationService,
	graphRepo ports.GraphRepository,
	policy *policies.TraversalPolicy,
	logger *zap.Logger,
) *GetNeighborsHandler {
	return &GetNeighborsHandler{
		authService: authService,
		graphRepo:   graphRepo,
		policy:      policy,
		logger:      logger,
	}
}

// Handle executes the get neighbors query
func (h *GetNeighborsHandler) Handle(ctx context.Context, query queries.GetNeighborsQuery) (*queries.GetNeighborsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(query.WorkspaceID)
	if err != nil {
		return nil, err
	}

	entityID, err := valueobjects.NewEntityIDFromString(query.EntityID)
	if err != nil {
		return nil, err
	}

	params, err := h.policy.Normalize(0, query.Limit, query.Offset, query.Direction)
	if err != nil {
		return nil, err
	}

	if _, err := h.authService.RequireAction(ctx, workspaceID, query.UserID, policies.ActionRead); err != nil {
		return nil, err
	}

	neighbors, total, err := h.graphRepo.Neighbors(ctx, workspaceID, entityID, params.Direction, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}

	result := &queries.GetNeighborsResult{
		Neighbors: make([]queries.NeighborResult, 0, len(neighbors)),
		Total:     total,
		Limit:     params.Limit,
		Offset:    params.Offset,
	}
	for _, neighbor := range neighbors {
		result.Neighbors = append(result.Neighbors, queries.NewNeighborResult(neighbor))
	}

	return result, nil
}

// FindPathHandler handles shortest-path queries
type FindPathHandler struct {
	authService *services.AuthorizationService
	graphRepo   ports.GraphRepository
	policy      *policies.TraversalPolicy
	logger      *zap.Logger
}

// NewFindPathHandler creates a new find path handler
func NewFindPathHandler(
	authService *services.AuthorizationService,
	graphRepo ports.GraphRepository,
	policy *policies.TraversalPolicy,
	logger *zap.Logger,
) *FindPathHandler {
	return &FindPathHandler{
		authService: authService,
		graphRepo:   graphRepo,
		policy:      policy,
		logger:      logger,
	}
}

// Handle executes the find path query
func (h *FindPathHandler) Handle(ctx context.Context, query queries.FindPathQuery) (*queries.FindPathResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(query.WorkspaceID)
	if err != nil {
		return nil, err
	}

	fromID, err := valueobjects.NewEntityIDFromString(query.FromID)
	if err != nil {
		return nil, err
	}

	toID, err := valueobjects.NewEntityIDFromString(query.ToID)
	if err != nil {
		return nil, err
	}

	maxDepth := query.MaxDepth
	if maxDepth <= 0 || maxDepth > h.policy.MaxDepth() {
		maxDepth = h.policy.MaxDepth()
	}

	if _, err := h.authService.RequireAction(ctx, workspaceID, query.UserID, policies.ActionRead); err != nil {
		return nil, err
	}

	steps, err := h.graphRepo.FindPath(ctx, workspaceID, fromID, toID, maxDepth)
	if err != nil {
		return nil, err
	}

	result := &queries.FindPathResult{
		Steps:  make([]queries.PathStepResult, 0, len(steps)),
		Length: len(steps) - 1,
	}
	for _, step := range steps {
		result.Steps = append(result.Steps, queries.NewPathStepResult(step))
	}

	return result, nil
}

// TraverseGraphHandler handles bounded-depth graph expansion queries
type TraverseGraphHandler struct {
	authService *services.AuthorizationService
	graphRepo   ports.GraphRepository
	policy      *policies.TraversalPolicy
	logger      *zap.Logger
}

// NewTraverseGraphHandler creates a new traverse graph handler
func NewTraverseGraphHandler(
	authService *services.AuthorizationService,
	graphRepo ports.GraphRepository,
	policy *policies.TraversalPolicy,
	logger *zap.Logger,
) *TraverseGraphHandler {
	return &TraverseGraphHandler{
		authService: authService,
		graphRepo:   graphRepo,
		policy:      policy,
		logger:      logger,
	}
}

// Handle executes the traverse graph query
func (h *TraverseGraphHandler) Handle(ctx context.Context, query queries.TraverseGraphQuery) (*queries.TraverseGraphResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	workspaceID, err := valueobjects.NewWorkspaceIDFromString(query.WorkspaceID)
	if err != nil {
		return nil, err
	}

	startID, err := valueobjects.NewEntityIDFromString(query.StartID)
	if err != nil {
		return nil, err
	}

	params, err := h.policy.Normalize(query.Depth, query.Limit, query.Offset, query.Direction)
	if err != nil {
		return nil, err
	}

	if _, err := h.authService.RequireAction(ctx, workspaceID, query.UserID, policies.ActionRead); err != nil {
		return nil, err
	}

	traversal, err := h.graphRepo.Traverse(ctx, workspaceID, startID, params)
	if err != nil {
		return nil, err
	}

	result := &queries.TraverseGraphResult{
		Nodes:     make([]queries.TraversalNodeResult, 0, len(traversal.Nodes)),
		Edges:     make([]queries.EdgeResult, 0, len(traversal.Edges)),
		Truncated: traversal.Truncated,
	}
	for _, node := range traversal.Nodes {
		result.Nodes = append(result.Nodes, queries.NewTraversalNodeResult(node))
	}
	for _, edge := range traversal.Edges {
		result.Edges = append(result.Edges, queries.NewEdgeResult(edge))
	}

	h.logger.Debug("Graph traversed",
		zap.String("workspaceID", workspaceID.String()),
		zap.String("startID", startID.String()),
		zap.Int("nodes", len(result.Nodes)),
		zap.Int("edges", len(result.Edges)),
		zap.Bool("truncated", result.Truncated),
	)

	return result, nil
}

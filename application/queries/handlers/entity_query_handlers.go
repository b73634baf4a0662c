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

// GetEntityHandler handles single-entity queries
type GetEntityHandler struct {
	authService *services.AuthorizationService
	entityRepo  ports.EntityRepository
	logger      *zap.Logger
}

// NewGetEntityHandler creates a new get entity handler
func NewGetEntityHandler(
	authService *services.AuthorizationService,
	entityRepo ports.EntityRepository,
	logger *zap.Logger,
) *GetEntityHandler {
	return &GetEntityHandler{
		authService: authService,
		entityRepo:  entityRepo,
		logger:      logger,
	}
}

// Handle executes the get entity query
func (h *GetEntityHandler) Handle(ctx context.Context, query queries.GetEntityQuery) (*queries.EntityResult, error) {
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

	if _, err := h.authService.RequireAction(ctx, workspaceID, query.UserID, policies.ActionRead); err != nil {
		return nil, err
	}

	entity, err := h.entityRepo.GetByID(ctx, workspaceID, entityID)
	if err != nil {
		return nil, err
	}

	result := queries.NewEntityResult(entity)
	return &result, nil
}

// ListEntitiesHandler handles entity listing queries
type ListEntitiesHandler struct {
	authService *services.AuthorizationService
	entityRepo  ports.EntityRepository
	logger      *zap.Logger
}

// NewListEntitiesHandler creates a new list entities handler
func NewListEntitiesHandler(
	authService *services.AuthorizationService,
	entityRepo ports.EntityRepository,
	logger *zap.Logger,
) *ListEntitiesHandler {
	return &ListEntitiesHandler{
		authService: authService,
		entityRepo:  entityRepo,
		logger:      logger,
	}
}

// Handle executes the list entities query
func (h *ListEntitiesHandler) Handle(ctx context.Context, query queries.ListEntitiesQuery) (*queries.ListEntitiesResult, error) {
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
	entities, total, err := h.entityRepo.List(ctx, workspaceID, ports.EntityListCriteria{
		EntityType: query.EntityType,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	result := &queries.ListEntitiesResult{
		Entities: make([]queries.EntityResult, 0, len(entities)),
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}
	for _, entity := range entities {
		result.Entities = append(result.Entities, queries.NewEntityResult(entity))
	}

	return result, nil
}

package handlers

import (
	"context"
	"fmt"
	"time"

	"lattice/application/ports"
	"lattice/application/queries"
	"lattice/application/services"
	"lattice/domain/core/policies"
	"lattice/domain/core/schema"
	"lattice/domain/core/valueobjects"
	"go.uber.org/zap"
)

// GetSchemaHandler handles schema version queries
type GetSchemaHandler struct {
	authService   *services.AuthorizationService
	schemaService *services.SchemaService
	logger        *zap.Logger
}

// NewGetSchemaHandler creates a new get schema handler
func NewGetSchemaHandler(
	authService *services.AuthorizationService,
	schemaService *services.SchemaService,
	logger *zap.Logger,
) *GetSchemaHandler {
	return &GetSchemaHandler{
		authService:   authService,
		schemaService: schemaService,
		logger:        logger,
	}
}

// Handle executes the get schema query
func (h *GetSchemaHandler) Handle(ctx context.Context, query queries.GetSchemaQuery) (*queries.GetSchemaResult, error) {
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

	var def *schema.SchemaDefinition
	if query.Version == 0 {
		def, err = h.schemaService.ActiveSchema(ctx, workspace)
	} else {
		def, err = h.schemaService.Version(ctx, workspaceID, query.Version)
	}
	if err != nil {
		return nil, err
	}

	return &queries.GetSchemaResult{
		Version:     def.Version,
		Name:        def.Name,
		EntityTypes: def.EntityTypes,
		EdgeTypes:   def.EdgeTypes,
		PublishedBy: def.PublishedBy,
		PublishedAt: def.PublishedAt.Format(time.RFC3339),
		Active:      def.Version == workspace.ActiveSchemaVersion(),
	}, nil
}

// ListSchemaVersionsHandler handles schema version listing queries
type ListSchemaVersionsHandler struct {
	authService *services.AuthorizationService
	schemaRepo  ports.SchemaRepository
	logger      *zap.Logger
}

// NewListSchemaVersionsHandler creates a new list schema versions handler
func NewListSchemaVersionsHandler(
	authService *services.AuthorizationService,
	schemaRepo ports.SchemaRepository,
	logger *zap.Logger,
) *ListSchemaVersionsHandler {
	return &ListSchemaVersionsHandler{
		authService: authService,
		schemaRepo:  schemaRepo,
		logger:      logger,
	}
}

// Handle executes the list schema versions query
func (h *ListSchemaVersionsHandler) Handle(ctx context.Context, query queries.ListSchemaVersionsQuery) (*queries.ListSchemaVersionsResult, error) {
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

	versions, err := h.schemaRepo.ListVersions(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema versions: %w", err)
	}

	return &queries.ListSchemaVersionsResult{
		Versions:      versions,
		ActiveVersion: workspace.ActiveSchemaVersion(),
		Total:         len(versions),
	}, nil
}

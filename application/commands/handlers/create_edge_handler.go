package handlers

import (
	"context"
	"fmt"

	"lattice/application/commands"
	"lattice/application/ports"
	"lattice/application/services"
	"lattice/domain/config"
	"lattice/domain/core/entities"
	"lattice/domain/core/policies"
	"lattice/domain/core/validators"
	"lattice/domain/core/valueobjects"
	pkgerrors "lattice/pkg/errors"
	"go.uber.org/zap"
)

// CreateEdgeHandler handles edge creation commands. Both endpoints must
// exist in the workspace; the edge type and endpoint entity types are
// checked against the active schema before the edge is stored.
type CreateEdgeHandler struct {
	authService     *services.AuthorizationService
	schemaService   *services.SchemaService
	schemaValidator *validators.SchemaValidator
	workspaceRepo   ports.WorkspaceRepository
	entityRepo      ports.EntityRepository
	edgeRepo        ports.EdgeRepository
	eventBus        ports.EventBus
	cfg             *config.DomainConfig
	logger          *zap.Logger
}

// NewCreateEdgeHandler creates a new create edge handler
func NewCreateEdgeHandler(
	authService *services.AuthorizationService,
	schemaService *services.SchemaService,
	schemaValidator *validators.SchemaValidator,
	workspaceRepo ports.WorkspaceRepository,
	entityRepo ports.EntityRepository,
	edgeRepo ports.EdgeRepository,
	eventBus ports.EventBus,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *CreateEdgeHandler {
	return &CreateEdgeHandler{
		authService:     authService,
		schemaService:   schemaService,
		schemaValidator: schemaValidator,
		workspaceRepo:   workspaceRepo,
		entityRepo:      entityRepo,
		edgeRepo:        edgeRepo,
		eventBus:        eventBus,
		cfg:             cfg,
		logger:          logger,
	}
}

// Handle executes the create edge command
func (h *CreateEdgeHandler) Handle(ctx context.Context, cmd commands.CreateEdgeCommand) error {
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

	sourceID, err := valueobjects.NewEntityIDFromString(cmd.SourceID)
	if err != nil {
		return err
	}

	targetID, err := valueobjects.NewEntityIDFromString(cmd.TargetID)
	if err != nil {
		return err
	}

	workspace, err := h.authService.RequireAction(ctx, workspaceID, cmd.UserID, policies.ActionWrite)
	if err != nil {
		return err
	}

	def, err := h.schemaService.ActiveSchema(ctx, workspace)
	if err != nil {
		return err
	}

	stats, err := h.workspaceRepo.GetStats(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to read workspace stats: %w", err)
	}
	if stats.EdgeCount >= int64(h.cfg.MaxEdgesPerWorkspace) {
		return pkgerrors.NewDomainError(pkgerrors.DomainBusinessRuleError, "EDGE_LIMIT_EXCEEDED",
			"Maximum number of edges in workspace exceeded").
			WithDetail("limit", h.cfg.MaxEdgesPerWorkspace)
	}

	source, err := h.entityRepo.GetByID(ctx, workspaceID, sourceID)
	if err != nil {
		return err
	}

	target, err := h.entityRepo.GetByID(ctx, workspaceID, targetID)
	if err != nil {
		return err
	}

	properties, err := h.schemaValidator.ValidateEdge(def, cmd.EdgeType, source.EntityType(), target.EntityType(),
		valueobjects.NewPropertyBag(cmd.Properties))
	if err != nil {
		return err
	}

	if !h.cfg.AllowDuplicateEdges {
		exists, err := h.edgeRepo.ExistsDuplicate(ctx, workspaceID, sourceID, targetID, cmd.EdgeType)
		if err != nil {
			return fmt.Errorf("failed to check for duplicate edge: %w", err)
		}
		if exists {
			return pkgerrors.NewDomainError(pkgerrors.DomainConflictError, "DUPLICATE_EDGE",
				"An edge of this type between these entities already exists").
				WithDetail("edge_type", cmd.EdgeType).
				WithDetail("source_id", cmd.SourceID).
				WithDetail("target_id", cmd.TargetID)
		}
	}

	edge, err := entities.NewEdgeWithID(edgeID, workspaceID, cmd.EdgeType, sourceID, targetID, properties, cmd.UserID, h.cfg)
	if err != nil {
		return err
	}

	if err := h.edgeRepo.Save(ctx, edge); err != nil {
		return fmt.Errorf("failed to save edge: %w", err)
	}

	publishEvents(ctx, h.eventBus, h.logger, edge.GetUncommittedEvents())
	edge.MarkEventsAsCommitted()

	h.logger.Info("Edge created",
		zap.String("workspaceID", workspaceID.String()),
		zap.String("edgeID", edge.ID().String()),
		zap.String("edgeType", cmd.EdgeType),
		zap.String("sourceID", cmd.SourceID),
		zap.String("targetID", cmd.TargetID),
		zap.String("createdBy", cmd.UserID),
	)

	return nil
}

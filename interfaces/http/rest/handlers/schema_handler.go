package handlers

import (
	"net/http"
	"strconv"

	"lattice/application/commands"
	"lattice/application/commands/bus"
	"lattice/application/queries"
	querybus "lattice/application/queries/bus"
	"lattice/domain/core/schema"
	"lattice/pkg/common"
	apperrors "lattice/pkg/errors"

	"go.uber.org/zap"
)

// SchemaHandler handles schema version HTTP requests
type SchemaHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewSchemaHandler creates a new schema handler
func NewSchemaHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *SchemaHandler {
	return &SchemaHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// PublishSchemaRequest is the request body for publishing a schema version.
// The new version is validated as a whole and becomes active on success.
type PublishSchemaRequest struct {
	Name        string                        `json:"name,omitempty" validate:"omitempty,max=120"`
	EntityTypes []schema.EntityTypeDefinition `json:"entity_types"`
	EdgeTypes   []schema.EdgeTypeDefinition   `json:"edge_types"`
}

// GetSchema handles GET /workspaces/{workspaceID}/schema. An absent or
// zero version resolves to the active version.
func (h *SchemaHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	version := 0
	if raw := r.URL.Query().Get("version"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest,
				"version must be a non-negative integer")
			return
		}
		version = parsed
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetSchemaQuery{
		UserID:      user.UserID,
		WorkspaceID: workspaceID,
		Version:     version,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// PublishSchema handles PUT /workspaces/{workspaceID}/schema
func (h *SchemaHandler) PublishSchema(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	var req PublishSchemaRequest
	if !decodeBody(w, r, &req) || !validBody(w, req) {
		return
	}

	cmd := commands.PublishSchemaCommand{
		WorkspaceID: workspaceID,
		UserID:      user.UserID,
		Name:        req.Name,
		EntityTypes: req.EntityTypes,
		EdgeTypes:   req.EdgeTypes,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	// The version number is assigned by the aggregate, so read the now
	// active version back for the response.
	result, err := h.queryBus.Ask(r.Context(), queries.GetSchemaQuery{
		UserID:      user.UserID,
		WorkspaceID: workspaceID,
	})
	if err != nil {
		h.logger.Warn("Published schema could not be read back",
			zap.String("workspaceID", workspaceID),
			zap.Error(err),
		)
		common.RespondJSON(w, http.StatusCreated, map[string]string{
			"workspace_id": workspaceID,
			"message":      "Schema published",
		})
		return
	}

	common.RespondJSON(w, http.StatusCreated, result)
}

// ListSchemaVersions handles GET /workspaces/{workspaceID}/schema/versions
func (h *SchemaHandler) ListSchemaVersions(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListSchemaVersionsQuery{
		UserID:      user.UserID,
		WorkspaceID: workspaceID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

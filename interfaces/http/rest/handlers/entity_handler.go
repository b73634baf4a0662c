package handlers

import (
	"net/http"

	"lattice/application/commands"
	"lattice/application/commands/bus"
	"lattice/application/queries"
	querybus "lattice/application/queries/bus"
	"lattice/pkg/common"
	apperrors "lattice/pkg/errors"
	"lattice/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EntityHandler handles entity HTTP requests
type EntityHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *EntityHandler {
	return &EntityHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// CreateEntityRequest is the request body for creating an entity
type CreateEntityRequest struct {
	EntityType string                 `json:"entity_type" validate:"required,identifier"`
	Name       string                 `json:"name" validate:"required,min=1,max=200"`
	Properties map[string]interface{} `json:"properties"`
}

// CreateEntityResponse returns the server-assigned entity ID
type CreateEntityResponse struct {
	EntityID    string `json:"entity_id"`
	WorkspaceID string `json:"workspace_id"`
	CreatedAt   string `json:"created_at"`
}

// UpdateEntityRequest is the request body for updating an entity. A nil
// field is left untouched; properties replace the stored set wholesale.
type UpdateEntityRequest struct {
	Name       *string                `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// CreateEntity handles POST /workspaces/{workspaceID}/entities
func (h *EntityHandler) CreateEntity(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	var req CreateEntityRequest
	if !decodeBody(w, r, &req) || !validBody(w, req) {
		return
	}

	entityID := uuid.New().String()

	cmd := commands.CreateEntityCommand{
		EntityID:    entityID,
		WorkspaceID: workspaceID,
		UserID:      user.UserID,
		EntityType:  req.EntityType,
		Name:        req.Name,
		Properties:  req.Properties,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, CreateEntityResponse{
		EntityID:    entityID,
		WorkspaceID: workspaceID,
		CreatedAt:   utils.NowRFC3339(),
	})
}

// ListEntities handles GET /workspaces/{workspaceID}/entities
func (h *EntityHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	page := common.ExtractPageRequest(r)

	result, err := h.queryBus.Ask(r.Context(), queries.ListEntitiesQuery{
		UserID:      user.UserID,
		WorkspaceID: workspaceID,
		EntityType:  r.URL.Query().Get("type"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	listing, ok := result.(*queries.ListEntitiesResult)
	if !ok {
		common.RespondJSON(w, http.StatusOK, result)
		return
	}
	respondList(w, r, listing, listing.Limit, listing.Offset, listing.Total)
}

// GetEntity handles GET /workspaces/{workspaceID}/entities/{entityID}
func (h *EntityHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}
	entityID, ok := pathID(w, r, "entityID")
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetEntityQuery{
		UserID:      user.UserID,
		WorkspaceID: workspaceID,
		EntityID:    entityID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// UpdateEntity handles PUT /workspaces/{workspaceID}/entities/{entityID}
func (h *EntityHandler) UpdateEntity(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}
	entityID, ok := pathID(w, r, "entityID")
	if !ok {
		return
	}

	var req UpdateEntityRequest
	if !decodeBody(w, r, &req) || !validBody(w, req) {
		return
	}

	cmd := commands.UpdateEntityCommand{
		WorkspaceID: workspaceID,
		UserID:      user.UserID,
		EntityID:    entityID,
		Name:        req.Name,
		Properties:  req.Properties,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{
		"entity_id": entityID,
		"message":   "Entity updated",
	})
}

// DeleteEntity handles DELETE /workspaces/{workspaceID}/entities/{entityID}.
// Every edge touching the entity is removed with it.
func (h *EntityHandler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}
	entityID, ok := pathID(w, r, "entityID")
	if !ok {
		return
	}

	cmd := commands.DeleteEntityCommand{
		WorkspaceID: workspaceID,
		UserID:      user.UserID,
		EntityID:    entityID,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to delete entity",
			zap.String("entityID", entityID),
			zap.String("workspaceID", workspaceID),
			zap.String("userID", user.UserID),
			zap.Error(err),
		)
		h.errors.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

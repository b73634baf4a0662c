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

// EdgeHandler handles edge HTTP requests
type EdgeHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewEdgeHandler creates a new edge handler
func NewEdgeHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *EdgeHandler {
	return &EdgeHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// CreateEdgeRequest is the request body for creating an edge
type CreateEdgeRequest struct {
	EdgeType   string                 `json:"edge_type" validate:"required,identifier"`
	SourceID   string                 `json:"source_id" validate:"required,uuid"`
	TargetID   string                 `json:"target_id" validate:"required,uuid"`
	Properties map[string]interface{} `json:"properties"`
}

// CreateEdgeResponse returns the server-assigned edge ID
type CreateEdgeResponse struct {
	EdgeID      string `json:"edge_id"`
	WorkspaceID string `json:"workspace_id"`
	CreatedAt   string `json:"created_at"`
}

// CreateEdge handles POST /workspaces/{workspaceID}/edges
func (h *EdgeHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	var req CreateEdgeRequest
	if !decodeBody(w, r, &req) || !validBody(w, req) {
		return
	}

	edgeID := uuid.New().String()

	cmd := commands.CreateEdgeCommand{
		EdgeID:      edgeID,
		WorkspaceID: workspaceID,
		UserID:      user.UserID,
		EdgeType:    req.EdgeType,
		SourceID:    req.SourceID,
		TargetID:    req.TargetID,
		Properties:  req.Properties,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, CreateEdgeResponse{
		EdgeID:      edgeID,
		WorkspaceID: workspaceID,
		CreatedAt:   utils.NowRFC3339(),
	})
}

// ListEdges handles GET /workspaces/{workspaceID}/edges. The optional
// entity parameter restricts the listing to edges touching that entity
// on either end.
func (h *EdgeHandler) ListEdges(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	page := common.ExtractPageRequest(r)

	result, err := h.queryBus.Ask(r.Context(), queries.ListEdgesQuery{
		UserID:      user.UserID,
		WorkspaceID: workspaceID,
		EntityID:    r.URL.Query().Get("entity"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	listing, ok := result.(*queries.ListEdgesResult)
	if !ok {
		common.RespondJSON(w, http.StatusOK, result)
		return
	}
	respondList(w, r, listing, listing.Limit, listing.Offset, listing.Total)
}

// GetEdge handles GET /workspaces/{workspaceID}/edges/{edgeID}
func (h *EdgeHandler) GetEdge(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}
	edgeID, ok := pathID(w, r, "edgeID")
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetEdgeQuery{
		UserID:      user.UserID,
		WorkspaceID: workspaceID,
		EdgeID:      edgeID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// DeleteEdge handles DELETE /workspaces/{workspaceID}/edges/{edgeID}
func (h *EdgeHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}
	edgeID, ok := pathID(w, r, "edgeID")
	if !ok {
		return
	}

	cmd := commands.DeleteEdgeCommand{
		WorkspaceID: workspaceID,
		UserID:      user.UserID,
		EdgeID:      edgeID,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to delete edge",
			zap.String("edgeID", edgeID),
			zap.String("workspaceID", workspaceID),
			zap.String("userID", user.UserID),
			zap.Error(err),
		)
		h.errors.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

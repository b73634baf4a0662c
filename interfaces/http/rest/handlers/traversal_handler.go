package handlers

import (
	"net/http"
	"strconv"

	"lattice/application/queries"
	querybus "lattice/application/queries/bus"
	"lattice/pkg/common"
	apperrors "lattice/pkg/errors"

	"go.uber.org/zap"
)

// TraversalHandler handles graph traversal HTTP requests
type TraversalHandler struct {
	queryBus *querybus.QueryBus
	errors   *apperrors.ErrorHandler
	logger   *zap.Logger
}

// NewTraversalHandler creates a new traversal handler
func NewTraversalHandler(
	queryBus *querybus.QueryBus,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *TraversalHandler {
	return &TraversalHandler{
		queryBus: queryBus,
		errors:   errorHandler,
		logger:   logger,
	}
}

// TraverseGraphRequest is the request body for a bounded subgraph
// expansion from a start entity
type TraverseGraphRequest struct {
	StartID   string `json:"start_id" validate:"required,uuid"`
	Depth     int    `json:"depth" validate:"min=0"`
	Limit     int    `json:"limit" validate:"min=0"`
	Offset    int    `json:"offset" validate:"min=0"`
	Direction string `json:"direction,omitempty"`
}

// GetNeighbors handles GET /workspaces/{workspaceID}/entities/{entityID}/neighbors
func (h *TraversalHandler) GetNeighbors(w http.ResponseWriter, r *http.Request) {
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

	page := common.ExtractPageRequest(r)

	result, err := h.queryBus.Ask(r.Context(), queries.GetNeighborsQuery{
		UserID:      user.UserID,
		WorkspaceID: workspaceID,
		EntityID:    entityID,
		Direction:   r.URL.Query().Get("direction"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	listing, ok := result.(*queries.GetNeighborsResult)
	if !ok {
		common.RespondJSON(w, http.StatusOK, result)
		return
	}
	respondList(w, r, listing, listing.Limit, listing.Offset, listing.Total)
}

// FindPath handles GET /workspaces/{workspaceID}/graph/path. The from and
// to parameters are required; max_depth 0 means the traversal ceiling.
func (h *TraversalHandler) FindPath(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	maxDepth := 0
	if raw := r.URL.Query().Get("max_depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest,
				"max_depth must be a non-negative integer")
			return
		}
		maxDepth = parsed
	}

	result, err := h.queryBus.Ask(r.Context(), queries.FindPathQuery{
		UserID:      user.UserID,
		WorkspaceID: workspaceID,
		FromID:      r.URL.Query().Get("from"),
		ToID:        r.URL.Query().Get("to"),
		MaxDepth:    maxDepth,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// TraverseGraph handles POST /workspaces/{workspaceID}/graph/traverse
func (h *TraversalHandler) TraverseGraph(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	var req TraverseGraphRequest
	if !decodeBody(w, r, &req) || !validBody(w, req) {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.TraverseGraphQuery{
		UserID:      user.UserID,
		WorkspaceID: workspaceID,
		StartID:     req.StartID,
		Depth:       req.Depth,
		Limit:       req.Limit,
		Offset:      req.Offset,
		Direction:   req.Direction,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

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

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkspaceHandler handles workspace and membership HTTP requests
type WorkspaceHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *WorkspaceHandler {
	return &WorkspaceHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// CreateWorkspaceRequest is the request body for creating a workspace
type CreateWorkspaceRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

// CreateWorkspaceResponse returns the server-assigned workspace ID
type CreateWorkspaceResponse struct {
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	CreatedAt   string `json:"created_at"`
}

// AddMemberRequest is the request body for granting a membership
type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=admin member guest"`
}

// ChangeMemberRoleRequest is the request body for changing a member's role
type ChangeMemberRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin member guest"`
}

// CreateWorkspace handles POST /workspaces
func (h *WorkspaceHandler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateWorkspaceRequest
	if !decodeBody(w, r, &req) || !validBody(w, req) {
		return
	}

	// The ID is assigned here so the response can return it without a read back
	workspaceID := uuid.New().String()

	cmd := commands.CreateWorkspaceCommand{
		WorkspaceID: workspaceID,
		UserID:      user.UserID,
		Name:        req.Name,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, CreateWorkspaceResponse{
		WorkspaceID: workspaceID,
		Name:        req.Name,
		CreatedAt:   utils.NowRFC3339(),
	})
}

// ListWorkspaces handles GET /workspaces
func (h *WorkspaceHandler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListWorkspacesQuery{UserID: user.UserID})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetWorkspace handles GET /workspaces/{workspaceID}
func (h *WorkspaceHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetWorkspaceQuery{
		UserID:      user.UserID,
		WorkspaceID: workspaceID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// DeleteWorkspace handles DELETE /workspaces/{workspaceID}
func (h *WorkspaceHandler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	cmd := commands.DeleteWorkspaceCommand{
		WorkspaceID: workspaceID,
		UserID:      user.UserID,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to delete workspace",
			zap.String("workspaceID", workspaceID),
			zap.String("userID", user.UserID),
			zap.Error(err),
		)
		h.errors.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMembers handles GET /workspaces/{workspaceID}/members
func (h *WorkspaceHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListMembersQuery{
		UserID:      user.UserID,
		WorkspaceID: workspaceID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// AddMember handles POST /workspaces/{workspaceID}/members
func (h *WorkspaceHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}

	var req AddMemberRequest
	if !decodeBody(w, r, &req) || !validBody(w, req) {
		return
	}

	cmd := commands.AddMemberCommand{
		WorkspaceID: workspaceID,
		UserID:      user.UserID,
		MemberID:    req.UserID,
		Role:        req.Role,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, map[string]string{
		"workspace_id": workspaceID,
		"user_id":      req.UserID,
		"role":         req.Role,
	})
}

// RemoveMember handles DELETE /workspaces/{workspaceID}/members/{userID}
func (h *WorkspaceHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}
	memberID := chi.URLParam(r, "userID")

	cmd := commands.RemoveMemberCommand{
		WorkspaceID: workspaceID,
		UserID:      user.UserID,
		MemberID:    memberID,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChangeMemberRole handles PUT /workspaces/{workspaceID}/members/{userID}
func (h *WorkspaceHandler) ChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	workspaceID, ok := pathID(w, r, "workspaceID")
	if !ok {
		return
	}
	memberID := chi.URLParam(r, "userID")

	var req ChangeMemberRoleRequest
	if !decodeBody(w, r, &req) || !validBody(w, req) {
		return
	}

	cmd := commands.ChangeMemberRoleCommand{
		WorkspaceID: workspaceID,
		UserID:      user.UserID,
		MemberID:    memberID,
		Role:        req.Role,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{
		"workspace_id": workspaceID,
		"user_id":      memberID,
		"role":         req.Role,
	})
}

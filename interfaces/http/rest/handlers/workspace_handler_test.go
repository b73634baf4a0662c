package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"lattice/application/commands"
	"lattice/application/queries"
	apperrors "lattice/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspaceHandlerUnderTest(env *handlerEnv) *WorkspaceHandler {
	return NewWorkspaceHandler(env.commands, env.queries, env.errors, env.logger)
}

func TestCreateWorkspaceAssignsID(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.CreateWorkspaceCommand{})
	h := newWorkspaceHandlerUnderTest(env)

	rr := httptest.NewRecorder()
	h.CreateWorkspace(rr, authedRequest(http.MethodPost, "/workspaces", `{"name":"Atlas"}`, nil))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := decodeEnvelope(t, rr)
	assert.True(t, body.Success)

	var resp CreateWorkspaceResponse
	require.NoError(t, json.Unmarshal(body.Data, &resp))
	_, err := uuid.Parse(resp.WorkspaceID)
	require.NoError(t, err, "workspace_id must be a server-assigned UUID")
	assert.Equal(t, "Atlas", resp.Name)

	require.Len(t, rec.received, 1)
	cmd := rec.received[0].(commands.CreateWorkspaceCommand)
	assert.Equal(t, resp.WorkspaceID, cmd.WorkspaceID)
	assert.Equal(t, testUserID, cmd.UserID)
	assert.Equal(t, "Atlas", cmd.Name)
}

func TestCreateWorkspaceRejectsMissingName(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.CreateWorkspaceCommand{})
	h := newWorkspaceHandlerUnderTest(env)

	rr := httptest.NewRecorder()
	h.CreateWorkspace(rr, authedRequest(http.MethodPost, "/workspaces", `{}`, nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeEnvelope(t, rr)
	assert.False(t, body.Success)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Empty(t, rec.received, "invalid requests must not reach the bus")
}

func TestCreateWorkspaceRejectsUnknownFields(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.CreateWorkspaceCommand{})
	h := newWorkspaceHandlerUnderTest(env)

	rr := httptest.NewRecorder()
	h.CreateWorkspace(rr, authedRequest(http.MethodPost, "/workspaces", `{"name":"Atlas","color":"red"}`, nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeEnvelope(t, rr)
	assert.Equal(t, "BAD_REQUEST", body.Error.Code)
	assert.Empty(t, rec.received)
}

func TestCreateWorkspaceRequiresUser(t *testing.T) {
	env := newHandlerEnv()
	h := newWorkspaceHandlerUnderTest(env)

	// No user context: the authentication middleware did not run
	rr := httptest.NewRecorder()
	h.CreateWorkspace(rr, httptest.NewRequest(http.MethodPost, "/workspaces", nil))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	body := decodeEnvelope(t, rr)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
}

func TestListWorkspacesReturnsListing(t *testing.T) {
	env := newHandlerEnv()
	stub := env.stubQuery(t, queries.ListWorkspacesQuery{}, &queries.ListWorkspacesResult{
		Workspaces: []queries.WorkspaceResult{{ID: uuid.NewString(), Name: "Atlas", Role: "owner"}},
		Total:      1,
	}, nil)
	h := newWorkspaceHandlerUnderTest(env)

	rr := httptest.NewRecorder()
	h.ListWorkspaces(rr, authedRequest(http.MethodGet, "/workspaces", "", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, stub.received, 1)
	assert.Equal(t, testUserID, stub.received[0].(queries.ListWorkspacesQuery).UserID)

	var result queries.ListWorkspacesResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &result))
	require.Len(t, result.Workspaces, 1)
	assert.Equal(t, "Atlas", result.Workspaces[0].Name)
}

func TestGetWorkspaceRejectsMalformedID(t *testing.T) {
	env := newHandlerEnv()
	h := newWorkspaceHandlerUnderTest(env)

	rr := httptest.NewRecorder()
	h.GetWorkspace(rr, authedRequest(http.MethodGet, "/workspaces/nope", "",
		map[string]string{"workspaceID": "nope"}))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeEnvelope(t, rr).Error.Message, "workspaceID must be a valid UUID")
}

func TestGetWorkspaceMapsNotFound(t *testing.T) {
	env := newHandlerEnv()
	env.stubQuery(t, queries.GetWorkspaceQuery{}, nil,
		apperrors.NewDomainError(apperrors.DomainNotFoundError, "WORKSPACE_NOT_FOUND", "workspace not found"))
	h := newWorkspaceHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.GetWorkspace(rr, authedRequest(http.MethodGet, "/workspaces/"+workspaceID, "",
		map[string]string{"workspaceID": workspaceID}))

	require.Equal(t, http.StatusNotFound, rr.Code)
	body := decodeDomainError(t, rr)
	assert.True(t, body.Error)
	assert.Equal(t, "WORKSPACE_NOT_FOUND", body.Code)
}

func TestDeleteWorkspaceReturnsNoContent(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.DeleteWorkspaceCommand{})
	h := newWorkspaceHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.DeleteWorkspace(rr, authedRequest(http.MethodDelete, "/workspaces/"+workspaceID, "",
		map[string]string{"workspaceID": workspaceID}))

	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())

	require.Len(t, rec.received, 1)
	cmd := rec.received[0].(commands.DeleteWorkspaceCommand)
	assert.Equal(t, workspaceID, cmd.WorkspaceID)
	assert.Equal(t, testUserID, cmd.UserID)
}

func TestAddMemberDispatchesCommand(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.AddMemberCommand{})
	h := newWorkspaceHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.AddMember(rr, authedRequest(http.MethodPost, "/workspaces/"+workspaceID+"/members",
		`{"user_id":"user-2","role":"member"}`,
		map[string]string{"workspaceID": workspaceID}))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, rec.received, 1)
	cmd := rec.received[0].(commands.AddMemberCommand)
	assert.Equal(t, workspaceID, cmd.WorkspaceID)
	assert.Equal(t, testUserID, cmd.UserID)
	assert.Equal(t, "user-2", cmd.MemberID)
	assert.Equal(t, "member", cmd.Role)
}

func TestAddMemberRejectsUnknownRole(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.AddMemberCommand{})
	h := newWorkspaceHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.AddMember(rr, authedRequest(http.MethodPost, "/workspaces/"+workspaceID+"/members",
		`{"user_id":"user-2","role":"owner"}`,
		map[string]string{"workspaceID": workspaceID}))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, rr).Error.Code)
	assert.Empty(t, rec.received)
}

func TestRemoveMemberReturnsNoContent(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.RemoveMemberCommand{})
	h := newWorkspaceHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.RemoveMember(rr, authedRequest(http.MethodDelete, "/workspaces/"+workspaceID+"/members/user-7", "",
		map[string]string{"workspaceID": workspaceID, "userID": "user-7"}))

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, rec.received, 1)
	assert.Equal(t, "user-7", rec.received[0].(commands.RemoveMemberCommand).MemberID)
}

func TestChangeMemberRoleTargetsPathUser(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.ChangeMemberRoleCommand{})
	h := newWorkspaceHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.ChangeMemberRole(rr, authedRequest(http.MethodPut, "/workspaces/"+workspaceID+"/members/user-7",
		`{"role":"admin"}`,
		map[string]string{"workspaceID": workspaceID, "userID": "user-7"}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, rec.received, 1)
	cmd := rec.received[0].(commands.ChangeMemberRoleCommand)
	assert.Equal(t, "user-7", cmd.MemberID)
	assert.Equal(t, "admin", cmd.Role)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &resp))
	assert.Equal(t, "user-7", resp["user_id"])
	assert.Equal(t, "admin", resp["role"])
}

func TestCreateWorkspaceMapsConflict(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.CreateWorkspaceCommand{})
	rec.err = apperrors.NewDomainError(apperrors.DomainConflictError, "WORKSPACE_EXISTS", "workspace already exists")
	h := newWorkspaceHandlerUnderTest(env)

	rr := httptest.NewRecorder()
	h.CreateWorkspace(rr, authedRequest(http.MethodPost, "/workspaces", `{"name":"Atlas"}`, nil))

	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "WORKSPACE_EXISTS", decodeDomainError(t, rr).Code)
}

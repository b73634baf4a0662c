package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"lattice/application/commands"
	"lattice/application/queries"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntityHandlerUnderTest(env *handlerEnv) *EntityHandler {
	return NewEntityHandler(env.commands, env.queries, env.errors, env.logger)
}

func TestCreateEntityDispatchesTypedCommand(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.CreateEntityCommand{})
	h := newEntityHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.CreateEntity(rr, authedRequest(http.MethodPost, "/workspaces/"+workspaceID+"/entities",
		`{"entity_type":"person","name":"Ada","properties":{"age":36}}`,
		map[string]string{"workspaceID": workspaceID}))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp CreateEntityResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &resp))
	_, err := uuid.Parse(resp.EntityID)
	require.NoError(t, err, "entity_id must be a server-assigned UUID")
	assert.Equal(t, workspaceID, resp.WorkspaceID)

	require.Len(t, rec.received, 1)
	cmd := rec.received[0].(commands.CreateEntityCommand)
	assert.Equal(t, resp.EntityID, cmd.EntityID)
	assert.Equal(t, "person", cmd.EntityType)
	assert.Equal(t, "Ada", cmd.Name)
	assert.Equal(t, float64(36), cmd.Properties["age"])
}

func TestCreateEntityRejectsBadTypeIdentifier(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.CreateEntityCommand{})
	h := newEntityHandlerUnderTest(env)

	workspaceID := uuid.NewString()

	// Type names are lowercase snake case; "Person" must be rejected
	// before any command is built
	rr := httptest.NewRecorder()
	h.CreateEntity(rr, authedRequest(http.MethodPost, "/workspaces/"+workspaceID+"/entities",
		`{"entity_type":"Person","name":"Ada"}`,
		map[string]string{"workspaceID": workspaceID}))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, rr).Error.Code)
	assert.Empty(t, rec.received)
}

func TestListEntitiesForwardsFilterAndPaging(t *testing.T) {
	env := newHandlerEnv()
	stub := env.stubQuery(t, queries.ListEntitiesQuery{}, &queries.ListEntitiesResult{
		Entities: []queries.EntityResult{{ID: uuid.NewString(), EntityType: "person", Name: "Ada"}},
		Total:    7,
		Limit:    2,
		Offset:   0,
	}, nil)
	h := newEntityHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.ListEntities(rr, authedRequest(http.MethodGet,
		"/workspaces/"+workspaceID+"/entities?type=person&limit=2&offset=0", "",
		map[string]string{"workspaceID": workspaceID}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.Len(t, stub.received, 1)
	q := stub.received[0].(queries.ListEntitiesQuery)
	assert.Equal(t, "person", q.EntityType)
	assert.Equal(t, 2, q.Limit)
	assert.Equal(t, 0, q.Offset)

	body := decodeEnvelope(t, rr)
	require.NotNil(t, body.Meta)
	require.NotNil(t, body.Meta.Pagination)
	assert.Equal(t, 7, body.Meta.Pagination.Total)
	assert.True(t, body.Meta.Pagination.HasMore)
}

func TestUpdateEntityLeavesAbsentFieldsUntouched(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.UpdateEntityCommand{})
	h := newEntityHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	entityID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.UpdateEntity(rr, authedRequest(http.MethodPut,
		"/workspaces/"+workspaceID+"/entities/"+entityID,
		`{"name":"Grace"}`,
		map[string]string{"workspaceID": workspaceID, "entityID": entityID}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.Len(t, rec.received, 1)
	cmd := rec.received[0].(commands.UpdateEntityCommand)
	require.NotNil(t, cmd.Name)
	assert.Equal(t, "Grace", *cmd.Name)
	assert.Nil(t, cmd.Properties, "absent properties must stay nil so the stored set is kept")
}

func TestUpdateEntityRejectsEmptyName(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.UpdateEntityCommand{})
	h := newEntityHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	entityID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.UpdateEntity(rr, authedRequest(http.MethodPut,
		"/workspaces/"+workspaceID+"/entities/"+entityID,
		`{"name":""}`,
		map[string]string{"workspaceID": workspaceID, "entityID": entityID}))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, rec.received)
}

func TestDeleteEntityReturnsNoContent(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.DeleteEntityCommand{})
	h := newEntityHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	entityID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.DeleteEntity(rr, authedRequest(http.MethodDelete,
		"/workspaces/"+workspaceID+"/entities/"+entityID, "",
		map[string]string{"workspaceID": workspaceID, "entityID": entityID}))

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, rec.received, 1)
	cmd := rec.received[0].(commands.DeleteEntityCommand)
	assert.Equal(t, entityID, cmd.EntityID)
	assert.Equal(t, workspaceID, cmd.WorkspaceID)
}

func TestGetEntityRejectsMalformedEntityID(t *testing.T) {
	env := newHandlerEnv()
	h := newEntityHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.GetEntity(rr, authedRequest(http.MethodGet,
		"/workspaces/"+workspaceID+"/entities/42", "",
		map[string]string{"workspaceID": workspaceID, "entityID": "42"}))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeEnvelope(t, rr).Error.Message, "entityID must be a valid UUID")
}

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

func newEdgeHandlerUnderTest(env *handlerEnv) *EdgeHandler {
	return NewEdgeHandler(env.commands, env.queries, env.errors, env.logger)
}

func TestCreateEdgeDispatchesTypedCommand(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.CreateEdgeCommand{})
	h := newEdgeHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	sourceID := uuid.NewString()
	targetID := uuid.NewString()

	rr := httptest.NewRecorder()
	h.CreateEdge(rr, authedRequest(http.MethodPost, "/workspaces/"+workspaceID+"/edges",
		`{"edge_type":"reports_to","source_id":"`+sourceID+`","target_id":"`+targetID+`"}`,
		map[string]string{"workspaceID": workspaceID}))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp CreateEdgeResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &resp))
	_, err := uuid.Parse(resp.EdgeID)
	require.NoError(t, err)

	require.Len(t, rec.received, 1)
	cmd := rec.received[0].(commands.CreateEdgeCommand)
	assert.Equal(t, resp.EdgeID, cmd.EdgeID)
	assert.Equal(t, "reports_to", cmd.EdgeType)
	assert.Equal(t, sourceID, cmd.SourceID)
	assert.Equal(t, targetID, cmd.TargetID)
	assert.Equal(t, testUserID, cmd.UserID)
}

func TestCreateEdgeRejectsMalformedEndpoint(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.CreateEdgeCommand{})
	h := newEdgeHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.CreateEdge(rr, authedRequest(http.MethodPost, "/workspaces/"+workspaceID+"/edges",
		`{"edge_type":"reports_to","source_id":"alice","target_id":"`+uuid.NewString()+`"}`,
		map[string]string{"workspaceID": workspaceID}))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, rr).Error.Code)
	assert.Empty(t, rec.received)
}

func TestListEdgesForwardsEntityFilter(t *testing.T) {
	env := newHandlerEnv()
	stub := env.stubQuery(t, queries.ListEdgesQuery{}, &queries.ListEdgesResult{
		Edges:  []queries.EdgeResult{{ID: uuid.NewString(), EdgeType: "reports_to"}},
		Total:  1,
		Limit:  50,
		Offset: 0,
	}, nil)
	h := newEdgeHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	entityID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.ListEdges(rr, authedRequest(http.MethodGet,
		"/workspaces/"+workspaceID+"/edges?entity="+entityID, "",
		map[string]string{"workspaceID": workspaceID}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.Len(t, stub.received, 1)
	q := stub.received[0].(queries.ListEdgesQuery)
	assert.Equal(t, entityID, q.EntityID)
	assert.Equal(t, 50, q.Limit, "limit must default when absent")

	body := decodeEnvelope(t, rr)
	require.NotNil(t, body.Meta)
	require.NotNil(t, body.Meta.Pagination)
	assert.Equal(t, 1, body.Meta.Pagination.Total)
	assert.False(t, body.Meta.Pagination.HasMore)
}

func TestDeleteEdgeReturnsNoContent(t *testing.T) {
	env := newHandlerEnv()
	rec := env.recordCommands(t, commands.DeleteEdgeCommand{})
	h := newEdgeHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	edgeID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.DeleteEdge(rr, authedRequest(http.MethodDelete,
		"/workspaces/"+workspaceID+"/edges/"+edgeID, "",
		map[string]string{"workspaceID": workspaceID, "edgeID": edgeID}))

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, rec.received, 1)
	assert.Equal(t, edgeID, rec.received[0].(commands.DeleteEdgeCommand).EdgeID)
}

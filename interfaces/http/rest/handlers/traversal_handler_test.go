package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"lattice/application/queries"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTraversalHandlerUnderTest(env *handlerEnv) *TraversalHandler {
	return NewTraversalHandler(env.queries, env.errors, env.logger)
}

func TestGetNeighborsForwardsDirection(t *testing.T) {
	env := newHandlerEnv()
	stub := env.stubQuery(t, queries.GetNeighborsQuery{}, &queries.GetNeighborsResult{
		Neighbors: []queries.NeighborResult{},
		Total:     12,
		Limit:     5,
		Offset:    0,
	}, nil)
	h := newTraversalHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	entityID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.GetNeighbors(rr, authedRequest(http.MethodGet,
		"/workspaces/"+workspaceID+"/entities/"+entityID+"/neighbors?direction=out&limit=5", "",
		map[string]string{"workspaceID": workspaceID, "entityID": entityID}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.Len(t, stub.received, 1)
	q := stub.received[0].(queries.GetNeighborsQuery)
	assert.Equal(t, entityID, q.EntityID)
	assert.Equal(t, "out", q.Direction)
	assert.Equal(t, 5, q.Limit)

	body := decodeEnvelope(t, rr)
	require.NotNil(t, body.Meta)
	require.NotNil(t, body.Meta.Pagination)
	assert.Equal(t, 12, body.Meta.Pagination.Total)
	assert.True(t, body.Meta.Pagination.HasMore)
}

func TestFindPathReturnsSteps(t *testing.T) {
	env := newHandlerEnv()
	stub := env.stubQuery(t, queries.FindPathQuery{}, &queries.FindPathResult{
		Steps:  []queries.PathStepResult{{Entity: queries.EntityResult{ID: uuid.NewString()}}},
		Length: 0,
	}, nil)
	h := newTraversalHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	fromID := uuid.NewString()
	toID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.FindPath(rr, authedRequest(http.MethodGet,
		"/workspaces/"+workspaceID+"/graph/path?from="+fromID+"&to="+toID+"&max_depth=4", "",
		map[string]string{"workspaceID": workspaceID}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.Len(t, stub.received, 1)
	q := stub.received[0].(queries.FindPathQuery)
	assert.Equal(t, fromID, q.FromID)
	assert.Equal(t, toID, q.ToID)
	assert.Equal(t, 4, q.MaxDepth)

	var result queries.FindPathResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &result))
	assert.Len(t, result.Steps, 1)
}

func TestFindPathRejectsBadMaxDepth(t *testing.T) {
	env := newHandlerEnv()
	h := newTraversalHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	for _, raw := range []string{"-1", "four"} {
		rr := httptest.NewRecorder()
		h.FindPath(rr, authedRequest(http.MethodGet,
			"/workspaces/"+workspaceID+"/graph/path?from="+uuid.NewString()+"&to="+uuid.NewString()+"&max_depth="+raw, "",
			map[string]string{"workspaceID": workspaceID}))

		require.Equal(t, http.StatusBadRequest, rr.Code, "max_depth=%s", raw)
		assert.Contains(t, decodeEnvelope(t, rr).Error.Message, "max_depth")
	}
}

func TestFindPathRequiresEndpoints(t *testing.T) {
	env := newHandlerEnv()
	stub := env.stubQuery(t, queries.FindPathQuery{}, nil, nil)
	h := newTraversalHandlerUnderTest(env)

	// Missing from/to fails query validation on the bus, never the handler
	workspaceID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.FindPath(rr, authedRequest(http.MethodGet,
		"/workspaces/"+workspaceID+"/graph/path?to="+uuid.NewString(), "",
		map[string]string{"workspaceID": workspaceID}))

	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	body := decodeDomainError(t, rr)
	assert.Equal(t, "INVALID_QUERY", body.Code)
	assert.Empty(t, stub.received)
}

func TestTraverseGraphForwardsBounds(t *testing.T) {
	env := newHandlerEnv()
	stub := env.stubQuery(t, queries.TraverseGraphQuery{}, &queries.TraverseGraphResult{
		Nodes:     []queries.TraversalNodeResult{},
		Edges:     []queries.EdgeResult{},
		Truncated: true,
	}, nil)
	h := newTraversalHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	startID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.TraverseGraph(rr, authedRequest(http.MethodPost,
		"/workspaces/"+workspaceID+"/graph/traverse",
		`{"start_id":"`+startID+`","depth":2,"limit":10,"direction":"both"}`,
		map[string]string{"workspaceID": workspaceID}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.Len(t, stub.received, 1)
	q := stub.received[0].(queries.TraverseGraphQuery)
	assert.Equal(t, startID, q.StartID)
	assert.Equal(t, 2, q.Depth)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, "both", q.Direction)

	var result queries.TraverseGraphResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &result))
	assert.True(t, result.Truncated)
}

func TestTraverseGraphRejectsMalformedStart(t *testing.T) {
	env := newHandlerEnv()
	h := newTraversalHandlerUnderTest(env)

	workspaceID := uuid.NewString()
	rr := httptest.NewRecorder()
	h.TraverseGraph(rr, authedRequest(http.MethodPost,
		"/workspaces/"+workspaceID+"/graph/traverse",
		`{"start_id":"origin"}`,
		map[string]string{"workspaceID": workspaceID}))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, rr).Error.Code)
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"lattice/application/commands/bus"
	querybus "lattice/application/queries/bus"
	"lattice/pkg/auth"
	apperrors "lattice/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUserID = "user-1"

// handlerEnv bundles the buses and response plumbing handlers are built
// on. Tests register stubs for exactly the commands and queries they
// exercise; an unregistered type failing loudly is part of the point.
type handlerEnv struct {
	commands *bus.CommandBus
	queries  *querybus.QueryBus
	errors   *apperrors.ErrorHandler
	logger   *zap.Logger
}

func newHandlerEnv() *handlerEnv {
	logger := zap.NewNop()
	return &handlerEnv{
		commands: bus.NewCommandBus(),
		queries:  querybus.NewQueryBus(),
		errors:   apperrors.NewErrorHandler(logger, false),
		logger:   logger,
	}
}

// commandRecorder captures dispatched commands and fails with err when set
type commandRecorder struct {
	received []bus.Command
	err      error
}

func (r *commandRecorder) Handle(ctx context.Context, cmd bus.Command) error {
	r.received = append(r.received, cmd)
	return r.err
}

func (e *handlerEnv) recordCommands(t *testing.T, cmdType bus.Command) *commandRecorder {
	t.Helper()
	rec := &commandRecorder{}
	require.NoError(t, e.commands.Register(cmdType, rec))
	return rec
}

// queryStub captures dispatched queries and answers with a fixed result
type queryStub struct {
	received []querybus.Query
	result   interface{}
	err      error
}

func (s *queryStub) Handle(ctx context.Context, q querybus.Query) (interface{}, error) {
	s.received = append(s.received, q)
	return s.result, s.err
}

func (e *handlerEnv) stubQuery(t *testing.T, queryType querybus.Query, result interface{}, err error) *queryStub {
	t.Helper()
	stub := &queryStub{result: result, err: err}
	require.NoError(t, e.queries.Register(queryType, stub))
	return stub
}

// authedRequest builds a request carrying an authenticated user and the
// given chi URL parameters, the way the router hands requests to handlers.
func authedRequest(method, target, body string, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	ctx := auth.SetUserInContext(req.Context(), &auth.UserContext{
		UserID: testUserID,
		Email:  "user-1@example.test",
		Roles:  []string{"authenticated"},
	})

	rctx := chi.NewRouteContext()
	for name, value := range params {
		rctx.URLParams.Add(name, value)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)

	return req.WithContext(ctx)
}

// envelope mirrors the response wrapper for assertions
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		RequestID  string `json:"request_id"`
		Pagination *struct {
			Limit   int  `json:"limit"`
			Offset  int  `json:"offset"`
			Total   int  `json:"total"`
			HasMore bool `json:"has_more"`
		} `json:"pagination"`
	} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// domainErrorBody mirrors the error handler's response format, which is
// distinct from the success envelope
type domainErrorBody struct {
	Error   bool   `json:"error"`
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeDomainError(t *testing.T, rec *httptest.ResponseRecorder) domainErrorBody {
	t.Helper()
	var body domainErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

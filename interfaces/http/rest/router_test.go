package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lattice/application/commands/bus"
	"lattice/application/queries"
	querybus "lattice/application/queries/bus"
	"lattice/infrastructure/config"
	"lattice/pkg/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func routerConfig() *config.Config {
	return &config.Config{
		Environment:    "test",
		StorageBackend: config.BackendMemory,
		JWTSecret:      "test-secret",
		JWTIssuer:      "lattice",
		RequestTimeout: 5,
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, queryBus *querybus.QueryBus) http.Handler {
	t.Helper()
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	if queryBus == nil {
		queryBus = querybus.NewQueryBus()
	}
	rt := NewRouter(bus.NewCommandBus(), queryBus, cfg, auth.NewSlidingWindowLimiter(100, time.Minute), zap.NewNop())
	return rt.Setup()
}

func bearerToken(t *testing.T) string {
	t.Helper()
	generator, err := auth.NewJWTGenerator(auth.JWTGeneratorConfig{
		SigningMethod: "HS256",
		SecretKey:     "test-secret",
		Issuer:        "lattice",
		Audience:      []string{"lattice-api"},
		ExpiryTime:    time.Hour,
	})
	require.NoError(t, err)
	token, err := generator.GenerateToken("user-1", "user-1@example.test", []string{"authenticated"})
	require.NoError(t, err)
	return token
}

func TestRouterServesHealthAndReadiness(t *testing.T) {
	handler := newTestRouter(t, routerConfig(), nil)

	health := httptest.NewRecorder()
	handler.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, health.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, health.Body.String())
	assert.Equal(t, "v2", health.Header().Get("X-API-Version"))

	ready := httptest.NewRecorder()
	handler.ServeHTTP(ready, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, ready.Code)
	assert.Contains(t, ready.Body.String(), config.BackendMemory)
}

func TestRouterRejectsAnonymousAPIRequests(t *testing.T) {
	handler := newTestRouter(t, routerConfig(), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/workspaces", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterRoutesAuthenticatedRequests(t *testing.T) {
	queryBus := querybus.NewQueryBus()
	require.NoError(t, queryBus.Register(queries.ListWorkspacesQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return &queries.ListWorkspacesResult{
				Workspaces: []queries.WorkspaceResult{{Name: "Atlas", Role: "owner"}},
				Total:      1,
			}, nil
		})))
	handler := newTestRouter(t, routerConfig(), queryBus)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/workspaces", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Workspaces []struct {
				Name string `json:"name"`
			} `json:"workspaces"`
			Total int `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data.Workspaces, 1)
	assert.Equal(t, "Atlas", body.Data.Workspaces[0].Name)
}

func TestRouterMarksV1Deprecated(t *testing.T) {
	handler := newTestRouter(t, routerConfig(), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))
	assert.Equal(t, "true", rec.Header().Get("X-API-Deprecated"))
	assert.NotEmpty(t, rec.Header().Get("X-API-Sunset-Date"))
}

func TestRouterAnswersCORSPreflight(t *testing.T) {
	cfg := routerConfig()
	cfg.EnableCORS = true
	cfg.CORSAllowedOrigins = []string{"http://localhost:3000"}
	handler := newTestRouter(t, cfg, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v2/workspaces", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

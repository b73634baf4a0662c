// Package v1 keeps the deprecated entity and edge CRUD surface alive for
// clients that have not moved to /api/v2. It routes through gorilla/mux
// and delegates to the v2 handlers.
package v1

import (
	"context"
	"net/http"

	"lattice/infrastructure/config"
	"lattice/interfaces/http/rest/handlers"
	"lattice/interfaces/http/rest/middleware"
	"lattice/pkg/auth"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter creates the v1 API router
func NewRouter(
	entityHandler *handlers.EntityHandler,
	edgeHandler *handlers.EdgeHandler,
	cfg *config.Config,
	limiter auth.RateLimiter,
	logger *zap.Logger,
) *mux.Router {
	router := mux.NewRouter()

	// Health check stays outside authentication
	router.HandleFunc("/api/v1/health", healthCheck).Methods("GET")

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.Use(versionHeaders)
	v1.Use(middleware.Authenticate(cfg, limiter, logger))

	// Entity endpoints
	v1.HandleFunc("/workspaces/{workspaceID}/entities", bridge(entityHandler.CreateEntity)).Methods("POST")
	v1.HandleFunc("/workspaces/{workspaceID}/entities", bridge(entityHandler.ListEntities)).Methods("GET")
	v1.HandleFunc("/workspaces/{workspaceID}/entities/{entityID}", bridge(entityHandler.GetEntity)).Methods("GET")
	v1.HandleFunc("/workspaces/{workspaceID}/entities/{entityID}", bridge(entityHandler.UpdateEntity)).Methods("PUT")
	v1.HandleFunc("/workspaces/{workspaceID}/entities/{entityID}", bridge(entityHandler.DeleteEntity)).Methods("DELETE")

	// Edge endpoints
	v1.HandleFunc("/workspaces/{workspaceID}/edges", bridge(edgeHandler.CreateEdge)).Methods("POST")
	v1.HandleFunc("/workspaces/{workspaceID}/edges", bridge(edgeHandler.ListEdges)).Methods("GET")
	v1.HandleFunc("/workspaces/{workspaceID}/edges/{edgeID}", bridge(edgeHandler.GetEdge)).Methods("GET")
	v1.HandleFunc("/workspaces/{workspaceID}/edges/{edgeID}", bridge(edgeHandler.DeleteEdge)).Methods("DELETE")

	return router
}

// bridge copies gorilla path variables into a chi route context so the
// shared handlers can read them with chi.URLParam.
func bridge(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.NewRouteContext()
		for key, value := range mux.Vars(r) {
			rctx.URLParams.Add(key, value)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx)))
	}
}

// versionHeaders marks every v1 response as deprecated
func versionHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", "v1")
		w.Header().Set("X-API-Latest", "v2")
		w.Header().Set("X-API-Deprecated", "true")
		next.ServeHTTP(w, r)
	})
}

// healthCheck provides a health check endpoint
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","version":"v1"}`))
}

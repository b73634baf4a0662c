package rest

import (
	"net/http"
	"strings"
	"time"

	"lattice/application/commands/bus"
	querybus "lattice/application/queries/bus"
	"lattice/infrastructure/config"
	"lattice/interfaces/http/rest/handlers"
	"lattice/interfaces/http/rest/middleware"
	v1 "lattice/interfaces/http/rest/v1"
	"lattice/pkg/auth"
	apperrors "lattice/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	cfg        *config.Config
	limiter    auth.RateLimiter
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	cfg *config.Config,
	limiter auth.RateLimiter,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		cfg:        cfg,
		limiter:    limiter,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(versionMiddleware)
	router.Use(chimiddleware.Timeout(time.Duration(rt.cfg.RequestTimeout) * time.Second))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-API-Version", "X-API-Deprecated"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	errorHandler := apperrors.NewErrorHandler(rt.logger, rt.cfg.IsDevelopment())

	workspaceHandler := handlers.NewWorkspaceHandler(rt.commandBus, rt.queryBus, errorHandler, rt.logger)
	schemaHandler := handlers.NewSchemaHandler(rt.commandBus, rt.queryBus, errorHandler, rt.logger)
	entityHandler := handlers.NewEntityHandler(rt.commandBus, rt.queryBus, errorHandler, rt.logger)
	edgeHandler := handlers.NewEdgeHandler(rt.commandBus, rt.queryBus, errorHandler, rt.logger)
	traversalHandler := handlers.NewTraversalHandler(rt.queryBus, errorHandler, rt.logger)

	// Deprecated v1 surface, same handlers behind gorilla routing
	router.Mount("/api/v1", v1.NewRouter(entityHandler, edgeHandler, rt.cfg, rt.limiter, rt.logger))

	// API v2 routes (current)
	router.Route("/api/v2", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.cfg, rt.limiter, rt.logger))

		r.Route("/workspaces", func(r chi.Router) {
			r.Post("/", workspaceHandler.CreateWorkspace)
			r.Get("/", workspaceHandler.ListWorkspaces)

			r.Route("/{workspaceID}", func(r chi.Router) {
				r.Get("/", workspaceHandler.GetWorkspace)
				r.Delete("/", workspaceHandler.DeleteWorkspace)

				r.Route("/members", func(r chi.Router) {
					r.Get("/", workspaceHandler.ListMembers)
					r.Post("/", workspaceHandler.AddMember)
					r.Put("/{userID}", workspaceHandler.ChangeMemberRole)
					r.Delete("/{userID}", workspaceHandler.RemoveMember)
				})

				r.Route("/schema", func(r chi.Router) {
					r.Get("/", schemaHandler.GetSchema)
					r.Put("/", schemaHandler.PublishSchema)
					r.Get("/versions", schemaHandler.ListSchemaVersions)
				})

				r.Route("/entities", func(r chi.Router) {
					r.Post("/", entityHandler.CreateEntity)
					r.Get("/", entityHandler.ListEntities)
					r.Get("/{entityID}", entityHandler.GetEntity)
					r.Put("/{entityID}", entityHandler.UpdateEntity)
					r.Delete("/{entityID}", entityHandler.DeleteEntity)
					r.Get("/{entityID}/neighbors", traversalHandler.GetNeighbors)
				})

				r.Route("/edges", func(r chi.Router) {
					r.Post("/", edgeHandler.CreateEdge)
					r.Get("/", edgeHandler.ListEdges)
					r.Get("/{edgeID}", edgeHandler.GetEdge)
					r.Delete("/{edgeID}", edgeHandler.DeleteEdge)
				})

				r.Route("/graph", func(r chi.Router) {
					r.Get("/path", traversalHandler.FindPath)
					r.Post("/traverse", traversalHandler.TraverseGraph)
				})
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready","backend":"` + rt.cfg.StorageBackend + `"}`))
}

// versionMiddleware adds API version headers to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := "v2"
		if strings.HasPrefix(r.URL.Path, "/api/v1") {
			version = "v1"
		}

		w.Header().Set("X-API-Version", version)
		w.Header().Set("X-API-Latest", "v2")
		w.Header().Set("X-API-Deprecated", "false")

		if version == "v1" {
			w.Header().Set("X-API-Deprecated", "true")
			w.Header().Set("X-API-Deprecation-Date", "2026-06-01")
			w.Header().Set("X-API-Sunset-Date", "2026-12-01")
		}

		next.ServeHTTP(w, r)
	})
}

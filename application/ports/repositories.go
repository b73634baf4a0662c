package ports

import (
	"context"

	"lattice/domain/core/aggregates"
	"lattice/domain/core/entities"
	"lattice/domain/core/policies"
	"lattice/domain/core/schema"
	"lattice/domain/core/valueobjects"
	"lattice/domain/events"
)

// WorkspaceRepository defines the interface for workspace persistence.
// This is a port in hexagonal architecture - the domain doesn't know about
// the implementation.
type WorkspaceRepository interface {
	// Save persists a workspace (create or update). Updates are conditional
	// on the aggregate's version; a mismatch is a concurrent-modification
	// conflict.
	Save(ctx context.Context, workspace *entities.Workspace) error

	// GetByID retrieves a workspace by its ID
	GetByID(ctx context.Context, id valueobjects.WorkspaceID) (*entities.Workspace, error)

	// ListByUser retrieves all workspaces the user is a member of
	ListByUser(ctx context.Context, userID string) ([]*entities.Workspace, error)

	// Delete removes a workspace together with its schemas, entities and edges
	Delete(ctx context.Context, id valueobjects.WorkspaceID) error

	// GetStats returns the maintained entity and edge counters
	GetStats(ctx context.Context, id valueobjects.WorkspaceID) (*WorkspaceStats, error)

	// AdjustCounts applies deltas to the workspace's entity and edge counters
	AdjustCounts(ctx context.Context, id valueobjects.WorkspaceID, entityDelta, edgeDelta int64) error
}

// WorkspaceStats carries the denormalized per-workspace counters
type WorkspaceStats struct {
	EntityCount int64 `json:"entity_count"`
	EdgeCount   int64 `json:"edge_count"`
}

// SchemaRepository stores published schema versions. Versions are immutable
// once written.
type SchemaRepository interface {
	// SaveVersion persists a schema version; writing an existing version
	// number is a conflict
	SaveVersion(ctx context.Context, workspaceID valueobjects.WorkspaceID, def *schema.SchemaDefinition) error

	// GetVersion retrieves one schema version
	GetVersion(ctx context.Context, workspaceID valueobjects.WorkspaceID, version int) (*schema.SchemaDefinition, error)

	// ListVersions returns summaries of all published versions, newest first
	ListVersions(ctx context.Context, workspaceID valueobjects.WorkspaceID) ([]SchemaVersionSummary, error)
}

// SchemaVersionSummary is the metadata of one published schema version
type SchemaVersionSummary struct {
	Version         int    `json:"version"`
	Name            string `json:"name"`
	PublishedBy     string `json:"published_by"`
	PublishedAt     string `json:"published_at"`
	EntityTypeCount int    `json:"entity_type_count"`
	EdgeTypeCount   int    `json:"edge_type_count"`
}

// EntityRepository defines the interface for entity persistence
type EntityRepository interface {
	// Save persists an entity (create or update). Updates are conditional
	// on the aggregate's version.
	Save(ctx context.Context, entity *entities.Entity) error

	// GetByID retrieves an entity within a workspace
	GetByID(ctx context.Context, workspaceID valueobjects.WorkspaceID, id valueobjects.EntityID) (*entities.Entity, error)

	// List retrieves entities matching the criteria, returning the page and
	// the total count before paging
	List(ctx context.Context, workspaceID valueobjects.WorkspaceID, criteria EntityListCriteria) ([]*entities.Entity, int, error)

	// Delete removes an entity and every edge touching it in one atomic
	// operation, returning the number of edges removed
	Delete(ctx context.Context, workspaceID valueobjects.WorkspaceID, id valueobjects.EntityID) (int, error)
}

// EntityListCriteria filters and pages entity listings
type EntityListCriteria struct {
	EntityType string
	Limit      int
	Offset     int
}

// EdgeRepository defines the interface for edge persistence
type EdgeRepository interface {
	// Save persists a new edge
	Save(ctx context.Context, edge *entities.Edge) error

	// GetByID retrieves an edge within a workspace
	GetByID(ctx context.Context, workspaceID valueobjects.WorkspaceID, id valueobjects.EdgeID) (*entities.Edge, error)

	// List retrieves edges matching the criteria, returning the page and
	// the total count before paging
	List(ctx context.Context, workspaceID valueobjects.WorkspaceID, criteria EdgeListCriteria) ([]*entities.Edge, int, error)

	// Delete removes an edge
	Delete(ctx context.Context, workspaceID valueobjects.WorkspaceID, id valueobjects.EdgeID) error

	// ExistsDuplicate reports whether an edge with the same source, target
	// and type already exists
	ExistsDuplicate(ctx context.Context, workspaceID valueobjects.WorkspaceID, sourceID, targetID valueobjects.EntityID, edgeType string) (bool, error)
}

// EdgeListCriteria filters and pages edge listings. EntityID, when set,
// restricts the listing to edges touching that entity on either end.
type EdgeListCriteria struct {
	EntityID *valueobjects.EntityID
	Limit    int
	Offset   int
}

// GraphRepository provides the workspace-scoped traversal primitives.
// Implementations receive already-normalized traversal parameters.
type GraphRepository interface {
	// Neighbors returns adjacent entities with the connecting edges and the
	// total adjacency count before paging
	Neighbors(ctx context.Context, workspaceID valueobjects.WorkspaceID, entityID valueobjects.EntityID, direction policies.Direction, limit, offset int) ([]aggregates.Neighbor, int, error)

	// FindPath returns the shortest path between two entities by hop count,
	// or a not-found error when no path exists within maxDepth hops
	FindPath(ctx context.Context, workspaceID valueobjects.WorkspaceID, fromID, toID valueobjects.EntityID, maxDepth int) ([]aggregates.PathStep, error)

	// Traverse expands the graph from a start entity with bounded BFS
	Traverse(ctx context.Context, workspaceID valueobjects.WorkspaceID, startID valueobjects.EntityID, params policies.TraversalParams) (*aggregates.TraversalResult, error)
}

// EventStore defines the interface for event persistence
type EventStore interface {
	// SaveEvents persists domain events
	SaveEvents(ctx context.Context, events []events.DomainEvent) error

	// GetEvents retrieves events for an aggregate
	GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error)

	// GetEventsByType retrieves events of a specific type
	GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error)

	// DeleteEvents removes all events for an aggregate
	DeleteEvents(ctx context.Context, aggregateID string) error
}

// UnitOfWork defines a transaction boundary for aggregate operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction
	Rollback() error

	// WorkspaceRepository returns the workspace repository for this transaction
	WorkspaceRepository() WorkspaceRepository

	// EntityRepository returns the entity repository for this transaction
	EntityRepository() EntityRepository

	// EdgeRepository returns the edge repository for this transaction
	EdgeRepository() EdgeRepository

	// SchemaRepository returns the schema repository for this transaction
	SchemaRepository() SchemaRepository
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for an event type
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventHandler defines the interface for handling domain events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}

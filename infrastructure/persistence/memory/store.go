// Package memory provides an in-process store for development and tests.
// Every repository port is served from one Store so cross-repository
// invariants (edge endpoints, cascade deletes, counters) hold exactly as
// they do in DynamoDB, without any AWS dependency.
package memory

import (
	"context"
	"sync"

	"lattice/application/ports"
	"lattice/domain/core/aggregates"
	"lattice/domain/core/entities"
	"lattice/domain/core/policies"
	"lattice/domain/core/schema"
	"lattice/domain/core/valueobjects"
	pkgerrors "lattice/pkg/errors"

	"go.uber.org/zap"
)

// Store holds every workspace in process memory. The RWMutex lets queries
// run concurrently while writes serialize; txMu serializes unit-of-work
// transactions on top of that.
type Store struct {
	mu         sync.RWMutex
	workspaces map[valueobjects.WorkspaceID]*workspaceState

	txMu     sync.Mutex
	snapshot map[valueobjects.WorkspaceID]*workspaceState
	inTx     bool

	policy *policies.TraversalPolicy
	logger *zap.Logger
}

// workspaceState bundles everything owned by one workspace. The graph keeps
// the structural invariants; counters mirror what the DynamoDB stats row
// maintains, except here they update inline with the write.
type workspaceState struct {
	workspace   *entities.Workspace
	schemas     map[int]*schema.SchemaDefinition
	graph       *aggregates.WorkspaceGraph
	entityCount int64
	edgeCount   int64
}

// NewStore creates an empty in-memory store
func NewStore(policy *policies.TraversalPolicy, logger *zap.Logger) *Store {
	return &Store{
		workspaces: make(map[valueobjects.WorkspaceID]*workspaceState),
		policy:     policy,
		logger:     logger,
	}
}

// WorkspaceRepository returns the workspace port backed by this store
func (s *Store) WorkspaceRepository() ports.WorkspaceRepository {
	return &workspaceView{store: s}
}

// EntityRepository returns the entity port backed by this store
func (s *Store) EntityRepository() ports.EntityRepository {
	return &entityView{store: s}
}

// EdgeRepository returns the edge port backed by this store
func (s *Store) EdgeRepository() ports.EdgeRepository {
	return &edgeView{store: s}
}

// SchemaRepository returns the schema port backed by this store
func (s *Store) SchemaRepository() ports.SchemaRepository {
	return &schemaView{store: s}
}

// GraphRepository returns the traversal port backed by this store
func (s *Store) GraphRepository() ports.GraphRepository {
	return &graphView{store: s}
}

// Begin starts a transaction by snapshotting the whole store. Commands
// running under the unit of work serialize on txMu; queries keep reading
// the live state.
func (s *Store) Begin(ctx context.Context) error {
	s.txMu.Lock()

	s.mu.RLock()
	snapshot := make(map[valueobjects.WorkspaceID]*workspaceState, len(s.workspaces))
	for id, state := range s.workspaces {
		snapshot[id] = state.clone()
	}
	s.mu.RUnlock()

	s.snapshot = snapshot
	s.inTx = true
	return nil
}

// Commit discards the snapshot and keeps the live state
func (s *Store) Commit(ctx context.Context) error {
	if !s.inTx {
		return pkgerrors.NewDomainError(pkgerrors.DomainInfrastructureError, "NO_TRANSACTION",
			"Commit called outside a transaction")
	}
	s.snapshot = nil
	s.inTx = false
	s.txMu.Unlock()
	return nil
}

// Rollback restores the snapshot taken at Begin
func (s *Store) Rollback() error {
	if !s.inTx {
		return pkgerrors.NewDomainError(pkgerrors.DomainInfrastructureError, "NO_TRANSACTION",
			"Rollback called outside a transaction")
	}

	s.mu.Lock()
	s.workspaces = s.snapshot
	s.mu.Unlock()

	s.snapshot = nil
	s.inTx = false
	s.txMu.Unlock()
	return nil
}

// state returns the live state for a workspace. Callers must hold mu.
func (s *Store) state(id valueobjects.WorkspaceID) (*workspaceState, error) {
	state, ok := s.workspaces[id]
	if !ok {
		return nil, workspaceNotFoundError(id)
	}
	return state, nil
}

// clone rebuilds the state with a fresh graph. Stored entities, edges and
// schema versions are never mutated in place (saves copy in, reads copy
// out), so sharing their pointers with the snapshot is safe.
func (ws *workspaceState) clone() *workspaceState {
	graph := aggregates.NewWorkspaceGraph(ws.workspace.ID())
	for _, entity := range ws.graph.Entities() {
		_ = graph.AddEntity(entity)
	}
	for _, edge := range ws.graph.Edges() {
		_ = graph.AddEdge(edge)
	}

	schemas := make(map[int]*schema.SchemaDefinition, len(ws.schemas))
	for version, def := range ws.schemas {
		schemas[version] = def
	}

	return &workspaceState{
		workspace:   ws.workspace,
		schemas:     schemas,
		graph:       graph,
		entityCount: ws.entityCount,
		edgeCount:   ws.edgeCount,
	}
}

func cloneWorkspace(w *entities.Workspace) *entities.Workspace {
	return entities.ReconstructWorkspace(
		w.ID(),
		w.Name(),
		w.OwnerID(),
		w.Members(),
		w.ActiveSchemaVersion(),
		w.CreatedAt(),
		w.UpdatedAt(),
		w.Version(),
	)
}

func cloneEntity(e *entities.Entity) *entities.Entity {
	return entities.ReconstructEntity(
		e.ID(),
		e.WorkspaceID(),
		e.EntityType(),
		e.Name(),
		e.Properties(),
		e.SchemaVersion(),
		e.CreatedBy(),
		e.CreatedAt(),
		e.UpdatedAt(),
		e.Version(),
	)
}

func cloneEdge(e *entities.Edge) *entities.Edge {
	return entities.ReconstructEdge(
		e.ID(),
		e.WorkspaceID(),
		e.EdgeType(),
		e.SourceID(),
		e.TargetID(),
		e.Properties(),
		e.CreatedBy(),
		e.CreatedAt(),
	)
}

func workspaceNotFoundError(id valueobjects.WorkspaceID) error {
	return pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "WORKSPACE_NOT_FOUND",
		"The requested workspace does not exist").
		WithDetail("workspace_id", id.String())
}

func concurrentModificationError() error {
	return pkgerrors.NewDomainError(pkgerrors.DomainConflictError, "CONCURRENT_MODIFICATION",
		"The resource was modified by another process").
		WithRetryable(true)
}

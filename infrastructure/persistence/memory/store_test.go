package memory

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lattice/application/ports"
	"lattice/domain/core/entities"
	"lattice/domain/core/policies"
	"lattice/domain/core/schema"
	"lattice/domain/core/valueobjects"
	pkgerrors "lattice/pkg/errors"
)

var storeClock = time.Date(2024, 7, 15, 9, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	return NewStore(policies.NewTraversalPolicy(nil), zap.NewNop())
}

func seedWorkspace(t *testing.T, store *Store) *entities.Workspace {
	t.Helper()
	workspace, err := entities.NewWorkspace("Research", "user-1")
	require.NoError(t, err)
	require.NoError(t, store.WorkspaceRepository().Save(context.Background(), workspace))
	return workspace
}

func reconstructedWorkspace(name, ownerID string, extra []entities.Member, seq int) *entities.Workspace {
	created := storeClock.Add(time.Duration(seq) * time.Minute)
	members := append([]entities.Member{
		{UserID: ownerID, Role: policies.RoleOwner, AddedBy: ownerID, AddedAt: created},
	}, extra...)
	return entities.ReconstructWorkspace(
		valueobjects.NewWorkspaceID(), name, ownerID, members, 0, created, created, 1,
	)
}

func storedEntity(workspaceID valueobjects.WorkspaceID, entityType, name string, seq int) *entities.Entity {
	created := storeClock.Add(time.Duration(seq) * time.Second)
	return entities.ReconstructEntity(
		valueobjects.NewEntityID(), workspaceID, entityType, name,
		valueobjects.EmptyPropertyBag(), 1, "user-1", created, created, 1,
	)
}

func storedEdge(workspaceID valueobjects.WorkspaceID, edgeType string, source, target valueobjects.EntityID, seq int) *entities.Edge {
	return entities.ReconstructEdge(
		valueobjects.NewEdgeID(), workspaceID, edgeType, source, target,
		valueobjects.EmptyPropertyBag(), "user-1", storeClock.Add(time.Duration(seq)*time.Second),
	)
}

func assertCode(t *testing.T, err error, code string) *pkgerrors.DomainError {
	t.Helper()
	var domainErr *pkgerrors.DomainError
	require.True(t, stderrors.As(err, &domainErr), "expected *DomainError, got %T", err)
	assert.Equal(t, code, domainErr.Code)
	return domainErr
}

func TestStore_WorkspaceSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	repo := store.WorkspaceRepository()

	workspace := seedWorkspace(t, store)

	got, err := repo.GetByID(ctx, workspace.ID())
	require.NoError(t, err)
	assert.Equal(t, workspace.Name(), got.Name())
	assert.Equal(t, workspace.OwnerID(), got.OwnerID())
	assert.Equal(t, workspace.Version(), got.Version())

	// Saving without a version bump is a stale write
	err = repo.Save(ctx, workspace)
	domainErr := assertCode(t, err, "CONCURRENT_MODIFICATION")
	assert.True(t, domainErr.Retryable)

	require.NoError(t, workspace.Rename("Research Lab"))
	require.NoError(t, repo.Save(ctx, workspace))

	got, err = repo.GetByID(ctx, workspace.ID())
	require.NoError(t, err)
	assert.Equal(t, "Research Lab", got.Name())

	// Returned copies do not alias the stored state
	require.NoError(t, got.Rename("Scratch"))
	again, err := repo.GetByID(ctx, workspace.ID())
	require.NoError(t, err)
	assert.Equal(t, "Research Lab", again.Name())

	_, err = repo.GetByID(ctx, valueobjects.NewWorkspaceID())
	assertCode(t, err, "WORKSPACE_NOT_FOUND")
}

func TestStore_WorkspaceListByUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	repo := store.WorkspaceRepository()

	mine := reconstructedWorkspace("Alpha", "user-1", nil, 1)
	shared := reconstructedWorkspace("Beta", "user-2", []entities.Member{
		{UserID: "user-1", Role: policies.RoleMember, AddedBy: "user-2", AddedAt: storeClock},
	}, 2)
	foreign := reconstructedWorkspace("Gamma", "user-2", nil, 3)
	for _, workspace := range []*entities.Workspace{mine, shared, foreign} {
		require.NoError(t, repo.Save(ctx, workspace))
	}

	listed, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "Alpha", listed[0].Name())
	assert.Equal(t, "Beta", listed[1].Name())

	listed, err = repo.ListByUser(ctx, "user-3")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestStore_WorkspaceDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	workspace := seedWorkspace(t, store)
	a := storedEntity(workspace.ID(), "person", "a", 1)
	b := storedEntity(workspace.ID(), "person", "b", 2)
	require.NoError(t, store.EntityRepository().Save(ctx, a))
	require.NoError(t, store.EntityRepository().Save(ctx, b))
	require.NoError(t, store.EdgeRepository().Save(ctx, storedEdge(workspace.ID(), "knows", a.ID(), b.ID(), 3)))
	require.NoError(t, store.SchemaRepository().SaveVersion(ctx, workspace.ID(), &schema.SchemaDefinition{Version: 1}))

	require.NoError(t, store.WorkspaceRepository().Delete(ctx, workspace.ID()))

	_, err := store.WorkspaceRepository().GetByID(ctx, workspace.ID())
	assertCode(t, err, "WORKSPACE_NOT_FOUND")
	_, err = store.EntityRepository().GetByID(ctx, workspace.ID(), a.ID())
	assertCode(t, err, "WORKSPACE_NOT_FOUND")
	_, err = store.SchemaRepository().GetVersion(ctx, workspace.ID(), 1)
	assertCode(t, err, "WORKSPACE_NOT_FOUND")

	err = store.WorkspaceRepository().Delete(ctx, workspace.ID())
	assertCode(t, err, "WORKSPACE_NOT_FOUND")
}

func TestStore_SchemaVersions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	repo := store.SchemaRepository()

	workspace := seedWorkspace(t, store)

	v1 := &schema.SchemaDefinition{
		Version:     1,
		Name:        "initial",
		EntityTypes: []schema.EntityTypeDefinition{{Name: "person"}},
		PublishedBy: "user-1",
		PublishedAt: storeClock,
	}
	require.NoError(t, repo.SaveVersion(ctx, workspace.ID(), v1))

	// Versions are immutable once written
	err := repo.SaveVersion(ctx, workspace.ID(), &schema.SchemaDefinition{Version: 1})
	domainErr := assertCode(t, err, "SCHEMA_VERSION_CONFLICT")
	assert.True(t, domainErr.Retryable)

	got, err := repo.GetVersion(ctx, workspace.ID(), 1)
	require.NoError(t, err)
	assert.Equal(t, "initial", got.Name)
	assert.True(t, got.HasEntityType("person"))

	_, err = repo.GetVersion(ctx, workspace.ID(), 2)
	assertCode(t, err, "SCHEMA_VERSION_NOT_FOUND")

	require.NoError(t, repo.SaveVersion(ctx, workspace.ID(), &schema.SchemaDefinition{
		Version:     2,
		EntityTypes: []schema.EntityTypeDefinition{{Name: "person"}, {Name: "company"}},
		EdgeTypes:   []schema.EdgeTypeDefinition{{Name: "works_at"}},
		PublishedAt: storeClock.Add(time.Hour),
	}))
	require.NoError(t, repo.SaveVersion(ctx, workspace.ID(), &schema.SchemaDefinition{
		Version:     3,
		PublishedAt: storeClock.Add(2 * time.Hour),
	}))

	summaries, err := repo.ListVersions(ctx, workspace.ID())
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, 3, summaries[0].Version)
	assert.Equal(t, 2, summaries[1].Version)
	assert.Equal(t, 1, summaries[2].Version)
	assert.Equal(t, 2, summaries[1].EntityTypeCount)
	assert.Equal(t, 1, summaries[1].EdgeTypeCount)

	_, err = repo.ListVersions(ctx, valueobjects.NewWorkspaceID())
	assertCode(t, err, "WORKSPACE_NOT_FOUND")
}

func TestStore_EntityLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	repo := store.EntityRepository()

	workspace := seedWorkspace(t, store)

	first := storedEntity(workspace.ID(), "person", "first", 1)
	second := storedEntity(workspace.ID(), "person", "second", 2)
	third := storedEntity(workspace.ID(), "company", "third", 3)
	for _, entity := range []*entities.Entity{first, second, third} {
		require.NoError(t, repo.Save(ctx, entity))
	}

	stats, err := store.WorkspaceRepository().GetStats(ctx, workspace.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.EntityCount)
	assert.Equal(t, int64(0), stats.EdgeCount)

	got, err := repo.GetByID(ctx, workspace.ID(), first.ID())
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name())
	assert.Equal(t, 1, got.Version())

	// Replays of the same version are stale writes
	err = repo.Save(ctx, first)
	assertCode(t, err, "CONCURRENT_MODIFICATION")

	renamed := entities.ReconstructEntity(
		first.ID(), workspace.ID(), "person", "renamed",
		first.Properties(), 1, "user-1", first.CreatedAt(), storeClock.Add(time.Hour), 2,
	)
	require.NoError(t, repo.Save(ctx, renamed))

	got, err = repo.GetByID(ctx, workspace.ID(), first.ID())
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name())
	assert.Equal(t, 2, got.Version())

	// Updates must not disturb the counter
	stats, err = store.WorkspaceRepository().GetStats(ctx, workspace.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.EntityCount)

	listed, total, err := repo.List(ctx, workspace.ID(), ports.EntityListCriteria{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, listed, 3)
	assert.Equal(t, "renamed", listed[0].Name())
	assert.Equal(t, "second", listed[1].Name())
	assert.Equal(t, "third", listed[2].Name())

	listed, total, err = repo.List(ctx, workspace.ID(), ports.EntityListCriteria{EntityType: "person"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, listed, 2)

	listed, total, err = repo.List(ctx, workspace.ID(), ports.EntityListCriteria{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, listed, 1)
	assert.Equal(t, "second", listed[0].Name())

	listed, total, err = repo.List(ctx, workspace.ID(), ports.EntityListCriteria{Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, listed)

	_, err = repo.GetByID(ctx, workspace.ID(), valueobjects.NewEntityID())
	assertCode(t, err, "ENTITY_NOT_FOUND")

	foreign := storedEntity(valueobjects.NewWorkspaceID(), "person", "x", 9)
	err = repo.Save(ctx, foreign)
	assertCode(t, err, "WORKSPACE_NOT_FOUND")
}

func TestStore_EdgeLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	repo := store.EdgeRepository()

	workspace := seedWorkspace(t, store)
	a := storedEntity(workspace.ID(), "person", "a", 1)
	b := storedEntity(workspace.ID(), "person", "b", 2)
	c := storedEntity(workspace.ID(), "person", "c", 3)
	for _, entity := range []*entities.Entity{a, b, c} {
		require.NoError(t, store.EntityRepository().Save(ctx, entity))
	}

	knows := storedEdge(workspace.ID(), "knows", a.ID(), b.ID(), 4)
	require.NoError(t, repo.Save(ctx, knows))

	err := repo.Save(ctx, storedEdge(workspace.ID(), "knows", a.ID(), b.ID(), 5))
	assertCode(t, err, "DUPLICATE_EDGE")

	err = repo.Save(ctx, storedEdge(workspace.ID(), "knows", a.ID(), valueobjects.NewEntityID(), 6))
	assertCode(t, err, "ENTITY_NOT_FOUND")

	exists, err := repo.ExistsDuplicate(ctx, workspace.ID(), a.ID(), b.ID(), "knows")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsDuplicate(ctx, workspace.ID(), a.ID(), b.ID(), "likes")
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := repo.GetByID(ctx, workspace.ID(), knows.ID())
	require.NoError(t, err)
	assert.Equal(t, "knows", got.EdgeType())
	assert.True(t, got.SourceID().Equals(a.ID()))

	likes := storedEdge(workspace.ID(), "likes", a.ID(), c.ID(), 7)
	require.NoError(t, repo.Save(ctx, likes))

	stats, err := store.WorkspaceRepository().GetStats(ctx, workspace.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.EdgeCount)

	listed, total, err := repo.List(ctx, workspace.ID(), ports.EdgeListCriteria{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, listed, 2)
	assert.True(t, listed[0].ID().Equals(knows.ID()))
	assert.True(t, listed[1].ID().Equals(likes.ID()))

	bID := b.ID()
	listed, total, err = repo.List(ctx, workspace.ID(), ports.EdgeListCriteria{EntityID: &bID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].ID().Equals(knows.ID()))

	require.NoError(t, repo.Delete(ctx, workspace.ID(), knows.ID()))
	_, err = repo.GetByID(ctx, workspace.ID(), knows.ID())
	assertCode(t, err, "EDGE_NOT_FOUND")
	err = repo.Delete(ctx, workspace.ID(), knows.ID())
	assertCode(t, err, "EDGE_NOT_FOUND")

	stats, err = store.WorkspaceRepository().GetStats(ctx, workspace.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.EdgeCount)
}

func TestStore_EntityDeleteCascadesEdges(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	workspace := seedWorkspace(t, store)
	a := storedEntity(workspace.ID(), "person", "a", 1)
	b := storedEntity(workspace.ID(), "person", "b", 2)
	c := storedEntity(workspace.ID(), "person", "c", 3)
	for _, entity := range []*entities.Entity{a, b, c} {
		require.NoError(t, store.EntityRepository().Save(ctx, entity))
	}
	require.NoError(t, store.EdgeRepository().Save(ctx, storedEdge(workspace.ID(), "knows", a.ID(), b.ID(), 4)))
	require.NoError(t, store.EdgeRepository().Save(ctx, storedEdge(workspace.ID(), "knows", b.ID(), c.ID(), 5)))
	survivor := storedEdge(workspace.ID(), "knows", c.ID(), a.ID(), 6)
	require.NoError(t, store.EdgeRepository().Save(ctx, survivor))

	removed, err := store.EntityRepository().Delete(ctx, workspace.ID(), b.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	stats, err := store.WorkspaceRepository().GetStats(ctx, workspace.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.EntityCount)
	assert.Equal(t, int64(1), stats.EdgeCount)

	listed, total, err := store.EdgeRepository().List(ctx, workspace.ID(), ports.EdgeListCriteria{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].ID().Equals(survivor.ID()))

	_, err = store.EntityRepository().GetByID(ctx, workspace.ID(), b.ID())
	assertCode(t, err, "ENTITY_NOT_FOUND")
}

func TestStore_AdjustCounts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	repo := store.WorkspaceRepository()

	workspace := seedWorkspace(t, store)

	require.NoError(t, repo.AdjustCounts(ctx, workspace.ID(), 5, 3))
	require.NoError(t, repo.AdjustCounts(ctx, workspace.ID(), -2, 0))
	require.NoError(t, repo.AdjustCounts(ctx, workspace.ID(), 0, 0))

	stats, err := repo.GetStats(ctx, workspace.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.EntityCount)
	assert.Equal(t, int64(3), stats.EdgeCount)

	err = repo.AdjustCounts(ctx, valueobjects.NewWorkspaceID(), 1, 0)
	assertCode(t, err, "WORKSPACE_NOT_FOUND")
}

func TestStore_UnitOfWork(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	assertCode(t, store.Commit(ctx), "NO_TRANSACTION")
	assertCode(t, store.Rollback(), "NO_TRANSACTION")

	workspace := seedWorkspace(t, store)
	repo := store.EntityRepository()
	a := storedEntity(workspace.ID(), "person", "a", 1)
	require.NoError(t, repo.Save(ctx, a))

	require.NoError(t, store.Begin(ctx))
	b := storedEntity(workspace.ID(), "person", "b", 2)
	require.NoError(t, repo.Save(ctx, b))
	require.NoError(t, store.EdgeRepository().Save(ctx, storedEdge(workspace.ID(), "knows", a.ID(), b.ID(), 3)))

	// Uncommitted writes are visible to reads
	stats, err := store.WorkspaceRepository().GetStats(ctx, workspace.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.EntityCount)
	assert.Equal(t, int64(1), stats.EdgeCount)

	require.NoError(t, store.Rollback())

	_, err = repo.GetByID(ctx, workspace.ID(), b.ID())
	assertCode(t, err, "ENTITY_NOT_FOUND")
	got, err := repo.GetByID(ctx, workspace.ID(), a.ID())
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name())

	stats, err = store.WorkspaceRepository().GetStats(ctx, workspace.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.EntityCount)
	assert.Equal(t, int64(0), stats.EdgeCount)

	require.NoError(t, store.Begin(ctx))
	require.NoError(t, repo.Save(ctx, b))
	require.NoError(t, store.Commit(ctx))

	got, err = repo.GetByID(ctx, workspace.ID(), b.ID())
	require.NoError(t, err)
	assert.Equal(t, "b", got.Name())
}

func TestStore_Traversal(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	graphs := store.GraphRepository()

	workspace := seedWorkspace(t, store)
	a := storedEntity(workspace.ID(), "person", "a", 1)
	b := storedEntity(workspace.ID(), "person", "b", 2)
	c := storedEntity(workspace.ID(), "person", "c", 3)
	isolated := storedEntity(workspace.ID(), "person", "d", 4)
	for _, entity := range []*entities.Entity{a, b, c, isolated} {
		require.NoError(t, store.EntityRepository().Save(ctx, entity))
	}
	require.NoError(t, store.EdgeRepository().Save(ctx, storedEdge(workspace.ID(), "knows", a.ID(), b.ID(), 5)))
	require.NoError(t, store.EdgeRepository().Save(ctx, storedEdge(workspace.ID(), "knows", b.ID(), c.ID(), 6)))

	neighbors, total, err := graphs.Neighbors(ctx, workspace.ID(), b.ID(), policies.DirectionBoth, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, neighbors, 2)
	assert.True(t, neighbors[0].Entity.ID().Equals(a.ID()))
	assert.True(t, neighbors[1].Entity.ID().Equals(c.ID()))

	steps, err := graphs.FindPath(ctx, workspace.ID(), a.ID(), c.ID(), 5)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Nil(t, steps[0].Edge)
	assert.True(t, steps[0].Entity.ID().Equals(a.ID()))
	assert.True(t, steps[2].Entity.ID().Equals(c.ID()))

	_, err = graphs.FindPath(ctx, workspace.ID(), a.ID(), isolated.ID(), 3)
	assertCode(t, err, "PATH_NOT_FOUND")

	result, err := graphs.Traverse(ctx, workspace.ID(), a.ID(), policies.TraversalParams{
		Depth: 2, Limit: 10, Direction: policies.DirectionOut,
	})
	require.NoError(t, err)
	require.Len(t, result.Nodes, 3)
	assert.Equal(t, 0, result.Nodes[0].Depth)
	assert.Equal(t, 2, result.Nodes[2].Depth)
	assert.Len(t, result.Edges, 2)
	assert.False(t, result.Truncated)

	result, err = graphs.Traverse(ctx, workspace.ID(), a.ID(), policies.TraversalParams{
		Depth: 2, Limit: 2, Direction: policies.DirectionOut,
	})
	require.NoError(t, err)
	require.Len(t, result.Nodes, 2)
	assert.True(t, result.Truncated)

	_, _, err = graphs.Neighbors(ctx, valueobjects.NewWorkspaceID(), a.ID(), policies.DirectionBoth, 10, 0)
	assertCode(t, err, "WORKSPACE_NOT_FOUND")
	_, err = graphs.FindPath(ctx, workspace.ID(), valueobjects.NewEntityID(), a.ID(), 3)
	assertCode(t, err, "ENTITY_NOT_FOUND")
}

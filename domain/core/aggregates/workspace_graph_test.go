package aggregates

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/domain/core/entities"
	"lattice/domain/core/policies"
	"lattice/domain/core/valueobjects"
	pkgerrors "lattice/pkg/errors"
)

var testEdgeClock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEntity(t *testing.T, workspaceID valueobjects.WorkspaceID, name string) *entities.Entity {
	t.Helper()
	now := time.Now()
	return entities.ReconstructEntity(
		valueobjects.NewEntityID(), workspaceID, "person", name,
		valueobjects.EmptyPropertyBag(), 1, "tester", now, now, 1,
	)
}

func newTestEdge(workspaceID valueobjects.WorkspaceID, edgeType string, source, target valueobjects.EntityID, seq int) *entities.Edge {
	return entities.ReconstructEdge(
		valueobjects.NewEdgeID(), workspaceID, edgeType, source, target,
		valueobjects.EmptyPropertyBag(), "tester", testEdgeClock.Add(time.Duration(seq)*time.Second),
	)
}

// fixture: a->b (knows), b->c (knows), c->d (knows), a->c (likes), e isolated
type graphFixture struct {
	graph         *WorkspaceGraph
	a, b, c, d, e valueobjects.EntityID
}

func buildFixture(t *testing.T) *graphFixture {
	t.Helper()
	workspaceID := valueobjects.NewWorkspaceID()
	graph := NewWorkspaceGraph(workspaceID)

	a := newTestEntity(t, workspaceID, "a")
	b := newTestEntity(t, workspaceID, "b")
	c := newTestEntity(t, workspaceID, "c")
	d := newTestEntity(t, workspaceID, "d")
	e := newTestEntity(t, workspaceID, "e")
	for _, entity := range []*entities.Entity{a, b, c, d, e} {
		require.NoError(t, graph.AddEntity(entity))
	}

	require.NoError(t, graph.AddEdge(newTestEdge(workspaceID, "knows", a.ID(), b.ID(), 1)))
	require.NoError(t, graph.AddEdge(newTestEdge(workspaceID, "knows", b.ID(), c.ID(), 2)))
	require.NoError(t, graph.AddEdge(newTestEdge(workspaceID, "knows", c.ID(), d.ID(), 3)))
	require.NoError(t, graph.AddEdge(newTestEdge(workspaceID, "likes", a.ID(), c.ID(), 4)))

	return &graphFixture{
		graph: graph,
		a:     a.ID(), b: b.ID(), c: c.ID(), d: d.ID(), e: e.ID(),
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *pkgerrors.DomainError
	require.True(t, stderrors.As(err, &domainErr), "expected *DomainError, got %T", err)
	assert.Equal(t, code, domainErr.Code)
}

func TestWorkspaceGraph_AddEntity(t *testing.T) {
	workspaceID := valueobjects.NewWorkspaceID()
	graph := NewWorkspaceGraph(workspaceID)

	entity := newTestEntity(t, workspaceID, "a")
	require.NoError(t, graph.AddEntity(entity))
	assert.Equal(t, 1, graph.EntityCount())
	assert.True(t, graph.HasEntity(entity.ID()))

	err := graph.AddEntity(entity)
	assertCode(t, err, "ENTITY_ALREADY_EXISTS")

	foreign := newTestEntity(t, valueobjects.NewWorkspaceID(), "x")
	err = graph.AddEntity(foreign)
	assertCode(t, err, "WORKSPACE_MISMATCH")

	err = graph.AddEntity(nil)
	assertCode(t, err, "ENTITY_REQUIRED")
}

func TestWorkspaceGraph_AddEdge(t *testing.T) {
	workspaceID := valueobjects.NewWorkspaceID()
	graph := NewWorkspaceGraph(workspaceID)

	a := newTestEntity(t, workspaceID, "a")
	b := newTestEntity(t, workspaceID, "b")
	require.NoError(t, graph.AddEntity(a))
	require.NoError(t, graph.AddEntity(b))

	edge := newTestEdge(workspaceID, "knows", a.ID(), b.ID(), 1)
	require.NoError(t, graph.AddEdge(edge))
	assert.Equal(t, 1, graph.EdgeCount())

	// Same ID
	err := graph.AddEdge(edge)
	assertCode(t, err, "EDGE_ALREADY_EXISTS")

	// Same (source, target, type) triple under a fresh ID
	err = graph.AddEdge(newTestEdge(workspaceID, "knows", a.ID(), b.ID(), 2))
	assertCode(t, err, "DUPLICATE_EDGE")

	// Reversed direction is not a duplicate
	require.NoError(t, graph.AddEdge(newTestEdge(workspaceID, "knows", b.ID(), a.ID(), 3)))

	// Endpoints must exist
	ghost := valueobjects.NewEntityID()
	err = graph.AddEdge(newTestEdge(workspaceID, "knows", a.ID(), ghost, 4))
	assertCode(t, err, "ENTITY_NOT_FOUND")
}

func TestWorkspaceGraph_RemoveEntity_Cascades(t *testing.T) {
	f := buildFixture(t)

	// c touches b->c, c->d and a->c
	removed, err := f.graph.RemoveEntity(f.c)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	assert.False(t, f.graph.HasEntity(f.c))
	assert.Equal(t, 1, f.graph.EdgeCount()) // only a->b survives
	assert.NoError(t, f.graph.Validate())

	// Duplicate key is released with the cascade
	assert.False(t, f.graph.HasDuplicate(f.b, f.c, "knows"))

	_, err = f.graph.RemoveEntity(f.c)
	assertCode(t, err, "ENTITY_NOT_FOUND")
}

func TestWorkspaceGraph_RemoveEdge(t *testing.T) {
	f := buildFixture(t)

	neighbors, _, err := f.graph.Neighbors(f.a, policies.DirectionOut, 0, 0)
	require.NoError(t, err)
	require.Len(t, neighbors, 2)

	require.NoError(t, f.graph.RemoveEdge(neighbors[0].Edge.ID()))
	assert.Equal(t, 3, f.graph.EdgeCount())

	err = f.graph.RemoveEdge(neighbors[0].Edge.ID())
	assertCode(t, err, "EDGE_NOT_FOUND")
}

func TestWorkspaceGraph_Neighbors(t *testing.T) {
	f := buildFixture(t)

	t.Run("outgoing ordered by edge creation", func(t *testing.T) {
		neighbors, total, err := f.graph.Neighbors(f.a, policies.DirectionOut, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, neighbors, 2)
		assert.True(t, neighbors[0].Entity.ID().Equals(f.b))
		assert.True(t, neighbors[1].Entity.ID().Equals(f.c))
	})

	t.Run("incoming", func(t *testing.T) {
		neighbors, total, err := f.graph.Neighbors(f.c, policies.DirectionIn, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.True(t, neighbors[0].Entity.ID().Equals(f.b))
		assert.True(t, neighbors[1].Entity.ID().Equals(f.a))
	})

	t.Run("both directions", func(t *testing.T) {
		neighbors, total, err := f.graph.Neighbors(f.c, policies.DirectionBoth, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, neighbors, 3)
	})

	t.Run("paging", func(t *testing.T) {
		neighbors, total, err := f.graph.Neighbors(f.c, policies.DirectionBoth, 2, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, neighbors, 2)

		neighbors, total, err = f.graph.Neighbors(f.c, policies.DirectionBoth, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, neighbors, 1)

		neighbors, _, err = f.graph.Neighbors(f.c, policies.DirectionBoth, 2, 10)
		require.NoError(t, err)
		assert.Empty(t, neighbors)
	})

	t.Run("isolated entity", func(t *testing.T) {
		neighbors, total, err := f.graph.Neighbors(f.e, policies.DirectionBoth, 0, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, neighbors)
	})

	t.Run("unknown entity", func(t *testing.T) {
		_, _, err := f.graph.Neighbors(valueobjects.NewEntityID(), policies.DirectionBoth, 0, 0)
		assertCode(t, err, "ENTITY_NOT_FOUND")
	})
}

func TestWorkspaceGraph_FindPath(t *testing.T) {
	f := buildFixture(t)

	t.Run("shortest path wins", func(t *testing.T) {
		// a->c->d beats a->b->c->d
		path, err := f.graph.FindPath(f.a, f.d, 8)
		require.NoError(t, err)
		require.Len(t, path, 3)

		assert.True(t, path[0].Entity.ID().Equals(f.a))
		assert.Nil(t, path[0].Edge)
		assert.True(t, path[1].Entity.ID().Equals(f.c))
		assert.Equal(t, "likes", path[1].Edge.EdgeType())
		assert.True(t, path[2].Entity.ID().Equals(f.d))
		assert.Equal(t, "knows", path[2].Edge.EdgeType())
	})

	t.Run("edges are undirected for pathfinding", func(t *testing.T) {
		path, err := f.graph.FindPath(f.d, f.a, 8)
		require.NoError(t, err)
		assert.Len(t, path, 3)
	})

	t.Run("same entity is a single-step path", func(t *testing.T) {
		path, err := f.graph.FindPath(f.a, f.a, 8)
		require.NoError(t, err)
		require.Len(t, path, 1)
		assert.True(t, path[0].Entity.ID().Equals(f.a))
		assert.Nil(t, path[0].Edge)
	})

	t.Run("depth bound cuts long paths", func(t *testing.T) {
		_, err := f.graph.FindPath(f.a, f.d, 1)
		assertCode(t, err, "PATH_NOT_FOUND")

		path, err := f.graph.FindPath(f.a, f.d, 2)
		require.NoError(t, err)
		assert.Len(t, path, 3)
	})

	t.Run("no path to isolated entity", func(t *testing.T) {
		_, err := f.graph.FindPath(f.a, f.e, 8)
		assertCode(t, err, "PATH_NOT_FOUND")
	})

	t.Run("unknown endpoints", func(t *testing.T) {
		_, err := f.graph.FindPath(valueobjects.NewEntityID(), f.a, 8)
		assertCode(t, err, "ENTITY_NOT_FOUND")

		_, err = f.graph.FindPath(f.a, valueobjects.NewEntityID(), 8)
		assertCode(t, err, "ENTITY_NOT_FOUND")
	})
}

func TestWorkspaceGraph_Traverse(t *testing.T) {
	f := buildFixture(t)

	params := func(depth, limit, offset int, direction policies.Direction) policies.TraversalParams {
		return policies.TraversalParams{Depth: depth, Limit: limit, Offset: offset, Direction: direction}
	}

	t.Run("depth one", func(t *testing.T) {
		result, err := f.graph.Traverse(f.a, params(1, 50, 0, policies.DirectionBoth), 5000)
		require.NoError(t, err)
		require.Len(t, result.Nodes, 3)

		assert.True(t, result.Nodes[0].Entity.ID().Equals(f.a))
		assert.Equal(t, 0, result.Nodes[0].Depth)
		assert.True(t, result.Nodes[1].Entity.ID().Equals(f.b))
		assert.Equal(t, 1, result.Nodes[1].Depth)
		assert.True(t, result.Nodes[2].Entity.ID().Equals(f.c))
		assert.Equal(t, 1, result.Nodes[2].Depth)
		assert.False(t, result.Truncated)

		// a->b, b->c and a->c all connect in-page nodes
		assert.Len(t, result.Edges, 3)
	})

	t.Run("depth two reaches d", func(t *testing.T) {
		result, err := f.graph.Traverse(f.a, params(2, 50, 0, policies.DirectionBoth), 5000)
		require.NoError(t, err)
		require.Len(t, result.Nodes, 4)
		assert.True(t, result.Nodes[3].Entity.ID().Equals(f.d))
		assert.Equal(t, 2, result.Nodes[3].Depth)
		assert.Len(t, result.Edges, 4)
	})

	t.Run("direction out", func(t *testing.T) {
		result, err := f.graph.Traverse(f.c, params(3, 50, 0, policies.DirectionOut), 5000)
		require.NoError(t, err)
		require.Len(t, result.Nodes, 2)
		assert.True(t, result.Nodes[1].Entity.ID().Equals(f.d))
	})

	t.Run("direction in", func(t *testing.T) {
		result, err := f.graph.Traverse(f.c, params(3, 50, 0, policies.DirectionIn), 5000)
		require.NoError(t, err)
		// c <- b <- a and c <- a collapse into three nodes
		require.Len(t, result.Nodes, 3)
	})

	t.Run("visit budget truncates", func(t *testing.T) {
		result, err := f.graph.Traverse(f.a, params(3, 50, 0, policies.DirectionBoth), 2)
		require.NoError(t, err)
		assert.Len(t, result.Nodes, 2)
		assert.True(t, result.Truncated)
	})

	t.Run("limit truncates", func(t *testing.T) {
		result, err := f.graph.Traverse(f.a, params(2, 2, 0, policies.DirectionBoth), 5000)
		require.NoError(t, err)
		assert.Len(t, result.Nodes, 2)
		assert.True(t, result.Truncated)
	})

	t.Run("offset pages past the start", func(t *testing.T) {
		result, err := f.graph.Traverse(f.a, params(2, 50, 1, policies.DirectionBoth), 5000)
		require.NoError(t, err)
		require.Len(t, result.Nodes, 3)
		assert.True(t, result.Nodes[0].Entity.ID().Equals(f.b))

		result, err = f.graph.Traverse(f.a, params(2, 50, 100, policies.DirectionBoth), 5000)
		require.NoError(t, err)
		assert.Empty(t, result.Nodes)
	})

	t.Run("isolated start", func(t *testing.T) {
		result, err := f.graph.Traverse(f.e, params(3, 50, 0, policies.DirectionBoth), 5000)
		require.NoError(t, err)
		require.Len(t, result.Nodes, 1)
		assert.Empty(t, result.Edges)
	})

	t.Run("unknown start is not-found", func(t *testing.T) {
		_, err := f.graph.Traverse(valueobjects.NewEntityID(), params(2, 50, 0, policies.DirectionBoth), 5000)
		assertCode(t, err, "ENTITY_NOT_FOUND")
	})
}

func TestWorkspaceGraph_Validate(t *testing.T) {
	f := buildFixture(t)
	assert.NoError(t, f.graph.Validate())
}

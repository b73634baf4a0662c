package queries

import (
	"lattice/pkg/utils"
)

// GetNeighborsQuery fetches the entities adjacent to one entity together
// with the connecting edges. Direction defaults to both; limit and offset
// follow the traversal clamps.
type GetNeighborsQuery struct {
	UserID      string `json:"user_id" validate:"required"`
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	EntityID    string `json:"entity_id" validate:"required,uuid"`
	Direction   string `json:"direction"`
	Limit       int    `json:"limit"`
	Offset      int    `json:"offset"`
}

// Validate validates the query
func (q GetNeighborsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetNeighborsResult is one page of neighbors plus the pre-paging total
type GetNeighborsResult struct {
	Neighbors []NeighborResult `json:"neighbors"`
	Total     int              `json:"total"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
}

// FindPathQuery finds the shortest path between two entities by hop count.
// MaxDepth 0 means the traversal ceiling; larger values are clamped to it.
type FindPathQuery struct {
	UserID      string `json:"user_id" validate:"required"`
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	FromID      string `json:"from_id" validate:"required,uuid"`
	ToID        string `json:"to_id" validate:"required,uuid"`
	MaxDepth    int    `json:"max_depth" validate:"min=0"`
}

// Validate validates the query
func (q FindPathQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// FindPathResult is the interleaved entity/edge sequence from source to
// target. A path from an entity to itself has one step and no edges.
type FindPathResult struct {
	Steps  []PathStepResult `json:"steps"`
	Length int              `json:"length"`
}

// TraverseGraphQuery expands the subgraph reachable from a start entity
// with bounded depth. Out-of-range numerics are clamped silently; only an
// unknown direction is an error.
type TraverseGraphQuery struct {
	UserID      string `json:"user_id" validate:"required"`
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	StartID     string `json:"start_id" validate:"required,uuid"`
	Depth       int    `json:"depth"`
	Limit       int    `json:"limit"`
	Offset      int    `json:"offset"`
	Direction   string `json:"direction"`
}

// Validate validates the query
func (q TraverseGraphQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// TraverseGraphResult is the visited subgraph. Truncated is set when a
// depth, limit, or visit-budget bound cut the expansion short.
type TraverseGraphResult struct {
	Nodes     []TraversalNodeResult `json:"nodes"`
	Edges     []EdgeResult          `json:"edges"`
	Truncated bool                  `json:"truncated"`
}

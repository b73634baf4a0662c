package queries

import (
	"lattice/pkg/utils"
)

// GetEdgeQuery fetches one edge
type GetEdgeQuery struct {
	UserID      string `json:"user_id" validate:"required"`
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	EdgeID      string `json:"edge_id" validate:"required,uuid"`
}

// Validate validates the query
func (q GetEdgeQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListEdgesQuery lists edges, optionally restricted to those touching one
// entity on either end.
type ListEdgesQuery struct {
	UserID      string `json:"user_id" validate:"required"`
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	EntityID    string `json:"entity_id" validate:"omitempty,uuid"`
	Limit       int    `json:"limit"`
	Offset      int    `json:"offset"`
}

// Validate validates the query
func (q ListEdgesQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListEdgesResult is one page of edges plus the pre-paging total
type ListEdgesResult struct {
	Edges  []EdgeResult `json:"edges"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

package queries

import (
	"lattice/pkg/utils"
)

// GetEntityQuery fetches one entity
type GetEntityQuery struct {
	UserID      string `json:"user_id" validate:"required"`
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	EntityID    string `json:"entity_id" validate:"required,uuid"`
}

// Validate validates the query
func (q GetEntityQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListEntitiesQuery lists entities, optionally filtered by declared type.
// Limit and offset outside their bounds are clamped, not rejected.
type ListEntitiesQuery struct {
	UserID      string `json:"user_id" validate:"required"`
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	EntityType  string `json:"entity_type" validate:"omitempty,identifier"`
	Limit       int    `json:"limit"`
	Offset      int    `json:"offset"`
}

// Validate validates the query
func (q ListEntitiesQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListEntitiesResult is one page of entities plus the pre-paging total
type ListEntitiesResult struct {
	Entities []EntityResult `json:"entities"`
	Total    int            `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
}

package queries

import (
	"lattice/pkg/utils"
)

// GetWorkspaceQuery fetches one workspace the user is a member of
type GetWorkspaceQuery struct {
	UserID      string `json:"user_id" validate:"required"`
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
}

// Validate validates the query
func (q GetWorkspaceQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetWorkspaceResult is a workspace together with its graph counters
type GetWorkspaceResult struct {
	WorkspaceResult
	EntityCount int64 `json:"entity_count"`
	EdgeCount   int64 `json:"edge_count"`
}

// ListWorkspacesQuery lists the workspaces the user belongs to
type ListWorkspacesQuery struct {
	UserID string `json:"user_id" validate:"required"`
}

// Validate validates the query
func (q ListWorkspacesQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListWorkspacesResult is the user's workspace listing
type ListWorkspacesResult struct {
	Workspaces []WorkspaceResult `json:"workspaces"`
	Total      int               `json:"total"`
}

// ListMembersQuery lists a workspace's members
type ListMembersQuery struct {
	UserID      string `json:"user_id" validate:"required"`
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
}

// Validate validates the query
func (q ListMembersQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListMembersResult is a workspace's member listing
type ListMembersResult struct {
	Members []MemberResult `json:"members"`
	Total   int            `json:"total"`
}

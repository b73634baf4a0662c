package commands

import (
	"lattice/pkg/utils"
)

// CreateWorkspaceCommand creates a workspace owned by the requesting user.
// The workspace ID is assigned by the caller so the API can return it
// without a read back.
type CreateWorkspaceCommand struct {
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	UserID      string `json:"user_id" validate:"required"`
	Name        string `json:"name" validate:"required,min=1,max=120"`
}

// Validate validates the command
func (cmd CreateWorkspaceCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// DeleteWorkspaceCommand deletes a workspace and everything inside it
type DeleteWorkspaceCommand struct {
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	UserID      string `json:"user_id" validate:"required"`
}

// Validate validates the command
func (cmd DeleteWorkspaceCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// AddMemberCommand grants a user a role in a workspace. The owner role is
// fixed at creation and cannot be granted.
type AddMemberCommand struct {
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	UserID      string `json:"user_id" validate:"required"`
	MemberID    string `json:"member_id" validate:"required"`
	Role        string `json:"role" validate:"required,oneof=admin member guest"`
}

// Validate validates the command
func (cmd AddMemberCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// RemoveMemberCommand revokes a user's membership
type RemoveMemberCommand struct {
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	UserID      string `json:"user_id" validate:"required"`
	MemberID    string `json:"member_id" validate:"required"`
}

// Validate validates the command
func (cmd RemoveMemberCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// ChangeMemberRoleCommand changes an existing member's role
type ChangeMemberRoleCommand struct {
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	UserID      string `json:"user_id" validate:"required"`
	MemberID    string `json:"member_id" validate:"required"`
	Role        string `json:"role" validate:"required,oneof=admin member guest"`
}

// Validate validates the command
func (cmd ChangeMemberRoleCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

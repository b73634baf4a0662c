package commands

import (
	"errors"

	"lattice/pkg/utils"
)

// CreateEntityCommand creates a typed entity in a workspace. Properties are
// validated against the workspace's active schema before anything is stored.
type CreateEntityCommand struct {
	EntityID    string                 `json:"entity_id" validate:"required,uuid"`
	WorkspaceID string                 `json:"workspace_id" validate:"required,uuid"`
	UserID      string                 `json:"user_id" validate:"required"`
	EntityType  string                 `json:"entity_type" validate:"required,identifier"`
	Name        string                 `json:"name" validate:"required,min=1,max=200"`
	Properties  map[string]interface{} `json:"properties"`
}

// Validate validates the command
func (cmd CreateEntityCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// UpdateEntityCommand updates an entity's name, properties, or both. A nil
// property map leaves properties untouched; a non-nil map replaces them
// after re-validation against the active schema.
type UpdateEntityCommand struct {
	WorkspaceID string                 `json:"workspace_id" validate:"required,uuid"`
	UserID      string                 `json:"user_id" validate:"required"`
	EntityID    string                 `json:"entity_id" validate:"required,uuid"`
	Name        *string                `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
}

// Validate validates the command
func (cmd UpdateEntityCommand) Validate() error {
	if err := utils.ValidateStruct(cmd); err != nil {
		return err
	}
	if cmd.Name == nil && cmd.Properties == nil {
		return errors.New("update requires a name or properties")
	}
	return nil
}

// DeleteEntityCommand deletes an entity and every edge touching it
type DeleteEntityCommand struct {
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	UserID      string `json:"user_id" validate:"required"`
	EntityID    string `json:"entity_id" validate:"required,uuid"`
}

// Validate validates the command
func (cmd DeleteEntityCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

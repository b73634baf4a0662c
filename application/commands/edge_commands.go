package commands

import (
	"lattice/pkg/utils"
)

// CreateEdgeCommand creates a typed edge between two entities in the same
// workspace. Endpoint type constraints and edge properties are checked
// against the workspace's active schema.
type CreateEdgeCommand struct {
	EdgeID      string                 `json:"edge_id" validate:"required,uuid"`
	WorkspaceID string                 `json:"workspace_id" validate:"required,uuid"`
	UserID      string                 `json:"user_id" validate:"required"`
	EdgeType    string                 `json:"edge_type" validate:"required,identifier"`
	SourceID    string                 `json:"source_id" validate:"required,uuid"`
	TargetID    string                 `json:"target_id" validate:"required,uuid"`
	Properties  map[string]interface{} `json:"properties"`
}

// Validate validates the command
func (cmd CreateEdgeCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// DeleteEdgeCommand deletes a single edge
type DeleteEdgeCommand struct {
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	UserID      string `json:"user_id" validate:"required"`
	EdgeID      string `json:"edge_id" validate:"required,uuid"`
}

// Validate validates the command
func (cmd DeleteEdgeCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

package commands

import (
	"lattice/domain/core/schema"
	"lattice/pkg/utils"
)

// PublishSchemaCommand publishes a new immutable schema version for a
// workspace. Structural validation of the definition itself happens in the
// domain validator so every violation is reported, not just the first.
type PublishSchemaCommand struct {
	WorkspaceID string                        `json:"workspace_id" validate:"required,uuid"`
	UserID      string                        `json:"user_id" validate:"required"`
	Name        string                        `json:"name" validate:"omitempty,max=120"`
	EntityTypes []schema.EntityTypeDefinition `json:"entity_types"`
	EdgeTypes   []schema.EdgeTypeDefinition   `json:"edge_types"`
}

// Validate validates the command
func (cmd PublishSchemaCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

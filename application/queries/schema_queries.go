package queries

import (
	"fmt"

	"lattice/application/ports"
	"lattice/domain/core/schema"
	"lattice/pkg/utils"
)

// GetSchemaQuery fetches a schema version. Version 0 means the workspace's
// active version.
type GetSchemaQuery struct {
	UserID      string `json:"user_id" validate:"required"`
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	Version     int    `json:"version" validate:"min=0"`
}

// Validate validates the query
func (q GetSchemaQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// CacheKey opts explicit-version lookups into result caching. Version 0
// resolves through the workspace's active pointer, which moves on publish,
// so those lookups are never cached. The key carries the user so a cached
// result cannot leak past the membership check.
func (q GetSchemaQuery) CacheKey() string {
	if q.Version == 0 {
		return ""
	}
	return fmt.Sprintf("query:schema:%s:%s:%d", q.UserID, q.WorkspaceID, q.Version)
}

// GetSchemaResult is one published schema version
type GetSchemaResult struct {
	Version     int                           `json:"version"`
	Name        string                        `json:"name,omitempty"`
	EntityTypes []schema.EntityTypeDefinition `json:"entity_types,omitempty"`
	EdgeTypes   []schema.EdgeTypeDefinition   `json:"edge_types,omitempty"`
	PublishedBy string                        `json:"published_by"`
	PublishedAt string                        `json:"published_at"`
	Active      bool                          `json:"active"`
}

// ListSchemaVersionsQuery lists a workspace's published schema versions
type ListSchemaVersionsQuery struct {
	UserID      string `json:"user_id" validate:"required"`
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
}

// Validate validates the query
func (q ListSchemaVersionsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListSchemaVersionsResult lists version summaries, newest first
type ListSchemaVersionsResult struct {
	Versions      []ports.SchemaVersionSummary `json:"versions"`
	ActiveVersion int                          `json:"active_version"`
	Total         int                          `json:"total"`
}

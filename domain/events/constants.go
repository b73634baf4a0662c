package events

// Event sources - These define where events originate from
const (
	// SourceAPI is the primary API service source
	SourceAPI = "lattice.api"

	// SourceGraphEvents is the graph-events consumer source
	SourceGraphEvents = "lattice.graphEvents"
)

// Event types - These define the types of events in the system
const (
	// Workspace events
	TypeWorkspaceCreated           = "workspace.created"
	TypeWorkspaceDeleted           = "workspace.deleted"
	TypeWorkspaceMemberAdded       = "workspace.member_added"
	TypeWorkspaceMemberRemoved     = "workspace.member_removed"
	TypeWorkspaceMemberRoleChanged = "workspace.member_role_changed"

	// Schema events
	TypeSchemaPublished = "schema.published"

	// Entity events
	TypeEntityCreated = "entity.created"
	TypeEntityUpdated = "entity.updated"
	TypeEntityDeleted = "entity.deleted"

	// Edge events
	TypeEdgeCreated = "edge.created"
	TypeEdgeDeleted = "edge.deleted"
)

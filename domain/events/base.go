package events

import (
	"time"

	"lattice/domain/core/policies"
	"lattice/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetWorkspaceID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	WorkspaceID string    `json:"workspace_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetWorkspaceID() string  { return e.WorkspaceID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBaseEvent(aggregateID string, workspaceID valueobjects.WorkspaceID, eventType string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		WorkspaceID: workspaceID.String(),
		EventType:   eventType,
		Timestamp:   timestamp,
		Version:     1,
	}
}

// Workspace Events

// WorkspaceCreated is raised when a new workspace is created
type WorkspaceCreated struct {
	BaseEvent
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
}

// NewWorkspaceCreated creates a WorkspaceCreated event
func NewWorkspaceCreated(workspaceID valueobjects.WorkspaceID, ownerID, name string, timestamp time.Time) WorkspaceCreated {
	return WorkspaceCreated{
		BaseEvent: newBaseEvent(workspaceID.String(), workspaceID, TypeWorkspaceCreated, timestamp),
		OwnerID:   ownerID,
		Name:      name,
	}
}

// WorkspaceDeleted is raised when a workspace and all its contents are removed
type WorkspaceDeleted struct {
	BaseEvent
	DeletedBy string `json:"deleted_by"`
}

// NewWorkspaceDeleted creates a WorkspaceDeleted event
func NewWorkspaceDeleted(workspaceID valueobjects.WorkspaceID, deletedBy string, timestamp time.Time) WorkspaceDeleted {
	return WorkspaceDeleted{
		BaseEvent: newBaseEvent(workspaceID.String(), workspaceID, TypeWorkspaceDeleted, timestamp),
		DeletedBy: deletedBy,
	}
}

// MemberAdded is raised when a user is added to a workspace
type MemberAdded struct {
	BaseEvent
	UserID  string        `json:"user_id"`
	Role    policies.Role `json:"role"`
	AddedBy string        `json:"added_by"`
}

// NewMemberAdded creates a MemberAdded event
func NewMemberAdded(workspaceID valueobjects.WorkspaceID, userID string, role policies.Role, addedBy string, timestamp time.Time) MemberAdded {
	return MemberAdded{
		BaseEvent: newBaseEvent(workspaceID.String(), workspaceID, TypeWorkspaceMemberAdded, timestamp),
		UserID:    userID,
		Role:      role,
		AddedBy:   addedBy,
	}
}

// MemberRemoved is raised when a user is removed from a workspace
type MemberRemoved struct {
	BaseEvent
	UserID    string `json:"user_id"`
	RemovedBy string `json:"removed_by"`
}

// NewMemberRemoved creates a MemberRemoved event
func NewMemberRemoved(workspaceID valueobjects.WorkspaceID, userID, removedBy string, timestamp time.Time) MemberRemoved {
	return MemberRemoved{
		BaseEvent: newBaseEvent(workspaceID.String(), workspaceID, TypeWorkspaceMemberRemoved, timestamp),
		UserID:    userID,
		RemovedBy: removedBy,
	}
}

// MemberRoleChanged is raised when a member's role is changed
type MemberRoleChanged struct {
	BaseEvent
	UserID    string        `json:"user_id"`
	OldRole   policies.Role `json:"old_role"`
	NewRole   policies.Role `json:"new_role"`
	ChangedBy string        `json:"changed_by"`
}

// NewMemberRoleChanged creates a MemberRoleChanged event
func NewMemberRoleChanged(workspaceID valueobjects.WorkspaceID, userID string, oldRole, newRole policies.Role, changedBy string, timestamp time.Time) MemberRoleChanged {
	return MemberRoleChanged{
		BaseEvent: newBaseEvent(workspaceID.String(), workspaceID, TypeWorkspaceMemberRoleChanged, timestamp),
		UserID:    userID,
		OldRole:   oldRole,
		NewRole:   newRole,
		ChangedBy: changedBy,
	}
}

// Schema Events

// SchemaPublished is raised when a new schema version becomes active
type SchemaPublished struct {
	BaseEvent
	SchemaVersion   int    `json:"schema_version"`
	PublishedBy     string `json:"published_by"`
	EntityTypeCount int    `json:"entity_type_count"`
	EdgeTypeCount   int    `json:"edge_type_count"`
}

// NewSchemaPublished creates a SchemaPublished event
func NewSchemaPublished(workspaceID valueobjects.WorkspaceID, schemaVersion int, publishedBy string, entityTypes, edgeTypes int, timestamp time.Time) SchemaPublished {
	return SchemaPublished{
		BaseEvent:       newBaseEvent(workspaceID.String(), workspaceID, TypeSchemaPublished, timestamp),
		SchemaVersion:   schemaVersion,
		PublishedBy:     publishedBy,
		EntityTypeCount: entityTypes,
		EdgeTypeCount:   edgeTypes,
	}
}

// Entity Events

// EntityCreated is raised when a new entity is created
type EntityCreated struct {
	BaseEvent
	EntityID   valueobjects.EntityID `json:"entity_id"`
	EntityType string                `json:"entity_type"`
	CreatedBy  string                `json:"created_by"`
}

// NewEntityCreated creates an EntityCreated event
func NewEntityCreated(entityID valueobjects.EntityID, workspaceID valueobjects.WorkspaceID, entityType, createdBy string, timestamp time.Time) EntityCreated {
	return EntityCreated{
		BaseEvent:  newBaseEvent(entityID.String(), workspaceID, TypeEntityCreated, timestamp),
		EntityID:   entityID,
		EntityType: entityType,
		CreatedBy:  createdBy,
	}
}

// EntityUpdated is raised when an entity's properties change
type EntityUpdated struct {
	BaseEvent
	EntityID   valueobjects.EntityID `json:"entity_id"`
	EntityType string                `json:"entity_type"`
	UpdatedBy  string                `json:"updated_by"`
}

// NewEntityUpdated creates an EntityUpdated event
func NewEntityUpdated(entityID valueobjects.EntityID, workspaceID valueobjects.WorkspaceID, entityType, updatedBy string, timestamp time.Time) EntityUpdated {
	return EntityUpdated{
		BaseEvent:  newBaseEvent(entityID.String(), workspaceID, TypeEntityUpdated, timestamp),
		EntityID:   entityID,
		EntityType: entityType,
		UpdatedBy:  updatedBy,
	}
}

// EntityDeleted is raised when an entity is deleted along with its edges
type EntityDeleted struct {
	BaseEvent
	EntityID     valueobjects.EntityID `json:"entity_id"`
	EntityType   string                `json:"entity_type"`
	DeletedBy    string                `json:"deleted_by"`
	RemovedEdges int                   `json:"removed_edges"`
}

// NewEntityDeleted creates an EntityDeleted event
func NewEntityDeleted(entityID valueobjects.EntityID, workspaceID valueobjects.WorkspaceID, entityType, deletedBy string, removedEdges int, timestamp time.Time) EntityDeleted {
	return EntityDeleted{
		BaseEvent:    newBaseEvent(entityID.String(), workspaceID, TypeEntityDeleted, timestamp),
		EntityID:     entityID,
		EntityType:   entityType,
		DeletedBy:    deletedBy,
		RemovedEdges: removedEdges,
	}
}

// Edge Events

// EdgeCreated is raised when two entities are connected
type EdgeCreated struct {
	BaseEvent
	EdgeID    valueobjects.EdgeID   `json:"edge_id"`
	EdgeType  string                `json:"edge_type"`
	SourceID  valueobjects.EntityID `json:"source_id"`
	TargetID  valueobjects.EntityID `json:"target_id"`
	CreatedBy string                `json:"created_by"`
}

// NewEdgeCreated creates an EdgeCreated event
func NewEdgeCreated(edgeID valueobjects.EdgeID, workspaceID valueobjects.WorkspaceID, edgeType string, sourceID, targetID valueobjects.EntityID, createdBy string, timestamp time.Time) EdgeCreated {
	return EdgeCreated{
		BaseEvent: newBaseEvent(edgeID.String(), workspaceID, TypeEdgeCreated, timestamp),
		EdgeID:    edgeID,
		EdgeType:  edgeType,
		SourceID:  sourceID,
		TargetID:  targetID,
		CreatedBy: createdBy,
	}
}

// EdgeDeleted is raised when an edge is removed
type EdgeDeleted struct {
	BaseEvent
	EdgeID    valueobjects.EdgeID   `json:"edge_id"`
	EdgeType  string                `json:"edge_type"`
	SourceID  valueobjects.EntityID `json:"source_id"`
	TargetID  valueobjects.EntityID `json:"target_id"`
	DeletedBy string                `json:"deleted_by"`
}

// NewEdgeDeleted creates an EdgeDeleted event
func NewEdgeDeleted(edgeID valueobjects.EdgeID, workspaceID valueobjects.WorkspaceID, edgeType string, sourceID, targetID valueobjects.EntityID, deletedBy string, timestamp time.Time) EdgeDeleted {
	return EdgeDeleted{
		BaseEvent: newBaseEvent(edgeID.String(), workspaceID, TypeEdgeDeleted, timestamp),
		EdgeID:    edgeID,
		EdgeType:  edgeType,
		SourceID:  sourceID,
		TargetID:  targetID,
		DeletedBy: deletedBy,
	}
}

package entities

import (
	"fmt"
	"time"

	"lattice/domain/config"
	"lattice/domain/core/valueobjects"
	"lattice/domain/events"
	pkgerrors "lattice/pkg/errors"
)

// Edge is a typed, directed connection between two entities in the same
// workspace. Edges are immutable once created; changing one means deleting
// it and creating a replacement.
type Edge struct {
	id          valueobjects.EdgeID
	workspaceID valueobjects.WorkspaceID
	edgeType    string
	sourceID    valueobjects.EntityID
	targetID    valueobjects.EntityID
	properties  valueobjects.PropertyBag
	createdBy   string
	createdAt   time.Time

	events []events.DomainEvent
}

// NewEdge creates a new edge with business rule validation
func NewEdge(workspaceID valueobjects.WorkspaceID, edgeType string, sourceID, targetID valueobjects.EntityID, properties valueobjects.PropertyBag, createdBy string) (*Edge, error) {
	return NewEdgeWithConfig(workspaceID, edgeType, sourceID, targetID, properties, createdBy, config.DefaultDomainConfig())
}

// NewEdgeWithConfig creates a new edge with explicit limits
func NewEdgeWithConfig(workspaceID valueobjects.WorkspaceID, edgeType string, sourceID, targetID valueobjects.EntityID, properties valueobjects.PropertyBag, createdBy string, cfg *config.DomainConfig) (*Edge, error) {
	return NewEdgeWithID(valueobjects.NewEdgeID(), workspaceID, edgeType, sourceID, targetID, properties, createdBy, cfg)
}

// NewEdgeWithID creates a new edge under a caller-assigned ID
func NewEdgeWithID(id valueobjects.EdgeID, workspaceID valueobjects.WorkspaceID, edgeType string, sourceID, targetID valueobjects.EntityID, properties valueobjects.PropertyBag, createdBy string, cfg *config.DomainConfig) (*Edge, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if id.IsZero() {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "EDGE_ID_REQUIRED",
			"Edge ID is required")
	}
	if workspaceID.IsZero() {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "WORKSPACE_ID_REQUIRED",
			"Edge must belong to a workspace")
	}
	if createdBy == "" {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "USER_ID_REQUIRED",
			"Edge creator is required")
	}
	if edgeType == "" {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "EDGE_TYPE_REQUIRED",
			"Edge type is required")
	}
	if sourceID.IsZero() || targetID.IsZero() {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "EDGE_ENDPOINTS_REQUIRED",
			"Edge requires both a source and a target entity")
	}
	if !cfg.AllowSelfReferentialEdges && sourceID.Equals(targetID) {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainBusinessRuleError, "SELF_REFERENTIAL_EDGE",
			"Cannot create an edge from an entity to itself").
			WithDetail("entity_id", sourceID.String())
	}

	now := time.Now()
	edge := &Edge{
		id:          id,
		workspaceID: workspaceID,
		edgeType:    edgeType,
		sourceID:    sourceID,
		targetID:    targetID,
		properties:  properties,
		createdBy:   createdBy,
		createdAt:   now,
		events:      []events.DomainEvent{},
	}

	edge.addEvent(events.NewEdgeCreated(edge.id, workspaceID, edgeType, sourceID, targetID, createdBy, now))

	return edge, nil
}

// ReconstructEdge rebuilds an edge from repository data without raising events
func ReconstructEdge(
	id valueobjects.EdgeID,
	workspaceID valueobjects.WorkspaceID,
	edgeType string,
	sourceID, targetID valueobjects.EntityID,
	properties valueobjects.PropertyBag,
	createdBy string,
	createdAt time.Time,
) *Edge {
	return &Edge{
		id:          id,
		workspaceID: workspaceID,
		edgeType:    edgeType,
		sourceID:    sourceID,
		targetID:    targetID,
		properties:  properties,
		createdBy:   createdBy,
		createdAt:   createdAt,
		events:      []events.DomainEvent{},
	}
}

// ID returns the edge's unique identifier
func (e *Edge) ID() valueobjects.EdgeID {
	return e.id
}

// WorkspaceID returns the owning workspace
func (e *Edge) WorkspaceID() valueobjects.WorkspaceID {
	return e.workspaceID
}

// EdgeType returns the declared type name
func (e *Edge) EdgeType() string {
	return e.edgeType
}

// SourceID returns the source entity's ID
func (e *Edge) SourceID() valueobjects.EntityID {
	return e.sourceID
}

// TargetID returns the target entity's ID
func (e *Edge) TargetID() valueobjects.EntityID {
	return e.targetID
}

// Properties returns the validated property bag
func (e *Edge) Properties() valueobjects.PropertyBag {
	return e.properties
}

// CreatedBy returns the creating user's ID
func (e *Edge) CreatedBy() string {
	return e.createdBy
}

// CreatedAt returns when the edge was created
func (e *Edge) CreatedAt() time.Time {
	return e.createdAt
}

// DuplicateKey identifies an edge by its endpoints and type. Two edges with
// the same key are duplicates regardless of their IDs.
func (e *Edge) DuplicateKey() string {
	return DuplicateEdgeKey(e.sourceID, e.targetID, e.edgeType)
}

// DuplicateEdgeKey builds the dedup key used to detect duplicate edges
func DuplicateEdgeKey(sourceID, targetID valueobjects.EntityID, edgeType string) string {
	return fmt.Sprintf("%s|%s|%s", sourceID.String(), targetID.String(), edgeType)
}

// Connects reports whether the edge touches the given entity on either end
func (e *Edge) Connects(entityID valueobjects.EntityID) bool {
	return e.sourceID.Equals(entityID) || e.targetID.Equals(entityID)
}

// OtherEnd returns the opposite endpoint for a given entity. The boolean is
// false when the entity is not an endpoint of this edge.
func (e *Edge) OtherEnd(entityID valueobjects.EntityID) (valueobjects.EntityID, bool) {
	switch {
	case e.sourceID.Equals(entityID):
		return e.targetID, true
	case e.targetID.Equals(entityID):
		return e.sourceID, true
	default:
		return valueobjects.EntityID{}, false
	}
}

// GetUncommittedEvents returns all uncommitted domain events
func (e *Edge) GetUncommittedEvents() []events.DomainEvent {
	return e.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (e *Edge) MarkEventsAsCommitted() {
	e.events = []events.DomainEvent{}
}

func (e *Edge) addEvent(event events.DomainEvent) {
	e.events = append(e.events, event)
}

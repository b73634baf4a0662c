package entities

import (
	"strings"
	"time"

	"lattice/domain/config"
	"lattice/domain/core/valueobjects"
	"lattice/domain/events"
	pkgerrors "lattice/pkg/errors"
)

// Entity is a typed node in a workspace graph. Its shape is governed by the
// entity type declared in the workspace's active schema; the property bag
// stored here has already passed schema validation.
type Entity struct {
	// Private fields ensure encapsulation
	id            valueobjects.EntityID
	workspaceID   valueobjects.WorkspaceID
	entityType    string
	name          string
	properties    valueobjects.PropertyBag
	schemaVersion int
	createdBy     string
	createdAt     time.Time
	updatedAt     time.Time
	version       int

	// Domain events that occurred during this aggregate's lifetime
	events []events.DomainEvent
}

// NewEntity creates a new entity with business rule validation
func NewEntity(workspaceID valueobjects.WorkspaceID, entityType, name string, properties valueobjects.PropertyBag, schemaVersion int, createdBy string) (*Entity, error) {
	return NewEntityWithConfig(workspaceID, entityType, name, properties, schemaVersion, createdBy, config.DefaultDomainConfig())
}

// NewEntityWithConfig creates a new entity with explicit limits
func NewEntityWithConfig(workspaceID valueobjects.WorkspaceID, entityType, name string, properties valueobjects.PropertyBag, schemaVersion int, createdBy string, cfg *config.DomainConfig) (*Entity, error) {
	return NewEntityWithID(valueobjects.NewEntityID(), workspaceID, entityType, name, properties, schemaVersion, createdBy, cfg)
}

// NewEntityWithID creates a new entity under a caller-assigned ID. API
// handlers generate the ID up front so the response can carry it without a
// read back.
func NewEntityWithID(id valueobjects.EntityID, workspaceID valueobjects.WorkspaceID, entityType, name string, properties valueobjects.PropertyBag, schemaVersion int, createdBy string, cfg *config.DomainConfig) (*Entity, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if id.IsZero() {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "ENTITY_ID_REQUIRED",
			"Entity ID is required")
	}
	if workspaceID.IsZero() {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "WORKSPACE_ID_REQUIRED",
			"Entity must belong to a workspace")
	}
	if createdBy == "" {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "USER_ID_REQUIRED",
			"Entity creator is required")
	}
	if entityType == "" {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "ENTITY_TYPE_REQUIRED",
			"Entity type is required")
	}
	if err := validateEntityName(name, cfg); err != nil {
		return nil, err
	}
	if schemaVersion < 1 {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "SCHEMA_VERSION_REQUIRED",
			"Entity must reference the schema version it was validated against")
	}

	now := time.Now()
	entity := &Entity{
		id:            id,
		workspaceID:   workspaceID,
		entityType:    entityType,
		name:          strings.TrimSpace(name),
		properties:    properties,
		schemaVersion: schemaVersion,
		createdBy:     createdBy,
		createdAt:     now,
		updatedAt:     now,
		version:       1,
		events:        []events.DomainEvent{},
	}

	entity.addEvent(events.NewEntityCreated(entity.id, workspaceID, entityType, createdBy, now))

	return entity, nil
}

// ReconstructEntity rebuilds an entity from repository data without raising
// events and with its persisted version intact.
func ReconstructEntity(
	id valueobjects.EntityID,
	workspaceID valueobjects.WorkspaceID,
	entityType, name string,
	properties valueobjects.PropertyBag,
	schemaVersion int,
	createdBy string,
	createdAt, updatedAt time.Time,
	version int,
) *Entity {
	return &Entity{
		id:            id,
		workspaceID:   workspaceID,
		entityType:    entityType,
		name:          name,
		properties:    properties,
		schemaVersion: schemaVersion,
		createdBy:     createdBy,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
		version:       version,
		events:        []events.DomainEvent{},
	}
}

// ID returns the entity's unique identifier
func (e *Entity) ID() valueobjects.EntityID {
	return e.id
}

// WorkspaceID returns the owning workspace
func (e *Entity) WorkspaceID() valueobjects.WorkspaceID {
	return e.workspaceID
}

// EntityType returns the declared type name
func (e *Entity) EntityType() string {
	return e.entityType
}

// Name returns the display name
func (e *Entity) Name() string {
	return e.name
}

// Properties returns the validated property bag
func (e *Entity) Properties() valueobjects.PropertyBag {
	return e.properties
}

// SchemaVersion returns the schema version the properties were validated against
func (e *Entity) SchemaVersion() int {
	return e.schemaVersion
}

// CreatedBy returns the creating user's ID
func (e *Entity) CreatedBy() string {
	return e.createdBy
}

// CreatedAt returns when the entity was created
func (e *Entity) CreatedAt() time.Time {
	return e.createdAt
}

// UpdatedAt returns when the entity was last updated
func (e *Entity) UpdatedAt() time.Time {
	return e.updatedAt
}

// Version returns the entity's version for optimistic locking
func (e *Entity) Version() int {
	return e.version
}

// UpdateProperties replaces the property bag after it has been re-validated
// against the given schema version.
func (e *Entity) UpdateProperties(properties valueobjects.PropertyBag, schemaVersion int, updatedBy string) error {
	if updatedBy == "" {
		return pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "USER_ID_REQUIRED",
			"Entity updater is required")
	}
	if schemaVersion < e.schemaVersion {
		return pkgerrors.NewDomainError(pkgerrors.DomainBusinessRuleError, "STALE_SCHEMA_VERSION",
			"Entity cannot be validated against an older schema version")
	}

	if properties.Equals(e.properties) && schemaVersion == e.schemaVersion {
		return nil
	}

	e.properties = properties
	e.schemaVersion = schemaVersion
	e.updatedAt = time.Now()
	e.version++

	e.addEvent(events.NewEntityUpdated(e.id, e.workspaceID, e.entityType, updatedBy, e.updatedAt))

	return nil
}

// Rename changes the entity's display name
func (e *Entity) Rename(name, updatedBy string) error {
	return e.RenameWithConfig(name, updatedBy, config.DefaultDomainConfig())
}

// RenameWithConfig changes the display name with explicit limits
func (e *Entity) RenameWithConfig(name, updatedBy string, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if err := validateEntityName(name, cfg); err != nil {
		return err
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == e.name {
		return nil
	}

	e.name = trimmed
	e.updatedAt = time.Now()
	e.version++

	e.addEvent(events.NewEntityUpdated(e.id, e.workspaceID, e.entityType, updatedBy, e.updatedAt))

	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (e *Entity) GetUncommittedEvents() []events.DomainEvent {
	return e.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (e *Entity) MarkEventsAsCommitted() {
	e.events = []events.DomainEvent{}
}

// addEvent adds a domain event to the uncommitted list
func (e *Entity) addEvent(event events.DomainEvent) {
	e.events = append(e.events, event)
}

func validateEntityName(name string, cfg *config.DomainConfig) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "ENTITY_NAME_REQUIRED",
			"Entity name is required")
	}
	if len(trimmed) > cfg.MaxEntityNameLength {
		return pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "ENTITY_NAME_TOO_LONG",
			"Entity name exceeds the maximum length").
			WithDetail("max_length", cfg.MaxEntityNameLength)
	}
	return nil
}

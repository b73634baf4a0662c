package entities

import (
	"sort"
	"strings"
	"time"

	"lattice/domain/config"
	"lattice/domain/core/policies"
	"lattice/domain/core/valueobjects"
	"lattice/domain/events"
	pkgerrors "lattice/pkg/errors"
)

// Member is a user's membership in a workspace
type Member struct {
	UserID  string        `json:"user_id"`
	Role    policies.Role `json:"role"`
	AddedBy string        `json:"added_by"`
	AddedAt time.Time     `json:"added_at"`
}

// Workspace is the tenancy root. Every entity, edge and schema version
// belongs to exactly one workspace, and every operation is authorized
// against the caller's role in it.
type Workspace struct {
	id                  valueobjects.WorkspaceID
	name                string
	ownerID             string
	members             map[string]Member
	activeSchemaVersion int
	createdAt           time.Time
	updatedAt           time.Time
	version             int

	events []events.DomainEvent
}

// NewWorkspace creates a workspace owned by the given user
func NewWorkspace(name, ownerID string) (*Workspace, error) {
	return NewWorkspaceWithConfig(name, ownerID, config.DefaultDomainConfig())
}

// NewWorkspaceWithConfig creates a workspace with explicit limits
func NewWorkspaceWithConfig(name, ownerID string, cfg *config.DomainConfig) (*Workspace, error) {
	return NewWorkspaceWithID(valueobjects.NewWorkspaceID(), name, ownerID, cfg)
}

// NewWorkspaceWithID creates a workspace under a caller-assigned ID
func NewWorkspaceWithID(id valueobjects.WorkspaceID, name, ownerID string, cfg *config.DomainConfig) (*Workspace, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if id.IsZero() {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "WORKSPACE_ID_REQUIRED",
			"Workspace ID is required")
	}
	if ownerID == "" {
		return nil, pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "USER_ID_REQUIRED",
			"Workspace owner is required")
	}
	if err := validateWorkspaceName(name, cfg); err != nil {
		return nil, err
	}

	now := time.Now()
	trimmed := strings.TrimSpace(name)
	workspace := &Workspace{
		id:      id,
		name:    trimmed,
		ownerID: ownerID,
		members: map[string]Member{
			ownerID: {UserID: ownerID, Role: policies.RoleOwner, AddedBy: ownerID, AddedAt: now},
		},
		activeSchemaVersion: 0,
		createdAt:           now,
		updatedAt:           now,
		version:             1,
		events:              []events.DomainEvent{},
	}

	workspace.addEvent(events.NewWorkspaceCreated(workspace.id, ownerID, trimmed, now))

	return workspace, nil
}

// ReconstructWorkspace rebuilds a workspace from repository data
func ReconstructWorkspace(
	id valueobjects.WorkspaceID,
	name, ownerID string,
	members []Member,
	activeSchemaVersion int,
	createdAt, updatedAt time.Time,
	version int,
) *Workspace {
	byUser := make(map[string]Member, len(members))
	for _, m := range members {
		byUser[m.UserID] = m
	}

	return &Workspace{
		id:                  id,
		name:                name,
		ownerID:             ownerID,
		members:             byUser,
		activeSchemaVersion: activeSchemaVersion,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
		version:             version,
		events:              []events.DomainEvent{},
	}
}

// ID returns the workspace's unique identifier
func (w *Workspace) ID() valueobjects.WorkspaceID {
	return w.id
}

// Name returns the workspace name
func (w *Workspace) Name() string {
	return w.name
}

// OwnerID returns the owning user's ID
func (w *Workspace) OwnerID() string {
	return w.ownerID
}

// ActiveSchemaVersion returns the currently published schema version,
// zero when no schema has been published yet
func (w *Workspace) ActiveSchemaVersion() int {
	return w.activeSchemaVersion
}

// CreatedAt returns when the workspace was created
func (w *Workspace) CreatedAt() time.Time {
	return w.createdAt
}

// UpdatedAt returns when the workspace was last updated
func (w *Workspace) UpdatedAt() time.Time {
	return w.updatedAt
}

// Version returns the workspace's version for optimistic locking
func (w *Workspace) Version() int {
	return w.version
}

// RoleOf returns the member's role, or false when the user is not a member
func (w *Workspace) RoleOf(userID string) (policies.Role, bool) {
	member, ok := w.members[userID]
	if !ok {
		return "", false
	}
	return member.Role, true
}

// IsMember reports whether the user belongs to the workspace
func (w *Workspace) IsMember(userID string) bool {
	_, ok := w.members[userID]
	return ok
}

// Members returns the membership list ordered by user ID
func (w *Workspace) Members() []Member {
	members := make([]Member, 0, len(w.members))
	for _, m := range w.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members
}

// MemberCount returns the number of members including the owner
func (w *Workspace) MemberCount() int {
	return len(w.members)
}

// Authorize checks whether the user may perform the action in this workspace.
// Non-members are rejected before the role table is consulted.
func (w *Workspace) Authorize(userID string, action policies.Action) error {
	role, ok := w.RoleOf(userID)
	if !ok {
		return pkgerrors.NewDomainError(pkgerrors.DomainAuthorizationError, "USER_NOT_AUTHORIZED",
			"User is not a member of this workspace").
			WithDetail("workspace_id", w.id.String()).
			WithDetail("action", string(action))
	}
	return policies.Authorize(role, action)
}

// AddMember adds a user to the workspace with the given role
func (w *Workspace) AddMember(userID string, role policies.Role, addedBy string) error {
	return w.AddMemberWithConfig(userID, role, addedBy, config.DefaultDomainConfig())
}

// AddMemberWithConfig adds a user with explicit limits
func (w *Workspace) AddMemberWithConfig(userID string, role policies.Role, addedBy string, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if userID == "" {
		return pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "USER_ID_REQUIRED",
			"Member user ID is required")
	}
	if role == policies.RoleOwner {
		return pkgerrors.NewDomainError(pkgerrors.DomainBusinessRuleError, "OWNER_ROLE_RESERVED",
			"A workspace has exactly one owner").
			WithDetail("user_id", userID)
	}
	if !policies.IsValidRole(role) {
		return pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "INVALID_ROLE",
			"Role is not recognized").
			WithDetail("role", string(role))
	}
	if _, exists := w.members[userID]; exists {
		return pkgerrors.NewDomainError(pkgerrors.DomainConflictError, "MEMBER_ALREADY_EXISTS",
			"The user is already a member of this workspace").
			WithDetail("user_id", userID)
	}
	if len(w.members) >= cfg.MaxMembersPerWorkspace {
		return pkgerrors.NewDomainError(pkgerrors.DomainBusinessRuleError, "MEMBER_LIMIT_EXCEEDED",
			"Maximum number of members reached").
			WithDetail("max_members", cfg.MaxMembersPerWorkspace)
	}

	now := time.Now()
	w.members[userID] = Member{UserID: userID, Role: role, AddedBy: addedBy, AddedAt: now}
	w.updatedAt = now
	w.version++

	w.addEvent(events.NewMemberAdded(w.id, userID, role, addedBy, now))

	return nil
}

// RemoveMember removes a user from the workspace. The owner cannot be removed.
func (w *Workspace) RemoveMember(userID, removedBy string) error {
	if _, exists := w.members[userID]; !exists {
		return pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "MEMBER_NOT_FOUND",
			"The user is not a member of this workspace").
			WithDetail("user_id", userID)
	}
	if userID == w.ownerID {
		return pkgerrors.NewDomainError(pkgerrors.DomainBusinessRuleError, "CANNOT_REMOVE_OWNER",
			"The workspace owner cannot be removed")
	}

	delete(w.members, userID)
	w.updatedAt = time.Now()
	w.version++

	w.addEvent(events.NewMemberRemoved(w.id, userID, removedBy, w.updatedAt))

	return nil
}

// ChangeMemberRole updates a member's role. The owner's role is fixed and
// the owner role cannot be granted to anyone else.
func (w *Workspace) ChangeMemberRole(userID string, role policies.Role, changedBy string) error {
	member, exists := w.members[userID]
	if !exists {
		return pkgerrors.NewDomainError(pkgerrors.DomainNotFoundError, "MEMBER_NOT_FOUND",
			"The user is not a member of this workspace").
			WithDetail("user_id", userID)
	}
	if userID == w.ownerID {
		return pkgerrors.NewDomainError(pkgerrors.DomainBusinessRuleError, "OWNER_ROLE_RESERVED",
			"The owner's role cannot be changed")
	}
	if role == policies.RoleOwner {
		return pkgerrors.NewDomainError(pkgerrors.DomainBusinessRuleError, "OWNER_ROLE_RESERVED",
			"A workspace has exactly one owner")
	}
	if !policies.IsValidRole(role) {
		return pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "INVALID_ROLE",
			"Role is not recognized").
			WithDetail("role", string(role))
	}
	if member.Role == role {
		return nil
	}

	oldRole := member.Role
	member.Role = role
	w.members[userID] = member
	w.updatedAt = time.Now()
	w.version++

	w.addEvent(events.NewMemberRoleChanged(w.id, userID, oldRole, role, changedBy, w.updatedAt))

	return nil
}

// Rename changes the workspace name
func (w *Workspace) Rename(name string) error {
	return w.RenameWithConfig(name, config.DefaultDomainConfig())
}

// RenameWithConfig changes the workspace name with explicit limits
func (w *Workspace) RenameWithConfig(name string, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if err := validateWorkspaceName(name, cfg); err != nil {
		return err
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == w.name {
		return nil
	}

	w.name = trimmed
	w.updatedAt = time.Now()
	w.version++

	return nil
}

// RecordSchemaPublished marks a new schema version as active
func (w *Workspace) RecordSchemaPublished(schemaVersion int, publishedBy string, entityTypes, edgeTypes int) error {
	if schemaVersion <= w.activeSchemaVersion {
		return pkgerrors.NewDomainError(pkgerrors.DomainConflictError, "SCHEMA_VERSION_STALE",
			"Schema versions must increase monotonically").
			WithDetail("active_version", w.activeSchemaVersion).
			WithDetail("published_version", schemaVersion)
	}

	w.activeSchemaVersion = schemaVersion
	w.updatedAt = time.Now()
	w.version++

	w.addEvent(events.NewSchemaPublished(w.id, schemaVersion, publishedBy, entityTypes, edgeTypes, w.updatedAt))

	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (w *Workspace) GetUncommittedEvents() []events.DomainEvent {
	return w.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (w *Workspace) MarkEventsAsCommitted() {
	w.events = []events.DomainEvent{}
}

func (w *Workspace) addEvent(event events.DomainEvent) {
	w.events = append(w.events, event)
}

func validateWorkspaceName(name string, cfg *config.DomainConfig) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "WORKSPACE_NAME_REQUIRED",
			"Workspace name is required")
	}
	if len(trimmed) > cfg.MaxWorkspaceNameLength {
		return pkgerrors.NewDomainError(pkgerrors.DomainValidationError, "WORKSPACE_NAME_TOO_LONG",
			"Workspace name exceeds the maximum length").
			WithDetail("max_length", cfg.MaxWorkspaceNameLength)
	}
	return nil
}

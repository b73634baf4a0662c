package policies

import (
	"lattice/pkg/errors"
)

// Role is a member's role within one workspace
type Role string

// Action is a permission-checked operation class
type Action string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleGuest  Role = "guest"
)

const (
	// ActionRead covers entity, edge, and schema reads plus traversal
	ActionRead Action = "read"
	// ActionWrite covers entity and edge mutation
	ActionWrite           Action = "write"
	ActionManageSchema    Action = "manage_schema"
	ActionManageMembers   Action = "manage_members"
	ActionDeleteWorkspace Action = "delete_workspace"
)

// Can reports whether the role permits the action. The table is fixed in
// code; roles gain permissions strictly in the order guest < member <
// admin < owner.
func Can(role Role, action Action) bool {
	switch role {
	case RoleOwner:
		return true
	case RoleAdmin:
		return action == ActionRead || action == ActionWrite ||
			action == ActionManageSchema || action == ActionManageMembers
	case RoleMember:
		return action == ActionRead || action == ActionWrite
	case RoleGuest:
		return action == ActionRead
	default:
		return false
	}
}

// IsValidRole reports whether the role is one of the known roles
func IsValidRole(role Role) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleMember, RoleGuest:
		return true
	default:
		return false
	}
}

// NormalizeRole maps an arbitrary stored string onto a known role,
// falling back to the weakest role for anything unrecognized
func NormalizeRole(role string) Role {
	switch Role(role) {
	case RoleOwner, RoleAdmin, RoleMember, RoleGuest:
		return Role(role)
	default:
		return RoleGuest
	}
}

// ParseRole converts input into a role, rejecting unknown values. Use
// this at the trust boundary; NormalizeRole is for data already stored.
func ParseRole(role string) (Role, error) {
	switch Role(role) {
	case RoleOwner, RoleAdmin, RoleMember, RoleGuest:
		return Role(role), nil
	default:
		return "", errors.NewDomainError(
			errors.DomainValidationError,
			"INVALID_ROLE",
			"Role must be one of: owner, admin, member, guest",
		).WithDetail("role", role)
	}
}

// Roles returns all workspace roles, weakest first
func Roles() []Role {
	return []Role{RoleGuest, RoleMember, RoleAdmin, RoleOwner}
}

// Authorize returns nil when the role permits the action, or an
// authorization error carrying both for the response
func Authorize(role Role, action Action) error {
	if Can(role, action) {
		return nil
	}
	return errors.NewDomainError(
		errors.DomainAuthorizationError,
		"USER_NOT_AUTHORIZED",
		"User is not authorized to perform this action",
	).WithDetail("role", string(role)).WithDetail("action", string(action))
}

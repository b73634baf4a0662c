package entities

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/domain/config"
	"lattice/domain/core/policies"
	"lattice/domain/events"
	pkgerrors "lattice/pkg/errors"
)

func domainErrCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *pkgerrors.DomainError
	require.True(t, stderrors.As(err, &domainErr), "expected *DomainError, got %T", err)
	return domainErr.Code
}

func TestNewWorkspace(t *testing.T) {
	ws, err := NewWorkspace("Research Graph", "user-1")
	require.NoError(t, err)

	assert.False(t, ws.ID().IsZero())
	assert.Equal(t, "Research Graph", ws.Name())
	assert.Equal(t, "user-1", ws.OwnerID())
	assert.Equal(t, 1, ws.MemberCount())
	assert.Equal(t, 0, ws.ActiveSchemaVersion())
	assert.Equal(t, 1, ws.Version())

	role, ok := ws.RoleOf("user-1")
	require.True(t, ok)
	assert.Equal(t, policies.RoleOwner, role)

	raised := ws.GetUncommittedEvents()
	require.Len(t, raised, 1)
	assert.Equal(t, "workspace.created", raised[0].GetEventType())
	assert.Equal(t, ws.ID().String(), raised[0].GetWorkspaceID())
}

func TestNewWorkspace_Validation(t *testing.T) {
	_, err := NewWorkspace("", "user-1")
	assert.Equal(t, "WORKSPACE_NAME_REQUIRED", domainErrCode(t, err))

	_, err = NewWorkspace("   ", "user-1")
	assert.Equal(t, "WORKSPACE_NAME_REQUIRED", domainErrCode(t, err))

	_, err = NewWorkspace("Valid", "")
	assert.Equal(t, "USER_ID_REQUIRED", domainErrCode(t, err))

	cfg := config.DefaultDomainConfig()
	_, err = NewWorkspaceWithConfig(strings.Repeat("a", cfg.MaxWorkspaceNameLength+1), "user-1", cfg)
	assert.Equal(t, "WORKSPACE_NAME_TOO_LONG", domainErrCode(t, err))
}

func TestWorkspace_AddMember(t *testing.T) {
	ws, err := NewWorkspace("Team", "owner-1")
	require.NoError(t, err)
	ws.MarkEventsAsCommitted()

	require.NoError(t, ws.AddMember("user-2", policies.RoleMember, "owner-1"))
	assert.Equal(t, 2, ws.MemberCount())

	role, ok := ws.RoleOf("user-2")
	require.True(t, ok)
	assert.Equal(t, policies.RoleMember, role)

	raised := ws.GetUncommittedEvents()
	require.Len(t, raised, 1)
	added, ok := raised[0].(events.MemberAdded)
	require.True(t, ok)
	assert.Equal(t, "user-2", added.UserID)
	assert.Equal(t, policies.RoleMember, added.Role)
}

func TestWorkspace_AddMember_Rules(t *testing.T) {
	ws, err := NewWorkspace("Team", "owner-1")
	require.NoError(t, err)

	err = ws.AddMember("", policies.RoleMember, "owner-1")
	assert.Equal(t, "USER_ID_REQUIRED", domainErrCode(t, err))

	err = ws.AddMember("user-2", policies.RoleOwner, "owner-1")
	assert.Equal(t, "OWNER_ROLE_RESERVED", domainErrCode(t, err))

	err = ws.AddMember("user-2", policies.Role("superuser"), "owner-1")
	assert.Equal(t, "INVALID_ROLE", domainErrCode(t, err))

	require.NoError(t, ws.AddMember("user-2", policies.RoleGuest, "owner-1"))
	err = ws.AddMember("user-2", policies.RoleMember, "owner-1")
	assert.Equal(t, "MEMBER_ALREADY_EXISTS", domainErrCode(t, err))
}

func TestWorkspace_AddMember_Limit(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.MaxMembersPerWorkspace = 2

	ws, err := NewWorkspaceWithConfig("Team", "owner-1", cfg)
	require.NoError(t, err)

	require.NoError(t, ws.AddMemberWithConfig("user-2", policies.RoleMember, "owner-1", cfg))
	err = ws.AddMemberWithConfig("user-3", policies.RoleMember, "owner-1", cfg)
	assert.Equal(t, "MEMBER_LIMIT_EXCEEDED", domainErrCode(t, err))
}

func TestWorkspace_RemoveMember(t *testing.T) {
	ws, err := NewWorkspace("Team", "owner-1")
	require.NoError(t, err)
	require.NoError(t, ws.AddMember("user-2", policies.RoleMember, "owner-1"))
	ws.MarkEventsAsCommitted()

	require.NoError(t, ws.RemoveMember("user-2", "owner-1"))
	assert.False(t, ws.IsMember("user-2"))

	err = ws.RemoveMember("user-2", "owner-1")
	assert.Equal(t, "MEMBER_NOT_FOUND", domainErrCode(t, err))

	err = ws.RemoveMember("owner-1", "owner-1")
	assert.Equal(t, "CANNOT_REMOVE_OWNER", domainErrCode(t, err))

	raised := ws.GetUncommittedEvents()
	require.Len(t, raised, 1)
	assert.Equal(t, "workspace.member_removed", raised[0].GetEventType())
}

func TestWorkspace_ChangeMemberRole(t *testing.T) {
	ws, err := NewWorkspace("Team", "owner-1")
	require.NoError(t, err)
	require.NoError(t, ws.AddMember("user-2", policies.RoleGuest, "owner-1"))
	ws.MarkEventsAsCommitted()

	require.NoError(t, ws.ChangeMemberRole("user-2", policies.RoleAdmin, "owner-1"))
	role, _ := ws.RoleOf("user-2")
	assert.Equal(t, policies.RoleAdmin, role)

	// Same role is a no-op and raises nothing further
	require.NoError(t, ws.ChangeMemberRole("user-2", policies.RoleAdmin, "owner-1"))
	assert.Len(t, ws.GetUncommittedEvents(), 1)

	err = ws.ChangeMemberRole("owner-1", policies.RoleAdmin, "owner-1")
	assert.Equal(t, "OWNER_ROLE_RESERVED", domainErrCode(t, err))

	err = ws.ChangeMemberRole("user-2", policies.RoleOwner, "owner-1")
	assert.Equal(t, "OWNER_ROLE_RESERVED", domainErrCode(t, err))

	err = ws.ChangeMemberRole("ghost", policies.RoleMember, "owner-1")
	assert.Equal(t, "MEMBER_NOT_FOUND", domainErrCode(t, err))
}

func TestWorkspace_Authorize(t *testing.T) {
	ws, err := NewWorkspace("Team", "owner-1")
	require.NoError(t, err)
	require.NoError(t, ws.AddMember("guest-1", policies.RoleGuest, "owner-1"))

	assert.NoError(t, ws.Authorize("owner-1", policies.ActionDeleteWorkspace))
	assert.NoError(t, ws.Authorize("guest-1", policies.ActionRead))

	err = ws.Authorize("guest-1", policies.ActionWrite)
	assert.Equal(t, "USER_NOT_AUTHORIZED", domainErrCode(t, err))

	err = ws.Authorize("stranger", policies.ActionRead)
	assert.Equal(t, "USER_NOT_AUTHORIZED", domainErrCode(t, err))
}

func TestWorkspace_RecordSchemaPublished(t *testing.T) {
	ws, err := NewWorkspace("Team", "owner-1")
	require.NoError(t, err)
	ws.MarkEventsAsCommitted()

	require.NoError(t, ws.RecordSchemaPublished(1, "owner-1", 3, 2))
	assert.Equal(t, 1, ws.ActiveSchemaVersion())

	raised := ws.GetUncommittedEvents()
	require.Len(t, raised, 1)
	published, ok := raised[0].(events.SchemaPublished)
	require.True(t, ok)
	assert.Equal(t, 1, published.SchemaVersion)
	assert.Equal(t, 3, published.EntityTypeCount)

	// Versions only move forward
	err = ws.RecordSchemaPublished(1, "owner-1", 3, 2)
	assert.Equal(t, "SCHEMA_VERSION_STALE", domainErrCode(t, err))

	require.NoError(t, ws.RecordSchemaPublished(2, "owner-1", 4, 2))
	assert.Equal(t, 2, ws.ActiveSchemaVersion())
}

func TestWorkspace_Rename(t *testing.T) {
	ws, err := NewWorkspace("Old Name", "owner-1")
	require.NoError(t, err)

	require.NoError(t, ws.Rename("New Name"))
	assert.Equal(t, "New Name", ws.Name())
	assert.Equal(t, 2, ws.Version())

	// Same name is a no-op
	require.NoError(t, ws.Rename("New Name"))
	assert.Equal(t, 2, ws.Version())

	err = ws.Rename("")
	assert.Equal(t, "WORKSPACE_NAME_REQUIRED", domainErrCode(t, err))
}

func TestWorkspace_Members_Sorted(t *testing.T) {
	ws, err := NewWorkspace("Team", "owner-b")
	require.NoError(t, err)
	require.NoError(t, ws.AddMember("user-c", policies.RoleMember, "owner-b"))
	require.NoError(t, ws.AddMember("user-a", policies.RoleGuest, "owner-b"))

	members := ws.Members()
	require.Len(t, members, 3)
	assert.Equal(t, "owner-b", members[0].UserID)
	assert.Equal(t, "user-a", members[1].UserID)
	assert.Equal(t, "user-c", members[2].UserID)
}

func TestReconstructWorkspace(t *testing.T) {
	original, err := NewWorkspace("Team", "owner-1")
	require.NoError(t, err)
	require.NoError(t, original.AddMember("user-2", policies.RoleMember, "owner-1"))

	rebuilt := ReconstructWorkspace(
		original.ID(),
		original.Name(),
		original.OwnerID(),
		original.Members(),
		3,
		original.CreatedAt(),
		original.UpdatedAt(),
		7,
	)

	assert.True(t, rebuilt.ID().Equals(original.ID()))
	assert.Equal(t, 3, rebuilt.ActiveSchemaVersion())
	assert.Equal(t, 7, rebuilt.Version())
	assert.Empty(t, rebuilt.GetUncommittedEvents())

	role, ok := rebuilt.RoleOf("user-2")
	require.True(t, ok)
	assert.Equal(t, policies.RoleMember, role)
}

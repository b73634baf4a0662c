package policies

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/pkg/errors"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleOwner, ActionRead, true},
		{RoleOwner, ActionWrite, true},
		{RoleOwner, ActionManageSchema, true},
		{RoleOwner, ActionManageMembers, true},
		{RoleOwner, ActionDeleteWorkspace, true},

		{RoleAdmin, ActionRead, true},
		{RoleAdmin, ActionWrite, true},
		{RoleAdmin, ActionManageSchema, true},
		{RoleAdmin, ActionManageMembers, true},
		{RoleAdmin, ActionDeleteWorkspace, false},

		{RoleMember, ActionRead, true},
		{RoleMember, ActionWrite, true},
		{RoleMember, ActionManageSchema, false},
		{RoleMember, ActionManageMembers, false},
		{RoleMember, ActionDeleteWorkspace, false},

		{RoleGuest, ActionRead, true},
		{RoleGuest, ActionWrite, false},
		{RoleGuest, ActionManageSchema, false},
		{RoleGuest, ActionManageMembers, false},
		{RoleGuest, ActionDeleteWorkspace, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"_"+string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.role, tt.action))
		})
	}
}

func TestCan_UnknownRole(t *testing.T) {
	assert.False(t, Can(Role("superuser"), ActionRead))
	assert.False(t, Can(Role(""), ActionRead))
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, RoleOwner, NormalizeRole("owner"))
	assert.Equal(t, RoleAdmin, NormalizeRole("admin"))
	assert.Equal(t, RoleMember, NormalizeRole("member"))
	assert.Equal(t, RoleGuest, NormalizeRole("guest"))

	// Unknown roles fall back to the weakest role
	assert.Equal(t, RoleGuest, NormalizeRole("superuser"))
	assert.Equal(t, RoleGuest, NormalizeRole(""))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	_, err = ParseRole("superuser")
	require.Error(t, err)

	var domainErr *errors.DomainError
	require.True(t, stderrors.As(err, &domainErr))
	assert.Equal(t, "INVALID_ROLE", domainErr.Code)
	assert.Equal(t, "superuser", domainErr.Details["role"])
}

func TestAuthorize(t *testing.T) {
	assert.NoError(t, Authorize(RoleMember, ActionWrite))

	err := Authorize(RoleGuest, ActionWrite)
	require.Error(t, err)

	var domainErr *errors.DomainError
	require.True(t, stderrors.As(err, &domainErr))
	assert.Equal(t, "USER_NOT_AUTHORIZED", domainErr.Code)
	assert.Equal(t, string(RoleGuest), domainErr.Details["role"])
	assert.Equal(t, string(ActionWrite), domainErr.Details["action"])
	assert.True(t, stderrors.Is(err, errors.ErrUserNotAuthorized))
}

func TestRoles_WeakestFirst(t *testing.T) {
	roles := Roles()
	require.Len(t, roles, 4)
	assert.Equal(t, RoleGuest, roles[0])
	assert.Equal(t, RoleOwner, roles[len(roles)-1])
}

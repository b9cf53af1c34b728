package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRolePermissionsFormSupersetChain(t *testing.T) {
	t.Parallel()

	roles := Roles()
	for i := 1; i < len(roles); i++ {
		lower, higher := roles[i-1], roles[i]
		lowerPerms := lower.Permissions()
		higherPerms := higher.Permissions()

		require.Greater(t, len(higherPerms), len(lowerPerms), "%s should grant more than %s", higher, lower)
		for _, p := range lowerPerms {
			require.Contains(t, higherPerms, p, "%s missing %s held by %s", higher, p, lower)
		}
	}
}

func TestOwnerHoldsBillingAndOrganization(t *testing.T) {
	t.Parallel()

	for _, p := range []string{PermBillingRead, PermBillingWrite, PermOrganizationManage, PermOrganizationDelete} {
		require.True(t, RoleOwner.Has(p), p)
		require.False(t, RoleAdmin.Has(p), p)
	}
}

func TestUnknownRoleFailsClosed(t *testing.T) {
	t.Parallel()

	for _, r := range []Role{"", "superuser", "Owner", "ADMIN"} {
		require.False(t, r.Valid())
		require.NotNil(t, r.Permissions())
		require.Empty(t, r.Permissions())
		require.False(t, r.Has(PermDashboardRead))

		_, ok := ParseRole(string(r))
		require.False(t, ok)
	}
}

func TestPermissionsReturnsCopy(t *testing.T) {
	t.Parallel()

	perms := RoleEditor.Permissions()
	perms[0] = "billing:write"
	require.False(t, RoleEditor.Has("billing:write"))
}

func TestEffectiveRolePrefersActiveMembership(t *testing.T) {
	t.Parallel()

	u := User{ID: "u1", Role: RoleEditor}
	require.Equal(t, RoleEditor, u.EffectiveRole())
	require.Empty(t, u.OrganizationID())

	u.Membership = &Membership{OrganizationID: "org1", Role: RoleAdmin, IsActive: true}
	require.Equal(t, RoleAdmin, u.EffectiveRole())
	require.Equal(t, "org1", u.OrganizationID())

	u.Membership.IsActive = false
	require.Equal(t, RoleEditor, u.EffectiveRole())
	require.Empty(t, u.OrganizationID())
}

func TestPrincipalPermissionsFollowRole(t *testing.T) {
	t.Parallel()

	p := NewPrincipal(User{ID: "u1", Email: "a@b.c", Role: RoleAnalyst}, "sess")
	require.Equal(t, "u1", p.SubjectID())
	require.Equal(t, RoleAnalyst.Permissions(), p.Permissions)
	require.True(t, p.HasPermission(PermTradingRead))
	require.False(t, p.HasPermission(PermTradingWrite))
}

func TestLockAndSessionWindows(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(30 * time.Minute)
	u := User{LockedUntil: &until}
	require.True(t, u.IsLockedAt(now))
	require.False(t, u.IsLockedAt(until))
	require.False(t, User{}.IsLockedAt(now))

	s := Session{IsActive: true, ExpiresAt: until}
	require.True(t, s.UsableAt(now))
	require.False(t, s.UsableAt(until))
	s.IsActive = false
	require.False(t, s.UsableAt(now))
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()
	require.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
}

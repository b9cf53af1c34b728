package service

import (
	"context"
	"strings"
	"testing"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	t.Run("without organization", func(t *testing.T) {
		u := f.signup(t, " Solo@Example.com", "")
		require.Equal(t, "solo@example.com", u.Email)
		require.Equal(t, domain.RoleEditor, u.EffectiveRole())
		require.Nil(t, u.Membership)
		require.True(t, strings.HasPrefix(u.PasswordHash, "$argon2id$"))
		require.Len(t, f.auditEntries(t, u.ID, domain.AuditSignup), 1)
	})

	t.Run("with organization", func(t *testing.T) {
		u := f.signup(t, "founder@gridco.example", "  GridCo ")
		require.Equal(t, domain.RoleEditor, u.Role)
		require.Equal(t, domain.RoleOwner, u.EffectiveRole())
		require.NotNil(t, u.Organization)
		require.Equal(t, "GridCo", u.Organization.Name)
		require.Equal(t, "gridco.example", u.Organization.Domain)
		require.Equal(t, domain.DefaultPlan, u.Organization.Plan)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.accounts.Signup(ctx, SignupRequest{
			Email: "SOLO@example.com", Password: testPassword, FirstName: "A", LastName: "B",
			OrganizationName: "Should Not Exist",
		})
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("input errors", func(t *testing.T) {
		base := SignupRequest{Email: "new@example.com", Password: testPassword, FirstName: "A", LastName: "B"}
		for field, mutate := range map[string]func(*SignupRequest){
			"email":             func(r *SignupRequest) { r.Email = "nope" },
			"password":          func(r *SignupRequest) { r.Password = "short" },
			"first_name":        func(r *SignupRequest) { r.FirstName = "   " },
			"last_name":         func(r *SignupRequest) { r.LastName = "" },
			"organization_name": func(r *SignupRequest) { r.OrganizationName = strings.Repeat("x", 201) },
		} {
			req := base
			mutate(&req)
			_, err := f.accounts.Signup(ctx, req)
			require.ErrorIs(t, err, ErrInvalidInput, field)

			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
			require.Equal(t, field, inputErr.Field)
		}
	})
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	u := f.signup(t, "user@example.com", "")
	first := f.login(t, "user@example.com")
	second := f.login(t, "user@example.com")

	err := f.accounts.ChangePassword(ctx, second.Principal, "wrong", "a brand new password", ClientInfo{})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	err = f.accounts.ChangePassword(ctx, second.Principal, testPassword, "tiny", ClientInfo{})
	require.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, f.accounts.ChangePassword(ctx, second.Principal, testPassword, "a brand new password", ClientInfo{}))

	for _, res := range []LoginResult{first, second} {
		_, err := f.verifier.Verify(ctx, res.Tokens.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	}

	_, err = f.auth.Login(ctx, LoginRequest{Email: "user@example.com", Password: testPassword})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, LoginRequest{Email: "user@example.com", Password: "a brand new password"})
	require.NoError(t, err)

	changed := f.auditEntries(t, u.ID, domain.AuditPasswordChanged)
	require.Len(t, changed, 1)
	require.EqualValues(t, 2, changed[0].NewValues["sessions_revoked"])
}

func TestChangePasswordCountsWrongCurrentPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	u := f.signup(t, "user@example.com", "")
	res := f.login(t, "user@example.com")
	info := ClientInfo{IPAddress: "198.51.100.4", UserAgent: "go-test"}

	for i := 1; i <= 5; i++ {
		err := f.accounts.ChangePassword(ctx, res.Principal, "not the password", "a brand new password", info)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	failed := f.auditEntries(t, u.ID, domain.AuditAuthFailed)
	require.Len(t, failed, 5)
	for _, e := range failed {
		require.Equal(t, "change_password", e.NewValues["reason"])
		require.Equal(t, "198.51.100.4", e.IPAddress)
	}

	stored, err := f.store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 5, stored.FailedLoginAttempts)
	require.True(t, stored.IsLockedAt(f.clock.Now()))

	// Locked: even the right password is refused, and not counted again.
	err = f.accounts.ChangePassword(ctx, res.Principal, testPassword, "a brand new password", info)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, f.auditEntries(t, u.ID, domain.AuditAuthFailed), 5)
	require.Empty(t, f.auditEntries(t, u.ID, domain.AuditPasswordChanged))

	_, err = f.auth.Login(ctx, LoginRequest{Email: "user@example.com", Password: testPassword})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMe(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	u := f.signup(t, "user@example.com", "GridCo")
	res := f.login(t, "user@example.com")

	me, err := f.accounts.Me(context.Background(), res.Principal)
	require.NoError(t, err)
	require.Equal(t, u.ID, me.ID)
	require.Equal(t, "Grace Hopper", me.FullName())
	require.Equal(t, u.Organization.ID, me.OrganizationID())
}

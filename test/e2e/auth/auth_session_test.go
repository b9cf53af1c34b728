//go:build e2e

package auth_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/voltex/pkg/authsdk"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func currentTOTP(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

// TestLogoutEverywhere ends every session from one device.
func TestLogoutEverywhere(t *testing.T) {
	relaxRateLimits(t)
	client := authsdk.NewSDKClient(setupAuthService(t))

	email := uniqueEmail("roamer")
	signupUser(t, client, email, "")
	laptop := performLogin(t, client, email)
	phone := performLogin(t, client, email)

	sessions, err := laptop.Sessions(t.Context())
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	revoked, err := laptop.LogoutAll(t.Context())
	require.NoError(t, err)
	require.EqualValues(t, 2, revoked)

	_, err = phone.Me(t.Context())
	assertUnauthorized(t, err, "access token after logout-all")

	_, err = client.Refresh(t.Context(), phone.RefreshToken())
	assertUnauthorized(t, err, "refresh after logout-all")
}

// TestRefreshAndLogout resumes a session from stored tokens and then ends it.
func TestRefreshAndLogout(t *testing.T) {
	relaxRateLimits(t)
	client := authsdk.NewSDKClient(setupAuthService(t))

	email := uniqueEmail("resume")
	signupUser(t, client, email, "")
	original := performLogin(t, client, email)

	// Resumed sessions refresh before their first call.
	resumed := client.NewSessionFromTokens("", original.RefreshToken(), nil)
	me, err := resumed.Me(t.Context())
	require.NoError(t, err)
	require.Equal(t, email, me.Email)
	require.NotEqual(t, original.AccessToken(), resumed.AccessToken())

	require.NoError(t, original.Logout(t.Context()))
	require.NoError(t, client.Logout(t.Context(), resumed.RefreshToken()), "logout is idempotent")

	_, err = client.Refresh(t.Context(), resumed.RefreshToken())
	assertUnauthorized(t, err, "refresh after logout")
}

// TestChangePasswordRevokesSessions requires a fresh login with the new password.
func TestChangePasswordRevokesSessions(t *testing.T) {
	relaxRateLimits(t)
	client := authsdk.NewSDKClient(setupAuthService(t))

	email := uniqueEmail("rotate")
	signupUser(t, client, email, "")
	session := performLogin(t, client, email)

	const next = "An0ther-long-passphrase"
	require.NoError(t, session.ChangePassword(t.Context(), testPassword, next))

	_, err := session.Me(t.Context())
	assertUnauthorized(t, err, "old session after password change")

	_, err = client.AuthenticateWithPassword(t.Context(), email, next, "")
	require.NoError(t, err)
}

// TestAuditTrail lists the organization's entries as its owner.
func TestAuditTrail(t *testing.T) {
	relaxRateLimits(t)
	client := authsdk.NewSDKClient(setupAuthService(t))

	email := uniqueEmail("auditor")
	signupUser(t, client, email, "Audit Co")
	session := performLogin(t, client, email)

	entries, err := session.ListAudit(t.Context(), "auth_success", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "auth_success", entries[0].Action)

	editorEmail := uniqueEmail("editor")
	signupUser(t, client, editorEmail, "")
	editor := performLogin(t, client, editorEmail)
	require.False(t, editor.HasPermission("audit:read"))

	client.CheckPermissions = false
	_, err = editor.ListAudit(t.Context(), "", 0)
	require.True(t, authsdk.IsForbidden(err), "editor should get 403, got %v", err)
}

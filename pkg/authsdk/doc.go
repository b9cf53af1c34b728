/*
Package authsdk is a Go client for the Voltex auth service.

# SDKClient vs Session

SDKClient covers the unauthenticated endpoints (signup, login, refresh,
logout, health). Session wraps the tokens from a login and covers the
bearer-protected endpoints:

	client := authsdk.NewSDKClient("https://auth.voltex.example")

	session, err := client.AuthenticateWithPassword(ctx, email, password, "")
	if errors.Is(err, authsdk.ErrMFARequired) {
		session, err = client.AuthenticateWithPassword(ctx, email, password, totpCode)
	}
	if err != nil {
		return err
	}

	me, err := session.Me(ctx)

# Token refresh

The access token is a short-lived JWT bound to a server-side session. The
refresh token identifies that session. Session refreshes the access token
30 seconds before it expires; the refresh token itself never changes. When
the server ends the session (logout, logout everywhere, password change)
refreshing fails with a 401 and the Session has to be discarded.

# Permissions

A Session caches the permission list from the login response. With
SDKClient.CheckPermissions set, calls that need a permission the user does
not have fail locally; the server enforces them regardless. Me refreshes
the cached list.

# Errors

Non-2xx responses are returned as *APIError. IsUnauthorized, IsForbidden
and IsConflict test for the common statuses.
*/
package authsdk

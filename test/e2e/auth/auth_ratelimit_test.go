//go:build e2e

package auth_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/voltex/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitLoginEndpoint verifies that login is limited per IP and email
// with the default strict profile (5 per minute).
func TestRateLimitLoginEndpoint(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthService(t))
	email := uniqueEmail("spray")

	for i := range 5 {
		_, err := client.Login(t.Context(), authsdk.LoginRequest{Email: email, Password: "wrongpass"})
		assertUnauthorized(t, err, "wrong password")
		require.NotContains(t, err.Error(), "429", "Should not be rate limited yet (request %d)", i+1)
	}

	_, err := client.Login(t.Context(), authsdk.LoginRequest{Email: email, Password: "wrongpass"})
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

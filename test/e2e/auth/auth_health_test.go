//go:build e2e

package auth_test

import (
	"testing"

	"github.com/aussiebroadwan/voltex/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestLivezEndpoint verifies the liveness check endpoint.
func TestLivezEndpoint(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthService(t))

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)
}

// TestReadyzEndpoint verifies readiness against the Postgres database.
func TestReadyzEndpoint(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthService(t))

	health, err := client.GetReadiness(t.Context())
	assertHealthy(t, health, err)
	require.Equal(t, "ok", health.Checks["database"])
}

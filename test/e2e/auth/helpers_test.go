//go:build e2e

package auth_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/app"
	"github.com/aussiebroadwan/voltex/pkg/authsdk"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * A single Postgres container is shared by the whole package; every test
 * runs its own in-process service against it and uses unique emails.
 */

const (
	postgresImage = "postgres:16-alpine"
	dbName        = "voltex"
	dbUser        = "voltex"
	dbPassword    = "voltex-e2e"

	testPassword = "Sup3r-secret-passphrase"
)

var (
	pgHost string
	pgPort int
)

// TestMain starts Postgres once before all tests and terminates it after.
func TestMain(m *testing.M) {
	ctx := context.Background()

	fmt.Fprintf(os.Stdout, "Starting Postgres container...")
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       dbName,
				"POSTGRES_USER":     dbUser,
				"POSTGRES_PASSWORD": dbPassword,
			},
			// Postgres restarts once after initdb; wait for the second "ready".
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to start Postgres: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to resolve Postgres host: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to resolve Postgres port: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}
	pgHost, pgPort = host, port.Int()
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Terminating Postgres container...")
	_ = container.Terminate(ctx)
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

// setupAuthService runs the full application in-process against the shared
// database and returns its base URL.
func setupAuthService(t *testing.T) string {
	t.Helper()

	cfg := app.LoadConfig()
	cfg.JWTSecret = "e2e-" + uuid.NewString()
	cfg.DBDriver = "postgres"
	cfg.DBHost = pgHost
	cfg.DBPort = pgPort
	cfg.DBName = dbName
	cfg.DBUser = dbUser
	cfg.DBPassword = dbPassword
	cfg.DBSSLMode = "disable"
	cfg.Env = "test"
	cfg.LogLevel = "error"

	application, err := app.New(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = application.Close()
	})
	return srv.URL
}

// relaxRateLimits lifts the credential limits for tests that log in often.
// Must run before setupAuthService, which reads the limits from the environment.
func relaxRateLimits(t *testing.T) {
	t.Helper()

	for _, preset := range []string{"STRICT", "MODERATE"} {
		t.Setenv("RATELIMIT_"+preset+"_REQUESTS", "1000")
		t.Setenv("RATELIMIT_"+preset+"_BURST", "1000")
	}
}

// uniqueEmail keeps tests independent on the shared database.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s+%s@gridco.example", prefix, strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// signupUser creates an account, with an organization when org is non-empty.
func signupUser(t *testing.T, client *authsdk.SDKClient, email, org string) *authsdk.UserView {
	t.Helper()

	user, err := client.Signup(t.Context(), authsdk.SignupRequest{
		Email:            email,
		Password:         testPassword,
		FirstName:        "Edith",
		LastName:         "Clarke",
		OrganizationName: org,
	})
	require.NoError(t, err, "Signup should succeed")
	require.NotEmpty(t, user.ID)
	return user
}

// performLogin logs in with the test password and returns the session.
func performLogin(t *testing.T, client *authsdk.SDKClient, email string) *authsdk.Session {
	t.Helper()

	session, err := client.AuthenticateWithPassword(t.Context(), email, testPassword, "")
	require.NoError(t, err, "Login should succeed")
	require.NotNil(t, session)
	return session
}

// assertUnauthorized checks that err is a 401 from the service.
func assertUnauthorized(t *testing.T, err error, context string) {
	t.Helper()
	require.Error(t, err, context)
	require.True(t, authsdk.IsUnauthorized(err), "%s - expected 401, got: %v", context, err)
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}

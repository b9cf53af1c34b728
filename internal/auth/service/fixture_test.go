package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/internal/auth/store"
	"github.com/aussiebroadwan/voltex/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/voltex/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "voltex-auth-test"
	testPassword = "correct horse battery"
)

var testSecret = []byte("service-test-secret")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    *sqlite.Store
	clock    *testClock
	audit    *AuditService
	auth     *Authenticator
	verifier *Verifier
	accounts *AccountService
	mfa      *MFAService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)

	clock := newTestClock()
	audit := &AuditService{Store: st, Now: clock.Now}
	lockout := Lockout{Threshold: 5, Duration: 30 * time.Minute}

	return &fixture{
		store: st,
		clock: clock,
		audit: audit,
		auth: &Authenticator{
			Store:      st,
			Signer:     signer,
			Issuer:     testIssuer,
			AccessTTL:  15 * time.Minute,
			SessionTTL: 24 * time.Hour,
			Lockout:    lockout,
			Audit:      audit,
			Now:        clock.Now,
		},
		verifier: &Verifier{
			Store:  st,
			Tokens: jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{Issuer: testIssuer, Now: clock.Now}),
			Now:    clock.Now,
		},
		accounts: &AccountService{Store: st, Audit: audit, Lockout: lockout, Now: clock.Now},
		mfa:      &MFAService{Store: st, Issuer: "Voltex", Audit: audit, Now: clock.Now},
	}
}

func (f *fixture) signup(t *testing.T, email, org string) domain.User {
	t.Helper()

	u, err := f.accounts.Signup(context.Background(), SignupRequest{
		Email:            email,
		Password:         testPassword,
		FirstName:        "Grace",
		LastName:         "Hopper",
		OrganizationName: org,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) login(t *testing.T, email string) LoginResult {
	t.Helper()

	res, err := f.auth.Login(context.Background(), LoginRequest{
		Email:      email,
		Password:   testPassword,
		ClientInfo: ClientInfo{IPAddress: "203.0.113.7", UserAgent: "go-test"},
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) auditEntries(t *testing.T, userID string, action domain.AuditAction) []domain.AuditEntry {
	t.Helper()

	entries, err := f.store.AuditLog().ListAuditEntries(context.Background(), store.AuditFilter{
		UserID: userID,
		Action: action,
		Limit:  100,
	})
	require.NoError(t, err)
	return entries
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

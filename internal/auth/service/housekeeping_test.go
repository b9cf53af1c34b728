package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	f.signup(t, "user@example.com", "")
	loggedOut := f.login(t, "user@example.com")
	f.login(t, "user@example.com")
	require.NoError(t, f.auth.Logout(ctx, loggedOut.Tokens.RefreshToken, ClientInfo{}))

	require.NoError(t, f.store.SSOStates().CreateSSOState(ctx, domain.SSOState{
		State:     "state-1",
		Provider:  "azure",
		CreatedAt: f.clock.Now(),
		ExpiresAt: f.clock.Now().Add(10 * time.Minute),
	}))

	hk := NewHousekeepingService(f.store, discardLogger(), 0)
	require.Equal(t, time.Hour, hk.Interval)
	hk.Now = f.clock.Now

	res := hk.Sweep(ctx)
	require.Equal(t, SweepResult{Sessions: 1}, res)

	f.clock.Advance(25 * time.Hour)
	res = hk.Sweep(ctx)
	require.Equal(t, SweepResult{Sessions: 1, SSOStates: 1}, res)
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	hk := NewHousekeepingService(f.store, discardLogger(), time.Millisecond)
	hk.Start()
	time.Sleep(5 * time.Millisecond)
	hk.Stop()
}

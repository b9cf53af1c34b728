package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/internal/auth/store"
	"github.com/stretchr/testify/require"
)

type failingAuditLog struct {
	store.AuditLog
}

func (failingAuditLog) AppendAuditEntry(context.Context, domain.AuditEntry) error {
	return errors.New("disk full")
}

type failingAuditStore struct {
	store.Store
}

func (failingAuditStore) AuditLog() store.AuditLog { return failingAuditLog{} }

func TestAuditFailuresDoNotFailLogin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.signup(t, "user@example.com", "")

	f.auth.Audit = &AuditService{Store: failingAuditStore{Store: f.store}}
	f.login(t, "user@example.com")

	var nilAudit *AuditService
	require.NotPanics(t, func() {
		nilAudit.Record(context.Background(), domain.AuditEntry{Action: domain.AuditLogout})
	})
}

func TestAuditListForPrincipal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	owner := f.signup(t, "founder@gridco.example", "GridCo")
	solo := f.signup(t, "solo@example.com", "")
	f.clock.Advance(time.Second)

	ownerLogin := f.login(t, "founder@gridco.example")
	soloLogin := f.login(t, "solo@example.com")

	entries, err := f.audit.ListForPrincipal(ctx, ownerLogin.Principal, "", 0)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		require.Equal(t, owner.Organization.ID, *e.OrganizationID)
	}
	require.Equal(t, domain.AuditAuthSuccess, entries[0].Action)

	entries, err = f.audit.ListForPrincipal(ctx, soloLogin.Principal, domain.AuditSignup, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, solo.ID, *entries[0].UserID)
}

package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/internal/auth/store"
	"github.com/aussiebroadwan/voltex/pkg/slogx"
)

const defaultAuditPageSize = 50

// AuditService writes and reads the append-only audit trail. Writes are
// best-effort: a failed append is logged and never fails the caller.
type AuditService struct {
	Store store.Store
	Now   func() time.Time
}

// Record appends e. A nil receiver is a no-op so callers can run without
// auditing in tests.
func (s *AuditService) Record(ctx context.Context, e domain.AuditEntry) {
	if s == nil {
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = nowFrom(s.Now)
	}
	if e.ResourceType == "" {
		e.ResourceType = "user"
	}
	if err := s.Store.AuditLog().AppendAuditEntry(ctx, e); err != nil {
		slogx.FromContext(ctx).Error("audit write failed",
			"action", string(e.Action),
			"error", err,
		)
	}
}

// ListForPrincipal returns the newest entries of the caller's organization,
// or of the caller alone when they have no active membership.
func (s *AuditService) ListForPrincipal(
	ctx context.Context,
	p domain.Principal,
	action domain.AuditAction,
	limit int,
) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	f := store.AuditFilter{Action: action, Limit: limit}
	if p.OrganizationID != "" {
		f.OrganizationID = p.OrganizationID
	} else {
		f.UserID = p.UserID
	}
	return s.Store.AuditLog().ListAuditEntries(ctx, f)
}

// userEntry pre-fills the subject columns for an entry about u.
func userEntry(u domain.User, action domain.AuditAction, info ClientInfo) domain.AuditEntry {
	return domain.AuditEntry{
		UserID:         optional(u.ID),
		OrganizationID: optional(u.OrganizationID()),
		Action:         action,
		ResourceType:   "user",
		ResourceID:     u.ID,
		IPAddress:      info.IPAddress,
		UserAgent:      info.UserAgent,
	}
}

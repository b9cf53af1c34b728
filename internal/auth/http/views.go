package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/internal/auth/service"
	"github.com/aussiebroadwan/voltex/pkg/authsdk"
	"github.com/aussiebroadwan/voltex/pkg/httpx"
)

func userView(u domain.User) authsdk.UserView {
	role := u.EffectiveRole()
	v := authsdk.UserView{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          role.String(),
		Status:        string(u.Status),
		Permissions:   role.Permissions(),
		MFAEnabled:    u.MFAEnabled,
		EmailVerified: u.EmailVerified,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
	if v.Permissions == nil {
		v.Permissions = []string{}
	}
	if u.Organization != nil && u.OrganizationID() != "" {
		v.Organization = &authsdk.OrganizationView{
			ID:     u.Organization.ID,
			Name:   u.Organization.Name,
			Domain: u.Organization.Domain,
			Plan:   u.Organization.Plan,
		}
	}
	return v
}

func sessionView(s domain.Session, currentID string) authsdk.SessionView {
	return authsdk.SessionView{
		ID:         s.ID,
		IPAddress:  s.IPAddress,
		UserAgent:  s.UserAgent,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: s.LastUsedAt,
		ExpiresAt:  s.ExpiresAt,
		Current:    s.ID == currentID,
	}
}

func auditView(e domain.AuditEntry) authsdk.AuditEntryView {
	return authsdk.AuditEntryView{
		ID:             e.ID,
		UserID:         e.UserID,
		OrganizationID: e.OrganizationID,
		Action:         string(e.Action),
		ResourceType:   e.ResourceType,
		ResourceID:     e.ResourceID,
		OldValues:      e.OldValues,
		NewValues:      e.NewValues,
		IPAddress:      e.IPAddress,
		UserAgent:      e.UserAgent,
		SessionID:      e.SessionID,
		CreatedAt:      e.CreatedAt,
	}
}

// expiresIn is the whole number of seconds until t, never negative.
func expiresIn(t, now time.Time) int {
	return max(int(t.Sub(now).Seconds()), 0)
}

func clientInfo(r *http.Request) service.ClientInfo {
	return service.ClientInfo{
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// principal returns the caller resolved by RequireAuth.
func principal(r *http.Request) (domain.Principal, bool) {
	s, ok := httpx.SubjectFromContext(r.Context())
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := s.(domain.Principal)
	return p, ok
}

package domain

import "time"

type AuditAction string

const (
	AuditAuthSuccess     AuditAction = "auth_success"
	AuditAuthFailed      AuditAction = "auth_failed"
	AuditAuthRejected    AuditAction = "auth_rejected"
	AuditLogout          AuditAction = "logout"
	AuditLogoutAll       AuditAction = "logout_all"
	AuditPasswordChanged AuditAction = "password_changed"
	AuditMFAEnabled      AuditAction = "mfa_enabled"
	AuditMFADisabled     AuditAction = "mfa_disabled"
	AuditMFAFailed       AuditAction = "mfa_failed"
	AuditSignup          AuditAction = "signup"
)

// Reasons recorded in new_values.reason for auth_rejected entries.
const (
	RejectUnknownUser = "unknown_user"
	RejectInactive    = "inactive"
	RejectLocked      = "locked"
)

// AuditEntry is append-only; nothing updates or deletes it once written.
type AuditEntry struct {
	ID             string
	UserID         *string
	OrganizationID *string
	Action         AuditAction
	ResourceType   string
	ResourceID     string
	OldValues      map[string]any
	NewValues      map[string]any
	IPAddress      string
	UserAgent      string
	SessionID      *string
	CreatedAt      time.Time
}

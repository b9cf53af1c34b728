package authsdk

import "time"

// Wire types shared by the auth service handlers and this client.

type SignupRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	OrganizationName string `json:"organization_name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// MFACode is a TOTP code or an unused backup code. Only required when
	// the account has MFA enabled.
	MFACode string `json:"mfa_code,omitempty"`
}

type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         UserView  `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by the refresh endpoint. RefreshToken is echoed
// back unchanged since the session it identifies stays the same.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type OrganizationView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
	Plan   string `json:"plan"`
}

// UserView is the caller-facing user record. Permissions are resolved from
// the effective role at the time the view was built.
type UserView struct {
	ID            string            `json:"id"`
	Email         string            `json:"email"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	Role          string            `json:"role"`
	Status        string            `json:"status"`
	Permissions   []string          `json:"permissions"`
	Organization  *OrganizationView `json:"organization,omitempty"`
	MFAEnabled    bool              `json:"mfa_enabled"`
	EmailVerified bool              `json:"email_verified"`
	LastLoginAt   *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`

	// RemainingBackupCodes is only reported by /api/auth/me, and only
	// while MFA is enabled.
	RemainingBackupCodes *int `json:"remaining_backup_codes,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type MFAEnrollResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	Issuer     string `json:"issuer"`
	Account    string `json:"account"`
}

type MFACodeRequest struct {
	Code string `json:"code"`
}

type BackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

type SessionView struct {
	ID         string    `json:"id"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Current    bool      `json:"current"`
}

type SessionListResponse struct {
	Sessions []SessionView `json:"sessions"`
}

type AuditEntryView struct {
	ID             string         `json:"id"`
	UserID         *string        `json:"user_id,omitempty"`
	OrganizationID *string        `json:"organization_id,omitempty"`
	Action         string         `json:"action"`
	ResourceType   string         `json:"resource_type"`
	ResourceID     string         `json:"resource_id"`
	OldValues      map[string]any `json:"old_values,omitempty"`
	NewValues      map[string]any `json:"new_values,omitempty"`
	IPAddress      string         `json:"ip_address"`
	UserAgent      string         `json:"user_agent"`
	SessionID      *string        `json:"session_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

type AuditListResponse struct {
	Entries []AuditEntryView `json:"entries"`
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime,omitempty"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// LoginErrorResponse is the 401 body of the login endpoint. MFARequired is
// set when the password was accepted but a second factor is missing.
type LoginErrorResponse struct {
	Detail      string `json:"detail"`
	MFARequired bool   `json:"mfa_required,omitempty"`
}

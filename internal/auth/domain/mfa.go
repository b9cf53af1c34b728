package domain

import "time"

// BackupCode is a single-use MFA recovery code, stored as a fingerprint.
type BackupCode struct {
	ID        string
	UserID    string
	CodeHash  string
	UsedAt    *time.Time
	CreatedAt time.Time
}

type MFAEnrollment struct {
	Secret  string // base32 encoded TOTP secret
	URL     string // otpauth:// URL for QR rendering
	Issuer  string
	Account string
}

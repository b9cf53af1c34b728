package domain

import (
	"strings"
	"time"
)

type UserStatus string

const (
	StatusActive  UserStatus = "active"
	StatusLocked  UserStatus = "locked"
	StatusPending UserStatus = "pending"
	StatusDeleted UserStatus = "deleted"
)

type User struct {
	ID                  string
	Email               string
	PasswordHash        string // argon2id PHC string, or a legacy bcrypt hash
	FirstName           string
	LastName            string
	Role                Role
	Status              UserStatus
	FailedLoginAttempts int
	LockedUntil         *time.Time
	MFAEnabled          bool
	MFASecret           *string // base32 TOTP secret, set at enrollment
	EmailVerified       bool
	EmailVerifiedAt     *time.Time
	LastLoginAt         *time.Time
	LastLoginIP         *string
	CreatedAt           time.Time
	UpdatedAt           time.Time

	// Populated by lookups that join the user's primary active membership.
	Membership   *Membership
	Organization *Organization
}

// IsLockedAt reports whether a lockout is still in force at now.
func (u User) IsLockedAt(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// EffectiveRole is the active membership's role when there is one, otherwise
// the user's own role.
func (u User) EffectiveRole() Role {
	if u.Membership != nil && u.Membership.IsActive {
		return u.Membership.Role
	}
	return u.Role
}

// OrganizationID returns the joined organization id, or "" when the user
// has no active membership.
func (u User) OrganizationID() string {
	if u.Membership != nil && u.Membership.IsActive {
		return u.Membership.OrganizationID
	}
	return ""
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail lower-cases and trims an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

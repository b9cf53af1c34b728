package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories so a transaction hands out the
// same repositories bound to the open tx, which stops callers from mixing tx
// and non-tx writes in one unit of work.
type Store interface {
	Users() Users
	Organizations() Organizations
	Memberships() Memberships
	Sessions() Sessions
	BackupCodes() BackupCodes
	AuditLog() AuditLog
	SSOStates() SSOStates

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential store. Every lookup skips soft-deleted users.
type Users interface {
	// GetUserByID joins the user's primary active membership and organization.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail normalizes email before matching and joins like GetUserByID.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// IncrementFailedAttempts bumps the counter in a single statement, sets
	// locked_until = lockUntil once the post-increment count reaches threshold
	// and returns that count.
	IncrementFailedAttempts(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, error)

	// ResetFailedAttempts zeroes the counter unless the user is locked at now.
	// It reports false, and changes nothing, while a lock is in force.
	ResetFailedAttempts(ctx context.Context, id string, now time.Time) (bool, error)

	// IsLocked reports whether locked_until is set and after now.
	IsLocked(ctx context.Context, id string, now time.Time) (bool, error)

	UpdateLastLogin(ctx context.Context, id, ip string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// UpdateMFASecret stores a pending TOTP secret without enabling MFA.
	UpdateMFASecret(ctx context.Context, id, secret string) error
	EnableMFA(ctx context.Context, id string) error

	// ClaimTOTPStep records step as used. It reports false when step is not
	// newer than the last claimed step, so each code is accepted once.
	ClaimTOTPStep(ctx context.Context, id string, step int64) (bool, error)

	// DisableMFA clears the flag, the secret and the last claimed step.
	DisableMFA(ctx context.Context, id string) error

	// SoftDeleteUser flips status to deleted; the row is never removed.
	SoftDeleteUser(ctx context.Context, id string) error
}

type Organizations interface {
	CreateOrganization(ctx context.Context, o domain.Organization) error
	GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error)
}

type Memberships interface {
	// CreateMembership returns ErrAlreadyExists for a duplicate (user, org) pair.
	CreateMembership(ctx context.Context, m domain.Membership) error

	// ListActiveMemberships returns the user's active memberships, oldest first.
	ListActiveMemberships(ctx context.Context, userID string) ([]domain.Membership, error)

	SetMembershipActive(ctx context.Context, id string, active bool) error
}

// Sessions lookups only ever return sessions that are active and unexpired
// at the supplied now.
type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error
	GetSessionByToken(ctx context.Context, tokenHash string, now time.Time) (domain.Session, error)
	GetSessionByID(ctx context.Context, id string, now time.Time) (domain.Session, error)
	UpdateLastUsed(ctx context.Context, id string, at time.Time) error

	// InvalidateSession deactivates the session holding tokenHash.
	InvalidateSession(ctx context.Context, tokenHash string) error
	InvalidateSessionByID(ctx context.Context, id string) error

	// InvalidateUserSessions deactivates every session of userID and returns
	// how many were still active.
	InvalidateUserSessions(ctx context.Context, userID string) (int64, error)

	ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]domain.Session, error)

	// DeleteExpiredSessions removes expired or inactive rows and returns the count.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type BackupCodes interface {
	CreateBackupCode(ctx context.Context, userID, codeHash string) error

	// ConsumeBackupCode marks an unused code as used. It reports false when
	// the code does not exist or was already consumed.
	ConsumeBackupCode(ctx context.Context, userID, codeHash string, at time.Time) (bool, error)

	DeleteAllBackupCodes(ctx context.Context, userID string) error
	CountUnusedBackupCodes(ctx context.Context, userID string) (int, error)
}

// AuditFilter narrows ListAuditEntries. Zero fields are ignored.
type AuditFilter struct {
	OrganizationID string
	UserID         string
	Action         domain.AuditAction
	Limit          int
}

// AuditLog is append-only: entries are never updated or deleted.
type AuditLog interface {
	AppendAuditEntry(ctx context.Context, e domain.AuditEntry) error

	// ListAuditEntries returns matching entries, newest first.
	ListAuditEntries(ctx context.Context, f AuditFilter) ([]domain.AuditEntry, error)
}

type SSOStates interface {
	CreateSSOState(ctx context.Context, s domain.SSOState) error

	// DeleteExpiredSSOStates removes states whose expires_at <= now.
	DeleteExpiredSSOStates(ctx context.Context, now time.Time) (int64, error)
}

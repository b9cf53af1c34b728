package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/internal/auth/store"
	"github.com/aussiebroadwan/voltex/pkg/idx"
	"github.com/jmoiron/sqlx"
)

type usersRepo struct {
	ext     sqlx.ExtContext
	dialect Dialect
}

// The primary membership is the oldest active one; inactive memberships
// never take part in the join.
const selectUser = `
SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.role, u.status,
	u.failed_login_attempts, u.locked_until, u.mfa_enabled, u.mfa_secret,
	u.email_verified, u.email_verified_at, u.last_login_at, u.last_login_ip,
	u.created_at, u.updated_at,
	m.id AS m_id, m.organization_id AS m_organization_id, m.role AS m_role,
	m.invited_by AS m_invited_by, m.created_at AS m_created_at,
	o.name AS o_name, o.domain AS o_domain, o.plan AS o_plan, o.settings AS o_settings,
	o.created_at AS o_created_at, o.updated_at AS o_updated_at
FROM users u
LEFT JOIN user_organization_membership m ON m.id = (
	SELECT pm.id FROM user_organization_membership pm
	WHERE pm.user_id = u.id AND pm.is_active = TRUE
	ORDER BY pm.created_at, pm.id
	LIMIT 1
)
LEFT JOIN organizations o ON o.id = m.organization_id
WHERE u.status <> 'deleted'`

type userRow struct {
	ID                  string         `db:"id"`
	Email               string         `db:"email"`
	PasswordHash        string         `db:"password_hash"`
	FirstName           string         `db:"first_name"`
	LastName            string         `db:"last_name"`
	Role                string         `db:"role"`
	Status              string         `db:"status"`
	FailedLoginAttempts int            `db:"failed_login_attempts"`
	LockedUntil         sql.NullTime   `db:"locked_until"`
	MFAEnabled          bool           `db:"mfa_enabled"`
	MFASecret           sql.NullString `db:"mfa_secret"`
	EmailVerified       bool           `db:"email_verified"`
	EmailVerifiedAt     sql.NullTime   `db:"email_verified_at"`
	LastLoginAt         sql.NullTime   `db:"last_login_at"`
	LastLoginIP         sql.NullString `db:"last_login_ip"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`

	MembershipID        sql.NullString `db:"m_id"`
	MembershipOrgID     sql.NullString `db:"m_organization_id"`
	MembershipRole      sql.NullString `db:"m_role"`
	MembershipInvitedBy sql.NullString `db:"m_invited_by"`
	MembershipCreatedAt sql.NullTime   `db:"m_created_at"`
	OrgName             sql.NullString `db:"o_name"`
	OrgDomain           sql.NullString `db:"o_domain"`
	OrgPlan             sql.NullString `db:"o_plan"`
	OrgSettings         sql.NullString `db:"o_settings"`
	OrgCreatedAt        sql.NullTime   `db:"o_created_at"`
	OrgUpdatedAt        sql.NullTime   `db:"o_updated_at"`
}

func mapUser(row userRow) domain.User {
	u := domain.User{
		ID:                  row.ID,
		Email:               row.Email,
		PasswordHash:        row.PasswordHash,
		FirstName:           row.FirstName,
		LastName:            row.LastName,
		Role:                domain.Role(row.Role),
		Status:              domain.UserStatus(row.Status),
		FailedLoginAttempts: row.FailedLoginAttempts,
		LockedUntil:         mapNullTimePtr(row.LockedUntil),
		MFAEnabled:          row.MFAEnabled,
		MFASecret:           mapNullStringPtr(row.MFASecret),
		EmailVerified:       row.EmailVerified,
		EmailVerifiedAt:     mapNullTimePtr(row.EmailVerifiedAt),
		LastLoginAt:         mapNullTimePtr(row.LastLoginAt),
		LastLoginIP:         mapNullStringPtr(row.LastLoginIP),
		CreatedAt:           row.CreatedAt.UTC(),
		UpdatedAt:           row.UpdatedAt.UTC(),
	}

	if row.MembershipID.Valid {
		u.Membership = &domain.Membership{
			ID:             row.MembershipID.String,
			UserID:         row.ID,
			OrganizationID: row.MembershipOrgID.String,
			Role:           domain.Role(row.MembershipRole.String),
			InvitedBy:      mapNullStringPtr(row.MembershipInvitedBy),
			IsActive:       true,
			CreatedAt:      row.MembershipCreatedAt.Time.UTC(),
		}
		u.Organization = &domain.Organization{
			ID:        row.MembershipOrgID.String,
			Name:      row.OrgName.String,
			Domain:    row.OrgDomain.String,
			Plan:      row.OrgPlan.String,
			Settings:  decodeJSON(row.OrgSettings),
			CreatedAt: row.OrgCreatedAt.Time.UTC(),
			UpdatedAt: row.OrgUpdatedAt.Time.UTC(),
		}
	}
	return u
}

func (r *usersRepo) get(ctx context.Context, where string, arg any) (domain.User, error) {
	var row userRow
	q := r.ext.Rebind(selectUser + " AND " + where)
	if err := sqlx.GetContext(ctx, r.ext, &row, q, arg); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.get(ctx, "u.id = ?", id)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.get(ctx, "u.email = ?", domain.NormalizeEmail(email))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	if u.ID == "" {
		u.ID = idx.New().String()
	}
	if u.Status == "" {
		u.Status = domain.StatusActive
	}
	created := orNow(u.CreatedAt)

	_, err := r.ext.ExecContext(ctx, r.ext.Rebind(`
INSERT INTO users (
	id, email, password_hash, first_name, last_name, role, status,
	failed_login_attempts, locked_until, mfa_enabled, mfa_secret,
	email_verified, email_verified_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		u.ID,
		domain.NormalizeEmail(u.Email),
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		string(u.Role),
		string(u.Status),
		u.FailedLoginAttempts,
		mapOptionalTime(u.LockedUntil),
		u.MFAEnabled,
		mapOptionalString(u.MFASecret),
		u.EmailVerified,
		mapOptionalTime(u.EmailVerifiedAt),
		created,
		created,
	)
	return mapInsert(r.dialect, err)
}

// IncrementFailedAttempts must stay a single statement: concurrent failures
// on one account would otherwise lose increments.
func (r *usersRepo) IncrementFailedAttempts(
	ctx context.Context,
	id string,
	threshold int,
	lockUntil time.Time,
) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.ext, &count, r.ext.Rebind(`
UPDATE users SET
	failed_login_attempts = failed_login_attempts + 1,
	locked_until = CASE WHEN failed_login_attempts + 1 >= ? THEN ? ELSE locked_until END,
	updated_at = ?
WHERE id = ? AND status <> 'deleted'
RETURNING failed_login_attempts`),
		threshold, dbTime(lockUntil), nowUTC(), id,
	)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return count, nil
}

// ResetFailedAttempts re-checks the lock in the same statement that clears
// the counter, so a lock set by a concurrent failure is never wiped.
func (r *usersRepo) ResetFailedAttempts(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(`
UPDATE users SET failed_login_attempts = 0, locked_until = NULL, updated_at = ?
WHERE id = ? AND status <> 'deleted' AND (locked_until IS NULL OR locked_until <= ?)`),
		nowUTC(), id, dbTime(now),
	)
	err = requireRow(res, err)
	if !errors.Is(err, store.ErrNotFound) {
		return err == nil, err
	}

	locked, lerr := r.IsLocked(ctx, id, now)
	if lerr != nil {
		return false, lerr
	}
	if locked {
		return false, nil
	}
	return false, store.ErrNotFound
}

func (r *usersRepo) IsLocked(ctx context.Context, id string, now time.Time) (bool, error) {
	var until sql.NullTime
	err := sqlx.GetContext(ctx, r.ext, &until, r.ext.Rebind(
		`SELECT locked_until FROM users WHERE id = ? AND status <> 'deleted'`), id)
	if err != nil {
		return false, mapNotFound(err)
	}
	return until.Valid && now.Before(until.Time), nil
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, id, ip string, at time.Time) error {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(`
UPDATE users SET last_login_at = ?, last_login_ip = ?, updated_at = ?
WHERE id = ? AND status <> 'deleted'`),
		dbTime(at), mapStringNull(ip), nowUTC(), id,
	)
	return requireRow(res, err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.update(ctx, `password_hash = ?`, hash, id)
}

func (r *usersRepo) UpdateMFASecret(ctx context.Context, id, secret string) error {
	return r.update(ctx, `mfa_secret = ?, mfa_last_step = NULL`, mapStringNull(secret), id)
}

func (r *usersRepo) EnableMFA(ctx context.Context, id string) error {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(`
UPDATE users SET mfa_enabled = TRUE, updated_at = ?
WHERE id = ? AND status <> 'deleted' AND mfa_secret IS NOT NULL`),
		nowUTC(), id,
	)
	return requireRow(res, err)
}

func (r *usersRepo) ClaimTOTPStep(ctx context.Context, id string, step int64) (bool, error) {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(`
UPDATE users SET mfa_last_step = ?, updated_at = ?
WHERE id = ? AND status <> 'deleted' AND (mfa_last_step IS NULL OR mfa_last_step < ?)`),
		step, nowUTC(), id, step,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *usersRepo) DisableMFA(ctx context.Context, id string) error {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(`
UPDATE users SET mfa_enabled = FALSE, mfa_secret = NULL, mfa_last_step = NULL, updated_at = ?
WHERE id = ? AND status <> 'deleted'`),
		nowUTC(), id,
	)
	return requireRow(res, err)
}

func (r *usersRepo) SoftDeleteUser(ctx context.Context, id string) error {
	return r.update(ctx, `status = ?`, string(domain.StatusDeleted), id)
}

// update sets a single column on a visible user and bumps updated_at.
func (r *usersRepo) update(ctx context.Context, set string, value any, id string) error {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(
		`UPDATE users SET `+set+`, updated_at = ? WHERE id = ? AND status <> 'deleted'`),
		value, nowUTC(), id,
	)
	return requireRow(res, err)
}

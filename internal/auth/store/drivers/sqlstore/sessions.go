package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/pkg/idx"
	"github.com/jmoiron/sqlx"
)

type sessionsRepo struct {
	ext     sqlx.ExtContext
	dialect Dialect
}

const selectSession = `
SELECT id, user_id, session_token, refresh_token, expires_at, ip_address, user_agent,
	is_active, created_at, last_used_at
FROM user_sessions`

type sessionRow struct {
	ID           string         `db:"id"`
	UserID       string         `db:"user_id"`
	SessionToken string         `db:"session_token"`
	RefreshToken sql.NullString `db:"refresh_token"`
	ExpiresAt    time.Time      `db:"expires_at"`
	IPAddress    string         `db:"ip_address"`
	UserAgent    string         `db:"user_agent"`
	IsActive     bool           `db:"is_active"`
	CreatedAt    time.Time      `db:"created_at"`
	LastUsedAt   time.Time      `db:"last_used_at"`
}

func mapSession(row sessionRow) domain.Session {
	return domain.Session{
		ID:               row.ID,
		UserID:           row.UserID,
		TokenHash:        row.SessionToken,
		RefreshTokenHash: mapNullStringPtr(row.RefreshToken),
		ExpiresAt:        row.ExpiresAt.UTC(),
		IPAddress:        row.IPAddress,
		UserAgent:        row.UserAgent,
		IsActive:         row.IsActive,
		CreatedAt:        row.CreatedAt.UTC(),
		LastUsedAt:       row.LastUsedAt.UTC(),
	}
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	if s.ID == "" {
		s.ID = idx.New().String()
	}
	created := orNow(s.CreatedAt)
	lastUsed := s.LastUsedAt
	if lastUsed.IsZero() {
		lastUsed = created
	}

	_, err := r.ext.ExecContext(ctx, r.ext.Rebind(`
INSERT INTO user_sessions (
	id, user_id, session_token, refresh_token, expires_at, ip_address, user_agent,
	is_active, created_at, last_used_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		s.ID, s.UserID, s.TokenHash, mapOptionalString(s.RefreshTokenHash),
		dbTime(s.ExpiresAt), s.IPAddress, s.UserAgent, true, created, dbTime(lastUsed),
	)
	return mapInsert(r.dialect, err)
}

func (r *sessionsRepo) getActive(ctx context.Context, where string, arg any, now time.Time) (domain.Session, error) {
	var row sessionRow
	q := r.ext.Rebind(selectSession + ` WHERE ` + where + ` AND is_active = TRUE AND expires_at > ?`)
	if err := sqlx.GetContext(ctx, r.ext, &row, q, arg, dbTime(now)); err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return mapSession(row), nil
}

func (r *sessionsRepo) GetSessionByToken(ctx context.Context, tokenHash string, now time.Time) (domain.Session, error) {
	return r.getActive(ctx, "session_token = ?", tokenHash, now)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string, now time.Time) (domain.Session, error) {
	return r.getActive(ctx, "id = ?", id, now)
}

func (r *sessionsRepo) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(
		`UPDATE user_sessions SET last_used_at = ? WHERE id = ? AND is_active = TRUE`),
		dbTime(at), id,
	)
	return requireRow(res, err)
}

func (r *sessionsRepo) InvalidateSession(ctx context.Context, tokenHash string) error {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(
		`UPDATE user_sessions SET is_active = FALSE WHERE session_token = ? AND is_active = TRUE`),
		tokenHash,
	)
	return requireRow(res, err)
}

func (r *sessionsRepo) InvalidateSessionByID(ctx context.Context, id string) error {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(
		`UPDATE user_sessions SET is_active = FALSE WHERE id = ? AND is_active = TRUE`),
		id,
	)
	return requireRow(res, err)
}

func (r *sessionsRepo) InvalidateUserSessions(ctx context.Context, userID string) (int64, error) {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(
		`UPDATE user_sessions SET is_active = FALSE WHERE user_id = ? AND is_active = TRUE`),
		userID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]domain.Session, error) {
	var rows []sessionRow
	err := sqlx.SelectContext(ctx, r.ext, &rows, r.ext.Rebind(selectSession+`
WHERE user_id = ? AND is_active = TRUE AND expires_at > ?
ORDER BY created_at DESC`), userID, dbTime(now))
	if err != nil {
		return nil, err
	}

	out := make([]domain.Session, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapSession(row))
	}
	return out, nil
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(
		`DELETE FROM user_sessions WHERE expires_at <= ? OR is_active = FALSE`),
		dbTime(now),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

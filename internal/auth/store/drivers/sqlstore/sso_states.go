package sqlstore

import (
	"context"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/jmoiron/sqlx"
)

type ssoStatesRepo struct {
	ext     sqlx.ExtContext
	dialect Dialect
}

func (r *ssoStatesRepo) CreateSSOState(ctx context.Context, s domain.SSOState) error {
	_, err := r.ext.ExecContext(ctx, r.ext.Rebind(`
INSERT INTO sso_state (state, provider, redirect_uri, nonce, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?)`),
		s.State, s.Provider, s.RedirectURI, s.Nonce, orNow(s.CreatedAt), dbTime(s.ExpiresAt),
	)
	return mapInsert(r.dialect, err)
}

func (r *ssoStatesRepo) DeleteExpiredSSOStates(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(
		`DELETE FROM sso_state WHERE expires_at <= ?`), dbTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

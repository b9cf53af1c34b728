package sqlstore

import (
	"context"
	"time"

	"github.com/aussiebroadwan/voltex/pkg/idx"
	"github.com/jmoiron/sqlx"
)

type backupCodesRepo struct {
	ext sqlx.ExtContext
}

func (r *backupCodesRepo) CreateBackupCode(ctx context.Context, userID, codeHash string) error {
	_, err := r.ext.ExecContext(ctx, r.ext.Rebind(`
INSERT INTO mfa_backup_codes (id, user_id, code_hash, used_at, created_at)
VALUES (?, ?, ?, NULL, ?)`),
		idx.New().String(), userID, codeHash, nowUTC(),
	)
	return err
}

// ConsumeBackupCode relies on the used_at IS NULL guard so that two
// concurrent redemptions of one code cannot both succeed.
func (r *backupCodesRepo) ConsumeBackupCode(
	ctx context.Context,
	userID, codeHash string,
	at time.Time,
) (bool, error) {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(`
UPDATE mfa_backup_codes SET used_at = ?
WHERE user_id = ? AND code_hash = ? AND used_at IS NULL`),
		dbTime(at), userID, codeHash,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, userID string) error {
	_, err := r.ext.ExecContext(ctx, r.ext.Rebind(
		`DELETE FROM mfa_backup_codes WHERE user_id = ?`), userID)
	return err
}

func (r *backupCodesRepo) CountUnusedBackupCodes(ctx context.Context, userID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.ext, &n, r.ext.Rebind(
		`SELECT COUNT(*) FROM mfa_backup_codes WHERE user_id = ? AND used_at IS NULL`), userID)
	return n, err
}

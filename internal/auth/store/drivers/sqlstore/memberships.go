package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/pkg/idx"
	"github.com/jmoiron/sqlx"
)

type membershipsRepo struct {
	ext     sqlx.ExtContext
	dialect Dialect
}

type membershipRow struct {
	ID             string         `db:"id"`
	UserID         string         `db:"user_id"`
	OrganizationID string         `db:"organization_id"`
	Role           string         `db:"role"`
	InvitedBy      sql.NullString `db:"invited_by"`
	IsActive       bool           `db:"is_active"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r *membershipsRepo) CreateMembership(ctx context.Context, m domain.Membership) error {
	if m.ID == "" {
		m.ID = idx.New().String()
	}
	_, err := r.ext.ExecContext(ctx, r.ext.Rebind(`
INSERT INTO user_organization_membership (id, user_id, organization_id, role, invited_by, is_active, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`),
		m.ID, m.UserID, m.OrganizationID, string(m.Role),
		mapOptionalString(m.InvitedBy), m.IsActive, orNow(m.CreatedAt),
	)
	return mapInsert(r.dialect, err)
}

func (r *membershipsRepo) ListActiveMemberships(ctx context.Context, userID string) ([]domain.Membership, error) {
	var rows []membershipRow
	err := sqlx.SelectContext(ctx, r.ext, &rows, r.ext.Rebind(`
SELECT id, user_id, organization_id, role, invited_by, is_active, created_at
FROM user_organization_membership
WHERE user_id = ? AND is_active = TRUE
ORDER BY created_at, id`), userID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Membership, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Membership{
			ID:             row.ID,
			UserID:         row.UserID,
			OrganizationID: row.OrganizationID,
			Role:           domain.Role(row.Role),
			InvitedBy:      mapNullStringPtr(row.InvitedBy),
			IsActive:       row.IsActive,
			CreatedAt:      row.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *membershipsRepo) SetMembershipActive(ctx context.Context, id string, active bool) error {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(
		`UPDATE user_organization_membership SET is_active = ? WHERE id = ?`), active, id)
	return requireRow(res, err)
}

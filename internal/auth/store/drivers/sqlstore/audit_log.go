package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/internal/auth/store"
	"github.com/aussiebroadwan/voltex/pkg/idx"
	"github.com/jmoiron/sqlx"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type auditLogRepo struct {
	ext sqlx.ExtContext
}

type auditRow struct {
	ID             string         `db:"id"`
	UserID         sql.NullString `db:"user_id"`
	OrganizationID sql.NullString `db:"organization_id"`
	Action         string         `db:"action"`
	ResourceType   string         `db:"resource_type"`
	ResourceID     string         `db:"resource_id"`
	OldValues      sql.NullString `db:"old_values"`
	NewValues      sql.NullString `db:"new_values"`
	IPAddress      string         `db:"ip_address"`
	UserAgent      string         `db:"user_agent"`
	SessionID      sql.NullString `db:"session_id"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r *auditLogRepo) AppendAuditEntry(ctx context.Context, e domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = idx.New().String()
	}
	oldValues, err := encodeJSON(e.OldValues)
	if err != nil {
		return err
	}
	newValues, err := encodeJSON(e.NewValues)
	if err != nil {
		return err
	}

	_, err = r.ext.ExecContext(ctx, r.ext.Rebind(`
INSERT INTO audit_log (
	id, user_id, organization_id, action, resource_type, resource_id,
	old_values, new_values, ip_address, user_agent, session_id, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID,
		mapOptionalString(e.UserID),
		mapOptionalString(e.OrganizationID),
		string(e.Action),
		e.ResourceType,
		e.ResourceID,
		oldValues,
		newValues,
		e.IPAddress,
		e.UserAgent,
		mapOptionalString(e.SessionID),
		orNow(e.CreatedAt),
	)
	return err
}

func (r *auditLogRepo) ListAuditEntries(ctx context.Context, f store.AuditFilter) ([]domain.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.OrganizationID != "" {
		where = append(where, "organization_id = ?")
		args = append(args, f.OrganizationID)
	}
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(f.Action))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	limit = min(limit, maxAuditLimit)

	q := `
SELECT id, user_id, organization_id, action, resource_type, resource_id,
	old_values, new_values, ip_address, user_agent, session_id, created_at
FROM audit_log`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	var rows []auditRow
	if err := sqlx.SelectContext(ctx, r.ext, &rows, r.ext.Rebind(q), args...); err != nil {
		return nil, err
	}

	out := make([]domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.AuditEntry{
			ID:             row.ID,
			UserID:         mapNullStringPtr(row.UserID),
			OrganizationID: mapNullStringPtr(row.OrganizationID),
			Action:         domain.AuditAction(row.Action),
			ResourceType:   row.ResourceType,
			ResourceID:     row.ResourceID,
			OldValues:      decodeJSON(row.OldValues),
			NewValues:      decodeJSON(row.NewValues),
			IPAddress:      row.IPAddress,
			UserAgent:      row.UserAgent,
			SessionID:      mapNullStringPtr(row.SessionID),
			CreatedAt:      row.CreatedAt.UTC(),
		})
	}
	return out, nil
}

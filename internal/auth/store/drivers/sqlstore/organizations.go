package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/pkg/idx"
	"github.com/jmoiron/sqlx"
)

type organizationsRepo struct {
	ext     sqlx.ExtContext
	dialect Dialect
}

type organizationRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Domain    sql.NullString `db:"domain"`
	Plan      string         `db:"plan"`
	Settings  sql.NullString `db:"settings"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r *organizationsRepo) CreateOrganization(ctx context.Context, o domain.Organization) error {
	if o.ID == "" {
		o.ID = idx.New().String()
	}
	if o.Plan == "" {
		o.Plan = domain.DefaultPlan
	}
	if o.Settings == nil {
		o.Settings = map[string]any{}
	}
	settings, err := encodeJSON(o.Settings)
	if err != nil {
		return err
	}
	created := orNow(o.CreatedAt)

	_, err = r.ext.ExecContext(ctx, r.ext.Rebind(`
INSERT INTO organizations (id, name, domain, plan, settings, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`),
		o.ID, o.Name, mapStringNull(o.Domain), o.Plan, settings, created, created,
	)
	return mapInsert(r.dialect, err)
}

func (r *organizationsRepo) GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error) {
	var row organizationRow
	err := sqlx.GetContext(ctx, r.ext, &row, r.ext.Rebind(`
SELECT id, name, domain, plan, settings, created_at, updated_at
FROM organizations WHERE id = ?`), id)
	if err != nil {
		return domain.Organization{}, mapNotFound(err)
	}
	return domain.Organization{
		ID:        row.ID,
		Name:      row.Name,
		Domain:    row.Domain.String,
		Plan:      row.Plan,
		Settings:  decodeJSON(row.Settings),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}, nil
}

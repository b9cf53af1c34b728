// Package sqlstore holds the repositories shared by the sqlite and postgres
// drivers. Queries are written with ? placeholders and rebound per driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/store"
	"github.com/jmoiron/sqlx"
)

// Dialect carries the few behaviours that differ between drivers.
type Dialect struct {
	// IsUniqueViolation reports whether err is a unique constraint failure.
	IsUniqueViolation func(error) bool
}

// Pool sizes the database/sql connection pool. Zero fields keep the
// database/sql defaults. database/sql has no minimum pool size, so MaxIdle
// is the number of connections kept open between requests.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	IdleTimeout time.Duration
}

// Apply sets the pool limits on db.
func (p Pool) Apply(db *sqlx.DB) {
	if p.MaxOpen > 0 {
		db.SetMaxOpenConns(p.MaxOpen)
	}
	if p.MaxIdle > 0 {
		db.SetMaxIdleConns(p.MaxIdle)
	}
	if p.IdleTimeout > 0 {
		db.SetConnMaxIdleTime(p.IdleTimeout)
	}
}

// Store implements everything in store.Store except ApplyMigrations, which
// each driver provides with its own embedded migration set.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

func New(db *sqlx.DB, dialect Dialect) *Store {
	if dialect.IsUniqueViolation == nil {
		dialect.IsUniqueViolation = func(error) bool { return false }
	}
	return &Store{db: db, dialect: dialect}
}

// DB exposes the handle for migration drivers.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txStore{tx: tx, dialect: s.dialect}, nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users { return &usersRepo{ext: s.db, dialect: s.dialect} }
func (s *Store) Organizations() store.Organizations {
	return &organizationsRepo{ext: s.db, dialect: s.dialect}
}
func (s *Store) Memberships() store.Memberships {
	return &membershipsRepo{ext: s.db, dialect: s.dialect}
}
func (s *Store) Sessions() store.Sessions       { return &sessionsRepo{ext: s.db, dialect: s.dialect} }
func (s *Store) BackupCodes() store.BackupCodes { return &backupCodesRepo{ext: s.db} }
func (s *Store) AuditLog() store.AuditLog       { return &auditLogRepo{ext: s.db} }
func (s *Store) SSOStates() store.SSOStates     { return &ssoStatesRepo{ext: s.db, dialect: s.dialect} }

type txStore struct {
	tx      *sqlx.Tx
	dialect Dialect
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the caller commits or rolls back and the outer DB stays open.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(context.Context) error { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }

func (t *txStore) WithTx(context.Context, func(tx store.Tx) error) error { return sql.ErrTxDone }

// ApplyMigrations is a no-op; migrations run before any transaction starts.
func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Users() store.Users { return &usersRepo{ext: t.tx, dialect: t.dialect} }
func (t *txStore) Organizations() store.Organizations {
	return &organizationsRepo{ext: t.tx, dialect: t.dialect}
}
func (t *txStore) Memberships() store.Memberships {
	return &membershipsRepo{ext: t.tx, dialect: t.dialect}
}
func (t *txStore) Sessions() store.Sessions       { return &sessionsRepo{ext: t.tx, dialect: t.dialect} }
func (t *txStore) BackupCodes() store.BackupCodes { return &backupCodesRepo{ext: t.tx} }
func (t *txStore) AuditLog() store.AuditLog       { return &auditLogRepo{ext: t.tx} }
func (t *txStore) SSOStates() store.SSOStates     { return &ssoStatesRepo{ext: t.tx, dialect: t.dialect} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapInsert translates unique violations into store.ErrAlreadyExists.
func mapInsert(d Dialect, err error) error {
	if err != nil && d.IsUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// requireRow maps an update that touched nothing to store.ErrNotFound.
func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

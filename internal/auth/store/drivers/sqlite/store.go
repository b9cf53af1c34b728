package sqlite

import (
	"context"
	"errors"
	"strings"

	"github.com/aussiebroadwan/voltex/internal/auth/store/drivers/sqlstore"
	"github.com/jmoiron/sqlx"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type Store struct {
	*sqlstore.Store
	db     *sqlx.DB
	memory bool
}

// NewStore opens a SQLite database. An in-memory DSN is pinned to a single
// connection, since every new connection would otherwise see an empty database.
func NewStore(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	memory := isMemory(dsn)
	if memory {
		db.SetMaxOpenConns(1)
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		Store:  sqlstore.New(db, sqlstore.Dialect{IsUniqueViolation: isUniqueViolation}),
		db:     db,
		memory: memory,
	}, nil
}

// SetPool applies pool limits to a file-backed database. An in-memory
// database keeps its single connection.
func (s *Store) SetPool(p sqlstore.Pool) {
	if s.memory {
		return
	}
	p.Apply(s.db)
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func isUniqueViolation(err error) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	// Connections without extended result codes only report the primary code.
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

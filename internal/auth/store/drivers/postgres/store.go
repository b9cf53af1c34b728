package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/aussiebroadwan/voltex/internal/auth/store/drivers/sqlstore"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const uniqueViolation = "23505"

// Config describes the connection pool. The pool is built once at startup and
// shared by every request handler.
type Config struct {
	Host        string
	Port        int
	Name        string
	User        string
	Password    string
	SSLMode     string
	Pool        sqlstore.Pool
}

// DSN renders the pgx connection URL for cfg.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type Store struct {
	*sqlstore.Store
	db *sqlx.DB
}

// NewStore opens the pool and verifies connectivity before returning.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sqlx.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, err
	}

	cfg.Pool.Apply(db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping %s: %w", cfg.Host, err)
	}
	return New(db), nil
}

// New wraps an existing handle. The handle's driver name must bind $n
// placeholders ("pgx" or "postgres").
func New(db *sqlx.DB) *Store {
	return &Store{
		Store: sqlstore.New(db, sqlstore.Dialect{IsUniqueViolation: isUniqueViolation}),
		db:    db,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Package pg implements the credential and user-management stores on
// PostgreSQL via database/sql with the pgx stdlib driver.
package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"aulavirtual.org/internal/auth"
	"aulavirtual.org/internal/users"
)

const pgErrUniqueViolation = "23505"

// Store holds the shared connection pool.
type Store struct {
	db *sql.DB
}

var (
	_ auth.Store  = (*Store)(nil)
	_ users.Store = (*Store)(nil)
)

// Open connects to PostgreSQL with pool settings tuned for the API workload.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection pool (used by tests).
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// conflictFromPg maps a unique-violation constraint to the colliding field.
func conflictFromPg(err error) error {
	pgErr, ok := maybePgError(err)
	if !ok || pgErr.Code != pgErrUniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_username_key":
		return &auth.ConflictError{Field: "username"}
	case "users_email_key":
		return &auth.ConflictError{Field: "email"}
	case "users_user_code_key":
		return &auth.ConflictError{Field: "userCode"}
	}
	return &auth.ConflictError{Field: "user"}
}

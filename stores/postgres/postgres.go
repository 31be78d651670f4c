// Package postgres implements the store interfaces on PostgreSQL using
// database/sql over the pgx stdlib driver. The schema is owned by the
// embedded goose migrations; call RunMigrations before first use.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	authbackend "github.com/pw2712gz/auth-backend"
	"github.com/pw2712gz/auth-backend/stores/postgres/migrations"
)

// Store implements authbackend.Store on a *sql.DB.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New wraps an open database handle. The caller owns the handle's
// lifecycle and pooling configuration.
func New(db *sql.DB) *Store {
	return NewWithClock(db, time.Now)
}

// NewWithClock wraps db with an injected clock, used by tests to drive
// token expiry inside Redeem.
func NewWithClock(db *sql.DB, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, now: now}
}

// Open connects via the pgx stdlib driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// RunMigrations applies the embedded schema migrations with goose.
func (s *Store) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

func (s *Store) Users() authbackend.UserStore                 { return &userStore{s} }
func (s *Store) RefreshTokens() authbackend.RefreshTokenStore { return &refreshStore{s} }
func (s *Store) ResetTokens() authbackend.ResetTokenStore     { return &resetStore{s} }

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	authbackend "github.com/pw2712gz/auth-backend"
	"github.com/pw2712gz/auth-backend/internal/dbx"
)

// pgUniqueViolation is the SQLSTATE for a unique constraint failure.
const pgUniqueViolation = "23505"

type userStore struct {
	s *Store
}

func scanUser(row *sql.Row) (*authbackend.User, error) {
	var u authbackend.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Enabled, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authbackend.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return &u, nil
}

func (u *userStore) FindByEmail(ctx context.Context, email string) (*authbackend.User, error) {
	return scanUser(u.s.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, password_hash, enabled, created_at
		 FROM users WHERE email = $1`, email))
}

func (u *userStore) FindByID(ctx context.Context, id string) (*authbackend.User, error) {
	return scanUser(u.s.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, password_hash, enabled, created_at
		 FROM users WHERE id = $1`, id))
}

func (u *userStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := u.s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return exists, nil
}

func (u *userStore) Create(ctx context.Context, user *authbackend.User) error {
	_, err := u.s.db.ExecContext(ctx,
		`INSERT INTO users (id, first_name, last_name, email, password_hash, enabled, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.Enabled, user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return authbackend.ErrEmailTaken
		}
		return fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return nil
}

func (u *userStore) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	return updatePasswordHash(ctx, u.s.db, userID, newHash)
}

func updatePasswordHash(ctx context.Context, db dbx.DBTX, userID, newHash string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1 WHERE id = $2`, newHash, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return authbackend.ErrUserNotFound
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	authbackend "github.com/pw2712gz/auth-backend"
)

type refreshStore struct {
	s *Store
}

func (r *refreshStore) Save(ctx context.Context, token *authbackend.RefreshToken) error {
	_, err := r.s.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (token, user_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		token.Token, token.UserID, token.CreatedAt, token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *refreshStore) FindByToken(ctx context.Context, token string) (*authbackend.RefreshToken, error) {
	var t authbackend.RefreshToken
	err := r.s.db.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at
		 FROM refresh_tokens WHERE token = $1`, token).
		Scan(&t.Token, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authbackend.ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return &t, nil
}

func (r *refreshStore) Delete(ctx context.Context, token string) error {
	if _, err := r.s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *refreshStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return removed, nil
}

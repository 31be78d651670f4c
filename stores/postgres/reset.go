package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	authbackend "github.com/pw2712gz/auth-backend"
	"github.com/pw2712gz/auth-backend/internal/dbx"
)

type resetStore struct {
	s *Store
}

func (r *resetStore) Save(ctx context.Context, token *authbackend.PasswordResetToken) error {
	_, err := r.s.db.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (token, user_id, created_at, expires_at, used)
		 VALUES ($1, $2, $3, $4, $5)`,
		token.Token, token.UserID, token.CreatedAt, token.ExpiresAt, token.Used,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *resetStore) FindByToken(ctx context.Context, token string) (*authbackend.PasswordResetToken, error) {
	var t authbackend.PasswordResetToken
	err := r.s.db.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at, used
		 FROM password_reset_tokens WHERE token = $1`, token).
		Scan(&t.Token, &t.UserID, &t.CreatedAt, &t.ExpiresAt, &t.Used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authbackend.ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return &t, nil
}

func (r *resetStore) Delete(ctx context.Context, token string) error {
	if _, err := r.s.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *resetStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.s.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE expires_at <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return removed, nil
}

// Redeem locks the token row FOR UPDATE, so two concurrent redemptions
// of the same token serialize in the database and only the first can
// commit the credential change and the used flag.
func (r *resetStore) Redeem(ctx context.Context, token, newPasswordHash string) (authbackend.RedeemOutcome, *authbackend.User, error) {
	outcome := authbackend.RedeemNotFound
	var user *authbackend.User

	err := dbx.WithTx(ctx, r.s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var t authbackend.PasswordResetToken
		err := tx.QueryRowContext(ctx,
			`SELECT token, user_id, expires_at, used
			 FROM password_reset_tokens WHERE token = $1 FOR UPDATE`, token).
			Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.Used)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				outcome = authbackend.RedeemNotFound
				return nil
			}
			return err
		}

		if t.Used {
			outcome = authbackend.RedeemAlreadyUsed
			return nil
		}

		if !r.s.now().Before(t.ExpiresAt) {
			outcome = authbackend.RedeemExpired
			_, err := tx.ExecContext(ctx,
				`DELETE FROM password_reset_tokens WHERE token = $1`, token)
			return err
		}

		var owner authbackend.User
		err = tx.QueryRowContext(ctx,
			`SELECT id, first_name, last_name, email, password_hash, enabled, created_at
			 FROM users WHERE id = $1 FOR UPDATE`, t.UserID).
			Scan(&owner.ID, &owner.FirstName, &owner.LastName, &owner.Email,
				&owner.PasswordHash, &owner.Enabled, &owner.CreatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				outcome = authbackend.RedeemOrphaned
				return nil
			}
			return err
		}

		if err := updatePasswordHash(ctx, tx, owner.ID, newPasswordHash); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE password_reset_tokens SET used = TRUE WHERE token = $1`, token); err != nil {
			return err
		}

		owner.PasswordHash = newPasswordHash
		outcome = authbackend.RedeemOK
		user = &owner
		return nil
	})
	if err != nil {
		return authbackend.RedeemNotFound, nil, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}

	return outcome, user, nil
}

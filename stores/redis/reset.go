package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	authbackend "github.com/pw2712gz/auth-backend"
)

type resetStore struct {
	s *Store
}

func (r *resetStore) Save(ctx context.Context, token *authbackend.PasswordResetToken) error {
	data, err := encodeResetToken(token)
	if err != nil {
		return err
	}
	if err := r.s.redis.Set(ctx, r.s.resetKey(token.Token), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *resetStore) FindByToken(ctx context.Context, token string) (*authbackend.PasswordResetToken, error) {
	data, err := r.s.redis.Get(ctx, r.s.resetKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authbackend.ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return decodeResetToken(token, data)
}

func (r *resetStore) Delete(ctx context.Context, token string) error {
	if err := r.s.redis.Del(ctx, r.s.resetKey(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *resetStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.s.sweepKeys(ctx, r.s.prefix+"prt:*", cutoff, func(value string, data []byte) (time.Time, error) {
		token, err := decodeResetToken(value, data)
		if err != nil {
			return time.Time{}, err
		}
		return token.ExpiresAt, nil
	})
}

// Redeem runs the check-and-consume sequence inside a WATCH/MULTI
// transaction on the token key. Two concurrent redemptions of the same
// token serialize here: the loser's EXEC fails, it retries, and then
// observes the used flag.
func (r *resetStore) Redeem(ctx context.Context, token, newPasswordHash string) (authbackend.RedeemOutcome, *authbackend.User, error) {
	key := r.s.resetKey(token)

	const maxRetries = 4
	for i := 0; i < maxRetries; i++ {
		var (
			outcome authbackend.RedeemOutcome
			user    *authbackend.User
		)

		err := r.s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					outcome = authbackend.RedeemNotFound
					return nil
				}
				return err
			}

			record, err := decodeResetToken(token, data)
			if err != nil {
				outcome = authbackend.RedeemNotFound
				return nil
			}

			if record.Used {
				outcome = authbackend.RedeemAlreadyUsed
				return nil
			}

			if !r.s.now().Before(record.ExpiresAt) {
				outcome = authbackend.RedeemExpired
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			userData, err := tx.Get(ctx, r.s.userKey(record.UserID)).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					outcome = authbackend.RedeemOrphaned
					return nil
				}
				return err
			}
			owner, err := decodeUser(userData)
			if err != nil {
				return err
			}
			owner.PasswordHash = newPasswordHash

			encodedUser, err := encodeUser(owner)
			if err != nil {
				return err
			}

			record.Used = true
			encodedToken, err := encodeResetToken(record)
			if err != nil {
				return err
			}

			// Credential and used flag commit in one MULTI.
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, r.s.userKey(owner.ID), encodedUser, 0)
				pipe.Set(ctx, key, encodedToken, 0)
				return nil
			})
			if err != nil {
				return err
			}

			outcome = authbackend.RedeemOK
			user = owner
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return authbackend.RedeemNotFound, nil, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
		}

		return outcome, user, nil
	}

	return authbackend.RedeemNotFound, nil, fmt.Errorf("%w: reset redemption contention", authbackend.ErrStoreUnavailable)
}

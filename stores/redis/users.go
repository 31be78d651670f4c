package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	authbackend "github.com/pw2712gz/auth-backend"
)

type userStore struct {
	s *Store
}

func (u *userStore) FindByEmail(ctx context.Context, email string) (*authbackend.User, error) {
	id, err := u.s.redis.Get(ctx, u.s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authbackend.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return u.FindByID(ctx, id)
}

func (u *userStore) FindByID(ctx context.Context, id string) (*authbackend.User, error) {
	data, err := u.s.redis.Get(ctx, u.s.userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authbackend.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return decodeUser(data)
}

func (u *userStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := u.s.redis.Exists(ctx, u.s.emailKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

func (u *userStore) Create(ctx context.Context, user *authbackend.User) error {
	data, err := encodeUser(user)
	if err != nil {
		return err
	}

	// The email index doubles as the uniqueness guard: SETNX reserves
	// the address before the record is written, so a concurrent insert
	// of the same email loses here.
	reserved, err := u.s.redis.SetNX(ctx, u.s.emailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	if !reserved {
		return authbackend.ErrEmailTaken
	}

	if err := u.s.redis.Set(ctx, u.s.userKey(user.ID), data, 0).Err(); err != nil {
		// Roll the reservation back so the email is not burned.
		_ = u.s.redis.Del(ctx, u.s.emailKey(user.Email)).Err()
		return fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}

	return nil
}

func (u *userStore) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	key := u.s.userKey(userID)

	const maxRetries = 4
	for i := 0; i < maxRetries; i++ {
		err := u.s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			user, err := decodeUser(data)
			if err != nil {
				return err
			}
			user.PasswordHash = newHash

			updated, err := encodeUser(user)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, 0)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, redis.Nil) {
			return authbackend.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
		}
		return nil
	}

	return fmt.Errorf("%w: password update contention", authbackend.ErrStoreUnavailable)
}

package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	authbackend "github.com/pw2712gz/auth-backend"
)

type refreshStore struct {
	s *Store
}

func (r *refreshStore) Save(ctx context.Context, token *authbackend.RefreshToken) error {
	data, err := encodeRefreshToken(token)
	if err != nil {
		return err
	}
	// No Redis TTL: the row must outlive its expiry instant so that
	// validation and sweeps can observe and remove it themselves.
	if err := r.s.redis.Set(ctx, r.s.refreshKey(token.Token), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *refreshStore) FindByToken(ctx context.Context, token string) (*authbackend.RefreshToken, error) {
	data, err := r.s.redis.Get(ctx, r.s.refreshKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authbackend.ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return decodeRefreshToken(token, data)
}

func (r *refreshStore) Delete(ctx context.Context, token string) error {
	if err := r.s.redis.Del(ctx, r.s.refreshKey(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *refreshStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.s.sweepKeys(ctx, r.s.prefix+"rt:*", cutoff, func(value string, data []byte) (time.Time, error) {
		token, err := decodeRefreshToken(value, data)
		if err != nil {
			return time.Time{}, err
		}
		return token.ExpiresAt, nil
	})
}

// sweepKeys scans pattern and deletes every record whose expiry is at or
// before cutoff. Records that fail to decode are skipped, not deleted.
func (s *Store) sweepKeys(ctx context.Context, pattern string, cutoff time.Time, expiryOf func(value string, data []byte) (time.Time, error)) (int64, error) {
	var removed int64

	iter := s.redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		data, err := s.redis.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return removed, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
		}

		expiry, err := expiryOf(key, data)
		if err != nil {
			continue
		}
		if expiry.After(cutoff) {
			continue
		}

		n, err := s.redis.Del(ctx, key).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: %v", authbackend.ErrStoreUnavailable, err)
	}

	return removed, nil
}

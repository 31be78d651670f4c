package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authbackend "github.com/pw2712gz/auth-backend"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Unix(1_700_000_000, 0)
	store := NewWithOptions(client, "", func() time.Time { return now })
	return store, &now
}

func seedUser(t *testing.T, s *Store) *authbackend.User {
	t.Helper()
	user := &authbackend.User{
		ID:           "u1",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "old-hash",
		Enabled:      true,
		CreatedAt:    time.UnixMilli(1_700_000_000_000),
	}
	require.NoError(t, s.Users().Create(context.Background(), user))
	return user
}

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seedUser(t, s)

	got, err := s.Users().FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Equal(t, "Lovelace", got.LastName)
	assert.True(t, got.Enabled)
	assert.Equal(t, time.UnixMilli(1_700_000_000_000).UnixMilli(), got.CreatedAt.UnixMilli())

	exists, err := s.Users().ExistsByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = s.Users().FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, authbackend.ErrUserNotFound)
}

func TestCreateDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seedUser(t, s)

	err := s.Users().Create(ctx, &authbackend.User{ID: "u2", Email: "ada@example.com"})
	assert.ErrorIs(t, err, authbackend.ErrEmailTaken)
}

func TestUpdatePasswordHash(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seedUser(t, s)

	require.NoError(t, s.Users().UpdatePasswordHash(ctx, "u1", "new-hash"))

	got, err := s.Users().FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	err = s.Users().UpdatePasswordHash(ctx, "missing", "hash")
	assert.ErrorIs(t, err, authbackend.ErrUserNotFound)
}

func TestRefreshTokenPersistsPastExpiry(t *testing.T) {
	ctx := context.Background()
	s, now := newTestStore(t)

	require.NoError(t, s.RefreshTokens().Save(ctx, &authbackend.RefreshToken{
		Token:     "rt-1",
		UserID:    "u1",
		CreatedAt: *now,
		ExpiresAt: now.Add(time.Minute),
	}))

	// An expired row must still be readable until something removes it.
	*now = now.Add(2 * time.Minute)
	got, err := s.RefreshTokens().FindByToken(ctx, "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.ExpiresAt.Before(*now))
}

func TestRefreshSweep(t *testing.T) {
	ctx := context.Background()
	s, now := newTestStore(t)

	for _, tc := range []struct {
		value  string
		expiry time.Time
	}{
		{"old-1", now.Add(-10 * time.Minute)},
		{"old-2", now.Add(-time.Minute)},
		{"live", now.Add(10 * time.Minute)},
	} {
		require.NoError(t, s.RefreshTokens().Save(ctx, &authbackend.RefreshToken{
			Token:     tc.value,
			UserID:    "u1",
			ExpiresAt: tc.expiry,
		}))
	}

	removed, err := s.RefreshTokens().DeleteExpiredBefore(ctx, *now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	_, err = s.RefreshTokens().FindByToken(ctx, "live")
	assert.NoError(t, err)
	_, err = s.RefreshTokens().FindByToken(ctx, "old-1")
	assert.ErrorIs(t, err, authbackend.ErrTokenNotFound)
}

func TestRedeemHappyPath(t *testing.T) {
	ctx := context.Background()
	s, now := newTestStore(t)
	seedUser(t, s)

	require.NoError(t, s.ResetTokens().Save(ctx, &authbackend.PasswordResetToken{
		Token:     "reset-1",
		UserID:    "u1",
		CreatedAt: *now,
		ExpiresAt: now.Add(15 * time.Minute),
	}))

	outcome, user, err := s.ResetTokens().Redeem(ctx, "reset-1", "new-hash")
	require.NoError(t, err)
	assert.Equal(t, authbackend.RedeemOK, outcome)
	require.NotNil(t, user)
	assert.Equal(t, "ada@example.com", user.Email)

	stored, err := s.Users().FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", stored.PasswordHash)

	// Token row survives redemption with the used flag set.
	tok, err := s.ResetTokens().FindByToken(ctx, "reset-1")
	require.NoError(t, err)
	assert.True(t, tok.Used)
}

func TestRedeemSecondCallFails(t *testing.T) {
	ctx := context.Background()
	s, now := newTestStore(t)
	seedUser(t, s)

	require.NoError(t, s.ResetTokens().Save(ctx, &authbackend.PasswordResetToken{
		Token:     "reset-1",
		UserID:    "u1",
		ExpiresAt: now.Add(15 * time.Minute),
	}))

	outcome, _, err := s.ResetTokens().Redeem(ctx, "reset-1", "hash-a")
	require.NoError(t, err)
	require.Equal(t, authbackend.RedeemOK, outcome)

	outcome, _, err = s.ResetTokens().Redeem(ctx, "reset-1", "hash-b")
	require.NoError(t, err)
	assert.Equal(t, authbackend.RedeemAlreadyUsed, outcome)

	stored, err := s.Users().FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "hash-a", stored.PasswordHash)
}

func TestRedeemExpiredDeletesRow(t *testing.T) {
	ctx := context.Background()
	s, now := newTestStore(t)
	seedUser(t, s)

	require.NoError(t, s.ResetTokens().Save(ctx, &authbackend.PasswordResetToken{
		Token:     "reset-1",
		UserID:    "u1",
		ExpiresAt: now.Add(15 * time.Minute),
	}))

	*now = now.Add(16 * time.Minute)

	outcome, _, err := s.ResetTokens().Redeem(ctx, "reset-1", "hash")
	require.NoError(t, err)
	assert.Equal(t, authbackend.RedeemExpired, outcome)

	_, err = s.ResetTokens().FindByToken(ctx, "reset-1")
	assert.ErrorIs(t, err, authbackend.ErrTokenNotFound)
}

func TestRedeemUnknownAndOrphaned(t *testing.T) {
	ctx := context.Background()
	s, now := newTestStore(t)

	outcome, _, err := s.ResetTokens().Redeem(ctx, "missing", "hash")
	require.NoError(t, err)
	assert.Equal(t, authbackend.RedeemNotFound, outcome)

	require.NoError(t, s.ResetTokens().Save(ctx, &authbackend.PasswordResetToken{
		Token:     "reset-1",
		UserID:    "ghost",
		ExpiresAt: now.Add(15 * time.Minute),
	}))

	outcome, user, err := s.ResetTokens().Redeem(ctx, "reset-1", "hash")
	require.NoError(t, err)
	assert.Equal(t, authbackend.RedeemOrphaned, outcome)
	assert.Nil(t, user)
}

func TestResetSweepKeepsRecentRows(t *testing.T) {
	ctx := context.Background()
	s, now := newTestStore(t)

	// Expired an hour ago: younger than a 24h purge age, must survive.
	require.NoError(t, s.ResetTokens().Save(ctx, &authbackend.PasswordResetToken{
		Token:     "recent",
		UserID:    "u1",
		ExpiresAt: now.Add(-time.Hour),
	}))
	// Expired two days ago: older than the purge age, must go.
	require.NoError(t, s.ResetTokens().Save(ctx, &authbackend.PasswordResetToken{
		Token:     "ancient",
		UserID:    "u1",
		Used:      true,
		ExpiresAt: now.Add(-48 * time.Hour),
	}))

	cutoff := now.Add(-24 * time.Hour)
	removed, err := s.ResetTokens().DeleteExpiredBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = s.ResetTokens().FindByToken(ctx, "recent")
	assert.NoError(t, err)
	_, err = s.ResetTokens().FindByToken(ctx, "ancient")
	assert.ErrorIs(t, err, authbackend.ErrTokenNotFound)
}

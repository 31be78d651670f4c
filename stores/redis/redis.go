package redisstore

import (
	"time"

	"github.com/redis/go-redis/v9"

	authbackend "github.com/pw2712gz/auth-backend"
)

// DefaultPrefix namespaces every key written by this store.
const DefaultPrefix = "ab:"

// Store implements authbackend.Store on a Redis client.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// New creates a Store with the default key prefix and wall clock.
func New(client redis.UniversalClient) *Store {
	return &Store{
		redis:  client,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
}

// NewWithOptions creates a Store with a custom prefix and clock. A nil
// clock falls back to the wall clock.
func NewWithOptions(client redis.UniversalClient, prefix string, now func() time.Time) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		now:    now,
	}
}

func (s *Store) Users() authbackend.UserStore                 { return &userStore{s} }
func (s *Store) RefreshTokens() authbackend.RefreshTokenStore { return &refreshStore{s} }
func (s *Store) ResetTokens() authbackend.ResetTokenStore     { return &resetStore{s} }

func (s *Store) userKey(id string) string       { return s.prefix + "user:" + id }
func (s *Store) emailKey(email string) string   { return s.prefix + "uemail:" + email }
func (s *Store) refreshKey(token string) string { return s.prefix + "rt:" + token }
func (s *Store) resetKey(token string) string   { return s.prefix + "prt:" + token }

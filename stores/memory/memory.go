// Package memory provides an in-process implementation of the store
// interfaces. It backs tests and single-node development setups; state
// is lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	authbackend "github.com/pw2712gz/auth-backend"
)

// Store keeps every collection behind one mutex. Individual operations
// are linearizable; Redeem performs its read-modify-write under the
// same lock, which gives it the required atomicity.
type Store struct {
	mu           sync.RWMutex
	usersByID    map[string]*authbackend.User
	usersByEmail map[string]string
	refresh      map[string]*authbackend.RefreshToken
	reset        map[string]*authbackend.PasswordResetToken

	now func() time.Time
}

// New creates an empty store using the wall clock.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty store with an injected clock, used by
// tests to drive token expiry.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		usersByID:    make(map[string]*authbackend.User),
		usersByEmail: make(map[string]string),
		refresh:      make(map[string]*authbackend.RefreshToken),
		reset:        make(map[string]*authbackend.PasswordResetToken),
		now:          now,
	}
}

func (s *Store) Users() authbackend.UserStore                 { return (*userStore)(s) }
func (s *Store) RefreshTokens() authbackend.RefreshTokenStore { return (*refreshStore)(s) }
func (s *Store) ResetTokens() authbackend.ResetTokenStore     { return (*resetStore)(s) }

type userStore Store

func (s *userStore) FindByEmail(_ context.Context, email string) (*authbackend.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, authbackend.ErrUserNotFound
	}
	return cloneUser(s.usersByID[id]), nil
}

func (s *userStore) FindByID(_ context.Context, id string) (*authbackend.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByID[id]
	if !ok {
		return nil, authbackend.ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (s *userStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.usersByEmail[email]
	return ok, nil
}

func (s *userStore) Create(_ context.Context, user *authbackend.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usersByEmail[user.Email]; taken {
		return authbackend.ErrEmailTaken
	}

	stored := cloneUser(user)
	s.usersByID[stored.ID] = stored
	s.usersByEmail[stored.Email] = stored.ID
	return nil
}

func (s *userStore) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByID[userID]
	if !ok {
		return authbackend.ErrUserNotFound
	}
	user.PasswordHash = newHash
	return nil
}

type refreshStore Store

func (s *refreshStore) Save(_ context.Context, token *authbackend.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *token
	s.refresh[cp.Token] = &cp
	return nil
}

func (s *refreshStore) FindByToken(_ context.Context, token string) (*authbackend.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.refresh[token]
	if !ok {
		return nil, authbackend.ErrTokenNotFound
	}
	cp := *stored
	return &cp, nil
}

func (s *refreshStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.refresh, token)
	return nil
}

func (s *refreshStore) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for value, token := range s.refresh {
		if !token.ExpiresAt.After(cutoff) {
			delete(s.refresh, value)
			removed++
		}
	}
	return removed, nil
}

type resetStore Store

func (s *resetStore) Save(_ context.Context, token *authbackend.PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *token
	s.reset[cp.Token] = &cp
	return nil
}

func (s *resetStore) FindByToken(_ context.Context, token string) (*authbackend.PasswordResetToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.reset[token]
	if !ok {
		return nil, authbackend.ErrTokenNotFound
	}
	cp := *stored
	return &cp, nil
}

func (s *resetStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.reset, token)
	return nil
}

func (s *resetStore) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for value, token := range s.reset {
		if !token.ExpiresAt.After(cutoff) {
			delete(s.reset, value)
			removed++
		}
	}
	return removed, nil
}

func (s *resetStore) Redeem(_ context.Context, token, newPasswordHash string) (authbackend.RedeemOutcome, *authbackend.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.reset[token]
	if !ok {
		return authbackend.RedeemNotFound, nil, nil
	}
	if stored.Used {
		return authbackend.RedeemAlreadyUsed, nil, nil
	}
	if !s.now().Before(stored.ExpiresAt) {
		delete(s.reset, token)
		return authbackend.RedeemExpired, nil, nil
	}

	user, ok := s.usersByID[stored.UserID]
	if !ok {
		return authbackend.RedeemOrphaned, nil, nil
	}

	user.PasswordHash = newPasswordHash
	stored.Used = true
	return authbackend.RedeemOK, cloneUser(user), nil
}

func cloneUser(u *authbackend.User) *authbackend.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

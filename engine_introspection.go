package authbackend

import (
	"context"
	"errors"
	"fmt"
)

// CurrentUser resolves the account behind a raw access token. The token
// is verified (signature, issuer, expiry) and its subject looked up.
func (e *Engine) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSubject, err)
	}

	user, err := e.store.Users().FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return user, nil
}

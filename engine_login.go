package authbackend

import (
	"context"
	"errors"
	"fmt"
)

// Login verifies credentials and mints a fresh access/refresh token pair.
// Unknown emails and wrong passwords both fail with
// [ErrInvalidCredentials] so callers cannot probe for accounts.
func (e *Engine) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	user, err := e.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	ok, err := e.passwordHash.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, email, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if !user.Enabled {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, email, ErrAccountDisabled, nil)
		return nil, ErrAccountDisabled
	}

	e.maybeUpgradeHash(ctx, user, password)

	accessToken, expiresAt, err := e.jwtManager.Issue(user.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, err := e.CreateRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, user.Email, nil, nil)
	e.logInfo(ctx, "login successful", "email", user.Email)

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		Email:        user.Email,
	}, nil
}

// maybeUpgradeHash transparently re-hashes the password when the stored
// hash predates a parameter bump. Failures are logged, never surfaced;
// the login already succeeded.
func (e *Engine) maybeUpgradeHash(ctx context.Context, user *User, password string) {
	upgrade, err := e.passwordHash.NeedsUpgrade(user.PasswordHash)
	if err != nil || !upgrade {
		return
	}

	newHash, err := e.passwordHash.Hash(password)
	if err != nil {
		return
	}
	if err := e.store.Users().UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		e.logError(ctx, "password hash upgrade failed", "email", user.Email, "err", err)
		return
	}
	user.PasswordHash = newHash
}

package authbackend

import (
	"context"
	"errors"
	"fmt"

	"github.com/pw2712gz/auth-backend/internal"
)

// CreateRefreshToken mints and persists a new opaque refresh token for user.
func (e *Engine) CreateRefreshToken(ctx context.Context, user *User) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	value, err := internal.NewOpaqueToken()
	if err != nil {
		return "", err
	}

	now := e.now()
	token := &RefreshToken{
		Token:     value,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(e.config.Refresh.TTL),
	}

	if err := e.store.RefreshTokens().Save(ctx, token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return value, nil
}

// ValidateRefreshToken checks that the token exists and has not expired.
// An expired row is deleted on detection, so a second validation of the
// same value reports not-found rather than expired.
func (e *Engine) ValidateRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	stored, err := e.store.RefreshTokens().FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !e.now().Before(stored.ExpiresAt) {
		if err := e.store.RefreshTokens().Delete(ctx, token); err != nil {
			e.logError(ctx, "expired refresh token delete failed", "err", err)
		}
		return nil, ErrTokenExpired
	}

	return stored, nil
}

// Refresh reissues an access token for email after validating the refresh
// token. The refresh token value is echoed back unchanged; this flow does
// not rotate it.
func (e *Engine) Refresh(ctx context.Context, email, refreshToken string) (*AuthResponse, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	if _, err := e.ValidateRefreshToken(ctx, refreshToken); err != nil {
		e.metricInc(MetricRefreshInvalid)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", email, err, nil)
		return nil, err
	}

	accessToken, expiresAt, err := e.jwtManager.Issue(email)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, "", email, nil, nil)

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		Email:        email,
	}, nil
}

// Logout revokes a refresh token. Revoking an unknown token is a no-op,
// so the operation is idempotent.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if err := e.store.RefreshTokens().Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, "", "", nil, nil)

	return nil
}

// SweepRefreshTokens removes every refresh token already expired at the
// time of the call and returns the number removed.
func (e *Engine) SweepRefreshTokens(ctx context.Context) (int64, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}

	start := e.now()
	removed, err := e.store.RefreshTokens().DeleteExpiredBefore(ctx, start)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if removed > 0 {
		e.metricAdd(MetricRefreshSwept, uint64(removed))
		e.logInfo(ctx, "refresh token sweep", "removed", removed)
	}
	e.emitSweep(ctx, "refresh", removed, e.now().Sub(start))

	return removed, nil
}

package authbackend

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// RequestPasswordReset creates a single-use reset token for the account
// behind email and mails a reset link. An unknown email is silently
// ignored so the endpoint cannot be used to enumerate accounts.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	e.metricInc(MetricResetRequest)

	user, err := e.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditEventResetRequest, true, "", email, nil, func() map[string]string {
				return map[string]string{"known_account": "false"}
			})
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	token, err := e.CreateResetToken(ctx, user)
	if err != nil {
		return err
	}

	if e.mailer != nil {
		link := e.config.FrontendBaseURL + "/reset-password?token=" + token
		if err := e.mailer.SendPasswordReset(ctx, user.Email, user.FirstName, link); err != nil {
			e.logError(ctx, "reset mail failed", "email", user.Email, "err", err)
		}
	}

	e.emitAudit(ctx, auditEventResetRequest, true, user.ID, user.Email, nil, nil)
	e.logInfo(ctx, "password reset requested", "email", user.Email)

	return nil
}

// CreateResetToken mints and persists a single-use reset token for user.
func (e *Engine) CreateResetToken(ctx context.Context, user *User) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	now := e.now()
	token := &PasswordResetToken{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(e.config.PasswordReset.TTL),
		Used:      false,
	}

	if err := e.store.ResetTokens().Save(ctx, token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return token.Token, nil
}

// ResetPassword redeems a reset token and installs the new password.
// Every invalid path (unknown, already used, expired, orphaned) collapses
// to false with a nil error; which one it was is visible only in audit
// events. A non-nil error means the new password was rejected or the
// store failed, not that the token was bad.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) (bool, error) {
	if !e.ready() {
		return false, ErrEngineNotReady
	}

	newHash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return false, err
	}

	outcome, user, err := e.store.ResetTokens().Redeem(ctx, token, newHash)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if outcome != RedeemOK {
		e.metricInc(MetricResetConfirmFailure)
		e.emitAudit(ctx, auditEventResetRejected, false, "", "", redeemOutcomeError(outcome), nil)
		return false, nil
	}

	if e.mailer != nil && user != nil {
		if err := e.mailer.SendPasswordChanged(ctx, user.Email, user.FirstName); err != nil {
			e.logError(ctx, "password changed mail failed", "email", user.Email, "err", err)
		}
	}

	e.metricInc(MetricResetConfirmSuccess)
	e.emitAudit(ctx, auditEventResetConfirm, true, user.ID, user.Email, nil, nil)
	e.logInfo(ctx, "password reset successful", "email", user.Email)

	return true, nil
}

// SweepResetTokens purges reset tokens whose expiry lies further in the
// past than the configured minimum purge age, used or not. Recently
// expired and redeemed rows stay queryable until then.
func (e *Engine) SweepResetTokens(ctx context.Context) (int64, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}

	start := e.now()
	cutoff := start.Add(-e.config.PasswordReset.MinPurgeAge)
	removed, err := e.store.ResetTokens().DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if removed > 0 {
		e.metricAdd(MetricResetSwept, uint64(removed))
		e.logInfo(ctx, "reset token sweep", "removed", removed)
	}
	e.emitSweep(ctx, "reset", removed, e.now().Sub(start))

	return removed, nil
}

// redeemOutcomeError maps a non-success redemption to the sentinel used
// for audit classification.
func redeemOutcomeError(outcome RedeemOutcome) error {
	switch outcome {
	case RedeemAlreadyUsed:
		return ErrTokenUsed
	case RedeemExpired:
		return ErrTokenExpired
	case RedeemOrphaned:
		return ErrUserNotFound
	default:
		return ErrTokenNotFound
	}
}

package authbackend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Register creates a new account and sends a best-effort welcome mail.
// A duplicate email fails with [ErrEmailTaken] and writes nothing.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, errors.New("email must not be empty")
	}

	exists, err := e.store.Users().ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if exists {
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", email, ErrEmailTaken, nil)
		return nil, ErrEmailTaken
	}

	hash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        email,
		PasswordHash: hash,
		Enabled:      true,
		CreatedAt:    e.now(),
	}

	if err := e.store.Users().Create(ctx, user); err != nil {
		// A concurrent registration can win between the existence check
		// and the insert; surface it as the same conflict.
		if errors.Is(err, ErrEmailTaken) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", email, ErrEmailTaken, nil)
			return nil, ErrEmailTaken
		}
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", email, err, nil)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if e.mailer != nil {
		if err := e.mailer.SendWelcome(ctx, user.Email, user.FirstName); err != nil {
			e.logError(ctx, "welcome mail failed", "email", user.Email, "err", err)
		}
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, user.Email, nil, nil)
	e.logInfo(ctx, "user registered", "email", user.Email)

	return user, nil
}

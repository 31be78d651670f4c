package authbackend

import (
	"context"
	"strconv"
	"time"

	"github.com/pw2712gz/auth-backend/internal/logging"
	"github.com/pw2712gz/auth-backend/internal/rate"
	"github.com/pw2712gz/auth-backend/jwt"
	"github.com/pw2712gz/auth-backend/password"
)

// Engine orchestrates the token lifecycle flows. Construct through
// [Builder.Build]; a zero Engine is not usable. All methods are safe for
// concurrent use after Build.
type Engine struct {
	config       Config
	store        Store
	jwtManager   *jwt.Manager
	passwordHash *password.Argon2
	mailer       Mailer
	rateLimiter  *rate.Limiter
	audit        *auditDispatcher
	metrics      *Metrics
	logger       logging.Logger

	// now is the engine clock. Tests substitute it to drive expiry.
	now func() time.Time
}

// Close flushes and stops the audit dispatcher. Call once on shutdown.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// RecordRateLimitHit notes a request rejected by the limiter so the
// rejection reaches metrics and audit. The HTTP middleware calls this;
// the engine itself never rejects.
func (e *Engine) RecordRateLimitHit(ctx context.Context, key, path string) {
	if e == nil {
		return
	}
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitHit, false, "", "", nil, func() map[string]string {
		return map[string]string{"client": key, "path": path}
	})
}

// RateLimiter exposes the limiter built from Config.RateLimit for the
// HTTP middleware. The engine itself never consults it.
func (e *Engine) RateLimiter() *rate.Limiter {
	if e == nil {
		return nil
	}
	return e.rateLimiter
}

// AccessTokenTTL reports the configured access token lifetime.
func (e *Engine) AccessTokenTTL() time.Duration {
	return e.config.JWT.AccessTTL
}

// GuardedPaths returns the exact paths the rate limiter throttles.
func (e *Engine) GuardedPaths() []string {
	return append([]string(nil), e.config.RateLimit.GuardedPaths...)
}

// AuditDropped reports how many audit events were discarded since start.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n uint64) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Add(id, n)
}

// ready reports whether Build wired the mandatory dependencies.
func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.jwtManager != nil && e.passwordHash != nil
}

func (e *Engine) logError(ctx context.Context, msg string, args ...any) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Error(ctx, msg, args...)
}

func (e *Engine) logInfo(ctx context.Context, msg string, args ...any) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Info(ctx, msg, args...)
}

func int64String(n int64) string {
	return strconv.FormatInt(n, 10)
}

package authbackend

import (
	"errors"
	"time"
)

// Config carries every tunable of the engine. Instances are set up once
// before Build and treated as immutable afterwards.
type Config struct {
	JWT           JWTConfig
	Refresh       RefreshConfig
	PasswordReset PasswordResetConfig
	Password      PasswordConfig
	RateLimit     RateLimitConfig
	Sweep         SweepConfig
	Audit         AuditConfig
	Metrics       MetricsConfig

	// FrontendBaseURL is the base used when composing password-reset links
	// sent by mail, e.g. "https://app.example.com".
	FrontendBaseURL string
}

// JWTConfig configures the access token issuer.
type JWTConfig struct {
	// AccessTTL must be positive; Build fails otherwise. This is a fatal
	// startup-class condition, not a per-request one.
	AccessTTL     time.Duration
	Issuer        string
	SigningMethod string // "ed25519" (default) or "hs256"
	PrivateKey    []byte
	PublicKey     []byte
}

// RefreshConfig configures the refresh token lifecycle.
type RefreshConfig struct {
	TTL time.Duration // default 30 days
}

// PasswordResetConfig configures the single-use reset token lifecycle.
type PasswordResetConfig struct {
	TTL time.Duration // default 15 minutes
	// MinPurgeAge keeps used and expired rows queryable for forensic
	// inspection before the sweep removes them. Default 24h.
	MinPurgeAge time.Duration
}

// PasswordConfig carries argon2id parameters.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	MaxRequests int           // default 10
	Window      time.Duration // default 60s
	// GuardedPaths lists the exact, case-sensitive paths the limiter
	// throttles. Requests to any other path bypass the counters entirely.
	GuardedPaths []string
}

// SweepConfig configures the two periodic cleanup loops.
type SweepConfig struct {
	RefreshInterval time.Duration // default 1 hour
	ResetInterval   time.Duration // default 1 hour
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultGuardedPaths matches the four endpoints that mint or consume
// credentials.
var DefaultGuardedPaths = []string{
	"/api/auth/register",
	"/api/auth/login",
	"/api/auth/forgot-password",
	"/api/auth/reset-password",
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			Issuer:        "auth-backend",
			SigningMethod: "ed25519",
		},
		Refresh: RefreshConfig{
			TTL: 30 * 24 * time.Hour,
		},
		PasswordReset: PasswordResetConfig{
			TTL:         15 * time.Minute,
			MinPurgeAge: 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		RateLimit: RateLimitConfig{
			MaxRequests:  10,
			Window:       60 * time.Second,
			GuardedPaths: DefaultGuardedPaths,
		},
		Sweep: SweepConfig{
			RefreshInterval: time.Hour,
			ResetInterval:   time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.JWT.AccessTTL <= 0 {
		return errors.New("jwt access TTL must be set and positive")
	}
	if cfg.Refresh.TTL <= 0 {
		return errors.New("refresh token TTL must be positive")
	}
	if cfg.PasswordReset.TTL <= 0 {
		return errors.New("reset token TTL must be positive")
	}
	if cfg.PasswordReset.MinPurgeAge < 0 {
		return errors.New("reset token purge age must not be negative")
	}
	if cfg.RateLimit.MaxRequests <= 0 {
		return errors.New("rate limit max requests must be positive")
	}
	if cfg.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if cfg.Sweep.RefreshInterval <= 0 || cfg.Sweep.ResetInterval <= 0 {
		return errors.New("sweep intervals must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = append([]byte(nil), cfg.JWT.PrivateKey...)
	out.JWT.PublicKey = append([]byte(nil), cfg.JWT.PublicKey...)
	out.RateLimit.GuardedPaths = append([]string(nil), cfg.RateLimit.GuardedPaths...)
	return out
}

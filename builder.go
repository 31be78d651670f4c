package authbackend

import (
	"errors"
	"time"

	"github.com/pw2712gz/auth-backend/internal/logging"
	"github.com/pw2712gz/auth-backend/internal/rate"
	"github.com/pw2712gz/auth-backend/jwt"
	"github.com/pw2712gz/auth-backend/password"
)

// Builder assembles an [Engine]. Configure, then call Build exactly once.
type Builder struct {
	config    Config
	store     Store
	mailer    Mailer
	auditSink AuditSink
	logger    logging.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder preloaded with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Zero-value fields are NOT
// backfilled with defaults; start from DefaultConfig when overriding
// selectively.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the persistence backend. Required.
func (b *Builder) WithStore(s Store) *Builder {
	b.store = s
	return b
}

// WithMailer sets the outbound notification sender. Optional; without it
// the engine silently skips notifications.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Optional; defaults to a no-op.
func (b *Builder) WithLogger(l logging.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides the engine clock. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// DefaultConfig returns the engine defaults, useful as a base for
// selective overrides before WithConfig.
func DefaultConfig() Config {
	return cloneConfig(defaultConfig())
}

// Build validates the configuration, constructs the token issuer, the
// password hasher, the rate limiter, and the audit dispatcher, and
// returns a ready Engine. The builder cannot be reused afterwards.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.store == nil {
		return nil, errors.New("store required")
	}

	cfg := cloneConfig(b.config)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	engine := &Engine{
		config: cfg,
		store:  b.store,
		mailer: b.mailer,
		now:    time.Now,
	}
	if b.clock != nil {
		engine.now = b.clock
	}

	engine.logger = b.logger
	if engine.logger == nil {
		engine.logger = logging.Nop{}
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	rateCfg := rate.Config{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
	}
	if b.clock != nil {
		engine.rateLimiter = rate.NewWithClock(rateCfg, b.clock)
	} else {
		engine.rateLimiter = rate.New(rateCfg)
	}

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		Issuer:        cfg.JWT.Issuer,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    append([]byte(nil), cfg.JWT.PrivateKey...),
		PublicKey:     append([]byte(nil), cfg.JWT.PublicKey...),
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}

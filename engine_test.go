package authbackend_test

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authbackend "github.com/pw2712gz/auth-backend"
	"github.com/pw2712gz/auth-backend/stores/memory"
)

// fakeClock is a mutable clock shared by the engine and its store so
// that expiry checks see the same advanced time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// captureMailer records every notification instead of sending it.
type captureMailer struct {
	mu         sync.Mutex
	welcomes   []string
	resetLinks []string
	changed    []string
}

func (m *captureMailer) SendWelcome(_ context.Context, to, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, to)
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, _, _, resetLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLinks = append(m.resetLinks, resetLink)
	return nil
}

func (m *captureMailer) SendPasswordChanged(_ context.Context, to, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changed = append(m.changed, to)
	return nil
}

func (m *captureMailer) lastResetToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.resetLinks)
	u, err := url.Parse(m.resetLinks[len(m.resetLinks)-1])
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func testConfig() authbackend.Config {
	cfg := authbackend.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.FrontendBaseURL = "https://app.example.com"
	// Cheapest parameters the hasher accepts; production strength is
	// not under test here.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 16
	return cfg
}

func newTestEngine(t *testing.T) (*authbackend.Engine, *fakeClock, *captureMailer) {
	t.Helper()

	clock := newFakeClock()
	mailer := &captureMailer{}

	engine, err := authbackend.New().
		WithConfig(testConfig()).
		WithStore(memory.NewWithClock(clock.Now)).
		WithMailer(mailer).
		WithClock(clock.Now).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return engine, clock, mailer
}

func register(t *testing.T, engine *authbackend.Engine, email, pass string) *authbackend.User {
	t.Helper()
	user, err := engine.Register(context.Background(), authbackend.RegisterRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  pass,
	})
	require.NoError(t, err)
	return user
}

func TestRegisterDuplicateEmail(t *testing.T) {
	engine, _, mailer := newTestEngine(t)
	ctx := context.Background()

	user := register(t, engine, "ada@example.com", "correct horse")
	assert.NotEmpty(t, user.ID)
	assert.True(t, user.Enabled)

	_, err := engine.Register(ctx, authbackend.RegisterRequest{
		FirstName: "Other",
		LastName:  "Person",
		Email:     "ada@example.com",
		Password:  "different1",
	})
	assert.ErrorIs(t, err, authbackend.ErrEmailTaken)

	mailer.mu.Lock()
	welcomes := len(mailer.welcomes)
	mailer.mu.Unlock()
	assert.Equal(t, 1, welcomes)

	snap := engine.MetricsSnapshot()
	assert.Equal(t, uint64(1), snap.Counters[authbackend.MetricRegisterSuccess])
	assert.Equal(t, uint64(1), snap.Counters[authbackend.MetricRegisterDuplicate])
}

func TestLoginAndRefreshRoundTrip(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	register(t, engine, "ada@example.com", "correct horse")

	resp, err := engine.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "ada@example.com", resp.Email)

	// The opaque refresh token carries no claims and is never a JWT.
	assert.NotContains(t, resp.RefreshToken, ".")

	user, err := engine.CurrentUser(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	refreshed, err := engine.Refresh(ctx, "ada@example.com", resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, resp.RefreshToken, refreshed.RefreshToken)
}

func TestLoginFailures(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	register(t, engine, "ada@example.com", "correct horse")

	_, err := engine.Login(ctx, "ada@example.com", "wrong password")
	assert.ErrorIs(t, err, authbackend.ErrInvalidCredentials)

	_, err = engine.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, authbackend.ErrInvalidCredentials)

	snap := engine.MetricsSnapshot()
	assert.Equal(t, uint64(2), snap.Counters[authbackend.MetricLoginFailure])
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Refresh(context.Background(), "ada@example.com", "no-such-token")
	assert.ErrorIs(t, err, authbackend.ErrTokenNotFound)
}

func TestExpiredRefreshTokenDeletedOnValidation(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()

	register(t, engine, "ada@example.com", "correct horse")
	resp, err := engine.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)

	clock.Advance(30*24*time.Hour + time.Minute)

	_, err = engine.ValidateRefreshToken(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, authbackend.ErrTokenExpired)

	// The expired row was removed on detection.
	_, err = engine.ValidateRefreshToken(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, authbackend.ErrTokenNotFound)
}

func TestLogoutIsIdempotent(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	register(t, engine, "ada@example.com", "correct horse")
	resp, err := engine.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)

	require.NoError(t, engine.Logout(ctx, resp.RefreshToken))
	require.NoError(t, engine.Logout(ctx, resp.RefreshToken))

	_, err = engine.Refresh(ctx, "ada@example.com", resp.RefreshToken)
	assert.ErrorIs(t, err, authbackend.ErrTokenNotFound)
}

func TestSweepRefreshTokens(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()

	user := register(t, engine, "ada@example.com", "correct horse")

	for i := 0; i < 2; i++ {
		_, err := engine.CreateRefreshToken(ctx, user)
		require.NoError(t, err)
	}

	clock.Advance(30*24*time.Hour + time.Minute)

	// Minted after the jump, so it survives the sweep.
	fresh, err := engine.CreateRefreshToken(ctx, user)
	require.NoError(t, err)

	removed, err := engine.SweepRefreshTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = engine.ValidateRefreshToken(ctx, fresh)
	assert.NoError(t, err)

	snap := engine.MetricsSnapshot()
	assert.Equal(t, uint64(2), snap.Counters[authbackend.MetricRefreshSwept])
}

func TestResetPasswordFlow(t *testing.T) {
	engine, _, mailer := newTestEngine(t)
	ctx := context.Background()

	register(t, engine, "ada@example.com", "correct horse")

	require.NoError(t, engine.RequestPasswordReset(ctx, "ada@example.com"))
	token := mailer.lastResetToken(t)

	ok, err := engine.ResetPassword(ctx, token, "brand new pass")
	require.NoError(t, err)
	assert.True(t, ok)

	// The token is single use.
	ok, err = engine.ResetPassword(ctx, token, "another pass 1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = engine.Login(ctx, "ada@example.com", "correct horse")
	assert.ErrorIs(t, err, authbackend.ErrInvalidCredentials)

	_, err = engine.Login(ctx, "ada@example.com", "brand new pass")
	assert.NoError(t, err)

	mailer.mu.Lock()
	changed := len(mailer.changed)
	mailer.mu.Unlock()
	assert.Equal(t, 1, changed)
}

func TestResetLinkUsesFrontendBaseURL(t *testing.T) {
	engine, _, mailer := newTestEngine(t)
	ctx := context.Background()

	register(t, engine, "ada@example.com", "correct horse")
	require.NoError(t, engine.RequestPasswordReset(ctx, "ada@example.com"))

	mailer.mu.Lock()
	link := mailer.resetLinks[0]
	mailer.mu.Unlock()
	assert.True(t, strings.HasPrefix(link, "https://app.example.com/reset-password?token="), link)
}

func TestResetPasswordUnknownEmailIsSilent(t *testing.T) {
	engine, _, mailer := newTestEngine(t)

	require.NoError(t, engine.RequestPasswordReset(context.Background(), "ghost@example.com"))

	mailer.mu.Lock()
	sent := len(mailer.resetLinks)
	mailer.mu.Unlock()
	assert.Zero(t, sent)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	engine, clock, mailer := newTestEngine(t)
	ctx := context.Background()

	register(t, engine, "ada@example.com", "correct horse")
	require.NoError(t, engine.RequestPasswordReset(ctx, "ada@example.com"))
	token := mailer.lastResetToken(t)

	clock.Advance(15*time.Minute + time.Second)

	ok, err := engine.ResetPassword(ctx, token, "brand new pass")
	require.NoError(t, err)
	assert.False(t, ok)

	// Old credential still works because nothing was committed.
	_, err = engine.Login(ctx, "ada@example.com", "correct horse")
	assert.NoError(t, err)
}

func TestSweepResetTokensHonorsPurgeAge(t *testing.T) {
	engine, clock, mailer := newTestEngine(t)
	ctx := context.Background()

	register(t, engine, "ada@example.com", "correct horse")
	require.NoError(t, engine.RequestPasswordReset(ctx, "ada@example.com"))

	// Redeemed rows linger until the purge age passes.
	token := mailer.lastResetToken(t)
	ok, err := engine.ResetPassword(ctx, token, "brand new pass")
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(2 * time.Hour)
	removed, err := engine.SweepResetTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	clock.Advance(23 * time.Hour)
	removed, err = engine.SweepResetTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestAuditEventsEmitted(t *testing.T) {
	clock := newFakeClock()
	sink := authbackend.NewChannelSink(64)

	engine, err := authbackend.New().
		WithConfig(testConfig()).
		WithStore(memory.NewWithClock(clock.Now)).
		WithAuditSink(sink).
		WithClock(clock.Now).
		Build()
	require.NoError(t, err)

	register(t, engine, "ada@example.com", "correct horse")
	_, err = engine.Login(context.Background(), "ada@example.com", "wrong password")
	require.ErrorIs(t, err, authbackend.ErrInvalidCredentials)

	// Close drains the dispatcher before returning.
	engine.Close()

	types := map[string]bool{}
	for {
		select {
		case ev := <-sink.Events():
			types[ev.EventType] = true
		default:
			assert.True(t, types["register_success"], "events seen: %v", types)
			assert.True(t, types["login_failure"], "events seen: %v", types)
			return
		}
	}
}

func TestSweepSchedulerStartStop(t *testing.T) {
	cfg := testConfig()
	cfg.Sweep.RefreshInterval = 5 * time.Millisecond
	cfg.Sweep.ResetInterval = 5 * time.Millisecond

	engine, err := authbackend.New().
		WithConfig(cfg).
		WithStore(memory.New()).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	sched := authbackend.NewSweepScheduler(engine)
	sched.Start()
	time.Sleep(25 * time.Millisecond)
	sched.Stop()

	// Stop is safe to call twice.
	sched.Stop()
}

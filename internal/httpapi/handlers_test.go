package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authbackend "github.com/pw2712gz/auth-backend"
	"github.com/pw2712gz/auth-backend/stores/memory"
)

func newTestRouter(t *testing.T, mutate func(*authbackend.Config)) http.Handler {
	t.Helper()

	cfg := authbackend.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := authbackend.New().
		WithConfig(cfg).
		WithStore(memory.New()).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return NewRouter(engine, nil)
}

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const registerBody = `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","password":"correct horse"}`

func TestRegisterLoginMe(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := postJSON(router, "/api/auth/register", registerBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(router, "/api/auth/register", registerBody)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = postJSON(router, "/api/auth/login", `{"email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var auth authenticationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))
	assert.NotEmpty(t, auth.AuthenticationToken)
	assert.NotEmpty(t, auth.RefreshToken)
	assert.Equal(t, "ada@example.com", auth.Email)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+auth.AuthenticationToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var me userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "Ada", me.FirstName)
	assert.Equal(t, "ada@example.com", me.Email)
}

func TestMeWithoutToken(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := postJSON(router, "/api/auth/login", `{"email":"nobody@example.com","password":"whatever1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := postJSON(router, "/api/auth/register", registerBody)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(router, "/api/auth/login", `{"email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var auth authenticationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))

	refreshBody := fmt.Sprintf(`{"refreshToken":%q,"email":"ada@example.com"}`, auth.RefreshToken)

	rec = postJSON(router, "/api/auth/refresh", refreshBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var refreshed authenticationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	assert.Equal(t, auth.RefreshToken, refreshed.RefreshToken)
	assert.NotEmpty(t, refreshed.AuthenticationToken)

	rec = postJSON(router, "/api/auth/logout", refreshBody)
	require.Equal(t, http.StatusOK, rec.Code)

	// Logout deleted the token, so a further refresh is rejected.
	rec = postJSON(router, "/api/auth/refresh", refreshBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logout stays idempotent.
	rec = postJSON(router, "/api/auth/logout", refreshBody)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := postJSON(router, "/api/auth/forgot-password", `{"email":"ghost@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResetPasswordInvalidToken(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := postJSON(router, "/api/auth/reset-password", `{"token":"not-a-token","newPassword":"longenough"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired token")
}

func TestValidationFailures(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := postJSON(router, "/api/auth/register", `{"firstName":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(router, "/api/auth/register", `{"firstName":"A","lastName":"B","email":"a@b.com","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(router, "/api/auth/login", `{"email":"","password":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitOnGuardedPath(t *testing.T) {
	router := newTestRouter(t, func(cfg *authbackend.Config) {
		cfg.RateLimit.MaxRequests = 3
	})

	body := `{"email":"nobody@example.com","password":"whatever1"}`
	for i := 0; i < 3; i++ {
		rec := postJSON(router, "/api/auth/login", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := postJSON(router, "/api/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Unguarded paths never count against the window.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/health", nil)
	hrec := httptest.NewRecorder()
	router.ServeHTTP(hrec, req)
	assert.Equal(t, http.StatusOK, hrec.Code)
}

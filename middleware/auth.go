package middleware

import (
	"context"
	"net/http"
	"strings"

	authbackend "github.com/pw2712gz/auth-backend"
)

type currentUserContextKey struct{}

// CurrentUserFromContext returns the user injected by [RequireAuth].
func CurrentUserFromContext(ctx context.Context) (*authbackend.User, bool) {
	user, ok := ctx.Value(currentUserContextKey{}).(*authbackend.User)
	return user, ok
}

// RequireAuth verifies the bearer access token and injects the resolved
// user into the request context. Any failure answers 401 without detail.
func RequireAuth(engine *authbackend.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := engine.CurrentUser(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), currentUserContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

package middleware

import (
	"encoding/json"
	"net"
	"net/http"

	authbackend "github.com/pw2712gz/auth-backend"
)

// RateLimit throttles the guarded paths by client address. Requests to
// any other path pass through untouched. Rejections answer 429 with a
// small JSON body and never reach the next handler.
func RateLimit(engine *authbackend.Engine) func(http.Handler) http.Handler {
	guarded := make(map[string]struct{})
	for _, path := range engine.GuardedPaths() {
		guarded[path] = struct{}{}
	}
	limiter := engine.RateLimiter()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := guarded[r.URL.Path]; !ok {
				next.ServeHTTP(w, r)
				return
			}

			key := ClientIP(r)
			if limiter == nil || limiter.Admit(key) {
				next.ServeHTTP(w, r.WithContext(authbackend.WithClientIP(r.Context(), key)))
				return
			}

			engine.RecordRateLimitHit(r.Context(), key, r.URL.Path)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "too many requests",
			})
		})
	}
}

// ClientIP extracts the caller address, preferring X-Forwarded-For when
// a proxy set it.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for i := 0; i < len(forwarded); i++ {
			if forwarded[i] == ',' {
				return forwarded[:i]
			}
		}
		return forwarded
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

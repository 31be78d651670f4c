package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	authbackend "github.com/pw2712gz/auth-backend"
	"github.com/pw2712gz/auth-backend/internal/logging"
	"github.com/pw2712gz/auth-backend/middleware"
)

// NewRouter wires every auth endpoint. Rate limiting applies router-wide
// but only fires on the engine's guarded paths; /me additionally requires
// a bearer access token.
func NewRouter(engine *authbackend.Engine, log logging.Logger) http.Handler {
	h := NewHandler(engine, log)

	r := mux.NewRouter()
	r.Use(middleware.RateLimit(engine))

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
	auth.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	auth.HandleFunc("/forgot-password", h.ForgotPassword).Methods(http.MethodPost)
	auth.HandleFunc("/reset-password", h.ResetPassword).Methods(http.MethodPost)
	auth.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	me := auth.PathPrefix("/me").Subrouter()
	me.Use(middleware.RequireAuth(engine))
	me.HandleFunc("", h.Me).Methods(http.MethodGet)

	return r
}

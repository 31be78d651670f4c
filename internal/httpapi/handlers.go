package httpapi

import (
	"net/http"
	"strings"
	"time"

	authbackend "github.com/pw2712gz/auth-backend"
	"github.com/pw2712gz/auth-backend/internal/logging"
	"github.com/pw2712gz/auth-backend/middleware"
)

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type authenticationResponse struct {
	AuthenticationToken string    `json:"authenticationToken"`
	RefreshToken        string    `json:"refreshToken"`
	ExpiresAt           time.Time `json:"expiresAt"`
	Email               string    `json:"email"`
}

type userResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Handler carries the engine dependency shared by every endpoint.
type Handler struct {
	engine *authbackend.Engine
	log    logging.Logger
}

func NewHandler(engine *authbackend.Engine, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop{}
	}
	return &Handler{engine: engine, log: log}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg, ok := validateRegister(req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	h.log.Info(r.Context(), "registering user", "email", req.Email)

	_, err := h.engine.Register(r.Context(), authbackend.RegisterRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Registration successful")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	h.log.Info(r.Context(), "login requested", "email", req.Email)

	resp, err := h.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthenticationResponse(resp))
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "refreshToken and email are required")
		return
	}

	resp, err := h.engine.Refresh(r.Context(), req.Email, req.RefreshToken)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthenticationResponse(resp))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	if err := h.engine.Logout(r.Context(), req.RefreshToken); err != nil {
		writeEngineError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Logged out and refresh token deleted")
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	})
}

// ForgotPassword always answers OK so callers cannot probe which emails
// have accounts.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.engine.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeEngineError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Reset password email sent")
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "new password must be at least 8 characters")
		return
	}

	ok, err := h.engine.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid or expired token.")
		return
	}

	writeMessage(w, http.StatusOK, "Password successfully reset.")
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "OK")
}

func toAuthenticationResponse(resp *authbackend.AuthResponse) authenticationResponse {
	return authenticationResponse{
		AuthenticationToken: resp.AccessToken,
		RefreshToken:        resp.RefreshToken,
		ExpiresAt:           resp.ExpiresAt,
		Email:               resp.Email,
	}
}

func validateRegister(req registerRequest) (string, bool) {
	switch {
	case strings.TrimSpace(req.FirstName) == "":
		return "first name is required", false
	case strings.TrimSpace(req.LastName) == "":
		return "last name is required", false
	case !strings.Contains(req.Email, "@"):
		return "invalid email format", false
	case len(req.Password) < 8:
		return "password must be at least 8 characters", false
	}
	return "", true
}

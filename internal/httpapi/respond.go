package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	authbackend "github.com/pw2712gz/auth-backend"
)

// maxBodyBytes bounds request bodies so a hostile client cannot make the
// decoder buffer arbitrary input.
const maxBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeEngineError translates engine sentinels into status codes. Unknown
// errors become a bare 500 so internals never leak to the client.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authbackend.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, authbackend.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, authbackend.ErrAccountDisabled):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, authbackend.ErrTokenNotFound),
		errors.Is(err, authbackend.ErrTokenExpired),
		errors.Is(err, authbackend.ErrTokenUsed),
		errors.Is(err, authbackend.ErrUserNotFound),
		errors.Is(err, authbackend.ErrInvalidSubject):
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, authbackend.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

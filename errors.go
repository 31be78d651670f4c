package authbackend

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for unknown emails and wrong
	// passwords alike, so callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by Register when the email is already in use.
	ErrEmailTaken = errors.New("email is already registered")
	// ErrAccountDisabled is returned by Login for disabled accounts.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrTokenNotFound indicates no stored token matches the given value.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExpired indicates the token exists but is past its expiry.
	// Detecting expiry during validation deletes the row as a side effect.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenUsed indicates a reset token that was already redeemed.
	ErrTokenUsed = errors.New("token already used")
	// ErrStoreUnavailable wraps storage faults. Flows either propagate it or,
	// for sweeps and notifications, log it and continue.
	ErrStoreUnavailable = errors.New("token store unavailable")
	// ErrEngineNotReady is returned when a flow runs before Build wired its
	// dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidSubject is returned by the access token issuer for an empty
	// subject.
	ErrInvalidSubject = errors.New("invalid token subject")
)

package authbackend

import (
	"context"
	"time"
)

// User is the account record referenced by refresh and reset tokens. The
// engine never mutates PasswordHash except as the terminal step of a
// successful password reset.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Enabled      bool
	CreatedAt    time.Time
}

// RefreshToken is a long-lived opaque credential stored server-side. A row
// present in the store is valid only while now < ExpiresAt.
type RefreshToken struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// PasswordResetToken is a single-use short-lived credential. Once Used flips
// to true it never reverts; used and expired rows linger until the age-based
// sweep purges them.
type PasswordResetToken struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}

// RedeemOutcome reports how a reset-token redemption resolved inside the
// store. Everything except RedeemOK collapses to a false return at the
// Engine.ResetPassword boundary.
type RedeemOutcome int

const (
	// RedeemOK means the password hash and the used flag were both committed.
	RedeemOK RedeemOutcome = iota
	// RedeemNotFound means no row matched the token value.
	RedeemNotFound
	// RedeemAlreadyUsed means the token was redeemed before.
	RedeemAlreadyUsed
	// RedeemExpired means the token was past expiry; the row has been deleted.
	RedeemExpired
	// RedeemOrphaned means the token references a user that no longer exists.
	RedeemOrphaned
)

// UserStore persists user accounts.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Create inserts a new user. A duplicate email yields ErrEmailTaken and
	// writes nothing.
	Create(ctx context.Context, user *User) error
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

// RefreshTokenStore persists refresh tokens.
type RefreshTokenStore interface {
	Save(ctx context.Context, token *RefreshToken) error
	// FindByToken returns ErrTokenNotFound when no row matches.
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)
	// Delete by token value. Deleting a non-existent token is not an error.
	Delete(ctx context.Context, token string) error
	// DeleteExpiredBefore removes every row with ExpiresAt <= cutoff and
	// returns the number removed. The bulk delete is atomic at the store
	// boundary and safe to run concurrently with the other operations.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ResetTokenStore persists password reset tokens.
//
// Redeem exists because the "verify, mutate two aggregates, flip flag"
// sequence must be atomic: either the user's credential and the token's used
// flag are both committed, or neither is. The store is the only layer that
// can guarantee that, so the read-modify-write lives here rather than in the
// engine.
type ResetTokenStore interface {
	Save(ctx context.Context, token *PasswordResetToken) error
	FindByToken(ctx context.Context, token string) (*PasswordResetToken, error)
	Delete(ctx context.Context, token string) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// Redeem atomically checks the token (exists, unused, unexpired), sets
	// Used=true, and writes newPasswordHash to the owning user. On success it
	// returns the user for the confirmation notification. Expired tokens are
	// deleted as a side effect of the check.
	Redeem(ctx context.Context, token, newPasswordHash string) (RedeemOutcome, *User, error)
}

// Store aggregates the three persisted collections. Implementations are
// expected to provide their own internal concurrency control; per-token
// operations are linearizable at this boundary.
type Store interface {
	Users() UserStore
	RefreshTokens() RefreshTokenStore
	ResetTokens() ResetTokenStore
}

// Mailer delivers outbound notifications. All calls are best-effort:
// failures are logged by the engine and never affect the outcome of the
// operation that triggered them.
type Mailer interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendPasswordReset(ctx context.Context, to, name, resetLink string) error
	SendPasswordChanged(ctx context.Context, to, name string) error
}

// RegisterRequest is the input for Engine.Register.
type RegisterRequest struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// AuthResponse is returned by Engine.Login and Engine.Refresh.
type AuthResponse struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Email        string
}

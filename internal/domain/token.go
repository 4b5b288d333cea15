package domain

import (
	"time"
)

// RefreshToken is a stored refresh session. Only the SHA-256 hash of the
// opaque token is persisted; the raw value is returned to the client once and
// cannot be re-derived. A user has one row per active device/session.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token expired before the given instant.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// PasswordResetToken is a single-use reset credential. At most one live row
// exists per email; issuing a new one replaces the previous.
type PasswordResetToken struct {
	Email     string    `json:"email"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token expired before the given instant.
func (t *PasswordResetToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// EmailVerificationToken is a single-use email ownership proof. At most one
// live row exists per email.
type EmailVerificationToken struct {
	Email     string    `json:"email"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token expired before the given instant.
func (t *EmailVerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// LoginCode is a short-lived 6-digit one-time login code. At most one live
// row exists per email; Attempts counts failed validations.
type LoginCode struct {
	Email     string    `json:"email"`
	Code      string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the code expired before the given instant.
func (c *LoginCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

package domain

import (
	"time"
)

// User represents a registered user in the system. PasswordHash is empty for
// OAuth-only accounts.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Phone           string     `json:"phone,omitempty"`
	Department      string     `json:"department,omitempty"`
	Role            string     `json:"role"`
	Status          string     `json:"status"`
	ProfileComplete bool       `json:"profile_complete"`
	IsActive        bool       `json:"is_active"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// EmailVerified reports whether the user's email address has been verified.
func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

package domain

import (
	"time"
)

// Account links a local user to an identity provider account. The
// (Provider, ProviderAccountID) pair is unique across all users, and a user
// may link a given provider at most once.
type Account struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"provider_account_id"`
	AccessToken       string    `json:"-"`
	RefreshToken      string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}

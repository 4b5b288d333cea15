package repository

import (
	"context"
	"time"

	"github.com/utafrali/ServiceDeskGo/internal/domain"
)

// UserRepository persists user records.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error
	UpdateSessionStatus(ctx context.Context, id string, active bool) error
	// AttemptAutoVerification promotes a pending user to active when their
	// email is verified and their profile is complete. Returns true if the
	// row transitioned.
	AttemptAutoVerification(ctx context.Context, id string) (bool, error)
}

// AccountRepository persists OAuth provider account links.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByProviderAccountID(ctx context.Context, provider, providerAccountID string) (*domain.Account, error)
	GetByUserAndProvider(ctx context.Context, userID, provider string) (*domain.Account, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Account, error)
}

// RefreshTokenRepository persists refresh sessions keyed by token hash.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	// Consume atomically deletes the row for the hash and returns it, so a
	// token can be validated and spent in one step.
	Consume(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	CountValidByUser(ctx context.Context, userID string, now time.Time) (int, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PasswordResetTokenRepository persists password reset tokens. One live token
// per email.
type PasswordResetTokenRepository interface {
	// Replace upserts the token for the email, superseding any previous one.
	Replace(ctx context.Context, token *domain.PasswordResetToken) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error)
	Consume(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// EmailVerificationTokenRepository persists email verification tokens. One
// live token per email.
type EmailVerificationTokenRepository interface {
	Replace(ctx context.Context, token *domain.EmailVerificationToken) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.EmailVerificationToken, error)
	Consume(ctx context.Context, tokenHash string) (*domain.EmailVerificationToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LoginCodeRepository persists one-time login codes. One live code per email.
type LoginCodeRepository interface {
	Replace(ctx context.Context, code *domain.LoginCode) error
	GetByEmail(ctx context.Context, email string) (*domain.LoginCode, error)
	IncrementAttempts(ctx context.Context, email string) error
	DeleteByEmail(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

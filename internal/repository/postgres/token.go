package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/ServiceDeskGo/internal/domain"
	apperrors "github.com/utafrali/ServiceDeskGo/pkg/errors"
)

// RefreshTokenRepository implements repository.RefreshTokenRepository using PostgreSQL.
type RefreshTokenRepository struct {
	db DBTX
}

// NewRefreshTokenRepository creates a new PostgreSQL-backed refresh token repository.
func NewRefreshTokenRepository(db DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create stores a new refresh session row.
func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// GetByHash retrieves a refresh session by its token hash.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1`

	return r.scanToken(ctx, query, tokenHash)
}

// Consume deletes the row for the hash and returns it in a single statement,
// so two concurrent refreshes with the same token cannot both succeed.
func (r *RefreshTokenRepository) Consume(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE token_hash = $1
		RETURNING id, user_id, token_hash, expires_at, created_at`

	return r.scanToken(ctx, query, tokenHash)
}

// CountValidByUser counts unexpired sessions belonging to the user.
func (r *RefreshTokenRepository) CountValidByUser(ctx context.Context, userID string, now time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM refresh_tokens WHERE user_id = $1 AND expires_at > $2`

	var count int
	if err := r.db.QueryRow(ctx, query, userID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count refresh tokens: %w", err)
	}

	return count, nil
}

// DeleteByHash removes a single refresh session.
func (r *RefreshTokenRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	query := `DELETE FROM refresh_tokens WHERE token_hash = $1`

	if _, err := r.db.Exec(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	return nil
}

// DeleteByUser removes all sessions for the user and returns how many there were.
func (r *RefreshTokenRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE user_id = $1`

	ct, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("delete refresh tokens by user: %w", err)
	}

	return ct.RowsAffected(), nil
}

// DeleteAll removes every session in the system.
func (r *RefreshTokenRepository) DeleteAll(ctx context.Context) (int64, error) {
	query := `DELETE FROM refresh_tokens`

	ct, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("delete all refresh tokens: %w", err)
	}

	return ct.RowsAffected(), nil
}

// DeleteExpired removes sessions whose expiry has passed.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at <= $1`

	ct, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}

	return ct.RowsAffected(), nil
}

func (r *RefreshTokenRepository) scanToken(ctx context.Context, query string, args ...any) (*domain.RefreshToken, error) {
	var t domain.RefreshToken

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &t, nil
}

// --- Password Reset Token Repository ---

// PasswordResetTokenRepository implements repository.PasswordResetTokenRepository using PostgreSQL.
type PasswordResetTokenRepository struct {
	db DBTX
}

// NewPasswordResetTokenRepository creates a new PostgreSQL-backed password reset token repository.
func NewPasswordResetTokenRepository(db DBTX) *PasswordResetTokenRepository {
	return &PasswordResetTokenRepository{db: db}
}

// Replace upserts the reset token for the email. Any previous token for the
// same email stops working immediately.
func (r *PasswordResetTokenRepository) Replace(ctx context.Context, t *domain.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (email, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET token_hash = EXCLUDED.token_hash, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at`

	_, err := r.db.Exec(ctx, query, t.Email, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert password reset token: %w", err)
	}

	return nil
}

// GetByHash retrieves a reset token by its hash.
func (r *PasswordResetTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error) {
	query := `
		SELECT email, token_hash, expires_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1`

	return r.scanToken(ctx, query, tokenHash)
}

// Consume deletes the token for the hash and returns it in a single statement.
func (r *PasswordResetTokenRepository) Consume(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error) {
	query := `
		DELETE FROM password_reset_tokens
		WHERE token_hash = $1
		RETURNING email, token_hash, expires_at, created_at`

	return r.scanToken(ctx, query, tokenHash)
}

// DeleteByHash removes a reset token.
func (r *PasswordResetTokenRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	query := `DELETE FROM password_reset_tokens WHERE token_hash = $1`

	if _, err := r.db.Exec(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("delete password reset token: %w", err)
	}

	return nil
}

// DeleteExpired removes reset tokens whose expiry has passed.
func (r *PasswordResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM password_reset_tokens WHERE expires_at <= $1`

	ct, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired password reset tokens: %w", err)
	}

	return ct.RowsAffected(), nil
}

func (r *PasswordResetTokenRepository) scanToken(ctx context.Context, query string, args ...any) (*domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&t.Email,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan password reset token: %w", err)
	}

	return &t, nil
}

// --- Email Verification Token Repository ---

// EmailVerificationTokenRepository implements repository.EmailVerificationTokenRepository using PostgreSQL.
type EmailVerificationTokenRepository struct {
	db DBTX
}

// NewEmailVerificationTokenRepository creates a new PostgreSQL-backed email verification token repository.
func NewEmailVerificationTokenRepository(db DBTX) *EmailVerificationTokenRepository {
	return &EmailVerificationTokenRepository{db: db}
}

// Replace upserts the verification token for the email.
func (r *EmailVerificationTokenRepository) Replace(ctx context.Context, t *domain.EmailVerificationToken) error {
	query := `
		INSERT INTO email_verification_tokens (email, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET token_hash = EXCLUDED.token_hash, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at`

	_, err := r.db.Exec(ctx, query, t.Email, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert email verification token: %w", err)
	}

	return nil
}

// GetByHash retrieves a verification token by its hash.
func (r *EmailVerificationTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.EmailVerificationToken, error) {
	query := `
		SELECT email, token_hash, expires_at, created_at
		FROM email_verification_tokens
		WHERE token_hash = $1`

	return r.scanToken(ctx, query, tokenHash)
}

// Consume deletes the token for the hash and returns it in a single statement.
func (r *EmailVerificationTokenRepository) Consume(ctx context.Context, tokenHash string) (*domain.EmailVerificationToken, error) {
	query := `
		DELETE FROM email_verification_tokens
		WHERE token_hash = $1
		RETURNING email, token_hash, expires_at, created_at`

	return r.scanToken(ctx, query, tokenHash)
}

// DeleteByHash removes a verification token.
func (r *EmailVerificationTokenRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	query := `DELETE FROM email_verification_tokens WHERE token_hash = $1`

	if _, err := r.db.Exec(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("delete email verification token: %w", err)
	}

	return nil
}

// DeleteExpired removes verification tokens whose expiry has passed.
func (r *EmailVerificationTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM email_verification_tokens WHERE expires_at <= $1`

	ct, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired email verification tokens: %w", err)
	}

	return ct.RowsAffected(), nil
}

func (r *EmailVerificationTokenRepository) scanToken(ctx context.Context, query string, args ...any) (*domain.EmailVerificationToken, error) {
	var t domain.EmailVerificationToken

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&t.Email,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan email verification token: %w", err)
	}

	return &t, nil
}

// --- Login Code Repository ---

// LoginCodeRepository implements repository.LoginCodeRepository using PostgreSQL.
type LoginCodeRepository struct {
	db DBTX
}

// NewLoginCodeRepository creates a new PostgreSQL-backed login code repository.
func NewLoginCodeRepository(db DBTX) *LoginCodeRepository {
	return &LoginCodeRepository{db: db}
}

// Replace upserts the login code for the email, resetting the attempt counter.
func (r *LoginCodeRepository) Replace(ctx context.Context, c *domain.LoginCode) error {
	query := `
		INSERT INTO login_codes (email, code, expires_at, attempts, created_at)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (email) DO UPDATE
		SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at, attempts = 0, created_at = EXCLUDED.created_at`

	_, err := r.db.Exec(ctx, query, c.Email, c.Code, c.ExpiresAt, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert login code: %w", err)
	}

	return nil
}

// GetByEmail retrieves the live login code for an email.
func (r *LoginCodeRepository) GetByEmail(ctx context.Context, email string) (*domain.LoginCode, error) {
	query := `
		SELECT email, code, expires_at, attempts, created_at
		FROM login_codes
		WHERE email = $1`

	var c domain.LoginCode
	err := r.db.QueryRow(ctx, query, email).Scan(
		&c.Email,
		&c.Code,
		&c.ExpiresAt,
		&c.Attempts,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan login code: %w", err)
	}

	return &c, nil
}

// IncrementAttempts bumps the failed attempt counter for the email's code.
func (r *LoginCodeRepository) IncrementAttempts(ctx context.Context, email string) error {
	query := `UPDATE login_codes SET attempts = attempts + 1 WHERE email = $1`

	if _, err := r.db.Exec(ctx, query, email); err != nil {
		return fmt.Errorf("increment login code attempts: %w", err)
	}

	return nil
}

// DeleteByEmail removes the code for the email.
func (r *LoginCodeRepository) DeleteByEmail(ctx context.Context, email string) error {
	query := `DELETE FROM login_codes WHERE email = $1`

	if _, err := r.db.Exec(ctx, query, email); err != nil {
		return fmt.Errorf("delete login code: %w", err)
	}

	return nil
}

// DeleteExpired removes codes whose expiry has passed.
func (r *LoginCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM login_codes WHERE expires_at <= $1`

	ct, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired login codes: %w", err)
	}

	return ct.RowsAffected(), nil
}

package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/ServiceDeskGo/internal/domain"
	"github.com/utafrali/ServiceDeskGo/internal/repository"
	apperrors "github.com/utafrali/ServiceDeskGo/pkg/errors"
)

// opaqueTokenBytes is the entropy of an opaque token before hex encoding.
const opaqueTokenBytes = 32

// loginCodeDigits is the length of a one-time login code.
const loginCodeDigits = 6

// TokenConfig holds the lifetimes and limits for every token kind.
type TokenConfig struct {
	RefreshTokenTTL      time.Duration
	PasswordResetTTL     time.Duration
	EmailVerificationTTL time.Duration
	LoginCodeTTL         time.Duration
	LoginCodeMaxAttempts int
}

// TokenValidation is the result of checking a password reset or email
// verification token. Email is only set when Valid is true.
type TokenValidation struct {
	Valid bool   `json:"valid"`
	Email string `json:"email,omitempty"`
}

// SessionValidation is the result of checking a refresh token. UserID is only
// set when Valid is true.
type SessionValidation struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id,omitempty"`
}

// CodeValidation is the result of checking a login code.
type CodeValidation struct {
	Valid bool `json:"valid"`
}

// CleanupReport counts the expired rows removed per token kind.
type CleanupReport struct {
	RefreshTokens           int64 `json:"refresh_tokens"`
	PasswordResetTokens     int64 `json:"password_reset_tokens"`
	EmailVerificationTokens int64 `json:"email_verification_tokens"`
	LoginCodes              int64 `json:"login_codes"`
}

// TokenService owns the lifecycle of every non-JWT credential: refresh
// sessions, password reset tokens, email verification tokens, and one-time
// login codes. Raw token values never touch storage; only SHA-256 hashes do.
type TokenService struct {
	refreshRepo repository.RefreshTokenRepository
	resetRepo   repository.PasswordResetTokenRepository
	verifyRepo  repository.EmailVerificationTokenRepository
	codeRepo    repository.LoginCodeRepository
	cfg         TokenConfig
	logger      *slog.Logger
}

// NewTokenService creates a new token service.
func NewTokenService(
	refreshRepo repository.RefreshTokenRepository,
	resetRepo repository.PasswordResetTokenRepository,
	verifyRepo repository.EmailVerificationTokenRepository,
	codeRepo repository.LoginCodeRepository,
	cfg TokenConfig,
	logger *slog.Logger,
) *TokenService {
	return &TokenService{
		refreshRepo: refreshRepo,
		resetRepo:   resetRepo,
		verifyRepo:  verifyRepo,
		codeRepo:    codeRepo,
		cfg:         cfg,
		logger:      logger,
	}
}

// --- Refresh sessions ---

// CreateRefreshToken mints an opaque refresh token for the user, stores its
// hash, and returns the raw value. Each call creates an independent session,
// so a user can hold one per device.
func (s *TokenService) CreateRefreshToken(ctx context.Context, userID string) (string, error) {
	raw, err := generateOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}

	now := time.Now().UTC()
	token := &domain.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
		CreatedAt: now,
	}

	if err := s.refreshRepo.Create(ctx, token); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}

	return raw, nil
}

// ValidateRefreshToken checks a refresh token without consuming it. An
// unknown token yields an invalid result, not an error. An expired token is
// deleted on sight.
func (s *TokenService) ValidateRefreshToken(ctx context.Context, raw string) (*SessionValidation, error) {
	tokenHash := hashToken(raw)

	token, err := s.refreshRepo.GetByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &SessionValidation{Valid: false}, nil
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	if token.Expired(time.Now().UTC()) {
		if err := s.refreshRepo.DeleteByHash(ctx, tokenHash); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete expired refresh token",
				slog.String("user_id", token.UserID),
				slog.String("error", err.Error()),
			)
		}
		return &SessionValidation{Valid: false}, nil
	}

	return &SessionValidation{Valid: true, UserID: token.UserID}, nil
}

// ConsumeRefreshToken atomically validates and deletes a refresh token. Two
// concurrent calls with the same token cannot both get a valid result.
func (s *TokenService) ConsumeRefreshToken(ctx context.Context, raw string) (*SessionValidation, error) {
	token, err := s.refreshRepo.Consume(ctx, hashToken(raw))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &SessionValidation{Valid: false}, nil
		}
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}

	if token.Expired(time.Now().UTC()) {
		return &SessionValidation{Valid: false}, nil
	}

	return &SessionValidation{Valid: true, UserID: token.UserID}, nil
}

// UserHasValidSessions reports whether the user holds at least one unexpired
// refresh session.
func (s *TokenService) UserHasValidSessions(ctx context.Context, userID string) (bool, error) {
	count, err := s.refreshRepo.CountValidByUser(ctx, userID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("count sessions: %w", err)
	}
	return count > 0, nil
}

// RevokeUserSessions deletes all of the user's refresh sessions and returns
// how many were removed.
func (s *TokenService) RevokeUserSessions(ctx context.Context, userID string) (int64, error) {
	count, err := s.refreshRepo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}

	s.logger.InfoContext(ctx, "user sessions revoked",
		slog.String("user_id", userID),
		slog.Int64("count", count),
	)

	return count, nil
}

// RevokeAllSessions deletes every refresh session in the system.
func (s *TokenService) RevokeAllSessions(ctx context.Context) (int64, error) {
	count, err := s.refreshRepo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}

	s.logger.InfoContext(ctx, "all sessions revoked", slog.Int64("count", count))

	return count, nil
}

// --- Password reset tokens ---

// CreatePasswordResetToken mints a reset token for the email and returns the
// raw value. Any previous reset token for the email stops working.
func (s *TokenService) CreatePasswordResetToken(ctx context.Context, email string) (string, error) {
	raw, err := generateOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("generate password reset token: %w", err)
	}

	now := time.Now().UTC()
	token := &domain.PasswordResetToken{
		Email:     email,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(s.cfg.PasswordResetTTL),
		CreatedAt: now,
	}

	if err := s.resetRepo.Replace(ctx, token); err != nil {
		return "", fmt.Errorf("store password reset token: %w", err)
	}

	return raw, nil
}

// ValidatePasswordResetToken checks a reset token without consuming it.
func (s *TokenService) ValidatePasswordResetToken(ctx context.Context, raw string) (*TokenValidation, error) {
	tokenHash := hashToken(raw)

	token, err := s.resetRepo.GetByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &TokenValidation{Valid: false}, nil
		}
		return nil, fmt.Errorf("get password reset token: %w", err)
	}

	if token.Expired(time.Now().UTC()) {
		if err := s.resetRepo.DeleteByHash(ctx, tokenHash); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete expired password reset token",
				slog.String("email", token.Email),
				slog.String("error", err.Error()),
			)
		}
		return &TokenValidation{Valid: false}, nil
	}

	return &TokenValidation{Valid: true, Email: token.Email}, nil
}

// ConsumePasswordResetToken atomically validates and deletes a reset token.
func (s *TokenService) ConsumePasswordResetToken(ctx context.Context, raw string) (*TokenValidation, error) {
	token, err := s.resetRepo.Consume(ctx, hashToken(raw))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &TokenValidation{Valid: false}, nil
		}
		return nil, fmt.Errorf("consume password reset token: %w", err)
	}

	if token.Expired(time.Now().UTC()) {
		return &TokenValidation{Valid: false}, nil
	}

	return &TokenValidation{Valid: true, Email: token.Email}, nil
}

// --- Email verification tokens ---

// CreateEmailVerificationToken mints a verification token for the email and
// returns the raw value, superseding any previous one.
func (s *TokenService) CreateEmailVerificationToken(ctx context.Context, email string) (string, error) {
	raw, err := generateOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("generate email verification token: %w", err)
	}

	now := time.Now().UTC()
	token := &domain.EmailVerificationToken{
		Email:     email,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(s.cfg.EmailVerificationTTL),
		CreatedAt: now,
	}

	if err := s.verifyRepo.Replace(ctx, token); err != nil {
		return "", fmt.Errorf("store email verification token: %w", err)
	}

	return raw, nil
}

// ValidateEmailVerificationToken checks a verification token without
// consuming it.
func (s *TokenService) ValidateEmailVerificationToken(ctx context.Context, raw string) (*TokenValidation, error) {
	tokenHash := hashToken(raw)

	token, err := s.verifyRepo.GetByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &TokenValidation{Valid: false}, nil
		}
		return nil, fmt.Errorf("get email verification token: %w", err)
	}

	if token.Expired(time.Now().UTC()) {
		if err := s.verifyRepo.DeleteByHash(ctx, tokenHash); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete expired email verification token",
				slog.String("email", token.Email),
				slog.String("error", err.Error()),
			)
		}
		return &TokenValidation{Valid: false}, nil
	}

	return &TokenValidation{Valid: true, Email: token.Email}, nil
}

// ConsumeEmailVerificationToken atomically validates and deletes a
// verification token.
func (s *TokenService) ConsumeEmailVerificationToken(ctx context.Context, raw string) (*TokenValidation, error) {
	token, err := s.verifyRepo.Consume(ctx, hashToken(raw))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &TokenValidation{Valid: false}, nil
		}
		return nil, fmt.Errorf("consume email verification token: %w", err)
	}

	if token.Expired(time.Now().UTC()) {
		return &TokenValidation{Valid: false}, nil
	}

	return &TokenValidation{Valid: true, Email: token.Email}, nil
}

// --- Login codes ---

// CreateLoginCode mints a 6-digit one-time code for the email, replacing any
// previous code and resetting the attempt counter.
func (s *TokenService) CreateLoginCode(ctx context.Context, email string) (string, error) {
	code, err := generateLoginCode()
	if err != nil {
		return "", fmt.Errorf("generate login code: %w", err)
	}

	now := time.Now().UTC()
	lc := &domain.LoginCode{
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(s.cfg.LoginCodeTTL),
		CreatedAt: now,
	}

	if err := s.codeRepo.Replace(ctx, lc); err != nil {
		return "", fmt.Errorf("store login code: %w", err)
	}

	return code, nil
}

// ValidateLoginCode checks the submitted code against the live code for the
// email. Expired codes and codes past the attempt cap are deleted on sight.
// A wrong code yields an invalid result without touching the attempt counter;
// the caller decides whether to record the failure.
func (s *TokenService) ValidateLoginCode(ctx context.Context, email, code string) (*CodeValidation, error) {
	lc, err := s.codeRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &CodeValidation{Valid: false}, nil
		}
		return nil, fmt.Errorf("get login code: %w", err)
	}

	if lc.Expired(time.Now().UTC()) || lc.Attempts >= s.cfg.LoginCodeMaxAttempts {
		if err := s.codeRepo.DeleteByEmail(ctx, email); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete dead login code",
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
		}
		return &CodeValidation{Valid: false}, nil
	}

	if lc.Code != code {
		return &CodeValidation{Valid: false}, nil
	}

	return &CodeValidation{Valid: true}, nil
}

// IncrementLoginCodeAttempts records a failed validation for the email's code.
func (s *TokenService) IncrementLoginCodeAttempts(ctx context.Context, email string) error {
	if err := s.codeRepo.IncrementAttempts(ctx, email); err != nil {
		return fmt.Errorf("increment login code attempts: %w", err)
	}
	return nil
}

// ConsumeLoginCode deletes the live code for the email after a successful login.
func (s *TokenService) ConsumeLoginCode(ctx context.Context, email string) error {
	if err := s.codeRepo.DeleteByEmail(ctx, email); err != nil {
		return fmt.Errorf("consume login code: %w", err)
	}
	return nil
}

// --- Maintenance ---

// CleanExpiredTokens removes every expired row across all token kinds and
// reports the counts. Meant to be triggered by an operator or a scheduler.
func (s *TokenService) CleanExpiredTokens(ctx context.Context) (*CleanupReport, error) {
	now := time.Now().UTC()
	report := &CleanupReport{}

	var err error
	if report.RefreshTokens, err = s.refreshRepo.DeleteExpired(ctx, now); err != nil {
		return nil, fmt.Errorf("clean refresh tokens: %w", err)
	}
	if report.PasswordResetTokens, err = s.resetRepo.DeleteExpired(ctx, now); err != nil {
		return nil, fmt.Errorf("clean password reset tokens: %w", err)
	}
	if report.EmailVerificationTokens, err = s.verifyRepo.DeleteExpired(ctx, now); err != nil {
		return nil, fmt.Errorf("clean email verification tokens: %w", err)
	}
	if report.LoginCodes, err = s.codeRepo.DeleteExpired(ctx, now); err != nil {
		return nil, fmt.Errorf("clean login codes: %w", err)
	}

	s.logger.InfoContext(ctx, "expired tokens cleaned",
		slog.Int64("refresh_tokens", report.RefreshTokens),
		slog.Int64("password_reset_tokens", report.PasswordResetTokens),
		slog.Int64("email_verification_tokens", report.EmailVerificationTokens),
		slog.Int64("login_codes", report.LoginCodes),
	)

	return report, nil
}

// --- Helpers ---

// generateOpaqueToken returns a cryptographically random hex token.
func generateOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// generateLoginCode returns a random zero-padded numeric code.
func generateLoginCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < loginCodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("read random int: %w", err)
	}
	return fmt.Sprintf("%0*d", loginCodeDigits, n), nil
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

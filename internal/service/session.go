package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/ServiceDeskGo/internal/auth"
	"github.com/utafrali/ServiceDeskGo/internal/domain"
	"github.com/utafrali/ServiceDeskGo/internal/event"
	"github.com/utafrali/ServiceDeskGo/internal/repository"
	apperrors "github.com/utafrali/ServiceDeskGo/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// NotificationGateway delivers auth emails through an external channel. Most
// sends are best-effort; the caller decides which failures are fatal.
type NotificationGateway interface {
	SendWelcomeEmail(ctx context.Context, user *domain.User) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
	SendEmailVerification(ctx context.Context, email, token string) error
	SendLoginCodeEmail(ctx context.Context, email, code string) error
	SendNotification(ctx context.Context, data event.NotificationData) error
}

// AuthService implements registration, login, session refresh, and the
// account recovery flows on top of the token service.
type AuthService struct {
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
	tokens      *TokenService
	jwtManager  *auth.JWTManager
	notifier    NotificationGateway
	logger      *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	accountRepo repository.AccountRepository,
	tokens *TokenService,
	jwtManager *auth.JWTManager,
	notifier NotificationGateway,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		tokens:      tokens,
		jwtManager:  jwtManager,
		notifier:    notifier,
		logger:      logger,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// CompleteProfileInput holds the parameters for completing a user's profile.
type CompleteProfileInput struct {
	FirstName  *string
	LastName   *string
	Phone      *string
	Department *string
}

// OAuthInput holds the identity asserted by an external provider after the
// OAuth dance has completed upstream.
type OAuthInput struct {
	Provider          string
	ProviderAccountID string
	Email             string
	FirstName         string
	LastName          string
	AccessToken       string
	RefreshToken      string
}

// --- Registration and login ---

// Register creates a new user account, hashes the password, and returns the
// user with a fresh session. The welcome email and the initial verification
// email are best-effort.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.FirstName == "" {
		return nil, nil, apperrors.InvalidInput("first name is required")
	}
	if input.LastName == "" {
		return nil, nil, apperrors.InvalidInput("last name is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	role := input.Role
	if role == "" {
		role = domain.RoleRequester
	}
	if !domain.ValidRole(role) {
		return nil, nil, apperrors.InvalidInput("unknown role")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Role:         role,
		Status:       domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.issueSession(ctx, user, "")
	if err != nil {
		return nil, nil, err
	}

	if err := s.notifier.SendWelcomeEmail(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to send welcome email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	// Kick off verification right away so the account can self-activate.
	if token, err := s.tokens.CreateEmailVerificationToken(ctx, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to create verification token at registration",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	} else if err := s.notifier.SendEmailVerification(ctx, user.Email, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification email at registration",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, pair, nil
}

// Login authenticates a user with email and password, returning a session.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	if user.Status == domain.StatusSuspended {
		return nil, nil, apperrors.Unauthorized("account is suspended")
	}

	if user.PasswordHash == "" {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	pair, err := s.issueSession(ctx, user, "")
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, pair, nil
}

// Refresh rotates a refresh token: the presented token is consumed atomically
// and a new pair is issued from the user's current state, so a role or status
// change lands in the next access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidInput("refresh token is required")
	}

	result, err := s.tokens.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, apperrors.InvalidToken("invalid or expired refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, result.UserID)
	if err != nil {
		return nil, apperrors.NotFound("user", result.UserID)
	}

	pair, err := s.issueSession(ctx, user, s.inferProvider(ctx, user))
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "session refreshed",
		slog.String("user_id", user.ID),
	)

	return pair, nil
}

// Logout consumes the presented refresh token. When it was the user's last
// session, the user is marked inactive.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return apperrors.InvalidInput("refresh token is required")
	}

	result, err := s.tokens.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if !result.Valid {
		return apperrors.InvalidToken("invalid or expired refresh token")
	}

	active, err := s.tokens.UserHasValidSessions(ctx, result.UserID)
	if err != nil {
		return err
	}
	if !active {
		if err := s.userRepo.UpdateSessionStatus(ctx, result.UserID, false); err != nil {
			s.logger.ErrorContext(ctx, "failed to clear session status",
				slog.String("user_id", result.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", result.UserID),
	)

	return nil
}

// --- Password recovery ---

// ForgotPassword mints a reset token for the email and dispatches it. A
// failed dispatch is the operation's failure: a token nobody received is
// useless, and the row it left behind is superseded by the next request.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return apperrors.NotFound("user", email)
	}

	token, err := s.tokens.CreatePasswordResetToken(ctx, user.Email)
	if err != nil {
		return err
	}

	if err := s.notifier.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to dispatch password reset email",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return apperrors.InvalidInput("could not deliver password reset email")
	}

	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// ResetPassword consumes a reset token and replaces the user's password. All
// refresh sessions are revoked so stolen sessions die with the old password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperrors.InvalidInput("reset token is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	// Consume before the user lookup: the token is single-use even when the
	// account behind it has since been deleted.
	result, err := s.tokens.ConsumePasswordResetToken(ctx, token)
	if err != nil {
		return err
	}
	if !result.Valid {
		return apperrors.InvalidToken("invalid or expired reset token")
	}

	user, err := s.userRepo.GetByEmail(ctx, result.Email)
	if err != nil {
		return apperrors.NotFound("user", result.Email)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if _, err := s.tokens.RevokeUserSessions(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke sessions after password reset",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.notifier.SendNotification(ctx, event.NotificationData{
		UserID: user.ID,
		Email:  user.Email,
		Kind:   "password_changed",
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to send password changed notification",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// --- Email verification ---

// SendEmailVerification mints a verification token for the email and
// dispatches it. Like ForgotPassword, a failed dispatch fails the operation.
func (s *AuthService) SendEmailVerification(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return apperrors.NotFound("user", email)
	}

	if user.EmailVerified() {
		return apperrors.InvalidInput("email is already verified")
	}

	token, err := s.tokens.CreateEmailVerificationToken(ctx, user.Email)
	if err != nil {
		return err
	}

	if err := s.notifier.SendEmailVerification(ctx, user.Email, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to dispatch verification email",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return apperrors.InvalidInput("could not deliver verification email")
	}

	s.logger.InfoContext(ctx, "email verification requested",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// VerifyEmail consumes a verification token, marks the email verified, and
// activates the account when the profile is already complete.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, apperrors.InvalidInput("verification token is required")
	}

	result, err := s.tokens.ConsumeEmailVerificationToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, apperrors.InvalidToken("invalid or expired verification token")
	}

	user, err := s.userRepo.GetByEmail(ctx, result.Email)
	if err != nil {
		return nil, apperrors.NotFound("user", result.Email)
	}

	if !user.EmailVerified() {
		verifiedAt := time.Now().UTC()
		if err := s.userRepo.MarkEmailVerified(ctx, user.ID, verifiedAt); err != nil {
			return nil, fmt.Errorf("mark email verified: %w", err)
		}
		user.EmailVerifiedAt = &verifiedAt
	}

	if promoted, err := s.userRepo.AttemptAutoVerification(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed auto verification check",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	} else if promoted {
		user.Status = domain.StatusActive
	}

	if err := s.notifier.SendNotification(ctx, event.NotificationData{
		UserID: user.ID,
		Email:  user.Email,
		Kind:   "email_verified",
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to send email verified notification",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "email verified",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// --- Profile ---

// CompleteProfile merges the provided fields into the user's profile, marks
// it complete, and activates the account when the email is already verified.
func (s *AuthService) CompleteProfile(ctx context.Context, userID string, input CompleteProfileInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NotFound("user", userID)
	}

	if input.FirstName != nil {
		if *input.FirstName == "" {
			return nil, apperrors.InvalidInput("first name must not be empty")
		}
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		if *input.LastName == "" {
			return nil, apperrors.InvalidInput("last name must not be empty")
		}
		user.LastName = *input.LastName
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.Department != nil {
		user.Department = *input.Department
	}
	user.ProfileComplete = true

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if promoted, err := s.userRepo.AttemptAutoVerification(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed auto verification check",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	} else if promoted {
		user.Status = domain.StatusActive
	}

	if err := s.notifier.SendNotification(ctx, event.NotificationData{
		UserID: user.ID,
		Email:  user.Email,
		Kind:   "profile_completed",
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to send profile completed notification",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "profile completed",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// --- Login codes ---

// RequestLoginCode mints a one-time code for the email and dispatches it. A
// failed dispatch fails the operation.
func (s *AuthService) RequestLoginCode(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return apperrors.NotFound("user", email)
	}

	if user.Status == domain.StatusSuspended {
		return apperrors.Unauthorized("account is suspended")
	}

	code, err := s.tokens.CreateLoginCode(ctx, user.Email)
	if err != nil {
		return err
	}

	if err := s.notifier.SendLoginCodeEmail(ctx, user.Email, code); err != nil {
		s.logger.ErrorContext(ctx, "failed to dispatch login code email",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return apperrors.InvalidInput("could not deliver login code email")
	}

	s.logger.InfoContext(ctx, "login code requested",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// LoginWithCode authenticates with a one-time code. A failed check counts
// against the code's attempt cap; a successful login consumes the code and
// counts as proof of email ownership.
func (s *AuthService) LoginWithCode(ctx context.Context, email, code string) (*domain.User, *domain.TokenPair, error) {
	if email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if code == "" {
		return nil, nil, apperrors.InvalidInput("code is required")
	}

	result, err := s.tokens.ValidateLoginCode(ctx, email, code)
	if err != nil {
		return nil, nil, err
	}
	if !result.Valid {
		if err := s.tokens.IncrementLoginCodeAttempts(ctx, email); err != nil {
			s.logger.ErrorContext(ctx, "failed to record login code attempt",
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
		}
		return nil, nil, apperrors.InvalidToken("invalid or expired login code")
	}

	if err := s.tokens.ConsumeLoginCode(ctx, email); err != nil {
		s.logger.ErrorContext(ctx, "failed to consume login code",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, apperrors.NotFound("user", email)
	}

	if user.Status == domain.StatusSuspended {
		return nil, nil, apperrors.Unauthorized("account is suspended")
	}

	// Receiving the code proves control of the inbox.
	if !user.EmailVerified() {
		verifiedAt := time.Now().UTC()
		if err := s.userRepo.MarkEmailVerified(ctx, user.ID, verifiedAt); err != nil {
			s.logger.ErrorContext(ctx, "failed to mark email verified on code login",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		} else {
			user.EmailVerifiedAt = &verifiedAt
			if promoted, err := s.userRepo.AttemptAutoVerification(ctx, user.ID); err == nil && promoted {
				user.Status = domain.StatusActive
			}
		}
	}

	pair, err := s.issueSession(ctx, user, "")
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in with code",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, pair, nil
}

// --- OAuth ---

// HandleOAuthLogin signs a user in with an external provider identity. An
// unknown identity with a matching email is linked to the existing user; an
// unknown identity with an unknown email provisions a fresh, auto-verified
// account.
func (s *AuthService) HandleOAuthLogin(ctx context.Context, input OAuthInput) (*domain.User, *domain.TokenPair, error) {
	if input.Provider == "" || input.ProviderAccountID == "" {
		return nil, nil, apperrors.InvalidInput("provider identity is required")
	}
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}

	account, err := s.accountRepo.GetByProviderAccountID(ctx, input.Provider, input.ProviderAccountID)
	switch {
	case err == nil:
		user, err := s.userRepo.GetByID(ctx, account.UserID)
		if err != nil {
			return nil, nil, apperrors.NotFound("user", account.UserID)
		}
		return s.finishOAuthLogin(ctx, user, input.Provider)

	case errorsIsNotFound(err):
		// Fall through to email matching.

	default:
		return nil, nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	switch {
	case err == nil:
		if err := s.createAccountLink(ctx, user.ID, input); err != nil {
			return nil, nil, err
		}
		return s.finishOAuthLogin(ctx, user, input.Provider)

	case errorsIsNotFound(err):
		// Fall through to provisioning.

	default:
		return nil, nil, err
	}

	now := time.Now().UTC()
	user = &domain.User{
		ID:              uuid.New().String(),
		Email:           input.Email,
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Role:            domain.RoleRequester,
		Status:          domain.StatusPending,
		EmailVerifiedAt: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user from oauth: %w", err)
	}

	if err := s.createAccountLink(ctx, user.ID, input); err != nil {
		return nil, nil, err
	}

	if err := s.notifier.SendWelcomeEmail(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to send welcome email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user provisioned from oauth",
		slog.String("user_id", user.ID),
		slog.String("provider", input.Provider),
	)

	return s.finishOAuthLogin(ctx, user, input.Provider)
}

// LinkOAuthAccount attaches a provider identity to an existing user. The
// identity must not belong to anyone else, and the user may hold at most one
// link per provider.
func (s *AuthService) LinkOAuthAccount(ctx context.Context, userID string, input OAuthInput) (*domain.Account, error) {
	if input.Provider == "" || input.ProviderAccountID == "" {
		return nil, apperrors.InvalidInput("provider identity is required")
	}

	if existing, err := s.accountRepo.GetByProviderAccountID(ctx, input.Provider, input.ProviderAccountID); err == nil {
		if existing.UserID != userID {
			return nil, apperrors.Conflict("this provider account is already linked to another user")
		}
		return existing, nil
	} else if !errorsIsNotFound(err) {
		return nil, err
	}

	if _, err := s.accountRepo.GetByUserAndProvider(ctx, userID, input.Provider); err == nil {
		return nil, apperrors.Conflict("an account for this provider is already linked")
	} else if !errorsIsNotFound(err) {
		return nil, err
	}

	account := &domain.Account{
		ID:                uuid.New().String(),
		UserID:            userID,
		Provider:          input.Provider,
		ProviderAccountID: input.ProviderAccountID,
		AccessToken:       input.AccessToken,
		RefreshToken:      input.RefreshToken,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create oauth account: %w", err)
	}

	s.logger.InfoContext(ctx, "oauth account linked",
		slog.String("user_id", userID),
		slog.String("provider", input.Provider),
	)

	return account, nil
}

// --- Helpers ---

func (s *AuthService) finishOAuthLogin(ctx context.Context, user *domain.User, provider string) (*domain.User, *domain.TokenPair, error) {
	if user.Status == domain.StatusSuspended {
		return nil, nil, apperrors.Unauthorized("account is suspended")
	}

	pair, err := s.issueSession(ctx, user, provider)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in via oauth",
		slog.String("user_id", user.ID),
		slog.String("provider", provider),
	)

	return user, pair, nil
}

func (s *AuthService) createAccountLink(ctx context.Context, userID string, input OAuthInput) error {
	account := &domain.Account{
		ID:                uuid.New().String(),
		UserID:            userID,
		Provider:          input.Provider,
		ProviderAccountID: input.ProviderAccountID,
		AccessToken:       input.AccessToken,
		RefreshToken:      input.RefreshToken,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return fmt.Errorf("create oauth account: %w", err)
	}

	return nil
}

// issueSession mints an access/refresh pair from the user's current state and
// flips the active flag.
func (s *AuthService) issueSession(ctx context.Context, user *domain.User, provider string) (*domain.TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(principalFromUser(user, provider))
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.tokens.CreateRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		if err := s.userRepo.UpdateSessionStatus(ctx, user.ID, true); err != nil {
			s.logger.ErrorContext(ctx, "failed to set session status",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		} else {
			user.IsActive = true
		}
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// inferProvider reports the provider to stamp into a refreshed access token.
// Password-less users carry their first linked provider; everyone else gets
// the credentials default.
func (s *AuthService) inferProvider(ctx context.Context, user *domain.User) string {
	if user.PasswordHash != "" {
		return ""
	}
	accounts, err := s.accountRepo.ListByUser(ctx, user.ID)
	if err != nil || len(accounts) == 0 {
		return ""
	}
	return accounts[0].Provider
}

func principalFromUser(user *domain.User, provider string) *auth.Principal {
	return &auth.Principal{
		UserID:          user.ID,
		Email:           user.Email,
		Role:            user.Role,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		ProfileComplete: user.ProfileComplete,
		EmailVerified:   user.EmailVerified(),
		Status:          user.Status,
		IsActive:        user.IsActive,
		Provider:        provider,
	}
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}

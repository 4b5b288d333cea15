package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/ServiceDeskGo/internal/auth"
	"github.com/utafrali/ServiceDeskGo/internal/domain"
	"github.com/utafrali/ServiceDeskGo/internal/event"
	"github.com/utafrali/ServiceDeskGo/internal/service"
	apperrors "github.com/utafrali/ServiceDeskGo/pkg/errors"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *mockUserRepo) MarkEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error {
	args := m.Called(ctx, id, verifiedAt)
	return args.Error(0)
}

func (m *mockUserRepo) UpdateSessionStatus(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *mockUserRepo) AttemptAutoVerification(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockAccountRepo) GetByProviderAccountID(ctx context.Context, provider, providerAccountID string) (*domain.Account, error) {
	args := m.Called(ctx, provider, providerAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepo) GetByUserAndProvider(ctx context.Context, userID, provider string) (*domain.Account, error) {
	args := m.Called(ctx, userID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Account, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*domain.Account), args.Error(1)
}

type mockRefreshRepo struct {
	mock.Mock
}

func (m *mockRefreshRepo) Create(ctx context.Context, t *domain.RefreshToken) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRefreshRepo) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshRepo) Consume(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshRepo) CountValidByUser(ctx context.Context, userID string, now time.Time) (int, error) {
	args := m.Called(ctx, userID, now)
	return args.Int(0), args.Error(1)
}

func (m *mockRefreshRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockRefreshRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRefreshRepo) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRefreshRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockResetRepo struct {
	mock.Mock
}

func (m *mockResetRepo) Replace(ctx context.Context, t *domain.PasswordResetToken) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockResetRepo) GetByHash(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PasswordResetToken), args.Error(1)
}

func (m *mockResetRepo) Consume(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PasswordResetToken), args.Error(1)
}

func (m *mockResetRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockResetRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockVerifyRepo struct {
	mock.Mock
}

func (m *mockVerifyRepo) Replace(ctx context.Context, t *domain.EmailVerificationToken) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockVerifyRepo) GetByHash(ctx context.Context, tokenHash string) (*domain.EmailVerificationToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmailVerificationToken), args.Error(1)
}

func (m *mockVerifyRepo) Consume(ctx context.Context, tokenHash string) (*domain.EmailVerificationToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmailVerificationToken), args.Error(1)
}

func (m *mockVerifyRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockVerifyRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockCodeRepo struct {
	mock.Mock
}

func (m *mockCodeRepo) Replace(ctx context.Context, c *domain.LoginCode) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCodeRepo) GetByEmail(ctx context.Context, email string) (*domain.LoginCode, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoginCode), args.Error(1)
}

func (m *mockCodeRepo) IncrementAttempts(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *mockCodeRepo) DeleteByEmail(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *mockCodeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) SendWelcomeEmail(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockGateway) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

func (m *mockGateway) SendEmailVerification(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

func (m *mockGateway) SendLoginCodeEmail(ctx context.Context, email, code string) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

func (m *mockGateway) SendNotification(ctx context.Context, data event.NotificationData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

// ============================================================================
// Test Helpers
// ============================================================================

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type handlerFixture struct {
	userRepo    *mockUserRepo
	accountRepo *mockAccountRepo
	refreshRepo *mockRefreshRepo
	resetRepo   *mockResetRepo
	verifyRepo  *mockVerifyRepo
	codeRepo    *mockCodeRepo
	notifier    *mockGateway
	tokens      *service.TokenService
	authSvc     *service.AuthService
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		userRepo:    new(mockUserRepo),
		accountRepo: new(mockAccountRepo),
		refreshRepo: new(mockRefreshRepo),
		resetRepo:   new(mockResetRepo),
		verifyRepo:  new(mockVerifyRepo),
		codeRepo:    new(mockCodeRepo),
		notifier:    new(mockGateway),
	}
	logger := handlerTestLogger()
	f.tokens = service.NewTokenService(f.refreshRepo, f.resetRepo, f.verifyRepo, f.codeRepo, service.TokenConfig{
		RefreshTokenTTL:      7 * 24 * time.Hour,
		PasswordResetTTL:     time.Hour,
		EmailVerificationTTL: 24 * time.Hour,
		LoginCodeTTL:         10 * time.Minute,
		LoginCodeMaxAttempts: 5,
	}, logger)
	jwtManager := auth.NewJWTManager("test-secret-key-for-handlers", 15*time.Minute)
	f.authSvc = service.NewAuthService(f.userRepo, f.accountRepo, f.tokens, jwtManager, f.notifier, logger)
	return f
}

// setupAuthRouter mirrors the production public auth routes.
func setupAuthRouter(f *handlerFixture) *chi.Mux {
	handler := NewAuthHandler(f.authSvc, handlerTestLogger())
	r := chi.NewRouter()
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", handler.Register)
		r.Post("/login", handler.Login)
		r.Post("/refresh", handler.Refresh)
		r.Post("/logout", handler.Logout)
		r.Post("/forgot-password", handler.ForgotPassword)
		r.Post("/reset-password", handler.ResetPassword)
		r.Post("/send-verification", handler.SendVerification)
		r.Post("/verify-email", handler.VerifyEmail)
		r.Post("/login-code/request", handler.RequestLoginCode)
		r.Post("/login-code/verify", handler.LoginWithCode)
		r.Post("/oauth/login", handler.OAuthLogin)
	})
	return r
}

func newJSONRequest(t *testing.T, path string, body any) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newJSONRequest(t, path, body))
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

func testPasswordHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	require.NoError(t, err)
	return string(h)
}

func activeTestUser(t *testing.T) *domain.User {
	verified := time.Now().UTC().Add(-time.Hour)
	return &domain.User{
		ID:              "user-1",
		Email:           "jane@example.com",
		PasswordHash:    testPasswordHash(t, "SecurePass123"),
		FirstName:       "Jane",
		LastName:        "Doe",
		Role:            domain.RoleRequester,
		Status:          domain.StatusActive,
		ProfileComplete: true,
		IsActive:        true,
		EmailVerifiedAt: &verified,
	}
}

// ============================================================================
// Register
// ============================================================================

func TestRegisterEndpoint_Success(t *testing.T) {
	f := newHandlerFixture()
	router := setupAuthRouter(f)

	f.userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	f.userRepo.On("UpdateSessionStatus", mock.Anything, mock.AnythingOfType("string"), true).Return(nil)
	f.refreshRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)
	f.verifyRepo.On("Replace", mock.Anything, mock.AnythingOfType("*domain.EmailVerificationToken")).Return(nil)
	f.notifier.On("SendWelcomeEmail", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	f.notifier.On("SendEmailVerification", mock.Anything, "john@example.com", mock.AnythingOfType("string")).Return(nil)

	rec := postJSON(t, router, "/api/v1/auth/register", RegisterRequest{
		Email:     "john@example.com",
		Password:  "SecurePass123",
		FirstName: "John",
		LastName:  "Doe",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
	f.userRepo.AssertExpectations(t)
}

func TestRegisterEndpoint_ValidationError(t *testing.T) {
	f := newHandlerFixture()
	router := setupAuthRouter(f)

	rec := postJSON(t, router, "/api/v1/auth/register", RegisterRequest{
		Email:    "not-an-email",
		Password: "short",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Fields)
	f.userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterEndpoint_DuplicateEmail(t *testing.T) {
	f := newHandlerFixture()
	router := setupAuthRouter(f)

	f.userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).
		Return(apperrors.AlreadyExists("user", "email", "john@example.com"))

	rec := postJSON(t, router, "/api/v1/auth/register", RegisterRequest{
		Email:     "john@example.com",
		Password:  "SecurePass123",
		FirstName: "John",
		LastName:  "Doe",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_EXISTS", resp.Error.Code)
}

// ============================================================================
// Login
// ============================================================================

func TestLoginEndpoint_Success(t *testing.T) {
	f := newHandlerFixture()
	router := setupAuthRouter(f)

	user := activeTestUser(t)
	f.userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
	f.refreshRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)

	rec := postJSON(t, router, "/api/v1/auth/login", LoginRequest{
		Email:    user.Email,
		Password: "SecurePass123",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
}

func TestLoginEndpoint_WrongPassword(t *testing.T) {
	f := newHandlerFixture()
	router := setupAuthRouter(f)

	user := activeTestUser(t)
	f.userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	rec := postJSON(t, router, "/api/v1/auth/login", LoginRequest{
		Email:    user.Email,
		Password: "WrongPass999",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
}

// ============================================================================
// Refresh / Logout
// ============================================================================

func TestRefreshEndpoint_InvalidToken(t *testing.T) {
	f := newHandlerFixture()
	router := setupAuthRouter(f)

	f.refreshRepo.On("Consume", mock.Anything, mock.AnythingOfType("string")).
		Return(nil, apperrors.ErrNotFound)

	rec := postJSON(t, router, "/api/v1/auth/refresh", RefreshTokenRequest{
		RefreshToken: "spent-or-bogus",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_OR_EXPIRED_TOKEN", resp.Error.Code)
}

func TestLogoutEndpoint_Success(t *testing.T) {
	f := newHandlerFixture()
	router := setupAuthRouter(f)

	f.refreshRepo.On("Consume", mock.Anything, mock.AnythingOfType("string")).
		Return(&domain.RefreshToken{
			UserID:    "user-1",
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}, nil)
	f.refreshRepo.On("CountValidByUser", mock.Anything, "user-1", mock.AnythingOfType("time.Time")).Return(1, nil)

	rec := postJSON(t, router, "/api/v1/auth/logout", RefreshTokenRequest{
		RefreshToken: "live-token",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

// ============================================================================
// Password recovery
// ============================================================================

func TestForgotPasswordEndpoint_Success(t *testing.T) {
	f := newHandlerFixture()
	router := setupAuthRouter(f)

	user := activeTestUser(t)
	f.userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
	f.resetRepo.On("Replace", mock.Anything, mock.AnythingOfType("*domain.PasswordResetToken")).Return(nil)
	f.notifier.On("SendPasswordResetEmail", mock.Anything, user.Email, mock.AnythingOfType("string")).Return(nil)

	rec := postJSON(t, router, "/api/v1/auth/forgot-password", ForgotPasswordRequest{Email: user.Email})

	assert.Equal(t, http.StatusOK, rec.Code)
	f.notifier.AssertExpectations(t)
}

func TestForgotPasswordEndpoint_DispatchFailure(t *testing.T) {
	f := newHandlerFixture()
	router := setupAuthRouter(f)

	user := activeTestUser(t)
	f.userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
	f.resetRepo.On("Replace", mock.Anything, mock.AnythingOfType("*domain.PasswordResetToken")).Return(nil)
	f.notifier.On("SendPasswordResetEmail", mock.Anything, user.Email, mock.AnythingOfType("string")).
		Return(errors.New("broker unreachable"))

	rec := postJSON(t, router, "/api/v1/auth/forgot-password", ForgotPasswordRequest{Email: user.Email})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestResetPasswordEndpoint_InvalidToken(t *testing.T) {
	f := newHandlerFixture()
	router := setupAuthRouter(f)

	f.resetRepo.On("Consume", mock.Anything, mock.AnythingOfType("string")).
		Return(nil, apperrors.ErrNotFound)

	rec := postJSON(t, router, "/api/v1/auth/reset-password", ResetPasswordRequest{
		Token:       "bogus",
		NewPassword: "BrandNewPass1",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_OR_EXPIRED_TOKEN", resp.Error.Code)
}

// ============================================================================
// Login codes
// ============================================================================

func TestLoginWithCodeEndpoint_BadCodeFormat(t *testing.T) {
	f := newHandlerFixture()
	router := setupAuthRouter(f)

	rec := postJSON(t, router, "/api/v1/auth/login-code/verify", LoginWithCodeRequest{
		Email: "jane@example.com",
		Code:  "12ab56",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	f.codeRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestLoginWithCodeEndpoint_WrongCode(t *testing.T) {
	f := newHandlerFixture()
	router := setupAuthRouter(f)

	f.codeRepo.On("GetByEmail", mock.Anything, "jane@example.com").Return(&domain.LoginCode{
		Email:     "jane@example.com",
		Code:      "123456",
		ExpiresAt: time.Now().UTC().Add(5 * time.Minute),
	}, nil)
	f.codeRepo.On("IncrementAttempts", mock.Anything, "jane@example.com").Return(nil)

	rec := postJSON(t, router, "/api/v1/auth/login-code/verify", LoginWithCodeRequest{
		Email: "jane@example.com",
		Code:  "654321",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_OR_EXPIRED_TOKEN", resp.Error.Code)
}

// ============================================================================
// OAuth
// ============================================================================

func TestOAuthLoginEndpoint_ExistingAccount(t *testing.T) {
	f := newHandlerFixture()
	router := setupAuthRouter(f)

	user := activeTestUser(t)
	f.accountRepo.On("GetByProviderAccountID", mock.Anything, "google", "g-123").Return(&domain.Account{
		ID:                "acct-1",
		UserID:            user.ID,
		Provider:          "google",
		ProviderAccountID: "g-123",
	}, nil)
	f.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.refreshRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)

	rec := postJSON(t, router, "/api/v1/auth/oauth/login", OAuthLoginRequest{
		Provider:          "google",
		ProviderAccountID: "g-123",
		Email:             user.Email,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
}

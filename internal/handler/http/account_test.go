package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ServiceDeskGo/internal/domain"
	apperrors "github.com/utafrali/ServiceDeskGo/pkg/errors"
	"github.com/utafrali/ServiceDeskGo/pkg/middleware"
)

// fakeTokenValidator returns a middleware.TokenValidator that always succeeds
// and injects the given identity into the request context.
func fakeTokenValidator(userID, role string) middleware.TokenValidator {
	return func(ctx context.Context, token string) (*middleware.Claims, error) {
		return &middleware.Claims{UserID: userID, Email: "test@example.com", Role: role}, nil
	}
}

// setupAccountRouter mirrors the production authenticated account routes.
func setupAccountRouter(f *handlerFixture, userID string) *chi.Mux {
	handler := NewAccountHandler(f.authSvc, handlerTestLogger())
	r := chi.NewRouter()
	r.Route("/api/v1/account", func(r chi.Router) {
		r.Use(middleware.Auth(fakeTokenValidator(userID, domain.RoleRequester)))
		r.Post("/complete-profile", handler.CompleteProfile)
		r.Post("/link-oauth", handler.LinkOAuth)
	})
	return r
}

func setupAccountRouterNoAuth(f *handlerFixture) *chi.Mux {
	handler := NewAccountHandler(f.authSvc, handlerTestLogger())
	r := chi.NewRouter()
	r.Route("/api/v1/account", func(r chi.Router) {
		r.Post("/complete-profile", handler.CompleteProfile)
		r.Post("/link-oauth", handler.LinkOAuth)
	})
	return r
}

func authedPostJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := newJSONRequest(t, path, body)
	req.Header.Set("Authorization", "Bearer test-token")
	router.ServeHTTP(rec, req)
	return rec
}

func TestCompleteProfileEndpoint_Success(t *testing.T) {
	f := newHandlerFixture()
	router := setupAccountRouter(f, "user-1")

	user := activeTestUser(t)
	user.ProfileComplete = false
	user.Status = domain.StatusPending

	f.userRepo.On("GetByID", mock.Anything, "user-1").Return(user, nil)
	f.userRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	f.userRepo.On("AttemptAutoVerification", mock.Anything, "user-1").Return(true, nil)
	f.notifier.On("SendNotification", mock.Anything, mock.AnythingOfType("event.NotificationData")).Return(nil)

	phone := "555-0100"
	rec := authedPostJSON(t, router, "/api/v1/account/complete-profile", CompleteProfileRequest{
		Phone: &phone,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	f.userRepo.AssertExpectations(t)
}

func TestCompleteProfileEndpoint_Unauthenticated(t *testing.T) {
	f := newHandlerFixture()
	router := setupAccountRouterNoAuth(f)

	phone := "555-0100"
	rec := authedPostJSON(t, router, "/api/v1/account/complete-profile", CompleteProfileRequest{
		Phone: &phone,
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	f.userRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestLinkOAuthEndpoint_Success(t *testing.T) {
	f := newHandlerFixture()
	router := setupAccountRouter(f, "user-1")

	f.accountRepo.On("GetByProviderAccountID", mock.Anything, "github", "gh-7").Return(nil, apperrors.ErrNotFound)
	f.accountRepo.On("GetByUserAndProvider", mock.Anything, "user-1", "github").Return(nil, apperrors.ErrNotFound)
	f.accountRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Account")).Return(nil)

	rec := authedPostJSON(t, router, "/api/v1/account/link-oauth", LinkOAuthRequest{
		Provider:          "github",
		ProviderAccountID: "gh-7",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	f.accountRepo.AssertExpectations(t)
}

func TestLinkOAuthEndpoint_Conflict(t *testing.T) {
	f := newHandlerFixture()
	router := setupAccountRouter(f, "user-1")

	f.accountRepo.On("GetByProviderAccountID", mock.Anything, "google", "g-123").Return(&domain.Account{
		ID:                "acct-1",
		UserID:            "someone-else",
		Provider:          "google",
		ProviderAccountID: "g-123",
	}, nil)

	rec := authedPostJSON(t, router, "/api/v1/account/link-oauth", LinkOAuthRequest{
		Provider:          "google",
		ProviderAccountID: "g-123",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
}

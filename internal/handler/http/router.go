package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/ServiceDeskGo/internal/auth"
	"github.com/utafrali/ServiceDeskGo/internal/domain"
	"github.com/utafrali/ServiceDeskGo/internal/service"
	"github.com/utafrali/ServiceDeskGo/pkg/health"
	"github.com/utafrali/ServiceDeskGo/pkg/middleware"
)

// NewRouter creates a chi router with all auth service routes registered.
func NewRouter(
	authService *service.AuthService,
	tokenService *service.TokenService,
	validator *auth.AccessTokenValidator,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("auth"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator that bridges to the access token validator.
	tokenValidator := func(ctx context.Context, token string) (*middleware.Claims, error) {
		principal, err := validator.Verify(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: principal.UserID,
			Email:  principal.Email,
			Role:   principal.Role,
		}, nil
	}

	authHandler := NewAuthHandler(authService, logger)
	accountHandler := NewAccountHandler(authService, logger)
	adminHandler := NewAdminHandler(tokenService, logger)

	// Auth endpoints (public)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)
		r.Post("/send-verification", authHandler.SendVerification)
		r.Post("/verify-email", authHandler.VerifyEmail)
		r.Post("/login-code/request", authHandler.RequestLoginCode)
		r.Post("/login-code/verify", authHandler.LoginWithCode)
		r.Post("/oauth/login", authHandler.OAuthLogin)
	})

	// Account endpoints (auth required)
	r.Route("/api/v1/account", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Post("/complete-profile", accountHandler.CompleteProfile)
		r.Post("/link-oauth", accountHandler.LinkOAuth)
	})

	// Admin endpoints (admin role required)
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))
		r.Use(middleware.RequireRole(domain.RoleAdmin))

		r.Post("/users/{id}/sessions/revoke", adminHandler.RevokeUserSessions)
		r.Post("/sessions/revoke-all", adminHandler.RevokeAllSessions)
		r.Post("/tokens/cleanup", adminHandler.CleanupTokens)
	})

	return r
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/ServiceDeskGo/internal/service"
	"github.com/utafrali/ServiceDeskGo/pkg/middleware"
)

// AccountHandler handles HTTP requests for the authenticated account endpoints.
type AccountHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAccountHandler creates a new account HTTP handler.
func NewAccountHandler(svc *service.AuthService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: svc, logger: logger}
}

// CompleteProfileRequest is the JSON request body for completing a profile.
type CompleteProfileRequest struct {
	FirstName  *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName   *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
	Department *string `json:"department" validate:"omitempty,max=100"`
}

// LinkOAuthRequest is the JSON request body for linking a provider account.
type LinkOAuthRequest struct {
	Provider          string `json:"provider" validate:"required,min=1,max=64"`
	ProviderAccountID string `json:"provider_account_id" validate:"required,min=1,max=255"`
	AccessToken       string `json:"access_token" validate:"omitempty"`
	RefreshToken      string `json:"refresh_token" validate:"omitempty"`
}

// CompleteProfile handles POST /api/v1/account/complete-profile
func (h *AccountHandler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	var req CompleteProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.service.CompleteProfile(r.Context(), userID, service.CompleteProfileInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Department: req.Department,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: user})
}

// LinkOAuth handles POST /api/v1/account/link-oauth
func (h *AccountHandler) LinkOAuth(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	var req LinkOAuthRequest
	if !decodeBody(w, r, &req) {
		return
	}

	account, err := h.service.LinkOAuthAccount(r.Context(), userID, service.OAuthInput{
		Provider:          req.Provider,
		ProviderAccountID: req.ProviderAccountID,
		AccessToken:       req.AccessToken,
		RefreshToken:      req.RefreshToken,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: account})
}

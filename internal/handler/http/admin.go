package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/ServiceDeskGo/internal/service"
)

// AdminHandler handles HTTP requests for the admin session management endpoints.
type AdminHandler struct {
	tokens *service.TokenService
	logger *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(tokens *service.TokenService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{tokens: tokens, logger: logger}
}

// RevokeUserSessions handles POST /api/v1/admin/users/{id}/sessions/revoke
func (h *AdminHandler) RevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "user id is required"},
		})
		return
	}

	count, err := h.tokens.RevokeUserSessions(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: map[string]int64{"revoked": count},
	})
}

// RevokeAllSessions handles POST /api/v1/admin/sessions/revoke-all
func (h *AdminHandler) RevokeAllSessions(w http.ResponseWriter, r *http.Request) {
	count, err := h.tokens.RevokeAllSessions(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: map[string]int64{"revoked": count},
	})
}

// CleanupTokens handles POST /api/v1/admin/tokens/cleanup
func (h *AdminHandler) CleanupTokens(w http.ResponseWriter, r *http.Request) {
	report, err := h.tokens.CleanExpiredTokens(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: report})
}

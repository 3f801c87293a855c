package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dkoval/identity-service/internal/domain"
	"github.com/dkoval/identity-service/internal/service"
	apperrors "github.com/dkoval/identity-service/pkg/errors"
	"github.com/dkoval/identity-service/pkg/pagination"
)

// AdminHandler handles the administrative user management endpoints.
type AdminHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(svc *service.UserService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{service: svc, logger: logger}
}

// ListUsers handles GET /auth/users
//
// Supported query parameters: username and email (substring match,
// case-insensitive), is_active (true/false), page, per_page.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	filter := listFilterFromQuery(r)

	users, total, err := h.service.ListUsers(r.Context(), filter, params.PerPage, params.Offset)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: pagination.NewResult(users, total, params)})
}

// DeleteUser handles DELETE /auth/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := IdentityFromContext(r.Context())
	if actor == nil {
		writeUnauthorized(w, "Bearer", "user not authenticated")
		return
	}

	// A malformed id can't match any user; reject it before it reaches the
	// database, where the UUID cast would fail.
	targetID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(targetID); err != nil {
		writeAppError(w, r, apperrors.NotFound("user", targetID))
		return
	}

	if err := h.service.DeleteUser(r.Context(), actor.ID, targetID); err != nil {
		writeAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func listFilterFromQuery(r *http.Request) domain.ListFilter {
	var filter domain.ListFilter

	q := r.URL.Query()
	if username := q.Get("username"); username != "" {
		filter.Username = &username
	}
	if email := q.Get("email"); email != "" {
		filter.Email = &email
	}
	if raw := q.Get("is_active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.IsActive = &active
		}
	}

	return filter
}

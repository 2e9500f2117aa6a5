package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// UserHandler serves user profile endpoints.
type UserHandler struct {
	users billing.UserRepository
	log   logging.Logger
}

// NewUserHandler creates the handler.
func NewUserHandler(users billing.UserRepository, log logging.Logger) *UserHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &UserHandler{users: users, log: log.Named("user_handler")}
}

// Me returns the caller's own profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, apperrors.New(apperrors.ErrCodeUnauthorized, "authentication required"))
		return
	}
	profile, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.GetByID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) ListByOrganization(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("organization_id")
	if orgID == "" {
		writeError(w, apperrors.NewValidation("organization_id query parameter required"))
		return
	}
	profiles, err := h.users.ListByOrganization(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

type upsertUserRequest struct {
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
	Role           string `json:"role,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

func (h *UserHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	profile := &billing.UserProfile{
		UID:            chi.URLParam(r, "userID"),
		Email:          req.Email,
		DisplayName:    req.DisplayName,
		Role:           req.Role,
		OrganizationID: req.OrganizationID,
	}
	if err := h.users.Upsert(r.Context(), profile); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

package profile

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/sos-checkout/internal"
	"github.com/frahmantamala/sos-checkout/internal/transport"
)

// ManagementSecretHeader carries the secret issued at profile creation;
// required for edits.
const ManagementSecretHeader = "X-Management-Secret"

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Logger  *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Logger:      logger,
	}
}

// CreateProfile handles POST /api/v1/profiles
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CreateProfile: failed to parse request body", "error", err)
		h.HandleError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.CreateDraft(r.Context(), &req)
	if err != nil {
		h.Logger.Error("CreateProfile: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateProfile: profile created", "profile_id", resp.Profile.ID)

	h.WriteJSON(w, http.StatusCreated, resp)
}

// GetProfile handles GET /api/v1/profiles/{id}
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.HandleError(w, internal.NewValidationError("profile id is required", internal.ErrCodeValidationFailed))
		return
	}

	view, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, view)
}

// UpdateProfile handles PATCH /api/v1/profiles/{id}
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.HandleError(w, internal.NewValidationError("profile id is required", internal.ErrCodeValidationFailed))
		return
	}

	secret := r.Header.Get(ManagementSecretHeader)
	if secret == "" {
		h.HandleError(w, internal.NewUnauthorizedError("management secret is required", internal.ErrCodeInvalidSecret))
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("UpdateProfile: failed to parse request body", "error", err)
		h.HandleError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	view, err := h.Service.Update(r.Context(), id, secret, &req)
	if err != nil {
		h.Logger.Error("UpdateProfile: service error", "error", err, "profile_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, view)
}

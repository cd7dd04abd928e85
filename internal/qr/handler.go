package qr

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/sos-checkout/internal"
	profilemodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/profile"
	"github.com/frahmantamala/sos-checkout/internal/profile"
	"github.com/frahmantamala/sos-checkout/internal/transport"
)

// EmergencyView is what a first responder sees after scanning the QR code.
// No identifiers beyond the medical facts; the premium tier adds the full
// history fields.
type EmergencyView struct {
	FullName  string `json:"full_name"`
	BirthDate string `json:"birth_date,omitempty"`
	BloodType string `json:"blood_type,omitempty"`

	Allergies         json.RawMessage `json:"allergies,omitempty"`
	EmergencyContacts json.RawMessage `json:"emergency_contacts,omitempty"`

	// Premium only
	Medications       json.RawMessage `json:"medications,omitempty"`
	MedicalConditions json.RawMessage `json:"medical_conditions,omitempty"`

	Plan string `json:"plan"`
}

type Handler struct {
	*transport.BaseHandler
	Service  *Service
	Profiles profile.ServiceAPI
	Logger   *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service *Service, profiles profile.ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Profiles:    profiles,
		Logger:      logger,
	}
}

// ResolveEmergencyView handles GET /api/v1/emergency/{token}: the public
// endpoint behind the printed QR code.
func (h *Handler) ResolveEmergencyView(w http.ResponseWriter, r *http.Request) {
	tokenString := chi.URLParam(r, "token")
	if tokenString == "" {
		h.HandleError(w, internal.NewValidationError("access token is required", internal.ErrCodeValidationFailed))
		return
	}

	claims, err := h.Service.Verify(tokenString)
	if err != nil {
		h.Logger.Warn("emergency view token rejected", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	view, err := h.Profiles.Get(r.Context(), claims.ProfileID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if view.SubscriptionStatus != string(profilemodel.SubscriptionActive) {
		h.Logger.Warn("emergency view for inactive subscription",
			"profile_id", view.ID,
			"subscription_status", view.SubscriptionStatus)
		h.HandleError(w, internal.ErrProfileNotFound)
		return
	}

	emergency := EmergencyView{
		FullName:          view.FullName,
		BirthDate:         view.BirthDate,
		BloodType:         view.BloodType,
		Allergies:         view.Allergies,
		EmergencyContacts: view.EmergencyContacts,
		Plan:              view.Plan,
	}
	if view.Plan == string(profilemodel.PlanPremium) {
		emergency.Medications = view.Medications
		emergency.MedicalConditions = view.MedicalConditions
	}

	h.WriteJSON(w, http.StatusOK, emergency)
}

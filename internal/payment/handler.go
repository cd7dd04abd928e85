package payment

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/sos-checkout/internal"
	"github.com/frahmantamala/sos-checkout/internal/transport"
)

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

// CreatePayment handles POST /api/v1/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CreatePayment: failed to parse request body", "error", err)
		h.HandleError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	view, err := h.Service.Initiate(r.Context(), &req)
	if err != nil {
		h.Logger.Error("CreatePayment: service error",
			"error", err,
			"instrument", req.Instrument,
			"amount_cents", req.AmountCents)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreatePayment: payment created",
		"payment_id", view.ID,
		"instrument", view.Instrument,
		"status", view.Status,
		"payable", view.Payable)

	h.WriteJSON(w, http.StatusCreated, view)
}

// GetPayment handles GET /api/v1/payments/{id}. The id may also be the
// gateway-assigned identifier. Read-only.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.HandleError(w, internal.NewValidationError("payment id is required", internal.ErrCodeValidationFailed))
		return
	}

	view, err := h.Service.GetStatus(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, view)
}

// RefreshPayment handles POST /api/v1/payments/{id}/refresh: the polling
// fallback that re-fetches the gateway status and reconciles it.
func (h *Handler) RefreshPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.HandleError(w, internal.NewValidationError("payment id is required", internal.ErrCodeValidationFailed))
		return
	}

	view, err := h.Service.Refresh(r.Context(), id)
	if err != nil {
		h.Logger.Error("RefreshPayment: service error", "error", err, "payment_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, view)
}

// CancelPayment handles POST /api/v1/payments/{id}/cancel
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.HandleError(w, internal.NewValidationError("payment id is required", internal.ErrCodeValidationFailed))
		return
	}

	var req CancelPaymentRequest
	if r.Body != nil {
		// reason is optional; an empty body is fine
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	reason := req.Reason
	if reason == "" {
		reason = "cancelled by user"
	}

	if err := h.Service.Cancel(r.Context(), id, reason); err != nil {
		h.Logger.Error("CancelPayment: service error", "error", err, "payment_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CancelPayment: payment cancelled", "payment_id", id, "reason", reason)

	h.WriteJSON(w, http.StatusOK, map[string]string{
		"status":     "cancelled",
		"payment_id": id,
	})
}

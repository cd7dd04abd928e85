package payment

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/sos-checkout/internal"
	"github.com/frahmantamala/sos-checkout/internal/transport"
)

// WebhookHandler receives gateway notifications. The body is only trusted
// to say which charge changed; authentication gates everything, and the
// actual status is re-fetched from the gateway by the intake worker.
type WebhookHandler struct {
	*transport.BaseHandler
	gateway GatewayAPI
	intake  *Intake
	logger  *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, gateway GatewayAPI, intake *Intake, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		gateway:     gateway,
		intake:      intake,
		logger:      logger,
	}
}

type gatewayNotification struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// HandleGatewayNotification authenticates and acknowledges a notification.
// Once the signature checks out the response is always 2xx, even when
// reconciliation is deferred or fails later: redelivering an accepted
// notification buys nothing, the status will be re-fetched anyway.
func (h *WebhookHandler) HandleGatewayNotification(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		h.HandleError(w, internal.NewValidationError("unreadable request body", internal.ErrCodeValidationFailed))
		return
	}

	var notification gatewayNotification
	// A malformed body still gets signature-checked; data.id can also come
	// in on the query string.
	_ = json.Unmarshal(body, &notification)

	dataID := notification.Data.ID
	if dataID == "" {
		dataID = r.URL.Query().Get("data.id")
	}

	if !h.gateway.VerifyWebhook(body, r.Header, dataID) {
		h.logger.Warn("webhook signature verification failed",
			"remote_addr", r.RemoteAddr,
			"gateway_id", dataID)
		h.HandleError(w, internal.ErrWebhookAuth)
		return
	}

	if notification.Type != "" && notification.Type != "payment" {
		h.logger.Debug("ignoring non-payment notification", "type", notification.Type)
		h.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if dataID == "" {
		h.logger.Warn("authenticated notification without charge id")
		h.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	h.logger.Info("gateway notification accepted",
		"gateway_id", dataID,
		"action", notification.Action)

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "received"})

	h.intake.Dispatch(ReconcileJob{GatewayID: dataID})
}

package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/sos-checkout/internal"
	"github.com/frahmantamala/sos-checkout/internal/core/events"
	gatewaytypes "github.com/frahmantamala/sos-checkout/internal/core/datamodel/gateway"
	paymentmodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/payment"
)

// Service is the reconciliation engine: the single owner of payment state.
// It is called concurrently from the initiating HTTP request, webhook
// intake and client polls; safety comes from conditional status writes and
// the processed-flag claim, not from locking.
type Service struct {
	repo            RepositoryAPI
	gateway         GatewayAPI
	activator       ActivatorAPI
	eventBus        *events.EventBus
	notificationURL string
	logger          *slog.Logger
}

func NewService(repo RepositoryAPI, gw GatewayAPI, activator ActivatorAPI, eventBus *events.EventBus, notificationURL string, logger *slog.Logger) *Service {
	return &Service{
		repo:            repo,
		gateway:         gw,
		activator:       activator,
		eventBus:        eventBus,
		notificationURL: notificationURL,
		logger:          logger,
	}
}

// Initiate validates the request, persists a pending record, creates the
// charge at the gateway and applies the gateway's initial status. If the
// gateway call fails the pending record is kept without a gateway id, so
// the attempt is never lost.
func (s *Service) Initiate(ctx context.Context, req *CreatePaymentRequest) (*PaymentView, error) {
	if appErr := ValidateCreateRequest(req); appErr != nil {
		return nil, appErr
	}

	instrument := paymentmodel.Instrument(req.Instrument)
	now := time.Now().UTC()

	p := &paymentmodel.Payment{
		ID:           uuid.NewString(),
		AmountCents:  req.AmountCents,
		Instrument:   instrument,
		Installments: req.Installments,
		Status:       paymentmodel.StatusPending,
		ExpiresAt:    now.Add(paymentmodel.ExpiryWindow(instrument)),
	}
	if req.ProfileID != "" {
		profileID := req.ProfileID
		p.ProfileID = &profileID
	} else {
		p.ProfileDraft = req.Profile
	}

	if err := s.repo.Create(p); err != nil {
		s.logger.Error("failed to persist payment record", "error", err)
		return nil, internal.NewInternalError("failed to persist payment record", err)
	}

	s.logger.Info("payment initiated",
		"payment_id", p.ID,
		"instrument", p.Instrument,
		"amount_cents", p.AmountCents,
		"installments", p.Installments,
		"expires_at", p.ExpiresAt)

	charge, err := s.gateway.CreateCharge(ctx, &gatewaytypes.ChargeRequest{
		ReferenceID:     p.ID,
		AmountCents:     p.AmountCents,
		Instrument:      string(p.Instrument),
		CardToken:       req.CardToken,
		Installments:    p.Installments,
		PayerEmail:      req.PayerEmail,
		PayerName:       req.PayerName,
		Description:     "SOS emergency medical profile subscription",
		NotificationURL: s.notificationURL,
	})
	if err != nil {
		// Record stays pending with no gateway id; a manual retry or a
		// later reconciliation pass can still resolve it.
		s.logger.Error("gateway charge creation failed",
			"payment_id", p.ID,
			"error", err)
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		return nil, internal.NewGatewayError("charge creation failed", err)
	}

	var qrPayload, voucherURL *string
	if charge.QRPayload != "" {
		qrPayload = &charge.QRPayload
	}
	if charge.VoucherURL != "" {
		voucherURL = &charge.VoucherURL
	}
	if err := s.repo.SetGatewayCharge(p.ID, charge.GatewayID, qrPayload, voucherURL, charge.Raw); err != nil {
		s.logger.Error("failed to store gateway charge",
			"payment_id", p.ID,
			"gateway_id", charge.GatewayID,
			"error", err)
		return nil, internal.NewInternalError("failed to store gateway charge", err)
	}

	// Map the gateway's initial status through the same funnel as webhooks
	// and polls; "pending" is a no-op, an immediate "approved" transitions
	// and activates in one step.
	if _, err := s.Reconcile(ctx, p.ID, charge.Status, charge.StatusDetail); err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Code == internal.ErrCodeInvalidTransition {
			s.logger.Warn("unmodeled initial gateway status",
				"payment_id", p.ID,
				"gateway_status", charge.Status)
		} else {
			s.logger.Error("failed to apply initial gateway status",
				"payment_id", p.ID,
				"gateway_status", charge.Status,
				"error", err)
		}
	}

	current, err := s.repo.GetByID(p.ID)
	if err != nil {
		return nil, err
	}
	return ToView(current), nil
}

// Reconcile is the single funnel for status updates from webhooks, polls
// and the initial charge response. Idempotent: an already-applied status is
// a no-op, so at-least-once webhook delivery is safe.
func (s *Service) Reconcile(ctx context.Context, paymentID, gatewayStatus, statusDetail string) (*paymentmodel.Payment, error) {
	p, err := s.repo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}

	target, ok := MapGatewayStatus(gatewayStatus)
	if !ok {
		s.logger.Warn("unmodeled gateway status",
			"payment_id", p.ID,
			"gateway_status", gatewayStatus)
		return nil, internal.NewTransitionError(string(p.Status), gatewayStatus)
	}

	if target == p.Status {
		s.logger.Debug("reconcile no-op, status already applied",
			"payment_id", p.ID,
			"status", p.Status)
		return p, nil
	}

	if !p.Status.CanTransitionTo(target) {
		return nil, internal.NewTransitionError(string(p.Status), string(target))
	}

	var failureReason *string
	if target.IsFailure() && statusDetail != "" {
		reason := statusDetail
		failureReason = &reason
	}

	applied, err := s.repo.UpdateStatusFrom(p.ID, p.Status, target, nil, failureReason)
	if err != nil {
		return nil, internal.NewInternalError("failed to update payment status", err)
	}
	if !applied {
		// Lost a race against a concurrent reconcile; re-read and decide
		// against the stored state, not the copy we loaded.
		current, err := s.repo.GetByID(p.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == target {
			return current, nil
		}
		return nil, internal.NewTransitionError(string(current.Status), string(target))
	}

	s.logger.Info("payment transition applied",
		"payment_id", p.ID,
		"from", p.Status,
		"to", target,
		"detail", statusDetail)

	if target == paymentmodel.StatusApproved {
		s.activateOnce(ctx, p.ID)
	} else if target.IsFailure() {
		s.eventBus.Publish(ctx, events.NewPaymentFailedEvent(p.ID, string(target), statusDetail))
	}

	return s.repo.GetByID(paymentID)
}

// activateOnce claims the processed flag and runs downstream activation.
// The claim is a conditional write on the stored record (processed_at IS
// NULL), so N concurrent reconciles reaching approved activate exactly
// once; losers observe the claim and no-op.
func (s *Service) activateOnce(ctx context.Context, paymentID string) {
	claimed, err := s.repo.MarkProcessed(paymentID, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to claim processed flag",
			"payment_id", paymentID,
			"error", err)
		return
	}
	if !claimed {
		s.logger.Debug("payment already processed, skipping activation",
			"payment_id", paymentID)
		return
	}

	p, err := s.repo.GetByID(paymentID)
	if err != nil {
		s.logger.Error("failed to reload payment for activation",
			"payment_id", paymentID,
			"error", err)
		return
	}

	profileID, err := s.activator.ActivateForPayment(ctx, p)
	if err != nil {
		// The approval stands: a settled charge is never rolled back over a
		// local activation failure. Left for operational retry.
		s.logger.Error("profile activation failed after approval",
			"payment_id", p.ID,
			"error", err)
		return
	}

	if p.ProfileID == nil || *p.ProfileID != profileID {
		if err := s.repo.AttachProfile(p.ID, profileID); err != nil {
			s.logger.Error("failed to attach profile to payment",
				"payment_id", p.ID,
				"profile_id", profileID,
				"error", err)
		}
	}

	gatewayID := ""
	if p.GatewayID != nil {
		gatewayID = *p.GatewayID
	}

	s.logger.Info("payment activated",
		"payment_id", p.ID,
		"profile_id", profileID)

	s.eventBus.Publish(ctx, events.NewPaymentApprovedEvent(p.ID, profileID, p.AmountCents, string(p.Instrument), gatewayID))
}

// Cancel is legal only while pending; the sweeper and manual cancellation
// both come through here.
func (s *Service) Cancel(ctx context.Context, paymentID, reason string) error {
	p, err := s.repo.GetByID(paymentID)
	if err != nil {
		return err
	}

	if p.Status != paymentmodel.StatusPending {
		return internal.NewTransitionError(string(p.Status), string(paymentmodel.StatusCancelled))
	}

	var failureReason *string
	if reason != "" {
		r := reason
		failureReason = &r
	}

	applied, err := s.repo.UpdateStatusFrom(p.ID, paymentmodel.StatusPending, paymentmodel.StatusCancelled, nil, failureReason)
	if err != nil {
		return internal.NewInternalError("failed to cancel payment", err)
	}
	if !applied {
		current, err := s.repo.GetByID(p.ID)
		if err != nil {
			return err
		}
		if current.Status == paymentmodel.StatusCancelled {
			return nil
		}
		return internal.NewTransitionError(string(current.Status), string(paymentmodel.StatusCancelled))
	}

	s.logger.Info("payment cancelled",
		"payment_id", p.ID,
		"reason", reason)

	s.eventBus.Publish(ctx, events.NewPaymentFailedEvent(p.ID, string(paymentmodel.StatusCancelled), reason))
	return nil
}

// GetStatus is a read-only projection. The gateway-assigned id works as a
// fallback lookup key for callers that only kept the gateway reference.
func (s *Service) GetStatus(ctx context.Context, idOrGatewayID string) (*PaymentView, error) {
	p, err := s.repo.GetByID(idOrGatewayID)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); !ok || appErr.Code != internal.ErrCodePaymentNotFound {
			return nil, err
		}
		p, err = s.repo.GetByGatewayID(idOrGatewayID)
		if err != nil {
			return nil, err
		}
	}
	return ToView(p), nil
}

// Refresh is the poll path: fetch the authoritative gateway status and feed
// it through Reconcile. Used by clients stuck on pending when webhooks are
// delayed or lost.
func (s *Service) Refresh(ctx context.Context, paymentID string) (*PaymentView, error) {
	p, err := s.repo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}

	if p.GatewayID == nil {
		// Charge creation never reached the gateway; nothing to ask.
		return ToView(p), nil
	}

	charge, err := s.gateway.FetchCharge(ctx, *p.GatewayID)
	if err != nil {
		return nil, err
	}

	if _, err := s.Reconcile(ctx, p.ID, charge.Status, charge.StatusDetail); err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Code == internal.ErrCodeInvalidTransition {
			s.logger.Warn("poll observed unapplicable gateway status",
				"payment_id", p.ID,
				"gateway_status", charge.Status)
		} else {
			return nil, err
		}
	}

	current, err := s.repo.GetByID(p.ID)
	if err != nil {
		return nil, err
	}
	return ToView(current), nil
}

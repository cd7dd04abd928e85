package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	gatewaytypes "github.com/frahmantamala/sos-checkout/internal/core/datamodel/gateway"
	paymentmodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/payment"
)

// MapGatewayStatus translates a gateway-reported status into the local
// state. The second return is false for statuses the engine has not
// modeled; those are surfaced as transition errors, never applied blindly.
func MapGatewayStatus(gatewayStatus string) (paymentmodel.Status, bool) {
	switch gatewayStatus {
	case gatewaytypes.StatusPending:
		return paymentmodel.StatusPending, true
	case gatewaytypes.StatusAuthorized:
		return paymentmodel.StatusAuthorized, true
	case gatewaytypes.StatusInProcess:
		return paymentmodel.StatusInProcess, true
	case gatewaytypes.StatusInMediation:
		return paymentmodel.StatusInMediation, true
	case gatewaytypes.StatusApproved:
		return paymentmodel.StatusApproved, true
	case gatewaytypes.StatusRejected:
		return paymentmodel.StatusRejected, true
	case gatewaytypes.StatusCancelled:
		return paymentmodel.StatusCancelled, true
	case gatewaytypes.StatusRefunded:
		return paymentmodel.StatusRefunded, true
	case gatewaytypes.StatusChargedBack:
		return paymentmodel.StatusChargedBack, true
	}
	return "", false
}

// RepositoryAPI is the persistence boundary for payment records. Status
// mutation is conditional on the expected current state so concurrent
// reconciles cannot clobber each other.
type RepositoryAPI interface {
	Create(p *paymentmodel.Payment) error
	GetByID(id string) (*paymentmodel.Payment, error)
	GetByGatewayID(gatewayID string) (*paymentmodel.Payment, error)
	SetGatewayCharge(id, gatewayID string, qrPayload, voucherURL *string, raw json.RawMessage) error
	// UpdateStatusFrom applies from -> to only if the stored status still
	// equals from; reports whether a row was updated.
	UpdateStatusFrom(id string, from, to paymentmodel.Status, raw json.RawMessage, failureReason *string) (bool, error)
	// MarkProcessed stamps processed_at once; reports whether this call
	// claimed it.
	MarkProcessed(id string, at time.Time) (bool, error)
	AttachProfile(id, profileID string) error
	ListExpiredPending(now time.Time, limit int) ([]*paymentmodel.Payment, error)
}

// GatewayAPI is the external charge-processing boundary.
type GatewayAPI interface {
	CreateCharge(ctx context.Context, req *gatewaytypes.ChargeRequest) (*gatewaytypes.Charge, error)
	FetchCharge(ctx context.Context, gatewayID string) (*gatewaytypes.Charge, error)
	VerifyWebhook(body []byte, headers http.Header, dataID string) bool
}

// ActivatorAPI performs the one-time downstream activation: create or load
// the owning profile and mark its subscription active. Invoked by the
// engine only after the processed flag is claimed.
type ActivatorAPI interface {
	ActivateForPayment(ctx context.Context, p *paymentmodel.Payment) (profileID string, err error)
}

// ServiceAPI is the reconciliation engine surface used by HTTP handlers,
// webhook intake and the expiry sweeper.
type ServiceAPI interface {
	Initiate(ctx context.Context, req *CreatePaymentRequest) (*PaymentView, error)
	Reconcile(ctx context.Context, paymentID, gatewayStatus, statusDetail string) (*paymentmodel.Payment, error)
	Cancel(ctx context.Context, paymentID, reason string) error
	GetStatus(ctx context.Context, idOrGatewayID string) (*PaymentView, error)
	Refresh(ctx context.Context, paymentID string) (*PaymentView, error)
}

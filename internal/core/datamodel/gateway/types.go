package gateway

import "encoding/json"

// Gateway-side charge statuses as reported by the MercadoPago API. These are
// mapped onto local payment states by the reconciliation engine; the raw
// strings never leak past it.
const (
	StatusPending     = "pending"
	StatusApproved    = "approved"
	StatusAuthorized  = "authorized"
	StatusInProcess   = "in_process"
	StatusInMediation = "in_mediation"
	StatusRejected    = "rejected"
	StatusCancelled   = "cancelled"
	StatusRefunded    = "refunded"
	StatusChargedBack = "charged_back"
)

// ChargeRequest is what the adapter needs to create one charge. ReferenceID
// is the local payment id; it doubles as the idempotency key so client
// retries cannot double-charge.
type ChargeRequest struct {
	ReferenceID     string
	AmountCents     int64
	Instrument      string
	CardToken       string
	Installments    int
	PayerEmail      string
	PayerName       string
	Description     string
	NotificationURL string
}

// Charge is the gateway's view of one payment, returned by both create and
// fetch. Raw keeps the original body for audit.
type Charge struct {
	GatewayID    string
	Status       string
	StatusDetail string
	QRPayload    string
	VoucherURL   string
	Raw          json.RawMessage
}

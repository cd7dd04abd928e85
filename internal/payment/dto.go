package payment

import (
	"encoding/json"
	"time"

	paymentmodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/payment"
)

// CreatePaymentRequest is the inbound payload for starting one charge.
// Amounts are centavos. Exactly one of ProfileID / Profile identifies the
// profile: an existing draft by id, or the medical form embedded so the
// profile is only created once the payment approves.
type CreatePaymentRequest struct {
	AmountCents  int64           `json:"amount_cents"`
	Instrument   string          `json:"instrument"`
	CardToken    string          `json:"card_token,omitempty"`
	Installments int             `json:"installments,omitempty"`
	ProfileID    string          `json:"profile_id,omitempty"`
	Profile      json.RawMessage `json:"profile,omitempty"`
	PayerEmail   string          `json:"payer_email"`
	PayerName    string          `json:"payer_name,omitempty"`
}

type CancelPaymentRequest struct {
	Reason string `json:"reason,omitempty"`
}

// PaymentView is the read projection returned to callers. Payable marks the
// PIX qualified success: the charge can be paid right now even though the
// gateway has not confirmed settlement yet.
type PaymentView struct {
	ID            string     `json:"id"`
	ProfileID     *string    `json:"profile_id,omitempty"`
	AmountCents   int64      `json:"amount_cents"`
	Instrument    string     `json:"instrument"`
	Installments  int        `json:"installments"`
	Status        string     `json:"status"`
	GatewayID     *string    `json:"gateway_id,omitempty"`
	QRPayload     *string    `json:"qr_payload,omitempty"`
	VoucherURL    *string    `json:"voucher_url,omitempty"`
	Payable       bool       `json:"payable"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func ToView(p *paymentmodel.Payment) *PaymentView {
	return &PaymentView{
		ID:            p.ID,
		ProfileID:     p.ProfileID,
		AmountCents:   p.AmountCents,
		Instrument:    string(p.Instrument),
		Installments:  p.Installments,
		Status:        string(p.Status),
		GatewayID:     p.GatewayID,
		QRPayload:     p.QRPayload,
		VoucherURL:    p.VoucherURL,
		Payable:       p.PayableOffline(),
		FailureReason: p.FailureReason,
		ExpiresAt:     p.ExpiresAt,
		ProcessedAt:   p.ProcessedAt,
		CreatedAt:     p.CreatedAt,
	}
}

package payment

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Status is the local payment state. It only ever changes through a
// transition allowed by CanTransitionTo.
type Status string

const (
	StatusPending     Status = "pending"
	StatusAuthorized  Status = "authorized"
	StatusInProcess   Status = "in_process"
	StatusInMediation Status = "in_mediation"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusCancelled   Status = "cancelled"
	StatusRefunded    Status = "refunded"
	StatusChargedBack Status = "charged_back"
)

type Instrument string

const (
	InstrumentPix        Instrument = "pix"
	InstrumentCreditCard Instrument = "credit_card"
	InstrumentDebitCard  Instrument = "debit_card"
	InstrumentBoleto     Instrument = "boleto"
)

// transitions is the legal edge set. Intermediate gateway states may move
// between each other; mediation is resolved only by the gateway.
var transitions = map[Status][]Status{
	StatusPending:     {StatusAuthorized, StatusInProcess, StatusInMediation, StatusApproved, StatusRejected, StatusCancelled},
	StatusAuthorized:  {StatusInProcess, StatusInMediation, StatusApproved, StatusRejected},
	StatusInProcess:   {StatusAuthorized, StatusInMediation, StatusApproved, StatusRejected},
	StatusInMediation: {StatusApproved, StatusRejected},
	StatusApproved:    {StatusRefunded, StatusChargedBack},
	StatusRejected:    {},
	StatusCancelled:   {},
	StatusRefunded:    {},
	StatusChargedBack: {},
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusRefunded, StatusChargedBack:
		return true
	case StatusApproved:
		// approved is terminal for the payment lifecycle; refund and
		// chargeback are post-success reversals, not a pending state.
		return true
	}
	return false
}

// IsFailure reports whether the state carries a failure reason.
func (s Status) IsFailure() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusChargedBack
}

func ValidInstrument(i Instrument) bool {
	switch i {
	case InstrumentPix, InstrumentCreditCard, InstrumentDebitCard, InstrumentBoleto:
		return true
	}
	return false
}

// ExpiryWindow is the instrument-specific deadline for a pending payment.
// PIX charges expire fast, boleto gives the payer three days to settle.
func ExpiryWindow(i Instrument) time.Duration {
	switch i {
	case InstrumentPix:
		return 30 * time.Minute
	case InstrumentBoleto:
		return 72 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Payment is one attempt to pay for one subscription. Records are never
// deleted; failed and expired attempts are kept for audit.
type Payment struct {
	ID           string     `gorm:"primaryKey"`
	ProfileID    *string    `gorm:"column:profile_id;index"`
	ProfileDraft json.RawMessage `gorm:"column:profile_draft;type:jsonb"`
	AmountCents  int64      `gorm:"column:amount_cents;not null"`
	Instrument   Instrument `gorm:"column:instrument;not null"`
	Installments int        `gorm:"column:installments;default:1"`
	Status       Status     `gorm:"column:status;default:pending;index"`

	GatewayID       *string         `gorm:"column:gateway_id;uniqueIndex"`
	QRPayload       *string         `gorm:"column:qr_payload"`
	VoucherURL      *string         `gorm:"column:voucher_url"`
	GatewayResponse json.RawMessage `gorm:"column:gateway_response;type:jsonb"`
	FailureReason   *string         `gorm:"column:failure_reason"`

	ExpiresAt   time.Time  `gorm:"column:expires_at;not null;index"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;default:now()"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Payment) TableName() string {
	return "payments"
}

// Expired reports whether a still-pending payment is past its deadline.
func (p *Payment) Expired(now time.Time) bool {
	return p.Status == StatusPending && now.After(p.ExpiresAt)
}

// PayableOffline reports the qualified-success case: a PIX charge the user
// can scan and pay right now, even though the gateway has not confirmed
// settlement. Display-only; activation still waits for approval.
func (p *Payment) PayableOffline() bool {
	return p.Instrument == InstrumentPix &&
		p.Status == StatusPending &&
		p.QRPayload != nil && *p.QRPayload != ""
}

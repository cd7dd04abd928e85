package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentApproved  = "payment.approved"
	EventTypePaymentFailed    = "payment.failed"
	EventTypeProfileActivated = "profile.activated"
)

type PaymentApprovedEvent struct {
	BaseEvent
	PaymentID   string `json:"payment_id"`
	ProfileID   string `json:"profile_id"`
	AmountCents int64  `json:"amount_cents"`
	Instrument  string `json:"instrument"`
	GatewayID   string `json:"gateway_id"`
}

func NewPaymentApprovedEvent(paymentID, profileID string, amountCents int64, instrument, gatewayID string) *PaymentApprovedEvent {
	return &PaymentApprovedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentApproved,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":   paymentID,
				"profile_id":   profileID,
				"amount_cents": amountCents,
				"instrument":   instrument,
				"gateway_id":   gatewayID,
			},
		},
		PaymentID:   paymentID,
		ProfileID:   profileID,
		AmountCents: amountCents,
		Instrument:  instrument,
		GatewayID:   gatewayID,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	PaymentID     string `json:"payment_id"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason"`
}

func NewPaymentFailedEvent(paymentID, status, failureReason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"status":         status,
				"failure_reason": failureReason,
			},
		},
		PaymentID:     paymentID,
		Status:        status,
		FailureReason: failureReason,
	}
}

type ProfileActivatedEvent struct {
	BaseEvent
	ProfileID      string `json:"profile_id"`
	SubscriptionID string `json:"subscription_id"`
	Plan           string `json:"plan"`
}

func NewProfileActivatedEvent(profileID, subscriptionID, plan string) *ProfileActivatedEvent {
	return &ProfileActivatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeProfileActivated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"profile_id":      profileID,
				"subscription_id": subscriptionID,
				"plan":            plan,
			},
		},
		ProfileID:      profileID,
		SubscriptionID: subscriptionID,
		Plan:           plan,
	}
}

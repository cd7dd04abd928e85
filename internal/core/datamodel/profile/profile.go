package profile

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type Plan string

const (
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
)

type SubscriptionStatus string

const (
	SubscriptionInactive SubscriptionStatus = "inactive"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

// Profile is the emergency medical profile reached through the QR link.
// Created as a draft before payment or at activation time; its subscription
// is never active until a payment approves.
type Profile struct {
	ID        string    `gorm:"primaryKey"`
	FullName  string    `gorm:"column:full_name;not null"`
	BirthDate time.Time `gorm:"column:birth_date"`
	BloodType string    `gorm:"column:blood_type"`

	Allergies         json.RawMessage `gorm:"column:allergies;type:jsonb"`
	Medications       json.RawMessage `gorm:"column:medications;type:jsonb"`
	MedicalConditions json.RawMessage `gorm:"column:medical_conditions;type:jsonb"`
	EmergencyContacts json.RawMessage `gorm:"column:emergency_contacts;type:jsonb"`

	Plan               Plan               `gorm:"column:plan;default:basic"`
	SubscriptionStatus SubscriptionStatus `gorm:"column:subscription_status;default:inactive;index"`

	// AccessToken is the signed token embedded in the issued QR link.
	AccessToken *string `gorm:"column:access_token"`

	// ManagementSecretHash guards profile edits; the plaintext secret is
	// returned once at creation and never stored.
	ManagementSecretHash string `gorm:"column:management_secret_hash;not null"`

	CreatedAt time.Time      `gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time      `gorm:"column:updated_at;default:now()"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Subscription binds a profile to the payment that activated it. One active
// subscription per profile; renewals create a new row.
type Subscription struct {
	ID        string             `gorm:"primaryKey"`
	ProfileID string             `gorm:"column:profile_id;not null;index"`
	PaymentID string             `gorm:"column:payment_id;not null;uniqueIndex"`
	Plan      Plan               `gorm:"column:plan;not null"`
	Status    SubscriptionStatus `gorm:"column:status;default:active"`
	StartsAt  time.Time          `gorm:"column:starts_at;not null"`
	ExpiresAt time.Time          `gorm:"column:expires_at;not null"`
	CreatedAt time.Time          `gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time          `gorm:"column:updated_at;default:now()"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// PlanForAmount maps the charged amount to a plan tier. R$ 10,00 and up is
// premium, anything below stays basic.
func PlanForAmount(amountCents int64) Plan {
	if amountCents >= 1000 {
		return PlanPremium
	}
	return PlanBasic
}

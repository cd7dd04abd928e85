package profile

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/frahmantamala/sos-checkout/internal"
	profilemodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/profile"
)

type CreateProfileRequest struct {
	FullName  string `json:"full_name"`
	BirthDate string `json:"birth_date"` // YYYY-MM-DD
	BloodType string `json:"blood_type"`

	Allergies         json.RawMessage `json:"allergies,omitempty"`
	Medications       json.RawMessage `json:"medications,omitempty"`
	MedicalConditions json.RawMessage `json:"medical_conditions,omitempty"`
	EmergencyContacts json.RawMessage `json:"emergency_contacts,omitempty"`
}

func (r *CreateProfileRequest) Validate() error {
	if strings.TrimSpace(r.FullName) == "" {
		return internal.NewValidationFieldError("full_name", "full name is required", internal.ErrCodeValidationFailed)
	}
	if r.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", r.BirthDate); err != nil {
			return internal.NewValidationFieldError("birth_date", "birth date must be YYYY-MM-DD", internal.ErrCodeValidationFailed)
		}
	}
	return nil
}

type UpdateProfileRequest struct {
	FullName  *string `json:"full_name,omitempty"`
	BirthDate *string `json:"birth_date,omitempty"`
	BloodType *string `json:"blood_type,omitempty"`

	Allergies         json.RawMessage `json:"allergies,omitempty"`
	Medications       json.RawMessage `json:"medications,omitempty"`
	MedicalConditions json.RawMessage `json:"medical_conditions,omitempty"`
	EmergencyContacts json.RawMessage `json:"emergency_contacts,omitempty"`
}

type ProfileView struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	BirthDate string `json:"birth_date,omitempty"`
	BloodType string `json:"blood_type,omitempty"`

	Allergies         json.RawMessage `json:"allergies,omitempty"`
	Medications       json.RawMessage `json:"medications,omitempty"`
	MedicalConditions json.RawMessage `json:"medical_conditions,omitempty"`
	EmergencyContacts json.RawMessage `json:"emergency_contacts,omitempty"`

	Plan               string  `json:"plan"`
	SubscriptionStatus string  `json:"subscription_status"`
	AccessURL          *string `json:"access_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateProfileResponse carries the management secret exactly once; it is
// never retrievable again.
type CreateProfileResponse struct {
	Profile          *ProfileView `json:"profile"`
	ManagementSecret string       `json:"management_secret"`
}

func ToView(p *profilemodel.Profile, accessURL *string) *ProfileView {
	view := &ProfileView{
		ID:                 p.ID,
		FullName:           p.FullName,
		BloodType:          p.BloodType,
		Allergies:          p.Allergies,
		Medications:        p.Medications,
		MedicalConditions:  p.MedicalConditions,
		EmergencyContacts:  p.EmergencyContacts,
		Plan:               string(p.Plan),
		SubscriptionStatus: string(p.SubscriptionStatus),
		AccessURL:          accessURL,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if !p.BirthDate.IsZero() {
		view.BirthDate = p.BirthDate.Format("2006-01-02")
	}
	return view
}

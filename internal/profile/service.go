package profile

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/sos-checkout/internal"
	paymentmodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/payment"
	profilemodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/profile"
	"github.com/frahmantamala/sos-checkout/internal/core/events"
)

// subscriptionTerm is how long one approved payment keeps a profile active.
const subscriptionTerm = 30 * 24 * time.Hour

type Service struct {
	repo     RepositoryAPI
	eventBus *events.EventBus
	logger   *slog.Logger

	// emergencyBaseURL prefixes the stored access token when building the
	// public view URL, e.g. https://sos.example.com/emergency/.
	emergencyBaseURL string
}

func NewService(repo RepositoryAPI, eventBus *events.EventBus, emergencyBaseURL string, logger *slog.Logger) *Service {
	return &Service{
		repo:             repo,
		eventBus:         eventBus,
		emergencyBaseURL: emergencyBaseURL,
		logger:           logger,
	}
}

// CreateDraft stores a profile before any payment exists. The management
// secret is generated here, hashed for storage and returned exactly once.
func (s *Service) CreateDraft(ctx context.Context, req *CreateProfileRequest) (*CreateProfileResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	secret, hash, err := newManagementSecret()
	if err != nil {
		return nil, internal.NewInternalError("failed to generate management secret", err)
	}

	entity := &profilemodel.Profile{
		ID:                   uuid.New().String(),
		FullName:             req.FullName,
		BloodType:            req.BloodType,
		Allergies:            req.Allergies,
		Medications:          req.Medications,
		MedicalConditions:    req.MedicalConditions,
		EmergencyContacts:    req.EmergencyContacts,
		Plan:                 profilemodel.PlanBasic,
		SubscriptionStatus:   profilemodel.SubscriptionInactive,
		ManagementSecretHash: hash,
	}
	if req.BirthDate != "" {
		entity.BirthDate, _ = time.Parse("2006-01-02", req.BirthDate)
	}

	if err := s.repo.Create(entity); err != nil {
		s.logger.Error("failed to create profile draft", "error", err)
		return nil, internal.NewInternalError("failed to create profile", err)
	}

	s.logger.Info("profile draft created", "profile_id", entity.ID)

	return &CreateProfileResponse{
		Profile:          ToView(entity, nil),
		ManagementSecret: secret,
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*ProfileView, error) {
	entity, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return ToView(entity, s.accessURL(entity)), nil
}

// Update patches profile fields after checking the management secret.
func (s *Service) Update(ctx context.Context, id, managementSecret string, req *UpdateProfileRequest) (*ProfileView, error) {
	entity, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(entity.ManagementSecretHash), []byte(managementSecret)) != nil {
		return nil, internal.ErrInvalidSecret
	}

	if req.FullName != nil {
		entity.FullName = *req.FullName
	}
	if req.BirthDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.BirthDate)
		if err != nil {
			return nil, internal.NewValidationFieldError("birth_date", "birth date must be YYYY-MM-DD", internal.ErrCodeValidationFailed)
		}
		entity.BirthDate = parsed
	}
	if req.BloodType != nil {
		entity.BloodType = *req.BloodType
	}
	if req.Allergies != nil {
		entity.Allergies = req.Allergies
	}
	if req.Medications != nil {
		entity.Medications = req.Medications
	}
	if req.MedicalConditions != nil {
		entity.MedicalConditions = req.MedicalConditions
	}
	if req.EmergencyContacts != nil {
		entity.EmergencyContacts = req.EmergencyContacts
	}

	if err := s.repo.Update(entity); err != nil {
		s.logger.Error("failed to update profile", "profile_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update profile", err)
	}

	return ToView(entity, s.accessURL(entity)), nil
}

func (s *Service) SetAccessToken(ctx context.Context, id, token string) error {
	return s.repo.SetAccessToken(id, token)
}

// draftProfile is the embedded-profile shape carried on a payment created
// without a pre-existing profile. The secret is chosen by the client at
// checkout so it can be shown there; absent, a random one is generated and
// edits stay locked.
type draftProfile struct {
	CreateProfileRequest
	ManagementSecret string `json:"management_secret"`
}

// ActivateForPayment is the downstream half of payment approval: resolve or
// create the profile, flip its subscription on and record the subscription
// row. The engine calls this at most once per payment; the unique payment id
// on subscriptions backstops that.
func (s *Service) ActivateForPayment(ctx context.Context, p *paymentmodel.Payment) (string, error) {
	if existing, err := s.repo.GetSubscriptionByPaymentID(p.ID); err == nil && existing != nil {
		s.logger.Info("payment already has a subscription, skipping activation",
			"payment_id", p.ID,
			"profile_id", existing.ProfileID)
		return existing.ProfileID, nil
	}

	entity, err := s.resolveProfile(p)
	if err != nil {
		return "", err
	}

	plan := profilemodel.PlanForAmount(p.AmountCents)
	if err := s.repo.SetSubscriptionStatus(entity.ID, profilemodel.SubscriptionActive, plan); err != nil {
		return "", fmt.Errorf("activate profile %s: %w", entity.ID, err)
	}

	now := time.Now().UTC()
	subscription := &profilemodel.Subscription{
		ID:        uuid.New().String(),
		ProfileID: entity.ID,
		PaymentID: p.ID,
		Plan:      plan,
		Status:    profilemodel.SubscriptionActive,
		StartsAt:  now,
		ExpiresAt: now.Add(subscriptionTerm),
	}
	if err := s.repo.CreateSubscription(subscription); err != nil {
		// Unique payment_id: a concurrent activation won. Defer to it.
		if existing, lookupErr := s.repo.GetSubscriptionByPaymentID(p.ID); lookupErr == nil && existing != nil {
			return existing.ProfileID, nil
		}
		return "", fmt.Errorf("create subscription for payment %s: %w", p.ID, err)
	}

	s.logger.Info("profile activated",
		"profile_id", entity.ID,
		"payment_id", p.ID,
		"plan", plan,
		"subscription_id", subscription.ID)

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.NewProfileActivatedEvent(entity.ID, subscription.ID, string(plan)))
	}

	return entity.ID, nil
}

func (s *Service) resolveProfile(p *paymentmodel.Payment) (*profilemodel.Profile, error) {
	if p.ProfileID != nil && *p.ProfileID != "" {
		return s.repo.GetByID(*p.ProfileID)
	}

	if len(p.ProfileDraft) == 0 {
		return nil, internal.ErrProfileNotFound
	}

	var draft draftProfile
	if err := json.Unmarshal(p.ProfileDraft, &draft); err != nil {
		return nil, internal.NewInternalError("payment carries an unreadable profile draft", err)
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	secret := draft.ManagementSecret
	if secret == "" {
		generated, _, err := newManagementSecret()
		if err != nil {
			return nil, internal.NewInternalError("failed to generate management secret", err)
		}
		secret = generated
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash management secret", err)
	}

	entity := &profilemodel.Profile{
		ID:                   uuid.New().String(),
		FullName:             draft.FullName,
		BloodType:            draft.BloodType,
		Allergies:            draft.Allergies,
		Medications:          draft.Medications,
		MedicalConditions:    draft.MedicalConditions,
		EmergencyContacts:    draft.EmergencyContacts,
		Plan:                 profilemodel.PlanBasic,
		SubscriptionStatus:   profilemodel.SubscriptionInactive,
		ManagementSecretHash: string(hash),
	}
	if draft.BirthDate != "" {
		entity.BirthDate, _ = time.Parse("2006-01-02", draft.BirthDate)
	}

	if err := s.repo.Create(entity); err != nil {
		return nil, fmt.Errorf("create profile from payment draft: %w", err)
	}

	s.logger.Info("profile created from payment draft",
		"profile_id", entity.ID,
		"payment_id", p.ID)

	return entity, nil
}

func (s *Service) accessURL(p *profilemodel.Profile) *string {
	if p.AccessToken == nil || *p.AccessToken == "" {
		return nil
	}
	url := s.emergencyBaseURL + *p.AccessToken
	return &url
}

func newManagementSecret() (secret, hash string, err error) {
	raw := make([]byte, 16)
	if _, err = rand.Read(raw); err != nil {
		return "", "", err
	}
	secret = hex.EncodeToString(raw)

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return secret, string(hashed), nil
}

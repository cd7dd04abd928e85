package profile

import (
	"context"

	profilemodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/profile"
)

// RepositoryAPI is the persistence boundary for profiles and their
// subscriptions.
type RepositoryAPI interface {
	Create(p *profilemodel.Profile) error
	GetByID(id string) (*profilemodel.Profile, error)
	Update(p *profilemodel.Profile) error
	SetAccessToken(id, token string) error
	SetSubscriptionStatus(id string, status profilemodel.SubscriptionStatus, plan profilemodel.Plan) error

	CreateSubscription(s *profilemodel.Subscription) error
	GetSubscriptionByPaymentID(paymentID string) (*profilemodel.Subscription, error)
}

// ServiceAPI covers profile CRUD plus the one-time activation invoked by
// the payment engine after a charge approves.
type ServiceAPI interface {
	CreateDraft(ctx context.Context, req *CreateProfileRequest) (*CreateProfileResponse, error)
	Get(ctx context.Context, id string) (*ProfileView, error)
	Update(ctx context.Context, id, managementSecret string, req *UpdateProfileRequest) (*ProfileView, error)
	SetAccessToken(ctx context.Context, id, token string) error
}

package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/sos-checkout/internal"
	profilemodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/profile"
	profilepkg "github.com/frahmantamala/sos-checkout/internal/profile"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) profilepkg.RepositoryAPI {
	return &ProfileRepository{
		db: db,
	}
}

func (r *ProfileRepository) Create(p *profilemodel.Profile) error {
	return r.db.Create(p).Error
}

func (r *ProfileRepository) GetByID(id string) (*profilemodel.Profile, error) {
	var p profilemodel.Profile
	err := r.db.Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) Update(p *profilemodel.Profile) error {
	p.UpdatedAt = time.Now().UTC()
	return r.db.Save(p).Error
}

func (r *ProfileRepository) SetAccessToken(id, token string) error {
	result := r.db.Model(&profilemodel.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"access_token": token,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepository) SetSubscriptionStatus(id string, status profilemodel.SubscriptionStatus, plan profilemodel.Plan) error {
	result := r.db.Model(&profilemodel.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"subscription_status": status,
			"plan":                plan,
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepository) CreateSubscription(s *profilemodel.Subscription) error {
	return r.db.Create(s).Error
}

// GetSubscriptionByPaymentID returns (nil, nil) when no subscription
// exists; absence is an expected answer here, not an error.
func (r *ProfileRepository) GetSubscriptionByPaymentID(paymentID string) (*profilemodel.Subscription, error) {
	var s profilemodel.Subscription
	err := r.db.Where("payment_id = ?", paymentID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

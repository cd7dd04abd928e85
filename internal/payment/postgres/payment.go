package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/sos-checkout/internal"
	paymentmodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/payment"
	paymentpkg "github.com/frahmantamala/sos-checkout/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(p *paymentmodel.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id string) (*paymentmodel.Payment, error) {
	var p paymentmodel.Payment
	err := r.db.Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByGatewayID(gatewayID string) (*paymentmodel.Payment, error) {
	var p paymentmodel.Payment
	err := r.db.Where("gateway_id = ?", gatewayID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// SetGatewayCharge stores the gateway-assigned identifier and instrument
// payload. Write-once: a gateway id, once set, never changes. A retried
// write with the same id is a no-op; a different id is an error.
func (r *PaymentRepository) SetGatewayCharge(id, gatewayID string, qrPayload, voucherURL *string, raw json.RawMessage) error {
	updates := map[string]interface{}{
		"gateway_id": gatewayID,
		"updated_at": time.Now().UTC(),
	}
	if qrPayload != nil {
		updates["qr_payload"] = *qrPayload
	}
	if voucherURL != nil {
		updates["voucher_url"] = *voucherURL
	}
	if raw != nil {
		updates["gateway_response"] = raw
	}

	result := r.db.Model(&paymentmodel.Payment{}).
		Where("id = ? AND gateway_id IS NULL", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	existing, err := r.GetByID(id)
	if err != nil {
		return err
	}
	if existing.GatewayID != nil && *existing.GatewayID == gatewayID {
		return nil
	}
	return fmt.Errorf("payment %s already bound to a different gateway charge", id)
}

// UpdateStatusFrom is the compare-and-swap at the heart of reconciliation:
// the row is only touched if its status still equals the expected one, so
// racing updates cannot overwrite each other.
func (r *PaymentRepository) UpdateStatusFrom(id string, from, to paymentmodel.Status, raw json.RawMessage, failureReason *string) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if raw != nil {
		updates["gateway_response"] = raw
	}
	if failureReason != nil {
		updates["failure_reason"] = *failureReason
	}

	result := r.db.Model(&paymentmodel.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkProcessed stamps processed_at once. The IS NULL guard makes the claim
// atomic: of N concurrent callers exactly one sees a row updated.
func (r *PaymentRepository) MarkProcessed(id string, at time.Time) (bool, error) {
	result := r.db.Model(&paymentmodel.Payment{}).
		Where("id = ? AND processed_at IS NULL", id).
		Updates(map[string]interface{}{
			"processed_at": at,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PaymentRepository) AttachProfile(id, profileID string) error {
	return r.db.Model(&paymentmodel.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"profile_id": profileID,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *PaymentRepository) ListExpiredPending(now time.Time, limit int) ([]*paymentmodel.Payment, error) {
	var payments []*paymentmodel.Payment
	err := r.db.
		Where("status = ? AND expires_at < ?", paymentmodel.StatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

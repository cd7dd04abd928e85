package payment

import (
	"fmt"

	"github.com/frahmantamala/sos-checkout/internal"
	paymentmodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/payment"
)

// Amount bounds in centavos. The subscription plans cost R$ 5,00 and
// R$ 10,00; the ceiling guards against fat-fingered amounts.
const (
	MinAmountCents = 500
	MaxAmountCents = 1_000_000

	MaxCardInstallments = 12
)

// ValidateAmount checks the charge amount against the allowed range.
func ValidateAmount(amountCents int64) *internal.AppError {
	if amountCents < MinAmountCents {
		return internal.NewValidationError(
			fmt.Sprintf("amount must be at least %d centavos", MinAmountCents),
			internal.ErrCodeInvalidAmount)
	}
	if amountCents > MaxAmountCents {
		return internal.NewValidationError(
			fmt.Sprintf("amount must not exceed %d centavos", MaxAmountCents),
			internal.ErrCodeInvalidAmount)
	}
	return nil
}

// ValidateInstrument checks the instrument is one we can charge.
func ValidateInstrument(instrument paymentmodel.Instrument) *internal.AppError {
	if !paymentmodel.ValidInstrument(instrument) {
		return internal.NewValidationError(
			fmt.Sprintf("unknown payment instrument %q", instrument),
			internal.ErrCodeInvalidInstrument)
	}
	return nil
}

// ValidateInstallments enforces the instrument/installment matrix: only
// credit cards may split the charge.
func ValidateInstallments(instrument paymentmodel.Instrument, installments int) *internal.AppError {
	if installments < 1 {
		return internal.NewValidationError(
			"installments must be at least 1",
			internal.ErrCodeInvalidInstrument)
	}
	if instrument == paymentmodel.InstrumentCreditCard {
		if installments > MaxCardInstallments {
			return internal.NewValidationError(
				fmt.Sprintf("credit card allows at most %d installments", MaxCardInstallments),
				internal.ErrCodeInvalidInstrument)
		}
		return nil
	}
	if installments > 1 {
		return internal.NewValidationError(
			fmt.Sprintf("instrument %q does not support installments", instrument),
			internal.ErrCodeInvalidInstrument)
	}
	return nil
}

// ValidateCardToken requires a tokenized card for card instruments and
// forbids one anywhere else.
func ValidateCardToken(instrument paymentmodel.Instrument, cardToken string) *internal.AppError {
	card := instrument == paymentmodel.InstrumentCreditCard || instrument == paymentmodel.InstrumentDebitCard
	if card && cardToken == "" {
		return internal.NewValidationError(
			fmt.Sprintf("instrument %q requires a card token", instrument),
			internal.ErrCodeInvalidInstrument)
	}
	if !card && cardToken != "" {
		return internal.NewValidationError(
			fmt.Sprintf("instrument %q does not accept a card token", instrument),
			internal.ErrCodeInvalidInstrument)
	}
	return nil
}

// ValidateCreateRequest runs all consistency checks on a create-payment
// request, before any gateway call. Installments default to 1.
func ValidateCreateRequest(req *CreatePaymentRequest) *internal.AppError {
	if req.Installments == 0 {
		req.Installments = 1
	}

	instrument := paymentmodel.Instrument(req.Instrument)

	if err := ValidateAmount(req.AmountCents); err != nil {
		return err
	}
	if err := ValidateInstrument(instrument); err != nil {
		return err
	}
	if err := ValidateInstallments(instrument, req.Installments); err != nil {
		return err
	}
	if err := ValidateCardToken(instrument, req.CardToken); err != nil {
		return err
	}

	if req.ProfileID == "" && len(req.Profile) == 0 {
		return internal.NewValidationError(
			"either profile_id or an embedded profile is required",
			internal.ErrCodeValidationFailed)
	}
	if req.ProfileID != "" && len(req.Profile) != 0 {
		return internal.NewValidationError(
			"profile_id and an embedded profile are mutually exclusive",
			internal.ErrCodeValidationFailed)
	}
	if req.PayerEmail == "" {
		return internal.NewValidationError(
			"payer_email is required",
			internal.ErrCodeValidationFailed)
	}

	return nil
}

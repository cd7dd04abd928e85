package payment

import (
	"encoding/json"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/sos-checkout/internal"
	paymentmodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/payment"
)

var _ = ginkgo.Describe("Validators", func() {
	ginkgo.Describe("ValidateAmount", func() {
		ginkgo.It("should accept the plan prices", func() {
			gomega.Expect(ValidateAmount(500)).To(gomega.BeNil())
			gomega.Expect(ValidateAmount(1000)).To(gomega.BeNil())
		})

		ginkgo.It("should reject amounts below the floor", func() {
			err := ValidateAmount(300)
			gomega.Expect(err).ToNot(gomega.BeNil())
			gomega.Expect(err.Code).To(gomega.Equal(internal.ErrCodeInvalidAmount))
		})

		ginkgo.It("should reject zero and negative amounts", func() {
			gomega.Expect(ValidateAmount(0)).ToNot(gomega.BeNil())
			gomega.Expect(ValidateAmount(-500)).ToNot(gomega.BeNil())
		})

		ginkgo.It("should reject amounts above the ceiling", func() {
			gomega.Expect(ValidateAmount(1_000_001)).ToNot(gomega.BeNil())
		})

		ginkgo.It("should accept the boundaries", func() {
			gomega.Expect(ValidateAmount(MinAmountCents)).To(gomega.BeNil())
			gomega.Expect(ValidateAmount(MaxAmountCents)).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("ValidateInstrument", func() {
		ginkgo.It("should accept every supported instrument", func() {
			for _, instrument := range []paymentmodel.Instrument{
				paymentmodel.InstrumentPix,
				paymentmodel.InstrumentBoleto,
				paymentmodel.InstrumentCreditCard,
				paymentmodel.InstrumentDebitCard,
			} {
				gomega.Expect(ValidateInstrument(instrument)).To(gomega.BeNil())
			}
		})

		ginkgo.It("should reject anything else", func() {
			err := ValidateInstrument("cash")
			gomega.Expect(err).ToNot(gomega.BeNil())
			gomega.Expect(err.Code).To(gomega.Equal(internal.ErrCodeInvalidInstrument))
		})
	})

	ginkgo.Describe("ValidateInstallments", func() {
		ginkgo.It("should allow up to twelve installments on credit cards", func() {
			gomega.Expect(ValidateInstallments(paymentmodel.InstrumentCreditCard, 1)).To(gomega.BeNil())
			gomega.Expect(ValidateInstallments(paymentmodel.InstrumentCreditCard, 12)).To(gomega.BeNil())
			gomega.Expect(ValidateInstallments(paymentmodel.InstrumentCreditCard, 13)).ToNot(gomega.BeNil())
		})

		ginkgo.It("should refuse installments on any other instrument", func() {
			gomega.Expect(ValidateInstallments(paymentmodel.InstrumentPix, 2)).ToNot(gomega.BeNil())
			gomega.Expect(ValidateInstallments(paymentmodel.InstrumentBoleto, 2)).ToNot(gomega.BeNil())
			gomega.Expect(ValidateInstallments(paymentmodel.InstrumentDebitCard, 2)).ToNot(gomega.BeNil())
		})

		ginkgo.It("should require at least one installment", func() {
			gomega.Expect(ValidateInstallments(paymentmodel.InstrumentCreditCard, 0)).ToNot(gomega.BeNil())
			gomega.Expect(ValidateInstallments(paymentmodel.InstrumentCreditCard, -1)).ToNot(gomega.BeNil())
		})
	})

	ginkgo.Describe("ValidateCardToken", func() {
		ginkgo.It("should require a token for card instruments", func() {
			gomega.Expect(ValidateCardToken(paymentmodel.InstrumentCreditCard, "")).ToNot(gomega.BeNil())
			gomega.Expect(ValidateCardToken(paymentmodel.InstrumentDebitCard, "")).ToNot(gomega.BeNil())
			gomega.Expect(ValidateCardToken(paymentmodel.InstrumentCreditCard, "tok-1")).To(gomega.BeNil())
		})

		ginkgo.It("should forbid a token elsewhere", func() {
			gomega.Expect(ValidateCardToken(paymentmodel.InstrumentPix, "tok-1")).ToNot(gomega.BeNil())
			gomega.Expect(ValidateCardToken(paymentmodel.InstrumentBoleto, "tok-1")).ToNot(gomega.BeNil())
			gomega.Expect(ValidateCardToken(paymentmodel.InstrumentPix, "")).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("ValidateCreateRequest", func() {
		valid := func() *CreatePaymentRequest {
			return &CreatePaymentRequest{
				AmountCents: 500,
				Instrument:  "pix",
				Profile:     json.RawMessage(`{"full_name":"Ana"}`),
				PayerEmail:  "ana@example.com",
			}
		}

		ginkgo.It("should accept a complete request and default installments", func() {
			req := valid()
			gomega.Expect(ValidateCreateRequest(req)).To(gomega.BeNil())
			gomega.Expect(req.Installments).To(gomega.Equal(1))
		})

		ginkgo.It("should require a profile reference or an embedded profile", func() {
			req := valid()
			req.Profile = nil
			gomega.Expect(ValidateCreateRequest(req)).ToNot(gomega.BeNil())
		})

		ginkgo.It("should refuse both a profile id and an embedded profile", func() {
			req := valid()
			req.ProfileID = "profile-1"
			gomega.Expect(ValidateCreateRequest(req)).ToNot(gomega.BeNil())
		})

		ginkgo.It("should require the payer email", func() {
			req := valid()
			req.PayerEmail = ""
			gomega.Expect(ValidateCreateRequest(req)).ToNot(gomega.BeNil())
		})
	})
})

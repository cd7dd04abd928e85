package payment

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/sos-checkout/internal"
	"github.com/frahmantamala/sos-checkout/internal/core/events"
	gatewaytypes "github.com/frahmantamala/sos-checkout/internal/core/datamodel/gateway"
	paymentmodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/payment"
	"github.com/frahmantamala/sos-checkout/internal/transport"
)

var _ = ginkgo.Describe("WebhookHandler", func() {
	var (
		repo      *memoryRepo
		gw        *fakeGateway
		activator *fakeActivator
		service   *Service
		handler   *WebhookHandler
		paymentID string
	)

	notify := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewBufferString(body))
		req.Header.Set("x-signature", "ts=1,v1=deadbeef")
		req.Header.Set("x-request-id", "req-1")
		rec := httptest.NewRecorder()
		handler.HandleGatewayNotification(rec, req)
		return rec
	}

	ginkgo.BeforeEach(func() {
		repo = newMemoryRepo()
		gw = &fakeGateway{
			createCharge: &gatewaytypes.Charge{
				GatewayID: "mp-100",
				Status:    gatewaytypes.StatusPending,
				QRPayload: "00020126pix",
			},
			fetchCharge: &gatewaytypes.Charge{
				GatewayID: "mp-100",
				Status:    gatewaytypes.StatusApproved,
			},
			verifyOK: true,
		}
		activator = &fakeActivator{profileID: "profile-1"}
		service = NewService(repo, gw, activator, events.NewEventBus(testLogger()), "", testLogger())

		// Synchronous intake keeps the whole pipeline on the test goroutine.
		intake := NewIntake(IntakeConfig{Synchronous: true}, gw, service, testLogger())
		handler = NewWebhookHandler(transport.NewBaseHandler(testLogger()), gw, intake, testLogger())

		view, err := service.Initiate(context.Background(), &CreatePaymentRequest{
			AmountCents: 500,
			Instrument:  "pix",
			Profile:     []byte(`{"full_name":"Ana"}`),
			PayerEmail:  "ana@example.com",
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		paymentID = view.ID
	})

	ginkgo.It("should reject a notification with a bad signature", func() {
		gw.verifyOK = false

		rec := notify(`{"type":"payment","data":{"id":"mp-100"}}`)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(gw.fetchCalls).To(gomega.Equal(0))

		p, err := repo.GetByID(paymentID)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(p.Status).To(gomega.Equal(paymentmodel.StatusPending))
	})

	ginkgo.It("should acknowledge and reconcile an authenticated notification", func() {
		rec := notify(`{"action":"payment.updated","type":"payment","data":{"id":"mp-100"}}`)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

		p, err := repo.GetByID(paymentID)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(p.Status).To(gomega.Equal(paymentmodel.StatusApproved))
		gomega.Expect(activator.callCount()).To(gomega.Equal(1))
	})

	ginkgo.It("should handle duplicate deliveries without re-activating", func() {
		body := `{"type":"payment","data":{"id":"mp-100"}}`

		gomega.Expect(notify(body).Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(notify(body).Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(notify(body).Code).To(gomega.Equal(http.StatusOK))

		p, err := repo.GetByID(paymentID)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(p.Status).To(gomega.Equal(paymentmodel.StatusApproved))
		gomega.Expect(activator.callCount()).To(gomega.Equal(1))
	})

	ginkgo.It("should accept and ignore non-payment notifications", func() {
		rec := notify(`{"type":"plan","data":{"id":"plan-1"}}`)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(gw.fetchCalls).To(gomega.Equal(0))
	})

	ginkgo.It("should accept an authenticated notification without a charge id", func() {
		rec := notify(`{"type":"payment"}`)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(gw.fetchCalls).To(gomega.Equal(0))
	})

	ginkgo.It("should read the charge id from the query string", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback?data.id=mp-100", bytes.NewBufferString(`{}`))
		req.Header.Set("x-signature", "ts=1,v1=deadbeef")
		rec := httptest.NewRecorder()
		handler.HandleGatewayNotification(rec, req)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

		p, err := repo.GetByID(paymentID)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(p.Status).To(gomega.Equal(paymentmodel.StatusApproved))
	})

	ginkgo.It("should still return 200 when the gateway fetch fails", func() {
		gw.fetchErr = internal.NewGatewayError("fetch timeout", nil)

		rec := notify(`{"type":"payment","data":{"id":"mp-100"}}`)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

		p, err := repo.GetByID(paymentID)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(p.Status).To(gomega.Equal(paymentmodel.StatusPending))
	})
})

package payment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/sos-checkout/internal"
	"github.com/frahmantamala/sos-checkout/internal/core/events"
	gatewaytypes "github.com/frahmantamala/sos-checkout/internal/core/datamodel/gateway"
	"github.com/frahmantamala/sos-checkout/internal/transport"
)

var _ = ginkgo.Describe("Handler", func() {
	var (
		repo   *memoryRepo
		gw     *fakeGateway
		router *chi.Mux
	)

	ginkgo.BeforeEach(func() {
		repo = newMemoryRepo()
		gw = &fakeGateway{
			createCharge: &gatewaytypes.Charge{
				GatewayID: "mp-100",
				Status:    gatewaytypes.StatusPending,
				QRPayload: "00020126pix",
			},
			verifyOK: true,
		}
		activator := &fakeActivator{profileID: "profile-1"}
		service := NewService(repo, gw, activator, events.NewEventBus(testLogger()), "", testLogger())
		handler := NewHandler(transport.NewBaseHandler(testLogger()), service, testLogger())

		router = chi.NewRouter()
		router.Post("/payments", handler.CreatePayment)
		router.Get("/payments/{id}", handler.GetPayment)
		router.Post("/payments/{id}/refresh", handler.RefreshPayment)
		router.Post("/payments/{id}/cancel", handler.CancelPayment)
	})

	createPayment := func() *PaymentView {
		body := `{"amount_cents":500,"instrument":"pix","payer_email":"ana@example.com","profile":{"full_name":"Ana"}}`
		req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))

		var view PaymentView
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &view)).To(gomega.Succeed())
		return &view
	}

	ginkgo.Describe("CreatePayment", func() {
		ginkgo.It("should create a pending PIX payment", func() {
			view := createPayment()
			gomega.Expect(view.Status).To(gomega.Equal("pending"))
			gomega.Expect(view.Payable).To(gomega.BeTrue())
		})

		ginkgo.It("should return 400 on a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString("{not json"))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("should return 400 on a rejected amount", func() {
			body := `{"amount_cents":300,"instrument":"pix","payer_email":"ana@example.com","profile":{"full_name":"Ana"}}`
			req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("should return 502 when the gateway is down", func() {
			gw.createErr = internal.NewGatewayError("connect timeout", nil)

			body := `{"amount_cents":500,"instrument":"pix","payer_email":"ana@example.com","profile":{"full_name":"Ana"}}`
			req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadGateway))
		})
	})

	ginkgo.Describe("GetPayment", func() {
		ginkgo.It("should return the payment by id", func() {
			view := createPayment()

			req := httptest.NewRequest(http.MethodGet, "/payments/"+view.ID, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("should return 404 for an unknown id", func() {
			req := httptest.NewRequest(http.MethodGet, "/payments/nope", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNotFound))
		})
	})

	ginkgo.Describe("RefreshPayment", func() {
		ginkgo.It("should apply the re-fetched gateway status", func() {
			view := createPayment()
			gw.fetchCharge = &gatewaytypes.Charge{
				GatewayID: "mp-100",
				Status:    gatewaytypes.StatusApproved,
			}

			req := httptest.NewRequest(http.MethodPost, "/payments/"+view.ID+"/refresh", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

			var refreshed PaymentView
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &refreshed)).To(gomega.Succeed())
			gomega.Expect(refreshed.Status).To(gomega.Equal("approved"))
		})
	})

	ginkgo.Describe("CancelPayment", func() {
		ginkgo.It("should cancel a pending payment", func() {
			view := createPayment()

			req := httptest.NewRequest(http.MethodPost, "/payments/"+view.ID+"/cancel", bytes.NewBufferString(`{"reason":"changed my mind"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

			stored, err := repo.GetByID(view.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(*stored.FailureReason).To(gomega.Equal("changed my mind"))
		})

		ginkgo.It("should return 409 once the payment approved", func() {
			view := createPayment()
			gw.fetchCharge = &gatewaytypes.Charge{GatewayID: "mp-100", Status: gatewaytypes.StatusApproved}

			refresh := httptest.NewRequest(http.MethodPost, "/payments/"+view.ID+"/refresh", nil)
			router.ServeHTTP(httptest.NewRecorder(), refresh)

			req := httptest.NewRequest(http.MethodPost, "/payments/"+view.ID+"/cancel", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusConflict))
		})
	})
})

package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/sos-checkout/internal"
	gatewaytypes "github.com/frahmantamala/sos-checkout/internal/core/datamodel/gateway"
)

func TestGatewayClient(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Gateway Client Suite")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ = ginkgo.Describe("Client", func() {
	var (
		server *httptest.Server
		client *Client
	)

	newClient := func(handler http.HandlerFunc) {
		server = httptest.NewServer(handler)
		client = NewClient(Config{
			BaseURL:       server.URL,
			AccessToken:   "test-token",
			WebhookSecret: "webhook-secret",
			Timeout:       2 * time.Second,
		}, testLogger())
	}

	ginkgo.AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	ginkgo.Describe("CreateCharge", func() {
		ginkgo.It("should send auth, idempotency key and decimal amount", func() {
			var gotAuth, gotIdempotency string
			var gotBody map[string]interface{}

			newClient(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotIdempotency = r.Header.Get("X-Idempotency-Key")
				_ = json.NewDecoder(r.Body).Decode(&gotBody)

				w.WriteHeader(http.StatusCreated)
				fmt.Fprint(w, `{"id":123456,"status":"pending","point_of_interaction":{"transaction_data":{"qr_code":"00020126pix"}}}`)
			})

			charge, err := client.CreateCharge(context.Background(), &gatewaytypes.ChargeRequest{
				ReferenceID: "pay-1",
				AmountCents: 500,
				Instrument:  "pix",
				PayerEmail:  "ana@example.com",
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(gotAuth).To(gomega.Equal("Bearer test-token"))
			gomega.Expect(gotIdempotency).To(gomega.Equal("pay-1"))
			gomega.Expect(gotBody["transaction_amount"]).To(gomega.Equal(5.0))
			gomega.Expect(gotBody["payment_method_id"]).To(gomega.Equal("pix"))
			gomega.Expect(gotBody["external_reference"]).To(gomega.Equal("pay-1"))

			gomega.Expect(charge.GatewayID).To(gomega.Equal("123456"))
			gomega.Expect(charge.Status).To(gomega.Equal("pending"))
			gomega.Expect(charge.QRPayload).To(gomega.Equal("00020126pix"))
		})

		ginkgo.It("should map boleto to its method id and parse the voucher URL", func() {
			newClient(func(w http.ResponseWriter, r *http.Request) {
				var body map[string]interface{}
				_ = json.NewDecoder(r.Body).Decode(&body)
				gomega.Expect(body["payment_method_id"]).To(gomega.Equal("bolbradesco"))

				w.WriteHeader(http.StatusCreated)
				fmt.Fprint(w, `{"id":7,"status":"pending","transaction_details":{"external_resource_url":"https://gateway.example/boleto/7"}}`)
			})

			charge, err := client.CreateCharge(context.Background(), &gatewaytypes.ChargeRequest{
				ReferenceID: "pay-2",
				AmountCents: 1000,
				Instrument:  "boleto",
				PayerEmail:  "ana@example.com",
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(charge.VoucherURL).To(gomega.Equal("https://gateway.example/boleto/7"))
		})

		ginkgo.It("should return a gateway error on a 5xx", func() {
			newClient(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			})

			_, err := client.CreateCharge(context.Background(), &gatewaytypes.ChargeRequest{
				ReferenceID: "pay-3",
				AmountCents: 500,
				Instrument:  "pix",
				PayerEmail:  "ana@example.com",
			})

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Code).To(gomega.Equal(internal.ErrCodeGatewayUnavailable))
		})

		ginkgo.It("should return a gateway error when unreachable", func() {
			client = NewClient(Config{
				BaseURL:       "http://127.0.0.1:1",
				AccessToken:   "test-token",
				WebhookSecret: "webhook-secret",
				Timeout:       200 * time.Millisecond,
			}, testLogger())

			_, err := client.CreateCharge(context.Background(), &gatewaytypes.ChargeRequest{
				ReferenceID: "pay-4",
				AmountCents: 500,
				Instrument:  "pix",
				PayerEmail:  "ana@example.com",
			})

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Code).To(gomega.Equal(internal.ErrCodeGatewayUnavailable))
		})
	})

	ginkgo.Describe("FetchCharge", func() {
		ginkgo.It("should fetch by gateway id", func() {
			var gotPath string
			newClient(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				fmt.Fprint(w, `{"id":123456,"status":"approved","status_detail":"accredited"}`)
			})

			charge, err := client.FetchCharge(context.Background(), "123456")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(gotPath).To(gomega.Equal("/v1/payments/123456"))
			gomega.Expect(charge.Status).To(gomega.Equal("approved"))
			gomega.Expect(charge.StatusDetail).To(gomega.Equal("accredited"))
		})
	})

	ginkgo.Describe("VerifyWebhook", func() {
		const secret = "webhook-secret"

		sign := func(dataID, requestID, ts string) string {
			manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
			mac := hmac.New(sha256.New, []byte(secret))
			mac.Write([]byte(manifest))
			return hex.EncodeToString(mac.Sum(nil))
		}

		ginkgo.BeforeEach(func() {
			newClient(func(w http.ResponseWriter, r *http.Request) {})
		})

		ginkgo.It("should accept a correctly signed notification", func() {
			headers := http.Header{}
			headers.Set("x-request-id", "req-1")
			headers.Set("x-signature", "ts=1700000000,v1="+sign("123456", "req-1", "1700000000"))

			gomega.Expect(client.VerifyWebhook(nil, headers, "123456")).To(gomega.BeTrue())
		})

		ginkgo.It("should lowercase the data id before signing", func() {
			headers := http.Header{}
			headers.Set("x-request-id", "req-1")
			headers.Set("x-signature", "ts=1700000000,v1="+sign("abc123", "req-1", "1700000000"))

			gomega.Expect(client.VerifyWebhook(nil, headers, "ABC123")).To(gomega.BeTrue())
		})

		ginkgo.It("should reject a tampered signature", func() {
			headers := http.Header{}
			headers.Set("x-request-id", "req-1")
			headers.Set("x-signature", "ts=1700000000,v1="+sign("123456", "req-1", "1700000000"))

			gomega.Expect(client.VerifyWebhook(nil, headers, "654321")).To(gomega.BeFalse())
		})

		ginkgo.It("should reject a missing signature header", func() {
			headers := http.Header{}
			headers.Set("x-request-id", "req-1")

			gomega.Expect(client.VerifyWebhook(nil, headers, "123456")).To(gomega.BeFalse())
		})

		ginkgo.It("should reject a non-numeric timestamp", func() {
			headers := http.Header{}
			headers.Set("x-request-id", "req-1")
			headers.Set("x-signature", "ts=notanumber,v1=deadbeef")

			gomega.Expect(client.VerifyWebhook(nil, headers, "123456")).To(gomega.BeFalse())
		})

		ginkgo.It("should reject when the data id is missing", func() {
			headers := http.Header{}
			headers.Set("x-request-id", "req-1")
			headers.Set("x-signature", "ts=1700000000,v1="+sign("", "req-1", "1700000000"))

			gomega.Expect(client.VerifyWebhook(nil, headers, "")).To(gomega.BeFalse())
		})
	})
})

package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/sos-checkout/internal"
	gatewaytypes "github.com/frahmantamala/sos-checkout/internal/core/datamodel/gateway"
	paymentmodel "github.com/frahmantamala/sos-checkout/internal/core/datamodel/payment"
)

type Config struct {
	BaseURL       string
	AccessToken   string
	WebhookSecret string
	Timeout       time.Duration
}

// Client talks to the MercadoPago payments API. Every call carries a bounded
// timeout; on timeout the caller's local record is left as it was, a status
// is never guessed from a failed call.
type Client struct {
	baseURL       string
	accessToken   string
	webhookSecret []byte
	timeout       time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		accessToken:   cfg.AccessToken,
		webhookSecret: []byte(cfg.WebhookSecret),
		timeout:       timeout,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// chargeBody is the wire shape of a charge creation request. Amounts go out
// as BRL decimals, which is what the API expects.
type chargeBody struct {
	TransactionAmount float64    `json:"transaction_amount"`
	PaymentMethodID   string     `json:"payment_method_id"`
	Token             string     `json:"token,omitempty"`
	Installments      int        `json:"installments,omitempty"`
	Description       string     `json:"description,omitempty"`
	ExternalReference string     `json:"external_reference"`
	NotificationURL   string     `json:"notification_url,omitempty"`
	Payer             chargePayer `json:"payer"`
}

type chargePayer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

type chargeResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	StatusDetail       string      `json:"status_detail"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode string `json:"qr_code"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
	TransactionDetails struct {
		ExternalResourceURL string `json:"external_resource_url"`
	} `json:"transaction_details"`
}

func methodID(instrument string) string {
	switch paymentmodel.Instrument(instrument) {
	case paymentmodel.InstrumentPix:
		return "pix"
	case paymentmodel.InstrumentBoleto:
		return "bolbradesco"
	default:
		// card instruments carry the concrete brand inside the card token;
		// the method id is resolved gateway-side from it.
		return ""
	}
}

// CreateCharge registers one charge. The local payment id is sent both as
// external reference and idempotency key, so a retried create for the same
// record can never charge twice.
func (c *Client) CreateCharge(ctx context.Context, req *gatewaytypes.ChargeRequest) (*gatewaytypes.Charge, error) {
	body := chargeBody{
		TransactionAmount: float64(req.AmountCents) / 100,
		PaymentMethodID:   methodID(req.Instrument),
		Token:             req.CardToken,
		Installments:      req.Installments,
		Description:       req.Description,
		ExternalReference: req.ReferenceID,
		NotificationURL:   req.NotificationURL,
		Payer: chargePayer{
			Email:     req.PayerEmail,
			FirstName: req.PayerName,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal charge request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payments", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("X-Idempotency-Key", req.ReferenceID)

	c.logger.Info("creating gateway charge",
		"reference_id", req.ReferenceID,
		"instrument", req.Instrument,
		"amount_cents", req.AmountCents)

	return c.do(httpReq)
}

// FetchCharge returns the authoritative current state of a charge. This is
// what webhook intake and status polls trust, never the webhook body.
func (c *Client) FetchCharge(ctx context.Context, gatewayID string) (*gatewaytypes.Charge, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, gatewayID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	return c.do(httpReq)
}

func (c *Client) do(req *http.Request) (*gatewaytypes.Charge, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("gateway request failed", "url", req.URL.Path, "error", err)
		return nil, internal.NewGatewayError("payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, internal.NewGatewayError("failed to read gateway response", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Error("gateway returned server error",
			"status", resp.StatusCode,
			"response", string(respBody))
		return nil, internal.NewGatewayError(fmt.Sprintf("gateway error: status %d", resp.StatusCode), nil)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("gateway rejected request",
			"status", resp.StatusCode,
			"response", string(respBody))
		return nil, internal.NewGatewayError(fmt.Sprintf("gateway rejected request: status %d", resp.StatusCode), nil)
	}

	var parsed chargeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, internal.NewGatewayError("failed to decode gateway response", err)
	}

	return &gatewaytypes.Charge{
		GatewayID:    parsed.ID.String(),
		Status:       parsed.Status,
		StatusDetail: parsed.StatusDetail,
		QRPayload:    parsed.PointOfInteraction.TransactionData.QRCode,
		VoucherURL:   parsed.TransactionDetails.ExternalResourceURL,
		Raw:          respBody,
	}, nil
}

// VerifyWebhook checks the x-signature header on an inbound notification.
// The signed manifest is id:{data.id};request-id:{x-request-id};ts:{ts};
// HMAC-SHA256 with the shared webhook secret.
func (c *Client) VerifyWebhook(body []byte, headers http.Header, dataID string) bool {
	if len(c.webhookSecret) == 0 {
		return false
	}

	signature := headers.Get("x-signature")
	requestID := headers.Get("x-request-id")
	if signature == "" || dataID == "" {
		return false
	}

	var ts, v1 string
	for _, part := range strings.Split(signature, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			v1 = value
		}
	}
	if ts == "" || v1 == "" {
		return false
	}
	if _, err := strconv.ParseInt(ts, 10, 64); err != nil {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(dataID), requestID, ts)

	mac := hmac.New(sha256.New, c.webhookSecret)
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(v1))
}

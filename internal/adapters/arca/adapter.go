package arca

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// SignatureHeader carries the webhook signature on inbound Arca callbacks.
const SignatureHeader = "x-arca-signature"

const requestTimeout = 30 * time.Second

// Config holds Arca API credentials. The adapter is configured only when
// both keys are present.
type Config struct {
	APIKey        string
	SecretKey     string
	WebhookSecret string
	BaseURL       string
}

// Configured reports whether the credential set is complete.
func (c Config) Configured() bool {
	return c.APIKey != "" && c.SecretKey != ""
}

// Adapter implements ports.GatewayAdapter for the Arca payment gateway.
// Arca speaks minor currency units (kobo); all conversion is exact integer
// arithmetic on decimals.
type Adapter struct {
	config     Config
	httpClient ports.HTTPClient
	logger     ports.Logger
}

// NewAdapter creates a new Arca adapter with dependency injection
func NewAdapter(config Config, httpClient ports.HTTPClient, logger ports.Logger) *Adapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Adapter{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
}

type initializeRequest struct {
	Amount      int64             `json:"amount"` // kobo
	Email       string            `json:"email"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    verifyData
}

type verifyData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"` // kobo
	Currency  string `json:"currency"`
	PaidAt    string `json:"paid_at"`
	Channel   string `json:"channel"`
}

type webhookEnvelope struct {
	Event string     `json:"event"`
	Data  verifyData `json:"data"`
}

// Initiate implements ports.GatewayAdapter.Initiate
func (a *Adapter) Initiate(ctx context.Context, req *ports.InitiateRequest) (*ports.InitiateResult, error) {
	kobo, err := toKobo(req.Amount)
	if err != nil {
		return nil, err
	}

	payload := initializeRequest{
		Amount:      kobo,
		Email:       req.Email,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	}

	var resp initializeResponse
	if err := a.makeRequest(ctx, http.MethodPost, "/transaction/initialize", payload, &resp, nil); err != nil {
		return nil, err
	}

	if !resp.Status {
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayRejected, resp.Message).
			WithDetail("reference", req.Reference)
	}

	a.logger.Info("arca payment initialized",
		ports.String("reference", req.Reference),
		ports.String("access_code", resp.Data.AccessCode))

	return &ports.InitiateResult{
		AuthorizationURL:  resp.Data.AuthorizationURL,
		AccessCode:        resp.Data.AccessCode,
		ProviderReference: resp.Data.Reference,
	}, nil
}

// Verify implements ports.GatewayAdapter.Verify
func (a *Adapter) Verify(ctx context.Context, reference string) (*ports.VerificationResult, error) {
	var resp verifyResponse
	var raw []byte
	endpoint := fmt.Sprintf("/transaction/verify/%s", reference)
	if err := a.makeRequest(ctx, http.MethodGet, endpoint, nil, &resp, &raw); err != nil {
		return nil, err
	}

	result := toVerification(resp.Data, raw)
	if !resp.Status && result.Status != ports.VerificationFailed {
		// Provider answered but could not resolve the transaction yet.
		result.Status = ports.VerificationPending
		result.Message = resp.Message
	}
	return result, nil
}

// VerifyWebhook implements ports.GatewayAdapter.VerifyWebhook. Arca signs the
// raw body with HMAC-SHA512 using the shared webhook secret.
func (a *Adapter) VerifyWebhook(rawBody []byte, signature string) ports.WebhookResult {
	if a.config.WebhookSecret == "" {
		a.logger.Warn("arca webhook secret not configured")
		return ports.WebhookResult{}
	}

	mac := hmac.New(sha512.New, []byte(a.config.WebhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ports.WebhookResult{}
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		a.logger.Warn("arca webhook payload unparseable", ports.Err(err))
		return ports.WebhookResult{}
	}

	// The event name is not trusted on its own; the embedded charge status
	// decides. A charge.success envelope wrapping a failed charge stays failed.
	verification := toVerification(envelope.Data, rawBody)

	return ports.WebhookResult{
		Valid:        true,
		Event:        envelope.Event,
		Reference:    envelope.Data.Reference,
		Verification: verification,
	}
}

// toKobo converts a major-unit amount to kobo without going through floats.
func toKobo(amount decimal.Decimal) (int64, error) {
	kobo := amount.Shift(2)
	if !kobo.IsInteger() {
		return 0, domain.NewDomainError(domain.ErrorCodeAmountInvalid, "amount has sub-kobo precision").
			WithDetail("amount", amount.String())
	}
	return kobo.IntPart(), nil
}

// fromKobo converts a kobo amount back to major units exactly.
func fromKobo(kobo int64) decimal.Decimal {
	return decimal.NewFromInt(kobo).Shift(-2)
}

func toVerification(data verifyData, raw []byte) *ports.VerificationResult {
	result := &ports.VerificationResult{
		Status:      mapStatus(data.Status),
		Reference:   data.Reference,
		Amount:      fromKobo(data.Amount),
		Currency:    data.Currency,
		Channel:     data.Channel,
		RawResponse: raw,
	}
	if data.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, data.PaidAt); err == nil {
			paidAt := t.UTC()
			result.PaidAt = &paidAt
		}
	}
	return result
}

func mapStatus(status string) ports.VerificationStatus {
	switch status {
	case "success":
		return ports.VerificationSuccessful
	case "failed", "abandoned", "reversed":
		return ports.VerificationFailed
	default:
		return ports.VerificationPending
	}
}

// makeRequest makes an HTTP request to the Arca API with bearer authentication
func (a *Adapter) makeRequest(ctx context.Context, method, endpoint string, request interface{}, response interface{}, rawOut *[]byte) error {
	var body io.Reader
	if request != nil {
		payloadBytes, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payloadBytes)
	}

	url := a.config.BaseURL + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.config.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeGatewayUnavailable, "failed to reach arca", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeGatewayUnavailable, "failed to read arca response", err)
	}
	if rawOut != nil {
		*rawOut = respBody
	}

	if httpResp.StatusCode >= 500 {
		return domain.NewDomainError(domain.ErrorCodeGatewayUnavailable, "arca gateway error").
			WithDetail("status_code", httpResp.StatusCode)
	}
	if httpResp.StatusCode >= 400 {
		return domain.NewDomainError(domain.ErrorCodeGatewayRejected, gatewayMessage(respBody)).
			WithDetail("status_code", httpResp.StatusCode)
	}

	if err := json.Unmarshal(respBody, response); err != nil {
		return fmt.Errorf("unmarshal arca response: %w", err)
	}
	return nil
}

func gatewayMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}
	return "request rejected by gateway"
}

package flutterwave

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
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

// SignatureHeader carries the webhook hash on inbound Flutterwave callbacks.
const SignatureHeader = "verif-hash"

const requestTimeout = 30 * time.Second

// Config holds Flutterwave API credentials.
type Config struct {
	PublicKey string
	SecretKey string
	BaseURL   string
}

// Configured reports whether the credential set is complete.
func (c Config) Configured() bool {
	return c.PublicKey != "" && c.SecretKey != ""
}

// Adapter implements ports.GatewayAdapter for Flutterwave. Unlike Arca,
// Flutterwave exchanges amounts in major currency units.
type Adapter struct {
	config     Config
	httpClient ports.HTTPClient
	logger     ports.Logger
}

// NewAdapter creates a new Flutterwave adapter with dependency injection
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

type paymentRequest struct {
	TxRef       string          `json:"tx_ref"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	RedirectURL string          `json:"redirect_url,omitempty"`
	Customer    customer        `json:"customer"`
	Meta        map[string]string `json:"meta,omitempty"`
}

type customer struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phonenumber,omitempty"`
	Name        string `json:"name,omitempty"`
}

type paymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

type transactionData struct {
	TxRef       string          `json:"tx_ref"`
	FlwRef      string          `json:"flw_ref"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	CreatedAt   string          `json:"created_at"`
	PaymentType string          `json:"payment_type"`
}

type verifyResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    transactionData `json:"data"`
}

type webhookEnvelope struct {
	Event string          `json:"event"`
	Data  transactionData `json:"data"`
}

// Initiate implements ports.GatewayAdapter.Initiate
func (a *Adapter) Initiate(ctx context.Context, req *ports.InitiateRequest) (*ports.InitiateResult, error) {
	payload := paymentRequest{
		TxRef:       req.Reference,
		Amount:      req.Amount,
		Currency:    req.Currency,
		RedirectURL: req.CallbackURL,
		Customer: customer{
			Email:       req.Email,
			PhoneNumber: req.CustomerPhone,
			Name:        req.CustomerName,
		},
		Meta: req.Metadata,
	}

	var resp paymentResponse
	if err := a.makeRequest(ctx, http.MethodPost, "/payments", payload, &resp, nil); err != nil {
		return nil, err
	}

	if resp.Status != "success" {
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayRejected, resp.Message).
			WithDetail("reference", req.Reference)
	}

	a.logger.Info("flutterwave payment initialized",
		ports.String("reference", req.Reference))

	// Flutterwave has no separate access code; the hosted link is both.
	return &ports.InitiateResult{
		AuthorizationURL:  resp.Data.Link,
		AccessCode:        resp.Data.Link,
		ProviderReference: req.Reference,
	}, nil
}

// Verify implements ports.GatewayAdapter.Verify. Lookup is by our tx_ref so
// the sweep does not need the provider's own transaction id.
func (a *Adapter) Verify(ctx context.Context, reference string) (*ports.VerificationResult, error) {
	var resp verifyResponse
	var raw []byte
	endpoint := fmt.Sprintf("/transactions/verify_by_reference?tx_ref=%s", reference)
	if err := a.makeRequest(ctx, http.MethodGet, endpoint, nil, &resp, &raw); err != nil {
		return nil, err
	}

	result := toVerification(resp.Data, raw)
	if resp.Status != "success" && result.Status != ports.VerificationFailed {
		result.Status = ports.VerificationPending
		result.Message = resp.Message
	}
	return result, nil
}

// VerifyWebhook implements ports.GatewayAdapter.VerifyWebhook. Flutterwave's
// legacy scheme hashes the raw body concatenated with the secret key.
func (a *Adapter) VerifyWebhook(rawBody []byte, signature string) ports.WebhookResult {
	if a.config.SecretKey == "" {
		a.logger.Warn("flutterwave secret key not configured")
		return ports.WebhookResult{}
	}

	sum := sha256.Sum256(append(append([]byte{}, rawBody...), []byte(a.config.SecretKey)...))
	expected := hex.EncodeToString(sum[:])

	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return ports.WebhookResult{}
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		a.logger.Warn("flutterwave webhook payload unparseable", ports.Err(err))
		return ports.WebhookResult{}
	}

	verification := toVerification(envelope.Data, rawBody)
	if envelope.Event == "charge.completed" && envelope.Data.Status == "successful" {
		verification.Status = ports.VerificationSuccessful
	}

	return ports.WebhookResult{
		Valid:        true,
		Event:        envelope.Event,
		Reference:    envelope.Data.TxRef,
		Verification: verification,
	}
}

func toVerification(data transactionData, raw []byte) *ports.VerificationResult {
	result := &ports.VerificationResult{
		Status:      mapStatus(data.Status),
		Reference:   data.TxRef,
		Amount:      data.Amount,
		Currency:    data.Currency,
		Channel:     data.PaymentType,
		RawResponse: raw,
	}
	if data.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, data.CreatedAt); err == nil {
			paidAt := t.UTC()
			result.PaidAt = &paidAt
		}
	}
	return result
}

func mapStatus(status string) ports.VerificationStatus {
	switch status {
	case "successful":
		return ports.VerificationSuccessful
	case "failed", "cancelled":
		return ports.VerificationFailed
	default:
		return ports.VerificationPending
	}
}

// makeRequest makes an HTTP request to the Flutterwave API with bearer authentication
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
		return domain.WrapError(domain.ErrorCodeGatewayUnavailable, "failed to reach flutterwave", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeGatewayUnavailable, "failed to read flutterwave response", err)
	}
	if rawOut != nil {
		*rawOut = respBody
	}

	if httpResp.StatusCode >= 500 {
		return domain.NewDomainError(domain.ErrorCodeGatewayUnavailable, "flutterwave gateway error").
			WithDetail("status_code", httpResp.StatusCode)
	}
	if httpResp.StatusCode >= 400 {
		return domain.NewDomainError(domain.ErrorCodeGatewayRejected, gatewayMessage(respBody)).
			WithDetail("status_code", httpResp.StatusCode)
	}

	if err := json.Unmarshal(respBody, response); err != nil {
		return fmt.Errorf("unmarshal flutterwave response: %w", err)
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

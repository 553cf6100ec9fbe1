package ports

import (
	"context"
	"time"

	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/shopspring/decimal"
)

// InitiateRequest asks a gateway to start a hosted checkout for a payment.
// Amount is in major currency units; adapters own any minor-unit conversion.
type InitiateRequest struct {
	Amount        decimal.Decimal
	Currency      string
	Email         string
	Reference     string
	CallbackURL   string
	CustomerName  string
	CustomerPhone string
	Metadata      map[string]string
}

// InitiateResult is the gateway's answer to a successful initiation.
type InitiateResult struct {
	AuthorizationURL  string
	AccessCode        string
	ProviderReference string
}

// VerificationStatus is the canonical mapping of provider-reported states
type VerificationStatus string

const (
	VerificationSuccessful VerificationStatus = "successful"
	VerificationFailed     VerificationStatus = "failed"
	VerificationPending    VerificationStatus = "pending"
)

// VerificationResult reports what the gateway knows about a payment.
// A provider-reported failure is Status=failed, never a Go error.
type VerificationResult struct {
	Status      VerificationStatus
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	PaidAt      *time.Time
	Channel     string
	Message     string
	RawResponse []byte
}

// WebhookResult is the outcome of validating an inbound webhook. An invalid
// signature yields Valid=false with no parsed payload; it is a value, not an
// error, so the HTTP boundary can ack and move on.
type WebhookResult struct {
	Valid        bool
	Event        string
	Reference    string
	Verification *VerificationResult
}

// GatewayAdapter is the provider-agnostic contract each payment provider
// variant implements. Initiate and Verify are remote calls with bounded
// timeouts; VerifyWebhook is purely local.
type GatewayAdapter interface {
	Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error)
	Verify(ctx context.Context, reference string) (*VerificationResult, error)
	VerifyWebhook(rawBody []byte, signature string) WebhookResult
}

// GatewayManager selects an adapter and applies fallback policy so callers
// need no provider knowledge.
type GatewayManager interface {
	Initiate(ctx context.Context, req *InitiateRequest, preferred models.Gateway) (*InitiateResult, models.Gateway, error)
	Verify(ctx context.Context, reference string, gateway models.Gateway) (*VerificationResult, error)
	VerifyWebhook(rawBody []byte, signature string, gateway models.Gateway) WebhookResult
	AvailableGateways() []models.Gateway
}

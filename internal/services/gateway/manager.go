package gateway

import (
	"context"

	"github.com/payng/fee-payment-service/internal/adapters/arca"
	"github.com/payng/fee-payment-service/internal/adapters/flutterwave"
	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
	"github.com/payng/fee-payment-service/pkg/observability"
)

// Manager implements ports.GatewayManager over the closed provider set.
// Selection is an exhaustive switch on the gateway kind, not a registry:
// the provider set is small and fixed, and a missed case should not compile.
// Selection is stateless per call; there is no sticky routing.
type Manager struct {
	arca        *arca.Adapter
	flutterwave *flutterwave.Adapter
	logger      ports.Logger
}

// NewManager creates a gateway manager. Pass nil for any provider whose
// credentials are absent; unconfigured providers are skipped, never attempted.
func NewManager(arcaAdapter *arca.Adapter, flutterwaveAdapter *flutterwave.Adapter, logger ports.Logger) *Manager {
	return &Manager{
		arca:        arcaAdapter,
		flutterwave: flutterwaveAdapter,
		logger:      logger,
	}
}

// adapterFor resolves a gateway kind to its adapter, or nil when the
// provider is unconfigured or has no remote adapter (manual).
func (m *Manager) adapterFor(gateway models.Gateway) ports.GatewayAdapter {
	switch gateway {
	case models.GatewayArca:
		if m.arca == nil {
			return nil
		}
		return m.arca
	case models.GatewayFlutterwave:
		if m.flutterwave == nil {
			return nil
		}
		return m.flutterwave
	case models.GatewayManual:
		return nil
	default:
		return nil
	}
}

// order returns the attempt order: preferred first when configured, then the
// default ordering (arca primary, flutterwave fallback).
func (m *Manager) order(preferred models.Gateway) []models.Gateway {
	order := make([]models.Gateway, 0, 3)
	if preferred == models.GatewayArca || preferred == models.GatewayFlutterwave {
		order = append(order, preferred)
	}
	for _, g := range []models.Gateway{models.GatewayArca, models.GatewayFlutterwave} {
		if len(order) == 0 || order[0] != g {
			order = append(order, g)
		}
	}
	return order
}

// Initiate tries each configured gateway in order until one accepts the
// payment. It returns the gateway that served the request so the caller can
// record it on the Payment. If every configured gateway fails it returns
// NoGatewayAvailable carrying the last underlying error.
func (m *Manager) Initiate(ctx context.Context, req *ports.InitiateRequest, preferred models.Gateway) (*ports.InitiateResult, models.Gateway, error) {
	var lastErr error
	attempted := 0

	for _, g := range m.order(preferred) {
		adapter := m.adapterFor(g)
		if adapter == nil {
			continue
		}

		result, err := adapter.Initiate(ctx, req)
		if err == nil {
			observability.PaymentInitiations.WithLabelValues(string(g), "success").Inc()
			if attempted > 0 {
				observability.GatewayFallbacks.WithLabelValues(string(g)).Inc()
				m.logger.Warn("payment initiated via fallback gateway",
					ports.String("gateway", string(g)),
					ports.String("reference", req.Reference))
			}
			return result, g, nil
		}

		attempted++
		lastErr = err
		observability.PaymentInitiations.WithLabelValues(string(g), "failure").Inc()
		m.logger.Warn("gateway initiation failed, trying next",
			ports.String("gateway", string(g)),
			ports.String("reference", req.Reference),
			ports.Err(err))
	}

	if lastErr == nil {
		return nil, "", domain.ErrNoGatewayAvailable
	}
	return nil, "", domain.WrapError(domain.ErrorCodeNoGatewayAvailable, "all configured gateways failed", lastErr)
}

// Verify is a passthrough to the named adapter. The caller must already know
// which provider handled the original initiation.
func (m *Manager) Verify(ctx context.Context, reference string, gateway models.Gateway) (*ports.VerificationResult, error) {
	adapter := m.adapterFor(gateway)
	if adapter == nil {
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayNotConfig, "gateway not configured").
			WithDetail("gateway", string(gateway))
	}
	return adapter.Verify(ctx, reference)
}

// VerifyWebhook is a passthrough. An unknown or unconfigured gateway yields
// an invalid result, never an error, so the caller can log and ack.
func (m *Manager) VerifyWebhook(rawBody []byte, signature string, gateway models.Gateway) ports.WebhookResult {
	adapter := m.adapterFor(gateway)
	if adapter == nil {
		return ports.WebhookResult{}
	}
	return adapter.VerifyWebhook(rawBody, signature)
}

// AvailableGateways lists the configured remote gateways.
func (m *Manager) AvailableGateways() []models.Gateway {
	available := make([]models.Gateway, 0, 2)
	if m.arca != nil {
		available = append(available, models.GatewayArca)
	}
	if m.flutterwave != nil {
		available = append(available, models.GatewayFlutterwave)
	}
	return available
}

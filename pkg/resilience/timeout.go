package resilience

import (
	"context"
	"time"
)

// TimeoutConfig bounds each stage of payment processing. Each stage gets
// its own budget so a slow gateway cannot eat the whole sweep window and a
// hung notification call cannot stall receipt issuance for other channels.
//
// Ordering invariant: SweepRun > GatewayCall > ReceiptDelivery. A sweep
// pass makes up to one gateway call per stale payment, and each gateway
// round-trip must be able to complete inside it.
type TimeoutConfig struct {
	// GatewayCall caps one initiate or verify round-trip to a provider.
	GatewayCall time.Duration

	// ReceiptDelivery caps a single delivery attempt on one channel.
	ReceiptDelivery time.Duration

	// SweepRun caps one full pass of a background sweep.
	SweepRun time.Duration
}

// DefaultTimeouts returns the production budgets.
func DefaultTimeouts() *TimeoutConfig {
	return &TimeoutConfig{
		GatewayCall:     30 * time.Second,
		ReceiptDelivery: 10 * time.Second,
		SweepRun:        5 * time.Minute,
	}
}

// GatewayContext derives a context for one gateway round-trip.
func (tc *TimeoutConfig) GatewayContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.GatewayCall)
}

// DeliveryContext derives a context for one receipt delivery attempt.
func (tc *TimeoutConfig) DeliveryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.ReceiptDelivery)
}

// SweepContext derives a context for one sweep pass.
func (tc *TimeoutConfig) SweepContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.SweepRun)
}

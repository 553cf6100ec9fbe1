package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
	"github.com/payng/fee-payment-service/pkg/observability"
	"github.com/payng/fee-payment-service/pkg/resilience"
	"github.com/payng/fee-payment-service/pkg/timeutil"
)

const (
	// sweepBatchSize bounds how many stale payments one sweep pass touches.
	sweepBatchSize = 100

	receiptAttempts = 3
)

// Source labels for reconciliation metrics and logs.
const (
	SourceWebhook = "webhook"
	SourceVerify  = "verify"
	SourceSweep   = "sweep"
	SourceManual  = "manual"
)

// Service applies verified gateway results to the ledger. Every terminal
// transition of a payment funnels through ApplyVerifiedResult, whether it
// arrived by webhook, client-triggered verify, the stale sweep, or a manual
// confirmation. The payment row lock makes concurrent applications for the
// same reference serialize; terminal states absorb the losers as no-ops.
type Service struct {
	db          ports.DBPort
	payments    ports.PaymentRepository
	assignments ports.AssignmentRepository
	gateways    ports.GatewayManager
	dispatcher  ports.ReceiptDispatcher
	backoff     resilience.BackoffStrategy
	timeouts    *resilience.TimeoutConfig
	staleAfter  time.Duration
	logger      ports.Logger
}

// NewService creates a reconciliation service. staleAfter is how long a
// payment may sit in processing before the sweep polls the gateway for it.
func NewService(
	db ports.DBPort,
	payments ports.PaymentRepository,
	assignments ports.AssignmentRepository,
	gateways ports.GatewayManager,
	dispatcher ports.ReceiptDispatcher,
	staleAfter time.Duration,
	logger ports.Logger,
) *Service {
	return &Service{
		db:          db,
		payments:    payments,
		assignments: assignments,
		gateways:    gateways,
		dispatcher:  dispatcher,
		backoff:     resilience.DefaultExponentialBackoff(),
		timeouts:    resilience.DefaultTimeouts(),
		staleAfter:  staleAfter,
		logger:      logger,
	}
}

// ApplyVerifiedResult records the outcome a gateway reported for reference.
// It returns the payment as stored and whether this call transitioned it to
// successful. The ledger mutation is one transaction under the payment row
// lock; receipt issuance happens after commit and never unwinds it.
func (s *Service) ApplyVerifiedResult(ctx context.Context, reference string, verification *ports.VerificationResult, source string) (*models.Payment, bool, error) {
	var (
		payment        *models.Payment
		newlySucceeded bool
	)

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		p, err := s.payments.GetByReferenceForUpdate(ctx, tx, reference)
		if err != nil {
			return err
		}
		payment = p

		if p.Status.IsTerminal() {
			s.logger.Debug("duplicate result for terminal payment absorbed",
				ports.String("reference", reference),
				ports.String("status", string(p.Status)),
				ports.String("source", source))
			if source == SourceWebhook {
				observability.DuplicateWebhooks.WithLabelValues(string(p.Gateway)).Inc()
			}
			return nil
		}

		switch verification.Status {
		case ports.VerificationPending:
			// Gateway has not settled yet; leave the payment as is.
			return nil

		case ports.VerificationFailed:
			reason := verification.Message
			if reason == "" {
				reason = "payment failed at gateway"
			}
			return s.recordFailure(ctx, tx, p, reason, verification.RawResponse, source)

		case ports.VerificationSuccessful:
			return s.applySuccess(ctx, tx, p, verification, source, &newlySucceeded)

		default:
			return domain.NewDomainError(domain.ErrorCodeInternalError, "unknown verification status").
				WithDetail("status", string(verification.Status))
		}
	})
	if err != nil {
		return nil, false, err
	}

	if newlySucceeded {
		s.issueReceipt(ctx, payment)
	}
	return payment, newlySucceeded, nil
}

// applySuccess credits the payment's allocations after re-checking every
// invariant against current ledger state. The gateway saying "successful" is
// necessary but not sufficient: amounts must match and every assignment must
// still have headroom, because a concurrent payment may have filled it since
// initiation.
func (s *Service) applySuccess(ctx context.Context, tx pgx.Tx, p *models.Payment, verification *ports.VerificationResult, source string, newlySucceeded *bool) error {
	if !verification.Amount.Equal(p.Amount) || (verification.Currency != "" && verification.Currency != p.Currency) {
		s.logger.Error("verified amount does not match payment",
			ports.String("reference", p.ReferenceNumber),
			ports.String("expected", p.Amount.String()),
			ports.String("verified", verification.Amount.String()))
		reason := fmt.Sprintf("amount mismatch: expected %s %s, gateway reported %s %s",
			p.Currency, p.Amount, verification.Currency, verification.Amount)
		return s.recordFailure(ctx, tx, p, reason, verification.RawResponse, source)
	}

	// Lock and re-check every assignment before touching any of them, so a
	// failed re-check leaves the ledger untouched.
	locked := make(map[int64]*models.FeeAssignment, len(p.Allocations))
	for _, alloc := range p.Allocations {
		assignment, err := s.assignments.GetByIDForUpdate(ctx, tx, alloc.AssignmentID)
		if err != nil {
			return err
		}
		if !assignment.CanAccept(alloc.Amount) {
			observability.OversubscribedPayments.Inc()
			s.logger.Error("assignment oversubscribed at verification time",
				ports.String("reference", p.ReferenceNumber),
				ports.Int64("assignment_id", alloc.AssignmentID),
				ports.String("outstanding", assignment.Outstanding().String()),
				ports.String("allocated", alloc.Amount.String()))
			return s.recordFailure(ctx, tx, p, "fee assignment oversubscribed", verification.RawResponse, source)
		}
		locked[alloc.AssignmentID] = assignment
	}

	for _, alloc := range p.Allocations {
		assignment := locked[alloc.AssignmentID]
		assignment.AmountPaid = assignment.AmountPaid.Add(alloc.Amount)
		if err := s.assignments.ApplyPayment(ctx, tx, alloc.AssignmentID, alloc.Amount, assignment.DeriveStatus()); err != nil {
			return err
		}
	}

	paidAt := verification.PaidAt
	if paidAt == nil {
		now := timeutil.Now()
		paidAt = &now
	}
	if err := s.payments.RecordOutcome(ctx, tx, p.ID, models.PaymentStatusSuccessful, "", paidAt, verification.RawResponse); err != nil {
		return err
	}

	p.Status = models.PaymentStatusSuccessful
	p.PaidAt = paidAt
	*newlySucceeded = true
	observability.PaymentsReconciled.WithLabelValues(string(models.PaymentStatusSuccessful), source).Inc()

	s.logger.Info("payment reconciled as successful",
		ports.String("reference", p.ReferenceNumber),
		ports.String("source", source),
		ports.String("amount", p.Amount.String()))
	return nil
}

func (s *Service) recordFailure(ctx context.Context, tx pgx.Tx, p *models.Payment, reason string, rawResponse []byte, source string) error {
	if err := s.payments.RecordOutcome(ctx, tx, p.ID, models.PaymentStatusFailed, reason, nil, rawResponse); err != nil {
		return err
	}
	p.Status = models.PaymentStatusFailed
	p.FailureReason = reason
	observability.PaymentsReconciled.WithLabelValues(string(models.PaymentStatusFailed), source).Inc()

	s.logger.Info("payment reconciled as failed",
		ports.String("reference", p.ReferenceNumber),
		ports.String("source", source),
		ports.String("reason", reason))
	return nil
}

// HandleWebhook validates and applies an inbound gateway webhook. An invalid
// signature returns domain.ErrWebhookSignature and must surface as 400; a
// valid webhook that cannot be applied is logged and absorbed so the
// provider stops retrying.
func (s *Service) HandleWebhook(ctx context.Context, gateway models.Gateway, rawBody []byte, signature string) error {
	result := s.gateways.VerifyWebhook(rawBody, signature, gateway)
	if !result.Valid {
		observability.WebhookRejections.WithLabelValues(string(gateway)).Inc()
		s.logger.Warn("webhook rejected: invalid signature",
			ports.String("gateway", string(gateway)))
		return domain.ErrWebhookSignature
	}

	if result.Verification == nil || result.Reference == "" {
		s.logger.Info("webhook carries no actionable payment event",
			ports.String("gateway", string(gateway)),
			ports.String("event", result.Event))
		return nil
	}

	_, _, err := s.ApplyVerifiedResult(ctx, result.Reference, result.Verification, SourceWebhook)
	if err != nil && !domain.IsNotFoundError(err) {
		return err
	}
	if domain.IsNotFoundError(err) {
		s.logger.Warn("webhook references unknown payment",
			ports.String("gateway", string(gateway)),
			ports.String("reference", result.Reference))
	}
	return nil
}

// VerifyAndApply polls the gateway for the payment's current state and
// applies it. Used by the client-triggered verify endpoint. The gateway call
// happens before any transaction is opened; no ledger locks are held during
// the remote round-trip.
func (s *Service) VerifyAndApply(ctx context.Context, reference string) (*models.Payment, error) {
	payment, err := s.payments.GetByReference(ctx, nil, reference)
	if err != nil {
		return nil, err
	}
	if payment.Status.IsTerminal() || payment.Status == models.PaymentStatusPending {
		return payment, nil
	}
	if payment.Gateway == "" || payment.Gateway == models.GatewayManual {
		return payment, nil
	}

	verifyCtx, cancel := s.timeouts.GatewayContext(ctx)
	verification, err := s.gateways.Verify(verifyCtx, reference, payment.Gateway)
	cancel()
	if err != nil {
		// Gateway unreachable: report what we know, the sweep retries later.
		s.logger.Warn("verification call failed",
			ports.String("reference", reference),
			ports.Err(err))
		return payment, nil
	}

	applied, _, err := s.ApplyVerifiedResult(ctx, reference, verification, SourceVerify)
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// ConfirmManualPayment marks an admin-recorded manual payment successful via
// the same reconciliation path as gateway payments, with a synthetic
// verification, so every invariant re-check applies uniformly.
func (s *Service) ConfirmManualPayment(ctx context.Context, reference string, paidAt *time.Time) (*models.Payment, error) {
	payment, err := s.payments.GetByReference(ctx, nil, reference)
	if err != nil {
		return nil, err
	}
	if payment.Gateway != models.GatewayManual {
		return nil, domain.NewDomainError(domain.ErrorCodeInvalidState, "payment is not a manual payment").
			WithDetail("reference", reference).
			WithDetail("gateway", string(payment.Gateway))
	}

	verification := &ports.VerificationResult{
		Status:    ports.VerificationSuccessful,
		Reference: reference,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		PaidAt:    paidAt,
	}

	applied, _, err := s.ApplyVerifiedResult(ctx, reference, verification, SourceManual)
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// ResolveStalePayments verifies payments stuck in processing longer than the
// stale threshold. Returns how many reached a terminal state this pass.
func (s *Service) ResolveStalePayments(ctx context.Context) (int, error) {
	cutoff := timeutil.Now().Add(-s.staleAfter)
	stale, err := s.payments.ListStaleProcessing(ctx, nil, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, payment := range stale {
		if payment.Gateway == "" || payment.Gateway == models.GatewayManual {
			continue
		}

		verifyCtx, cancel := s.timeouts.GatewayContext(ctx)
		verification, err := s.gateways.Verify(verifyCtx, payment.ReferenceNumber, payment.Gateway)
		cancel()
		if err != nil {
			s.logger.Warn("sweep verification failed",
				ports.String("reference", payment.ReferenceNumber),
				ports.String("gateway", string(payment.Gateway)),
				ports.Err(err))
			continue
		}

		applied, _, err := s.ApplyVerifiedResult(ctx, payment.ReferenceNumber, verification, SourceSweep)
		if err != nil {
			s.logger.Error("sweep failed to apply verification",
				ports.String("reference", payment.ReferenceNumber),
				ports.Err(err))
			continue
		}
		if applied.Status.IsTerminal() {
			resolved++
		}
	}

	if len(stale) > 0 {
		s.logger.Info("stale payment sweep completed",
			ports.Int("checked", len(stale)),
			ports.Int("resolved", resolved))
	}
	return resolved, nil
}

// ResolveMissingReceipts re-issues receipts for successful payments that
// never got one, the backstop for issuance attempts that exhausted their
// retries. IssueReceipt is idempotent per payment, so racing an in-flight
// issuance is harmless. Returns how many receipts were issued this pass.
func (s *Service) ResolveMissingReceipts(ctx context.Context) (int, error) {
	payments, err := s.payments.ListUnreceiptedSuccessful(ctx, nil, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	issued := 0
	for _, payment := range payments {
		if _, err := s.dispatcher.IssueReceipt(ctx, payment.ID); err != nil {
			s.logger.Warn("receipt recovery failed",
				ports.String("reference", payment.ReferenceNumber),
				ports.Err(err))
			continue
		}
		issued++
	}

	if len(payments) > 0 {
		s.logger.Info("receipt recovery sweep completed",
			ports.Int("missing", len(payments)),
			ports.Int("issued", issued))
	}
	return issued, nil
}

// issueReceipt drives receipt issuance with bounded retries. If every
// attempt fails the payment stays flagged receipt_generated = FALSE and
// ResolveMissingReceipts picks it up; the payment itself is already durable.
func (s *Service) issueReceipt(ctx context.Context, payment *models.Payment) {
	var err error
	for attempt := 0; attempt < receiptAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.backoff.NextDelay(attempt - 1)):
			}
		}
		if _, err = s.dispatcher.IssueReceipt(ctx, payment.ID); err == nil {
			return
		}
		s.logger.Warn("receipt issuance attempt failed",
			ports.String("reference", payment.ReferenceNumber),
			ports.Int("attempt", attempt+1),
			ports.Err(err))
	}
	s.logger.Error("receipt issuance exhausted retries",
		ports.String("reference", payment.ReferenceNumber),
		ports.Err(err))
}

package payment

import (
	"context"
	"strconv"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
	"github.com/payng/fee-payment-service/internal/services/ledger"
	"github.com/payng/fee-payment-service/internal/services/reconcile"
)

// Service orchestrates the initiation flow: record the payment in the
// ledger, hand it to a gateway, then mark it processing. The gateway call
// happens strictly between ledger writes, never inside a ledger
// transaction, so a slow provider cannot hold row locks.
type Service struct {
	ledger      *ledger.Service
	reconciler  *reconcile.Service
	gateways    ports.GatewayManager
	payments    ports.PaymentRepository
	callbackURL string
	logger      ports.Logger
}

// NewService creates a payment orchestration service
func NewService(
	ledgerSvc *ledger.Service,
	reconciler *reconcile.Service,
	gateways ports.GatewayManager,
	payments ports.PaymentRepository,
	callbackURL string,
	logger ports.Logger,
) *Service {
	return &Service{
		ledger:      ledgerSvc,
		reconciler:  reconciler,
		gateways:    gateways,
		payments:    payments,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// InitiatePaymentRequest carries everything needed to start a hosted
// checkout for a parent paying school fees.
type InitiatePaymentRequest struct {
	ledger.CreatePaymentRequest

	Email            string
	CustomerName     string
	CustomerPhone    string
	PreferredGateway models.Gateway
}

// InitiatePaymentResult is returned to the client to redirect the payer.
type InitiatePaymentResult struct {
	Payment          *models.Payment
	AuthorizationURL string
	AccessCode       string
	Gateway          models.Gateway
}

// InitiatePayment records a pending payment and starts a gateway checkout.
// If no gateway accepts the payment it is marked failed and the gateway
// error is returned; the reference is burned, clients retry with a new
// payment.
func (s *Service) InitiatePayment(ctx context.Context, req *InitiatePaymentRequest) (*InitiatePaymentResult, error) {
	if req.Email == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "payer email is required")
	}

	payment, err := s.ledger.CreatePayment(ctx, &req.CreatePaymentRequest)
	if err != nil {
		return nil, err
	}

	initReq := &ports.InitiateRequest{
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Email:         req.Email,
		Reference:     payment.ReferenceNumber,
		CallbackURL:   s.callbackURL,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Metadata: map[string]string{
			"school_id":  strconv.FormatInt(payment.SchoolID, 10),
			"student_id": strconv.FormatInt(payment.StudentID, 10),
		},
	}

	result, gatewayUsed, err := s.gateways.Initiate(ctx, initReq, req.PreferredGateway)
	if err != nil {
		if recordErr := s.payments.RecordOutcome(ctx, nil, payment.ID, models.PaymentStatusFailed, "gateway initiation failed: "+err.Error(), nil, nil); recordErr != nil {
			s.logger.Error("failed to record initiation failure",
				ports.String("reference", payment.ReferenceNumber),
				ports.Err(recordErr))
		}
		return nil, err
	}

	if err := s.payments.SetGateway(ctx, nil, payment.ID, gatewayUsed, result.ProviderReference); err != nil {
		return nil, err
	}
	if err := s.ledger.MarkProcessing(ctx, payment.ID); err != nil {
		return nil, err
	}
	payment.Gateway = gatewayUsed
	payment.ExternalReference = result.ProviderReference
	payment.Status = models.PaymentStatusProcessing

	return &InitiatePaymentResult{
		Payment:          payment,
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Gateway:          gatewayUsed,
	}, nil
}

// VerifyPayment polls the gateway and applies the result.
func (s *Service) VerifyPayment(ctx context.Context, reference string) (*models.Payment, error) {
	return s.reconciler.VerifyAndApply(ctx, reference)
}

// GetPayment fetches a payment by reference without touching the gateway.
func (s *Service) GetPayment(ctx context.Context, reference string) (*models.Payment, error) {
	return s.ledger.GetPayment(ctx, reference)
}

// RecordManualPayment records a cash or bank-deposit payment entered by a
// school admin and immediately confirms it through reconciliation.
func (s *Service) RecordManualPayment(ctx context.Context, req *ledger.CreatePaymentRequest) (*models.Payment, error) {
	req.Gateway = models.GatewayManual
	if req.Method == "" {
		req.Method = models.PaymentMethodCash
	}

	payment, err := s.ledger.CreatePayment(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.MarkProcessing(ctx, payment.ID); err != nil {
		return nil, err
	}
	return s.reconciler.ConfirmManualPayment(ctx, payment.ReferenceNumber, nil)
}

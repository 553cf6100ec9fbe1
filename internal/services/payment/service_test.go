package payment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
	"github.com/payng/fee-payment-service/internal/services/ledger"
	"github.com/payng/fee-payment-service/internal/services/reconcile"
	"github.com/payng/fee-payment-service/internal/testutil/fixtures"
	"github.com/payng/fee-payment-service/internal/testutil/mocks"
)

type serviceEnv struct {
	payments    *mocks.PaymentRepository
	assignments *mocks.AssignmentRepository
	gateways    *mocks.GatewayManager
	dispatcher  *mocks.ReceiptDispatcher
	service     *Service
}

func newServiceEnv() *serviceEnv {
	env := &serviceEnv{
		payments:    new(mocks.PaymentRepository),
		assignments: new(mocks.AssignmentRepository),
		gateways:    new(mocks.GatewayManager),
		dispatcher:  new(mocks.ReceiptDispatcher),
	}
	db := new(mocks.DB)
	ledgerSvc := ledger.NewService(db, env.payments, env.assignments, mocks.Logger{})
	reconciler := reconcile.NewService(db, env.payments, env.assignments, env.gateways,
		env.dispatcher, 30*time.Minute, mocks.Logger{})
	env.service = NewService(ledgerSvc, reconciler, env.gateways, env.payments,
		"https://pay.example.com/callback", mocks.Logger{})
	return env
}

func initiateRequest() *InitiatePaymentRequest {
	return &InitiatePaymentRequest{
		CreatePaymentRequest: ledger.CreatePaymentRequest{
			SchoolID:  1,
			StudentID: 10,
			Amount:    decimal.NewFromInt(50_000),
			Currency:  "NGN",
			Method:    models.PaymentMethodCard,
			Allocations: []models.Allocation{
				{AssignmentID: 1, Amount: decimal.NewFromInt(50_000)},
			},
		},
		Email:        "parent@example.com",
		CustomerName: "Ngozi Okafor",
	}
}

func TestInitiatePayment_Success(t *testing.T) {
	env := newServiceEnv()

	env.assignments.On("GetByID", mock.Anything, mock.Anything, int64(1)).
		Return(fixtures.Assignment(1), nil)
	env.payments.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	env.gateways.On("Initiate", mock.Anything, mock.MatchedBy(func(req *ports.InitiateRequest) bool {
		return req.Email == "parent@example.com" &&
			req.CallbackURL == "https://pay.example.com/callback" &&
			req.Metadata["school_id"] == "1" &&
			req.Metadata["student_id"] == "10"
	}), models.Gateway("")).Return(&ports.InitiateResult{
		AuthorizationURL:  "https://checkout.example/abc",
		AccessCode:        "abc",
		ProviderReference: "PRV-123",
	}, models.GatewayArca, nil)
	env.payments.On("SetGateway", mock.Anything, mock.Anything, mock.Anything,
		models.GatewayArca, "PRV-123").Return(nil)
	env.payments.On("MarkProcessing", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := env.service.InitiatePayment(context.Background(), initiateRequest())

	require.NoError(t, err)
	assert.Equal(t, models.GatewayArca, result.Gateway)
	assert.Equal(t, "https://checkout.example/abc", result.AuthorizationURL)
	assert.Equal(t, models.PaymentStatusProcessing, result.Payment.Status)
	assert.Equal(t, "PRV-123", result.Payment.ExternalReference)
	env.payments.AssertExpectations(t)
}

func TestInitiatePayment_RequiresEmail(t *testing.T) {
	env := newServiceEnv()
	req := initiateRequest()
	req.Email = ""

	_, err := env.service.InitiatePayment(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeValidationFailed, domain.GetErrorCode(err))
	env.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestInitiatePayment_GatewayFailureBurnsReference(t *testing.T) {
	env := newServiceEnv()

	env.assignments.On("GetByID", mock.Anything, mock.Anything, int64(1)).
		Return(fixtures.Assignment(1), nil)
	env.payments.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	env.gateways.On("Initiate", mock.Anything, mock.Anything, models.Gateway("")).
		Return(nil, models.Gateway(""), domain.ErrNoGatewayAvailable)
	env.payments.On("RecordOutcome", mock.Anything, mock.Anything, mock.Anything,
		models.PaymentStatusFailed, mock.MatchedBy(func(reason string) bool {
			return strings.HasPrefix(reason, "gateway initiation failed")
		}), mock.Anything, mock.Anything).Return(nil)

	_, err := env.service.InitiatePayment(context.Background(), initiateRequest())

	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeNoGatewayAvailable, domain.GetErrorCode(err))
	env.payments.AssertExpectations(t)
	env.payments.AssertNotCalled(t, "MarkProcessing", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordManualPayment_SettlesImmediately(t *testing.T) {
	env := newServiceEnv()

	manual := fixtures.ProcessingPayment("PAY-2026-MANUAL")
	manual.Gateway = models.GatewayManual
	manual.Method = models.PaymentMethodCash

	env.assignments.On("GetByID", mock.Anything, mock.Anything, int64(1)).
		Return(fixtures.Assignment(1), nil)
	env.payments.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(p *models.Payment) bool {
		return p.Gateway == models.GatewayManual && p.Method == models.PaymentMethodCash
	})).Return(nil)
	env.payments.On("MarkProcessing", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	env.payments.On("GetByReference", mock.Anything, mock.Anything, mock.Anything).Return(manual, nil)
	env.payments.On("GetByReferenceForUpdate", mock.Anything, mock.Anything, manual.ReferenceNumber).
		Return(manual, nil)
	env.assignments.On("GetByIDForUpdate", mock.Anything, mock.Anything, int64(1)).
		Return(fixtures.Assignment(1), nil)
	env.assignments.On("ApplyPayment", mock.Anything, mock.Anything, int64(1),
		mock.Anything, mock.Anything).Return(nil)
	env.payments.On("RecordOutcome", mock.Anything, mock.Anything, manual.ID,
		models.PaymentStatusSuccessful, "", mock.Anything, mock.Anything).Return(nil)
	env.dispatcher.On("IssueReceipt", mock.Anything, manual.ID).
		Return(&models.Receipt{PaymentID: manual.ID}, nil)

	req := &ledger.CreatePaymentRequest{
		SchoolID:  1,
		StudentID: 10,
		Amount:    decimal.NewFromInt(50_000),
		Allocations: []models.Allocation{
			{AssignmentID: 1, Amount: decimal.NewFromInt(50_000)},
		},
	}
	settled, err := env.service.RecordManualPayment(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccessful, settled.Status)
	assert.Equal(t, models.PaymentMethodCash, req.Method)
	env.gateways.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything, mock.Anything)
	env.dispatcher.AssertExpectations(t)
}

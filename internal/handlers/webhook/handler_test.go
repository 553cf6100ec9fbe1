package webhook

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/payng/fee-payment-service/internal/adapters/arca"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
	"github.com/payng/fee-payment-service/internal/services/reconcile"
	"github.com/payng/fee-payment-service/internal/testutil/fixtures"
	"github.com/payng/fee-payment-service/internal/testutil/mocks"
)

type handlerEnv struct {
	payments    *mocks.PaymentRepository
	assignments *mocks.AssignmentRepository
	gateways    *mocks.GatewayManager
	dispatcher  *mocks.ReceiptDispatcher
	router      *mux.Router
}

func newHandlerEnv() *handlerEnv {
	env := &handlerEnv{
		payments:    new(mocks.PaymentRepository),
		assignments: new(mocks.AssignmentRepository),
		gateways:    new(mocks.GatewayManager),
		dispatcher:  new(mocks.ReceiptDispatcher),
	}
	reconciler := reconcile.NewService(new(mocks.DB), env.payments, env.assignments,
		env.gateways, env.dispatcher, 30*time.Minute, mocks.Logger{})
	env.router = mux.NewRouter()
	NewHandler(reconciler, mocks.Logger{}).Register(env.router)
	return env
}

func (env *handlerEnv) post(provider, signature string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+provider, bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(arca.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestReceive_UnknownProvider(t *testing.T) {
	env := newHandlerEnv()

	rec := env.post("paystack", "sig", []byte(`{}`))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env.gateways.AssertNotCalled(t, "VerifyWebhook", mock.Anything, mock.Anything, mock.Anything)
}

func TestReceive_InvalidSignature(t *testing.T) {
	env := newHandlerEnv()
	env.gateways.On("VerifyWebhook", mock.Anything, "bad-sig", models.GatewayArca).
		Return(ports.WebhookResult{Valid: false})

	rec := env.post("arca", "bad-sig", []byte(`{"event":"charge.success"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid signature")
}

func TestReceive_ValidWebhookApplied(t *testing.T) {
	env := newHandlerEnv()
	payment := fixtures.ProcessingPayment("PAY-2026-AAA111")

	env.gateways.On("VerifyWebhook", mock.Anything, "good-sig", models.GatewayArca).
		Return(ports.WebhookResult{
			Valid:     true,
			Event:     "charge.success",
			Reference: payment.ReferenceNumber,
			Verification: &ports.VerificationResult{
				Status:    ports.VerificationSuccessful,
				Reference: payment.ReferenceNumber,
				Amount:    payment.Amount,
				Currency:  "NGN",
			},
		})
	env.payments.On("GetByReferenceForUpdate", mock.Anything, mock.Anything, payment.ReferenceNumber).
		Return(payment, nil)
	env.assignments.On("GetByIDForUpdate", mock.Anything, mock.Anything, int64(1)).
		Return(fixtures.Assignment(1), nil)
	env.assignments.On("ApplyPayment", mock.Anything, mock.Anything, int64(1),
		mock.Anything, mock.Anything).Return(nil)
	env.payments.On("RecordOutcome", mock.Anything, mock.Anything, payment.ID,
		models.PaymentStatusSuccessful, "", mock.Anything, mock.Anything).Return(nil)
	env.dispatcher.On("IssueReceipt", mock.Anything, payment.ID).
		Return(&models.Receipt{PaymentID: payment.ID}, nil)

	rec := env.post("arca", "good-sig", []byte(`{"event":"charge.success"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	env.payments.AssertExpectations(t)
}

func TestReceive_DuplicateWebhookAcked(t *testing.T) {
	env := newHandlerEnv()
	payment := fixtures.SuccessfulPayment("PAY-2026-AAA111")

	env.gateways.On("VerifyWebhook", mock.Anything, "good-sig", models.GatewayArca).
		Return(ports.WebhookResult{
			Valid:     true,
			Event:     "charge.success",
			Reference: payment.ReferenceNumber,
			Verification: &ports.VerificationResult{
				Status:    ports.VerificationSuccessful,
				Reference: payment.ReferenceNumber,
				Amount:    decimal.NewFromInt(50_000),
				Currency:  "NGN",
			},
		})
	env.payments.On("GetByReferenceForUpdate", mock.Anything, mock.Anything, payment.ReferenceNumber).
		Return(payment, nil)

	rec := env.post("arca", "good-sig", []byte(`{"event":"charge.success"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	env.assignments.AssertNotCalled(t, "ApplyPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReceive_NonPaymentEventAcked(t *testing.T) {
	env := newHandlerEnv()

	env.gateways.On("VerifyWebhook", mock.Anything, "good-sig", models.GatewayArca).
		Return(ports.WebhookResult{Valid: true, Event: "transfer.success"})

	rec := env.post("arca", "good-sig", []byte(`{"event":"transfer.success"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	env.payments.AssertNotCalled(t, "GetByReferenceForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

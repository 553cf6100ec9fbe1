package payment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
	"github.com/payng/fee-payment-service/internal/services/ledger"
	paymentService "github.com/payng/fee-payment-service/internal/services/payment"
	"github.com/payng/fee-payment-service/internal/services/reconcile"
	"github.com/payng/fee-payment-service/internal/testutil/fixtures"
	"github.com/payng/fee-payment-service/internal/testutil/mocks"
)

type handlerEnv struct {
	payments    *mocks.PaymentRepository
	assignments *mocks.AssignmentRepository
	gateways    *mocks.GatewayManager
	router      *mux.Router
}

func newHandlerEnv() *handlerEnv {
	env := &handlerEnv{
		payments:    new(mocks.PaymentRepository),
		assignments: new(mocks.AssignmentRepository),
		gateways:    new(mocks.GatewayManager),
	}
	db := new(mocks.DB)
	ledgerSvc := ledger.NewService(db, env.payments, env.assignments, mocks.Logger{})
	reconciler := reconcile.NewService(db, env.payments, env.assignments, env.gateways,
		new(mocks.ReceiptDispatcher), 30*time.Minute, mocks.Logger{})
	svc := paymentService.NewService(ledgerSvc, reconciler, env.gateways, env.payments,
		"https://pay.example.com/callback", mocks.Logger{})

	env.router = mux.NewRouter()
	NewHandler(svc, mocks.Logger{}).Register(env.router)
	return env
}

func (env *handlerEnv) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestGet_ReturnsPayment(t *testing.T) {
	env := newHandlerEnv()
	payment := fixtures.SuccessfulPayment("PAY-2026-AAA111")
	now := time.Now().UTC()
	payment.PaidAt = &now
	payment.ReceiptGenerated = true

	env.payments.On("GetByReference", mock.Anything, mock.Anything, "PAY-2026-AAA111").
		Return(payment, nil)

	rec := env.do(http.MethodGet, "/api/v1/payments/PAY-2026-AAA111", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "PAY-2026-AAA111", body["reference"])
	assert.Equal(t, "successful", body["status"])
	assert.Equal(t, true, body["receipt_generated"])
}

func TestGet_UnknownReference(t *testing.T) {
	env := newHandlerEnv()

	env.payments.On("GetByReference", mock.Anything, mock.Anything, "PAY-2026-MISSING").
		Return(nil, domain.ErrPaymentNotFound)

	rec := env.do(http.MethodGet, "/api/v1/payments/PAY-2026-MISSING", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInitiate_InvalidBody(t *testing.T) {
	env := newHandlerEnv()

	rec := env.do(http.MethodPost, "/api/v1/payments/initiate", []byte(`{not json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitiate_ValidationErrorIs400(t *testing.T) {
	env := newHandlerEnv()

	body, _ := json.Marshal(map[string]interface{}{
		"school_id":  1,
		"student_id": 10,
		"amount":     "5",
		"email":      "parent@example.com",
		"method":     "card",
		"allocations": []map[string]interface{}{
			{"assignment_id": 1, "amount": "5"},
		},
	})
	rec := env.do(http.MethodPost, "/api/v1/payments/initiate", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitiate_Success(t *testing.T) {
	env := newHandlerEnv()

	env.assignments.On("GetByID", mock.Anything, mock.Anything, int64(1)).
		Return(fixtures.Assignment(1), nil)
	env.payments.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	env.gateways.On("Initiate", mock.Anything, mock.Anything, models.Gateway("")).
		Return(&ports.InitiateResult{
			AuthorizationURL:  "https://checkout.example/abc",
			AccessCode:        "abc",
			ProviderReference: "PRV-123",
		}, models.GatewayArca, nil)
	env.payments.On("SetGateway", mock.Anything, mock.Anything, mock.Anything,
		models.GatewayArca, "PRV-123").Return(nil)
	env.payments.On("MarkProcessing", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	body, _ := json.Marshal(map[string]interface{}{
		"school_id":  1,
		"student_id": 10,
		"amount":     "50000",
		"email":      "parent@example.com",
		"method":     "card",
		"allocations": []map[string]interface{}{
			{"assignment_id": 1, "amount": "50000"},
		},
	})
	rec := env.do(http.MethodPost, "/api/v1/payments/initiate", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://checkout.example/abc", resp["authorization_url"])
	assert.Equal(t, "arca", resp["gateway"])
	assert.Equal(t, "processing", resp["status"])
}

func TestVerify_RequiresReference(t *testing.T) {
	env := newHandlerEnv()

	rec := env.do(http.MethodPost, "/api/v1/payments/verify", []byte(`{}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerify_TerminalPaymentReturnedWithoutGatewayCall(t *testing.T) {
	env := newHandlerEnv()
	payment := fixtures.SuccessfulPayment("PAY-2026-AAA111")

	env.payments.On("GetByReference", mock.Anything, mock.Anything, payment.ReferenceNumber).
		Return(payment, nil)

	rec := env.do(http.MethodPost, "/api/v1/payments/verify",
		[]byte(`{"reference":"PAY-2026-AAA111"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	env.gateways.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
}

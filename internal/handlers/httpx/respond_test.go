package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payng/fee-payment-service/internal/domain"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "validation", err: domain.ErrValidationFailed, wantStatus: http.StatusBadRequest},
		{name: "invalid amount", err: domain.ErrAmountInvalid, wantStatus: http.StatusBadRequest},
		{name: "webhook signature", err: domain.ErrWebhookSignature, wantStatus: http.StatusBadRequest},
		{name: "payment not found", err: domain.ErrPaymentNotFound, wantStatus: http.StatusNotFound},
		{name: "assignment not found", err: domain.ErrAssignmentNotFound, wantStatus: http.StatusNotFound},
		{name: "duplicate reference", err: domain.ErrDuplicateReference, wantStatus: http.StatusConflict},
		{name: "invalid state", err: domain.ErrInvalidState, wantStatus: http.StatusConflict},
		{name: "oversubscribed", err: domain.ErrOversubscribed, wantStatus: http.StatusConflict},
		{name: "gateway unavailable", err: domain.ErrGatewayUnavailable, wantStatus: http.StatusBadGateway},
		{name: "no gateway available", err: domain.ErrNoGatewayAvailable, wantStatus: http.StatusBadGateway},
		{name: "internal", err: domain.ErrInternalError, wantStatus: http.StatusInternalServerError},
		{name: "plain error", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestWriteError_DomainErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	err := domain.NewDomainError(domain.ErrorCodeOversubscribed, "allocation exceeds outstanding balance").
		WithDetail("assignment_id", int64(7))

	WriteError(rec, err)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "allocation exceeds outstanding balance", body.Error)
	assert.Equal(t, string(domain.ErrorCodeOversubscribed), body.Code)
	assert.Contains(t, body.Details, "assignment_id")
}

func TestWriteError_PlainErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, errors.New("pq: relation does not exist"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Error)
	assert.NotContains(t, rec.Body.String(), "relation")
}

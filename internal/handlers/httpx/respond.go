package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/pkg/encoding"
)

// ErrorResponse is the JSON error envelope for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code. The body
// is encoded into a pooled buffer first so an encoding failure becomes a 500
// instead of a truncated 200.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	buf := encoding.GetBuffer()
	defer encoding.PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// WriteError maps a domain error to an HTTP status and writes the envelope.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := ErrorResponse{Error: "internal server error"}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		body.Error = domainErr.Message
		body.Code = string(domainErr.Code)
		if len(domainErr.Details) > 0 {
			body.Details = domainErr.Details
		}
		status = statusFor(domainErr.Code)
	}

	WriteJSON(w, status, body)
}

func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.ErrorCodeValidationFailed,
		domain.ErrorCodeAmountInvalid,
		domain.ErrorCodeAllocationInvalid,
		domain.ErrorCodeWebhookSignature:
		return http.StatusBadRequest
	case domain.ErrorCodePaymentNotFound,
		domain.ErrorCodeAssignmentNotFound:
		return http.StatusNotFound
	case domain.ErrorCodeDuplicateReference,
		domain.ErrorCodeInvalidState,
		domain.ErrorCodeOversubscribed:
		return http.StatusConflict
	case domain.ErrorCodeGatewayUnavailable,
		domain.ErrorCodeGatewayRejected,
		domain.ErrorCodeNoGatewayAvailable,
		domain.ErrorCodeGatewayNotConfig:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Validation errors (VALIDATION_*)
	ErrorCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrorCodeAmountInvalid     ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeAllocationInvalid ErrorCode = "VALIDATION_ALLOCATION_INVALID"

	// Ledger errors (LEDGER_*)
	ErrorCodeDuplicateReference ErrorCode = "LEDGER_DUPLICATE_REFERENCE"
	ErrorCodePaymentNotFound    ErrorCode = "LEDGER_PAYMENT_NOT_FOUND"
	ErrorCodeAssignmentNotFound ErrorCode = "LEDGER_ASSIGNMENT_NOT_FOUND"
	ErrorCodeInvalidState       ErrorCode = "LEDGER_INVALID_STATE"
	ErrorCodeOversubscribed     ErrorCode = "LEDGER_ASSIGNMENT_OVERSUBSCRIBED"

	// Reconciliation errors (RECON_*)
	ErrorCodeAmountMismatch ErrorCode = "RECON_AMOUNT_MISMATCH"

	// Gateway errors (GATEWAY_*)
	ErrorCodeGatewayUnavailable ErrorCode = "GATEWAY_UNAVAILABLE"
	ErrorCodeGatewayRejected    ErrorCode = "GATEWAY_REJECTED"
	ErrorCodeNoGatewayAvailable ErrorCode = "GATEWAY_NONE_AVAILABLE"
	ErrorCodeGatewayNotConfig   ErrorCode = "GATEWAY_NOT_CONFIGURED"

	// Webhook errors (WEBHOOK_*)
	ErrorCodeWebhookSignature ErrorCode = "WEBHOOK_SIGNATURE_INVALID"

	// Internal errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsValidationError checks if an error should surface as a 400-class response
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeAmountInvalid ||
		code == ErrorCodeAllocationInvalid ||
		code == ErrorCodeDuplicateReference ||
		code == ErrorCodeAssignmentNotFound
}

// IsGatewayError checks if an error originated at a payment gateway
func IsGatewayError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeGatewayUnavailable ||
		code == ErrorCodeGatewayRejected ||
		code == ErrorCodeNoGatewayAvailable ||
		code == ErrorCodeGatewayNotConfig
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodePaymentNotFound || code == ErrorCodeAssignmentNotFound
}

// Structured error instances
var (
	ErrValidationFailed  = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrAmountInvalid     = NewDomainError(ErrorCodeAmountInvalid, "invalid amount")
	ErrAllocationInvalid = NewDomainError(ErrorCodeAllocationInvalid, "allocations do not satisfy payment constraints")

	ErrDuplicateReference = NewDomainError(ErrorCodeDuplicateReference, "payment reference already exists")
	ErrPaymentNotFound    = NewDomainError(ErrorCodePaymentNotFound, "payment not found")
	ErrAssignmentNotFound = NewDomainError(ErrorCodeAssignmentNotFound, "fee assignment not found")
	ErrInvalidState       = NewDomainError(ErrorCodeInvalidState, "payment is in invalid state for this operation")
	ErrOversubscribed     = NewDomainError(ErrorCodeOversubscribed, "fee assignment oversubscribed")

	ErrAmountMismatch = NewDomainError(ErrorCodeAmountMismatch, "verified amount does not match payment amount")

	ErrGatewayUnavailable = NewDomainError(ErrorCodeGatewayUnavailable, "payment gateway unavailable")
	ErrGatewayRejected    = NewDomainError(ErrorCodeGatewayRejected, "payment rejected by gateway")
	ErrNoGatewayAvailable = NewDomainError(ErrorCodeNoGatewayAvailable, "no payment gateway available")
	ErrGatewayNotConfig   = NewDomainError(ErrorCodeGatewayNotConfig, "payment gateway not configured")

	ErrWebhookSignature = NewDomainError(ErrorCodeWebhookSignature, "webhook signature verification failed")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)

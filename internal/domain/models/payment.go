package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the current state of a fee payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// IsTerminal reports whether the status admits no further gateway-driven
// transitions. Terminal payments absorb duplicate webhooks as no-ops.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusSuccessful, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// PaymentMethod represents how the payer settled the fee
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodUSSD         PaymentMethod = "ussd"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodCash         PaymentMethod = "cash"
)

// Gateway identifies a payment provider. The set is closed: adapters exist
// for arca and flutterwave, manual covers admin-recorded cash payments.
type Gateway string

const (
	GatewayArca        Gateway = "arca"
	GatewayFlutterwave Gateway = "flutterwave"
	GatewayManual      Gateway = "manual"
)

// Allocation applies part of a payment to one fee assignment. Order matters:
// allocations are persisted and re-applied in the order the payer listed them.
type Allocation struct {
	AssignmentID int64
	Amount       decimal.Decimal
}

// Payment is one attempt to pay against one or more fee assignments.
// ReferenceNumber is the idempotency key across retries and gateway
// round-trips; it is never reused.
type Payment struct {
	ID                int64
	SchoolID          int64
	StudentID         int64
	ParentUserID      *int64
	ReferenceNumber   string
	ExternalReference string
	Amount            decimal.Decimal
	Currency          string
	Method            PaymentMethod
	Gateway           Gateway
	Status            PaymentStatus
	Allocations       []Allocation
	GatewayResponse   []byte
	PaidAt            *time.Time
	FailureReason     string
	Notes             string
	ReceiptGenerated  bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AllocationTotal sums the payment's allocations.
func (p *Payment) AllocationTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// CanBeRefunded reports whether an administrative refund is possible.
func (p *Payment) CanBeRefunded() bool {
	return p.Status == PaymentStatusSuccessful
}

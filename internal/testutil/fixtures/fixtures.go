// Package fixtures provides test data builders shared across test files.
package fixtures

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/payng/fee-payment-service/internal/domain/models"
)

// Int64Ptr returns a pointer to v
func Int64Ptr(v int64) *int64 { return &v }

// TimePtr returns a pointer to t
func TimePtr(t time.Time) *time.Time { return &t }

// Assignment returns a tuition assignment with 50,000 NGN outstanding.
func Assignment(id int64) *models.FeeAssignment {
	return &models.FeeAssignment{
		ID:             id,
		SchoolID:       1,
		StudentID:      10,
		FeeScheduleID:  100,
		AcademicYear:   "2026/2027",
		Term:           "first",
		OriginalAmount: decimal.NewFromInt(50_000),
		DiscountAmount: decimal.Zero,
		FinalAmount:    decimal.NewFromInt(50_000),
		AmountPaid:     decimal.Zero,
		Status:         models.AssignmentStatusPending,
	}
}

// ProcessingPayment returns a card payment of 50,000 NGN in processing,
// allocated fully to assignment 1.
func ProcessingPayment(reference string) *models.Payment {
	return &models.Payment{
		ID:              1,
		SchoolID:        1,
		StudentID:       10,
		ReferenceNumber: reference,
		Amount:          decimal.NewFromInt(50_000),
		Currency:        "NGN",
		Method:          models.PaymentMethodCard,
		Gateway:         models.GatewayArca,
		Status:          models.PaymentStatusProcessing,
		Allocations: []models.Allocation{
			{AssignmentID: 1, Amount: decimal.NewFromInt(50_000)},
		},
		CreatedAt: time.Now().UTC(),
	}
}

// SuccessfulPayment returns ProcessingPayment already settled.
func SuccessfulPayment(reference string) *models.Payment {
	p := ProcessingPayment(reference)
	p.Status = models.PaymentStatusSuccessful
	return p
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssignmentStatus represents the payment state of a fee assignment
type AssignmentStatus string

const (
	AssignmentStatusPending AssignmentStatus = "pending"
	AssignmentStatusPartial AssignmentStatus = "partial"
	AssignmentStatusPaid    AssignmentStatus = "paid"
	AssignmentStatusOverdue AssignmentStatus = "overdue"
	AssignmentStatusWaived  AssignmentStatus = "waived"
)

// FeeType categorizes a fee schedule
type FeeType string

const (
	FeeTypeTuition     FeeType = "tuition"
	FeeTypeTransport   FeeType = "transport"
	FeeTypeTextbook    FeeType = "textbook"
	FeeTypeUniform     FeeType = "uniform"
	FeeTypeExamination FeeType = "examination"
	FeeTypeBoarding    FeeType = "boarding"
	FeeTypeSports      FeeType = "sports"
	FeeTypeTechnology  FeeType = "technology"
	FeeTypeLibrary     FeeType = "library"
	FeeTypeOther       FeeType = "other"
)

// FeeSchedule is a fee template defined by a school ("JSS 1 Tuition Fee")
type FeeSchedule struct {
	ID           int64
	SchoolID     int64
	Name         string
	FeeType      FeeType
	Amount       decimal.Decimal
	Currency     string
	AcademicYear string
	Term         string
	DueDate      *time.Time
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FeeAssignment links a student to a fee schedule for a term/year.
// AmountPaid only increases, via verified successful payments, and never
// exceeds FinalAmount.
type FeeAssignment struct {
	ID             int64
	SchoolID       int64
	StudentID      int64
	FeeScheduleID  int64
	AcademicYear   string
	Term           string
	OriginalAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	AmountPaid     decimal.Decimal
	Status         AssignmentStatus
	DueDate        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Outstanding returns the amount still owed on the assignment.
func (a *FeeAssignment) Outstanding() decimal.Decimal {
	return a.FinalAmount.Sub(a.AmountPaid)
}

// CanAccept reports whether applying amount keeps AmountPaid within FinalAmount.
func (a *FeeAssignment) CanAccept(amount decimal.Decimal) bool {
	return a.AmountPaid.Add(amount).LessThanOrEqual(a.FinalAmount)
}

// IsPayable reports whether the assignment can still receive payments.
func (a *FeeAssignment) IsPayable() bool {
	return a.Status != AssignmentStatusWaived && a.Status != AssignmentStatusPaid
}

// DeriveStatus computes the status implied by AmountPaid vs FinalAmount.
// A waived assignment stays waived; overdue clears only when paid in full.
func (a *FeeAssignment) DeriveStatus() AssignmentStatus {
	if a.Status == AssignmentStatusWaived {
		return AssignmentStatusWaived
	}
	switch {
	case a.AmountPaid.GreaterThanOrEqual(a.FinalAmount):
		return AssignmentStatusPaid
	case a.AmountPaid.IsPositive():
		return AssignmentStatusPartial
	case a.Status == AssignmentStatusOverdue:
		return AssignmentStatusOverdue
	default:
		return AssignmentStatusPending
	}
}

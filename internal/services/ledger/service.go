package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
	"github.com/payng/fee-payment-service/pkg/timeutil"
)

// Payment amount bounds in major currency units (NGN).
var (
	MinPaymentAmount = decimal.NewFromInt(100)
	MaxPaymentAmount = decimal.NewFromInt(10_000_000)
)

// Service owns the fee payment ledger: payment records, their allocations
// to fee assignments, and assignment status bookkeeping. It never talks to
// payment gateways.
type Service struct {
	db          ports.DBPort
	payments    ports.PaymentRepository
	assignments ports.AssignmentRepository
	logger      ports.Logger
}

// NewService creates a ledger service
func NewService(db ports.DBPort, payments ports.PaymentRepository, assignments ports.AssignmentRepository, logger ports.Logger) *Service {
	return &Service{
		db:          db,
		payments:    payments,
		assignments: assignments,
		logger:      logger,
	}
}

// CreatePaymentRequest describes a new payment against one or more fee
// assignments of a single student.
type CreatePaymentRequest struct {
	SchoolID     int64
	StudentID    int64
	ParentUserID *int64
	Amount       decimal.Decimal
	Currency     string
	Method       models.PaymentMethod
	Gateway      models.Gateway
	Allocations  []models.Allocation
	Notes        string
}

// CreatePayment validates the request against the ledger and records a
// pending payment. Headroom is checked here so obviously oversubscribed
// payments never reach a gateway; the authoritative re-check happens again
// at verification time.
func (s *Service) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*models.Payment, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		SchoolID:        req.SchoolID,
		StudentID:       req.StudentID,
		ParentUserID:    req.ParentUserID,
		ReferenceNumber: GenerateReference(),
		Amount:          req.Amount,
		Currency:        req.Currency,
		Method:          req.Method,
		Gateway:         req.Gateway,
		Status:          models.PaymentStatusPending,
		Allocations:     req.Allocations,
		Notes:           req.Notes,
	}

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, alloc := range req.Allocations {
			assignment, err := s.assignments.GetByID(ctx, tx, alloc.AssignmentID)
			if err != nil {
				return err
			}
			if assignment.SchoolID != req.SchoolID || assignment.StudentID != req.StudentID {
				return domain.NewDomainError(domain.ErrorCodeAllocationInvalid, "fee assignment belongs to a different student").
					WithDetail("assignment_id", alloc.AssignmentID)
			}
			if !assignment.IsPayable() {
				return domain.NewDomainError(domain.ErrorCodeAllocationInvalid, "fee assignment is not payable").
					WithDetail("assignment_id", alloc.AssignmentID).
					WithDetail("status", string(assignment.Status))
			}
			if !assignment.CanAccept(alloc.Amount) {
				return domain.NewDomainError(domain.ErrorCodeOversubscribed, "allocation exceeds outstanding balance").
					WithDetail("assignment_id", alloc.AssignmentID).
					WithDetail("outstanding", assignment.Outstanding().String()).
					WithDetail("allocated", alloc.Amount.String())
			}
		}
		return s.payments.Create(ctx, tx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment created",
		ports.String("reference", payment.ReferenceNumber),
		ports.Int64("student_id", payment.StudentID),
		ports.String("amount", payment.Amount.String()))
	return payment, nil
}

// GetPayment fetches a payment by reference.
func (s *Service) GetPayment(ctx context.Context, reference string) (*models.Payment, error) {
	return s.payments.GetByReference(ctx, nil, reference)
}

// MarkProcessing transitions a payment from pending to processing once its
// gateway initiation succeeded.
func (s *Service) MarkProcessing(ctx context.Context, paymentID int64) error {
	return s.payments.MarkProcessing(ctx, nil, paymentID)
}

// MarkOverdueAssignments transitions unpaid assignments past their due date
// to overdue. Run from the scheduled job.
func (s *Service) MarkOverdueAssignments(ctx context.Context) (int64, error) {
	count, err := s.assignments.MarkOverdue(ctx, nil, timeutil.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("assignments marked overdue", ports.Int64("count", count))
	}
	return count, nil
}

func validateRequest(req *CreatePaymentRequest) error {
	if req.Currency == "" {
		req.Currency = "NGN"
	}
	if req.Amount.LessThan(MinPaymentAmount) || req.Amount.GreaterThan(MaxPaymentAmount) {
		return domain.NewDomainError(domain.ErrorCodeAmountInvalid,
			fmt.Sprintf("amount must be between %s and %s", MinPaymentAmount, MaxPaymentAmount)).
			WithDetail("amount", req.Amount.String())
	}
	if len(req.Allocations) == 0 {
		return domain.NewDomainError(domain.ErrorCodeAllocationInvalid, "at least one allocation is required")
	}

	total := decimal.Zero
	seen := make(map[int64]struct{}, len(req.Allocations))
	for _, alloc := range req.Allocations {
		if !alloc.Amount.IsPositive() {
			return domain.NewDomainError(domain.ErrorCodeAllocationInvalid, "allocation amounts must be positive").
				WithDetail("assignment_id", alloc.AssignmentID)
		}
		if _, dup := seen[alloc.AssignmentID]; dup {
			return domain.NewDomainError(domain.ErrorCodeAllocationInvalid, "duplicate assignment in allocations").
				WithDetail("assignment_id", alloc.AssignmentID)
		}
		seen[alloc.AssignmentID] = struct{}{}
		total = total.Add(alloc.Amount)
	}
	if !total.Equal(req.Amount) {
		return domain.NewDomainError(domain.ErrorCodeAllocationInvalid, "allocations must sum exactly to the payment amount").
			WithDetail("amount", req.Amount.String()).
			WithDetail("allocated", total.String())
	}
	return nil
}

// GenerateReference produces a unique payment reference, e.g. PAY-2026-1A2B3C4D.
func GenerateReference() string {
	fragment := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return fmt.Sprintf("PAY-%d-%s", timeutil.Now().Year(), fragment)
}

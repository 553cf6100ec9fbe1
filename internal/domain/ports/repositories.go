package ports

import (
	"context"
	"time"

	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/shopspring/decimal"
)

// PaymentRepository persists fee payments and their allocations. All methods
// accept an optional DBTX so callers can scope them to a transaction; a nil
// DBTX runs against the pool.
type PaymentRepository interface {
	Create(ctx context.Context, tx DBTX, payment *models.Payment) error
	GetByID(ctx context.Context, tx DBTX, id int64) (*models.Payment, error)
	GetByReference(ctx context.Context, tx DBTX, reference string) (*models.Payment, error)

	// GetByReferenceForUpdate locks the payment row for the duration of the
	// surrounding transaction. Reconciliation of a reference is serialized
	// through this lock.
	GetByReferenceForUpdate(ctx context.Context, tx DBTX, reference string) (*models.Payment, error)

	// MarkProcessing transitions pending -> processing. Returns
	// domain.ErrInvalidState if the payment is not pending.
	MarkProcessing(ctx context.Context, tx DBTX, id int64) error

	// SetGateway records which provider handled the initiation plus the
	// provider's own reference.
	SetGateway(ctx context.Context, tx DBTX, id int64, gateway models.Gateway, externalReference string) error

	// RecordOutcome writes a terminal (or reverted) status together with the
	// verification evidence.
	RecordOutcome(ctx context.Context, tx DBTX, id int64, status models.PaymentStatus, failureReason string, paidAt *time.Time, rawResponse []byte) error

	MarkReceiptGenerated(ctx context.Context, tx DBTX, id int64) error

	// ListStaleProcessing returns processing payments created before cutoff,
	// oldest first, for the reconciliation sweep.
	ListStaleProcessing(ctx context.Context, tx DBTX, cutoff time.Time, limit int32) ([]*models.Payment, error)

	// ListUnreceiptedSuccessful returns successful payments whose receipt was
	// never generated, oldest first, for the receipt recovery sweep.
	ListUnreceiptedSuccessful(ctx context.Context, tx DBTX, limit int32) ([]*models.Payment, error)
}

// AssignmentRepository persists fee assignments.
type AssignmentRepository interface {
	GetByID(ctx context.Context, tx DBTX, id int64) (*models.FeeAssignment, error)

	// GetByIDForUpdate locks the assignment row so concurrent payments cannot
	// both consume the same headroom.
	GetByIDForUpdate(ctx context.Context, tx DBTX, id int64) (*models.FeeAssignment, error)

	// ApplyPayment increments amount_paid by amount and sets the given status
	// in one statement.
	ApplyPayment(ctx context.Context, tx DBTX, id int64, amount decimal.Decimal, status models.AssignmentStatus) error

	UpdateStatus(ctx context.Context, tx DBTX, id int64, status models.AssignmentStatus) error

	// MarkOverdue transitions pending/partial assignments past their due date
	// to overdue, returning the number of rows affected.
	MarkOverdue(ctx context.Context, tx DBTX, asOf time.Time) (int64, error)
}

// ScheduleRepository reads fee schedule reference data.
type ScheduleRepository interface {
	GetByID(ctx context.Context, tx DBTX, id int64) (*models.FeeSchedule, error)
}

// ReceiptRepository persists receipts and per-channel delivery state.
type ReceiptRepository interface {
	Create(ctx context.Context, tx DBTX, receipt *models.Receipt) error
	GetByPaymentID(ctx context.Context, tx DBTX, paymentID int64) (*models.Receipt, error)
	UpdateChannelDelivery(ctx context.Context, tx DBTX, id int64, channel models.DeliveryChannel, delivery models.ChannelDelivery) error
}

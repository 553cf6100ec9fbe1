package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
)

// AssignmentRepository implements ports.AssignmentRepository backed by PostgreSQL.
type AssignmentRepository struct {
	db     ports.DBPort
	logger ports.Logger
}

// NewAssignmentRepository creates a new fee assignment repository
func NewAssignmentRepository(db ports.DBPort, logger ports.Logger) *AssignmentRepository {
	return &AssignmentRepository{db: db, logger: logger}
}

func (r *AssignmentRepository) executor(tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return r.db.GetDB()
}

const assignmentColumns = `id, school_id, student_id, fee_schedule_id, academic_year, term,
	original_amount, discount_amount, final_amount, amount_paid, status, due_date,
	created_at, updated_at`

// GetByID fetches a fee assignment.
func (r *AssignmentRepository) GetByID(ctx context.Context, tx ports.DBTX, id int64) (*models.FeeAssignment, error) {
	return r.getByID(ctx, tx, id, false)
}

// GetByIDForUpdate fetches a fee assignment with its row locked, serializing
// concurrent payments against the same assignment.
func (r *AssignmentRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id int64) (*models.FeeAssignment, error) {
	return r.getByID(ctx, tx, id, true)
}

func (r *AssignmentRepository) getByID(ctx context.Context, tx ports.DBTX, id int64, forUpdate bool) (*models.FeeAssignment, error) {
	exec := r.executor(tx)

	query := `SELECT ` + assignmentColumns + ` FROM fee_assignments WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	assignment, err := scanAssignment(exec.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAssignmentNotFound
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "fetch fee assignment", err)
	}
	return assignment, nil
}

// ApplyPayment increments amount_paid and sets the resulting status in a
// single statement so the invariant amount_paid <= final_amount is enforced
// at the row, never from stale in-memory state.
func (r *AssignmentRepository) ApplyPayment(ctx context.Context, tx ports.DBTX, id int64, amount decimal.Decimal, status models.AssignmentStatus) error {
	exec := r.executor(tx)

	inc, err := decimalToNumeric(amount)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalError, "encode payment amount", err)
	}

	tag, err := exec.Exec(ctx, `
		UPDATE fee_assignments
		SET amount_paid = amount_paid + $2,
		    status = $3,
		    updated_at = NOW()
		WHERE id = $1 AND amount_paid + $2 <= final_amount`,
		id, inc, string(status))
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "apply payment to assignment", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOversubscribed
	}
	return nil
}

// UpdateStatus sets the assignment status without touching amounts.
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, tx ports.DBTX, id int64, status models.AssignmentStatus) error {
	exec := r.executor(tx)

	tag, err := exec.Exec(ctx, `
		UPDATE fee_assignments
		SET status = $2, updated_at = NOW()
		WHERE id = $1`,
		id, string(status))
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "update assignment status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAssignmentNotFound
	}
	return nil
}

// MarkOverdue transitions unpaid assignments past their due date to overdue.
func (r *AssignmentRepository) MarkOverdue(ctx context.Context, tx ports.DBTX, asOf time.Time) (int64, error) {
	exec := r.executor(tx)

	tag, err := exec.Exec(ctx, `
		UPDATE fee_assignments
		SET status = 'overdue', updated_at = NOW()
		WHERE status IN ('pending', 'partial')
		  AND due_date IS NOT NULL
		  AND due_date < $1`, asOf)
	if err != nil {
		return 0, domain.WrapError(domain.ErrorCodeDatabaseError, "mark assignments overdue", err)
	}
	return tag.RowsAffected(), nil
}

func scanAssignment(row pgx.Row) (*models.FeeAssignment, error) {
	var (
		assignment models.FeeAssignment
		original   pgtype.Numeric
		discount   pgtype.Numeric
		final      pgtype.Numeric
		paid       pgtype.Numeric
		status     string
		dueDate    pgtype.Timestamptz
	)

	err := row.Scan(
		&assignment.ID,
		&assignment.SchoolID,
		&assignment.StudentID,
		&assignment.FeeScheduleID,
		&assignment.AcademicYear,
		&assignment.Term,
		&original,
		&discount,
		&final,
		&paid,
		&status,
		&dueDate,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	assignment.Status = models.AssignmentStatus(status)
	assignment.DueDate = timePtr(dueDate)

	if assignment.OriginalAmount, err = pgNumericToDecimal(original); err != nil {
		return nil, err
	}
	if assignment.DiscountAmount, err = pgNumericToDecimal(discount); err != nil {
		return nil, err
	}
	if assignment.FinalAmount, err = pgNumericToDecimal(final); err != nil {
		return nil, err
	}
	if assignment.AmountPaid, err = pgNumericToDecimal(paid); err != nil {
		return nil, err
	}
	return &assignment, nil
}

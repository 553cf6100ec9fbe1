package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
)

const uniqueViolationCode = "23505"

// PaymentRepository implements ports.PaymentRepository backed by PostgreSQL.
type PaymentRepository struct {
	db     ports.DBPort
	logger ports.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db ports.DBPort, logger ports.Logger) *PaymentRepository {
	return &PaymentRepository{db: db, logger: logger}
}

// executor returns the transaction if provided, otherwise the pool
func (r *PaymentRepository) executor(tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return r.db.GetDB()
}

const paymentColumns = `id, school_id, student_id, parent_user_id, reference_number,
	external_reference, amount, currency, method, gateway, status,
	gateway_response, paid_at, failure_reason, notes, receipt_generated,
	created_at, updated_at`

// Create inserts the payment and its allocations. A duplicate reference
// number surfaces as domain.ErrDuplicateReference.
func (r *PaymentRepository) Create(ctx context.Context, tx ports.DBTX, payment *models.Payment) error {
	exec := r.executor(tx)

	amount, err := decimalToNumeric(payment.Amount)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalError, "encode payment amount", err)
	}

	query := `
		INSERT INTO fee_payments (
			school_id, student_id, parent_user_id, reference_number,
			external_reference, amount, currency, method, gateway, status, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err = exec.QueryRow(ctx, query,
		payment.SchoolID,
		payment.StudentID,
		nullInt8(payment.ParentUserID),
		payment.ReferenceNumber,
		nullText(payment.ExternalReference),
		amount,
		payment.Currency,
		string(payment.Method),
		nullText(string(payment.Gateway)),
		string(payment.Status),
		nullText(payment.Notes),
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrDuplicateReference
		}
		return domain.WrapError(domain.ErrorCodeDatabaseError, "insert payment", err)
	}

	for i, alloc := range payment.Allocations {
		allocAmount, err := decimalToNumeric(alloc.Amount)
		if err != nil {
			return domain.WrapError(domain.ErrorCodeInternalError, "encode allocation amount", err)
		}
		_, err = exec.Exec(ctx, `
			INSERT INTO payment_allocations (payment_id, position, assignment_id, amount)
			VALUES ($1, $2, $3, $4)`,
			payment.ID, i, alloc.AssignmentID, allocAmount)
		if err != nil {
			return domain.WrapError(domain.ErrorCodeDatabaseError, "insert payment allocation", err)
		}
	}

	return nil
}

// GetByID fetches a payment and its allocations by id.
func (r *PaymentRepository) GetByID(ctx context.Context, tx ports.DBTX, id int64) (*models.Payment, error) {
	exec := r.executor(tx)

	query := `SELECT ` + paymentColumns + ` FROM fee_payments WHERE id = $1`
	payment, err := scanPayment(exec.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "fetch payment", err)
	}

	if err := r.loadAllocations(ctx, exec, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// GetByReference fetches a payment and its allocations by reference number.
func (r *PaymentRepository) GetByReference(ctx context.Context, tx ports.DBTX, reference string) (*models.Payment, error) {
	return r.getByReference(ctx, tx, reference, false)
}

// GetByReferenceForUpdate fetches a payment with its row locked for the
// duration of the surrounding transaction.
func (r *PaymentRepository) GetByReferenceForUpdate(ctx context.Context, tx ports.DBTX, reference string) (*models.Payment, error) {
	return r.getByReference(ctx, tx, reference, true)
}

func (r *PaymentRepository) getByReference(ctx context.Context, tx ports.DBTX, reference string, forUpdate bool) (*models.Payment, error) {
	exec := r.executor(tx)

	query := `SELECT ` + paymentColumns + ` FROM fee_payments WHERE reference_number = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	payment, err := scanPayment(exec.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "fetch payment", err)
	}

	if err := r.loadAllocations(ctx, exec, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// MarkProcessing transitions pending -> processing. Any other current status
// yields domain.ErrInvalidState.
func (r *PaymentRepository) MarkProcessing(ctx context.Context, tx ports.DBTX, id int64) error {
	exec := r.executor(tx)

	tag, err := exec.Exec(ctx, `
		UPDATE fee_payments
		SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "mark payment processing", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

// SetGateway records the provider that handled initiation and its reference.
func (r *PaymentRepository) SetGateway(ctx context.Context, tx ports.DBTX, id int64, gateway models.Gateway, externalReference string) error {
	exec := r.executor(tx)

	tag, err := exec.Exec(ctx, `
		UPDATE fee_payments
		SET gateway = $2, external_reference = $3, updated_at = NOW()
		WHERE id = $1`,
		id, string(gateway), nullText(externalReference))
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "set payment gateway", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// RecordOutcome writes the verified status with its evidence. Existing paid_at
// and gateway_response values are preserved when the new ones are absent.
func (r *PaymentRepository) RecordOutcome(ctx context.Context, tx ports.DBTX, id int64, status models.PaymentStatus, failureReason string, paidAt *time.Time, rawResponse []byte) error {
	exec := r.executor(tx)

	tag, err := exec.Exec(ctx, `
		UPDATE fee_payments
		SET status = $2,
		    failure_reason = $3,
		    paid_at = COALESCE($4, paid_at),
		    gateway_response = COALESCE($5, gateway_response),
		    updated_at = NOW()
		WHERE id = $1`,
		id, string(status), nullText(failureReason), nullTimestamptz(paidAt), rawResponse)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "record payment outcome", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// MarkReceiptGenerated flags the payment so receipt issuance is not repeated.
func (r *PaymentRepository) MarkReceiptGenerated(ctx context.Context, tx ports.DBTX, id int64) error {
	exec := r.executor(tx)

	tag, err := exec.Exec(ctx, `
		UPDATE fee_payments
		SET receipt_generated = TRUE, updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "mark receipt generated", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// ListStaleProcessing returns processing payments created before cutoff,
// oldest first. Allocations are not loaded; the sweep re-reads each payment
// under lock before applying anything.
func (r *PaymentRepository) ListStaleProcessing(ctx context.Context, tx ports.DBTX, cutoff time.Time, limit int32) ([]*models.Payment, error) {
	exec := r.executor(tx)

	rows, err := exec.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM fee_payments
		WHERE status = 'processing' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list stale processing payments", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan stale payment", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "iterate stale payments", err)
	}
	return payments, nil
}

// ListUnreceiptedSuccessful returns successful payments still flagged
// receipt_generated = FALSE, oldest first. Issuance retries can exhaust
// without a receipt landing; this feeds the sweep that picks those up.
func (r *PaymentRepository) ListUnreceiptedSuccessful(ctx context.Context, tx ports.DBTX, limit int32) ([]*models.Payment, error) {
	exec := r.executor(tx)

	rows, err := exec.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM fee_payments
		WHERE status = 'successful' AND receipt_generated = FALSE
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list unreceipted payments", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan unreceipted payment", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "iterate unreceipted payments", err)
	}
	return payments, nil
}

func (r *PaymentRepository) loadAllocations(ctx context.Context, exec ports.DBTX, payment *models.Payment) error {
	rows, err := exec.Query(ctx, `
		SELECT assignment_id, amount
		FROM payment_allocations
		WHERE payment_id = $1
		ORDER BY position ASC`, payment.ID)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "fetch payment allocations", err)
	}
	defer rows.Close()

	payment.Allocations = payment.Allocations[:0]
	for rows.Next() {
		var alloc models.Allocation
		var amount pgtype.Numeric
		if err := rows.Scan(&alloc.AssignmentID, &amount); err != nil {
			return domain.WrapError(domain.ErrorCodeDatabaseError, "scan allocation", err)
		}
		if alloc.Amount, err = pgNumericToDecimal(amount); err != nil {
			return domain.WrapError(domain.ErrorCodeDatabaseError, "decode allocation amount", err)
		}
		payment.Allocations = append(payment.Allocations, alloc)
	}
	return rows.Err()
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var (
		payment         models.Payment
		parentUserID    pgtype.Int8
		externalRef     pgtype.Text
		amount          pgtype.Numeric
		method          string
		gateway         pgtype.Text
		status          string
		gatewayResponse []byte
		paidAt          pgtype.Timestamptz
		failureReason   pgtype.Text
		notes           pgtype.Text
	)

	err := row.Scan(
		&payment.ID,
		&payment.SchoolID,
		&payment.StudentID,
		&parentUserID,
		&payment.ReferenceNumber,
		&externalRef,
		&amount,
		&payment.Currency,
		&method,
		&gateway,
		&status,
		&gatewayResponse,
		&paidAt,
		&failureReason,
		&notes,
		&payment.ReceiptGenerated,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.ParentUserID = int64Ptr(parentUserID)
	payment.ExternalReference = externalRef.String
	payment.Method = models.PaymentMethod(method)
	payment.Gateway = models.Gateway(gateway.String)
	payment.Status = models.PaymentStatus(status)
	payment.GatewayResponse = gatewayResponse
	payment.PaidAt = timePtr(paidAt)
	payment.FailureReason = failureReason.String
	payment.Notes = notes.String

	if payment.Amount, err = pgNumericToDecimal(amount); err != nil {
		return nil, err
	}
	return &payment, nil
}

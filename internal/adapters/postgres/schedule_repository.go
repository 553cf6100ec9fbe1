package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
)

// ScheduleRepository implements ports.ScheduleRepository backed by PostgreSQL.
type ScheduleRepository struct {
	db ports.DBPort
}

// NewScheduleRepository creates a new fee schedule repository
func NewScheduleRepository(db ports.DBPort) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) executor(tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return r.db.GetDB()
}

// GetByID fetches a fee schedule.
func (r *ScheduleRepository) GetByID(ctx context.Context, tx ports.DBTX, id int64) (*models.FeeSchedule, error) {
	exec := r.executor(tx)

	var (
		schedule models.FeeSchedule
		feeType  string
		amount   pgtype.Numeric
		dueDate  pgtype.Timestamptz
	)

	err := exec.QueryRow(ctx, `
		SELECT id, school_id, name, fee_type, amount, currency, academic_year,
		       term, due_date, is_active, created_at, updated_at
		FROM fee_schedules
		WHERE id = $1`, id).Scan(
		&schedule.ID,
		&schedule.SchoolID,
		&schedule.Name,
		&feeType,
		&amount,
		&schedule.Currency,
		&schedule.AcademicYear,
		&schedule.Term,
		&dueDate,
		&schedule.IsActive,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDomainError(domain.ErrorCodeAssignmentNotFound, "fee schedule not found").
				WithDetail("schedule_id", id)
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "fetch fee schedule", err)
	}

	schedule.FeeType = models.FeeType(feeType)
	schedule.DueDate = timePtr(dueDate)
	if schedule.Amount, err = pgNumericToDecimal(amount); err != nil {
		return nil, err
	}
	return &schedule, nil
}

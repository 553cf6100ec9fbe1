package receipt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
	"github.com/payng/fee-payment-service/pkg/observability"
	"github.com/payng/fee-payment-service/pkg/resilience"
	"github.com/payng/fee-payment-service/pkg/timeutil"
)

const deliveryAttempts = 3

// Dispatcher issues receipts for successful payments and drives delivery
// over each configured channel. Issuance is idempotent per payment: the
// unique constraint on receipts.payment_id makes a concurrent double-issue
// collapse into reusing the stored receipt. Delivery failures only update
// per-channel state; they never propagate to the payment.
type Dispatcher struct {
	payments    ports.PaymentRepository
	assignments ports.AssignmentRepository
	schedules   ports.ScheduleRepository
	receipts    ports.ReceiptRepository
	directory   ports.Directory
	senders     map[models.DeliveryChannel]ports.ChannelSender
	backoff     resilience.BackoffStrategy
	timeouts    *resilience.TimeoutConfig
	logger      ports.Logger
}

// NewDispatcher creates a receipt dispatcher. senders may omit channels;
// omitted channels are skipped, not failed.
func NewDispatcher(
	payments ports.PaymentRepository,
	assignments ports.AssignmentRepository,
	schedules ports.ScheduleRepository,
	receipts ports.ReceiptRepository,
	directory ports.Directory,
	senders map[models.DeliveryChannel]ports.ChannelSender,
	logger ports.Logger,
) *Dispatcher {
	return &Dispatcher{
		payments:    payments,
		assignments: assignments,
		schedules:   schedules,
		receipts:    receipts,
		directory:   directory,
		senders:     senders,
		backoff:     resilience.DeliveryBackoff(),
		timeouts:    resilience.DefaultTimeouts(),
		logger:      logger,
	}
}

// IssueReceipt creates (or retrieves) the receipt for a successful payment
// and attempts delivery over every configured channel.
func (d *Dispatcher) IssueReceipt(ctx context.Context, paymentID int64) (*models.Receipt, error) {
	payment, err := d.payments.GetByID(ctx, nil, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusSuccessful {
		return nil, domain.NewDomainError(domain.ErrorCodeInvalidState, "receipt requires a successful payment").
			WithDetail("reference", payment.ReferenceNumber).
			WithDetail("status", string(payment.Status))
	}

	receipt, student, err := d.findOrCreate(ctx, payment)
	if err != nil {
		return nil, err
	}

	d.deliver(ctx, receipt, student)
	return receipt, nil
}

func (d *Dispatcher) findOrCreate(ctx context.Context, payment *models.Payment) (*models.Receipt, *models.StudentRecord, error) {
	student, err := d.directory.GetStudent(ctx, payment.StudentID)
	if err != nil {
		return nil, nil, err
	}

	if existing, err := d.receipts.GetByPaymentID(ctx, nil, payment.ID); err == nil {
		return existing, student, nil
	} else if !domain.IsNotFoundError(err) {
		return nil, nil, err
	}

	school, err := d.directory.GetSchool(ctx, payment.SchoolID)
	if err != nil {
		return nil, nil, err
	}

	items, err := d.feeItems(ctx, payment)
	if err != nil {
		return nil, nil, err
	}

	receipt := &models.Receipt{
		PaymentID:     payment.ID,
		ReceiptNumber: GenerateReceiptNumber(),
	}
	receipt.Data = buildSnapshot(receipt.ReceiptNumber, payment, student, school, items)

	if err := d.receipts.Create(ctx, nil, receipt); err != nil {
		if domain.IsDomainError(err, domain.ErrorCodeInvalidState) {
			// Lost a race with another issuer; theirs is authoritative.
			existing, getErr := d.receipts.GetByPaymentID(ctx, nil, payment.ID)
			if getErr != nil {
				return nil, nil, getErr
			}
			return existing, student, nil
		}
		return nil, nil, err
	}

	if err := d.payments.MarkReceiptGenerated(ctx, nil, payment.ID); err != nil {
		d.logger.Error("failed to flag payment as receipted",
			ports.String("reference", payment.ReferenceNumber),
			ports.Err(err))
	}

	d.logger.Info("receipt issued",
		ports.String("receipt_number", receipt.ReceiptNumber),
		ports.String("reference", payment.ReferenceNumber))
	return receipt, student, nil
}

func (d *Dispatcher) feeItems(ctx context.Context, payment *models.Payment) ([]models.ReceiptItem, error) {
	items := make([]models.ReceiptItem, 0, len(payment.Allocations))
	for _, alloc := range payment.Allocations {
		assignment, err := d.assignments.GetByID(ctx, nil, alloc.AssignmentID)
		if err != nil {
			return nil, err
		}
		schedule, err := d.schedules.GetByID(ctx, nil, assignment.FeeScheduleID)
		if err != nil {
			return nil, err
		}
		items = append(items, models.ReceiptItem{
			Name:   schedule.Name,
			Amount: alloc.Amount,
		})
	}
	return items, nil
}

func buildSnapshot(receiptNumber string, payment *models.Payment, student *models.StudentRecord, school *models.SchoolRecord, items []models.ReceiptItem) models.ReceiptData {
	paymentDate := timeutil.Now()
	if payment.PaidAt != nil {
		paymentDate = *payment.PaidAt
	}
	return models.ReceiptData{
		ReceiptNumber: receiptNumber,
		StudentName:   student.FullName,
		StudentID:     student.AdmissionNo,
		SchoolName:    school.Name,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		PaymentMethod: string(payment.Method),
		PaymentDate:   paymentDate.Format(time.RFC3339),
		TransactionID: payment.ReferenceNumber,
		FeeItems:      items,
		ParentName:    student.ParentName,
		ParentEmail:   student.ParentEmail,
		ParentPhone:   student.ParentPhone,
	}
}

// deliver pushes the receipt over every channel with a configured sender
// and a known recipient. Channels already marked sent are skipped.
func (d *Dispatcher) deliver(ctx context.Context, receipt *models.Receipt, student *models.StudentRecord) {
	for _, channel := range models.DeliveryChannels {
		sender, ok := d.senders[channel]
		if !ok {
			continue
		}

		state := receipt.Delivery(channel)
		if state.Sent {
			continue
		}

		recipient := recipientFor(channel, student)
		if recipient == "" {
			continue
		}

		if err := d.sendWithRetry(ctx, sender, recipient, receipt.Data, state); err != nil {
			observability.ReceiptDeliveries.WithLabelValues(string(channel), "failure").Inc()
			d.logger.Warn("receipt delivery failed",
				ports.String("receipt_number", receipt.ReceiptNumber),
				ports.String("channel", string(channel)),
				ports.Err(err))
		} else {
			now := timeutil.Now()
			state.Sent = true
			state.SentAt = &now
			observability.ReceiptDeliveries.WithLabelValues(string(channel), "success").Inc()
		}
		state.Recipient = recipient

		if err := d.receipts.UpdateChannelDelivery(ctx, nil, receipt.ID, channel, *state); err != nil {
			d.logger.Error("failed to persist delivery state",
				ports.String("receipt_number", receipt.ReceiptNumber),
				ports.String("channel", string(channel)),
				ports.Err(err))
		}
	}
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, sender ports.ChannelSender, recipient string, data models.ReceiptData, state *models.ChannelDelivery) error {
	var err error
	for attempt := 0; attempt < deliveryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.backoff.NextDelay(attempt - 1)):
			}
		}
		sendCtx, cancel := d.timeouts.DeliveryContext(ctx)
		err = sender.Send(sendCtx, recipient, data)
		cancel()
		if err == nil {
			return nil
		}
		state.RetryCount++
	}
	return err
}

func recipientFor(channel models.DeliveryChannel, student *models.StudentRecord) string {
	switch channel {
	case models.ChannelEmail:
		return student.ParentEmail
	default:
		return student.ParentPhone
	}
}

// GenerateReceiptNumber produces a unique receipt number, e.g. REC-2026-1A2B3C4D.
func GenerateReceiptNumber() string {
	fragment := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return fmt.Sprintf("REC-%d-%s", timeutil.Now().Year(), fragment)
}

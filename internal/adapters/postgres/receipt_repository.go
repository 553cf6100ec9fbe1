package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
)

// ReceiptRepository implements ports.ReceiptRepository backed by PostgreSQL.
type ReceiptRepository struct {
	db     ports.DBPort
	logger ports.Logger
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db ports.DBPort, logger ports.Logger) *ReceiptRepository {
	return &ReceiptRepository{db: db, logger: logger}
}

func (r *ReceiptRepository) executor(tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return r.db.GetDB()
}

// Create inserts a receipt. The unique constraint on payment_id makes receipt
// issuance exactly-once: a second insert for the same payment returns
// domain.ErrInvalidState.
func (r *ReceiptRepository) Create(ctx context.Context, tx ports.DBTX, receipt *models.Receipt) error {
	exec := r.executor(tx)

	data, err := json.Marshal(receipt.Data)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalError, "encode receipt snapshot", err)
	}

	query := `
		INSERT INTO receipts (payment_id, receipt_number, pdf_url, receipt_data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err = exec.QueryRow(ctx, query,
		receipt.PaymentID,
		receipt.ReceiptNumber,
		nullText(receipt.PDFURL),
		data,
	).Scan(&receipt.ID, &receipt.CreatedAt, &receipt.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.NewDomainError(domain.ErrorCodeInvalidState, "receipt already exists for payment").
				WithDetail("payment_id", receipt.PaymentID)
		}
		return domain.WrapError(domain.ErrorCodeDatabaseError, "insert receipt", err)
	}
	return nil
}

// GetByPaymentID fetches the receipt issued for a payment.
func (r *ReceiptRepository) GetByPaymentID(ctx context.Context, tx ports.DBTX, paymentID int64) (*models.Receipt, error) {
	exec := r.executor(tx)

	query := `
		SELECT id, payment_id, receipt_number, pdf_url, receipt_data,
		       email_sent, email_sent_at, email_recipient, email_retry_count,
		       sms_sent, sms_sent_at, sms_recipient, sms_retry_count,
		       whatsapp_sent, whatsapp_sent_at, whatsapp_recipient, whatsapp_retry_count,
		       created_at, updated_at
		FROM receipts
		WHERE payment_id = $1`

	var (
		receipt models.Receipt
		pdfURL  pgtype.Text
		data    []byte

		emailSentAt    pgtype.Timestamptz
		emailRecipient pgtype.Text
		smsSentAt      pgtype.Timestamptz
		smsRecipient   pgtype.Text
		waSentAt       pgtype.Timestamptz
		waRecipient    pgtype.Text
	)

	err := exec.QueryRow(ctx, query, paymentID).Scan(
		&receipt.ID,
		&receipt.PaymentID,
		&receipt.ReceiptNumber,
		&pdfURL,
		&data,
		&receipt.Email.Sent,
		&emailSentAt,
		&emailRecipient,
		&receipt.Email.RetryCount,
		&receipt.SMS.Sent,
		&smsSentAt,
		&smsRecipient,
		&receipt.SMS.RetryCount,
		&receipt.WhatsApp.Sent,
		&waSentAt,
		&waRecipient,
		&receipt.WhatsApp.RetryCount,
		&receipt.CreatedAt,
		&receipt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDomainError(domain.ErrorCodePaymentNotFound, "receipt not found for payment").
				WithDetail("payment_id", paymentID)
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "fetch receipt", err)
	}

	receipt.PDFURL = pdfURL.String
	receipt.Email.SentAt = timePtr(emailSentAt)
	receipt.Email.Recipient = emailRecipient.String
	receipt.SMS.SentAt = timePtr(smsSentAt)
	receipt.SMS.Recipient = smsRecipient.String
	receipt.WhatsApp.SentAt = timePtr(waSentAt)
	receipt.WhatsApp.Recipient = waRecipient.String

	if err := json.Unmarshal(data, &receipt.Data); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "decode receipt snapshot", err)
	}
	return &receipt, nil
}

// UpdateChannelDelivery writes the delivery state for one channel. Channel
// names are mapped to fixed column sets; the channel never reaches the SQL
// text as input.
func (r *ReceiptRepository) UpdateChannelDelivery(ctx context.Context, tx ports.DBTX, id int64, channel models.DeliveryChannel, delivery models.ChannelDelivery) error {
	exec := r.executor(tx)

	var prefix string
	switch channel {
	case models.ChannelEmail:
		prefix = "email"
	case models.ChannelSMS:
		prefix = "sms"
	case models.ChannelWhatsApp:
		prefix = "whatsapp"
	default:
		return domain.NewDomainError(domain.ErrorCodeValidationFailed, "unknown delivery channel").
			WithDetail("channel", string(channel))
	}

	query := fmt.Sprintf(`
		UPDATE receipts
		SET %[1]s_sent = $2,
		    %[1]s_sent_at = $3,
		    %[1]s_recipient = $4,
		    %[1]s_retry_count = $5,
		    updated_at = NOW()
		WHERE id = $1`, prefix)

	tag, err := exec.Exec(ctx, query,
		id,
		delivery.Sent,
		nullTimestamptz(delivery.SentAt),
		nullText(delivery.Recipient),
		delivery.RetryCount)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "update receipt delivery", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrorCodePaymentNotFound, "receipt not found").
			WithDetail("receipt_id", id)
	}
	return nil
}

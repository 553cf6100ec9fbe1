package ports

import (
	"context"

	"github.com/payng/fee-payment-service/internal/domain/models"
)

// Directory looks up school and student records owned by the surrounding
// system. The payment core reads them only to snapshot receipt data.
type Directory interface {
	GetStudent(ctx context.Context, id int64) (*models.StudentRecord, error)
	GetSchool(ctx context.Context, id int64) (*models.SchoolRecord, error)
}

// ReceiptDispatcher is the boundary to document generation and multi-channel
// delivery. IssueReceipt must be idempotent per payment; delivery failures
// are tracked on the receipt and never escalated to the payment.
type ReceiptDispatcher interface {
	IssueReceipt(ctx context.Context, paymentID int64) (*models.Receipt, error)
}

// ChannelSender delivers a rendered receipt over one channel (email, SMS or
// WhatsApp). Implementations live outside the payment core.
type ChannelSender interface {
	Send(ctx context.Context, recipient string, data models.ReceiptData) error
}

// Secret is a secret value with versioning metadata
type Secret struct {
	Value    string
	Version  string
	Metadata map[string]string
}

// SecretManager retrieves gateway credentials and webhook signing secrets
// from a secrets backend.
type SecretManager interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}

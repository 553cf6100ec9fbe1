package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryChannel identifies a receipt delivery channel
type DeliveryChannel string

const (
	ChannelEmail    DeliveryChannel = "email"
	ChannelSMS      DeliveryChannel = "sms"
	ChannelWhatsApp DeliveryChannel = "whatsapp"
)

// DeliveryChannels lists all channels in dispatch order.
var DeliveryChannels = []DeliveryChannel{ChannelEmail, ChannelSMS, ChannelWhatsApp}

// ChannelDelivery tracks delivery of a receipt over one channel. Each channel
// retries independently; failures never affect the owning payment.
type ChannelDelivery struct {
	Sent       bool
	SentAt     *time.Time
	Recipient  string
	RetryCount int
}

// ReceiptItem is one fee line on a receipt.
type ReceiptItem struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ReceiptData is the frozen snapshot of a successful payment at receipt
// generation time. It is immutable once written.
type ReceiptData struct {
	ReceiptNumber string          `json:"receipt_number"`
	StudentName   string          `json:"student_name"`
	StudentID     string          `json:"student_id"`
	SchoolName    string          `json:"school_name"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	PaymentDate   string          `json:"payment_date"`
	TransactionID string          `json:"transaction_id,omitempty"`
	FeeItems      []ReceiptItem   `json:"fee_items"`
	ParentName    string          `json:"parent_name,omitempty"`
	ParentEmail   string          `json:"parent_email,omitempty"`
	ParentPhone   string          `json:"parent_phone,omitempty"`
}

// Receipt is the immutable record issued exactly once per successful payment.
type Receipt struct {
	ID            int64
	PaymentID     int64
	ReceiptNumber string
	PDFURL        string
	Data          ReceiptData
	Email         ChannelDelivery
	SMS           ChannelDelivery
	WhatsApp      ChannelDelivery
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Delivery returns the delivery state for the given channel.
func (r *Receipt) Delivery(channel DeliveryChannel) *ChannelDelivery {
	switch channel {
	case ChannelSMS:
		return &r.SMS
	case ChannelWhatsApp:
		return &r.WhatsApp
	default:
		return &r.Email
	}
}

// StudentRecord is the directory view of a student used for receipt snapshots.
type StudentRecord struct {
	ID          int64
	SchoolID    int64
	FullName    string
	AdmissionNo string
	ParentName  string
	ParentEmail string
	ParentPhone string
}

// SchoolRecord is the directory view of a school used for receipt snapshots.
type SchoolRecord struct {
	ID    int64
	Name  string
	Email string
	Phone string
}

// Package mocks provides shared mock implementations for testing.
package mocks

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
)

// DB implements ports.DBPort. WithTransaction runs the callback with a nil
// transaction so repository mocks see the call shape they expect.
type DB struct {
	mock.Mock
}

func (m *DB) GetDB() *pgxpool.Pool { return nil }

func (m *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

func (m *DB) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

// PaymentRepository implements ports.PaymentRepository
type PaymentRepository struct {
	mock.Mock
}

func (m *PaymentRepository) Create(ctx context.Context, tx ports.DBTX, payment *models.Payment) error {
	args := m.Called(ctx, tx, payment)
	return args.Error(0)
}

func (m *PaymentRepository) GetByID(ctx context.Context, tx ports.DBTX, id int64) (*models.Payment, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *PaymentRepository) GetByReference(ctx context.Context, tx ports.DBTX, reference string) (*models.Payment, error) {
	args := m.Called(ctx, tx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *PaymentRepository) GetByReferenceForUpdate(ctx context.Context, tx ports.DBTX, reference string) (*models.Payment, error) {
	args := m.Called(ctx, tx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *PaymentRepository) MarkProcessing(ctx context.Context, tx ports.DBTX, id int64) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *PaymentRepository) SetGateway(ctx context.Context, tx ports.DBTX, id int64, gateway models.Gateway, externalReference string) error {
	args := m.Called(ctx, tx, id, gateway, externalReference)
	return args.Error(0)
}

func (m *PaymentRepository) RecordOutcome(ctx context.Context, tx ports.DBTX, id int64, status models.PaymentStatus, failureReason string, paidAt *time.Time, rawResponse []byte) error {
	args := m.Called(ctx, tx, id, status, failureReason, paidAt, rawResponse)
	return args.Error(0)
}

func (m *PaymentRepository) MarkReceiptGenerated(ctx context.Context, tx ports.DBTX, id int64) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *PaymentRepository) ListStaleProcessing(ctx context.Context, tx ports.DBTX, cutoff time.Time, limit int32) ([]*models.Payment, error) {
	args := m.Called(ctx, tx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *PaymentRepository) ListUnreceiptedSuccessful(ctx context.Context, tx ports.DBTX, limit int32) ([]*models.Payment, error) {
	args := m.Called(ctx, tx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

// AssignmentRepository implements ports.AssignmentRepository
type AssignmentRepository struct {
	mock.Mock
}

func (m *AssignmentRepository) GetByID(ctx context.Context, tx ports.DBTX, id int64) (*models.FeeAssignment, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeeAssignment), args.Error(1)
}

func (m *AssignmentRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id int64) (*models.FeeAssignment, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeeAssignment), args.Error(1)
}

func (m *AssignmentRepository) ApplyPayment(ctx context.Context, tx ports.DBTX, id int64, amount decimal.Decimal, status models.AssignmentStatus) error {
	args := m.Called(ctx, tx, id, amount, status)
	return args.Error(0)
}

func (m *AssignmentRepository) UpdateStatus(ctx context.Context, tx ports.DBTX, id int64, status models.AssignmentStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *AssignmentRepository) MarkOverdue(ctx context.Context, tx ports.DBTX, asOf time.Time) (int64, error) {
	args := m.Called(ctx, tx, asOf)
	return args.Get(0).(int64), args.Error(1)
}

// ScheduleRepository implements ports.ScheduleRepository
type ScheduleRepository struct {
	mock.Mock
}

func (m *ScheduleRepository) GetByID(ctx context.Context, tx ports.DBTX, id int64) (*models.FeeSchedule, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeeSchedule), args.Error(1)
}

// ReceiptRepository implements ports.ReceiptRepository
type ReceiptRepository struct {
	mock.Mock
}

func (m *ReceiptRepository) Create(ctx context.Context, tx ports.DBTX, receipt *models.Receipt) error {
	args := m.Called(ctx, tx, receipt)
	return args.Error(0)
}

func (m *ReceiptRepository) GetByPaymentID(ctx context.Context, tx ports.DBTX, paymentID int64) (*models.Receipt, error) {
	args := m.Called(ctx, tx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Receipt), args.Error(1)
}

func (m *ReceiptRepository) UpdateChannelDelivery(ctx context.Context, tx ports.DBTX, id int64, channel models.DeliveryChannel, delivery models.ChannelDelivery) error {
	args := m.Called(ctx, tx, id, channel, delivery)
	return args.Error(0)
}

// GatewayManager implements ports.GatewayManager
type GatewayManager struct {
	mock.Mock
}

func (m *GatewayManager) Initiate(ctx context.Context, req *ports.InitiateRequest, preferred models.Gateway) (*ports.InitiateResult, models.Gateway, error) {
	args := m.Called(ctx, req, preferred)
	if args.Get(0) == nil {
		return nil, args.Get(1).(models.Gateway), args.Error(2)
	}
	return args.Get(0).(*ports.InitiateResult), args.Get(1).(models.Gateway), args.Error(2)
}

func (m *GatewayManager) Verify(ctx context.Context, reference string, gateway models.Gateway) (*ports.VerificationResult, error) {
	args := m.Called(ctx, reference, gateway)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.VerificationResult), args.Error(1)
}

func (m *GatewayManager) VerifyWebhook(rawBody []byte, signature string, gateway models.Gateway) ports.WebhookResult {
	args := m.Called(rawBody, signature, gateway)
	return args.Get(0).(ports.WebhookResult)
}

func (m *GatewayManager) AvailableGateways() []models.Gateway {
	args := m.Called()
	return args.Get(0).([]models.Gateway)
}

// ReceiptDispatcher implements ports.ReceiptDispatcher
type ReceiptDispatcher struct {
	mock.Mock
}

func (m *ReceiptDispatcher) IssueReceipt(ctx context.Context, paymentID int64) (*models.Receipt, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Receipt), args.Error(1)
}

// Directory implements ports.Directory
type Directory struct {
	mock.Mock
}

func (m *Directory) GetStudent(ctx context.Context, id int64) (*models.StudentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StudentRecord), args.Error(1)
}

func (m *Directory) GetSchool(ctx context.Context, id int64) (*models.SchoolRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SchoolRecord), args.Error(1)
}

// ChannelSender implements ports.ChannelSender
type ChannelSender struct {
	mock.Mock
}

func (m *ChannelSender) Send(ctx context.Context, recipient string, data models.ReceiptData) error {
	args := m.Called(ctx, recipient, data)
	return args.Error(0)
}

// Logger implements ports.Logger as a no-op
type Logger struct{}

func (Logger) Info(msg string, fields ...ports.Field)  {}
func (Logger) Error(msg string, fields ...ports.Field) {}
func (Logger) Warn(msg string, fields ...ports.Field)  {}
func (Logger) Debug(msg string, fields ...ports.Field) {}

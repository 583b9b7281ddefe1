package service

import (
	"context"
	"time"

	"loadboard/internal/database"
	"loadboard/internal/gateway"
	"loadboard/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateLoadWithPayment(ctx context.Context, load *models.Load, payment *models.Payment) error {
	return m.Called(ctx, load, payment).Error(0)
}
func (m *mockRepo) GetLoad(ctx context.Context, id int64) (*models.Load, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Load), args.Error(1)
}
func (m *mockRepo) ListLoads(ctx context.Context, filter database.LoadFilter) ([]*models.Load, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Load), args.Error(1)
}
func (m *mockRepo) UpdateLoadStatusWithVersion(ctx context.Context, id, fromVersion int64, status, note string, changedBy int64) error {
	return m.Called(ctx, id, fromVersion, status, note, changedBy).Error(0)
}
func (m *mockRepo) CancelLoadWithVersion(ctx context.Context, id, fromVersion int64, reason string, changedBy int64) error {
	return m.Called(ctx, id, fromVersion, reason, changedBy).Error(0)
}
func (m *mockRepo) GetStatusHistory(ctx context.Context, loadID int64) ([]*models.StatusEvent, error) {
	args := m.Called(ctx, loadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StatusEvent), args.Error(1)
}
func (m *mockRepo) CreateQuoteWithLock(ctx context.Context, quote *models.Quote) error {
	return m.Called(ctx, quote).Error(0)
}
func (m *mockRepo) GetQuote(ctx context.Context, id int64) (*models.Quote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}
func (m *mockRepo) GetQuotesByLoad(ctx context.Context, loadID int64) ([]*models.Quote, error) {
	args := m.Called(ctx, loadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Quote), args.Error(1)
}
func (m *mockRepo) AcceptQuote(ctx context.Context, quoteID, changedBy int64) (*models.Quote, *models.Load, error) {
	args := m.Called(ctx, quoteID, changedBy)
	var q *models.Quote
	var l *models.Load
	if args.Get(0) != nil {
		q = args.Get(0).(*models.Quote)
	}
	if args.Get(1) != nil {
		l = args.Get(1).(*models.Load)
	}
	return q, l, args.Error(2)
}
func (m *mockRepo) UpdateQuoteStatusPending(ctx context.Context, quoteID int64, status string) error {
	return m.Called(ctx, quoteID, status).Error(0)
}
func (m *mockRepo) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}
func (m *mockRepo) GetPaymentByLoadAndPhase(ctx context.Context, loadID int64, phase string) (*models.Payment, error) {
	args := m.Called(ctx, loadID, phase)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}
func (m *mockRepo) RecordFinalPayment(ctx context.Context, loadID int64, payment *models.Payment) error {
	return m.Called(ctx, loadID, payment).Error(0)
}

type mockOrders struct {
	mock.Mock
}

func (m *mockOrders) Put(ctx context.Context, order *models.PendingOrder, ttl time.Duration) error {
	return m.Called(ctx, order, ttl).Error(0)
}
func (m *mockOrders) Get(ctx context.Context, orderID string) (*models.PendingOrder, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingOrder), args.Error(1)
}
func (m *mockOrders) Delete(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*gateway.Order, error) {
	args := m.Called(ctx, amount, currency, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Order), args.Error(1)
}
func (m *mockGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return m.Called(orderID, paymentID, signature).Bool(0)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueTask(ctx context.Context, taskType string, loadID int64, load *models.Load, status string) error {
	return m.Called(ctx, taskType, loadID, load, status).Error(0)
}

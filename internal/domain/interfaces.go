package domain

import (
	"context"
	"time"

	"loadboard/internal/database"
	"loadboard/internal/gateway"
	"loadboard/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Repository interface {
	CreateLoadWithPayment(ctx context.Context, load *models.Load, payment *models.Payment) error
	GetLoad(ctx context.Context, id int64) (*models.Load, error)
	ListLoads(ctx context.Context, filter database.LoadFilter) ([]*models.Load, error)
	UpdateLoadStatusWithVersion(ctx context.Context, id, fromVersion int64, status, note string, changedBy int64) error
	CancelLoadWithVersion(ctx context.Context, id, fromVersion int64, reason string, changedBy int64) error
	GetStatusHistory(ctx context.Context, loadID int64) ([]*models.StatusEvent, error)

	CreateQuoteWithLock(ctx context.Context, quote *models.Quote) error
	GetQuote(ctx context.Context, id int64) (*models.Quote, error)
	GetQuotesByLoad(ctx context.Context, loadID int64) ([]*models.Quote, error)
	AcceptQuote(ctx context.Context, quoteID, changedBy int64) (*models.Quote, *models.Load, error)
	UpdateQuoteStatusPending(ctx context.Context, quoteID int64, status string) error

	GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	GetPaymentByLoadAndPhase(ctx context.Context, loadID int64, phase string) (*models.Payment, error)
	RecordFinalPayment(ctx context.Context, loadID int64, payment *models.Payment) error
}

// OrderRepository holds gateway orders awaiting confirmation. Entries expire
// with the order's TTL; a missing entry means the order lapsed.
type OrderRepository interface {
	Put(ctx context.Context, order *models.PendingOrder, ttl time.Duration) error
	Get(ctx context.Context, orderID string) (*models.PendingOrder, error)
	Delete(ctx context.Context, orderID string) error
}

type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*gateway.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type SheetsWriter interface {
	UpsertLoad(ctx context.Context, load *models.Load) error
	UpdateLoadStatus(ctx context.Context, loadID int64, status string) error
	ReplaceLoadsSheet(ctx context.Context, loads []*models.Load) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, loadID int64, load *models.Load, status string) error
}

package service

import (
	"context"
	"fmt"
	"time"

	"loadboard/internal/domain"
	"loadboard/internal/events"
	"loadboard/internal/metrics"
	"loadboard/internal/models"
	"loadboard/internal/policy"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SettlementService runs the two-phase payment protocol. Confirmations are
// verify-then-commit: the gateway signature is checked before any row is
// written, and re-confirming a settled order returns the original record.
type SettlementService struct {
	repo         domain.Repository
	orders       domain.OrderRepository
	gateway      domain.PaymentGateway
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	currency     string
	orderTTL     time.Duration
	logger       *zerolog.Logger
}

func NewSettlementService(
	repo domain.Repository,
	orders domain.OrderRepository,
	gateway domain.PaymentGateway,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	currency string,
	orderTTL time.Duration,
	logger *zerolog.Logger,
) *SettlementService {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	if orderTTL <= 0 {
		orderTTL = models.DefaultOrderTTL * time.Second
	}
	return &SettlementService{
		repo:         repo,
		orders:       orders,
		gateway:      gateway,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		currency:     currency,
		orderTTL:     orderTTL,
		logger:       logger,
	}
}

// ConfirmBookingPayment verifies a booking order and materializes the load.
// The load row, the payment record and the opening status event are written
// in one transaction; the pending draft is discarded afterwards.
func (s *SettlementService) ConfirmBookingPayment(ctx context.Context, orderID, paymentID, signature string) (*models.Load, error) {
	// Idempotency: a settled order maps to its load.
	if existing, err := s.repo.GetPaymentByOrderID(ctx, orderID); err != nil {
		return nil, err
	} else if existing != nil {
		return s.repo.GetLoad(ctx, existing.LoadID)
	}

	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		metrics.IncPaymentFailure()
		s.logger.Warn().Str("order_id", orderID).Msg("booking payment signature rejected")
		return nil, ErrPaymentVerificationFailed
	}

	pending, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if pending == nil || pending.Phase != models.PhaseBooking || pending.Draft == nil {
		return nil, ErrOrderNotFound
	}

	draft := pending.Draft
	load := &models.Load{
		SourceCity:      draft.SourceCity,
		DestinationCity: draft.DestinationCity,
		Material:        draft.Material,
		WeightMT:        draft.WeightMT,
		TruckType:       draft.TruckType,
		LoadType:        draft.LoadType,
		ScheduledDate:   draft.ScheduledDate,
		TrucksRequired:  draft.TrucksRequired,
		ContactName:     draft.ContactName,
		ContactPhone:    draft.ContactPhone,
		Status:          models.StatusOpen,
		PostedBy:        draft.PostedBy,
		BookingFee:      pending.BookingFee,
	}
	payment := &models.Payment{
		Phase:            models.PhaseBooking,
		GatewayOrderID:   orderID,
		GatewayPaymentID: paymentID,
		GatewaySignature: signature,
		Amount:           pending.Amount,
	}

	if err := s.repo.CreateLoadWithPayment(ctx, load, payment); err != nil {
		return nil, err
	}

	if err := s.orders.Delete(ctx, orderID); err != nil {
		s.logger.Warn().Err(err).Str("order_id", orderID).Msg("pending order cleanup failed")
	}

	metrics.IncLoadCreated()
	metrics.IncPaymentConfirmed(models.PhaseBooking)
	s.publishLoadEvent(events.EventLoadPosted, load, pending.Amount, models.PhaseBooking)
	s.enqueueSync(ctx, load)

	s.logger.Info().
		Int64("load_id", load.ID).
		Str("order_id", orderID).
		Int64("amount", pending.Amount).
		Msg("booking payment settled, load posted")

	return load, nil
}

// FinalPaymentIntent is the outcome of InitiateFinalPayment. When the
// accepted quote does not exceed the booking fee there is nothing left to
// collect and the phase settles immediately.
type FinalPaymentIntent struct {
	OrderID  string `json:"order_id,omitempty"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Settled  bool   `json:"settled"`
}

// InitiateFinalPayment opens a gateway order for the balance due after
// delivery.
func (s *SettlementService) InitiateFinalPayment(ctx context.Context, actor models.Actor, loadID int64) (*FinalPaymentIntent, error) {
	load, err := s.repo.GetLoad(ctx, loadID)
	if err != nil {
		return nil, err
	}

	if !policy.Allow(policy.OpFinalPayment, actor, policy.LoadRelation(actor, load)) {
		return nil, ErrForbidden
	}

	if load.Status != models.StatusDelivered {
		return nil, fmt.Errorf("%w: load is %s, final payment requires delivered", ErrInvalidState, load.Status)
	}
	if load.IsFinalSettled() {
		return nil, fmt.Errorf("%w: final payment already settled", ErrInvalidState)
	}

	due := load.FinalAmountDue()
	if due == 0 {
		// Booking fee covered the accepted quote; settle without a gateway
		// round trip.
		payment := &models.Payment{
			Phase:            models.PhaseFinal,
			GatewayOrderID:   fmt.Sprintf("waived_%s", uuid.NewString()),
			GatewayPaymentID: "waived",
			Amount:           0,
		}
		if err := s.repo.RecordFinalPayment(ctx, loadID, payment); err != nil {
			return nil, err
		}
		metrics.IncPaymentConfirmed(models.PhaseFinal)
		s.publishLoadEvent(events.EventPaymentRecorded, load, 0, models.PhaseFinal)
		return &FinalPaymentIntent{Amount: 0, Currency: s.currency, Settled: true}, nil
	}

	receipt := fmt.Sprintf("load_final_%d", loadID)
	order, err := s.gateway.CreateOrder(ctx, due, s.currency, receipt)
	if err != nil {
		return nil, fmt.Errorf("create final order: %w", err)
	}

	pending := &models.PendingOrder{
		OrderID:   order.ID,
		Phase:     models.PhaseFinal,
		Amount:    due,
		Currency:  s.currency,
		Receipt:   receipt,
		LoadID:    loadID,
		CreatedAt: time.Now(),
	}
	if err := s.orders.Put(ctx, pending, s.orderTTL); err != nil {
		return nil, fmt.Errorf("stash pending order: %w", err)
	}

	s.logger.Info().
		Int64("load_id", loadID).
		Str("order_id", order.ID).
		Int64("amount", due).
		Msg("final payment order created")

	return &FinalPaymentIntent{OrderID: order.ID, Amount: due, Currency: s.currency}, nil
}

// ConfirmFinalPayment verifies a final order and records the settlement.
func (s *SettlementService) ConfirmFinalPayment(ctx context.Context, orderID, paymentID, signature string) (*models.Load, error) {
	if existing, err := s.repo.GetPaymentByOrderID(ctx, orderID); err != nil {
		return nil, err
	} else if existing != nil {
		return s.repo.GetLoad(ctx, existing.LoadID)
	}

	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		metrics.IncPaymentFailure()
		s.logger.Warn().Str("order_id", orderID).Msg("final payment signature rejected")
		return nil, ErrPaymentVerificationFailed
	}

	pending, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if pending == nil || pending.Phase != models.PhaseFinal {
		return nil, ErrOrderNotFound
	}

	payment := &models.Payment{
		Phase:            models.PhaseFinal,
		GatewayOrderID:   orderID,
		GatewayPaymentID: paymentID,
		GatewaySignature: signature,
		Amount:           pending.Amount,
	}
	if err := s.repo.RecordFinalPayment(ctx, pending.LoadID, payment); err != nil {
		return nil, err
	}

	if err := s.orders.Delete(ctx, orderID); err != nil {
		s.logger.Warn().Err(err).Str("order_id", orderID).Msg("pending order cleanup failed")
	}

	load, err := s.repo.GetLoad(ctx, pending.LoadID)
	if err != nil {
		return nil, err
	}

	metrics.IncPaymentConfirmed(models.PhaseFinal)
	s.publishLoadEvent(events.EventPaymentRecorded, load, pending.Amount, models.PhaseFinal)
	s.enqueueSync(ctx, load)

	s.logger.Info().
		Int64("load_id", load.ID).
		Str("order_id", orderID).
		Int64("amount", pending.Amount).
		Msg("final payment settled")

	return load, nil
}

func (s *SettlementService) publishLoadEvent(eventType string, load *models.Load, amount int64, phase string) {
	if s.eventBus == nil {
		return
	}

	payload := events.LoadEventPayload{
		LoadID:      load.ID,
		PostedBy:    load.PostedBy,
		Source:      load.SourceCity,
		Destination: load.DestinationCity,
		Status:      load.Status,
		Amount:      amount,
		Phase:       phase,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("load_id", load.ID).Msg("publish event error")
	}
}

func (s *SettlementService) enqueueSync(ctx context.Context, load *models.Load) {
	if s.sheetsWorker == nil {
		return
	}
	if err := s.sheetsWorker.EnqueueTask(ctx, "upsert", load.ID, load, ""); err != nil {
		s.logger.Error().Err(err).Int64("load_id", load.ID).Msg("sheets enqueue error")
	}
}

package service

import (
	"context"
	"fmt"
	"time"

	"loadboard/internal/database"
	"loadboard/internal/domain"
	"loadboard/internal/events"
	"loadboard/internal/fees"
	"loadboard/internal/models"
	"loadboard/internal/policy"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LoadService owns posting and the lifecycle of loads. A load row only comes
// into existence through settlement; PostLoad stashes a draft behind a
// gateway order and hands back payment instructions.
type LoadService struct {
	repo         domain.Repository
	orders       domain.OrderRepository
	gateway      domain.PaymentGateway
	calc         *fees.Calculator
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	currency     string
	orderTTL     time.Duration
	logger       *zerolog.Logger
}

func NewLoadService(
	repo domain.Repository,
	orders domain.OrderRepository,
	gateway domain.PaymentGateway,
	calc *fees.Calculator,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	currency string,
	orderTTL time.Duration,
	logger *zerolog.Logger,
) *LoadService {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	if orderTTL <= 0 {
		orderTTL = models.DefaultOrderTTL * time.Second
	}
	return &LoadService{
		repo:         repo,
		orders:       orders,
		gateway:      gateway,
		calc:         calc,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		currency:     currency,
		orderTTL:     orderTTL,
		logger:       logger,
	}
}

// PostLoadResult is the payment instruction returned from PostLoad. The
// caller settles the order with the gateway and then confirms it.
type PostLoadResult struct {
	OrderID   string         `json:"order_id"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	Breakdown fees.Breakdown `json:"breakdown"`
}

// PostLoad validates a draft, prices the booking fee and opens a gateway
// order. No load row is written until the order is confirmed.
func (s *LoadService) PostLoad(ctx context.Context, actor models.Actor, draft models.LoadDraft) (*PostLoadResult, error) {
	if !policy.Allow(policy.OpPostLoad, actor, policy.RelAny) {
		return nil, ErrForbidden
	}

	draft.PostedBy = actor.UserID
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}

	breakdown, err := s.calc.Calculate(draft)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	receipt := fmt.Sprintf("load_booking_%s", uuid.NewString())
	order, err := s.gateway.CreateOrder(ctx, breakdown.Total, s.currency, receipt)
	if err != nil {
		return nil, fmt.Errorf("create booking order: %w", err)
	}

	pending := &models.PendingOrder{
		OrderID:    order.ID,
		Phase:      models.PhaseBooking,
		Amount:     breakdown.Total,
		Currency:   s.currency,
		Receipt:    receipt,
		Draft:      &draft,
		BookingFee: breakdown.Total,
		CreatedAt:  time.Now(),
	}
	if err := s.orders.Put(ctx, pending, s.orderTTL); err != nil {
		return nil, fmt.Errorf("stash pending order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Int64("posted_by", actor.UserID).
		Int64("amount", breakdown.Total).
		Msg("booking order created")

	return &PostLoadResult{
		OrderID:   order.ID,
		Amount:    breakdown.Total,
		Currency:  s.currency,
		Breakdown: breakdown,
	}, nil
}

func validateDraft(draft *models.LoadDraft) error {
	switch {
	case draft.SourceCity == "":
		return fmt.Errorf("%w: source city is required", ErrInvalidInput)
	case draft.DestinationCity == "":
		return fmt.Errorf("%w: destination city is required", ErrInvalidInput)
	case draft.Material == "":
		return fmt.Errorf("%w: material is required", ErrInvalidInput)
	case draft.WeightMT <= 0:
		return fmt.Errorf("%w: weight must be positive", ErrInvalidInput)
	case draft.TruckType == "":
		return fmt.Errorf("%w: truck type is required", ErrInvalidInput)
	case draft.LoadType != models.LoadTypeFull && draft.LoadType != models.LoadTypePart:
		return fmt.Errorf("%w: load type must be full or part", ErrInvalidInput)
	case draft.ContactPhone == "":
		return fmt.Errorf("%w: contact phone is required", ErrInvalidInput)
	}
	if draft.TrucksRequired <= 0 {
		draft.TrucksRequired = 1
	}
	return nil
}

// GetLoad returns a load by id.
func (s *LoadService) GetLoad(ctx context.Context, actor models.Actor, id int64) (*models.Load, error) {
	if !policy.Allow(policy.OpViewLoad, actor, policy.RelAny) {
		return nil, ErrForbidden
	}
	return s.repo.GetLoad(ctx, id)
}

// ListLoads returns loads matching the filter.
func (s *LoadService) ListLoads(ctx context.Context, actor models.Actor, filter database.LoadFilter) ([]*models.Load, error) {
	if !policy.Allow(policy.OpViewLoad, actor, policy.RelAny) {
		return nil, ErrForbidden
	}
	if filter.Limit <= 0 || filter.Limit > models.DefaultListLimit {
		filter.Limit = models.DefaultListLimit
	}
	return s.repo.ListLoads(ctx, filter)
}

// GetStatusHistory returns the append-only status trail for a load.
func (s *LoadService) GetStatusHistory(ctx context.Context, actor models.Actor, loadID int64) ([]*models.StatusEvent, error) {
	if !policy.Allow(policy.OpViewLoad, actor, policy.RelAny) {
		return nil, ErrForbidden
	}
	if _, err := s.repo.GetLoad(ctx, loadID); err != nil {
		return nil, err
	}
	return s.repo.GetStatusHistory(ctx, loadID)
}

// TransitionStatus moves a load along the delivery pipeline. The quoted and
// assigned edges are owned by the quote flow and cancellation has its own
// entry point, so only pickup, transit, delivered and completed are accepted
// here.
func (s *LoadService) TransitionStatus(ctx context.Context, actor models.Actor, loadID int64, toStatus, note string) (*models.Load, error) {
	if !models.IsValidStatus(toStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, toStatus)
	}

	var op policy.Operation
	switch toStatus {
	case models.StatusPickedUp, models.StatusInTransit, models.StatusDelivered:
		op = policy.OpAdvanceLoad
	case models.StatusCompleted:
		op = policy.OpCompleteLoad
	default:
		return nil, fmt.Errorf("%w: status %q cannot be set directly", ErrInvalidTransition, toStatus)
	}

	load, err := s.repo.GetLoad(ctx, loadID)
	if err != nil {
		return nil, err
	}

	if !policy.Allow(op, actor, policy.LoadRelation(actor, load)) {
		return nil, ErrForbidden
	}

	if !models.CanTransition(load.Status, toStatus) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, load.Status, toStatus)
	}

	// Completion is gated on the final settlement.
	if toStatus == models.StatusCompleted && !load.IsFinalSettled() {
		return nil, fmt.Errorf("%w: final payment not settled", ErrInvalidState)
	}

	if err := s.repo.UpdateLoadStatusWithVersion(ctx, loadID, load.Version, toStatus, note, actor.UserID); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetLoad(ctx, loadID)
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventLoadStatusChanged, updated, actor.UserID, "")
	s.enqueueSync(ctx, updated, "update_status")

	return updated, nil
}

// Cancel closes a load before it is delivered. A reason is mandatory.
func (s *LoadService) Cancel(ctx context.Context, actor models.Actor, loadID int64, reason string) (*models.Load, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: cancellation reason is required", ErrInvalidInput)
	}

	load, err := s.repo.GetLoad(ctx, loadID)
	if err != nil {
		return nil, err
	}

	if !policy.Allow(policy.OpCancelLoad, actor, policy.LoadRelation(actor, load)) {
		return nil, ErrForbidden
	}

	if !models.IsCancellable(load.Status) {
		return nil, fmt.Errorf("%w: cancellation window closed at %s", ErrInvalidTransition, load.Status)
	}

	if err := s.repo.CancelLoadWithVersion(ctx, loadID, load.Version, reason, actor.UserID); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetLoad(ctx, loadID)
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventLoadCancelled, updated, actor.UserID, reason)
	s.enqueueSync(ctx, updated, "update_status")

	return updated, nil
}

func (s *LoadService) publishEvent(eventType string, load *models.Load, changedBy int64, reason string) {
	if s.eventBus == nil {
		return
	}

	payload := events.LoadEventPayload{
		LoadID:      load.ID,
		PostedBy:    load.PostedBy,
		Source:      load.SourceCity,
		Destination: load.DestinationCity,
		Status:      load.Status,
		Reason:      reason,
		ChangedBy:   changedBy,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("load_id", load.ID).Msg("publish event error")
	}
}

func (s *LoadService) enqueueSync(ctx context.Context, load *models.Load, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	var status string
	if taskType == "update_status" {
		status = load.Status
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, load.ID, load, status); err != nil {
		s.logger.Error().Err(err).Int64("load_id", load.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}

package service

import (
	"context"
	"fmt"

	"loadboard/internal/domain"
	"loadboard/internal/events"
	"loadboard/internal/metrics"
	"loadboard/internal/models"
	"loadboard/internal/policy"

	"github.com/rs/zerolog"
)

// QuoteService owns the bid ledger. Acceptance is the only path to the
// assigned status and settles the marketplace for a load.
type QuoteService struct {
	repo         domain.Repository
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	logger       *zerolog.Logger
}

func NewQuoteService(repo domain.Repository, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, logger *zerolog.Logger) *QuoteService {
	return &QuoteService{
		repo:         repo,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		logger:       logger,
	}
}

// Submit records a pending quote on an open or quoted load. A driver cannot
// bid on a load they posted themselves.
func (s *QuoteService) Submit(ctx context.Context, actor models.Actor, quote *models.Quote) error {
	if !policy.Allow(policy.OpSubmitQuote, actor, policy.RelAny) {
		return ErrForbidden
	}
	if quote.Amount <= 0 {
		return fmt.Errorf("%w: quote amount must be positive", ErrInvalidInput)
	}
	if quote.EstimatedDays < 0 {
		return fmt.Errorf("%w: estimated days must be non-negative", ErrInvalidInput)
	}

	load, err := s.repo.GetLoad(ctx, quote.LoadID)
	if err != nil {
		return err
	}
	if load.PostedBy == actor.UserID {
		return fmt.Errorf("%w: cannot quote own load", ErrForbidden)
	}

	quote.TransporterID = actor.UserID
	quote.Status = models.QuoteStatusPending

	if err := s.repo.CreateQuoteWithLock(ctx, quote); err != nil {
		return err
	}

	metrics.IncQuoteSubmitted()
	s.publishQuoteEvent(ctx, events.EventQuoteSubmitted, quote, load)

	return nil
}

// GetQuote returns one quote by id.
func (s *QuoteService) GetQuote(ctx context.Context, actor models.Actor, id int64) (*models.Quote, error) {
	if !policy.Allow(policy.OpViewLoad, actor, policy.RelAny) {
		return nil, ErrForbidden
	}
	return s.repo.GetQuote(ctx, id)
}

// ListByLoad returns all quotes for a load, newest first.
func (s *QuoteService) ListByLoad(ctx context.Context, actor models.Actor, loadID int64) ([]*models.Quote, error) {
	if !policy.Allow(policy.OpViewLoad, actor, policy.RelAny) {
		return nil, ErrForbidden
	}
	if _, err := s.repo.GetLoad(ctx, loadID); err != nil {
		return nil, err
	}
	return s.repo.GetQuotesByLoad(ctx, loadID)
}

// Accept settles the marketplace for the load: the quote wins, all other
// pending quotes are rejected and the load moves to assigned.
func (s *QuoteService) Accept(ctx context.Context, actor models.Actor, quoteID int64) (*models.Quote, *models.Load, error) {
	quote, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, nil, err
	}
	load, err := s.repo.GetLoad(ctx, quote.LoadID)
	if err != nil {
		return nil, nil, err
	}
	if !policy.Allow(policy.OpDecideQuote, actor, policy.LoadRelation(actor, load)) {
		return nil, nil, ErrForbidden
	}

	accepted, updated, err := s.repo.AcceptQuote(ctx, quoteID, actor.UserID)
	if err != nil {
		return nil, nil, err
	}

	metrics.IncQuoteAccepted()
	s.publishQuoteEvent(ctx, events.EventQuoteAccepted, accepted, updated)
	s.enqueueSync(ctx, updated)

	s.logger.Info().
		Int64("quote_id", accepted.ID).
		Int64("load_id", updated.ID).
		Int64("transporter_id", accepted.TransporterID).
		Int64("amount", accepted.Amount).
		Msg("quote accepted")

	return accepted, updated, nil
}

// Reject declines a pending quote without touching the load status.
func (s *QuoteService) Reject(ctx context.Context, actor models.Actor, quoteID int64) error {
	quote, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return err
	}
	load, err := s.repo.GetLoad(ctx, quote.LoadID)
	if err != nil {
		return err
	}
	if !policy.Allow(policy.OpDecideQuote, actor, policy.LoadRelation(actor, load)) {
		return ErrForbidden
	}

	if err := s.repo.UpdateQuoteStatusPending(ctx, quoteID, models.QuoteStatusRejected); err != nil {
		return err
	}

	quote.Status = models.QuoteStatusRejected
	s.publishQuoteEvent(ctx, events.EventQuoteRejected, quote, load)

	return nil
}

// Withdraw lets a driver pull their own pending quote.
func (s *QuoteService) Withdraw(ctx context.Context, actor models.Actor, quoteID int64) error {
	quote, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return err
	}
	if !policy.Allow(policy.OpWithdrawQuote, actor, policy.QuoteRelation(actor, quote)) {
		return ErrForbidden
	}

	load, err := s.repo.GetLoad(ctx, quote.LoadID)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateQuoteStatusPending(ctx, quoteID, models.QuoteStatusWithdrawn); err != nil {
		return err
	}

	quote.Status = models.QuoteStatusWithdrawn
	s.publishQuoteEvent(ctx, events.EventQuoteWithdrawn, quote, load)

	return nil
}

func (s *QuoteService) publishQuoteEvent(ctx context.Context, eventType string, quote *models.Quote, load *models.Load) {
	if s.eventBus == nil {
		return
	}

	payload := events.LoadEventPayload{
		LoadID:      load.ID,
		PostedBy:    load.PostedBy,
		Source:      load.SourceCity,
		Destination: load.DestinationCity,
		Status:      load.Status,
		QuoteID:     quote.ID,
		Amount:      quote.Amount,
		ChangedBy:   quote.TransporterID,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("quote_id", quote.ID).Msg("publish event error")
	}
}

func (s *QuoteService) enqueueSync(ctx context.Context, load *models.Load) {
	if s.sheetsWorker == nil {
		return
	}
	if err := s.sheetsWorker.EnqueueTask(ctx, "upsert", load.ID, load, ""); err != nil {
		s.logger.Error().Err(err).Int64("load_id", load.ID).Msg("sheets enqueue error")
	}
}

package repository

import (
	"context"
	"sync/atomic"
	"time"

	"loadboard/internal/domain"
	"loadboard/internal/models"

	"github.com/rs/zerolog"
)

// FailoverOrderRepository shields the payment flow from redis outages: when
// the primary fails it switches to the in-memory fallback and retries the
// primary after a minute.
type FailoverOrderRepository struct {
	primary   domain.OrderRepository
	fallback  domain.OrderRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverOrderRepository(primary, fallback domain.OrderRepository, logger *zerolog.Logger) *FailoverOrderRepository {
	return &FailoverOrderRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverOrderRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary order repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck = time.Now()
}

func (r *FailoverOrderRepository) Put(ctx context.Context, order *models.PendingOrder, ttl time.Duration) error {
	if !r.isDown.Load() {
		err := r.primary.Put(ctx, order, ttl)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Put(ctx, order, ttl)
}

func (r *FailoverOrderRepository) Get(ctx context.Context, orderID string) (*models.PendingOrder, error) {
	if !r.isDown.Load() {
		order, err := r.primary.Get(ctx, orderID)
		if err == nil {
			return order, nil
		}
		r.markDown(err)
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		order, err := r.primary.Get(ctx, orderID)
		if err == nil {
			r.isDown.Store(false)
			return order, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.Get(ctx, orderID)
}

func (r *FailoverOrderRepository) Delete(ctx context.Context, orderID string) error {
	if !r.isDown.Load() {
		err := r.primary.Delete(ctx, orderID)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Delete(ctx, orderID)
}

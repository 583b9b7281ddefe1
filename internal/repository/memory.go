package repository

import (
	"context"
	"sync"
	"time"

	"loadboard/internal/models"
)

// MemoryOrderRepository is the in-process fallback used when redis is down.
// Expired entries are dropped lazily on read.
type MemoryOrderRepository struct {
	orders sync.Map
}

type memoryOrderEntry struct {
	order     *models.PendingOrder
	expiresAt time.Time
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{}
}

func (r *MemoryOrderRepository) Put(ctx context.Context, order *models.PendingOrder, ttl time.Duration) error {
	r.orders.Store(order.OrderID, &memoryOrderEntry{
		order:     order,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

func (r *MemoryOrderRepository) Get(ctx context.Context, orderID string) (*models.PendingOrder, error) {
	val, ok := r.orders.Load(orderID)
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryOrderEntry)
	if time.Now().After(entry.expiresAt) {
		r.orders.Delete(orderID)
		return nil, nil
	}
	return entry.order, nil
}

func (r *MemoryOrderRepository) Delete(ctx context.Context, orderID string) error {
	r.orders.Delete(orderID)
	return nil
}

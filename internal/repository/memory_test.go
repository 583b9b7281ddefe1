package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryOrderRepository(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()

	t.Run("PutAndGet", func(t *testing.T) {
		order := testPendingOrder("order_mem")
		require.NoError(t, repo.Put(ctx, order, time.Hour))

		got, err := repo.Get(ctx, "order_mem")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, order.OrderID, got.OrderID)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		got, err := repo.Get(ctx, "order_missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Expiry", func(t *testing.T) {
		order := testPendingOrder("order_ttl")
		require.NoError(t, repo.Put(ctx, order, -time.Second))

		got, err := repo.Get(ctx, "order_ttl")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Delete", func(t *testing.T) {
		order := testPendingOrder("order_gone")
		require.NoError(t, repo.Put(ctx, order, time.Hour))
		require.NoError(t, repo.Delete(ctx, "order_gone"))

		got, _ := repo.Get(ctx, "order_gone")
		assert.Nil(t, got)
	})
}

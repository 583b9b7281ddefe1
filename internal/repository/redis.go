package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loadboard/internal/config"
	"loadboard/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisOrderRepository keeps pending gateway orders in redis. Keys expire
// with the order TTL so abandoned checkouts clean themselves up.
type RedisOrderRepository struct {
	client *redis.Client
}

// NewRedisClient creates a redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisOrderRepository(client *redis.Client) *RedisOrderRepository {
	return &RedisOrderRepository{client: client}
}

func orderKey(orderID string) string {
	return fmt.Sprintf("pending_order:%s", orderID)
}

func (r *RedisOrderRepository) Put(ctx context.Context, order *models.PendingOrder, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal pending order: %w", err)
	}

	if err := r.client.Set(ctx, orderKey(order.OrderID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store pending order in redis: %w", err)
	}
	return nil
}

func (r *RedisOrderRepository) Get(ctx context.Context, orderID string) (*models.PendingOrder, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, orderKey(orderID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending order from redis: %w", err)
	}

	var order models.PendingOrder
	if err := json.Unmarshal([]byte(val), &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending order: %w", err)
	}
	return &order, nil
}

func (r *RedisOrderRepository) Delete(ctx context.Context, orderID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, orderKey(orderID)).Err(); err != nil {
		return fmt.Errorf("failed to delete pending order from redis: %w", err)
	}
	return nil
}

// Ping checks the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

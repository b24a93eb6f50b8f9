package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tablebook/internal/config"
	"tablebook/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisCache caches availability configurations and counts rate-limit hits.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

func availabilityKey(restaurantID string) string {
	return "availability:" + restaurantID
}

func (r *RedisCache) GetAvailability(ctx context.Context, restaurantID string) (*models.RestaurantAvailability, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, availabilityKey(restaurantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability from redis: %w", err)
	}

	var a models.RestaurantAvailability
	if err := json.Unmarshal(val, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal availability: %w", err)
	}
	return &a, nil
}

func (r *RedisCache) SetAvailability(ctx context.Context, a *models.RestaurantAvailability) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal availability: %w", err)
	}
	if err := r.client.Set(ctx, availabilityKey(a.RestaurantID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set availability in redis: %w", err)
	}
	return nil
}

func (r *RedisCache) InvalidateAvailability(ctx context.Context, restaurantID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, availabilityKey(restaurantID)).Err(); err != nil {
		return fmt.Errorf("failed to delete availability from redis: %w", err)
	}
	return nil
}

// CheckRateLimit counts a hit for key in a fixed window and reports whether it is within limit.
func (r *RedisCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	rk := "rate_limit:" + key
	count, err := r.client.Incr(ctx, rk).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, rk, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

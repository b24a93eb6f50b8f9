package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tablebook/internal/domain"
	"tablebook/internal/models"

	"github.com/rs/zerolog"
)

// Backend is what the failover wrapper switches between.
type Backend interface {
	domain.AvailabilityCache
	domain.RateLimiter
}

// FailoverCache serves from primary until it fails, then from fallback,
// probing primary again once a minute. Invalidations made while primary was
// down are replayed on it before it is trusted again.
type FailoverCache struct {
	primary  Backend
	fallback Backend
	logger   *zerolog.Logger
	isDown   atomic.Bool
	retry    time.Duration

	mu        sync.Mutex
	lastCheck time.Time
	pending   map[string]struct{}
}

func NewFailoverCache(primary, fallback Backend, logger *zerolog.Logger) *FailoverCache {
	return &FailoverCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		retry:    time.Minute,
		pending:  make(map[string]struct{}),
	}
}

func (r *FailoverCache) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary cache failed, falling back to memory")
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
	r.isDown.Store(true)
}

// usePrimary reports whether primary should serve this call, trying to
// recover it when the retry interval has passed.
func (r *FailoverCache) usePrimary(ctx context.Context) bool {
	if !r.isDown.Load() {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isDown.Load() {
		return true
	}
	if time.Since(r.lastCheck) < r.retry {
		return false
	}
	r.lastCheck = time.Now()

	for id := range r.pending {
		if err := r.primary.InvalidateAvailability(ctx, id); err != nil {
			r.logger.Warn().Err(err).Msg("Primary cache still unavailable")
			return false
		}
		delete(r.pending, id)
	}
	r.isDown.Store(false)
	r.logger.Info().Msg("Primary cache recovered")
	return true
}

func (r *FailoverCache) GetAvailability(ctx context.Context, restaurantID string) (*models.RestaurantAvailability, error) {
	if r.usePrimary(ctx) {
		a, err := r.primary.GetAvailability(ctx, restaurantID)
		if err == nil {
			return a, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetAvailability(ctx, restaurantID)
}

func (r *FailoverCache) SetAvailability(ctx context.Context, a *models.RestaurantAvailability) error {
	if r.usePrimary(ctx) {
		err := r.primary.SetAvailability(ctx, a)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetAvailability(ctx, a)
}

// InvalidateAvailability always clears the fallback so a later failover never
// serves an entry older than the last save.
func (r *FailoverCache) InvalidateAvailability(ctx context.Context, restaurantID string) error {
	_ = r.fallback.InvalidateAvailability(ctx, restaurantID)

	if r.usePrimary(ctx) {
		err := r.primary.InvalidateAvailability(ctx, restaurantID)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	r.mu.Lock()
	r.pending[restaurantID] = struct{}{}
	r.mu.Unlock()
	return nil
}

func (r *FailoverCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary(ctx) {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

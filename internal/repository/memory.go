package repository

import (
	"context"
	"sync"
	"time"

	"tablebook/internal/models"
)

type memoryEntry struct {
	availability *models.RestaurantAvailability
	expiresAt    time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryCache is the in-process counterpart of RedisCache.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	rateLimits map[string]*rateLimitEntry
	ttl        time.Duration
	now        func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		rateLimits: make(map[string]*rateLimitEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemoryCache) GetAvailability(ctx context.Context, restaurantID string) (*models.RestaurantAvailability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[restaurantID]
	if !ok {
		return nil, nil
	}
	if r.ttl > 0 && r.now().After(e.expiresAt) {
		delete(r.entries, restaurantID)
		return nil, nil
	}
	return e.availability.Clone(), nil
}

func (r *MemoryCache) SetAvailability(ctx context.Context, a *models.RestaurantAvailability) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[a.RestaurantID] = memoryEntry{availability: a.Clone(), expiresAt: r.now().Add(r.ttl)}
	return nil
}

func (r *MemoryCache) InvalidateAvailability(ctx context.Context, restaurantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, restaurantID)
	return nil
}

func (r *MemoryCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}

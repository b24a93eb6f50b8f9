package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tablebook/internal/domain"
	"tablebook/internal/events"
	"tablebook/internal/models"
	"tablebook/internal/schedule"
	"tablebook/internal/worker"

	"github.com/rs/zerolog"
)

// AvailabilityService owns restaurant availability configurations and keeps
// the cache coherent with storage.
type AvailabilityService struct {
	repo     domain.AvailabilityRepository
	cache    domain.AvailabilityCache
	catalog  domain.RestaurantCatalog
	eventBus domain.EventPublisher
	retry    worker.RetryPolicy
	now      func() time.Time
	logger   *zerolog.Logger

	// generations is bumped by every Save. A Get fills the cache only if the
	// generation it started with is still current; cacheMu orders that fill
	// against Save's invalidation.
	cacheMu     sync.Mutex
	generations map[string]uint64
}

func NewAvailabilityService(repo domain.AvailabilityRepository, cache domain.AvailabilityCache, catalog domain.RestaurantCatalog, eventBus domain.EventPublisher, retry worker.RetryPolicy, logger *zerolog.Logger) *AvailabilityService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AvailabilityService{
		repo:        repo,
		cache:       cache,
		catalog:     catalog,
		eventBus:    eventBus,
		retry:       retry,
		now:         time.Now,
		logger:      logger,
		generations: make(map[string]uint64),
	}
}

func (s *AvailabilityService) generation(restaurantID string) uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generations[restaurantID]
}

// fill caches a read from storage unless a Save happened since it started.
func (s *AvailabilityService) fill(ctx context.Context, a *models.RestaurantAvailability, gen uint64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generations[a.RestaurantID] != gen {
		return
	}
	if err := s.cache.SetAvailability(ctx, a); err != nil {
		s.logger.Warn().Err(err).Str("restaurant_id", a.RestaurantID).Msg("availability cache write failed")
	}
}

func (s *AvailabilityService) invalidate(ctx context.Context, restaurantID string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generations[restaurantID]++
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAvailability(ctx, restaurantID); err != nil {
		s.logger.Error().Err(err).Str("restaurant_id", restaurantID).Msg("availability cache invalidation failed")
	}
}

// Get returns the stored configuration, or nil when the restaurant has none.
// The returned value is a private copy.
func (s *AvailabilityService) Get(ctx context.Context, restaurantID string) (*models.RestaurantAvailability, error) {
	if s.cache != nil {
		cached, err := s.cache.GetAvailability(ctx, restaurantID)
		if err != nil {
			s.logger.Warn().Err(err).Str("restaurant_id", restaurantID).Msg("availability cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	gen := s.generation(restaurantID)
	var a *models.RestaurantAvailability
	err := withRetry(ctx, s.retry, func(ctx context.Context) error {
		var err error
		a, err = s.repo.GetAvailability(ctx, restaurantID)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.fill(ctx, a, gen)
	}
	return a.Clone(), nil
}

// Save validates and stores a configuration, then drops the cached copy
// before returning so the next evaluation reads the new one.
func (s *AvailabilityService) Save(ctx context.Context, a *models.RestaurantAvailability) (*models.RestaurantAvailability, error) {
	if a == nil {
		return nil, domain.NewValidationError("availability", "is required")
	}
	out := a.Clone()
	schedule.Normalize(out)
	if err := schedule.Validate(out); err != nil {
		return nil, err
	}
	if s.catalog != nil {
		if _, err := s.catalog.GetRestaurant(ctx, out.RestaurantID); err != nil {
			return nil, err
		}
	}
	out.UpdatedAt = s.now().UTC()

	err := withRetry(ctx, s.retry, func(ctx context.Context) error {
		return s.repo.SaveAvailability(ctx, out)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, out.RestaurantID)

	if s.eventBus != nil {
		payload := map[string]interface{}{
			"restaurant_id":   out.RestaurantID,
			"management_mode": out.ManagementMode,
			"updated_at":      out.UpdatedAt,
		}
		if err := s.eventBus.PublishJSON(events.EventAvailabilityUpdated, payload); err != nil {
			s.logger.Error().Err(err).Str("restaurant_id", out.RestaurantID).Msg("publish event error")
		}
	}

	s.logger.Info().Str("restaurant_id", out.RestaurantID).Str("mode", string(out.ManagementMode)).Msg("availability saved")
	return out, nil
}

// ResolveDaySchedule answers which shape applies to restaurantID on date. A
// restaurant without configuration is closed, not an error.
func (s *AvailabilityService) ResolveDaySchedule(ctx context.Context, restaurantID, date string) (models.DaySchedule, error) {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return models.DaySchedule{}, err
	}
	a, err := s.Get(ctx, restaurantID)
	if err != nil {
		return models.DaySchedule{}, err
	}
	return schedule.ResolveDay(a, day), nil
}

// InitializeDefaults stores the onboarding default week for a restaurant that
// has no configuration yet. An existing configuration is returned unchanged.
func (s *AvailabilityService) InitializeDefaults(ctx context.Context, restaurantID string) (*models.RestaurantAvailability, bool, error) {
	existing, err := s.Get(ctx, restaurantID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	saved, err := s.Save(ctx, schedule.DefaultAvailability(restaurantID, s.now()))
	if err != nil {
		return nil, false, fmt.Errorf("initialize defaults for %s: %w", restaurantID, err)
	}
	return saved, true, nil
}

// Seed stores configurations for restaurants that have none. Existing
// configurations always win over seeds.
func (s *AvailabilityService) Seed(ctx context.Context, seeds map[string]*models.RestaurantAvailability) error {
	for id, a := range seeds {
		existing, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := s.Save(ctx, a); err != nil {
			return fmt.Errorf("seed availability for %s: %w", id, err)
		}
	}
	return nil
}

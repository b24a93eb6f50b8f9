package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"tablebook/internal/capacity"
	"tablebook/internal/domain"
	"tablebook/internal/models"
	"tablebook/internal/report"
	"tablebook/internal/schedule"
	"tablebook/internal/worker"

	"github.com/rs/zerolog"
)

// DirectoryService serves read-only projections over bookings. Reads take no
// slot lock and may see a slightly stale snapshot.
type DirectoryService struct {
	repo         domain.BookingRepository
	availability *AvailabilityService
	evaluator    *capacity.Evaluator
	retry        worker.RetryPolicy
	logger       *zerolog.Logger
}

func NewDirectoryService(repo domain.BookingRepository, availability *AvailabilityService, evaluator *capacity.Evaluator, retry worker.RetryPolicy, logger *zerolog.Logger) *DirectoryService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if evaluator == nil {
		evaluator = capacity.NewEvaluator(nil, nil)
	}
	return &DirectoryService{
		repo:         repo,
		availability: availability,
		evaluator:    evaluator,
		retry:        retry,
		logger:       logger,
	}
}

// ListBookings returns matching bookings, newest-created first, at most
// models.DefaultListLimit of them. Use ListBookingsPage to learn whether the
// result was cut.
func (s *DirectoryService) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	page, err := s.ListBookingsPage(ctx, filter)
	if err != nil {
		return nil, err
	}
	return page.Bookings, nil
}

// ListBookingsPage is ListBookings with the applied limit and a truncation
// flag. One extra row is fetched to detect truncation.
func (s *DirectoryService) ListBookingsPage(ctx context.Context, filter models.BookingFilter) (models.BookingPage, error) {
	if filter.Date != "" {
		if _, err := schedule.ParseDate(filter.Date); err != nil {
			return models.BookingPage{}, err
		}
	}
	for _, st := range filter.StatusIn {
		if !st.IsValid() {
			return models.BookingPage{}, domain.NewValidationError("status", "unknown status %q", st)
		}
	}
	limit := filter.Limit
	if limit <= 0 || limit > models.DefaultListLimit {
		limit = models.DefaultListLimit
	}
	filter.Limit = limit + 1

	var bookings []*models.Booking
	err := withRetry(ctx, s.retry, func(ctx context.Context) error {
		var err error
		bookings, err = s.repo.ListBookings(ctx, filter)
		return err
	})
	if err != nil {
		return models.BookingPage{}, err
	}

	page := models.BookingPage{Bookings: bookings, Limit: limit}
	if len(bookings) > limit {
		page.Bookings = bookings[:limit]
		page.Truncated = true
	}
	if page.Bookings == nil {
		page.Bookings = []*models.Booking{}
	}
	return page, nil
}

func (s *DirectoryService) ListBookingsByRestaurantAndDate(ctx context.Context, restaurantID, date string) ([]*models.Booking, error) {
	if strings.TrimSpace(restaurantID) == "" {
		return nil, domain.NewValidationError("restaurant_id", "is required")
	}
	if date == "" {
		return nil, domain.NewValidationError("date", "is required")
	}
	return s.ListBookings(ctx, models.BookingFilter{RestaurantID: restaurantID, Date: date})
}

// GroupByTimeSlot partitions a day's bookings by time, leaving out cancelled
// and no-show bookings.
func (s *DirectoryService) GroupByTimeSlot(ctx context.Context, restaurantID, date string) ([]models.TimeSlotGroup, error) {
	bookings, err := s.ListBookingsByRestaurantAndDate(ctx, restaurantID, date)
	if err != nil {
		return nil, err
	}
	return GroupByTimeSlot(bookings), nil
}

// GroupByTimeSlot is the pure form of DirectoryService.GroupByTimeSlot.
func GroupByTimeSlot(bookings []*models.Booking) []models.TimeSlotGroup {
	index := make(map[string]int)
	groups := make([]models.TimeSlotGroup, 0)
	for _, b := range bookings {
		if b.Status == models.StatusCancelled || b.Status == models.StatusNoShow {
			continue
		}
		i, ok := index[b.Time]
		if !ok {
			i = len(groups)
			index[b.Time] = i
			groups = append(groups, models.TimeSlotGroup{Time: b.Time, Bookings: []*models.Booking{}})
		}
		groups[i].Bookings = append(groups[i].Bookings, b)
		groups[i].TotalGuests += b.PartySize
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Time < groups[j].Time })
	return groups
}

// Stats summarizes all bookings of a restaurant.
func (s *DirectoryService) Stats(ctx context.Context, restaurantID string) (models.BookingStats, error) {
	if strings.TrimSpace(restaurantID) == "" {
		return models.BookingStats{}, domain.NewValidationError("restaurant_id", "is required")
	}
	var bookings []*models.Booking
	err := withRetry(ctx, s.retry, func(ctx context.Context) error {
		var err error
		bookings, err = s.repo.ListBookings(ctx, models.BookingFilter{RestaurantID: restaurantID})
		return err
	})
	if err != nil {
		return models.BookingStats{}, err
	}
	return ComputeStats(bookings, s.evaluator.Today()), nil
}

// ComputeStats derives BookingStats relative to today.
func ComputeStats(bookings []*models.Booking, today time.Time) models.BookingStats {
	todayKey := today.Format(models.DateLayout)
	var (
		stats          models.BookingStats
		completedGuest int
	)
	for _, b := range bookings {
		stats.TotalCount++
		if b.Date == todayKey {
			stats.TodayCount++
		}
		switch b.Status {
		case models.StatusPending, models.StatusConfirmed:
			// Даты в формате YYYY-MM-DD сравниваются лексикографически.
			if b.Date >= todayKey {
				stats.UpcomingCount++
			}
		case models.StatusCompleted:
			stats.CompletedCount++
			completedGuest += b.PartySize
		case models.StatusCancelled:
			stats.CancelledCount++
		case models.StatusNoShow:
			stats.NoShowCount++
		}
	}
	if stats.CompletedCount > 0 {
		stats.AveragePartySize = float64(completedGuest) / float64(stats.CompletedCount)
	}
	if stats.TotalCount > 0 {
		stats.NoShowRate = float64(stats.NoShowCount) / float64(stats.TotalCount) * 100
	}
	return stats
}

// CapacitySummary reports the staff capacity bar for a day. It sums guests
// against capacityPerSlot * slotCount and is not the bookability rule.
func (s *DirectoryService) CapacitySummary(ctx context.Context, restaurantID, date string) (models.CapacitySummary, error) {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return models.CapacitySummary{}, err
	}
	bookings, err := s.ListBookingsByRestaurantAndDate(ctx, restaurantID, date)
	if err != nil {
		return models.CapacitySummary{}, err
	}
	a, err := s.availability.Get(ctx, restaurantID)
	if err != nil {
		return models.CapacitySummary{}, err
	}
	summary := capacity.Summary(a, day, bookings)
	summary.RestaurantID = restaurantID
	return summary, nil
}

// ExportBookings renders the matching bookings as an Excel workbook.
func (s *DirectoryService) ExportBookings(ctx context.Context, filter models.BookingFilter) (*report.Export, error) {
	page, err := s.ListBookingsPage(ctx, filter)
	if err != nil {
		return nil, err
	}
	if page.Truncated {
		s.logger.Warn().Int("limit", page.Limit).Str("restaurant_id", filter.RestaurantID).Msg("bookings export truncated")
	}
	bookings := page.Bookings
	title := "Bookings"
	if filter.RestaurantID != "" {
		title += " " + filter.RestaurantID
	}
	if filter.Date != "" {
		title += " " + filter.Date
	}
	export, err := report.BuildBookingsExport(title, bookings)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("bookings", len(bookings)).Str("restaurant_id", filter.RestaurantID).Msg("bookings export built")
	return export, nil
}

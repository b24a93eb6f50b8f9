package schedule

import (
	"time"

	"tablebook/internal/models"
)

var defaultDinnerSlots = []string{"12:00", "12:30", "13:00", "13:30", "18:00", "18:30", "19:00", "19:30", "20:00", "20:30", "21:00"}

// DefaultAvailability builds the onboarding week for a restaurant that has no
// configuration yet: guest-count mode, open every day with lunch and dinner
// slots. Evaluation never falls back to it; a missing configuration is closed.
func DefaultAvailability(restaurantID string, now time.Time) *models.RestaurantAvailability {
	week := make(map[string]models.DaySchedule, len(weekdays))
	for key := range weekdays {
		week[key] = models.DaySchedule{
			IsOpen:          true,
			Slots:           append([]string(nil), defaultDinnerSlots...),
			CapacityPerSlot: models.DefaultCapacityPerSlot,
		}
	}
	return &models.RestaurantAvailability{
		RestaurantID:           restaurantID,
		ManagementMode:         models.ModeGuestCount,
		Schedule:               week,
		SpecialDates:           map[string]models.DaySchedule{},
		DefaultCapacityPerSlot: models.DefaultCapacityPerSlot,
		AdvanceBookingDays:     models.DefaultAdvanceBookingDays,
		TableTurningTime:       models.DefaultTableTurningTime,
		UpdatedAt:              now,
	}
}

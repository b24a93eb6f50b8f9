// Package schedule resolves restaurant opening configuration into the bookable
// slots of a calendar day.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tablebook/internal/domain"
	"tablebook/internal/models"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// WeekdayKey returns the schedule key for a weekday.
func WeekdayKey(d time.Weekday) string {
	return strings.ToLower(d.String())
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return time.Time{}, domain.NewValidationError("date", "expected YYYY-MM-DD, got %q", date)
	}
	return t, nil
}

// ParseSlot parses an HH:MM slot start time.
func ParseSlot(slot string) (time.Time, error) {
	t, err := time.Parse(models.TimeLayout, slot)
	if err != nil || len(slot) != len(models.TimeLayout) {
		return time.Time{}, domain.NewValidationError("time", "expected HH:MM, got %q", slot)
	}
	return t, nil
}

// Normalize lower-cases weekday keys and sorts every day's slots
// chronologically. It does not validate.
func Normalize(a *models.RestaurantAvailability) {
	if a == nil {
		return
	}
	if a.Schedule != nil {
		normalized := make(map[string]models.DaySchedule, len(a.Schedule))
		for day, ds := range a.Schedule {
			normalized[strings.ToLower(strings.TrimSpace(day))] = sortSlots(ds)
		}
		a.Schedule = normalized
	}
	for date, ds := range a.SpecialDates {
		a.SpecialDates[date] = sortSlots(ds)
	}
}

func sortSlots(ds models.DaySchedule) models.DaySchedule {
	slots := append([]string(nil), ds.Slots...)
	sort.Strings(slots) // HH:MM sorts lexically
	ds.Slots = slots
	return ds
}

// Validate checks a configuration before it is stored.
func Validate(a *models.RestaurantAvailability) error {
	if a == nil {
		return domain.NewValidationError("availability", "is required")
	}
	if strings.TrimSpace(a.RestaurantID) == "" {
		return domain.NewValidationError("restaurant_id", "is required")
	}
	if !a.ManagementMode.IsValid() {
		return domain.NewValidationError("management_mode", "unknown mode %q", a.ManagementMode)
	}
	if a.AdvanceBookingDays < 0 {
		return domain.NewValidationError("advance_booking_days", "must not be negative")
	}
	if a.DefaultCapacityPerSlot < 0 {
		return domain.NewValidationError("default_capacity_per_slot", "must not be negative")
	}
	if a.TableTurningTime < 0 {
		return domain.NewValidationError("table_turning_time", "must not be negative")
	}

	for day, ds := range a.Schedule {
		if _, ok := weekdays[strings.ToLower(day)]; !ok {
			return domain.NewValidationError("schedule", "unknown weekday %q", day)
		}
		if err := validateDay("schedule."+day, ds); err != nil {
			return err
		}
	}
	for date, ds := range a.SpecialDates {
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			return domain.NewValidationError("special_dates", "expected YYYY-MM-DD key, got %q", date)
		}
		if err := validateDay("special_dates."+date, ds); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{}, len(a.Tables))
	for i, t := range a.Tables {
		field := fmt.Sprintf("tables[%d]", i)
		if strings.TrimSpace(t.ID) == "" {
			return domain.NewValidationError(field, "id is required")
		}
		if _, dup := seen[t.ID]; dup {
			return domain.NewValidationError(field, "duplicate table id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
		if t.Capacity < 1 {
			return domain.NewValidationError(field, "capacity must be at least 1")
		}
	}
	return nil
}

func validateDay(field string, ds models.DaySchedule) error {
	if ds.CapacityPerSlot < 0 {
		return domain.NewValidationError(field, "capacity_per_slot must not be negative")
	}
	seen := make(map[string]struct{}, len(ds.Slots))
	for _, slot := range ds.Slots {
		if _, err := ParseSlot(slot); err != nil {
			return domain.NewValidationError(field, "invalid slot %q", slot)
		}
		if _, dup := seen[slot]; dup {
			return domain.NewValidationError(field, "duplicate slot %q", slot)
		}
		seen[slot] = struct{}{}
	}
	return nil
}

// ResolveDay returns the schedule in force on date: the special-date override
// if present, else the weekday entry, else closed. A nil configuration is closed.
func ResolveDay(a *models.RestaurantAvailability, date time.Time) models.DaySchedule {
	if a == nil {
		return models.Closed()
	}
	if ds, ok := a.SpecialDates[date.Format(models.DateLayout)]; ok {
		return ds
	}
	if ds, ok := a.Schedule[WeekdayKey(date.Weekday())]; ok {
		return ds
	}
	return models.Closed()
}

// Package capacity decides which slots of a day can still accept a booking.
package capacity

import (
	"time"

	"tablebook/internal/domain"
	"tablebook/internal/models"
	"tablebook/internal/schedule"
)

// Evaluator is stateless apart from its clock; every call works on the
// bookings it is given.
type Evaluator struct {
	now func() time.Time
	loc *time.Location
}

func NewEvaluator(now func() time.Time, loc *time.Location) *Evaluator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Evaluator{now: now, loc: loc}
}

// Today returns the current calendar date in the evaluator's location.
func (e *Evaluator) Today() time.Time {
	n := e.now().In(e.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// Now returns the current wall-clock time in the evaluator's location.
func (e *Evaluator) Now() time.Time {
	return e.now().In(e.loc)
}

// CheckWindow verifies date lies within today..today+advanceDays. A past date
// cannot be booked; a date past the horizon is rejected as invalid input.
func (e *Evaluator) CheckWindow(date time.Time, advanceDays int) error {
	today := e.Today()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(today) {
		return &domain.SlotUnavailableError{Date: day.Format(models.DateLayout), Reason: "date is in the past"}
	}
	if day.After(today.AddDate(0, 0, advanceDays)) {
		return domain.NewValidationError("date", "bookings open %d days ahead", advanceDays)
	}
	return nil
}

// SlotQuery is the input of AvailableSlots. Active holds the active bookings
// of the restaurant on Date. PartySize does not bound bookability; table fit
// is left to SuggestTables.
type SlotQuery struct {
	Availability *models.RestaurantAvailability
	Date         time.Time
	PartySize    int
	Active       []*models.Booking
}

// AvailableSlots lists the bookable start times of a day in schedule order.
// An unknown restaurant, a closed day or a date outside the booking window
// yields an empty list.
func (e *Evaluator) AvailableSlots(q SlotQuery) []string {
	a := q.Availability
	if a == nil {
		return []string{}
	}
	if err := e.CheckWindow(q.Date, a.AdvanceBookingDays); err != nil {
		return []string{}
	}
	day := schedule.ResolveDay(a, q.Date)
	if !day.IsOpen {
		return []string{}
	}

	bySlot := groupActive(q.Active)
	slots := make([]string, 0, len(day.Slots))
	for _, slot := range day.Slots {
		if slotOpen(a, day, bySlot[slot]) {
			slots = append(slots, slot)
		}
	}
	return slots
}

func slotOpen(a *models.RestaurantAvailability, day models.DaySchedule, active []*models.Booking) bool {
	if a.ManagementMode == models.ModeTableBased {
		return len(active) < len(a.ActiveTables())
	}
	return len(active) < day.CapacityPerSlot
}

// WalkInAdmissible applies the walk-in rule: guest-count restaurants need an
// open day and room at that exact minute; table-based restaurants are not
// capacity checked.
func (e *Evaluator) WalkInAdmissible(a *models.RestaurantAvailability, date time.Time, minute string, active []*models.Booking) error {
	if a == nil {
		return &domain.SlotUnavailableError{Date: date.Format(models.DateLayout), Time: minute, Reason: "restaurant has no availability configured"}
	}
	if a.ManagementMode == models.ModeTableBased {
		return nil
	}
	day := schedule.ResolveDay(a, date)
	if !day.IsOpen {
		return &domain.SlotUnavailableError{Date: date.Format(models.DateLayout), Time: minute, Reason: "restaurant is closed today"}
	}
	if len(groupActive(active)[minute]) >= day.CapacityPerSlot {
		return &domain.SlotUnavailableError{Date: date.Format(models.DateLayout), Time: minute, Reason: "no capacity left"}
	}
	return nil
}

func groupActive(bookings []*models.Booking) map[string][]*models.Booking {
	out := make(map[string][]*models.Booking)
	for _, b := range bookings {
		if b.Status.IsActive() {
			out[b.Time] = append(out[b.Time], b)
		}
	}
	return out
}

// Summary computes the staff capacity bar for a day.
func Summary(a *models.RestaurantAvailability, date time.Time, bookings []*models.Booking) models.CapacitySummary {
	day := schedule.ResolveDay(a, date)
	s := models.CapacitySummary{
		Date:            date.Format(models.DateLayout),
		IsOpen:          day.IsOpen,
		CapacityPerSlot: day.CapacityPerSlot,
		SlotCount:       len(day.Slots),
	}
	if a != nil {
		s.RestaurantID = a.RestaurantID
	}
	if day.IsOpen {
		s.Ceiling = day.CapacityPerSlot * len(day.Slots)
	}
	for _, b := range bookings {
		if b.Status == models.StatusCancelled || b.Status == models.StatusNoShow {
			continue
		}
		s.Guests += b.PartySize
	}
	if s.Ceiling > 0 {
		s.Utilization = float64(s.Guests) / float64(s.Ceiling) * 100
	}
	return s
}

package models

// TimeSlotGroup is the staff view of one slot: its bookings and seated guest total.
type TimeSlotGroup struct {
	Time        string     `json:"time"`
	Bookings    []*Booking `json:"bookings"`
	TotalGuests int        `json:"total_guests"`
}

// BookingPage is a capped listing. Limit is the cap that was applied and
// Truncated is set when more bookings matched.
type BookingPage struct {
	Bookings  []*Booking `json:"bookings"`
	Limit     int        `json:"limit"`
	Truncated bool       `json:"truncated"`
}

type BookingStats struct {
	TodayCount       int     `json:"today_count"`
	UpcomingCount    int     `json:"upcoming_count"`
	AveragePartySize float64 `json:"average_party_size"`
	CompletedCount   int     `json:"completed_count"`
	CancelledCount   int     `json:"cancelled_count"`
	NoShowCount      int     `json:"no_show_count"`
	TotalCount       int     `json:"total_count"`
	NoShowRate       float64 `json:"no_show_rate"`
}

// CapacitySummary backs the staff capacity bar. Ceiling is
// capacityPerSlot * slotCount for the day and Guests the sum of party sizes of
// bookings that are neither cancelled nor no-show. It is not a bookability
// check: slot admission counts bookings, this sums guests.
type CapacitySummary struct {
	RestaurantID    string  `json:"restaurant_id"`
	Date            string  `json:"date"`
	IsOpen          bool    `json:"is_open"`
	CapacityPerSlot int     `json:"capacity_per_slot"`
	SlotCount       int     `json:"slot_count"`
	Ceiling         int     `json:"ceiling"`
	Guests          int     `json:"guests"`
	Utilization     float64 `json:"utilization"`
}

// TableSuggestion lists tables staff may pick for a booking.
type TableSuggestion struct {
	Assignable []Table `json:"assignable"`
	Suggested  []Table `json:"suggested"`
}

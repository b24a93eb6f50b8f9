package models

import "time"

// ManagementMode selects how a restaurant measures capacity.
type ManagementMode string

const (
	ModeGuestCount ManagementMode = "guest-count"
	ModeTableBased ManagementMode = "table-based"
)

func (m ManagementMode) IsValid() bool {
	return m == ModeGuestCount || m == ModeTableBased
}

// DaySchedule describes one calendar day: whether it is open, its bookable
// start times and how many bookings each start time accepts.
type DaySchedule struct {
	IsOpen          bool     `json:"is_open" yaml:"is_open" bson:"is_open"`
	Slots           []string `json:"slots" yaml:"slots" bson:"slots"`
	CapacityPerSlot int      `json:"capacity_per_slot" yaml:"capacity_per_slot" bson:"capacity_per_slot"`
}

// Closed is the resolution of a day without any configuration.
func Closed() DaySchedule {
	return DaySchedule{}
}

type Table struct {
	ID       string `json:"id" yaml:"id" bson:"id"`
	Name     string `json:"name" yaml:"name" bson:"name"`
	Capacity int    `json:"capacity" yaml:"capacity" bson:"capacity"`
	IsActive bool   `json:"is_active" yaml:"is_active" bson:"is_active"`
}

// RestaurantAvailability is the per-restaurant booking configuration.
// Schedule is keyed by lower-case English weekday name, SpecialDates by
// YYYY-MM-DD and overrides Schedule for that date.
type RestaurantAvailability struct {
	RestaurantID           string                 `json:"restaurant_id" yaml:"restaurant_id" bson:"_id"`
	ManagementMode         ManagementMode         `json:"management_mode" yaml:"management_mode" bson:"management_mode"`
	Schedule               map[string]DaySchedule `json:"schedule" yaml:"schedule" bson:"schedule"`
	SpecialDates           map[string]DaySchedule `json:"special_dates,omitempty" yaml:"special_dates" bson:"special_dates,omitempty"`
	Tables                 []Table                `json:"tables,omitempty" yaml:"tables" bson:"tables,omitempty"`
	DefaultCapacityPerSlot int                    `json:"default_capacity_per_slot" yaml:"default_capacity_per_slot" bson:"default_capacity_per_slot"`
	AdvanceBookingDays     int                    `json:"advance_booking_days" yaml:"advance_booking_days" bson:"advance_booking_days"`
	TableTurningTime       int                    `json:"table_turning_time" yaml:"table_turning_time" bson:"table_turning_time"`
	UpdatedAt              time.Time              `json:"updated_at" yaml:"-" bson:"updated_at"`
}

// Table looks a table up by id.
func (a *RestaurantAvailability) Table(id string) (Table, bool) {
	for _, t := range a.Tables {
		if t.ID == id {
			return t, true
		}
	}
	return Table{}, false
}

// ActiveTables returns active tables in configured order.
func (a *RestaurantAvailability) ActiveTables() []Table {
	out := make([]Table, 0, len(a.Tables))
	for _, t := range a.Tables {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out
}

// Restaurant is the catalog view the engine needs.
type Restaurant struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	// StaffChatID is the Telegram chat receiving staff alerts, 0 when unset.
	StaffChatID int64 `json:"-" yaml:"staff_chat_id"`
}

// Clone returns a deep copy so cached configurations cannot be mutated by callers.
func (a *RestaurantAvailability) Clone() *RestaurantAvailability {
	if a == nil {
		return nil
	}
	out := *a
	out.Schedule = cloneDays(a.Schedule)
	out.SpecialDates = cloneDays(a.SpecialDates)
	if a.Tables != nil {
		out.Tables = append([]Table(nil), a.Tables...)
	}
	return &out
}

func cloneDays(in map[string]DaySchedule) map[string]DaySchedule {
	if in == nil {
		return nil
	}
	out := make(map[string]DaySchedule, len(in))
	for k, v := range in {
		if v.Slots != nil {
			v.Slots = append([]string(nil), v.Slots...)
		}
		out[k] = v
	}
	return out
}

package models

import "time"

// BookingStatus is the lifecycle state of a reservation.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusSeated    BookingStatus = "seated"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
	StatusNoShow    BookingStatus = "no-show"
)

// AllStatuses lists statuses in lifecycle order.
var AllStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
	StatusSeated,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
}

// ActiveStatuses occupy capacity.
var ActiveStatuses = []BookingStatus{StatusPending, StatusConfirmed, StatusSeated}

// IsValid reports whether s is a known status.
func (s BookingStatus) IsValid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// IsActive reports whether a booking in this status counts against capacity.
func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusSeated
}

// IsTerminal reports whether the status can no longer change.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

func (s BookingStatus) String() string {
	return string(s)
}

type Booking struct {
	ID               string        `json:"id" bson:"_id"`
	RestaurantID     string        `json:"restaurant_id" bson:"restaurant_id"`
	RestaurantName   string        `json:"restaurant_name" bson:"restaurant_name"`
	UserID           string        `json:"user_id" bson:"user_id"`
	UserName         string        `json:"user_name" bson:"user_name"`
	UserEmail        string        `json:"user_email,omitempty" bson:"user_email,omitempty"`
	UserPhone        string        `json:"user_phone,omitempty" bson:"user_phone,omitempty"`
	Date             string        `json:"date" bson:"date"` // YYYY-MM-DD
	Time             string        `json:"time" bson:"time"` // HH:MM
	PartySize        int           `json:"party_size" bson:"party_size"`
	Status           BookingStatus `json:"status" bson:"status"`
	ConfirmationCode string        `json:"confirmation_code" bson:"confirmation_code"`
	TableID          string        `json:"table_id,omitempty" bson:"table_id,omitempty"`
	TableNumber      string        `json:"table_number,omitempty" bson:"table_number,omitempty"`
	SpecialRequests  string        `json:"special_requests,omitempty" bson:"special_requests,omitempty"`
	IdempotencyKey   string        `json:"-" bson:"idempotency_key,omitempty"`
	CreatedAt        time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" bson:"updated_at"`
	Version          int64         `json:"version" bson:"version"`
}

// IsWalkIn reports whether the booking was entered by staff for a guest at the door.
func (b *Booking) IsWalkIn() bool {
	return b.UserID == WalkInUserID
}

// SlotKey identifies the (restaurant, date, time) slot the booking occupies.
func (b *Booking) SlotKey() string {
	return SlotKey(b.RestaurantID, b.Date, b.Time)
}

// SlotKey builds the lock key of a slot.
func SlotKey(restaurantID, date, slot string) string {
	return "slot:" + restaurantID + ":" + date + ":" + slot
}

// BookingFilter narrows directory queries. Empty fields match everything.
type BookingFilter struct {
	RestaurantID string
	UserID       string
	Date         string
	DateFrom     string
	DateTo       string
	StatusIn     []BookingStatus
	Limit        int
}

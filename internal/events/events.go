package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"tablebook/internal/models"
)

const (
	EventBookingCreated       = "booking_created"
	EventBookingConfirmed     = "booking_confirmed"
	EventBookingSeated        = "booking_seated"
	EventBookingCompleted     = "booking_completed"
	EventBookingCancelled     = "booking_cancelled"
	EventBookingNoShow        = "booking_no_show"
	EventBookingTableAssigned = "booking_table_assigned"
	EventWalkInCreated        = "walk_in_created"
	EventAvailabilityUpdated  = "availability_updated"

	// EventNotifySend carries user notifications for the delivery service.
	EventNotifySend = "notify_send"
)

var statusEvents = map[models.BookingStatus]string{
	models.StatusConfirmed: EventBookingConfirmed,
	models.StatusSeated:    EventBookingSeated,
	models.StatusCompleted: EventBookingCompleted,
	models.StatusCancelled: EventBookingCancelled,
	models.StatusNoShow:    EventBookingNoShow,
}

// StatusEvent returns the event emitted when a booking enters status.
func StatusEvent(status models.BookingStatus) string {
	if ev, ok := statusEvents[status]; ok {
		return ev
	}
	return EventBookingCreated
}

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID        string    `json:"booking_id"`
	RestaurantID     string    `json:"restaurant_id"`
	RestaurantName   string    `json:"restaurant_name"`
	UserID           string    `json:"user_id"`
	UserName         string    `json:"user_name"`
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	PartySize        int       `json:"party_size"`
	Status           string    `json:"status"`
	PreviousStatus   string    `json:"previous_status,omitempty"`
	ConfirmationCode string    `json:"confirmation_code"`
	TableID          string    `json:"table_id,omitempty"`
	TableNumber      string    `json:"table_number,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func NewBookingPayload(b *models.Booking, previous models.BookingStatus) BookingEventPayload {
	return BookingEventPayload{
		BookingID:        b.ID,
		RestaurantID:     b.RestaurantID,
		RestaurantName:   b.RestaurantName,
		UserID:           b.UserID,
		UserName:         b.UserName,
		Date:             b.Date,
		Time:             b.Time,
		PartySize:        b.PartySize,
		Status:           string(b.Status),
		PreviousStatus:   string(previous),
		ConfirmationCode: b.ConfirmationCode,
		TableID:          b.TableID,
		TableNumber:      b.TableNumber,
		OccurredAt:       b.UpdatedAt,
	}
}

// NotificationPayload is published on EventNotifySend.
type NotificationPayload struct {
	UserID  string              `json:"user_id"`
	Event   string              `json:"event"`
	Booking BookingEventPayload `json:"booking"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type and returns their joined errors.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
}

package domain

import (
	"context"
	"time"

	"tablebook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BookingRepository persists bookings. Implementations classify their driver
// errors into ErrNotFound, ErrTransient, ErrDuplicate and
// ErrConcurrentModification.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetBookingByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error)
	ListActiveBookings(ctx context.Context, restaurantID, date string) ([]*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id string, version int64, status models.BookingStatus, updatedAt time.Time) error
	AssignTableWithVersion(ctx context.Context, id string, version int64, tableID, tableName string, updatedAt time.Time) error
}

type AvailabilityRepository interface {
	GetAvailability(ctx context.Context, restaurantID string) (*models.RestaurantAvailability, error)
	SaveAvailability(ctx context.Context, availability *models.RestaurantAvailability) error
}

// AvailabilityCache returns (nil, nil) on a miss.
type AvailabilityCache interface {
	GetAvailability(ctx context.Context, restaurantID string) (*models.RestaurantAvailability, error)
	SetAvailability(ctx context.Context, availability *models.RestaurantAvailability) error
	InvalidateAvailability(ctx context.Context, restaurantID string) error
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SlotLocker serializes evaluate-then-write sequences on one key. The
// returned release func must be called exactly once.
type SlotLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier delivers user-facing notifications. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, userID, event string, booking *models.Booking)
}

type RestaurantCatalog interface {
	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, booking *models.Booking) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

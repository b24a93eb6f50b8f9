package notify

import (
	"context"
	"fmt"
	"strings"

	"tablebook/internal/domain"
	"tablebook/internal/events"
	"tablebook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// guestEvents are the lifecycle events a guest is told about.
var guestEvents = map[string]bool{
	events.EventBookingConfirmed: true,
	events.EventBookingCancelled: true,
}

// EventSink hands guest notifications to the push/SMS delivery service via
// the event publisher. Walk-ins have no account and are skipped.
type EventSink struct {
	publisher domain.EventPublisher
}

func NewEventSink(publisher domain.EventPublisher) *EventSink {
	return &EventSink{publisher: publisher}
}

func (s *EventSink) Name() string { return "events" }

func (s *EventSink) Deliver(_ context.Context, n Notification) error {
	if !guestEvents[n.Event] || n.UserID == "" || n.UserID == models.WalkInUserID {
		return nil
	}
	return s.publisher.PublishJSON(events.EventNotifySend, events.NotificationPayload{
		UserID:  n.UserID,
		Event:   n.Event,
		Booking: events.NewBookingPayload(&n.Booking, ""),
	})
}

// TelegramSink alerts restaurant staff about new bookings, walk-ins and
// cancellations in the restaurant's Telegram chat.
type TelegramSink struct {
	bot     domain.TelegramSender
	catalog domain.RestaurantCatalog
}

func NewTelegramSink(bot domain.TelegramSender, catalog domain.RestaurantCatalog) *TelegramSink {
	return &TelegramSink{bot: bot, catalog: catalog}
}

func (s *TelegramSink) Name() string { return "telegram" }

var staffEvents = map[string]string{
	events.EventBookingCreated:   "🆕 New booking",
	events.EventWalkInCreated:    "🚶 Walk-in",
	events.EventBookingCancelled: "❌ Booking cancelled",
	events.EventBookingNoShow:    "⌛ No-show",
}

func (s *TelegramSink) Deliver(ctx context.Context, n Notification) error {
	title, ok := staffEvents[n.Event]
	if !ok {
		return nil
	}
	restaurant, err := s.catalog.GetRestaurant(ctx, n.Booking.RestaurantID)
	if err != nil {
		return fmt.Errorf("lookup restaurant %s: %w", n.Booking.RestaurantID, err)
	}
	if restaurant.StaffChatID == 0 {
		return nil
	}

	msg := tgbotapi.NewMessage(restaurant.StaffChatID, FormatStaffMessage(title, &n.Booking))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// FormatStaffMessage renders a booking for the staff chat.
func FormatStaffMessage(title string, b *models.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n", title)
	fmt.Fprintf(&sb, "📅 %s %s\n", b.Date, b.Time)
	fmt.Fprintf(&sb, "👥 %d\n", b.PartySize)
	fmt.Fprintf(&sb, "👤 %s", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, b.UserName))
	if b.UserPhone != "" {
		fmt.Fprintf(&sb, " (%s)", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, b.UserPhone))
	}
	sb.WriteString("\n")
	if b.TableNumber != "" {
		fmt.Fprintf(&sb, "🪑 %s\n", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, b.TableNumber))
	}
	if b.SpecialRequests != "" {
		fmt.Fprintf(&sb, "📝 %s\n", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, b.SpecialRequests))
	}
	fmt.Fprintf(&sb, "🔑 `%s`", b.ConfirmationCode)
	return sb.String()
}

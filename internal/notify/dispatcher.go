// Package notify delivers booking notifications without blocking the booking path.
package notify

import (
	"context"
	"sync"
	"time"

	"tablebook/internal/models"

	"github.com/rs/zerolog"
)

// Notification is one queued delivery.
type Notification struct {
	UserID  string
	Event   string
	Booking models.Booking
}

// Sink delivers a notification to one channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, n Notification) error
}

// Dispatcher queues notifications and hands them to every sink from a
// background worker. A full queue drops the notification.
type Dispatcher struct {
	sinks   []Sink
	queue   chan Notification
	timeout time.Duration
	logger  *zerolog.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(queueSize int, timeout time.Duration, logger *zerolog.Logger, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = models.WorkerQueueSize
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	l := logger.With().Str("component", "notify").Logger()
	return &Dispatcher{
		sinks:   sinks,
		queue:   make(chan Notification, queueSize),
		timeout: timeout,
		logger:  &l,
	}
}

// Notify enqueues a notification and returns immediately.
func (d *Dispatcher) Notify(_ context.Context, userID, event string, booking *models.Booking) {
	if booking == nil {
		return
	}
	n := Notification{UserID: userID, Event: event, Booking: *booking}
	select {
	case d.queue <- n:
	default:
		d.logger.Warn().Str("event", event).Str("booking_id", booking.ID).Msg("Notification queue full, dropping")
	}
}

// Start runs workers until ctx is done, then drains what is already queued.
func (d *Dispatcher) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
}

// Wait blocks until all workers have exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		case <-ctx.Done():
			for {
				select {
				case n := <-d.queue:
					d.deliver(n)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(n Notification) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := sink.Deliver(ctx, n)
		cancel()
		if err != nil {
			d.logger.Error().Err(err).
				Str("sink", sink.Name()).
				Str("event", n.Event).
				Str("booking_id", n.Booking.ID).
				Msg("Failed to deliver notification")
		}
	}
}

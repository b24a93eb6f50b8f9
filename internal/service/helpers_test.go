package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tablebook/internal/capacity"
	"tablebook/internal/catalog"
	"tablebook/internal/config"
	"tablebook/internal/database"
	"tablebook/internal/lock"
	"tablebook/internal/models"
	"tablebook/internal/repository"
	"tablebook/internal/worker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// 2025-03-03 is a Monday.
var fixedNow = time.Date(2025, 3, 3, 10, 15, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishJSON(eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *recordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type notification struct {
	UserID string
	Event  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(_ context.Context, userID, event string, _ *models.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{UserID: userID, Event: event})
}

func (n *recordingNotifier) Sent() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

type recordingSync struct {
	mu    sync.Mutex
	tasks []string
}

func (s *recordingSync) EnqueueTask(_ context.Context, taskType string, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, taskType+":"+b.ID)
	return nil
}

func (s *recordingSync) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tasks...)
}

type fixture struct {
	db           *database.DB
	clock        *testClock
	cache        *repository.MemoryCache
	events       *recordingPublisher
	notifier     *recordingNotifier
	sync         *recordingSync
	availability *AvailabilityService
	bookings     *BookingService
	directory    *DirectoryService
}

// guestCount is restaurant r1: Monday 18:00 and 18:30, one booking per slot.
func guestCount() *models.RestaurantAvailability {
	return &models.RestaurantAvailability{
		RestaurantID:       "r1",
		ManagementMode:     models.ModeGuestCount,
		AdvanceBookingDays: 30,
		Schedule: map[string]models.DaySchedule{
			"monday":  {IsOpen: true, Slots: []string{"18:30", "18:00"}, CapacityPerSlot: 1},
			"tuesday": {IsOpen: true, Slots: []string{"18:00"}, CapacityPerSlot: 3},
		},
		SpecialDates: map[string]models.DaySchedule{
			"2025-03-04": {IsOpen: false},
		},
	}
}

// tableBased is restaurant r2 with tables T1 (2, active), T2 (6, inactive)
// and T3 (4, active).
func tableBased() *models.RestaurantAvailability {
	return &models.RestaurantAvailability{
		RestaurantID:       "r2",
		ManagementMode:     models.ModeTableBased,
		AdvanceBookingDays: 30,
		Schedule: map[string]models.DaySchedule{
			"monday": {IsOpen: true, Slots: []string{"18:00", "19:00"}},
		},
		Tables: []models.Table{
			{ID: "t1", Name: "T1", Capacity: 2, IsActive: true},
			{ID: "t2", Name: "T2", Capacity: 6, IsActive: false},
			{ID: "t3", Name: "T3", Capacity: 4, IsActive: true},
		},
	}
}

// walkIns is restaurant r4: open all Monday with four bookings per slot.
func walkIns() *models.RestaurantAvailability {
	return &models.RestaurantAvailability{
		RestaurantID:       "r4",
		ManagementMode:     models.ModeGuestCount,
		AdvanceBookingDays: 7,
		Schedule: map[string]models.DaySchedule{
			"monday": {IsOpen: true, Slots: []string{"12:00"}, CapacityPerSlot: 4},
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "tablebook.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cat := catalog.NewStaticCatalog([]config.RestaurantConfig{
		{ID: "r1", Name: "Bistro"},
		{ID: "r2", Name: "Grill"},
		{ID: "r3", Name: "Unconfigured"},
		{ID: "r4", Name: "Corner Cafe"},
	})

	clock := &testClock{now: fixedNow}
	evaluator := capacity.NewEvaluator(clock.Now, time.UTC)
	retry := worker.RetryPolicy{InitialDelay: time.Millisecond}

	f := &fixture{
		db:       db,
		clock:    clock,
		cache:    repository.NewMemoryCache(time.Minute),
		events:   &recordingPublisher{},
		notifier: &recordingNotifier{},
		sync:     &recordingSync{},
	}
	f.availability = NewAvailabilityService(db, f.cache, cat, f.events, retry, &logger)
	f.availability.now = clock.Now
	f.bookings = NewBookingService(BookingDeps{
		Bookings:     db,
		Availability: f.availability,
		Catalog:      cat,
		Locker:       lock.NewLocalLocker(),
		Evaluator:    evaluator,
		Events:       f.events,
		Notifier:     f.notifier,
		SyncWorker:   f.sync,
		Retry:        retry,
		Config:       BookingConfig{RequestTimeout: 5 * time.Second},
		Logger:       &logger,
	})
	f.directory = NewDirectoryService(db, f.availability, evaluator, retry, &logger)

	ctx := context.Background()
	for _, a := range []*models.RestaurantAvailability{guestCount(), tableBased(), walkIns()} {
		_, err := f.availability.Save(ctx, a)
		require.NoError(t, err)
	}
	return f
}

func guestRequest(restaurantID, userID, date, slot string, party int) BookingRequest {
	return BookingRequest{
		RestaurantID: restaurantID,
		UserID:       userID,
		UserName:     "Guest " + userID,
		UserEmail:    userID + "@example.com",
		Date:         date,
		Time:         slot,
		PartySize:    party,
	}
}

func (f *fixture) book(t *testing.T, req BookingRequest) *models.Booking {
	t.Helper()
	f.clock.Advance(time.Second)
	b, err := f.bookings.CreateBooking(context.Background(), req)
	require.NoError(t, err)
	return b
}

func (f *fixture) setStatus(t *testing.T, id string, path ...models.BookingStatus) *models.Booking {
	t.Helper()
	var b *models.Booking
	for _, st := range path {
		var err error
		b, err = f.bookings.UpdateStatus(context.Background(), id, st)
		require.NoError(t, err)
	}
	return b
}

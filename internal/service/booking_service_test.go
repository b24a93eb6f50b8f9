package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"tablebook/internal/domain"
	"tablebook/internal/events"
	"tablebook/internal/lock"
	"tablebook/internal/models"
	"tablebook/internal/repository"
	"tablebook/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking_SlotCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, guestRequest("r1", "u1", "2025-03-10", "18:00", 2))
	assert.Equal(t, models.StatusPending, a.Status)
	assert.Equal(t, "Bistro", a.RestaurantName)
	assert.Equal(t, int64(1), a.Version)
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)

	_, err := f.bookings.CreateBooking(ctx, guestRequest("r1", "u2", "2025-03-10", "18:00", 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	var slotErr *domain.SlotUnavailableError
	require.ErrorAs(t, err, &slotErr)
	assert.Equal(t, "fully booked", slotErr.Reason)

	c := f.book(t, guestRequest("r1", "u2", "2025-03-10", "18:30", 2))
	assert.Equal(t, models.StatusPending, c.Status)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestCreateBooking_CancelledBookingFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, guestRequest("r1", "u1", "2025-03-10", "18:00", 2))
	_, err := f.bookings.CancelBooking(ctx, a.ID)
	require.NoError(t, err)

	f.book(t, guestRequest("r1", "u2", "2025-03-10", "18:00", 2))
}

func TestCreateBooking_TableBasedPartySizeNotMatched(t *testing.T) {
	f := newFixture(t)

	// Only T1 (2) and T3 (4) are active; a party of six still books.
	big := f.book(t, guestRequest("r2", "u1", "2025-03-10", "18:00", 6))
	assert.Equal(t, models.StatusPending, big.Status)
	assert.Empty(t, big.TableID)

	f.book(t, guestRequest("r2", "u2", "2025-03-10", "18:00", 4))

	_, err := f.bookings.CreateBooking(context.Background(), guestRequest("r2", "u3", "2025-03-10", "18:00", 2))
	require.ErrorIs(t, err, domain.ErrSlotUnavailable)
	assert.Contains(t, err.Error(), "all tables are booked")
}

func TestCreateBooking_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     BookingRequest
		wantErr error
	}{
		{"zero party", guestRequest("r1", "u1", "2025-03-10", "18:00", 0), domain.ErrValidation},
		{"missing user", guestRequest("r1", "", "2025-03-10", "18:00", 2), domain.ErrValidation},
		{"walk-in user id", guestRequest("r1", models.WalkInUserID, "2025-03-10", "18:00", 2), domain.ErrValidation},
		{"malformed date", guestRequest("r1", "u1", "10.03.2025", "18:00", 2), domain.ErrValidation},
		{"malformed time", guestRequest("r1", "u1", "2025-03-10", "6pm", 2), domain.ErrValidation},
		{"past date", guestRequest("r1", "u1", "2025-03-02", "18:00", 2), domain.ErrSlotUnavailable},
		{"beyond window", guestRequest("r1", "u1", "2025-04-07", "18:00", 2), domain.ErrValidation},
		{"closed weekday", guestRequest("r1", "u1", "2025-03-09", "18:00", 2), domain.ErrSlotUnavailable},
		{"closed special date", guestRequest("r1", "u1", "2025-03-04", "18:00", 2), domain.ErrSlotUnavailable},
		{"not a slot", guestRequest("r1", "u1", "2025-03-10", "18:15", 2), domain.ErrSlotUnavailable},
		{"unknown restaurant", guestRequest("nope", "u1", "2025-03-10", "18:00", 2), domain.ErrNotFound},
		{"unconfigured restaurant", guestRequest("r3", "u1", "2025-03-10", "18:00", 2), domain.ErrSlotUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.CreateBooking(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	all, err := f.directory.ListBookings(ctx, models.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateBooking_ConfirmationCode(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, guestRequest("r1", "u1", "2025-03-10", "18:00", 2))

	require.Len(t, b.ConfirmationCode, models.ConfirmationCodeLength)
	for _, r := range b.ConfirmationCode {
		assert.True(t, strings.ContainsRune(confirmationAlphabet, r), "unexpected rune %q", r)
	}
}

func TestCreateBooking_NoOverbookingUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Tuesday 18:00 takes three bookings.
			_, err := f.bookings.CreateBooking(ctx, guestRequest("r1", fmt.Sprintf("u%d", i), "2025-03-11", "18:00", 2))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrSlotUnavailable):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, attempts-3, rejected)

	active, err := f.db.ListActiveBookings(ctx, "r1", "2025-03-11")
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestCreateBooking_Idempotency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := guestRequest("r1", "u1", "2025-03-10", "18:00", 2)
	req.IdempotencyKey = "retry-1"

	first := f.book(t, req)
	second, err := f.bookings.CreateBooking(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other := req
	other.UserID = "u2"
	_, err = f.bookings.CreateBooking(ctx, other)
	assert.ErrorIs(t, err, domain.ErrValidation)

	all, err := f.directory.ListBookings(ctx, models.BookingFilter{RestaurantID: "r1"})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateBooking_RateLimited(t *testing.T) {
	f := newFixture(t)
	f.bookings.limiter = repository.NewMemoryCache(time.Minute)
	f.bookings.cfg.RateLimit = 1
	ctx := context.Background()

	f.book(t, guestRequest("r1", "u1", "2025-03-10", "18:00", 2))
	_, err := f.bookings.CreateBooking(ctx, guestRequest("r1", "u1", "2025-03-10", "18:30", 2))
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	f.book(t, guestRequest("r1", "u2", "2025-03-10", "18:30", 2))
}

func TestCreateBooking_SideEffects(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, guestRequest("r1", "u1", "2025-03-10", "18:00", 2))

	assert.Contains(t, f.events.Events(), events.EventBookingCreated)
	assert.Contains(t, f.notifier.Sent(), notification{UserID: "u1", Event: events.EventBookingCreated})
	assert.Equal(t, []string{worker.TaskUpsert + ":" + b.ID}, f.sync.Tasks())
}

func TestGetAvailableSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slots, err := f.bookings.GetAvailableSlots(ctx, "r1", "2025-03-10", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"18:00", "18:30"}, slots)

	f.book(t, guestRequest("r1", "u1", "2025-03-10", "18:00", 2))
	slots, err = f.bookings.GetAvailableSlots(ctx, "r1", "2025-03-10", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"18:30"}, slots)

	t.Run("empty cases", func(t *testing.T) {
		for _, tc := range []struct{ restaurant, date string }{
			{"r3", "2025-03-10"},   // no configuration
			{"nope", "2025-03-10"}, // unknown
			{"r1", "2025-03-02"},   // past
			{"r1", "2025-05-05"},   // beyond window
			{"r1", "2025-03-04"},   // special closure
		} {
			slots, err := f.bookings.GetAvailableSlots(ctx, tc.restaurant, tc.date, 2)
			require.NoError(t, err)
			assert.NotNil(t, slots)
			assert.Empty(t, slots, "%s %s", tc.restaurant, tc.date)
		}
	})

	t.Run("table-based ignores party size", func(t *testing.T) {
		slots, err := f.bookings.GetAvailableSlots(ctx, "r2", "2025-03-10", 4)
		require.NoError(t, err)
		assert.Equal(t, []string{"18:00", "19:00"}, slots)

		// T2 seats six but is inactive; fit is only a suggestion.
		slots, err = f.bookings.GetAvailableSlots(ctx, "r2", "2025-03-10", 6)
		require.NoError(t, err)
		assert.Equal(t, []string{"18:00", "19:00"}, slots)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := f.bookings.GetAvailableSlots(ctx, "r1", "garbage", 2)
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = f.bookings.GetAvailableSlots(ctx, "r1", "2025-03-10", -1)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.book(t, guestRequest("r1", "u1", "2025-03-10", "18:00", 2))
	b = f.setStatus(t, b.ID, models.StatusConfirmed)
	assert.Equal(t, int64(2), b.Version)

	seated, err := f.bookings.UpdateStatus(ctx, b.ID, models.StatusSeated)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSeated, seated.Status)

	_, err = f.bookings.UpdateStatus(ctx, b.ID, models.StatusPending)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := f.bookings.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSeated, stored.Status)
	assert.Equal(t, seated.Version, stored.Version)

	assert.Contains(t, f.events.Events(), events.EventBookingSeated)
	assert.Contains(t, f.notifier.Sent(), notification{UserID: "u1", Event: events.EventBookingConfirmed})
	assert.Contains(t, f.sync.Tasks(), worker.TaskUpdateStatus+":"+b.ID)
}

func TestUpdateStatus_TransitionTable(t *testing.T) {
	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			want := false
			for _, allowed := range NextStatuses(from) {
				if allowed == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.Empty(t, NextStatuses(models.StatusCompleted))
	assert.Empty(t, NextStatuses(models.StatusCancelled))
	assert.Empty(t, NextStatuses(models.StatusNoShow))
}

func TestUpdateStatus_TerminalStatesNeverChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	paths := map[models.BookingStatus][]models.BookingStatus{
		models.StatusCompleted: {models.StatusConfirmed, models.StatusSeated, models.StatusCompleted},
		models.StatusNoShow:    {models.StatusConfirmed, models.StatusNoShow},
		models.StatusCancelled: {models.StatusCancelled},
	}
	i := 0
	for terminal, path := range paths {
		i++
		b := f.book(t, guestRequest("r1", fmt.Sprintf("u%d", i), "2025-03-11", "18:00", 2))
		f.setStatus(t, b.ID, path...)

		for _, to := range models.AllStatuses {
			if terminal == models.StatusCancelled && to == models.StatusCancelled {
				continue
			}
			_, err := f.bookings.UpdateStatus(ctx, b.ID, to)
			assert.ErrorIs(t, err, domain.ErrInvalidTransition, "%s -> %s", terminal, to)
		}
		stored, err := f.bookings.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, terminal, stored.Status)
	}
}

func TestCancelBooking_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.book(t, guestRequest("r1", "u1", "2025-03-10", "18:00", 2))
	first, err := f.bookings.CancelBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, first.Status)

	f.clock.Advance(time.Minute)
	second, err := f.bookings.CancelBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, second.Status)
	assert.Equal(t, first.Version, second.Version)
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt))

	cancelled := 0
	for _, ev := range f.events.Events() {
		if ev == events.EventBookingCancelled {
			cancelled++
		}
	}
	assert.Equal(t, 1, cancelled)
}

func TestUpdateStatus_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bookings.UpdateStatus(ctx, "missing", models.StatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.bookings.CancelBooking(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	b := f.book(t, guestRequest("r1", "u1", "2025-03-10", "18:00", 2))
	_, err = f.bookings.UpdateStatus(ctx, b.ID, "lost")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.bookings.UpdateStatus(ctx, b.ID, models.StatusSeated)
	var te *domain.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "pending", te.From)
	assert.Equal(t, "seated", te.To)
}

func TestCreateWalkIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, err := f.bookings.CreateWalkIn(ctx, WalkInRequest{RestaurantID: "r4", PartySize: 4})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, w.Status)
	assert.Equal(t, models.WalkInUserID, w.UserID)
	assert.Equal(t, models.WalkInDefaultName, w.UserName)
	assert.Equal(t, "2025-03-03", w.Date)
	assert.Equal(t, "10:15", w.Time)
	assert.True(t, w.IsWalkIn())
	assert.Contains(t, f.events.Events(), events.EventWalkInCreated)

	// Walk-ins go straight to seated.
	seated, err := f.bookings.UpdateStatus(ctx, w.ID, models.StatusSeated)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSeated, seated.Status)
}

func TestCreateWalkIn_GuestCountCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.bookings.CreateWalkIn(ctx, WalkInRequest{RestaurantID: "r4", GuestName: fmt.Sprintf("g%d", i), PartySize: 2})
		require.NoError(t, err)
	}
	_, err := f.bookings.CreateWalkIn(ctx, WalkInRequest{RestaurantID: "r4", PartySize: 2})
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)

	f.clock.Advance(time.Minute)
	_, err = f.bookings.CreateWalkIn(ctx, WalkInRequest{RestaurantID: "r4", PartySize: 2})
	assert.NoError(t, err)
}

func TestCreateWalkIn_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bookings.CreateWalkIn(ctx, WalkInRequest{RestaurantID: "r4"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.bookings.CreateWalkIn(ctx, WalkInRequest{RestaurantID: "nope", PartySize: 2})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.bookings.CreateWalkIn(ctx, WalkInRequest{RestaurantID: "r3", PartySize: 2})
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)

	// Table-based restaurants admit walk-ins without a capacity check.
	for i := 0; i < 5; i++ {
		_, err = f.bookings.CreateWalkIn(ctx, WalkInRequest{RestaurantID: "r2", PartySize: 8})
		require.NoError(t, err)
	}
}

func TestAssignTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, guestRequest("r2", "u1", "2025-03-10", "18:00", 2))
	b := f.book(t, guestRequest("r2", "u2", "2025-03-10", "18:00", 2))

	suggestion, err := f.bookings.AssignableTables(ctx, "r2", "2025-03-10", "18:00", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t3"}, tableIDs(suggestion.Assignable))
	assert.Equal(t, []string{"t3", "t1"}, tableIDs(suggestion.Suggested))

	_, err = f.bookings.AssignTable(ctx, a.ID, "t2")
	var tableErr *domain.TableUnavailableError
	require.ErrorAs(t, err, &tableErr)
	assert.Equal(t, "T2", tableErr.TableName)
	assert.ErrorIs(t, err, domain.ErrTableUnavailable)

	_, err = f.bookings.AssignTable(ctx, a.ID, "t9")
	assert.ErrorIs(t, err, domain.ErrTableUnavailable)

	assigned, err := f.bookings.AssignTable(ctx, a.ID, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", assigned.TableID)
	assert.Equal(t, "T1", assigned.TableNumber)

	_, err = f.bookings.AssignTable(ctx, b.ID, "t1")
	require.ErrorAs(t, err, &tableErr)
	assert.Contains(t, err.Error(), "T1")

	suggestion, err = f.bookings.AssignableTables(ctx, "r2", "2025-03-10", "18:00", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"t3"}, tableIDs(suggestion.Assignable))

	// The same table at another time is free.
	c := f.book(t, guestRequest("r2", "u3", "2025-03-10", "19:00", 2))
	_, err = f.bookings.AssignTable(ctx, c.ID, "t1")
	require.NoError(t, err)

	// Cancelling releases the table.
	_, err = f.bookings.CancelBooking(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.bookings.AssignTable(ctx, b.ID, "t1")
	require.NoError(t, err)
}

func TestAssignTable_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	guest := f.book(t, guestRequest("r1", "u1", "2025-03-10", "18:00", 2))
	_, err := f.bookings.AssignTable(ctx, guest.ID, "t1")
	assert.ErrorIs(t, err, domain.ErrValidation)

	b := f.book(t, guestRequest("r2", "u1", "2025-03-10", "18:00", 2))
	f.setStatus(t, b.ID, models.StatusCancelled)
	_, err = f.bookings.AssignTable(ctx, b.ID, "t1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.bookings.AssignTable(ctx, "missing", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.bookings.AssignableTables(ctx, "r1", "2025-03-10", "18:00", 2)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAssignTable_NoDoubleAssignmentUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, guestRequest("r2", "u1", "2025-03-10", "18:00", 2))
	b := f.book(t, guestRequest("r2", "u2", "2025-03-10", "18:00", 2))

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, id := range []string{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.bookings.AssignTable(ctx, id, "t1")
		}(i, id)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, domain.ErrTableUnavailable)
		}
	}
	assert.Equal(t, 1, ok)

	active, err := f.db.ListActiveBookings(ctx, "r2", "2025-03-10")
	require.NoError(t, err)
	holders := 0
	for _, bk := range active {
		if bk.TableID == "t1" {
			holders++
		}
	}
	assert.Equal(t, 1, holders)
}

func tableIDs(tables []models.Table) []string {
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		out = append(out, t.ID)
	}
	return out
}

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) CreateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockBookingRepo) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingRepo) GetBookingByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingRepo) ListActiveBookings(ctx context.Context, restaurantID, date string) ([]*models.Booking, error) {
	args := m.Called(ctx, restaurantID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockBookingRepo) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockBookingRepo) UpdateBookingStatusWithVersion(ctx context.Context, id string, version int64, status models.BookingStatus, updatedAt time.Time) error {
	return m.Called(ctx, id, version, status, updatedAt).Error(0)
}

func (m *mockBookingRepo) AssignTableWithVersion(ctx context.Context, id string, version int64, tableID, tableName string, updatedAt time.Time) error {
	return m.Called(ctx, id, version, tableID, tableName, updatedAt).Error(0)
}

func newMockedService(repo *mockBookingRepo) *BookingService {
	return NewBookingService(BookingDeps{
		Bookings: repo,
		Locker:   lock.NewLocalLocker(),
		Retry:    worker.RetryPolicy{InitialDelay: time.Millisecond},
	})
}

func TestTransientFailures(t *testing.T) {
	ctx := context.Background()
	booking := &models.Booking{ID: "b1", RestaurantID: "r1", Date: "2025-03-10", Time: "18:00", Status: models.StatusPending, Version: 1}

	t.Run("retried once", func(t *testing.T) {
		repo := new(mockBookingRepo)
		repo.On("GetBooking", mock.Anything, "b1").Return(nil, fmt.Errorf("read: %w", domain.ErrTransient)).Once()
		repo.On("GetBooking", mock.Anything, "b1").Return(booking, nil).Once()

		got, err := newMockedService(repo).GetBooking(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, "b1", got.ID)
		repo.AssertExpectations(t)
	})

	t.Run("surfaces as unavailable", func(t *testing.T) {
		repo := new(mockBookingRepo)
		repo.On("GetBooking", mock.Anything, "b1").Return(nil, fmt.Errorf("read: %w", domain.ErrTransient)).Twice()

		_, err := newMockedService(repo).GetBooking(ctx, "b1")
		assert.ErrorIs(t, err, domain.ErrUnavailable)
		assert.NotErrorIs(t, err, domain.ErrSlotUnavailable)
		repo.AssertExpectations(t)
	})

	t.Run("non transient is not retried", func(t *testing.T) {
		repo := new(mockBookingRepo)
		repo.On("GetBooking", mock.Anything, "b1").Return(nil, domain.ErrNotFound).Once()

		_, err := newMockedService(repo).GetBooking(ctx, "b1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		repo.AssertExpectations(t)
	})
}

func TestUpdateStatus_VersionConflictRereads(t *testing.T) {
	ctx := context.Background()
	repo := new(mockBookingRepo)

	stale := &models.Booking{ID: "b1", RestaurantID: "r1", Date: "2025-03-10", Time: "18:00", Status: models.StatusPending, Version: 1}
	fresh := *stale
	fresh.Version = 2

	repo.On("GetBooking", mock.Anything, "b1").Return(stale, nil).Twice()
	repo.On("GetBooking", mock.Anything, "b1").Return(&fresh, nil).Once()
	repo.On("UpdateBookingStatusWithVersion", mock.Anything, "b1", int64(1), models.StatusConfirmed, mock.Anything).
		Return(domain.ErrConcurrentModification).Once()
	repo.On("UpdateBookingStatusWithVersion", mock.Anything, "b1", int64(2), models.StatusConfirmed, mock.Anything).
		Return(nil).Once()

	got, err := newMockedService(repo).UpdateStatus(ctx, "b1", models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	repo.AssertExpectations(t)
}

func TestUpdateStatus_RetriedWriteAlreadyApplied(t *testing.T) {
	ctx := context.Background()
	pending := &models.Booking{ID: "b1", RestaurantID: "r1", Date: "2025-03-10", Time: "18:00", Status: models.StatusPending, Version: 1}

	t.Run("own first attempt committed", func(t *testing.T) {
		repo := new(mockBookingRepo)
		applied := *pending
		applied.Status = models.StatusConfirmed
		applied.Version = 2

		repo.On("GetBooking", mock.Anything, "b1").Return(pending, nil).Twice()
		repo.On("UpdateBookingStatusWithVersion", mock.Anything, "b1", int64(1), models.StatusConfirmed, mock.Anything).
			Return(fmt.Errorf("commit: %w", domain.ErrTransient)).Once()
		repo.On("UpdateBookingStatusWithVersion", mock.Anything, "b1", int64(1), models.StatusConfirmed, mock.Anything).
			Return(domain.ErrConcurrentModification).Once()
		repo.On("GetBooking", mock.Anything, "b1").Return(&applied, nil).Once()

		got, err := newMockedService(repo).UpdateStatus(ctx, "b1", models.StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, got.Status)
		assert.Equal(t, int64(2), got.Version)
		repo.AssertExpectations(t)
	})

	t.Run("same transition by another writer", func(t *testing.T) {
		repo := new(mockBookingRepo)
		other := *pending
		other.Status = models.StatusCancelled
		other.Version = 3

		repo.On("GetBooking", mock.Anything, "b1").Return(pending, nil).Twice()
		repo.On("UpdateBookingStatusWithVersion", mock.Anything, "b1", int64(1), models.StatusCancelled, mock.Anything).
			Return(domain.ErrConcurrentModification).Once()
		repo.On("GetBooking", mock.Anything, "b1").Return(&other, nil).Once()

		got, err := newMockedService(repo).CancelBooking(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)
		assert.Equal(t, int64(3), got.Version)
		repo.AssertExpectations(t)
	})

	t.Run("different status after conflict", func(t *testing.T) {
		repo := new(mockBookingRepo)
		cancelled := *pending
		cancelled.Status = models.StatusCancelled
		cancelled.Version = 2

		repo.On("GetBooking", mock.Anything, "b1").Return(pending, nil).Twice()
		repo.On("UpdateBookingStatusWithVersion", mock.Anything, "b1", int64(1), models.StatusConfirmed, mock.Anything).
			Return(domain.ErrConcurrentModification).Once()
		repo.On("GetBooking", mock.Anything, "b1").Return(&cancelled, nil).Once()

		_, err := newMockedService(repo).UpdateStatus(ctx, "b1", models.StatusConfirmed)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		repo.AssertExpectations(t)
	})
}

func TestErrorReason(t *testing.T) {
	assert.Equal(t, "slot_unavailable", ErrorReason(&domain.SlotUnavailableError{}))
	assert.Equal(t, "table_unavailable", ErrorReason(&domain.TableUnavailableError{}))
	assert.Equal(t, "invalid_transition", ErrorReason(&domain.TransitionError{}))
	assert.Equal(t, "validation", ErrorReason(domain.NewValidationError("x", "y")))
	assert.Equal(t, "unavailable", ErrorReason(fmt.Errorf("x: %w", domain.ErrUnavailable)))
	assert.Equal(t, "internal", ErrorReason(errors.New("boom")))
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tablebook/internal/capacity"
	"tablebook/internal/domain"
	"tablebook/internal/events"
	"tablebook/internal/metrics"
	"tablebook/internal/models"
	"tablebook/internal/schedule"
	"tablebook/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxWriteAttempts bounds re-reads after a version conflict.
const maxWriteAttempts = 2

type BookingConfig struct {
	RequestTimeout time.Duration
	// RateLimit is the number of guest bookings a user may create per
	// RateWindow. Zero disables the check.
	RateLimit  int
	RateWindow time.Duration
}

// BookingDeps are the collaborators of BookingService. Events, Notifier,
// SyncWorker and RateLimiter are optional.
type BookingDeps struct {
	Bookings     domain.BookingRepository
	Availability *AvailabilityService
	Catalog      domain.RestaurantCatalog
	Locker       domain.SlotLocker
	Evaluator    *capacity.Evaluator
	Events       domain.EventPublisher
	Notifier     domain.Notifier
	SyncWorker   domain.SyncWorker
	RateLimiter  domain.RateLimiter
	Retry        worker.RetryPolicy
	Config       BookingConfig
	Logger       *zerolog.Logger
}

// BookingService is the only code path that mutates bookings. Every write
// holds the slot lock for its (restaurant, date, time) while it re-evaluates
// capacity and persists.
type BookingService struct {
	repo         domain.BookingRepository
	availability *AvailabilityService
	catalog      domain.RestaurantCatalog
	locker       domain.SlotLocker
	evaluator    *capacity.Evaluator
	eventBus     domain.EventPublisher
	notifier     domain.Notifier
	sheetsWorker domain.SyncWorker
	limiter      domain.RateLimiter
	retry        worker.RetryPolicy
	cfg          BookingConfig
	newID        func() string
	logger       *zerolog.Logger
}

func NewBookingService(deps BookingDeps) *BookingService {
	logger := deps.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	evaluator := deps.Evaluator
	if evaluator == nil {
		evaluator = capacity.NewEvaluator(nil, nil)
	}
	cfg := deps.Config
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	return &BookingService{
		repo:         deps.Bookings,
		availability: deps.Availability,
		catalog:      deps.Catalog,
		locker:       deps.Locker,
		evaluator:    evaluator,
		eventBus:     deps.Events,
		notifier:     deps.Notifier,
		sheetsWorker: deps.SyncWorker,
		limiter:      deps.RateLimiter,
		retry:        deps.Retry,
		cfg:          cfg,
		newID:        uuid.NewString,
		logger:       logger,
	}
}

// BookingRequest is a guest reservation attempt.
type BookingRequest struct {
	RestaurantID    string `json:"restaurant_id"`
	UserID          string `json:"user_id"`
	UserName        string `json:"user_name"`
	UserEmail       string `json:"user_email"`
	UserPhone       string `json:"user_phone"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PartySize       int    `json:"party_size"`
	SpecialRequests string `json:"special_requests"`
	// IdempotencyKey makes a retried request return the original booking.
	IdempotencyKey string `json:"-"`
}

// WalkInRequest is a staff entry for a guest without a reservation.
type WalkInRequest struct {
	RestaurantID    string `json:"restaurant_id"`
	GuestName       string `json:"guest_name"`
	GuestPhone      string `json:"guest_phone"`
	PartySize       int    `json:"party_size"`
	SpecialRequests string `json:"special_requests"`
}

func (r BookingRequest) validate() (time.Time, error) {
	if strings.TrimSpace(r.RestaurantID) == "" {
		return time.Time{}, domain.NewValidationError("restaurant_id", "is required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return time.Time{}, domain.NewValidationError("user_id", "is required")
	}
	if r.UserID == models.WalkInUserID {
		return time.Time{}, domain.NewValidationError("user_id", "is reserved for walk-ins")
	}
	if r.PartySize < 1 {
		return time.Time{}, domain.NewValidationError("party_size", "must be at least 1")
	}
	date, err := schedule.ParseDate(r.Date)
	if err != nil {
		return time.Time{}, err
	}
	if _, err := schedule.ParseSlot(r.Time); err != nil {
		return time.Time{}, domain.NewValidationError("time", "must be HH:MM")
	}
	return date, nil
}

func (s *BookingService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}

func (s *BookingService) lockSlot(ctx context.Context, key string) (func(), error) {
	start := time.Now()
	release, err := s.locker.Lock(ctx, key)
	metrics.ObserveLockWait(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	return release, nil
}

// GetAvailableSlots lists the bookable times for a party on a date. A
// restaurant without configuration yields an empty list.
func (s *BookingService) GetAvailableSlots(ctx context.Context, restaurantID, date string, partySize int) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if strings.TrimSpace(restaurantID) == "" {
		return nil, domain.NewValidationError("restaurant_id", "is required")
	}
	if partySize < 0 {
		return nil, domain.NewValidationError("party_size", "must not be negative")
	}
	day, err := schedule.ParseDate(date)
	if err != nil {
		return nil, err
	}

	a, err := s.availability.Get(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return []string{}, nil
	}

	active, err := s.listActive(ctx, restaurantID, date)
	if err != nil {
		return nil, err
	}
	return s.evaluator.AvailableSlots(capacity.SlotQuery{
		Availability: a,
		Date:         day,
		PartySize:    partySize,
		Active:       active,
	}), nil
}

// CreateBooking books a slot for a guest. The slot list is re-evaluated from
// storage under the slot lock; a time that is no longer offered is rejected
// with SlotUnavailable.
func (s *BookingService) CreateBooking(ctx context.Context, req BookingRequest) (*models.Booking, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	b, err := s.createBooking(ctx, req)
	if err != nil {
		s.reject("create", err)
		return nil, err
	}
	return b, nil
}

func (s *BookingService) createBooking(ctx context.Context, req BookingRequest) (*models.Booking, error) {
	date, err := req.validate()
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		if existing, err := s.findByIdempotencyKey(ctx, req.IdempotencyKey, req.UserID); err != nil || existing != nil {
			return existing, err
		}
	}

	if err := s.checkRateLimit(ctx, req.UserID); err != nil {
		return nil, err
	}

	restaurant, err := s.catalog.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}

	a, err := s.availability.Get(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &domain.SlotUnavailableError{Date: req.Date, Time: req.Time, Reason: "restaurant has no availability configured"}
	}
	if err := s.evaluator.CheckWindow(date, a.AdvanceBookingDays); err != nil {
		return nil, err
	}

	release, err := s.lockSlot(ctx, models.SlotKey(req.RestaurantID, req.Date, req.Time))
	if err != nil {
		return nil, err
	}
	defer release()

	active, err := s.listActive(ctx, req.RestaurantID, req.Date)
	if err != nil {
		return nil, err
	}
	slots := s.evaluator.AvailableSlots(capacity.SlotQuery{
		Availability: a,
		Date:         date,
		PartySize:    req.PartySize,
		Active:       active,
	})
	if !contains(slots, req.Time) {
		return nil, &domain.SlotUnavailableError{Date: req.Date, Time: req.Time, Reason: slotRejectionReason(a, date, req.Time)}
	}

	code, err := GenerateConfirmationCode()
	if err != nil {
		return nil, err
	}
	now := s.evaluator.Now().UTC()
	booking := &models.Booking{
		ID:               s.newID(),
		RestaurantID:     restaurant.ID,
		RestaurantName:   restaurant.Name,
		UserID:           req.UserID,
		UserName:         req.UserName,
		UserEmail:        req.UserEmail,
		UserPhone:        req.UserPhone,
		Date:             req.Date,
		Time:             req.Time,
		PartySize:        req.PartySize,
		Status:           models.StatusPending,
		ConfirmationCode: code,
		SpecialRequests:  req.SpecialRequests,
		IdempotencyKey:   req.IdempotencyKey,
		CreatedAt:        now,
		UpdatedAt:        now,
		Version:          1,
	}

	err = withRetry(ctx, s.retry, func(ctx context.Context) error {
		return s.repo.CreateBooking(ctx, booking)
	})
	if errors.Is(err, domain.ErrDuplicate) && req.IdempotencyKey != "" {
		// Параллельный запрос с тем же ключом успел раньше.
		return s.findByIdempotencyKey(ctx, req.IdempotencyKey, req.UserID)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("restaurant_id", booking.RestaurantID).
		Str("date", booking.Date).
		Str("time", booking.Time).
		Int("party_size", booking.PartySize).
		Msg("booking created")

	metrics.IncBookingCreated("guest", string(a.ManagementMode))
	s.afterWrite(ctx, events.EventBookingCreated, booking, "", worker.TaskUpsert)
	return booking, nil
}

// CreateWalkIn records a guest seated without a reservation at the current
// minute, confirmed immediately. The booking window does not apply.
func (s *BookingService) CreateWalkIn(ctx context.Context, req WalkInRequest) (*models.Booking, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	b, err := s.createWalkIn(ctx, req)
	if err != nil {
		s.reject("walk_in", err)
		return nil, err
	}
	return b, nil
}

func (s *BookingService) createWalkIn(ctx context.Context, req WalkInRequest) (*models.Booking, error) {
	if strings.TrimSpace(req.RestaurantID) == "" {
		return nil, domain.NewValidationError("restaurant_id", "is required")
	}
	if req.PartySize < 1 {
		return nil, domain.NewValidationError("party_size", "must be at least 1")
	}

	restaurant, err := s.catalog.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	a, err := s.availability.Get(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}

	now := s.evaluator.Now()
	today := s.evaluator.Today()
	date := today.Format(models.DateLayout)
	minute := now.Format(models.TimeLayout)

	release, err := s.lockSlot(ctx, models.SlotKey(req.RestaurantID, date, minute))
	if err != nil {
		return nil, err
	}
	defer release()

	active, err := s.listActive(ctx, req.RestaurantID, date)
	if err != nil {
		return nil, err
	}
	if err := s.evaluator.WalkInAdmissible(a, today, minute, active); err != nil {
		return nil, err
	}

	code, err := GenerateConfirmationCode()
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.GuestName)
	if name == "" {
		name = models.WalkInDefaultName
	}
	booking := &models.Booking{
		ID:               s.newID(),
		RestaurantID:     restaurant.ID,
		RestaurantName:   restaurant.Name,
		UserID:           models.WalkInUserID,
		UserName:         name,
		UserPhone:        req.GuestPhone,
		Date:             date,
		Time:             minute,
		PartySize:        req.PartySize,
		Status:           models.StatusConfirmed,
		ConfirmationCode: code,
		SpecialRequests:  req.SpecialRequests,
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
		Version:          1,
	}

	if err := withRetry(ctx, s.retry, func(ctx context.Context) error {
		return s.repo.CreateBooking(ctx, booking)
	}); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("restaurant_id", booking.RestaurantID).
		Str("time", booking.Time).
		Int("party_size", booking.PartySize).
		Msg("walk-in created")

	metrics.IncBookingCreated("walk_in", string(a.ManagementMode))
	s.afterWrite(ctx, events.EventWalkInCreated, booking, "", worker.TaskUpsert)
	return booking, nil
}

// UpdateStatus moves a booking along the state machine.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	b, err := s.updateStatus(ctx, id, status)
	if err != nil {
		s.reject("update_status", err)
		return nil, err
	}
	return b, nil
}

// CancelBooking cancels a booking. Cancelling a cancelled booking succeeds
// without writing.
func (s *BookingService) CancelBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.UpdateStatus(ctx, id, models.StatusCancelled)
}

func (s *BookingService) updateStatus(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("id", "is required")
	}
	if !status.IsValid() {
		return nil, domain.NewValidationError("status", "unknown status %q", status)
	}

	current, err := s.getBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if isCancelNoop(current, status) {
		return current, nil
	}

	release, err := s.lockSlot(ctx, current.SlotKey())
	if err != nil {
		return nil, err
	}
	defer release()

	// Перечитываем под блокировкой: статус мог измениться.
	current, err = s.getBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	for attempt := 1; ; attempt++ {
		if isCancelNoop(current, status) {
			return current, nil
		}
		if err := checkTransition(current.Status, status); err != nil {
			return nil, err
		}

		now := s.evaluator.Now().UTC()
		err = withRetry(ctx, s.retry, func(ctx context.Context) error {
			return s.repo.UpdateBookingStatusWithVersion(ctx, id, current.Version, status, now)
		})
		if errors.Is(err, domain.ErrConcurrentModification) {
			latest, rerr := s.getBooking(ctx, id)
			if rerr != nil {
				return nil, rerr
			}
			if latest.Status == status {
				// A write retried after a transient error can find its own
				// first attempt already applied.
				if latest.Version == current.Version+1 {
					return s.statusChanged(ctx, current.Status, latest), nil
				}
				return latest, nil
			}
			if attempt < maxWriteAttempts {
				current = latest
				continue
			}
			return nil, err
		}
		if err != nil {
			return nil, err
		}

		updated := *current
		updated.Status = status
		updated.UpdatedAt = now
		updated.Version++
		return s.statusChanged(ctx, current.Status, &updated), nil
	}
}

// statusChanged runs the side effects of a committed transition.
func (s *BookingService) statusChanged(ctx context.Context, previous models.BookingStatus, b *models.Booking) *models.Booking {
	s.logger.Info().
		Str("booking_id", b.ID).
		Str("from", string(previous)).
		Str("to", string(b.Status)).
		Msg("booking status changed")

	metrics.IncStatusTransition(string(previous), string(b.Status))
	s.afterWrite(ctx, events.StatusEvent(b.Status), b, previous, worker.TaskUpdateStatus)
	return b
}

func isCancelNoop(b *models.Booking, to models.BookingStatus) bool {
	return to == models.StatusCancelled && b.Status == models.StatusCancelled
}

// AssignTable gives a booking a table in a table-based restaurant. The table
// must be active and not held by another active booking at the same slot.
// Party size is not checked against table capacity.
func (s *BookingService) AssignTable(ctx context.Context, bookingID, tableID string) (*models.Booking, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	b, err := s.assignTable(ctx, bookingID, tableID)
	if err != nil {
		s.reject("assign_table", err)
		return nil, err
	}
	return b, nil
}

func (s *BookingService) assignTable(ctx context.Context, bookingID, tableID string) (*models.Booking, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, domain.NewValidationError("id", "is required")
	}
	if strings.TrimSpace(tableID) == "" {
		return nil, domain.NewValidationError("table_id", "is required")
	}

	current, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	a, err := s.availability.Get(ctx, current.RestaurantID)
	if err != nil {
		return nil, err
	}
	if a == nil || a.ManagementMode != models.ModeTableBased {
		return nil, domain.NewValidationError("table_id", "restaurant does not manage tables")
	}

	release, err := s.lockSlot(ctx, current.SlotKey())
	if err != nil {
		return nil, err
	}
	defer release()

	for attempt := 1; ; attempt++ {
		current, err = s.getBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if current.Status.IsTerminal() {
			return nil, &domain.TransitionError{From: string(current.Status), To: "table assignment"}
		}

		table, ok := a.Table(tableID)
		if !ok {
			return nil, &domain.TableUnavailableError{TableID: tableID, Reason: "unknown table"}
		}
		if !table.IsActive {
			return nil, &domain.TableUnavailableError{TableID: table.ID, TableName: table.Name, Reason: "table is inactive"}
		}
		if current.TableID == table.ID {
			return current, nil
		}

		active, err := s.listActive(ctx, current.RestaurantID, current.Date)
		if err != nil {
			return nil, err
		}
		if holder := capacity.HolderOf(table.ID, current.Time, active, current.ID); holder != nil {
			return nil, &domain.TableUnavailableError{
				TableID:   table.ID,
				TableName: table.Name,
				Reason:    fmt.Sprintf("already assigned to %s (%s)", holder.UserName, holder.ConfirmationCode),
			}
		}

		now := s.evaluator.Now().UTC()
		err = withRetry(ctx, s.retry, func(ctx context.Context) error {
			return s.repo.AssignTableWithVersion(ctx, current.ID, current.Version, table.ID, table.Name, now)
		})
		if errors.Is(err, domain.ErrConcurrentModification) && attempt < maxWriteAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}

		updated := *current
		updated.TableID = table.ID
		updated.TableNumber = table.Name
		updated.UpdatedAt = now
		updated.Version++

		s.logger.Info().Str("booking_id", updated.ID).Str("table_id", table.ID).Msg("table assigned")
		s.afterWrite(ctx, events.EventBookingTableAssigned, &updated, updated.Status, worker.TaskUpsert)
		return &updated, nil
	}
}

// AssignableTables lists the tables staff may pick for a slot, plus the same
// tables ordered by fit for the party.
func (s *BookingService) AssignableTables(ctx context.Context, restaurantID, date, slot string, partySize int) (models.TableSuggestion, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := schedule.ParseDate(date); err != nil {
		return models.TableSuggestion{}, err
	}
	if _, err := schedule.ParseSlot(slot); err != nil {
		return models.TableSuggestion{}, domain.NewValidationError("time", "must be HH:MM")
	}
	a, err := s.availability.Get(ctx, restaurantID)
	if err != nil {
		return models.TableSuggestion{}, err
	}
	if a == nil || a.ManagementMode != models.ModeTableBased {
		return models.TableSuggestion{}, domain.NewValidationError("restaurant_id", "restaurant does not manage tables")
	}

	active, err := s.listActive(ctx, restaurantID, date)
	if err != nil {
		return models.TableSuggestion{}, err
	}
	assignable := capacity.AssignableTables(a, slot, active, "")
	return models.TableSuggestion{
		Assignable: assignable,
		Suggested:  capacity.SuggestTables(assignable, partySize),
	}, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.getBooking(ctx, id)
}

func (s *BookingService) getBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b *models.Booking
	err := withRetry(ctx, s.retry, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetBooking(ctx, id)
		return err
	})
	return b, err
}

func (s *BookingService) listActive(ctx context.Context, restaurantID, date string) ([]*models.Booking, error) {
	var active []*models.Booking
	err := withRetry(ctx, s.retry, func(ctx context.Context) error {
		var err error
		active, err = s.repo.ListActiveBookings(ctx, restaurantID, date)
		return err
	})
	return active, err
}

// findByIdempotencyKey returns nil, nil when the key is unused.
func (s *BookingService) findByIdempotencyKey(ctx context.Context, key, userID string) (*models.Booking, error) {
	var b *models.Booking
	err := withRetry(ctx, s.retry, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetBookingByIdempotencyKey(ctx, key)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, domain.NewValidationError("idempotency_key", "already used")
	}
	return b, nil
}

func (s *BookingService) checkRateLimit(ctx context.Context, userID string) error {
	if s.limiter == nil || s.cfg.RateLimit <= 0 {
		return nil
	}
	allowed, err := s.limiter.CheckRateLimit(ctx, "booking:"+userID, s.cfg.RateLimit, s.cfg.RateWindow)
	if err != nil {
		// Лимитер недоступен: не блокируем бронирование.
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("rate limit check failed")
		return nil
	}
	if !allowed {
		return domain.ErrRateLimited
	}
	return nil
}

// afterWrite runs the side effects of a committed write. Failures are logged
// and never change the result of the operation.
func (s *BookingService) afterWrite(ctx context.Context, event string, b *models.Booking, previous models.BookingStatus, syncTask string) {
	ctx = context.WithoutCancel(ctx)

	if s.eventBus != nil {
		if err := s.eventBus.PublishJSON(event, events.NewBookingPayload(b, previous)); err != nil {
			s.logger.Error().Err(err).Str("event_type", event).Str("booking_id", b.ID).Msg("publish event error")
		}
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, b.UserID, event, b)
	}
	if s.sheetsWorker != nil {
		if err := s.sheetsWorker.EnqueueTask(ctx, syncTask, b); err != nil {
			s.logger.Error().Err(err).Str("booking_id", b.ID).Str("task", syncTask).Msg("sheets enqueue error")
		}
	}
}

func (s *BookingService) reject(operation string, err error) {
	metrics.IncBookingRejected(operation, ErrorReason(err))
	s.logger.Debug().Err(err).Str("operation", operation).Msg("booking operation rejected")
}

// ErrorReason maps an error to a short label for metrics and API payloads.
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrTableUnavailable):
		return "table_unavailable"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return "unavailable"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "conflict"
	default:
		return "internal"
	}
}

// slotRejectionReason explains why time is not offered on date.
func slotRejectionReason(a *models.RestaurantAvailability, date time.Time, slot string) string {
	day := schedule.ResolveDay(a, date)
	switch {
	case !day.IsOpen:
		return "restaurant is closed"
	case !contains(day.Slots, slot):
		return "not a bookable time"
	case a.ManagementMode == models.ModeTableBased:
		return "all tables are booked"
	default:
		return "fully booked"
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

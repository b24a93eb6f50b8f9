package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tablebook/internal/capacity"
	"tablebook/internal/catalog"
	"tablebook/internal/config"
	"tablebook/internal/database"
	"tablebook/internal/lock"
	"tablebook/internal/models"
	"tablebook/internal/repository"
	"tablebook/internal/service"
	"tablebook/internal/worker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// Monday, 2025-03-03.
var fixedNow = time.Date(2025, 3, 3, 10, 15, 0, 0, time.UTC)

type apiFixture struct {
	cfg       *config.APIConfig
	db        *database.DB
	bookings  *service.BookingService
	directory *service.DirectoryService
	server    *HTTPServer
	handler   http.Handler
}

func testAPIConfig() *config.APIConfig {
	return &config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true},
		Auth: config.APIAuthConfig{
			HeaderAPIKey: "x-api-key",
			HeaderExtra:  "x-api-extra",
			JWTSecret:    testSecret,
			APIKeys: []config.APIClientKey{
				{Key: "staff-key", Extra: "staff-extra", Name: "host stand", Permissions: []string{permStaffBookings}},
				{Key: "admin-key", Extra: "admin-extra", Name: "back office", Permissions: []string{permReadBookings, permManageAvailability}},
			},
		},
	}
}

func newAPIFixture(t *testing.T, cfg *config.APIConfig) *apiFixture {
	t.Helper()
	if cfg == nil {
		cfg = testAPIConfig()
	}

	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cat := catalog.NewStaticCatalog([]config.RestaurantConfig{
		{ID: "r1", Name: "Bistro"},
		{ID: "r2", Name: "Grill"},
		{ID: "r3", Name: "Unconfigured"},
	})
	evaluator := capacity.NewEvaluator(func() time.Time { return fixedNow }, time.UTC)
	retry := worker.RetryPolicy{InitialDelay: time.Millisecond}

	availability := service.NewAvailabilityService(db, repository.NewMemoryCache(time.Minute), cat, nil, retry, &logger)
	bookings := service.NewBookingService(service.BookingDeps{
		Bookings:     db,
		Availability: availability,
		Catalog:      cat,
		Locker:       lock.NewLocalLocker(),
		Evaluator:    evaluator,
		Retry:        retry,
		Logger:       &logger,
	})
	directory := service.NewDirectoryService(db, availability, evaluator, retry, &logger)

	ctx := context.Background()
	_, err = availability.Save(ctx, &models.RestaurantAvailability{
		RestaurantID:       "r1",
		ManagementMode:     models.ModeGuestCount,
		AdvanceBookingDays: 30,
		Schedule: map[string]models.DaySchedule{
			"monday": {IsOpen: true, Slots: []string{"18:00", "18:30"}, CapacityPerSlot: 1},
		},
	})
	require.NoError(t, err)
	_, err = availability.Save(ctx, &models.RestaurantAvailability{
		RestaurantID:       "r2",
		ManagementMode:     models.ModeTableBased,
		AdvanceBookingDays: 30,
		Schedule: map[string]models.DaySchedule{
			"monday": {IsOpen: true, Slots: []string{"19:00"}},
		},
		Tables: []models.Table{
			{ID: "t1", Name: "T1", Capacity: 2, IsActive: true},
			{ID: "t3", Name: "T3", Capacity: 4, IsActive: true},
		},
	})
	require.NoError(t, err)

	srv := NewHTTPServer(cfg, Services{
		Bookings:     bookings,
		Directory:    directory,
		Availability: availability,
		Catalog:      cat,
		ExportDir:    t.TempDir(),
	}, &logger)
	srv.now = func() time.Time { return fixedNow }

	return &apiFixture{
		cfg:       cfg,
		db:        db,
		bookings:  bookings,
		directory: directory,
		server:    srv,
		handler:   srv.Handler(),
	}
}

func guestToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := NewUserToken(testSecret, "", Identity{
		UserID: userID,
		Name:   "Guest " + userID,
		Email:  userID + "@example.com",
		Phone:  "+100000",
	}, time.Hour)
	require.NoError(t, err)
	return token
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withKeys(key, extra string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("x-api-key", key)
		r.Header.Set("x-api-extra", extra)
	}
}

func withHeader(name, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(name, value) }
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) createBooking(t *testing.T, userID, restaurantID, date, slot string, party int) models.Booking {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/restaurants/"+restaurantID+"/bookings",
		map[string]interface{}{"date": date, "time": slot, "party_size": party},
		withBearer(guestToken(t, userID)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBooking(t, rec)
}

func decodeBooking(t *testing.T, rec *httptest.ResponseRecorder) models.Booking {
	t.Helper()
	var b models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return b
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"tablebook/internal/config"
	"tablebook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/healthz", nil, withHeader(requestIDHeader, "req-42"))
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
}

func TestListRestaurants(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/restaurants", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Restaurants []models.Restaurant `json:"restaurants"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Restaurants, 3)
	assert.Equal(t, "r1", body.Restaurants[0].ID)
	assert.Equal(t, "Bistro", body.Restaurants[0].Name)
}

func TestSlots(t *testing.T) {
	f := newAPIFixture(t, nil)

	type slotsBody struct {
		Date  string   `json:"date"`
		Slots []string `json:"slots"`
	}

	rec := f.do(t, http.MethodGet, "/api/v1/restaurants/r1/slots?date=2025-03-10&party_size=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body slotsBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"18:00", "18:30"}, body.Slots)

	f.createBooking(t, "u1", "r1", "2025-03-10", "18:00", 2)

	rec = f.do(t, http.MethodGet, "/api/v1/restaurants/r1/slots?date=2025-03-10&party_size=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"18:30"}, body.Slots)

	t.Run("closed day is empty", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/restaurants/r1/slots?date=2025-03-11&party_size=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body slotsBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Empty(t, body.Slots)
	})

	t.Run("bad party size", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/restaurants/r1/slots?date=2025-03-10&party_size=two", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "party_size", decodeError(t, rec).Field)
	})
}

func TestCreateBooking(t *testing.T) {
	f := newAPIFixture(t, nil)

	b := f.createBooking(t, "u1", "r1", "2025-03-10", "18:00", 2)
	assert.Equal(t, "u1", b.UserID)
	assert.Equal(t, "Guest u1", b.UserName)
	assert.Equal(t, "u1@example.com", b.UserEmail)
	assert.Equal(t, "+100000", b.UserPhone)
	assert.Equal(t, models.StatusPending, b.Status)
	assert.Equal(t, "Bistro", b.RestaurantName)
	assert.Len(t, b.ConfirmationCode, models.ConfirmationCodeLength)

	t.Run("slot taken", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/restaurants/r1/bookings",
			map[string]interface{}{"date": "2025-03-10", "time": "18:00", "party_size": 2},
			withBearer(guestToken(t, "u2")))
		assert.Equal(t, http.StatusConflict, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, slotTakenMessage, body.Error)
		assert.Equal(t, "slot_unavailable", body.Reason)
	})

	t.Run("validation", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/restaurants/r1/bookings",
			map[string]interface{}{"date": "2025-03-10", "time": "18:30", "party_size": 0},
			withBearer(guestToken(t, "u2")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "party_size", body.Field)
		assert.Equal(t, "validation", body.Reason)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/restaurants/r1/bookings",
			`{"date":"2025-03-10","time":"18:30","party_size":2,"user_id":"someone-else"}`,
			withBearer(guestToken(t, "u2")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "body", decodeError(t, rec).Field)
	})

	t.Run("empty body", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/restaurants/r1/bookings", nil, withBearer(guestToken(t, "u2")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown restaurant", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/restaurants/nope/bookings",
			map[string]interface{}{"date": "2025-03-10", "time": "18:30", "party_size": 2},
			withBearer(guestToken(t, "u2")))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCreateBooking_IdempotencyKey(t *testing.T) {
	f := newAPIFixture(t, nil)
	token := guestToken(t, "u1")
	body := map[string]interface{}{"date": "2025-03-10", "time": "18:00", "party_size": 2}

	first := f.do(t, http.MethodPost, "/api/v1/restaurants/r1/bookings", body, withBearer(token), withHeader("Idempotency-Key", "k-1"))
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := f.do(t, http.MethodPost, "/api/v1/restaurants/r1/bookings", body, withBearer(token), withHeader("Idempotency-Key", "k-1"))
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())

	assert.Equal(t, decodeBooking(t, first).ID, decodeBooking(t, second).ID)
}

func TestGuestAuthentication(t *testing.T) {
	f := newAPIFixture(t, nil)
	body := map[string]interface{}{"date": "2025-03-10", "time": "18:00", "party_size": 2}

	t.Run("missing token", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/restaurants/r1/bookings", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, errMissingToken.Error(), decodeError(t, rec).Error)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewUserToken("other-secret", "", Identity{UserID: "u1"}, time.Hour)
		require.NoError(t, err)
		rec := f.do(t, http.MethodPost, "/api/v1/restaurants/r1/bookings", body, withBearer(token))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := NewUserToken(testSecret, "", Identity{UserID: "u1"}, -time.Minute)
		require.NoError(t, err)
		rec := f.do(t, http.MethodPost, "/api/v1/restaurants/r1/bookings", body, withBearer(token))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("tokens not configured", func(t *testing.T) {
		cfg := testAPIConfig()
		cfg.Auth.JWTSecret = ""
		g := newAPIFixture(t, cfg)
		rec := g.do(t, http.MethodPost, "/api/v1/restaurants/r1/bookings", body, withBearer(guestToken(t, "u1")))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, errIdentityDisabled.Error(), decodeError(t, rec).Error)
	})
}

func TestGuestSeesOnlyOwnBookings(t *testing.T) {
	f := newAPIFixture(t, nil)
	mine := f.createBooking(t, "u1", "r1", "2025-03-10", "18:00", 2)
	f.createBooking(t, "u2", "r1", "2025-03-10", "18:30", 2)

	rec := f.do(t, http.MethodGet, "/api/v1/bookings/"+mine.ID, nil, withBearer(guestToken(t, "u1")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mine.ID, decodeBooking(t, rec).ID)

	rec = f.do(t, http.MethodGet, "/api/v1/bookings/"+mine.ID, nil, withBearer(guestToken(t, "u2")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/bookings/"+mine.ID+"/cancel", nil, withBearer(guestToken(t, "u2")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/me/bookings", nil, withBearer(guestToken(t, "u1")))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Bookings []models.Booking `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Bookings, 1)
	assert.Equal(t, mine.ID, list.Bookings[0].ID)
}

func TestCancelBooking(t *testing.T) {
	f := newAPIFixture(t, nil)
	b := f.createBooking(t, "u1", "r1", "2025-03-10", "18:00", 2)
	token := withBearer(guestToken(t, "u1"))

	rec := f.do(t, http.MethodPost, "/api/v1/bookings/"+b.ID+"/cancel", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusCancelled, decodeBooking(t, rec).Status)

	// A second cancel is a no-op.
	rec = f.do(t, http.MethodPost, "/api/v1/bookings/"+b.ID+"/cancel", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusCancelled, decodeBooking(t, rec).Status)

	// The slot is free again.
	f.createBooking(t, "u2", "r1", "2025-03-10", "18:00", 2)
}

func TestStaffRoutes_KeyAuth(t *testing.T) {
	cfg := testAPIConfig()
	cfg.Auth.Enabled = true
	f := newAPIFixture(t, cfg)
	b := f.createBooking(t, "u1", "r1", "2025-03-10", "18:00", 2)
	path := "/api/v1/bookings/" + b.ID + "/status"

	tests := []struct {
		name string
		opts []requestOption
		want int
	}{
		{"missing keys", nil, http.StatusUnauthorized},
		{"unknown key", []requestOption{withKeys("nope", "staff-extra")}, http.StatusUnauthorized},
		{"wrong extra", []requestOption{withKeys("staff-key", "nope")}, http.StatusUnauthorized},
		{"no permission", []requestOption{withKeys("admin-key", "admin-extra")}, http.StatusForbidden},
		{"staff", []requestOption{withKeys("staff-key", "staff-extra")}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPatch, path, map[string]string{"status": "confirmed"}, tt.opts...)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newAPIFixture(t, nil)
	b := f.createBooking(t, "u1", "r1", "2025-03-10", "18:00", 2)
	path := "/api/v1/bookings/" + b.ID + "/status"

	for _, st := range []string{"confirmed", "seated", "completed"} {
		rec := f.do(t, http.MethodPatch, path, map[string]string{"status": st})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, models.BookingStatus(st), decodeBooking(t, rec).Status)
	}

	rec := f.do(t, http.MethodPatch, path, map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, rec).Reason)

	rec = f.do(t, http.MethodPatch, "/api/v1/bookings/missing/status", map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaffViews(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.createBooking(t, "u1", "r1", "2025-03-10", "18:00", 2)
	f.createBooking(t, "u2", "r1", "2025-03-10", "18:30", 4)

	rec := f.do(t, http.MethodGet, "/api/v1/restaurants/r1/bookings?date=2025-03-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Bookings []models.Booking `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Bookings, 2)

	rec = f.do(t, http.MethodGet, "/api/v1/restaurants/r1/timeslots?date=2025-03-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var groups struct {
		Timeslots []models.TimeSlotGroup `json:"timeslots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups.Timeslots, 2)
	assert.Equal(t, "18:00", groups.Timeslots[0].Time)
	assert.Equal(t, 4, groups.Timeslots[1].TotalGuests)

	rec = f.do(t, http.MethodGet, "/api/v1/restaurants/r1/capacity?date=2025-03-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary models.CapacitySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.True(t, summary.IsOpen)
	assert.Equal(t, 6, summary.Guests)

	rec = f.do(t, http.MethodGet, "/api/v1/restaurants/r1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.BookingStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalCount)
	assert.Equal(t, 2, stats.UpcomingCount)

	rec = f.do(t, http.MethodGet, "/api/v1/restaurants/r1/bookings?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignTable(t *testing.T) {
	f := newAPIFixture(t, nil)
	b := f.createBooking(t, "u1", "r2", "2025-03-10", "19:00", 3)

	rec := f.do(t, http.MethodGet, "/api/v1/restaurants/r2/tables?date=2025-03-10&time=19:00&party_size=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var suggestion models.TableSuggestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suggestion))
	require.NotEmpty(t, suggestion.Suggested)
	assert.Equal(t, "t3", suggestion.Suggested[0].ID)

	rec = f.do(t, http.MethodPut, "/api/v1/bookings/"+b.ID+"/table", map[string]string{"table_id": "t3"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assigned := decodeBooking(t, rec)
	assert.Equal(t, "t3", assigned.TableID)
	assert.Equal(t, "T3", assigned.TableNumber)

	other := f.createBooking(t, "u2", "r2", "2025-03-10", "19:00", 2)
	rec = f.do(t, http.MethodPut, "/api/v1/bookings/"+other.ID+"/table", map[string]string{"table_id": "t3"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "table_unavailable", decodeError(t, rec).Reason)

	rec = f.do(t, http.MethodGet, "/api/v1/restaurants/r1/tables?date=2025-03-10&time=18:00&party_size=2", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWalkIn(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/restaurants/r2/walkins", map[string]interface{}{
		"guest_name": "Door guest",
		"party_size": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decodeBooking(t, rec)
	assert.Equal(t, models.WalkInUserID, b.UserID)
	assert.Equal(t, models.StatusConfirmed, b.Status)
	assert.Equal(t, "r2", b.RestaurantID)
	assert.Equal(t, "2025-03-03", b.Date)
	assert.Equal(t, "10:15", b.Time)
}

func TestAvailabilityRoutes(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/restaurants/r1/availability", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var a models.RestaurantAvailability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, models.ModeGuestCount, a.ManagementMode)

	rec = f.do(t, http.MethodGet, "/api/v1/restaurants/r3/availability", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/restaurants/nope/availability", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	t.Run("save takes effect", func(t *testing.T) {
		a.Schedule["tuesday"] = models.DaySchedule{IsOpen: true, Slots: []string{"12:00"}, CapacityPerSlot: 2}
		rec := f.do(t, http.MethodPut, "/api/v1/restaurants/r1/availability", a)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = f.do(t, http.MethodGet, "/api/v1/restaurants/r1/slots?date=2025-03-11&party_size=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"12:00"`)
	})

	t.Run("mismatched restaurant", func(t *testing.T) {
		a.RestaurantID = "r2"
		rec := f.do(t, http.MethodPut, "/api/v1/restaurants/r1/availability", a)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "restaurant_id", decodeError(t, rec).Field)
	})

	t.Run("defaults", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/restaurants/r3/availability/defaults", nil)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = f.do(t, http.MethodPost, "/api/v1/restaurants/r3/availability/defaults", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAdminRoutes(t *testing.T) {
	cfg := testAPIConfig()
	cfg.Auth.Enabled = true
	f := newAPIFixture(t, cfg)
	f.createBooking(t, "u1", "r1", "2025-03-10", "18:00", 2)
	admin := withKeys("admin-key", "admin-extra")

	rec := f.do(t, http.MethodGet, "/api/v1/bookings?restaurant_id=r1&status=pending,confirmed", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.BookingPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Bookings, 1)
	assert.Equal(t, models.DefaultListLimit, list.Limit)
	assert.False(t, list.Truncated)

	rec = f.do(t, http.MethodGet, "/api/v1/bookings", nil, withKeys("staff-key", "staff-extra"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	t.Run("limit reports truncation", func(t *testing.T) {
		f.createBooking(t, "u2", "r1", "2025-03-10", "18:30", 2)
		rec := f.do(t, http.MethodGet, "/api/v1/bookings?restaurant_id=r1&limit=1", nil, admin)
		require.Equal(t, http.StatusOK, rec.Code)
		var page models.BookingPage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Len(t, page.Bookings, 1)
		assert.Equal(t, 1, page.Limit)
		assert.True(t, page.Truncated)
	})

	t.Run("download export", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/reports/bookings.xlsx?restaurant_id=r1", nil, admin)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "bookings_r1_20250303_101500.xlsx")
		assert.NotZero(t, rec.Body.Len())
	})

	t.Run("save export", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/reports/bookings?restaurant_id=r1&date=2025-03-10", nil, admin)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, strings.HasSuffix(body["path"], "bookings_r1_2025-03-10_20250303_101500.xlsx"))
		_, err := os.Stat(body["path"])
		assert.NoError(t, err)
	})
}

func TestRateLimit(t *testing.T) {
	cfg := testAPIConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 1, Burst: 1}
	f := newAPIFixture(t, cfg)

	rec := f.do(t, http.MethodGet, "/api/v1/restaurants", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/v1/restaurants", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Health checks are not limited.
	rec = f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	cfg := testAPIConfig()
	cfg.CORS.AllowedOrigins = []string{"https://tables.example.com"}
	f := newAPIFixture(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/restaurants", http.NoBody)
	req.Header.Set("Origin", "https://tables.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://tables.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHTTPServer_StartStop(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.server.server.Addr = "127.0.0.1:0"

	errCh := make(chan error, 1)
	go func() { errCh <- f.server.Start() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.server.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, splitCSV(""))
	assert.Equal(t, []string{"a"}, splitCSV("a"))
	assert.Equal(t, []string{"a", "b"}, splitCSV("a, b,,"))
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"tablebook/internal/domain"
	"tablebook/internal/models"
	"tablebook/internal/report"
	"tablebook/internal/service"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleListRestaurants(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"restaurants": s.svc.Catalog.List()})
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	partySize, err := queryInt(r, "party_size", 0)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	date := r.URL.Query().Get("date")
	slots, err := s.svc.Bookings.GetAvailableSlots(r.Context(), chi.URLParam(r, "id"), date, partySize)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "slots": slots})
}

type createBookingBody struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	PartySize       int    `json:"party_size"`
	UserPhone       string `json:"user_phone"`
	SpecialRequests string `json:"special_requests"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var body createBookingBody
	if err := decodeBody(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	phone := id.Phone
	if body.UserPhone != "" {
		phone = body.UserPhone
	}

	b, err := s.svc.Bookings.CreateBooking(r.Context(), service.BookingRequest{
		RestaurantID:    chi.URLParam(r, "id"),
		UserID:          id.UserID,
		UserName:        id.Name,
		UserEmail:       id.Email,
		UserPhone:       phone,
		Date:            body.Date,
		Time:            body.Time,
		PartySize:       body.PartySize,
		SpecialRequests: body.SpecialRequests,
		IdempotencyKey:  strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// ownBooking loads a booking of the current guest. Other guests' bookings
// are reported as missing.
func (s *HTTPServer) ownBooking(r *http.Request) (*models.Booking, error) {
	id, _ := IdentityFromContext(r.Context())
	b, err := s.svc.Bookings.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if b.UserID != id.UserID {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := s.ownBooking(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	b, err := s.ownBooking(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	cancelled, err := s.svc.Bookings.CancelBooking(r.Context(), b.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelled)
}

func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	filter, err := bookingFilter(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	filter.UserID = id.UserID
	s.listBookings(w, r, filter)
}

func (s *HTTPServer) handleRestaurantBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := bookingFilter(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	filter.RestaurantID = chi.URLParam(r, "id")
	s.listBookings(w, r, filter)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := bookingFilter(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	filter.RestaurantID = r.URL.Query().Get("restaurant_id")
	filter.UserID = r.URL.Query().Get("user_id")
	s.listBookings(w, r, filter)
}

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request, filter models.BookingFilter) {
	page, err := s.svc.Directory.ListBookingsPage(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *HTTPServer) handleTimeSlots(w http.ResponseWriter, r *http.Request) {
	groups, err := s.svc.Directory.GroupByTimeSlot(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeslots": groups})
}

func (s *HTTPServer) handleCapacity(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Directory.CapacitySummary(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Directory.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleTables(w http.ResponseWriter, r *http.Request) {
	partySize, err := queryInt(r, "party_size", 0)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	q := r.URL.Query()
	suggestion, err := s.svc.Bookings.AssignableTables(r.Context(), chi.URLParam(r, "id"), q.Get("date"), q.Get("time"), partySize)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

func (s *HTTPServer) handleWalkIn(w http.ResponseWriter, r *http.Request) {
	var req service.WalkInRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	req.RestaurantID = chi.URLParam(r, "id")
	b, err := s.svc.Bookings.CreateWalkIn(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *HTTPServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status models.BookingStatus `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	b, err := s.svc.Bookings.UpdateStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) handleAssignTable(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TableID string `json:"table_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	b, err := s.svc.Bookings.AssignTable(r.Context(), chi.URLParam(r, "id"), body.TableID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) handleGetAvailability(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "id")
	if _, err := s.svc.Catalog.GetRestaurant(r.Context(), restaurantID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	a, err := s.svc.Availability.Get(r.Context(), restaurantID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if a == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "availability is not configured", Reason: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *HTTPServer) handleSaveAvailability(w http.ResponseWriter, r *http.Request) {
	var a models.RestaurantAvailability
	if err := decodeBody(r, &a); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	restaurantID := chi.URLParam(r, "id")
	if a.RestaurantID != "" && a.RestaurantID != restaurantID {
		s.writeServiceError(w, r, domain.NewValidationError("restaurant_id", "does not match the path"))
		return
	}
	a.RestaurantID = restaurantID

	saved, err := s.svc.Availability.Save(r.Context(), &a)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *HTTPServer) handleInitializeDefaults(w http.ResponseWriter, r *http.Request) {
	a, created, err := s.svc.Availability.InitializeDefaults(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	writeJSON(w, code, a)
}

func (s *HTTPServer) exportFilter(r *http.Request) models.BookingFilter {
	q := r.URL.Query()
	return models.BookingFilter{RestaurantID: q.Get("restaurant_id"), Date: q.Get("date")}
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	filter := s.exportFilter(r)
	export, err := s.svc.Directory.ExportBookings(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer export.Close()

	name := report.FileName(filter.RestaurantID, filter.Date, s.now())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := export.Write(w); err != nil {
		s.log.Error().Err(err).Str("request_id", requestIDFromContext(r.Context())).Msg("write export")
	}
}

func (s *HTTPServer) handleSaveExport(w http.ResponseWriter, r *http.Request) {
	filter := s.exportFilter(r)
	export, err := s.svc.Directory.ExportBookings(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer export.Close()

	path, err := export.SaveTo(s.svc.ExportDir, report.FileName(filter.RestaurantID, filter.Date, s.now()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}

// bookingFilter reads the shared date, range, status and limit parameters.
func bookingFilter(r *http.Request) (models.BookingFilter, error) {
	q := r.URL.Query()
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return models.BookingFilter{}, err
	}
	filter := models.BookingFilter{
		Date:     q.Get("date"),
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
		Limit:    limit,
	}
	for _, st := range splitCSV(q.Get("status")) {
		filter.StatusIn = append(filter.StatusIn, models.BookingStatus(st))
	}
	return filter, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return v, nil
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("body", "is required")
		}
		return domain.NewValidationError("body", "invalid JSON: %v", err)
	}
	return nil
}

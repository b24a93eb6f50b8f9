package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tablebook/internal/catalog"
	"tablebook/internal/config"
	"tablebook/internal/metrics"
	"tablebook/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Services are the use cases the HTTP API exposes.
type Services struct {
	Bookings     *service.BookingService
	Directory    *service.DirectoryService
	Availability *service.AvailabilityService
	Catalog      *catalog.StaticCatalog
	// ExportDir receives workbooks saved through the reports endpoint.
	ExportDir string
}

// HTTPServer exposes the JSON API alongside the gRPC service.
type HTTPServer struct {
	cfg    *config.APIConfig
	svc    Services
	server *http.Server
	auth   *HTTPAuth
	log    zerolog.Logger
	now    func() time.Time
}

func NewHTTPServer(cfg *config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:  cfg,
		svc:  svc,
		auth: NewHTTPAuth(cfg),
		log:  zerolog.Nop(),
		now:  time.Now,
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID", s.auth.keys.apiKeyHeader, s.auth.keys.extraHeader},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.RateLimit)

		r.Get("/restaurants", s.handleListRestaurants)
		r.Get("/restaurants/{id}/slots", s.handleSlots)

		// Guests, identified by bearer token.
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireUser)
			r.Post("/restaurants/{id}/bookings", s.handleCreateBooking)
			r.Get("/bookings/{id}", s.handleGetBooking)
			r.Post("/bookings/{id}/cancel", s.handleCancelBooking)
			r.Get("/me/bookings", s.handleMyBookings)
		})

		// Staff.
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequirePermission(permStaffBookings))
			r.Get("/restaurants/{id}/bookings", s.handleRestaurantBookings)
			r.Get("/restaurants/{id}/timeslots", s.handleTimeSlots)
			r.Get("/restaurants/{id}/capacity", s.handleCapacity)
			r.Get("/restaurants/{id}/stats", s.handleStats)
			r.Get("/restaurants/{id}/tables", s.handleTables)
			r.Post("/restaurants/{id}/walkins", s.handleWalkIn)
			r.Patch("/bookings/{id}/status", s.handleUpdateStatus)
			r.Put("/bookings/{id}/table", s.handleAssignTable)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequirePermission(permManageAvailability))
			r.Get("/restaurants/{id}/availability", s.handleGetAvailability)
			r.Put("/restaurants/{id}/availability", s.handleSaveAvailability)
			r.Post("/restaurants/{id}/availability/defaults", s.handleInitializeDefaults)
		})

		// Admin.
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequirePermission(permReadBookings))
			r.Get("/bookings", s.handleListBookings)
			r.Get("/reports/bookings.xlsx", s.handleExport)
			r.Post("/reports/bookings", s.handleSaveExport)
		})
	})

	return r
}

func (s *HTTPServer) allowedOrigins() []string {
	if len(s.cfg.CORS.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.CORS.AllowedOrigins
}

// Handler returns the root handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// HTTPAuth provides bearer-token identity for guests, API-key permissions for
// staff and admin clients, and per-client rate limiting.
type HTTPAuth struct {
	cfg     *config.APIConfig
	keys    *keyAuth
	limiter *rateLimiter
}

func NewHTTPAuth(cfg *config.APIConfig) *HTTPAuth {
	return &HTTPAuth{
		cfg:     cfg,
		keys:    newKeyAuth(cfg),
		limiter: newRateLimiter(cfg.RateLimit),
	}
}

// RequireUser resolves the guest identity from the bearer token.
func (a *HTTPAuth) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		id, err := ParseUserToken(token, a.cfg.Auth.JWTSecret, a.cfg.Auth.JWTIssuer)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// RequirePermission checks the API key pair when key auth is enabled.
func (a *HTTPAuth) RequirePermission(required string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.cfg.Auth.Enabled {
				next.ServeHTTP(w, r)
				return
			}
			client, err := a.keys.authenticate(
				strings.TrimSpace(r.Header.Get(a.keys.apiKeyHeader)),
				strings.TrimSpace(r.Header.Get(a.keys.extraHeader)),
				required,
			)
			if err != nil {
				code := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					code = http.StatusForbidden
				}
				writeError(w, code, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(withClientName(r.Context(), client.Name)))
		})
	}
}

func (a *HTTPAuth) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.limiter.Allow(a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errRateLimitExceeded.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.keys.apiKeyHeader)); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

type requestIDKey struct{}

const requestIDHeader = "X-Request-ID"

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *HTTPServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		metrics.IncHTTP(endpoint, strconv.Itoa(recorder.status))

		ev := s.log.Info()
		if recorder.status >= http.StatusInternalServerError {
			ev = s.log.Error()
		}
		ev.
			Str("request_id", requestIDFromContext(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

func (s *HTTPServer) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().
					Str("request_id", requestIDFromContext(r.Context())).
					Interface("panic", rec).
					Msg("panic recovered")
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorBody{Error: message})
}

// writeServiceError renders an error returned by a service call.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code, body := httpError(err)
	if code >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("request_id", requestIDFromContext(r.Context())).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, code, body)
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

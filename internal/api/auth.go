package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"tablebook/internal/config"
	"tablebook/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"

	permReadAvailability   = "read:availability"
	permManageAvailability = "manage:availability"
	permWriteBookings      = "write:bookings"
	permStaffBookings      = "staff:bookings"
	permReadBookings       = "read:bookings"
)

var (
	errMissingAPIKey     = errors.New("missing api key headers")
	errInvalidAPIKey     = errors.New("invalid api key")
	errInvalidExtra      = errors.New("invalid extra header")
	errPermissionDenied  = errors.New("permission denied")
	errRateLimitExceeded = errors.New("rate limit exceeded")
)

// keyAuth checks API key pairs against the configured clients. It is shared
// by the HTTP middleware and the gRPC interceptor.
type keyAuth struct {
	cfg          *config.APIConfig
	clients      map[string]config.APIClientKey
	apiKeyHeader string
	extraHeader  string
}

func newKeyAuth(cfg *config.APIConfig) *keyAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}

	apiKeyHeader := strings.ToLower(strings.TrimSpace(cfg.Auth.HeaderAPIKey))
	if apiKeyHeader == "" {
		apiKeyHeader = apiKeyHeaderDefault
	}
	extraHeader := strings.ToLower(strings.TrimSpace(cfg.Auth.HeaderExtra))
	if extraHeader == "" {
		extraHeader = apiExtraHeaderDefault
	}

	return &keyAuth{cfg: cfg, clients: m, apiKeyHeader: apiKeyHeader, extraHeader: extraHeader}
}

// authenticate returns the client owning apiKey when extra matches and the
// client holds the required permission.
func (a *keyAuth) authenticate(apiKey, extra, required string) (config.APIClientKey, error) {
	if apiKey == "" || extra == "" {
		return config.APIClientKey{}, errMissingAPIKey
	}
	client, ok := a.clients[apiKey]
	if !ok {
		return config.APIClientKey{}, errInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return config.APIClientKey{}, errInvalidExtra
	}
	if !hasPermission(client, required) {
		return config.APIClientKey{}, errPermissionDenied
	}
	return client, nil
}

// hasPermission treats an empty permission list as allow-all.
func hasPermission(client config.APIClientKey, required string) bool {
	if required == "" || len(client.Permissions) == 0 {
		return true
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return true
		}
	}
	return false
}

type AuthInterceptor struct {
	cfg     *config.APIConfig
	keys    *keyAuth
	limiter *rateLimiter
}

func NewAuthInterceptor(cfg *config.APIConfig) *AuthInterceptor {
	return &AuthInterceptor{
		cfg:     cfg,
		keys:    newKeyAuth(cfg),
		limiter: newRateLimiter(cfg.RateLimit),
	}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !a.cfg.Enabled || isHealthMethod(info.FullMethod) {
			return handler(ctx, req)
		}

		if a.cfg.Auth.Enabled {
			client, err := a.checkAuth(ctx, info.FullMethod)
			if err != nil {
				return nil, err
			}
			ctx = withClientName(ctx, client.Name)
		}
		if !a.limiter.Allow(a.clientKey(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, errRateLimitExceeded.Error())
		}

		return handler(ctx, req)
	}
}

func (a *AuthInterceptor) checkAuth(ctx context.Context, fullMethod string) (config.APIClientKey, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return config.APIClientKey{}, status.Error(codes.Unauthenticated, "missing metadata")
	}

	client, err := a.keys.authenticate(first(md.Get(a.keys.apiKeyHeader)), first(md.Get(a.keys.extraHeader)), requiredPermission(fullMethod))
	switch {
	case errors.Is(err, errPermissionDenied):
		return config.APIClientKey{}, status.Error(codes.PermissionDenied, err.Error())
	case err != nil:
		return config.APIClientKey{}, status.Error(codes.Unauthenticated, err.Error())
	}
	return client, nil
}

func requiredPermission(fullMethod string) string {
	switch fullMethod {
	case methodGetAvailableSlots:
		return permReadAvailability
	case methodCreateBooking, methodCancelBooking:
		return permWriteBookings
	case methodUpdateStatus, methodAssignTable:
		return permStaffBookings
	case methodListBookings, methodStats:
		return permReadBookings
	default:
		return ""
	}
}

func isHealthMethod(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/grpc.health.v1.Health/")
}

func (a *AuthInterceptor) clientKey(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if apiKey := first(md.Get(a.keys.apiKeyHeader)); apiKey != "" {
		return apiKey
	}

	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

func LoggingUnaryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "grpc").Logger()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromMetadata(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)
		dur := time.Since(start)

		code := codes.OK
		if err != nil {
			code = status.Code(err)
		}
		metrics.IncGRPC(info.FullMethod, code.String())

		remote := clientKeyUnknown
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		ev := base.Info()
		if code == codes.Internal || code == codes.Unavailable {
			ev = base.Error()
		}
		ev.
			Str("request_id", requestID).
			Str("method", info.FullMethod).
			Str("remote", remote).
			Str("code", code.String()).
			Dur("duration", dur).
			Msg("grpc request")

		return resp, err
	}
}

const requestIDMetadataKey = "x-request-id"

func requestIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if vals := md.Get(requestIDMetadataKey); len(vals) > 0 {
			if id := strings.TrimSpace(vals[0]); id != "" {
				return id
			}
		}
	}
	return uuid.NewString()
}

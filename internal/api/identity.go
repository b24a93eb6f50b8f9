package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the guest a bearer token was issued to.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Phone  string
}

// UserClaims are the claims of guest bearer tokens. The subject is the user id.
type UserClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	jwt.RegisteredClaims
}

var (
	errMissingToken     = errors.New("missing bearer token")
	errInvalidToken     = errors.New("invalid token")
	errIdentityDisabled = errors.New("user tokens are not configured")
)

type ctxKey int

const (
	identityKey ctxKey = iota
	clientNameKey
)

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the authenticated guest, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func withClientName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, clientNameKey, name)
}

func clientNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(clientNameKey).(string)
	return name
}

// NewUserToken signs a guest token. The identity provider normally issues
// these; the helper exists for tooling and tests.
func NewUserToken(secret, issuer string, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserClaims{
		Name:  id.Name,
		Email: id.Email,
		Phone: id.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseUserToken validates an HS256 token and returns its identity.
func ParseUserToken(token, secret, issuer string) (Identity, error) {
	if secret == "" {
		return Identity{}, errIdentityDisabled
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &UserClaims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil || !tok.Valid {
		return Identity{}, errInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, errInvalidToken
	}
	return Identity{
		UserID: claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
		Phone:  claims.Phone,
	}, nil
}

func bearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"homeservices/backend/internal/models"
)

// ErrAuthenticationFailed covers missing, malformed, expired and forged tokens.
var ErrAuthenticationFailed = errors.New("authentication failed")

type Service struct {
	secret []byte
	ttl    time.Duration
}

type Claims struct {
	SubjectID int64  `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

func NewService(secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Service{secret: []byte(secret), ttl: ttl}, nil
}

func (s *Service) GenerateToken(identity models.Identity) (string, error) {
	if !identity.Valid() {
		return "", fmt.Errorf("cannot issue token for %+v", identity)
	}
	now := time.Now()
	claims := Claims{
		SubjectID: identity.SubjectID,
		Role:      string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%s:%d", identity.Role, identity.SubjectID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyToken decodes a handshake or bearer token into an identity. It has no
// side effects; admitting the identity to a roster is the caller's job.
func (s *Service) VerifyToken(token string) (models.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Identity{}, fmt.Errorf("%w: no token provided", ErrAuthenticationFailed)
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return models.Identity{}, fmt.Errorf("%w: invalid token", ErrAuthenticationFailed)
	}
	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	identity := models.Identity{SubjectID: claims.SubjectID, Role: role}
	if !identity.Valid() {
		return models.Identity{}, fmt.Errorf("%w: invalid subject", ErrAuthenticationFailed)
	}
	return identity, nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(ctxKey{}).(models.Identity)
	return identity, ok
}

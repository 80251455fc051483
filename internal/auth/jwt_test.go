package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"homeservices/backend/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	service, err := NewService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("service init: %v", err)
	}

	identity := models.Identity{SubjectID: 42, Role: models.RoleProvider}
	token, err := service.GenerateToken(identity)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	parsed, err := service.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if parsed != identity {
		t.Fatalf("unexpected identity: %+v", parsed)
	}
}

func TestVerifyTokenFailures(t *testing.T) {
	service, _ := NewService("test-secret", time.Hour)
	other, _ := NewService("other-secret", time.Hour)
	expired, _ := NewService("test-secret", -time.Minute)

	foreign, _ := other.GenerateToken(models.Identity{SubjectID: 1, Role: models.RoleUser})
	stale, _ := expired.GenerateToken(models.Identity{SubjectID: 1, Role: models.RoleUser})
	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SubjectID: 1,
		Role:      "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))

	tests := map[string]string{
		"missing":   "",
		"blank":     "   ",
		"garbage":   "not-a-jwt",
		"signature": foreign,
		"expired":   stale,
		"role":      badRole,
	}
	for name, token := range tests {
		if _, err := service.VerifyToken(token); !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("%s: expected ErrAuthenticationFailed, got %v", name, err)
		}
	}
}

func TestGenerateTokenRejectsInvalidIdentity(t *testing.T) {
	service, _ := NewService("test-secret", time.Hour)
	if _, err := service.GenerateToken(models.Identity{Role: models.RoleUser}); err == nil {
		t.Fatal("expected error for zero subject")
	}
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestIdentityContext(t *testing.T) {
	identity := models.Identity{SubjectID: 3, Role: models.RoleUser}
	ctx := WithIdentity(context.Background(), identity)
	got, ok := IdentityFromContext(ctx)
	if !ok || got != identity {
		t.Fatalf("unexpected identity from context: %+v %v", got, ok)
	}
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatal("expected no identity on bare context")
	}
}

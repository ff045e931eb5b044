package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/omarvides/restyle-backend/pkg/config"
)

func signTestToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestParseAccessToken(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "secret", Issuer: "https://auth.example"}
	userID := uuid.New()
	signed := signTestToken(t, "secret", Claims{
		Email: "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    "https://auth.example",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := ParseAccessToken(cfg, signed)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	parsed, err := claims.UserID()
	if err != nil {
		t.Fatalf("UserID: %v", err)
	}
	if parsed != userID {
		t.Fatalf("expected %s, got %s", userID, parsed)
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "secret"}
	signed := signTestToken(t, "other", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "secret"}
	signed := signTestToken(t, "secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestClaimsUserIDRequiresUUIDSubject(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-uuid"}}
	if _, err := claims.UserID(); err == nil {
		t.Fatal("expected parse error")
	}
}

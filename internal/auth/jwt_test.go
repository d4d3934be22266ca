package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestGenerateValidateRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	userID := uuid.New()
	token, err := svc.Generate(userID, "viewer@example.com", "attendee")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != userID || claims.Email != "viewer@example.com" || claims.Role != "attendee" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestValidateRejects(t *testing.T) {
	svc := NewJWTService("secret", 1)
	other := NewJWTService("other", 1)
	token, _ := other.Generate(uuid.New(), "a@example.com", "admin")
	if _, err := svc.Validate(token); err != ErrInvalidToken {
		t.Fatalf("wrong secret: err = %v", err)
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	raw, err := expired.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.Validate(raw); err != ErrInvalidToken {
		t.Fatalf("expired: err = %v", err)
	}
	if _, err := svc.Validate("garbage"); err != ErrInvalidToken {
		t.Fatalf("garbage: err = %v", err)
	}
}

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/splitledger/splitledger/internal/models"
)

func TestJWTManager(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour)
	user := &models.User{ID: "u1", Email: "alice@example.com"}

	token, err := manager.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	t.Run("valid token round-trips claims", func(t *testing.T) {
		claims, err := manager.Validate(token)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if claims.UserID != "u1" || claims.Email != "alice@example.com" {
			t.Errorf("claims = %+v, want u1/alice@example.com", claims)
		}
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		if _, err := manager.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("token signed with another key rejected", func(t *testing.T) {
		other := NewJWTManager("a-different-secret", time.Hour)
		forged, err := other.Generate(user)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := manager.Validate(forged); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		expired := NewJWTManager("test-secret-key", -time.Minute)
		stale, err := expired.Generate(user)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := manager.Validate(stale); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})
}

package auth

import (
	"testing"
	"time"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	return NewService("test-secret", "admin", hash, time.Hour)
}

func TestLogin_ValidCredentials(t *testing.T) {
	service := newTestService(t)

	token, err := service.Login("admin", "hunter2")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("Expected a non-empty token")
	}

	claims, err := service.ValidateToken(token)
	if err != nil {
		t.Fatalf("Token should validate: %v", err)
	}
	if claims.Username != "admin" {
		t.Errorf("Expected username admin, got %s", claims.Username)
	}
}

func TestLogin_RejectsBadCredentials(t *testing.T) {
	service := newTestService(t)

	if _, err := service.Login("admin", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("Expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := service.Login("intruder", "hunter2"); err != ErrInvalidCredentials {
		t.Errorf("Expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	service := newTestService(t)

	if _, err := service.ValidateToken("not.a.token"); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateToken_RejectsForeignSecret(t *testing.T) {
	service := newTestService(t)
	other := NewService("different-secret", "admin", service.adminPassHash, time.Hour)

	token, err := other.Login("admin", "hunter2")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := service.ValidateToken(token); err == nil {
		t.Error("Token signed with a different secret should not validate")
	}
}

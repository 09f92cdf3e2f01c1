package auth

import (
	"strings"
	"testing"
)

func TestAddUserAndLogin(t *testing.T) {
	m := NewManager("test-secret", nil)

	user, err := m.AddUser("alice", "s3cret", "admin")
	if err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}
	if user.Username != "alice" || user.Role != "admin" {
		t.Errorf("unexpected user: %+v", user)
	}

	resp, err := m.Login("alice", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected non-empty token")
	}
	if resp.User.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, resp.User.ID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	m := NewManager("test-secret", nil)
	if _, err := m.AddUser("bob", "correct", "viewer"); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}

	if _, err := m.Login("bob", "wrong"); err == nil {
		t.Error("expected error for wrong password")
	}
	if _, err := m.Login("nobody", "whatever"); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestDuplicateUser(t *testing.T) {
	m := NewManager("test-secret", nil)
	if _, err := m.AddUser("carol", "pw", "viewer"); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}
	if _, err := m.AddUser("carol", "pw2", "admin"); err == nil {
		t.Error("expected error for duplicate username")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", nil)
	user, err := m.AddUser("dave", "pw", "admin")
	if err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}

	token, err := m.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("expected user ID %s, got %s", user.ID, claims.UserID)
	}
	if claims.Role != "admin" {
		t.Errorf("expected role admin, got %s", claims.Role)
	}
	if claims.Issuer != "roster" {
		t.Errorf("expected issuer roster, got %s", claims.Issuer)
	}
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	m := NewManager("test-secret", nil)
	user, _ := m.AddUser("eve", "pw", "viewer")
	token, _ := m.GenerateToken(user)

	other := NewManager("different-secret", nil)
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("expected validation to fail with different secret")
	}

	parts := strings.Split(token, ".")
	if len(parts) == 3 {
		tampered := parts[0] + "." + parts[1] + "x." + parts[2]
		if _, err := m.ValidateToken(tampered); err == nil {
			t.Error("expected validation to fail for tampered token")
		}
	}
}

func TestAPIKeys(t *testing.T) {
	m := NewManager("s", []string{"key-one", "key-two", ""})

	if !m.HasAPIKeys() {
		t.Error("expected HasAPIKeys to be true")
	}
	if !m.ValidateAPIKey("key-one") {
		t.Error("expected key-one to validate")
	}
	if m.ValidateAPIKey("") {
		t.Error("empty key must not validate")
	}
	if m.ValidateAPIKey("key-three") {
		t.Error("unknown key must not validate")
	}

	none := NewManager("s", nil)
	if none.HasAPIKeys() {
		t.Error("expected no API keys")
	}
}

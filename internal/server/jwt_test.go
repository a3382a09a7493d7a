package server

import (
	"testing"
	"time"
)

func TestJWT(t *testing.T) {
	secret := []byte("secret")
	now := time.Now()

	token, expiresAt, err := SignJWT(secret, "u1", "me@example.com", time.Hour, now)
	if err != nil {
		t.Fatalf("SignJWT failed: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("expected expiry %v, got %v", now.Add(time.Hour), expiresAt)
	}

	claims, err := ParseJWT(secret, token)
	if err != nil {
		t.Fatalf("ParseJWT failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "me@example.com" {
		t.Errorf("unexpected claims %+v", claims)
	}

	if _, err := ParseJWT([]byte("other"), token); err == nil {
		t.Error("expected signature error")
	}

	noUser, _, err := SignJWT(secret, "", "", time.Hour, now)
	if err != nil {
		t.Fatalf("SignJWT failed: %v", err)
	}
	if _, err := ParseJWT(secret, noUser); err == nil {
		t.Error("expected claims without user to be rejected")
	}
}

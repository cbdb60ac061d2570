package auth

import (
	"testing"
	"time"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := NewSessionToken("u1", "a@b.com", "Ada", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseSessionToken(token, "secret")
	if err != nil {
		t.Fatal(err)
	}
	if claims.Sub != "u1" || claims.Email != "a@b.com" || claims.Name != "Ada" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestSessionTokenWrongSecret(t *testing.T) {
	token, err := NewSessionToken("u1", "a@b.com", "", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseSessionToken(token, "other-secret"); err == nil {
		t.Fatal("expected signature verification to fail")
	}
}

func TestSessionTokenExpired(t *testing.T) {
	token, err := NewSessionToken("u1", "a@b.com", "", "secret", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseSessionToken(token, "secret"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestSessionTokenGarbage(t *testing.T) {
	if _, err := ParseSessionToken("not-a-token", "secret"); err == nil {
		t.Fatal("expected parse failure")
	}
}

package domain

import (
	"testing"
	"time"
)

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestCodeRequestValidate(t *testing.T) {
	req := CodeRequest{Email: "   ", DisplayName: " Ada "}
	req.Normalize()
	res := req.Validate()
	if res == nil || res.Reason != ReasonValidation {
		t.Fatalf("expected validation failure, got %+v", res)
	}

	req = CodeRequest{Email: " A@B.com "}
	req.Normalize()
	if res := req.Validate(); res != nil {
		t.Fatalf("expected valid request, got %+v", res)
	}
	if req.Email != "a@b.com" {
		t.Errorf("email not normalized: %q", req.Email)
	}
}

func TestVerifyRequestValidate(t *testing.T) {
	tests := []struct {
		email, code string
		wantOK      bool
	}{
		{"a@b.com", "123456", true},
		{"a@b.com", " 123456 ", true},
		{"", "123456", false},
		{"a@b.com", "12345", false},
		{"a@b.com", "1234567", false},
		{"a@b.com", "", false},
	}

	for _, tt := range tests {
		req := VerifyRequest{Email: tt.email, Code: tt.code}
		req.Normalize()
		res := req.Validate()
		if (res == nil) != tt.wantOK {
			t.Errorf("Validate(%q, %q) ok=%v, want %v", tt.email, tt.code, res == nil, tt.wantOK)
		}
	}
}

func TestChallengeExpiry(t *testing.T) {
	now := time.Now()
	ch := PendingChallenge{ExpiresAt: now.Add(time.Minute)}
	if ch.IsExpired(now) {
		t.Error("challenge should not be expired before ExpiresAt")
	}
	if !ch.IsExpired(now.Add(time.Minute)) {
		t.Error("challenge should be expired at ExpiresAt")
	}
}

func TestInvalidCodeResult(t *testing.T) {
	res := InvalidCodeResult(2)
	if res.ShouldReset {
		t.Error("remaining attempts should not force a reset")
	}

	res = InvalidCodeResult(0)
	if !res.ShouldReset {
		t.Error("zero remaining attempts must signal a reset")
	}
	if res.Reason != ReasonInvalidCode {
		t.Errorf("reason = %q", res.Reason)
	}
}

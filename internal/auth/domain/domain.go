package domain

import (
	"strings"
	"time"
)

// Account is a registered identity, keyed by normalized email.
type Account struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PendingChallenge is the one outstanding login code for an email. The code
// itself is stored bcrypt-hashed; the plaintext only exists in the issuance
// result. A challenge past ExpiresAt is treated as absent.
type PendingChallenge struct {
	Email     string    `json:"email"`
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionUser is the authenticated identity. A nil SessionUser means
// unauthenticated.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

const (
	DefaultCodeTTL     = 10 * time.Minute
	DefaultMaxAttempts = 3
)

func (c *PendingChallenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

func (c *PendingChallenge) AttemptsExhausted(max int) bool {
	return c.Attempts >= max
}

// NormalizeEmail applies the canonical trim+lowercase used everywhere an
// email is a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type CodeRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r *CodeRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
}

func (r *CodeRequest) Validate() *Result {
	if r.Email == "" {
		return Fail(ReasonValidation, "Please enter a valid email address.")
	}
	return nil
}

func (r *VerifyRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *VerifyRequest) Validate() *Result {
	if r.Email == "" {
		return Fail(ReasonValidation, "Please enter a valid email address.")
	}
	if len(r.Code) != 6 {
		return Fail(ReasonValidation, "Verification code must be 6 digits.")
	}
	return nil
}

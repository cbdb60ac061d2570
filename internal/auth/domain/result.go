package domain

import "fmt"

// Reason classifies why an auth operation failed. Every reason is
// non-fatal; the caller recovers by correcting input or requesting a new
// code.
type Reason string

const (
	ReasonValidation         Reason = "validation_error"
	ReasonNoChallenge        Reason = "no_challenge"
	ReasonExpired            Reason = "expired"
	ReasonAttemptsExhausted  Reason = "attempts_exhausted"
	ReasonInvalidCode        Reason = "invalid_code"
	ReasonInvalidEmail       Reason = "invalid_email"
	ReasonRateLimited        Reason = "rate_limited"
	ReasonBackendUnavailable Reason = "backend_unavailable"
	ReasonAccountNotFound    Reason = "account_not_found"
	ReasonIssuanceFailed     Reason = "issuance_failed"
	ReasonVerificationFailed Reason = "verification_failed"
)

// Result is the structured outcome of every public auth operation. No
// operation lets a backend or storage error escape its boundary; failures
// are converted to a Result with a short actionable message. ShouldReset
// tells the caller the current verification cycle is dead and the flow must
// restart from issuance.
type Result struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Reason      Reason `json:"reason,omitempty"`
	ShouldReset bool   `json:"should_reset,omitempty"`

	// DevCode carries the plaintext login code when the local fallback is
	// active and dev-mode disclosure is on. There is no real email
	// transport in local mode; this is a degraded delivery path and must
	// be replaced with a real channel before production use.
	DevCode string `json:"dev_code,omitempty"`
}

func OK(message string) *Result {
	return &Result{Success: true, Message: message}
}

func Fail(reason Reason, message string) *Result {
	return &Result{Success: false, Reason: reason, Message: message}
}

func FailReset(reason Reason, message string) *Result {
	return &Result{Success: false, Reason: reason, Message: message, ShouldReset: true}
}

func InvalidCodeResult(remaining int) *Result {
	r := Fail(ReasonInvalidCode, fmt.Sprintf("Invalid code. %d attempt(s) remaining.", remaining))
	if remaining == 0 {
		r.ShouldReset = true
		r.Message = "Invalid code. No attempts remaining. Please request a new code."
	}
	return r
}

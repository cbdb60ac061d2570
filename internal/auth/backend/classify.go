package backend

import (
	"strings"

	"github.com/mapleroute/portal/internal/auth/domain"
)

// The managed backend reports failures as human-readable messages, so
// classification is an ordered substring match. If a future backend version
// exposes structured error codes they should be preferred; the taxonomy
// below stays the same either way.

type pattern struct {
	substrings []string
	reason     domain.Reason
}

var issuePatterns = []pattern{
	{[]string{"rate limit", "too many requests"}, domain.ReasonRateLimited},
	{[]string{"invalid email", "unable to validate email"}, domain.ReasonInvalidEmail},
}

var verifyPatterns = []pattern{
	{[]string{"expired"}, domain.ReasonExpired},
	{[]string{"too many"}, domain.ReasonAttemptsExhausted},
	{[]string{"invalid"}, domain.ReasonInvalidCode},
}

func classify(msg string, patterns []pattern, fallback domain.Reason) domain.Reason {
	lower := strings.ToLower(msg)
	for _, p := range patterns {
		for _, s := range p.substrings {
			if strings.Contains(lower, s) {
				return p.reason
			}
		}
	}
	return fallback
}

// ClassifyIssueError maps a backend issuance failure onto the error
// taxonomy.
func ClassifyIssueError(err error) domain.Reason {
	return classify(err.Error(), issuePatterns, domain.ReasonIssuanceFailed)
}

// ClassifyVerifyError maps a backend verification failure onto the error
// taxonomy. Expired and AttemptsExhausted both tell the caller to restart
// from issuance.
func ClassifyVerifyError(err error) domain.Reason {
	return classify(err.Error(), verifyPatterns, domain.ReasonVerificationFailed)
}

package authenticator

import (
	"context"

	"github.com/mapleroute/portal/internal/auth/backend"
	"github.com/mapleroute/portal/internal/auth/domain"
	"github.com/mapleroute/portal/internal/auth/store"
	"github.com/mapleroute/portal/pkg/logger"
)

// remoteProvider delegates the login flow to the managed auth backend. The
// emailed code is opaque to this side; errors come back as messages and are
// mapped onto the taxonomy by substring classification.
type remoteProvider struct {
	client  backend.Client
	records *store.Records
}

func (p *remoteProvider) requestCode(ctx context.Context, req domain.CodeRequest) *domain.Result {
	err := p.client.SignInWithOTP(ctx, req.Email, backend.SignInOptions{
		DisplayName: req.DisplayName,
		CreateUser:  true,
	})
	if err == nil {
		return domain.OK("Verification code sent. Check your email.")
	}

	logger.WarnContext(ctx, "Backend code issuance failed", "error", err)
	switch reason := backend.ClassifyIssueError(err); reason {
	case domain.ReasonRateLimited:
		return domain.Fail(reason, "Too many requests. Please wait before retrying.")
	case domain.ReasonInvalidEmail:
		return domain.Fail(reason, "Please enter a valid email address.")
	default:
		return domain.Fail(domain.ReasonIssuanceFailed, "Could not send code. Please try again.")
	}
}

func (p *remoteProvider) verifyCode(ctx context.Context, req domain.VerifyRequest) (*domain.Result, *domain.SessionUser) {
	_, err := p.client.VerifyOTP(ctx, req.Email, req.Code)
	if err == nil {
		// The session itself arrives through the backend change
		// notification; this call only reports the outcome.
		return domain.OK("Signed in."), nil
	}

	logger.WarnContext(ctx, "Backend code verification failed", "error", err)
	switch reason := backend.ClassifyVerifyError(err); reason {
	case domain.ReasonExpired:
		return domain.FailReset(reason, "Code expired. Please request a new one."), nil
	case domain.ReasonAttemptsExhausted:
		return domain.FailReset(reason, "Too many failed attempts. Please request a new code."), nil
	case domain.ReasonInvalidCode:
		return domain.Fail(reason, "Invalid code. Please try again."), nil
	default:
		return domain.Fail(domain.ReasonVerificationFailed, "Verification failed. Please try again."), nil
	}
}

func (p *remoteProvider) signOut(ctx context.Context) {
	if err := p.client.SignOut(ctx); err != nil {
		// Fail open: the remote call is best effort, local state clears
		// regardless.
		logger.WarnContext(ctx, "Backend sign-out failed", "error", err)
	}
	if err := p.records.ClearSessionToken(ctx); err != nil {
		logger.WarnContext(ctx, "Failed to clear persisted session", "error", err)
	}
}

func (p *remoteProvider) restore(ctx context.Context) *domain.SessionUser {
	sess, err := p.client.GetSession(ctx)
	if err != nil || sess == nil {
		return nil
	}
	u := sess.User
	return &u
}

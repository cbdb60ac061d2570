package authenticator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mapleroute/portal/internal/auth/domain"
	"github.com/mapleroute/portal/internal/auth/store"
	"github.com/mapleroute/portal/pkg/auth"
	"github.com/mapleroute/portal/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// localProvider runs the whole login flow against the durable KV store.
// There is no email transport in this mode: the issued code is disclosed
// in the result (DevCode) for out-of-band delivery. That is a degraded,
// non-production path; deployments that need local mode with real delivery
// must wire a channel of their own.
//
// State per email: no challenge -> pending(attempts=0) on issue; a correct
// code consumes the challenge and establishes the session; a wrong code
// bumps attempts until the cap; expiry or exhaustion drops the challenge
// and the flow restarts from issuance. Reads and writes go through a
// single mutex; the collection-replace writes underneath are still not
// atomic across processes, which is accepted at single-user scale.
type localProvider struct {
	records *store.Records
	cfg     Config
	now     func() time.Time
	gen     func() string
	mu      sync.Mutex
}

func (p *localProvider) requestCode(ctx context.Context, req domain.CodeRequest) *domain.Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	code := p.gen()

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to hash login code", "error", err)
		return domain.Fail(domain.ReasonIssuanceFailed, "Could not issue a code. Please try again.")
	}

	// A new request supersedes any pending challenge, attempts included.
	challenges := p.records.Challenges(ctx)
	challenges[req.Email] = domain.PendingChallenge{
		Email:     req.Email,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(p.cfg.CodeTTL),
		Attempts:  0,
		CreatedAt: now,
	}
	if err := p.records.SaveChallenges(ctx, challenges); err != nil {
		logger.ErrorContext(ctx, "Failed to persist challenge", "error", err)
		return domain.Fail(domain.ReasonIssuanceFailed, "Could not issue a code. Please try again.")
	}

	accounts := p.records.Accounts(ctx)
	acct, ok := accounts[req.Email]
	if !ok {
		acct = domain.Account{
			ID:        uuid.NewString(),
			Email:     req.Email,
			CreatedAt: now,
		}
	}
	if req.DisplayName != "" {
		acct.DisplayName = req.DisplayName
	}
	accounts[req.Email] = acct
	if err := p.records.SaveAccounts(ctx, accounts); err != nil {
		logger.ErrorContext(ctx, "Failed to persist account", "error", err)
		return domain.Fail(domain.ReasonIssuanceFailed, "Could not issue a code. Please try again.")
	}

	res := domain.OK("Verification code issued.")
	res.DevCode = code
	return res
}

func (p *localProvider) verifyCode(ctx context.Context, req domain.VerifyRequest) (*domain.Result, *domain.SessionUser) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	challenges := p.records.Challenges(ctx)

	// Lazy garbage collection: drop every other email's expired challenge
	// up front. The challenge under verification keeps its own expiry
	// check below so the caller sees Expired rather than NoChallenge.
	purged := false
	for email, ch := range challenges {
		if email != req.Email && ch.IsExpired(now) {
			delete(challenges, email)
			purged = true
		}
	}
	if purged {
		if err := p.records.SaveChallenges(ctx, challenges); err != nil {
			logger.WarnContext(ctx, "Failed to persist challenge purge", "error", err)
		}
	}

	ch, ok := challenges[req.Email]
	if !ok {
		return domain.Fail(domain.ReasonNoChallenge, "No valid code found. Please request a new one."), nil
	}

	if ch.IsExpired(now) {
		delete(challenges, req.Email)
		p.saveChallenges(ctx, challenges)
		return domain.FailReset(domain.ReasonExpired, "Code expired. Please request a new one."), nil
	}

	if ch.AttemptsExhausted(p.cfg.MaxAttempts) {
		delete(challenges, req.Email)
		p.saveChallenges(ctx, challenges)
		return domain.FailReset(domain.ReasonAttemptsExhausted, "Too many failed attempts. Please request a new code."), nil
	}

	if bcrypt.CompareHashAndPassword([]byte(ch.CodeHash), []byte(req.Code)) != nil {
		ch.Attempts++
		remaining := p.cfg.MaxAttempts - ch.Attempts
		if remaining <= 0 {
			// The final wrong attempt consumes the challenge: it reports
			// zero remaining with ShouldReset, and any retry starts over
			// from issuance.
			delete(challenges, req.Email)
		} else {
			challenges[req.Email] = ch
		}
		p.saveChallenges(ctx, challenges)
		return domain.InvalidCodeResult(remaining), nil
	}

	accounts := p.records.Accounts(ctx)
	acct, ok := accounts[req.Email]
	if !ok {
		// Issuance upserts the account, so this should not happen; handle
		// it rather than assume.
		logger.WarnContext(ctx, "Challenge matched but account missing", "email", req.Email)
		return domain.Fail(domain.ReasonAccountNotFound, "Account not found. Please request a new code."), nil
	}

	// Single use: consume the challenge before establishing the session.
	delete(challenges, req.Email)
	p.saveChallenges(ctx, challenges)

	user := &domain.SessionUser{ID: acct.ID, Email: acct.Email, Name: acct.DisplayName}

	token, err := auth.NewSessionToken(user.ID, user.Email, user.Name, p.cfg.SessionSecret, p.cfg.SessionTTL)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to sign session token", "error", err)
	} else if err := p.records.SaveSessionToken(ctx, token); err != nil {
		logger.ErrorContext(ctx, "Failed to persist session token", "error", err)
	}

	return domain.OK("Signed in."), user
}

func (p *localProvider) signOut(ctx context.Context) {
	if err := p.records.ClearSessionToken(ctx); err != nil {
		logger.WarnContext(ctx, "Failed to clear persisted session", "error", err)
	}
}

// restore rebuilds the session from the persisted token. A corrupt or
// stale token is discarded and the authenticator starts unauthenticated.
func (p *localProvider) restore(ctx context.Context) *domain.SessionUser {
	token, ok := p.records.SessionToken(ctx)
	if !ok || token == "" {
		return nil
	}

	claims, err := auth.ParseSessionToken(token, p.cfg.SessionSecret)
	if err != nil {
		logger.WarnContext(ctx, "Discarding invalid persisted session", "error", err)
		if err := p.records.ClearSessionToken(ctx); err != nil {
			logger.WarnContext(ctx, "Failed to clear invalid session", "error", err)
		}
		return nil
	}

	return &domain.SessionUser{ID: claims.Sub, Email: claims.Email, Name: claims.Name}
}

func (p *localProvider) saveChallenges(ctx context.Context, challenges map[string]domain.PendingChallenge) {
	if err := p.records.SaveChallenges(ctx, challenges); err != nil {
		logger.ErrorContext(ctx, "Failed to persist challenges", "error", err)
	}
}

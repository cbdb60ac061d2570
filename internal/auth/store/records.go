package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mapleroute/portal/internal/auth/domain"
	"github.com/mapleroute/portal/pkg/logger"
)

// Store keys for the three independent records.
const (
	KeyAccounts   = "auth.accounts"
	KeyChallenges = "auth.challenges"
	KeySession    = "auth.session"
)

// Records reads and writes the auth collections over a KV. Collections are
// keyed by normalized email and replaced wholesale on every mutation. A
// record that fails to parse is treated as absent, never as a fatal error.
type Records struct {
	kv KV
}

func NewRecords(kv KV) *Records {
	return &Records{kv: kv}
}

func (r *Records) Accounts(ctx context.Context) map[string]domain.Account {
	out := make(map[string]domain.Account)
	raw, ok, err := r.kv.Get(ctx, KeyAccounts)
	if err != nil {
		logger.WarnContext(ctx, "Failed to read accounts record", "error", err)
		return out
	}
	if !ok {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logger.WarnContext(ctx, "Discarding corrupt accounts record", "error", err)
		return make(map[string]domain.Account)
	}
	return out
}

func (r *Records) SaveAccounts(ctx context.Context, accounts map[string]domain.Account) error {
	raw, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	return r.kv.Set(ctx, KeyAccounts, string(raw))
}

func (r *Records) Challenges(ctx context.Context) map[string]domain.PendingChallenge {
	out := make(map[string]domain.PendingChallenge)
	raw, ok, err := r.kv.Get(ctx, KeyChallenges)
	if err != nil {
		logger.WarnContext(ctx, "Failed to read challenges record", "error", err)
		return out
	}
	if !ok {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logger.WarnContext(ctx, "Discarding corrupt challenges record", "error", err)
		return make(map[string]domain.PendingChallenge)
	}
	return out
}

func (r *Records) SaveChallenges(ctx context.Context, challenges map[string]domain.PendingChallenge) error {
	raw, err := json.Marshal(challenges)
	if err != nil {
		return fmt.Errorf("failed to marshal challenges: %w", err)
	}
	return r.kv.Set(ctx, KeyChallenges, string(raw))
}

func (r *Records) SessionToken(ctx context.Context) (string, bool) {
	raw, ok, err := r.kv.Get(ctx, KeySession)
	if err != nil {
		logger.WarnContext(ctx, "Failed to read session record", "error", err)
		return "", false
	}
	return raw, ok
}

func (r *Records) SaveSessionToken(ctx context.Context, token string) error {
	return r.kv.Set(ctx, KeySession, token)
}

func (r *Records) ClearSessionToken(ctx context.Context) error {
	return r.kv.Remove(ctx, KeySession)
}

package authenticator

import (
	"context"
	"errors"
	"testing"

	"github.com/mapleroute/portal/internal/auth/backend"
	"github.com/mapleroute/portal/internal/auth/domain"
	"github.com/mapleroute/portal/internal/auth/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend drives the remote provider in tests. Session-change
// callbacks fire synchronously, which is good enough to observe ordering.
type fakeBackend struct {
	probeErr   error
	probedSess *backend.Session

	signInErr  error
	verifyErr  error
	verifySess *backend.Session
	signOutErr error

	signInCalls  int
	signOutCalls int
	listeners    []func(*backend.Session)
}

func (f *fakeBackend) GetSession(ctx context.Context) (*backend.Session, error) {
	return f.probedSess, f.probeErr
}

func (f *fakeBackend) SignInWithOTP(ctx context.Context, email string, opts backend.SignInOptions) error {
	f.signInCalls++
	return f.signInErr
}

func (f *fakeBackend) VerifyOTP(ctx context.Context, email, code string) (*backend.Session, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	for _, fn := range f.listeners {
		fn(f.verifySess)
	}
	return f.verifySess, nil
}

func (f *fakeBackend) SignOut(ctx context.Context) error {
	f.signOutCalls++
	for _, fn := range f.listeners {
		fn(nil)
	}
	return f.signOutErr
}

func (f *fakeBackend) OnSessionChange(fn func(*backend.Session)) func() {
	f.listeners = append(f.listeners, fn)
	return func() {}
}

func (f *fakeBackend) Close() {}

func newRemoteAuthenticator(t *testing.T, fb *fakeBackend, kv store.KV) *Authenticator {
	t.Helper()
	a := New(context.Background(), Config{SessionSecret: "test-secret"}, fb, kv)
	t.Cleanup(a.Close)
	return a
}

func TestProbeFailureFallsBackToLocal(t *testing.T) {
	fb := &fakeBackend{probeErr: errors.New("connection refused")}
	a := newRemoteAuthenticator(t, fb, store.NewMemoryKV())
	assert.Equal(t, ModeLocal, a.Mode())
}

func TestProbeSuccessPicksRemote(t *testing.T) {
	fb := &fakeBackend{}
	a := newRemoteAuthenticator(t, fb, store.NewMemoryKV())
	assert.Equal(t, ModeRemote, a.Mode())
	assert.Nil(t, a.CurrentUser())
}

func TestRemoteRestoreFromProbedSession(t *testing.T) {
	fb := &fakeBackend{
		probedSess: &backend.Session{
			AccessToken: "tok",
			User:        domain.SessionUser{ID: "u1", Email: "a@b.com", Name: "Ada"},
		},
	}
	a := newRemoteAuthenticator(t, fb, store.NewMemoryKV())

	user := a.CurrentUser()
	require.NotNil(t, user)
	assert.Equal(t, "a@b.com", user.Email)
}

func TestRemoteIssuanceClassification(t *testing.T) {
	tests := []struct {
		name       string
		backendErr error
		wantReason domain.Reason
	}{
		{"rate limited", errors.New("email rate limit exceeded"), domain.ReasonRateLimited},
		{"invalid email", errors.New("unable to validate email address"), domain.ReasonInvalidEmail},
		{"generic", errors.New("internal server error"), domain.ReasonIssuanceFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackend{signInErr: tt.backendErr}
			a := newRemoteAuthenticator(t, fb, store.NewMemoryKV())

			res := a.RequestCode(context.Background(), domain.CodeRequest{Email: "a@b.com"})
			require.False(t, res.Success)
			assert.Equal(t, tt.wantReason, res.Reason)
		})
	}
}

func TestRemoteVerifyClassification(t *testing.T) {
	tests := []struct {
		name        string
		backendErr  error
		wantReason  domain.Reason
		shouldReset bool
	}{
		{"expired", errors.New("token has expired or is invalid"), domain.ReasonExpired, true},
		{"lockout", errors.New("too many verification attempts"), domain.ReasonAttemptsExhausted, true},
		{"wrong code", errors.New("invalid otp"), domain.ReasonInvalidCode, false},
		{"generic", errors.New("service unavailable"), domain.ReasonVerificationFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackend{verifyErr: tt.backendErr}
			a := newRemoteAuthenticator(t, fb, store.NewMemoryKV())

			res := a.VerifyCode(context.Background(), domain.VerifyRequest{Email: "a@b.com", Code: "123456"})
			require.False(t, res.Success)
			assert.Equal(t, tt.wantReason, res.Reason)
			assert.Equal(t, tt.shouldReset, res.ShouldReset)
		})
	}
}

func TestRemoteVerifySessionArrivesViaNotification(t *testing.T) {
	fb := &fakeBackend{
		verifySess: &backend.Session{
			AccessToken: "tok",
			User:        domain.SessionUser{ID: "u1", Email: "a@b.com"},
		},
	}
	a := newRemoteAuthenticator(t, fb, store.NewMemoryKV())

	res := a.VerifyCode(context.Background(), domain.VerifyRequest{Email: "a@b.com", Code: "123456"})
	require.True(t, res.Success)

	user := a.CurrentUser()
	require.NotNil(t, user)
	assert.Equal(t, "a@b.com", user.Email)
}

func TestRemoteSignOutFailureStillClearsLocalState(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	fb := &fakeBackend{
		probedSess: &backend.Session{
			AccessToken: "tok",
			User:        domain.SessionUser{ID: "u1", Email: "a@b.com"},
		},
		signOutErr: errors.New("network down"),
	}
	a := newRemoteAuthenticator(t, fb, kv)
	require.NotNil(t, a.CurrentUser())

	a.SignOut(ctx)

	assert.Equal(t, 1, fb.signOutCalls)
	assert.Nil(t, a.CurrentUser())
	_, ok, err := kv.Get(ctx, store.KeySession)
	require.NoError(t, err)
	assert.False(t, ok)
}

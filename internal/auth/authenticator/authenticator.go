package authenticator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mapleroute/portal/internal/auth/backend"
	"github.com/mapleroute/portal/internal/auth/domain"
	"github.com/mapleroute/portal/internal/auth/store"
	"github.com/mapleroute/portal/pkg/events"
	"github.com/mapleroute/portal/pkg/logger"
)

// Mode says which backend the authenticator is bound to. The choice is made
// once at construction and held for the authenticator's lifetime.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

// Config carries the auth knobs from pkg/config.
type Config struct {
	SessionSecret string
	SessionTTL    time.Duration
	CodeTTL       time.Duration
	MaxAttempts   int
}

func (c *Config) applyDefaults() {
	if c.SessionTTL <= 0 {
		c.SessionTTL = 30 * 24 * time.Hour
	}
	if c.CodeTTL <= 0 {
		c.CodeTTL = domain.DefaultCodeTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = domain.DefaultMaxAttempts
	}
}

// provider is the strategy behind the public operations; one implementation
// per mode.
type provider interface {
	requestCode(ctx context.Context, req domain.CodeRequest) *domain.Result
	// verifyCode returns a non-nil user when this call itself established
	// the session. The remote provider returns nil: its session arrives
	// through the backend change notification instead.
	verifyCode(ctx context.Context, req domain.VerifyRequest) (*domain.Result, *domain.SessionUser)
	signOut(ctx context.Context)
	restore(ctx context.Context) *domain.SessionUser
}

// Authenticator is the session state machine for the portal: it issues and
// verifies login codes, tracks the authenticated user, and signs out. It
// probes the remote backend once at construction and falls back to the
// local store when the probe fails.
type Authenticator struct {
	mode     Mode
	provider provider
	bus      events.Publisher
	now      func() time.Time
	codeTTL  time.Duration

	mu   sync.Mutex
	user *domain.SessionUser

	ready       chan struct{}
	readyOnce   sync.Once
	unsubscribe func()
}

type Option func(*options)

type options struct {
	now func() time.Time
	gen func() string
	bus events.Publisher
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCodeGenerator overrides the login code generator, for tests.
func WithCodeGenerator(gen func() string) Option {
	return func(o *options) { o.gen = gen }
}

func WithEventBus(bus events.Publisher) Option {
	return func(o *options) { o.bus = bus }
}

// New probes the remote backend, picks a mode, restores any persisted
// session, and returns a ready authenticator. The probe failing is not an
// error: the authenticator degrades to the local store.
func New(ctx context.Context, cfg Config, remote backend.Client, kv store.KV, opts ...Option) *Authenticator {
	cfg.applyDefaults()

	o := options{
		now: time.Now,
		gen: generateCode,
		bus: events.NoopEventBus{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	records := store.NewRecords(kv)

	a := &Authenticator{
		bus:     o.bus,
		now:     o.now,
		codeTTL: cfg.CodeTTL,
		ready:   make(chan struct{}),
	}

	var probed *backend.Session
	remoteOK := false
	if remote != nil {
		sess, err := remote.GetSession(ctx)
		if err != nil {
			logger.WarnContext(ctx, "Auth backend unreachable, using local fallback", "error", err)
		} else {
			remoteOK = true
			probed = sess
		}
	}

	if remoteOK {
		a.mode = ModeRemote
		a.provider = &remoteProvider{client: remote, records: records}
		if probed != nil {
			u := probed.User
			a.setUser(ctx, &u)
		}
		a.unsubscribe = remote.OnSessionChange(func(s *backend.Session) {
			if s == nil {
				a.setUser(context.Background(), nil)
				return
			}
			u := s.User
			a.setUser(context.Background(), &u)
		})
	} else {
		a.mode = ModeLocal
		local := &localProvider{
			records: records,
			cfg:     cfg,
			now:     o.now,
			gen:     o.gen,
		}
		a.provider = local
		if u := local.restore(ctx); u != nil {
			a.setUser(ctx, u)
		}
	}

	a.readyOnce.Do(func() { close(a.ready) })
	logger.InfoContext(ctx, "Authenticator initialized", "mode", string(a.mode))
	return a
}

func (a *Authenticator) Mode() Mode {
	return a.mode
}

// Ready is closed exactly once, after the initial session determination.
// Callers must not treat the user as authenticated or not before it closes.
func (a *Authenticator) Ready() <-chan struct{} {
	return a.ready
}

func (a *Authenticator) Loading() bool {
	select {
	case <-a.ready:
		return false
	default:
		return true
	}
}

// CurrentUser returns the authenticated user, or nil.
func (a *Authenticator) CurrentUser() *domain.SessionUser {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// RequestCode issues a new login code for the email, superseding any
// pending one. The returned result never wraps a raw backend error.
func (a *Authenticator) RequestCode(ctx context.Context, req domain.CodeRequest) *domain.Result {
	req.Normalize()
	if res := req.Validate(); res != nil {
		return res
	}

	res := a.provider.requestCode(ctx, req)
	if res.Success {
		issuedAt := a.now()
		a.publish(ctx, events.ChallengeIssued, events.ChallengeIssuedEvent{
			Email:     req.Email,
			Mode:      string(a.mode),
			ExpiresAt: issuedAt.Add(a.codeTTL),
			IssuedAt:  issuedAt,
		})
	}
	return res
}

// VerifyCode checks a submitted code against the pending challenge.
func (a *Authenticator) VerifyCode(ctx context.Context, req domain.VerifyRequest) *domain.Result {
	req.Normalize()
	if res := req.Validate(); res != nil {
		return res
	}

	res, user := a.provider.verifyCode(ctx, req)
	if user != nil {
		a.setUser(ctx, user)
	}
	return res
}

// SignOut clears the session. Remote failures are logged, never escalated:
// local state always clears so the user cannot get stuck signed in.
func (a *Authenticator) SignOut(ctx context.Context) {
	a.provider.signOut(ctx)

	a.mu.Lock()
	prev := a.user
	a.user = nil
	a.mu.Unlock()

	if prev != nil {
		a.publish(ctx, events.SessionCleared, events.SessionClearedEvent{
			Email:     prev.Email,
			Mode:      string(a.mode),
			ClearedAt: a.now(),
		})
	}
}

// Close tears down the backend subscription. Safe to call more than once.
func (a *Authenticator) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

func (a *Authenticator) setUser(ctx context.Context, u *domain.SessionUser) {
	a.mu.Lock()
	a.user = u
	a.mu.Unlock()

	if u != nil {
		a.publish(ctx, events.SessionEstablished, events.SessionEstablishedEvent{
			UserID:        u.ID,
			Email:         u.Email,
			Mode:          string(a.mode),
			EstablishedAt: a.now(),
		})
	}
}

func (a *Authenticator) publish(ctx context.Context, subject string, payload any) {
	if err := a.bus.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "Failed to publish auth event", "subject", subject, "error", err)
	}
}

// generateCode draws a uniform 6-digit code. Login codes are short-lived
// and attempt-limited, so a non-cryptographic source is acceptable here.
func generateCode() string {
	return fmt.Sprintf("%06d", rand.IntN(900000)+100000)
}

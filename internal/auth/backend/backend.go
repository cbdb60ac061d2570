package backend

import (
	"context"

	"github.com/mapleroute/portal/internal/auth/domain"
)

// Session is a remote-backend-confirmed identity.
type Session struct {
	AccessToken string
	User        domain.SessionUser
}

type SignInOptions struct {
	DisplayName string
	// CreateUser asks the backend to register the account if the email is
	// unknown.
	CreateUser bool
}

// Client is the capability surface of the managed auth service. The
// authenticator treats it as opaque: any error from GetSession during the
// startup probe demotes the whole provider to local mode.
type Client interface {
	// GetSession returns the current session, or (nil, nil) when the
	// backend is reachable but nobody is signed in.
	GetSession(ctx context.Context) (*Session, error)
	SignInWithOTP(ctx context.Context, email string, opts SignInOptions) error
	VerifyOTP(ctx context.Context, email, code string) (*Session, error)
	SignOut(ctx context.Context) error
	// OnSessionChange registers a callback invoked, in arrival order, when
	// the backend-side session changes (sign-in, refresh, sign-out). The
	// returned func unsubscribes.
	OnSessionChange(fn func(*Session)) (unsubscribe func())
	Close()
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mapleroute/portal/internal/auth/domain"
	"github.com/mapleroute/portal/pkg/logger"
)

// HTTPClient talks to a GoTrue-compatible auth endpoint
// (POST /otp, POST /verify, POST /logout, GET /user, GET /health).
type HTTPClient struct {
	baseURL string
	anonKey string
	httpc   *http.Client

	mu        sync.Mutex
	session   *Session
	listeners map[int]func(*Session)
	nextID    int

	// Session changes are delivered from a single goroutine so callbacks
	// observe them in arrival order.
	notifyCh chan *Session
	done     chan struct{}
	once     sync.Once
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth backend: %s (status %d)", e.Message, e.Status)
}

func NewHTTPClient(baseURL, anonKey string, timeout time.Duration) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" || anonKey == "" {
		return nil, fmt.Errorf("auth backend not configured")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("malformed auth backend URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &HTTPClient{
		baseURL:   baseURL,
		anonKey:   anonKey,
		httpc:     &http.Client{Timeout: timeout},
		listeners: make(map[int]func(*Session)),
		notifyCh:  make(chan *Session, 16),
		done:      make(chan struct{}),
	}
	go c.dispatch()
	return c, nil
}

func (c *HTTPClient) dispatch() {
	for {
		select {
		case s := <-c.notifyCh:
			c.mu.Lock()
			fns := make([]func(*Session), 0, len(c.listeners))
			for _, fn := range c.listeners {
				fns = append(fns, fn)
			}
			c.mu.Unlock()
			for _, fn := range fns {
				fn(s)
			}
		case <-c.done:
			return
		}
	}
}

func (c *HTTPClient) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	select {
	case c.notifyCh <- s:
	default:
		logger.Warn("Dropping session change notification, dispatch queue full")
	}
}

func (c *HTTPClient) GetSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	current := c.session
	c.mu.Unlock()

	if current == nil {
		// No token to validate; a health probe still proves the backend
		// is reachable and the credentials are well-formed.
		if err := c.do(ctx, http.MethodGet, "/health", "", nil, nil); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var user gotrueUser
	if err := c.do(ctx, http.MethodGet, "/user", current.AccessToken, nil, &user); err != nil {
		return nil, err
	}
	sess := &Session{AccessToken: current.AccessToken, User: user.toSessionUser()}
	return sess, nil
}

func (c *HTTPClient) SignInWithOTP(ctx context.Context, email string, opts SignInOptions) error {
	body := map[string]any{
		"email":       email,
		"create_user": opts.CreateUser,
	}
	if opts.DisplayName != "" {
		body["data"] = map[string]string{"display_name": opts.DisplayName}
	}
	return c.do(ctx, http.MethodPost, "/otp", "", body, nil)
}

func (c *HTTPClient) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	body := map[string]any{
		"type":  "email",
		"email": email,
		"token": code,
	}
	var resp struct {
		AccessToken string     `json:"access_token"`
		User        gotrueUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/verify", "", body, &resp); err != nil {
		return nil, err
	}

	sess := &Session{AccessToken: resp.AccessToken, User: resp.User.toSessionUser()}
	c.setSession(sess)
	return sess, nil
}

func (c *HTTPClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	current := c.session
	c.mu.Unlock()

	var err error
	if current != nil {
		err = c.do(ctx, http.MethodPost, "/logout", current.AccessToken, nil, nil)
	}
	c.setSession(nil)
	return err
}

func (c *HTTPClient) OnSessionChange(fn func(*Session)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *HTTPClient) Close() {
	c.once.Do(func() { close(c.done) })
}

type gotrueUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		DisplayName string `json:"display_name"`
	} `json:"user_metadata"`
}

func (u gotrueUser) toSessionUser() domain.SessionUser {
	return domain.SessionUser{ID: u.ID, Email: u.Email, Name: u.UserMetadata.DisplayName}
}

func (c *HTTPClient) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: extractErrorMessage(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func extractErrorMessage(raw []byte) string {
	var payload struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorCode        string `json:"error_code"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, m := range []string{payload.ErrorDescription, payload.Msg, payload.Message, payload.ErrorCode} {
			if m != "" {
				return m
			}
		}
	}
	if len(raw) > 0 {
		return string(raw)
	}
	return "unknown error"
}

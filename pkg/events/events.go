package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mapleroute/portal/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NoopEventBus is used when NATS is not configured; publishes go nowhere.
type NoopEventBus struct{}

func (NoopEventBus) Publish(ctx context.Context, subject string, data interface{}) error { return nil }
func (NoopEventBus) Subscribe(subject string, handler func(msg *Message)) error          { return nil }
func (NoopEventBus) Close() error                                                        { return nil }

// Event subjects
const (
	// Auth events
	ChallengeIssued    = "auth.challenge.issued"
	SessionEstablished = "auth.session.established"
	SessionCleared     = "auth.session.cleared"

	// Contact events
	ContactSubmitted = "contact.submitted"

	// Mail events
	MailDispatched = "mail.dispatched"
	MailRejected   = "mail.rejected"
)

// Event payloads
type ChallengeIssuedEvent struct {
	Email     string    `json:"email"`
	Mode      string    `json:"mode"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
}

type SessionEstablishedEvent struct {
	UserID        string    `json:"user_id"`
	Email         string    `json:"email"`
	Mode          string    `json:"mode"`
	EstablishedAt time.Time `json:"established_at"`
}

type SessionClearedEvent struct {
	Email     string    `json:"email"`
	Mode      string    `json:"mode"`
	ClearedAt time.Time `json:"cleared_at"`
}

type ContactSubmittedEvent struct {
	ContactID   int64     `json:"contact_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type MailDispatchedEvent struct {
	Email        string    `json:"email"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

type MailRejectedEvent struct {
	Email             string `json:"email"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

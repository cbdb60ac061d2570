package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mapleroute/portal/internal/auth/authenticator"
	"github.com/mapleroute/portal/internal/auth/backend"
	authhandlers "github.com/mapleroute/portal/internal/auth/handlers"
	"github.com/mapleroute/portal/internal/auth/store"
	"github.com/mapleroute/portal/internal/contact"
	"github.com/mapleroute/portal/internal/content"
	"github.com/mapleroute/portal/internal/mailer"
	"github.com/mapleroute/portal/internal/otpmail"
	"github.com/mapleroute/portal/pkg/config"
	"github.com/mapleroute/portal/pkg/database"
	"github.com/mapleroute/portal/pkg/events"
	"github.com/mapleroute/portal/pkg/logger"
	mw "github.com/mapleroute/portal/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	// Event bus is optional; everything degrades to no-op publishing.
	var bus events.EventBus = events.NoopEventBus{}
	if natsBus, err := events.NewNATSEventBus(cfg.NATS.URL); err != nil {
		logger.Warn("NATS unavailable, auth events disabled", "error", err)
	} else {
		bus = natsBus
		defer natsBus.Close()
	}
	startEventAudit(bus)

	// Durable store behind the local auth fallback.
	var kv store.KV
	var redisKV *store.RedisKV
	switch cfg.Store.Driver {
	case "redis":
		r, err := store.NewRedisKV(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis store", "error", err)
			os.Exit(1)
		}
		redisKV = r
		kv = r
		defer r.Close()
	default:
		f, err := store.OpenFileKV(cfg.Store.FilePath)
		if err != nil {
			logger.Error("Failed to open store file", "error", err)
			os.Exit(1)
		}
		kv = f
	}

	// Remote auth backend; construction or probe failure means local mode.
	var remote backend.Client
	if client, err := backend.NewHTTPClient(cfg.Backend.URL, cfg.Backend.AnonKey, cfg.Backend.ProbeTimeout); err != nil {
		logger.Warn("Auth backend not configured, using local fallback", "error", err)
	} else {
		remote = client
		defer client.Close()
	}

	probeCtx, cancelProbe := context.WithTimeout(ctx, cfg.Backend.ProbeTimeout)
	auth := authenticator.New(probeCtx, authenticator.Config{
		SessionSecret: cfg.Auth.SessionSecret,
		SessionTTL:    cfg.Auth.SessionTTL,
		CodeTTL:       cfg.Auth.CodeTTL,
		MaxAttempts:   cfg.Auth.MaxAttempts,
	}, remote, kv, authenticator.WithEventBus(bus))
	cancelProbe()
	defer auth.Close()

	// Postgres backs the contact inbox and the mail-relay rate limiter;
	// both surfaces degrade when it is down.
	var contactRepo contact.Repository
	var rateLimits otpmail.RateLimitRepository
	if pool, err := database.Connect(ctx, cfg.Database.URL); err != nil {
		logger.Warn("Database unavailable, contact inbox and mail throttling disabled", "error", err)
	} else {
		contactRepo = contact.NewRepository(pool)
		rateLimits = otpmail.NewRateLimitRepository(pool)
		defer pool.Close()
	}

	mailSvc := buildMailer(cfg)

	authH := authhandlers.New(auth, cfg.Email.DevMode)
	contactH := contact.NewHandler(contactRepo, bus, cfg.Contact.WhatsAppNumber)
	contentH := content.NewHandler()
	mailH := otpmail.NewHandler(mailSvc, rateLimits, bus, cfg.Email.RateRequests, cfg.Email.RateWindow)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Component("portal"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth", authH.Routes())
		r.Mount("/", contentH.Routes())
		r.Mount("/mail", mailH.Routes())

		r.Group(func(r chi.Router) {
			if redisKV != nil {
				r.Use(mw.IdempotencyMiddleware(idempotencyStore{redisKV}))
			}
			r.Mount("/contact", contactH.Routes())
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting portal", "port", cfg.Server.Port, "auth_mode", string(auth.Mode()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigChan:
		case <-gctx.Done():
			return nil
		}

		logger.Info("Shutting down portal...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Portal error", "error", err)
		os.Exit(1)
	}
}

// startEventAudit mirrors bus traffic into the structured log, which is the
// portal's audit trail for auth, contact and mail activity.
func startEventAudit(bus events.Subscriber) {
	subjects := []string{
		events.ChallengeIssued,
		events.SessionEstablished,
		events.SessionCleared,
		events.ContactSubmitted,
		events.MailDispatched,
		events.MailRejected,
	}
	for _, subject := range subjects {
		if err := bus.Subscribe(subject, func(msg *events.Message) {
			logger.Info("Event recorded", "subject", msg.Subject, "payload", string(msg.Data))
		}); err != nil {
			logger.Warn("Failed to subscribe to events", "subject", subject, "error", err)
		}
	}
}

func buildMailer(cfg *config.Config) mailer.Service {
	if cfg.Email.DevMode {
		return mailer.NewDevMailer()
	}
	if cfg.Email.MailerSendKey != "" {
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	}
	return mailer.NewSMTPMailer(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPFrom,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPass,
		cfg.Email.SMTPUseTLS,
	)
}

// idempotencyStore adapts the Redis KV to the idempotency middleware.
type idempotencyStore struct {
	kv *store.RedisKV
}

func (s idempotencyStore) Get(ctx context.Context, key string) (string, error) {
	v, _, err := s.kv.Get(ctx, key)
	return v, err
}

func (s idempotencyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.kv.SetTTL(ctx, key, value, ttl)
}

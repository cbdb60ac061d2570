package otpmail

import (
	"encoding/json"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mapleroute/portal/internal/mailer"
	"github.com/mapleroute/portal/pkg/events"
	"github.com/mapleroute/portal/pkg/logger"
)

// Handler is the code-delivery relay: it accepts {email, code, name?},
// throttles per email+IP, and forwards to the configured mail transport.
type Handler struct {
	mailer       mailer.Service
	rateLimits   RateLimitRepository
	bus          events.Publisher
	rateRequests int
	rateWindow   time.Duration
}

func NewHandler(m mailer.Service, rl RateLimitRepository, bus events.Publisher, requests int, window time.Duration) *Handler {
	if requests <= 0 {
		requests = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Handler{
		mailer:       m,
		rateLimits:   rl,
		bus:          bus,
		rateRequests: requests,
		rateWindow:   window,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/otp", h.SendOTP)
	return r
}

type sendRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Name  string `json:"name,omitempty"`
}

type sendResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

var codePattern = regexp.MustCompile(`^\d{6}$`)

// SendOTP delivers a login code email
func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, sendResponse{Message: "Invalid JSON format"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || !codePattern.MatchString(req.Code) {
		writeJSON(w, http.StatusBadRequest, sendResponse{Message: "Email and a 6-digit code are required"})
		return
	}

	if h.rateLimits != nil {
		key := "otp_mail:" + req.Email + ":" + clientIP(r)
		allowed, retryAfter, err := h.rateLimits.CheckRateLimit(r.Context(), key, h.rateRequests, h.rateWindow)
		if err != nil {
			logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err)
			// Allow request on error (fail open)
		} else if !allowed {
			seconds := int(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			h.publish(r, events.MailRejected, events.MailRejectedEvent{Email: req.Email, RetryAfterSeconds: seconds})
			writeJSON(w, http.StatusTooManyRequests, sendResponse{
				Message:           "Too many requests. Please try again later.",
				RetryAfterSeconds: seconds,
			})
			return
		}
	}

	if err := h.mailer.SendLoginCode(req.Email, req.Name, req.Code); err != nil {
		logger.ErrorContext(r.Context(), "Failed to send login code email", "error", err, "email", req.Email)
		writeJSON(w, http.StatusBadGateway, sendResponse{Message: "Failed to send email. Please try again."})
		return
	}

	h.publish(r, events.MailDispatched, events.MailDispatchedEvent{Email: req.Email, DispatchedAt: time.Now()})
	writeJSON(w, http.StatusOK, sendResponse{Success: true, Message: "Code sent"})
}

func (h *Handler) publish(r *http.Request, subject string, payload any) {
	if h.bus == nil {
		return
	}
	if err := h.bus.Publish(r.Context(), subject, payload); err != nil {
		logger.WarnContext(r.Context(), "Failed to publish mail event", "subject", subject, "error", err)
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

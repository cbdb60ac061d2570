package contact

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mapleroute/portal/pkg/events"
	"github.com/mapleroute/portal/pkg/logger"
)

// Handler accepts contact-form submissions, stores them, and hands back a
// WhatsApp deep link so the visitor can continue the conversation there.
type Handler struct {
	repo           Repository
	bus            events.Publisher
	whatsappNumber string
}

func NewHandler(repo Repository, bus events.Publisher, whatsappNumber string) *Handler {
	return &Handler{repo: repo, bus: bus, whatsappNumber: whatsappNumber}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Submit)
	r.Get("/", h.List)
	return r
}

// Submit stores a contact-form submission
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
		return
	}

	var submission *Submission
	if h.repo != nil {
		var err error
		submission, err = h.repo.Create(r.Context(), &req)
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to store contact submission", "error", err)
			writeError(w, http.StatusInternalServerError, "Could not store your message. Please try again.", "INTERNAL_ERROR")
			return
		}

		if h.bus != nil {
			if err := h.bus.Publish(r.Context(), events.ContactSubmitted, events.ContactSubmittedEvent{
				ContactID:   submission.ID,
				Email:       submission.Email,
				Name:        submission.Name,
				SubmittedAt: time.Now(),
			}); err != nil {
				logger.WarnContext(r.Context(), "Failed to publish contact event", "error", err)
			}
		}
	}

	response := map[string]any{
		"message": "Thanks for reaching out. We'll get back to you shortly.",
	}
	if link := h.whatsAppLink(&req); link != "" {
		response["whatsapp_url"] = link
	}
	if submission != nil {
		response["id"] = submission.ID
	}

	writeJSON(w, http.StatusCreated, response)
}

// List returns stored submissions, newest first
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "Submission storage is unavailable.", "STORAGE_UNAVAILABLE")
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	submissions, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list contact submissions", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not load submissions.", "INTERNAL_ERROR")
		return
	}
	if submissions == nil {
		submissions = []Submission{}
	}
	writeJSON(w, http.StatusOK, submissions)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func (h *Handler) whatsAppLink(req *SubmitRequest) string {
	number := strings.TrimLeft(strings.TrimSpace(h.whatsappNumber), "+")
	if number == "" {
		return ""
	}
	text := fmt.Sprintf("Hi, I'm %s (%s). %s", req.Name, req.Email, req.Message)
	return "https://wa.me/" + number + "?text=" + url.QueryEscape(text)
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
		"code":  code,
	})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mapleroute/portal/internal/auth/authenticator"
	"github.com/mapleroute/portal/internal/auth/domain"
)

// Handlers exposes the authenticator over HTTP.
type Handlers struct {
	auth *authenticator.Authenticator
	// devDisclose controls whether the local-mode login code is included
	// in issuance responses. Local mode has no email transport, so with
	// disclosure off the code is unreachable; only turn this off when a
	// real delivery channel replaces it.
	devDisclose bool
}

func New(auth *authenticator.Authenticator, devDisclose bool) *Handlers {
	return &Handlers{auth: auth, devDisclose: devDisclose}
}

func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/code", h.RequestCode)
	r.Post("/verify", h.VerifyCode)
	r.Post("/signout", h.SignOut)
	r.Get("/session", h.Session)
	return r
}

// RequestCode issues a login code for an email
func (h *Handlers) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req domain.CodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	res := h.auth.RequestCode(r.Context(), req)
	if !h.devDisclose {
		res.DevCode = ""
	}
	writeResult(w, res, http.StatusBadRequest)
}

// VerifyCode checks a submitted login code
func (h *Handlers) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	res := h.auth.VerifyCode(r.Context(), req)
	writeResult(w, res, http.StatusUnauthorized)
}

// SignOut clears the session; always succeeds
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	h.auth.SignOut(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

// Session reports the current authenticated user
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	user := h.auth.CurrentUser()
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": user != nil,
		"user":          user,
		"mode":          string(h.auth.Mode()),
	})
}

func writeResult(w http.ResponseWriter, res *domain.Result, failStatus int) {
	status := http.StatusOK
	if !res.Success {
		status = failStatus
		if res.Reason == domain.ReasonValidation {
			status = http.StatusBadRequest
		}
		if res.Reason == domain.ReasonRateLimited {
			status = http.StatusTooManyRequests
		}
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	response := map[string]string{
		"error": message,
		"code":  code,
	}
	writeJSON(w, statusCode, response)
}

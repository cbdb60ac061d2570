package content

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/provinces", h.ListProvinces)
	r.Get("/provinces/{slug}", h.GetProvince)
	r.Get("/pathways", h.ListPathways)
	return r
}

func (h *Handler) ListProvinces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Provinces())
}

func (h *Handler) GetProvince(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	province, ok := ProvinceBySlug(slug)
	if !ok {
		writeError(w, http.StatusNotFound, "Province not found", "NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, province)
}

func (h *Handler) ListPathways(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Pathways())
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

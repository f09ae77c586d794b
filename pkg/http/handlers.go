package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shortlink/pkg/clicks"
	"shortlink/pkg/logging"
	"shortlink/pkg/service"
)

type Handler struct {
	mappings *service.MappingService
	recorder *clicks.Recorder
	logger   *logging.Logger
}

func NewHandler(mappings *service.MappingService, recorder *clicks.Recorder, logger *logging.Logger) *Handler {
	return &Handler{
		mappings: mappings,
		recorder: recorder,
		logger:   logger,
	}
}

type createRequest struct {
	ShortCode   string  `json:"short_code"`
	TargetURL   string  `json:"target_url"`
	Description *string `json:"description,omitempty"`
}

type updateRequest struct {
	TargetURL   string  `json:"target_url"`
	Description *string `json:"description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.mappings.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch URLs")
		return
	}
	writeJSON(w, http.StatusOK, mappings)
}

func (h *Handler) CreateMapping(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ShortCode == "" || req.TargetURL == "" {
		writeError(w, http.StatusBadRequest, "short_code and target_url are required")
		return
	}

	mapping, err := h.mappings.Create(r.Context(), req.ShortCode, req.TargetURL, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidShortCode):
			writeError(w, http.StatusBadRequest, "Invalid short_code format. Use 3-20 alphanumeric characters, hyphens, or underscores.")
		case errors.Is(err, service.ErrInvalidTargetURL):
			writeError(w, http.StatusBadRequest, "Invalid target_url. Must start with http:// or https://")
		case errors.Is(err, service.ErrDuplicateCode):
			writeError(w, http.StatusBadRequest, "This short_code is already in use")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to create URL mapping")
		}
		return
	}
	writeJSON(w, http.StatusCreated, mapping)
}

func (h *Handler) UpdateMapping(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "URL mapping not found")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TargetURL == "" {
		writeError(w, http.StatusBadRequest, "target_url is required")
		return
	}

	_, err = h.mappings.Update(r.Context(), id, req.TargetURL, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTargetURL):
			writeError(w, http.StatusBadRequest, "Invalid target_url. Must start with http:// or https://")
		case errors.Is(err, service.ErrNotFound):
			writeError(w, http.StatusNotFound, "URL mapping not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to update URL mapping")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (h *Handler) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "URL mapping not found")
		return
	}

	if err := h.mappings.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "URL mapping not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete URL mapping")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "URL mapping not found")
		return
	}

	stats, err := h.mappings.Stats(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Redirect resolves a short code and issues a 302 to its target URL. The
// click is recorded through the detached recorder after the outcome is
// decided; the response never waits on it. A malformed code is rejected
// before any lookup, so it records no click.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shortCode")

	mapping, err := h.mappings.Resolve(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidShortCode):
			writeHTML(w, http.StatusNotFound, malformedCodePage)
		case errors.Is(err, service.ErrNotFound):
			writeHTML(w, http.StatusNotFound, fmt.Sprintf(notFoundPage, code))
		default:
			writeHTML(w, http.StatusInternalServerError, serverErrorPage)
		}
		return
	}

	h.recorder.Record(mapping.ID, optionalHeader(r.UserAgent()), optionalHeader(r.Referer()))

	http.Redirect(w, r, mapping.TargetURL, http.StatusFound)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// optionalHeader maps an empty header value to nil so it is stored as NULL.
func optionalHeader(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func SetupRoutes(r *chi.Mux, handler *Handler) {
	r.Get("/health", handler.HealthCheck)
	r.Route("/api/urls", func(r chi.Router) {
		r.Get("/", handler.ListMappings)
		r.Post("/", handler.CreateMapping)
		r.Put("/{id}", handler.UpdateMapping)
		r.Delete("/{id}", handler.DeleteMapping)
		r.Get("/{id}/stats", handler.GetStats)
	})
	r.Get("/{shortCode}", handler.Redirect)
}

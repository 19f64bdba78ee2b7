// Package api exposes the application state over a small JSON HTTP surface.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"restaurantfinder/internal/metrics"
	"restaurantfinder/internal/model"
	"restaurantfinder/internal/state"
)

// Controller is the subset of the aggregator the API drives.
type Controller interface {
	Snapshot() state.Snapshot
	Search(p model.SearchParams)
	FetchLocationAndSearch()
	Sort(by model.SortCriteria)
	LoadBusiness(id string)
	AddFavorite(b model.Business)
	AddDetailToFavorites(d model.BusinessDetail)
	RemoveFavorite(id string)
	Rate(id string, rating float64)
}

// Handler serves the API routes.
type Handler struct {
	ctrl   Controller
	logger *log.Logger
}

// NewRouter returns the API router. gatherer may be nil to omit /metrics.
func NewRouter(ctrl Controller, logger *log.Logger, gatherer prometheus.Gatherer) http.Handler {
	h := &Handler{ctrl: ctrl, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(h.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", h.GetSnapshot)

		r.Post("/search", h.Search)
		r.Post("/search/nearby", h.SearchNearby)
		r.Post("/sort", h.Sort)

		r.Post("/businesses/{id}/load", h.LoadBusiness)

		r.Get("/favorites", h.ListFavorites)
		r.Put("/favorites/{id}", h.AddFavorite)
		r.Delete("/favorites/{id}", h.RemoveFavorite)

		r.Put("/ratings/{id}", h.Rate)
	})

	if gatherer != nil {
		r.Handle("/metrics", metrics.Handler(gatherer))
	}

	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// GetSnapshot returns the full application state.
// GET /api/snapshot
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSnapshotResponse(h.ctrl.Snapshot()))
}

// Search starts a search from the current parameters with the request's overrides.
// POST /api/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.ctrl.Search(req.apply(h.ctrl.Snapshot().Params))
	h.accepted(w)
}

// SearchNearby resolves the current location and searches around it.
// POST /api/search/nearby
func (h *Handler) SearchNearby(w http.ResponseWriter, r *http.Request) {
	h.ctrl.FetchLocationAndSearch()
	h.accepted(w)
}

// Sort reorders the current results.
// POST /api/sort
func (h *Handler) Sort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if !decodeBody(w, r, &req) {
		return
	}
	by, err := model.ParseSortCriteria(req.By)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_SORT", err.Error())
		return
	}
	h.ctrl.Sort(by)
	h.accepted(w)
}

// LoadBusiness fetches detail and reviews for a business.
// POST /api/businesses/{id}/load
func (h *Handler) LoadBusiness(w http.ResponseWriter, r *http.Request) {
	h.ctrl.LoadBusiness(chi.URLParam(r, "id"))
	h.accepted(w)
}

// ListFavorites returns the favorites, newest first.
// GET /api/favorites
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newFavorites(h.ctrl.Snapshot().Favorites))
}

// AddFavorite favorites a business from the current results or the selected detail.
// PUT /api/favorites/{id}
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := h.ctrl.Snapshot()

	if d, ok := state.SelectedDetail(snap.Details.Selected); ok && d.ID == id {
		h.ctrl.AddDetailToFavorites(d)
		h.accepted(w)
		return
	}
	if b, ok := snap.Business(id); ok {
		h.ctrl.AddFavorite(b)
		h.accepted(w)
		return
	}

	writeError(w, http.StatusNotFound, "BUSINESS_NOT_FOUND", "business "+id+" is not in the current results")
}

// RemoveFavorite deletes a favorite.
// DELETE /api/favorites/{id}
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.ctrl.RemoveFavorite(chi.URLParam(r, "id"))
	h.accepted(w)
}

// Rate stores the user's rating.
// PUT /api/ratings/{id}
func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.ctrl.Rate(chi.URLParam(r, "id"), req.Rating)
	h.accepted(w)
}

func (h *Handler) accepted(w http.ResponseWriter) {
	writeJSON(w, http.StatusAccepted, acceptedResponse{Version: h.ctrl.Snapshot().Version})
}

// decodeBody decodes a JSON body into dst. An empty body leaves dst unchanged.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func joinTiers(tiers []string) string {
	cleaned := make([]string, 0, len(tiers))
	for _, t := range tiers {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return strings.Join(cleaned, ",")
}

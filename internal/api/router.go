// Package api exposes the station store over HTTP, and holds the response
// types shared with the Lambda handlers.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/stationmap/internal/hub"
	"github.com/bbernstein/stationmap/internal/metrics"
	"github.com/bbernstein/stationmap/internal/store"
)

const maxBodyBytes = 1 << 16

// Handler serves the store's read surface and mutators.
type Handler struct {
	store *store.Store
}

func NewHandler(s *store.Store) *Handler {
	return &Handler{store: s}
}

// NewRouter mounts the JSON API, the map WebSocket and the metrics
// endpoint. ws may be nil when no map clients are served.
func NewRouter(s *store.Store, ws http.Handler, m *metrics.Metrics) http.Handler {
	h := NewHandler(s)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	r.Group(func(r chi.Router) {
		r.Use(hlog.NewHandler(log.Logger))
		r.Use(hlog.RequestIDHandler("request_id", "X-Request-Id"))
		r.Use(accessLog(m))

		r.Get("/healthz", h.Health)
		r.Route("/api", func(r chi.Router) {
			r.Get("/stations", h.GetStations)
			r.Get("/cities", h.GetCities)
			r.Put("/filter", h.PutFilter)
			r.Delete("/filter", h.DeleteFilter)
			r.Put("/selection", h.PutSelection)
			r.Post("/refresh", h.PostRefresh)
		})
	})

	if ws != nil {
		r.Handle("/ws", ws)
	}
	r.Handle("/metrics", m.Handler())

	return r
}

func accessLog(m *metrics.Metrics) func(http.Handler) http.Handler {
	return hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.ObserveHTTPRequest(r.Method, route, status)
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request handled")
	})
}

// BroadcastViews pushes every settled store snapshot to the map clients.
func BroadcastViews(s *store.Store, h *hub.Hub) (unsubscribe func()) {
	return s.Subscribe(func(snap store.Snapshot) {
		h.Broadcast(hub.Frame{Type: hub.FrameView, View: NewViewResponse(snap)})
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) GetStations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewViewResponse(h.store.Snapshot()))
}

func (h *Handler) GetCities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewCitiesResponse(h.store.Cities()))
}

type filterRequest struct {
	City *string `json:"city"`
}

func (h *Handler) PutFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "Malformed request body", http.StatusBadRequest)
		return
	}
	if req.City == nil {
		writeError(w, "Missing city", http.StatusBadRequest)
		return
	}

	h.store.SetCityFilter(*req.City)
	hlog.FromRequest(r).Info().Str("city", *req.City).Msg("City filter set")
	writeJSON(w, http.StatusOK, NewViewResponse(h.store.Snapshot()))
}

func (h *Handler) DeleteFilter(w http.ResponseWriter, r *http.Request) {
	h.store.ClearFilter()
	writeJSON(w, http.StatusOK, NewViewResponse(h.store.Snapshot()))
}

type selectionRequest struct {
	ID json.RawMessage `json:"id"`
}

// PutSelection takes {"id": N} to select a station and {"id": null} to
// clear the selection.
func (h *Handler) PutSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "Malformed request body", http.StatusBadRequest)
		return
	}
	if len(req.ID) == 0 {
		writeError(w, "Missing id", http.StatusBadRequest)
		return
	}

	var id *int
	if err := json.Unmarshal(req.ID, &id); err != nil {
		writeError(w, "Invalid station id", http.StatusBadRequest)
		return
	}

	h.store.SetSelectedStation(id)
	logEvent := hlog.FromRequest(r).Info()
	if id != nil {
		logEvent = logEvent.Int("station_id", *id)
	}
	logEvent.Msg("Station selection set")
	writeJSON(w, http.StatusOK, NewViewResponse(h.store.Snapshot()))
}

func (h *Handler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	h.store.Refresh()
	writeJSON(w, http.StatusAccepted, NewViewResponse(h.store.Snapshot()))
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, NewErrorResponse(message))
}

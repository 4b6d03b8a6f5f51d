// Package api exposes the scoring pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dwellsafe/dwellsafe-cli/internal/incident"
	"github.com/dwellsafe/dwellsafe-cli/internal/safety"
	"github.com/dwellsafe/dwellsafe-cli/pkg/geocode"
)

// Geocoder resolves an address to coordinates. Optional; when absent the
// area endpoint accepts coordinates only.
type Geocoder interface {
	Geocode(ctx context.Context, addr geocode.AddressInput) (*geocode.Result, error)
}

// Server wires the scoring service into HTTP handlers.
type Server struct {
	service  *safety.Service
	store    *incident.Store
	geocoder Geocoder
}

// Option configures the server.
type Option func(*Server)

// WithGeocoder enables address lookup on the area endpoint.
func WithGeocoder(g Geocoder) Option {
	return func(s *Server) { s.geocoder = g }
}

// NewServer creates an API server over the scoring service.
func NewServer(service *safety.Service, store *incident.Store, opts ...Option) *Server {
	s := &Server{service: service, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with middleware and all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/area/score", s.handleAreaScore)
		r.Post("/route/score", s.handleRouteScore)
		r.Post("/routes/rank", s.handleRoutesRank)
		r.Get("/boroughs/compare", s.handleBoroughsCompare)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"incidents": snap.Len(),
	})
}

// handleAreaScore rates the area around a point. Accepts lat/lon query
// parameters, or an address when a geocoder is configured.
func (s *Server) handleAreaScore(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var lat, lon float64
	switch {
	case q.Get("lat") != "" || q.Get("lon") != "":
		var err error
		lat, err = strconv.ParseFloat(q.Get("lat"), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid lat")
			return
		}
		lon, err = strconv.ParseFloat(q.Get("lon"), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid lon")
			return
		}
	case q.Get("address") != "":
		if s.geocoder == nil {
			writeError(w, http.StatusBadRequest, "address lookup not configured")
			return
		}
		result, err := s.geocoder.Geocode(r.Context(), geocode.AddressInput{
			Street:  q.Get("address"),
			City:    q.Get("city"),
			State:   q.Get("state"),
			ZipCode: q.Get("zip"),
		})
		if err != nil {
			zap.L().Error("api: geocode failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "geocoding failed")
			return
		}
		if !result.Matched {
			writeError(w, http.StatusNotFound, "address not found")
			return
		}
		lat, lon = result.Latitude, result.Longitude
	default:
		writeError(w, http.StatusBadRequest, "lat/lon or address required")
		return
	}

	writeJSON(w, http.StatusOK, s.service.ScoreArea(lat, lon))
}

type routeScoreRequest struct {
	Path []safety.Point `json:"path"`
}

func (s *Server) handleRouteScore(w http.ResponseWriter, r *http.Request) {
	var req routeScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.service.ScoreRoute(r.Context(), req.Path)
	if err != nil {
		zap.L().Error("api: route score failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "route scoring failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type rankRequest struct {
	Routes []safety.RouteCandidate `json:"routes"`
}

func (s *Server) handleRoutesRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ranking, err := s.service.AnalyzeRoutes(r.Context(), req.Routes)
	if err != nil {
		if eris.Is(err, safety.ErrNoRoutes) {
			writeError(w, http.StatusUnprocessableEntity, "no routes provided")
			return
		}
		zap.L().Error("api: route ranking failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "route ranking failed")
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

func (s *Server) handleBoroughsCompare(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.CompareBoroughs())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

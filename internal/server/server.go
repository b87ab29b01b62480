package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/socialscraper/graphd/internal/service"
	"github.com/socialscraper/graphd/internal/store"
)

// Server is the graphd HTTP API server, the single transport adapter in
// front of the service.
type Server struct {
	svc     *service.Service
	router  chi.Router
	version string
	started time.Time
	log     zerolog.Logger
}

// New creates a new Server around the given service.
func New(svc *service.Service, version string, log zerolog.Logger) *Server {
	s := &Server{
		svc:     svc,
		version: version,
		started: time.Now(),
		log:     log,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(allowAllCORS)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/posts/batch", s.handleIngestBatch)
		r.Get("/posts", s.handleRecentPosts)
		r.Get("/posts/filtered", s.handleFilteredPosts)
		r.Get("/discovery/stats", s.handleDiscoveryStats)
		r.Get("/stats", s.handleStats)
		r.Post("/cleanup/run", s.handleRunCleanup)
		r.Get("/cleanup/rules", s.handleCleanupRules)
		r.Get("/sources", s.handleListSources)
		r.Post("/sources", s.handleSaveSource)
	})

	s.router = r
}

// allowAllCORS accepts every origin: the boundary is consumed by a
// browser extension and carries no authentication.
func allowAllCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("http")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps store error kinds onto HTTP statuses. Read failures
// surface as 500s so callers can tell an error apart from "no data".
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrConstraint):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

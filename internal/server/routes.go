package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/socialscraper/graphd/internal/service"
	"github.com/socialscraper/graphd/internal/store"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "graphd",
		"version":   s.version,
		"status":    "running",
		"uptime":    time.Since(s.started).Seconds(),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.Health()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    h.Status,
		"database":  h.Database,
		"stats":     h.Stats,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Posts     []store.Post            `json:"posts"`
		Filtered  []store.FilteredPost    `json:"filtered"`
		Discovery []store.DiscoveryResult `json:"discovery"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	res := s.svc.IngestBatch(req.Posts, req.Filtered, req.Discovery)

	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		service.IngestResult
		Timestamp time.Time `json:"timestamp"`
	}{
		Status:       "success",
		IngestResult: res,
		Timestamp:    time.Now().UTC(),
	})
}

func (s *Server) handleRecentPosts(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24)
	limit := queryInt(r, "limit", 100)
	platform := r.URL.Query().Get("platform")

	posts, err := s.svc.RecentPosts(hours, limit, platform)
	if err != nil {
		writeError(w, err)
		return
	}
	if posts == nil {
		posts = []store.Post{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"posts":     posts,
		"count":     len(posts),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleFilteredPosts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	limit := queryInt(r, "limit", 50)

	posts, err := s.svc.FilteredPosts(category, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if posts == nil {
		posts = []store.FilteredPost{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"posts":     posts,
		"count":     len(posts),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleDiscoveryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.DiscoveryStats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":     stats,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*service.OverallStats
		Timestamp time.Time `json:"timestamp"`
	}{
		OverallStats: stats,
		Timestamp:    time.Now().UTC(),
	})
}

func (s *Server) handleRunCleanup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DryRun bool `json:"dry_run"`
	}
	// An empty body means a plain non-dry run.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	results, err := s.svc.RunCleanup(req.DryRun)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"dry_run":   req.DryRun,
		"results":   results,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleCleanupRules(w http.ResponseWriter, r *http.Request) {
	enabledOnly := queryBool(r, "enabled_only")

	rules, err := s.svc.CleanupRules(enabledOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	if rules == nil {
		rules = []store.CleanupRule{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules":     rules,
		"count":     len(rules),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	enabledOnly := queryBool(r, "enabled_only")

	sources, err := s.svc.Sources(enabledOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	if sources == nil {
		sources = []store.Source{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sources":   sources,
		"count":     len(sources),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSaveSource(w http.ResponseWriter, r *http.Request) {
	var src store.Source
	if err := json.NewDecoder(r.Body).Decode(&src); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := s.svc.SaveSource(&src); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok", "id": src.ID})
}

func queryInt(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func queryBool(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v == "true" || v == "1"
}

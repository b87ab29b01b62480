package service

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/socialscraper/graphd/internal/metrics"
	"github.com/socialscraper/graphd/internal/retention"
	"github.com/socialscraper/graphd/internal/store"
)

// Service implements the operation contracts the transport front-end
// exposes. It is transport-neutral: one implementation behind a single
// HTTP adapter.
type Service struct {
	db        *store.DB
	retention *retention.Engine
	log       zerolog.Logger
}

// New wires the service with its storage handle and retention engine.
func New(db *store.DB, eng *retention.Engine, log zerolog.Logger) *Service {
	return &Service{db: db, retention: eng, log: log}
}

// ItemFailure describes one record that failed during batch ingestion.
type ItemFailure struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Error string `json:"error"`
}

// IngestResult reports per-kind stored counts plus per-item failures.
// Partial success is the normal case, never an error.
type IngestResult struct {
	PostsStored     int           `json:"posts_stored"`
	FilteredStored  int           `json:"filtered_stored"`
	DiscoveryStored int           `json:"discovery_stored"`
	Failures        []ItemFailure `json:"failures,omitempty"`
}

// IngestBatch stores posts, then filtered posts, then discovery results.
// Records are processed strictly sequentially so the row+edge pairs of
// the derived stores never interleave. A failed record is recorded and
// skipped; the batch always runs to completion.
func (s *Service) IngestBatch(posts []store.Post, filtered []store.FilteredPost, discovery []store.DiscoveryResult) IngestResult {
	var res IngestResult

	batch := s.db.AddPostsBatch(posts)
	res.PostsStored = batch.Stored
	for _, f := range batch.Failures {
		res.Failures = append(res.Failures, ItemFailure{Kind: "post", ID: f.ID, Error: f.Err.Error()})
	}

	for i := range filtered {
		if err := s.db.AddFilteredPost(&filtered[i]); err != nil {
			res.Failures = append(res.Failures, ItemFailure{Kind: "filtered", ID: filtered[i].ID, Error: err.Error()})
			continue
		}
		res.FilteredStored++
	}

	for i := range discovery {
		if err := s.db.AddDiscoveryResult(&discovery[i]); err != nil {
			res.Failures = append(res.Failures, ItemFailure{Kind: "discovery", ID: discovery[i].ID, Error: err.Error()})
			continue
		}
		res.DiscoveryStored++
	}

	metrics.IngestedRecords.WithLabelValues("post").Add(float64(res.PostsStored))
	metrics.IngestedRecords.WithLabelValues("filtered").Add(float64(res.FilteredStored))
	metrics.IngestedRecords.WithLabelValues("discovery").Add(float64(res.DiscoveryStored))
	metrics.IngestFailures.WithLabelValues("batch").Add(float64(len(res.Failures)))

	s.log.Info().
		Int("posts", res.PostsStored).
		Int("filtered", res.FilteredStored).
		Int("discovery", res.DiscoveryStored).
		Int("failed", len(res.Failures)).
		Msg("ingest: batch stored")
	return res
}

// RecentPosts returns posts scraped within the last `hours`, newest
// first. Platform filtering is applied after retrieval from the store,
// not pushed into the query.
func (s *Service) RecentPosts(hours, limit int, platform string) ([]store.Post, error) {
	if hours <= 0 {
		hours = 24
	}
	if limit <= 0 {
		limit = 100
	}

	posts, err := s.db.GetRecentPosts(hours, limit)
	if err != nil {
		return nil, err
	}
	if platform == "" {
		return posts, nil
	}

	var out []store.Post
	for _, p := range posts {
		if p.Platform == platform {
			out = append(out, p)
		}
	}
	return out, nil
}

// FilteredPosts returns filtered posts, by category when given.
func (s *Service) FilteredPosts(category string, limit int) ([]store.FilteredPost, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.db.ListFilteredPosts(category, limit)
}

// DiscoveryStats returns the sentiment histogram and KOL/trend counts.
func (s *Service) DiscoveryStats() (*store.DiscoveryStats, error) {
	return s.db.GetDiscoveryStats()
}

// OverallStats merges the entity counts with the discovery aggregates.
type OverallStats struct {
	Posts            int                   `json:"posts"`
	FilteredPosts    int                   `json:"filtered_posts"`
	DiscoveryResults int                   `json:"discovery_results"`
	ArchivedPosts    int                   `json:"archived_posts"`
	Sentiments       store.SentimentCounts `json:"sentiments"`
	KOLs             int                   `json:"kols"`
	Trends           int                   `json:"trends"`
}

// Stats recomputes the overall statistics from current store state.
// Nothing is cached.
func (s *Service) Stats() (*OverallStats, error) {
	var out OverallStats
	var err error

	if out.Posts, err = s.db.CountPosts(); err != nil {
		return nil, err
	}
	if out.FilteredPosts, err = s.db.CountFilteredPosts(); err != nil {
		return nil, err
	}
	if out.DiscoveryResults, err = s.db.CountDiscoveryResults(); err != nil {
		return nil, err
	}
	if out.ArchivedPosts, err = s.db.CountArchivedPosts(); err != nil {
		return nil, err
	}

	discovery, err := s.db.GetDiscoveryStats()
	if err != nil {
		return nil, err
	}
	out.Sentiments = discovery.Sentiments
	out.KOLs = discovery.KOLs
	out.Trends = discovery.Trends
	return &out, nil
}

// RunCleanup triggers a retention pass.
func (s *Service) RunCleanup(dryRun bool) ([]retention.RuleResult, error) {
	return s.retention.Run(dryRun)
}

// CleanupRules lists the configured retention rules.
func (s *Service) CleanupRules(enabledOnly bool) ([]store.CleanupRule, error) {
	return s.db.ListCleanupRules(enabledOnly)
}

// Sources lists the configured scraping sources.
func (s *Service) Sources(enabledOnly bool) ([]store.Source, error) {
	return s.db.ListSources(enabledOnly)
}

// SaveSource creates or updates a source configuration.
func (s *Service) SaveSource(src *store.Source) error {
	return s.db.UpsertSource(src)
}

// Health reflects current store reachability plus live stats. It is
// recomputed on every call, never cached.
type Health struct {
	Status   string        `json:"status"`
	Database string        `json:"database"`
	Stats    *OverallStats `json:"stats"`
}

// Health pings the store and gathers current counts.
func (s *Service) Health() (*Health, error) {
	if err := s.db.Ping(); err != nil {
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	stats, err := s.Stats()
	if err != nil {
		return nil, err
	}
	return &Health{Status: "healthy", Database: "connected", Stats: stats}, nil
}

package store

import (
	"fmt"
	"time"
)

// Source is a configured scraping channel. Sources are operator-managed
// configuration; the ingestion path never writes them.
type Source struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	Config        map[string]any `json:"config,omitempty"`
	Enabled       bool           `json:"enabled"`
	LastFetched   time.Time      `json:"lastFetched"`
	FetchInterval int            `json:"fetchInterval"`
}

// UpsertSource creates or replaces a source configuration by id.
func (db *DB) UpsertSource(s *Source) error {
	if s.ID == "" {
		return fmt.Errorf("source id required: %w", ErrValidation)
	}

	config, err := encodeMap(s.Config)
	if err != nil {
		return fmt.Errorf("source %s config: %w", s.ID, err)
	}
	enabled := 0
	if s.Enabled {
		enabled = 1
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err = db.Exec(`
		INSERT INTO sources (id, name, type, config, enabled, last_fetched, fetch_interval)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			config = excluded.config,
			enabled = excluded.enabled,
			fetch_interval = excluded.fetch_interval
	`, s.ID, s.Name, s.Type, config, enabled, msOf(s.LastFetched), s.FetchInterval)
	if err != nil {
		return fmt.Errorf("upsert source %s: %w", s.ID, err)
	}
	return nil
}

// ListSources returns the configured sources, optionally only enabled ones.
func (db *DB) ListSources(enabledOnly bool) ([]Source, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	query := `SELECT id, name, type, config, enabled, last_fetched, fetch_interval FROM sources ORDER BY id`
	if enabledOnly {
		query = `SELECT id, name, type, config, enabled, last_fetched, fetch_interval FROM sources WHERE enabled = 1 ORDER BY id`
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		var config string
		var enabled int
		var lastFetched int64
		if err := rows.Scan(&s.ID, &s.Name, &s.Type, &config, &enabled, &lastFetched, &s.FetchInterval); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		s.Enabled = enabled != 0
		s.LastFetched = timeOf(lastFetched)
		if s.Config, err = decodeMap(config); err != nil {
			return nil, fmt.Errorf("source %s: %w", s.ID, err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// MarkSourceFetched records the time a source was last fetched.
func (db *DB) MarkSourceFetched(id string, t time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	result, err := db.Exec(`UPDATE sources SET last_fetched = ? WHERE id = ?`, msOf(t), id)
	if err != nil {
		return fmt.Errorf("mark source fetched %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	return nil
}

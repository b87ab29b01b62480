package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DiscoveryResult is the deeper-analysis output (sentiment, KOL
// profiling, trend detection, alerting) derived from one post. It is
// linked to its source by an ANALYZED edge.
type DiscoveryResult struct {
	ID           string           `json:"id"`
	PostID       string           `json:"postId"`
	Sentiment    map[string]any   `json:"sentiment,omitempty"`
	KOLProfile   map[string]any   `json:"kolProfile,omitempty"`
	TrendData    map[string]any   `json:"trendData,omitempty"`
	AlertTrigger []map[string]any `json:"alertTrigger,omitempty"`
	AnalyzedAt   time.Time        `json:"analyzedAt"`
}

// SentimentCounts is a histogram over the sentiment blobs.
type SentimentCounts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// DiscoveryStats is the aggregate over all discovery results.
type DiscoveryStats struct {
	Sentiments SentimentCounts `json:"sentiments"`
	KOLs       int             `json:"kols"`
	Trends     int             `json:"trends"`
}

// AddDiscoveryResult inserts the row and its ANALYZED edge as one unit,
// under the same contract as AddFilteredPost.
func (db *DB) AddDiscoveryResult(dr *DiscoveryResult) error {
	if dr.ID == "" {
		return fmt.Errorf("discovery result id required: %w", ErrValidation)
	}
	if dr.PostID == "" {
		return fmt.Errorf("discovery result %s: postId required: %w", dr.ID, ErrValidation)
	}
	if dr.AnalyzedAt.IsZero() {
		dr.AnalyzedAt = time.Now().UTC()
	}

	sentiment, err := encodeMap(dr.Sentiment)
	if err != nil {
		return fmt.Errorf("discovery result %s sentiment: %w", dr.ID, err)
	}
	kol, err := encodeMap(dr.KOLProfile)
	if err != nil {
		return fmt.Errorf("discovery result %s kolProfile: %w", dr.ID, err)
	}
	trend, err := encodeMap(dr.TrendData)
	if err != nil {
		return fmt.Errorf("discovery result %s trendData: %w", dr.ID, err)
	}
	alerts, err := encodeMapList(dr.AlertTrigger)
	if err != nil {
		return fmt.Errorf("discovery result %s alertTrigger: %w", dr.ID, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	exists, err := db.postExists(dr.PostID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("discovery result %s references post %s: %w", dr.ID, dr.PostID, ErrNotFound)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("add discovery result: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO discovery_results (id, post_id, sentiment, kol_profile, trend_data,
			alert_trigger, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, dr.ID, dr.PostID, sentiment, kol, trend, alerts, msOf(dr.AnalyzedAt))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("add discovery result: %w", translateConstraint(err, dr.ID))
	}

	if _, err := tx.Exec(`
		INSERT INTO analyzed (result_id, post_id) VALUES (?, ?)
	`, dr.ID, dr.PostID); err != nil {
		tx.Rollback()
		return fmt.Errorf("link discovery result %s: %w", dr.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add discovery result: %w", err)
	}
	return nil
}

// GetDiscoveryStats scans every discovery result and computes the
// sentiment histogram plus KOL/trend presence counts. Sentiment is
// classified by case-insensitive substring match over the serialized
// blob; rows matching neither bucket count as neutral. O(n) per call,
// there are no incremental counters.
func (db *DB) GetDiscoveryStats() (*DiscoveryStats, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.Query(`SELECT sentiment, kol_profile, trend_data FROM discovery_results`)
	if err != nil {
		return nil, fmt.Errorf("discovery stats: %w", err)
	}
	defer rows.Close()

	var stats DiscoveryStats
	for rows.Next() {
		var sentiment, kol, trend string
		if err := rows.Scan(&sentiment, &kol, &trend); err != nil {
			return nil, fmt.Errorf("scan discovery stats: %w", err)
		}

		lower := strings.ToLower(sentiment)
		switch {
		case strings.Contains(lower, "positive"):
			stats.Sentiments.Positive++
		case strings.Contains(lower, "negative"):
			stats.Sentiments.Negative++
		default:
			stats.Sentiments.Neutral++
		}

		if blobPresent(kol) {
			stats.KOLs++
		}
		if blobPresent(trend) {
			stats.Trends++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("discovery stats: %w", err)
	}
	return &stats, nil
}

// blobPresent reports whether a serialized blob column holds actual
// content rather than an empty object.
func blobPresent(s string) bool {
	return s != "" && s != "{}" && s != "null"
}

const discoveryColumns = `id, post_id, sentiment, kol_profile, trend_data, alert_trigger, analyzed_at`

// FindDiscoveryOlderThan returns discovery results analyzed before the
// cutoff, oldest first. Used by the retention engine's export pass.
func (db *DB) FindDiscoveryOlderThan(cutoff time.Time) ([]DiscoveryResult, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.Query(`
		SELECT `+discoveryColumns+` FROM discovery_results
		WHERE analyzed_at < ?
		ORDER BY analyzed_at ASC
	`, msOf(cutoff))
	if err != nil {
		return nil, fmt.Errorf("find discovery older than: %w", err)
	}
	defer rows.Close()
	return scanDiscoveryResults(rows)
}

// CountDiscoveryOlderThan counts rows the export pass would write
// (dry-run support).
func (db *DB) CountDiscoveryOlderThan(cutoff time.Time) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM discovery_results WHERE analyzed_at < ?`, msOf(cutoff)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count discovery older than: %w", err)
	}
	return count, nil
}

// CountDiscoveryResults returns the total number of discovery results.
func (db *DB) CountDiscoveryResults() (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM discovery_results`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count discovery results: %w", err)
	}
	return count, nil
}

// AnalyzedSourceID traverses the ANALYZED edge and returns the post id
// the result was derived from.
func (db *DB) AnalyzedSourceID(resultID string) (string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var postID string
	err := db.QueryRow(`SELECT post_id FROM analyzed WHERE result_id = ?`, resultID).Scan(&postID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("discovery result %s has no source edge: %w", resultID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("analyzed source: %w", err)
	}
	return postID, nil
}

func scanDiscoveryResults(rows *sql.Rows) ([]DiscoveryResult, error) {
	var results []DiscoveryResult
	for rows.Next() {
		var dr DiscoveryResult
		var sentiment, kol, trend, alerts string
		var analyzedAt int64
		if err := rows.Scan(&dr.ID, &dr.PostID, &sentiment, &kol, &trend, &alerts, &analyzedAt); err != nil {
			return nil, fmt.Errorf("scan discovery result: %w", err)
		}
		dr.AnalyzedAt = timeOf(analyzedAt)

		var err error
		if dr.Sentiment, err = decodeMap(sentiment); err != nil {
			return nil, fmt.Errorf("discovery result %s: %w", dr.ID, err)
		}
		if dr.KOLProfile, err = decodeMap(kol); err != nil {
			return nil, fmt.Errorf("discovery result %s: %w", dr.ID, err)
		}
		if dr.TrendData, err = decodeMap(trend); err != nil {
			return nil, fmt.Errorf("discovery result %s: %w", dr.ID, err)
		}
		if dr.AlertTrigger, err = decodeMapList(alerts); err != nil {
			return nil, fmt.Errorf("discovery result %s: %w", dr.ID, err)
		}
		results = append(results, dr)
	}
	return results, rows.Err()
}

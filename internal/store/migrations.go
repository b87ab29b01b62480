package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

// Entity tables are node tables; each directed relationship kind gets its
// own edge table. post_id columns on derived rows and edges carry no
// foreign key to posts: once a post is archived and deleted, derived
// records keep pointing at the dead id and readers must tolerate that.
var migrations = []migration{
	{
		Version:     1,
		Description: "posts: raw/curated scraped content",
		SQL: `
CREATE TABLE posts (
    id                  TEXT PRIMARY KEY,
    platform            TEXT NOT NULL DEFAULT 'twitter',
    author              TEXT NOT NULL DEFAULT '',
    author_display_name TEXT NOT NULL DEFAULT '',
    content             TEXT NOT NULL DEFAULT '',
    title               TEXT NOT NULL DEFAULT '',
    url                 TEXT NOT NULL DEFAULT '',
    timestamp           INTEGER NOT NULL DEFAULT 0,
    score               INTEGER NOT NULL DEFAULT 0,
    replies             INTEGER NOT NULL DEFAULT 0,
    raw                 INTEGER NOT NULL DEFAULT 0,
    scraped_at          INTEGER NOT NULL DEFAULT 0,
    metadata            TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX idx_posts_scraped_at ON posts(scraped_at DESC);
CREATE INDEX idx_posts_platform   ON posts(platform);
`,
	},
	{
		Version:     2,
		Description: "filtered_posts + FILTERED_FROM edge",
		SQL: `
CREATE TABLE filtered_posts (
    id              TEXT PRIMARY KEY,
    post_id         TEXT NOT NULL,
    relevance_score REAL NOT NULL DEFAULT 0,
    category        TEXT NOT NULL DEFAULT 'other',
    sub_category    TEXT NOT NULL DEFAULT '',
    reason          TEXT NOT NULL DEFAULT '',
    summary         TEXT NOT NULL DEFAULT '',
    keywords        TEXT NOT NULL DEFAULT '[]',
    filtered_at     INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_filtered_category  ON filtered_posts(category);
CREATE INDEX idx_filtered_relevance ON filtered_posts(relevance_score DESC);
CREATE INDEX idx_filtered_at        ON filtered_posts(filtered_at DESC);

CREATE TABLE filtered_from (
    filtered_id TEXT NOT NULL,
    post_id     TEXT NOT NULL,
    PRIMARY KEY (filtered_id, post_id),
    FOREIGN KEY (filtered_id) REFERENCES filtered_posts(id) ON DELETE CASCADE
);

CREATE INDEX idx_filtered_from_post ON filtered_from(post_id);
`,
	},
	{
		Version:     3,
		Description: "discovery_results + ANALYZED edge",
		SQL: `
CREATE TABLE discovery_results (
    id            TEXT PRIMARY KEY,
    post_id       TEXT NOT NULL,
    sentiment     TEXT NOT NULL DEFAULT '{}',
    kol_profile   TEXT NOT NULL DEFAULT '{}',
    trend_data    TEXT NOT NULL DEFAULT '{}',
    alert_trigger TEXT NOT NULL DEFAULT '[]',
    analyzed_at   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_discovery_analyzed_at ON discovery_results(analyzed_at DESC);

CREATE TABLE analyzed (
    result_id TEXT NOT NULL,
    post_id   TEXT NOT NULL,
    PRIMARY KEY (result_id, post_id),
    FOREIGN KEY (result_id) REFERENCES discovery_results(id) ON DELETE CASCADE
);

CREATE INDEX idx_analyzed_post ON analyzed(post_id);
`,
	},
	{
		Version:     4,
		Description: "sources: channel configuration",
		SQL: `
CREATE TABLE sources (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL DEFAULT '',
    type           TEXT NOT NULL DEFAULT '',
    config         TEXT NOT NULL DEFAULT '{}',
    enabled        INTEGER NOT NULL DEFAULT 1,
    last_fetched   INTEGER NOT NULL DEFAULT 0,
    fetch_interval INTEGER NOT NULL DEFAULT 0
);
`,
	},
	{
		Version:     5,
		Description: "cleanup_rules: declarative retention policies",
		SQL: `
CREATE TABLE cleanup_rules (
    id          TEXT PRIMARY KEY,
    target_type TEXT NOT NULL,
    condition   TEXT NOT NULL,
    threshold   INTEGER NOT NULL DEFAULT 0,
    action      TEXT NOT NULL,
    enabled     INTEGER NOT NULL DEFAULT 1,
    last_run    INTEGER NOT NULL DEFAULT 0
);
`,
	},
	{
		Version:     6,
		Description: "archived_posts + ARCHIVED_FROM edge",
		SQL: `
CREATE TABLE archived_posts (
    id          TEXT PRIMARY KEY,
    original_id TEXT NOT NULL,
    platform    TEXT NOT NULL DEFAULT '',
    author      TEXT NOT NULL DEFAULT '',
    content     TEXT NOT NULL DEFAULT '',
    archived_at INTEGER NOT NULL DEFAULT 0,
    reason      TEXT NOT NULL DEFAULT '',
    metadata    TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX idx_archived_original ON archived_posts(original_id);

CREATE TABLE archived_from (
    archived_id TEXT NOT NULL,
    post_id     TEXT NOT NULL,
    PRIMARY KEY (archived_id, post_id),
    FOREIGN KEY (archived_id) REFERENCES archived_posts(id) ON DELETE CASCADE
);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}

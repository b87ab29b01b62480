package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Post is a raw or curated scraped post, the root entity of the graph.
type Post struct {
	ID                string         `json:"id"`
	Platform          string         `json:"platform"`
	Author            string         `json:"author"`
	AuthorDisplayName string         `json:"authorDisplayName"`
	Content           string         `json:"content"`
	Title             string         `json:"title"`
	URL               string         `json:"url"`
	Timestamp         time.Time      `json:"timestamp"`
	Score             int64          `json:"score"`
	Replies           int64          `json:"replies"`
	Raw               bool           `json:"raw"`
	ScrapedAt         time.Time      `json:"scrapedAt"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// BatchFailure records the id and error kind of one failed item in a
// batch, so callers can report more than a bare success count.
type BatchFailure struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

// BatchResult reports the outcome of a batch insert.
type BatchResult struct {
	Stored   int
	Failures []BatchFailure
}

// AddPost inserts a new post. The id is mandatory; every other missing
// field is filled with a permissive default rather than rejected (the
// scraping client is not always able to populate them). A duplicate id is
// ErrConstraint, not a no-op.
func (db *DB) AddPost(p *Post) error {
	if p.ID == "" {
		return fmt.Errorf("post id required: %w", ErrValidation)
	}
	if p.Platform == "" {
		p.Platform = "twitter"
	}
	if p.ScrapedAt.IsZero() {
		p.ScrapedAt = time.Now().UTC()
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	return db.insertPost(p)
}

func (db *DB) insertPost(p *Post) error {
	meta, err := encodeMap(p.Metadata)
	if err != nil {
		return fmt.Errorf("post %s metadata: %w", p.ID, err)
	}

	raw := 0
	if p.Raw {
		raw = 1
	}

	_, err = db.Exec(`
		INSERT INTO posts (id, platform, author, author_display_name, content, title, url,
			timestamp, score, replies, raw, scraped_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Platform, p.Author, p.AuthorDisplayName, p.Content, p.Title, p.URL,
		msOf(p.Timestamp), p.Score, p.Replies, raw, msOf(p.ScrapedAt), meta)
	if err != nil {
		return fmt.Errorf("add post: %w", translateConstraint(err, p.ID))
	}
	return nil
}

// AddPostsBatch applies AddPost to each record independently and
// sequentially. A failure on one record never aborts the batch; the
// result carries the success count plus per-item failures.
func (db *DB) AddPostsBatch(posts []Post) BatchResult {
	var res BatchResult
	for i := range posts {
		if err := db.AddPost(&posts[i]); err != nil {
			res.Failures = append(res.Failures, BatchFailure{ID: posts[i].ID, Err: err})
			continue
		}
		res.Stored++
	}
	return res
}

const postColumns = `id, platform, author, author_display_name, content, title, url,
	timestamp, score, replies, raw, scraped_at, metadata`

// GetPostByID returns a post by id, or nil if absent.
func (db *DB) GetPostByID(id string) (*Post, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post by id: %w", err)
	}
	return p, nil
}

// GetRecentPosts returns posts scraped within the last maxAgeHours,
// newest first, capped at limit.
func (db *DB) GetRecentPosts(maxAgeHours, limit int) ([]Post, error) {
	cutoff := time.Now().Add(-time.Duration(maxAgeHours) * time.Hour)

	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.Query(`
		SELECT `+postColumns+` FROM posts
		WHERE scraped_at > ?
		ORDER BY scraped_at DESC
		LIMIT ?
	`, msOf(cutoff), limit)
	if err != nil {
		return nil, fmt.Errorf("get recent posts: %w", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

// FindPostsOlderThan returns posts whose scraped_at predates the cutoff,
// oldest first. Used by the retention engine's archive pass.
func (db *DB) FindPostsOlderThan(cutoff time.Time) ([]Post, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.Query(`
		SELECT `+postColumns+` FROM posts
		WHERE scraped_at < ?
		ORDER BY scraped_at ASC
	`, msOf(cutoff))
	if err != nil {
		return nil, fmt.Errorf("find posts older than: %w", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

// CountPostsOlderThan counts posts matching the archive rule without
// touching them (dry-run support).
func (db *DB) CountPostsOlderThan(cutoff time.Time) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM posts WHERE scraped_at < ?`, msOf(cutoff)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts older than: %w", err)
	}
	return count, nil
}

// CountPosts returns the total number of posts.
func (db *DB) CountPosts() (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

// DeletePost removes a post by id. Relationships and derived records
// pointing at it are left in place and dangle; readers tolerate that.
func (db *DB) DeletePost(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.deletePost(id)
}

func (db *DB) deletePost(id string) error {
	result, err := db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) postExists(id string) (bool, error) {
	var one int
	err := db.QueryRow(`SELECT 1 FROM posts WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check post exists: %w", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var p Post
	var ts, scrapedAt int64
	var raw int
	var meta string
	err := row.Scan(&p.ID, &p.Platform, &p.Author, &p.AuthorDisplayName, &p.Content, &p.Title, &p.URL,
		&ts, &p.Score, &p.Replies, &raw, &scrapedAt, &meta)
	if err != nil {
		return nil, err
	}
	p.Timestamp = timeOf(ts)
	p.ScrapedAt = timeOf(scrapedAt)
	p.Raw = raw != 0
	if p.Metadata, err = decodeMap(meta); err != nil {
		return nil, fmt.Errorf("post %s: %w", p.ID, err)
	}
	return &p, nil
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

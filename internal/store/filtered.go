package store

import (
	"database/sql"
	"fmt"
	"time"
)

// FilteredPost is the relevance-filtering result derived from one post.
// It is linked to its source by a FILTERED_FROM edge.
type FilteredPost struct {
	ID             string    `json:"id"`
	PostID         string    `json:"postId"`
	RelevanceScore float64   `json:"relevanceScore"`
	Category       string    `json:"category"`
	SubCategory    string    `json:"subCategory"`
	Reason         string    `json:"reason"`
	Summary        string    `json:"summary"`
	Keywords       []string  `json:"keywords,omitempty"`
	FilteredAt     time.Time `json:"filteredAt"`
}

// AddFilteredPost inserts the row and its FILTERED_FROM edge as one unit.
// The referenced post must exist at creation time (ErrNotFound otherwise);
// row and edge are written in a single transaction so a failed edge never
// leaves an orphaned row behind.
func (db *DB) AddFilteredPost(fp *FilteredPost) error {
	if fp.ID == "" {
		return fmt.Errorf("filtered post id required: %w", ErrValidation)
	}
	if fp.PostID == "" {
		return fmt.Errorf("filtered post %s: postId required: %w", fp.ID, ErrValidation)
	}
	if fp.Category == "" {
		fp.Category = "other"
	}
	if fp.FilteredAt.IsZero() {
		fp.FilteredAt = time.Now().UTC()
	}

	keywords, err := encodeStrings(fp.Keywords)
	if err != nil {
		return fmt.Errorf("filtered post %s keywords: %w", fp.ID, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	exists, err := db.postExists(fp.PostID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("filtered post %s references post %s: %w", fp.ID, fp.PostID, ErrNotFound)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("add filtered post: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO filtered_posts (id, post_id, relevance_score, category, sub_category,
			reason, summary, keywords, filtered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, fp.ID, fp.PostID, fp.RelevanceScore, fp.Category, fp.SubCategory,
		fp.Reason, fp.Summary, keywords, msOf(fp.FilteredAt))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("add filtered post: %w", translateConstraint(err, fp.ID))
	}

	if _, err := tx.Exec(`
		INSERT INTO filtered_from (filtered_id, post_id) VALUES (?, ?)
	`, fp.ID, fp.PostID); err != nil {
		tx.Rollback()
		return fmt.Errorf("link filtered post %s: %w", fp.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add filtered post: %w", err)
	}
	return nil
}

const filteredColumns = `id, post_id, relevance_score, category, sub_category,
	reason, summary, keywords, filtered_at`

// ListFilteredPosts returns filtered posts capped at limit. With a
// category it filters by exact match ordered by relevance descending;
// otherwise it orders by filtered_at descending.
func (db *DB) ListFilteredPosts(category string, limit int) ([]FilteredPost, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var rows *sql.Rows
	var err error
	if category != "" {
		rows, err = db.Query(`
			SELECT `+filteredColumns+` FROM filtered_posts
			WHERE category = ?
			ORDER BY relevance_score DESC
			LIMIT ?
		`, category, limit)
	} else {
		rows, err = db.Query(`
			SELECT `+filteredColumns+` FROM filtered_posts
			ORDER BY filtered_at DESC
			LIMIT ?
		`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list filtered posts: %w", err)
	}
	defer rows.Close()
	return scanFilteredPosts(rows)
}

// DeleteBelowRelevance removes every filtered post with relevance_score
// strictly below the threshold and returns the number removed. Edges are
// cascaded; source posts are never touched. Idempotent.
func (db *DB) DeleteBelowRelevance(threshold float64) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result, err := db.Exec(`DELETE FROM filtered_posts WHERE relevance_score < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("delete below relevance: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// CountFilteredBelow counts rows that DeleteBelowRelevance would remove
// (dry-run support).
func (db *DB) CountFilteredBelow(threshold float64) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM filtered_posts WHERE relevance_score < ?`, threshold).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count filtered below: %w", err)
	}
	return count, nil
}

// CountFilteredPosts returns the total number of filtered posts.
func (db *DB) CountFilteredPosts() (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM filtered_posts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count filtered posts: %w", err)
	}
	return count, nil
}

// FilteredSourceID traverses the FILTERED_FROM edge and returns the post
// id the filtered post was derived from. The post itself may no longer
// exist.
func (db *DB) FilteredSourceID(filteredID string) (string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var postID string
	err := db.QueryRow(`SELECT post_id FROM filtered_from WHERE filtered_id = ?`, filteredID).Scan(&postID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("filtered post %s has no source edge: %w", filteredID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("filtered source: %w", err)
	}
	return postID, nil
}

// CountFilteredFrom returns the number of FILTERED_FROM edges leaving a
// filtered post. The linking contract guarantees exactly one.
func (db *DB) CountFilteredFrom(filteredID string) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM filtered_from WHERE filtered_id = ?`, filteredID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count filtered_from edges: %w", err)
	}
	return count, nil
}

func scanFilteredPosts(rows *sql.Rows) ([]FilteredPost, error) {
	var posts []FilteredPost
	for rows.Next() {
		var fp FilteredPost
		var keywords string
		var filteredAt int64
		if err := rows.Scan(&fp.ID, &fp.PostID, &fp.RelevanceScore, &fp.Category, &fp.SubCategory,
			&fp.Reason, &fp.Summary, &keywords, &filteredAt); err != nil {
			return nil, fmt.Errorf("scan filtered post: %w", err)
		}
		fp.FilteredAt = timeOf(filteredAt)
		var err error
		if fp.Keywords, err = decodeStrings(keywords); err != nil {
			return nil, fmt.Errorf("filtered post %s: %w", fp.ID, err)
		}
		posts = append(posts, fp)
	}
	return posts, rows.Err()
}

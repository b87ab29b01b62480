package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ArchivedPost is the terminal state of an archived post. The row is
// immutable once created; originalId preserves the id the post held even
// though the source row no longer exists.
type ArchivedPost struct {
	ID         string         `json:"id"`
	OriginalID string         `json:"originalId"`
	Platform   string         `json:"platform"`
	Author     string         `json:"author"`
	Content    string         `json:"content"`
	ArchivedAt time.Time      `json:"archivedAt"`
	Reason     string         `json:"reason"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ArchivePost moves a post into the archive: it writes the archive row,
// the ARCHIVED_FROM edge, and then deletes the source post, all under one
// writer acquisition. The three writes are not one transaction: an
// archive row surviving a failed delete is an accepted failure shape,
// and the reverse (deleted post without archive) cannot occur because
// the delete runs last.
func (db *DB) ArchivePost(p *Post, reason string) (*ArchivedPost, error) {
	ap := &ArchivedPost{
		ID:         "archived_" + p.ID,
		OriginalID: p.ID,
		Platform:   p.Platform,
		Author:     p.Author,
		Content:    p.Content,
		ArchivedAt: time.Now().UTC(),
		Reason:     reason,
		Metadata:   p.Metadata,
	}

	meta, err := encodeMap(ap.Metadata)
	if err != nil {
		return nil, fmt.Errorf("archive post %s metadata: %w", p.ID, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err = db.Exec(`
		INSERT INTO archived_posts (id, original_id, platform, author, content, archived_at, reason, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ap.ID, ap.OriginalID, ap.Platform, ap.Author, ap.Content, msOf(ap.ArchivedAt), ap.Reason, meta)
	if err != nil {
		return nil, fmt.Errorf("archive post %s: %w", p.ID, translateConstraint(err, ap.ID))
	}

	// Edge written before the delete so lineage survives the post.
	if _, err := db.Exec(`
		INSERT OR IGNORE INTO archived_from (archived_id, post_id) VALUES (?, ?)
	`, ap.ID, ap.OriginalID); err != nil {
		return nil, fmt.Errorf("link archived post %s: %w", ap.ID, err)
	}

	if err := db.deletePost(p.ID); err != nil {
		return nil, fmt.Errorf("archive post %s: %w", p.ID, err)
	}
	return ap, nil
}

const archivedColumns = `id, original_id, platform, author, content, archived_at, reason, metadata`

// GetArchivedByOriginalID returns the archive row for a deleted post id,
// or nil if the post was never archived.
func (db *DB) GetArchivedByOriginalID(originalID string) (*ArchivedPost, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.QueryRow(`SELECT `+archivedColumns+` FROM archived_posts WHERE original_id = ?`, originalID)
	ap, err := scanArchivedPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get archived by original id: %w", err)
	}
	return ap, nil
}

// CountArchivedPosts returns the total number of archived posts.
func (db *DB) CountArchivedPosts() (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM archived_posts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count archived posts: %w", err)
	}
	return count, nil
}

// ArchivedSourceID traverses the ARCHIVED_FROM edge and returns the id of
// the deleted source post.
func (db *DB) ArchivedSourceID(archivedID string) (string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var postID string
	err := db.QueryRow(`SELECT post_id FROM archived_from WHERE archived_id = ?`, archivedID).Scan(&postID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("archived post %s has no source edge: %w", archivedID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("archived source: %w", err)
	}
	return postID, nil
}

func scanArchivedPost(row rowScanner) (*ArchivedPost, error) {
	var ap ArchivedPost
	var archivedAt int64
	var meta string
	err := row.Scan(&ap.ID, &ap.OriginalID, &ap.Platform, &ap.Author, &ap.Content, &archivedAt, &ap.Reason, &meta)
	if err != nil {
		return nil, err
	}
	ap.ArchivedAt = timeOf(archivedAt)
	if ap.Metadata, err = decodeMap(meta); err != nil {
		return nil, fmt.Errorf("archived post %s: %w", ap.ID, err)
	}
	return &ap, nil
}

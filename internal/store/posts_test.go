package store

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAddPostRoundTrip(t *testing.T) {
	db := testDB(t)

	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	in := &Post{
		ID:                "post_001",
		Platform:          "reddit",
		Author:            "alice",
		AuthorDisplayName: "Alice A.",
		Content:           "an interesting observation",
		Title:             "observation",
		URL:               "https://reddit.com/r/x/post_001",
		Timestamp:         ts,
		Score:             42,
		Replies:           7,
		Raw:               true,
		ScrapedAt:         ts.Add(time.Minute),
		Metadata:          map[string]any{"subreddit": "x", "nsfw": false},
	}
	if err := db.AddPost(in); err != nil {
		t.Fatalf("add post: %v", err)
	}

	got, err := db.GetPostByID("post_001")
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got == nil {
		t.Fatal("get post: got nil, want row")
	}
	if got.Platform != "reddit" || got.Author != "alice" || got.AuthorDisplayName != "Alice A." {
		t.Errorf("author fields round-trip mismatch: %+v", got)
	}
	if got.Content != in.Content || got.Title != in.Title || got.URL != in.URL {
		t.Errorf("content fields round-trip mismatch: %+v", got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, ts)
	}
	if !got.ScrapedAt.Equal(ts.Add(time.Minute)) {
		t.Errorf("scrapedAt = %v, want %v", got.ScrapedAt, ts.Add(time.Minute))
	}
	if got.Score != 42 || got.Replies != 7 || !got.Raw {
		t.Errorf("numeric fields round-trip mismatch: %+v", got)
	}
	if got.Metadata["subreddit"] != "x" {
		t.Errorf("metadata = %v, want subreddit=x", got.Metadata)
	}
}

func TestAddPostDefaults(t *testing.T) {
	db := testDB(t)

	p := &Post{ID: "post_min"}
	if err := db.AddPost(p); err != nil {
		t.Fatalf("add post: %v", err)
	}

	got, err := db.GetPostByID("post_min")
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.Platform != "twitter" {
		t.Errorf("platform default = %q, want twitter", got.Platform)
	}
	if got.ScrapedAt.IsZero() {
		t.Error("scrapedAt not defaulted")
	}
	if !got.Timestamp.IsZero() {
		t.Errorf("timestamp = %v, want zero", got.Timestamp)
	}
}

func TestAddPostValidation(t *testing.T) {
	db := testDB(t)

	err := db.AddPost(&Post{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("add post without id: err = %v, want ErrValidation", err)
	}
}

func TestAddPostDuplicate(t *testing.T) {
	db := testDB(t)

	if err := db.AddPost(&Post{ID: "dup", Content: "first"}); err != nil {
		t.Fatalf("add post: %v", err)
	}
	err := db.AddPost(&Post{ID: "dup", Content: "second"})
	if !errors.Is(err, ErrConstraint) {
		t.Fatalf("duplicate add: err = %v, want ErrConstraint", err)
	}

	// The original row must be unchanged.
	got, err := db.GetPostByID("dup")
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.Content != "first" {
		t.Errorf("content = %q, want first", got.Content)
	}
	count, err := db.CountPosts()
	if err != nil {
		t.Fatalf("count posts: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestGetPostByIDAbsent(t *testing.T) {
	db := testDB(t)

	got, err := db.GetPostByID("nope")
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestAddPostsBatchPartialFailure(t *testing.T) {
	db := testDB(t)

	if err := db.AddPost(&Post{ID: "taken"}); err != nil {
		t.Fatalf("seed post: %v", err)
	}

	batch := []Post{
		{ID: "b1"},
		{ID: "taken"}, // duplicate
		{ID: ""},      // invalid
		{ID: "b2"},
	}
	res := db.AddPostsBatch(batch)
	if res.Stored != 2 {
		t.Errorf("stored = %d, want 2", res.Stored)
	}
	if len(res.Failures) != 2 {
		t.Fatalf("failures = %d, want 2", len(res.Failures))
	}
	if !errors.Is(res.Failures[0].Err, ErrConstraint) {
		t.Errorf("failure[0] = %v, want ErrConstraint", res.Failures[0].Err)
	}
	if !errors.Is(res.Failures[1].Err, ErrValidation) {
		t.Errorf("failure[1] = %v, want ErrValidation", res.Failures[1].Err)
	}

	count, err := db.CountPosts()
	if err != nil {
		t.Fatalf("count posts: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestGetRecentPostsOrderingAndWindow(t *testing.T) {
	db := testDB(t)

	now := time.Now().UTC()
	ages := map[string]time.Duration{
		"fresh":  1 * time.Hour,
		"mid":    10 * time.Hour,
		"stale":  48 * time.Hour,
		"newest": 5 * time.Minute,
	}
	for id, age := range ages {
		if err := db.AddPost(&Post{ID: id, ScrapedAt: now.Add(-age)}); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}

	posts, err := db.GetRecentPosts(24, 100)
	if err != nil {
		t.Fatalf("get recent: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("len = %d, want 3 (stale excluded)", len(posts))
	}
	want := []string{"newest", "fresh", "mid"}
	for i, id := range want {
		if posts[i].ID != id {
			t.Errorf("posts[%d].ID = %q, want %q", i, posts[i].ID, id)
		}
	}

	capped, err := db.GetRecentPosts(24, 2)
	if err != nil {
		t.Fatalf("get recent capped: %v", err)
	}
	if len(capped) != 2 || capped[0].ID != "newest" {
		t.Errorf("capped = %v, want [newest fresh]", capped)
	}
}

func TestFindPostsOlderThan(t *testing.T) {
	db := testDB(t)

	now := time.Now().UTC()
	for i, age := range []time.Duration{200, 100, 10} {
		p := &Post{ID: fmt.Sprintf("p%d", i), ScrapedAt: now.Add(-age * 24 * time.Hour)}
		if err := db.AddPost(p); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	cutoff := now.Add(-90 * 24 * time.Hour)
	old, err := db.FindPostsOlderThan(cutoff)
	if err != nil {
		t.Fatalf("find older: %v", err)
	}
	if len(old) != 2 {
		t.Fatalf("len = %d, want 2", len(old))
	}
	if old[0].ID != "p0" || old[1].ID != "p1" {
		t.Errorf("order = [%s %s], want oldest first [p0 p1]", old[0].ID, old[1].ID)
	}

	count, err := db.CountPostsOlderThan(cutoff)
	if err != nil {
		t.Fatalf("count older: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestDeletePost(t *testing.T) {
	db := testDB(t)

	if err := db.AddPost(&Post{ID: "gone"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := db.DeletePost("gone"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := db.GetPostByID("gone")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("post still present after delete: %+v", got)
	}

	err = db.DeletePost("gone")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

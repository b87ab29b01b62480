package store

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func seedPost(t *testing.T, db *DB, id string) {
	t.Helper()
	if err := db.AddPost(&Post{ID: id}); err != nil {
		t.Fatalf("seed post %s: %v", id, err)
	}
}

func TestAddFilteredPostLinksSource(t *testing.T) {
	db := testDB(t)
	seedPost(t, db, "src")

	fp := &FilteredPost{
		ID:             "f1",
		PostID:         "src",
		RelevanceScore: 7.5,
		Category:       "tech",
		SubCategory:    "databases",
		Reason:         "on-topic",
		Summary:        "short summary",
		Keywords:       []string{"graph", "sqlite"},
	}
	if err := db.AddFilteredPost(fp); err != nil {
		t.Fatalf("add filtered post: %v", err)
	}

	srcID, err := db.FilteredSourceID("f1")
	if err != nil {
		t.Fatalf("filtered source: %v", err)
	}
	if srcID != "src" {
		t.Errorf("source = %q, want src", srcID)
	}

	edges, err := db.CountFilteredFrom("f1")
	if err != nil {
		t.Fatalf("count edges: %v", err)
	}
	if edges != 1 {
		t.Errorf("edges = %d, want exactly 1", edges)
	}

	list, err := db.ListFilteredPosts("", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	got := list[0]
	if got.SubCategory != "databases" || got.Reason != "on-topic" || got.Summary != "short summary" {
		t.Errorf("detail fields round-trip mismatch: %+v", got)
	}
	if len(got.Keywords) != 2 || got.Keywords[0] != "graph" {
		t.Errorf("keywords = %v, want [graph sqlite]", got.Keywords)
	}
	if got.FilteredAt.IsZero() {
		t.Error("filteredAt not defaulted")
	}
}

func TestAddFilteredPostMissingSource(t *testing.T) {
	db := testDB(t)

	err := db.AddFilteredPost(&FilteredPost{ID: "f1", PostID: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// No orphaned row may survive the failed link.
	count, err := db.CountFilteredPosts()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestAddFilteredPostValidation(t *testing.T) {
	db := testDB(t)
	seedPost(t, db, "src")

	if err := db.AddFilteredPost(&FilteredPost{PostID: "src"}); !errors.Is(err, ErrValidation) {
		t.Errorf("missing id: err = %v, want ErrValidation", err)
	}
	if err := db.AddFilteredPost(&FilteredPost{ID: "f1"}); !errors.Is(err, ErrValidation) {
		t.Errorf("missing postId: err = %v, want ErrValidation", err)
	}
}

func TestAddFilteredPostCategoryDefault(t *testing.T) {
	db := testDB(t)
	seedPost(t, db, "src")

	fp := &FilteredPost{ID: "f1", PostID: "src"}
	if err := db.AddFilteredPost(fp); err != nil {
		t.Fatalf("add: %v", err)
	}
	list, err := db.ListFilteredPosts("other", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("category default not applied, list = %v", list)
	}
}

func TestListFilteredPostsOrdering(t *testing.T) {
	db := testDB(t)
	seedPost(t, db, "src")

	base := time.Now().UTC().Add(-time.Hour)
	rows := []FilteredPost{
		{ID: "f1", PostID: "src", Category: "tech", RelevanceScore: 2, FilteredAt: base.Add(3 * time.Minute)},
		{ID: "f2", PostID: "src", Category: "tech", RelevanceScore: 9, FilteredAt: base.Add(1 * time.Minute)},
		{ID: "f3", PostID: "src", Category: "news", RelevanceScore: 5, FilteredAt: base.Add(2 * time.Minute)},
	}
	for i := range rows {
		if err := db.AddFilteredPost(&rows[i]); err != nil {
			t.Fatalf("add %s: %v", rows[i].ID, err)
		}
	}

	// By category: relevance descending.
	tech, err := db.ListFilteredPosts("tech", 10)
	if err != nil {
		t.Fatalf("list tech: %v", err)
	}
	if len(tech) != 2 || tech[0].ID != "f2" || tech[1].ID != "f1" {
		t.Errorf("tech order = %v, want [f2 f1]", ids(tech))
	}

	// Without category: filteredAt descending.
	all, err := db.ListFilteredPosts("", 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	want := []string{"f1", "f3", "f2"}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("all[%d] = %q, want %q", i, all[i].ID, id)
		}
	}

	capped, err := db.ListFilteredPosts("", 2)
	if err != nil {
		t.Fatalf("list capped: %v", err)
	}
	if len(capped) != 2 {
		t.Errorf("capped len = %d, want 2", len(capped))
	}
}

func ids(fps []FilteredPost) []string {
	var out []string
	for _, fp := range fps {
		out = append(out, fp.ID)
	}
	return out
}

func TestDeleteBelowRelevanceBoundary(t *testing.T) {
	db := testDB(t)
	seedPost(t, db, "src")

	scores := map[string]float64{"low": 1.0, "edge": 3.0, "high": 8.0}
	for id, score := range scores {
		fp := &FilteredPost{ID: id, PostID: "src", RelevanceScore: score}
		if err := db.AddFilteredPost(fp); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}

	count, err := db.CountFilteredBelow(3.0)
	if err != nil {
		t.Fatalf("count below: %v", err)
	}
	if count != 1 {
		t.Errorf("count below 3 = %d, want 1 (strict less-than)", count)
	}

	removed, err := db.DeleteBelowRelevance(3.0)
	if err != nil {
		t.Fatalf("delete below: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	// Exactly-at-threshold row survives; a second pass removes nothing.
	remaining, err := db.CountFilteredPosts()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 2 {
		t.Errorf("remaining = %d, want 2", remaining)
	}
	again, err := db.DeleteBelowRelevance(3.0)
	if err != nil {
		t.Fatalf("delete again: %v", err)
	}
	if again != 0 {
		t.Errorf("second pass removed %d, want 0", again)
	}

	// Source posts are untouched.
	posts, err := db.CountPosts()
	if err != nil {
		t.Fatalf("count posts: %v", err)
	}
	if posts != 1 {
		t.Errorf("posts = %d, want 1", posts)
	}
}

func TestFilteredSurvivesSourceDeletion(t *testing.T) {
	db := testDB(t)
	seedPost(t, db, "src")

	if err := db.AddFilteredPost(&FilteredPost{ID: "f1", PostID: "src"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := db.DeletePost("src"); err != nil {
		t.Fatalf("delete post: %v", err)
	}

	// The derived row and its edge dangle rather than cascade.
	count, err := db.CountFilteredPosts()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("filtered post cascaded away, count = %d", count)
	}
	srcID, err := db.FilteredSourceID("f1")
	if err != nil {
		t.Fatalf("source after delete: %v", err)
	}
	if srcID != "src" {
		t.Errorf("source = %q, want src", srcID)
	}
}

func TestCountFilteredBelowLargeSet(t *testing.T) {
	db := testDB(t)
	seedPost(t, db, "src")

	for i := 0; i < 20; i++ {
		fp := &FilteredPost{ID: fmt.Sprintf("f%02d", i), PostID: "src", RelevanceScore: float64(i % 10)}
		if err := db.AddFilteredPost(fp); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	count, err := db.CountFilteredBelow(5)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 10 {
		t.Errorf("count = %d, want 10", count)
	}
}

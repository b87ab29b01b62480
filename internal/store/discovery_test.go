package store

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAddDiscoveryResultRoundTrip(t *testing.T) {
	db := testDB(t)
	seedPost(t, db, "src")

	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	dr := &DiscoveryResult{
		ID:         "d1",
		PostID:     "src",
		Sentiment:  map[string]any{"label": "positive", "score": 0.93},
		KOLProfile: map[string]any{"handle": "alice", "followers": float64(12000)},
		TrendData:  map[string]any{"topic": "graphs", "velocity": 3.1},
		AlertTrigger: []map[string]any{
			{"type": "spike", "threshold": float64(100)},
		},
		AnalyzedAt: at,
	}
	if err := db.AddDiscoveryResult(dr); err != nil {
		t.Fatalf("add discovery result: %v", err)
	}

	results, err := db.FindDiscoveryOlderThan(at.Add(time.Second))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len = %d, want 1", len(results))
	}
	got := results[0]
	if got.Sentiment["label"] != "positive" {
		t.Errorf("sentiment = %v", got.Sentiment)
	}
	if got.KOLProfile["handle"] != "alice" {
		t.Errorf("kolProfile = %v", got.KOLProfile)
	}
	if got.TrendData["topic"] != "graphs" {
		t.Errorf("trendData = %v", got.TrendData)
	}
	if len(got.AlertTrigger) != 1 || got.AlertTrigger[0]["type"] != "spike" {
		t.Errorf("alertTrigger = %v", got.AlertTrigger)
	}
	if !got.AnalyzedAt.Equal(at) {
		t.Errorf("analyzedAt = %v, want %v", got.AnalyzedAt, at)
	}

	srcID, err := db.AnalyzedSourceID("d1")
	if err != nil {
		t.Fatalf("analyzed source: %v", err)
	}
	if srcID != "src" {
		t.Errorf("source = %q, want src", srcID)
	}
}

func TestAddDiscoveryResultMissingSource(t *testing.T) {
	db := testDB(t)

	err := db.AddDiscoveryResult(&DiscoveryResult{ID: "d1", PostID: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	count, err := db.CountDiscoveryResults()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestGetDiscoveryStatsClassification(t *testing.T) {
	db := testDB(t)
	seedPost(t, db, "src")

	cases := []DiscoveryResult{
		{ID: "d1", PostID: "src", Sentiment: map[string]any{"label": "Positive"}},
		{ID: "d2", PostID: "src", Sentiment: map[string]any{"label": "strongly POSITIVE"}},
		{ID: "d3", PostID: "src", Sentiment: map[string]any{"label": "negative"}},
		{ID: "d4", PostID: "src", Sentiment: map[string]any{"label": "mixed"}},
		{ID: "d5", PostID: "src"}, // no sentiment at all
		{ID: "d6", PostID: "src",
			KOLProfile: map[string]any{"handle": "bob"},
			TrendData:  map[string]any{"topic": "x"}},
	}
	for i := range cases {
		if err := db.AddDiscoveryResult(&cases[i]); err != nil {
			t.Fatalf("add %s: %v", cases[i].ID, err)
		}
	}

	stats, err := db.GetDiscoveryStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Sentiments.Positive != 2 {
		t.Errorf("positive = %d, want 2", stats.Sentiments.Positive)
	}
	if stats.Sentiments.Negative != 1 {
		t.Errorf("negative = %d, want 1", stats.Sentiments.Negative)
	}
	if stats.Sentiments.Neutral != 3 {
		t.Errorf("neutral = %d, want 3", stats.Sentiments.Neutral)
	}
	if stats.KOLs != 1 {
		t.Errorf("kols = %d, want 1", stats.KOLs)
	}
	if stats.Trends != 1 {
		t.Errorf("trends = %d, want 1", stats.Trends)
	}
}

func TestGetDiscoveryStatsEmpty(t *testing.T) {
	db := testDB(t)

	stats, err := db.GetDiscoveryStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Sentiments != (SentimentCounts{}) || stats.KOLs != 0 || stats.Trends != 0 {
		t.Errorf("stats = %+v, want all zero", stats)
	}
}

func TestFindDiscoveryOlderThanOrdering(t *testing.T) {
	db := testDB(t)
	seedPost(t, db, "src")

	now := time.Now().UTC()
	for i, age := range []time.Duration{400, 370, 30} {
		dr := &DiscoveryResult{
			ID:         fmt.Sprintf("d%d", i),
			PostID:     "src",
			AnalyzedAt: now.Add(-age * 24 * time.Hour),
		}
		if err := db.AddDiscoveryResult(dr); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	cutoff := now.Add(-365 * 24 * time.Hour)
	old, err := db.FindDiscoveryOlderThan(cutoff)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(old) != 2 {
		t.Fatalf("len = %d, want 2", len(old))
	}
	if old[0].ID != "d0" || old[1].ID != "d1" {
		t.Errorf("order = [%s %s], want oldest first [d0 d1]", old[0].ID, old[1].ID)
	}

	count, err := db.CountDiscoveryOlderThan(cutoff)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

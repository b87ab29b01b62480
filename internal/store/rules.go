package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Rule vocabulary. Threshold semantics depend on the condition: age_days
// counts days since scraped_at/analyzed_at, relevance_below compares
// against FilteredPost.relevanceScore.
const (
	TargetPost            = "Post"
	TargetFilteredPost    = "FilteredPost"
	TargetDiscoveryResult = "DiscoveryResult"

	ConditionAgeDays        = "age_days"
	ConditionRelevanceBelow = "relevance_below"

	ActionArchive = "archive"
	ActionDelete  = "delete"
	ActionExport  = "export"
)

// CleanupRule is a declarative retention policy evaluated by the
// retention engine.
type CleanupRule struct {
	ID         string    `json:"id"`
	TargetType string    `json:"targetType"`
	Condition  string    `json:"condition"`
	Threshold  int       `json:"threshold"`
	Action     string    `json:"action"`
	Enabled    bool      `json:"enabled"`
	LastRun    time.Time `json:"lastRun"`
}

// defaultRules are the baseline retention policies seeded at first
// startup. Operators override them by editing the rows, not constants.
var defaultRules = []CleanupRule{
	{ID: "rule_001", TargetType: TargetPost, Condition: ConditionAgeDays, Threshold: 90, Action: ActionArchive, Enabled: true},
	{ID: "rule_002", TargetType: TargetFilteredPost, Condition: ConditionRelevanceBelow, Threshold: 3, Action: ActionDelete, Enabled: true},
	{ID: "rule_003", TargetType: TargetDiscoveryResult, Condition: ConditionAgeDays, Threshold: 365, Action: ActionExport, Enabled: true},
}

// SeedDefaultRules inserts the baseline rules if absent. Safe to call on
// every startup; rows that already exist (same id) are left untouched.
func (db *DB) SeedDefaultRules() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, r := range defaultRules {
		enabled := 0
		if r.Enabled {
			enabled = 1
		}
		_, err := db.Exec(`
			INSERT OR IGNORE INTO cleanup_rules (id, target_type, condition, threshold, action, enabled, last_run)
			VALUES (?, ?, ?, ?, ?, ?, 0)
		`, r.ID, r.TargetType, r.Condition, r.Threshold, r.Action, enabled)
		if err != nil {
			return fmt.Errorf("seed rule %s: %w", r.ID, err)
		}
	}
	return nil
}

const ruleColumns = `id, target_type, condition, threshold, action, enabled, last_run`

// ListCleanupRules returns the configured rules, optionally only the
// enabled ones.
func (db *DB) ListCleanupRules(enabledOnly bool) ([]CleanupRule, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	query := `SELECT ` + ruleColumns + ` FROM cleanup_rules ORDER BY id`
	if enabledOnly {
		query = `SELECT ` + ruleColumns + ` FROM cleanup_rules WHERE enabled = 1 ORDER BY id`
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list cleanup rules: %w", err)
	}
	defer rows.Close()

	var rules []CleanupRule
	for rows.Next() {
		var r CleanupRule
		var enabled int
		var lastRun int64
		if err := rows.Scan(&r.ID, &r.TargetType, &r.Condition, &r.Threshold, &r.Action, &enabled, &lastRun); err != nil {
			return nil, fmt.Errorf("scan cleanup rule: %w", err)
		}
		r.Enabled = enabled != 0
		r.LastRun = timeOf(lastRun)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// GetCleanupRule returns a rule by id, or nil if absent.
func (db *DB) GetCleanupRule(id string) (*CleanupRule, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var r CleanupRule
	var enabled int
	var lastRun int64
	err := db.QueryRow(`SELECT `+ruleColumns+` FROM cleanup_rules WHERE id = ?`, id).
		Scan(&r.ID, &r.TargetType, &r.Condition, &r.Threshold, &r.Action, &enabled, &lastRun)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cleanup rule: %w", err)
	}
	r.Enabled = enabled != 0
	r.LastRun = timeOf(lastRun)
	return &r, nil
}

// MarkRuleRun records the time a rule was last evaluated.
func (db *DB) MarkRuleRun(id string, t time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.Exec(`UPDATE cleanup_rules SET last_run = ? WHERE id = ?`, msOf(t), id)
	if err != nil {
		return fmt.Errorf("mark rule run %s: %w", id, err)
	}
	return nil
}

package retention

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/socialscraper/graphd/internal/metrics"
	"github.com/socialscraper/graphd/internal/store"
)

// ErrUnsupportedAction is reported when a rule names a (target,
// condition, action) combination the engine does not implement. The rule
// is surfaced in the results rather than silently skipped.
var ErrUnsupportedAction = errors.New("unsupported cleanup action")

// Engine evaluates cleanup rules against the stores. It holds no state
// between runs; every invocation is a fresh pass over current data.
type Engine struct {
	db        *store.DB
	exportDir string
	log       zerolog.Logger
}

// New creates a retention engine. exportDir is where the export action
// writes its JSONL batches.
func New(db *store.DB, exportDir string, log zerolog.Logger) *Engine {
	return &Engine{db: db, exportDir: exportDir, log: log}
}

// RuleResult is the per-rule outcome of a retention pass.
type RuleResult struct {
	RuleID     string `json:"rule_id"`
	TargetType string `json:"targetType"`
	Condition  string `json:"condition"`
	Action     string `json:"action"`
	Threshold  int    `json:"threshold"`
	Affected   int    `json:"affected"`
	Executed   bool   `json:"executed"`
	Error      string `json:"error,omitempty"`
}

// Run evaluates every enabled rule. With dryRun the pass is a read-only
// simulation: it computes the would-be affected counts without mutating
// any store. Otherwise each rule's action is executed and its last_run
// stamped.
func (e *Engine) Run(dryRun bool) ([]RuleResult, error) {
	rules, err := e.db.ListCleanupRules(true)
	if err != nil {
		return nil, fmt.Errorf("load cleanup rules: %w", err)
	}

	start := time.Now()
	results := make([]RuleResult, 0, len(rules))
	for _, rule := range rules {
		res := e.evaluate(rule, dryRun)
		if res.Executed {
			metrics.CleanupAffected.WithLabelValues(rule.ID, rule.Action).Add(float64(res.Affected))
			if err := e.db.MarkRuleRun(rule.ID, time.Now()); err != nil {
				e.log.Warn().Err(err).Str("rule", rule.ID).Msg("retention: stamp last_run failed")
			}
		}
		results = append(results, res)
	}
	metrics.CleanupDuration.Observe(time.Since(start).Seconds())

	e.log.Info().Bool("dry_run", dryRun).Int("rules", len(results)).Msg("retention: pass complete")
	return results, nil
}

func (e *Engine) evaluate(rule store.CleanupRule, dryRun bool) RuleResult {
	res := RuleResult{
		RuleID:     rule.ID,
		TargetType: rule.TargetType,
		Condition:  rule.Condition,
		Action:     rule.Action,
		Threshold:  rule.Threshold,
		Executed:   !dryRun,
	}

	var affected int
	var err error

	switch {
	case rule.TargetType == store.TargetPost &&
		rule.Condition == store.ConditionAgeDays &&
		rule.Action == store.ActionArchive:
		cutoff := time.Now().AddDate(0, 0, -rule.Threshold)
		if dryRun {
			affected, err = e.db.CountPostsOlderThan(cutoff)
		} else {
			affected, err = e.archiveOldPosts(cutoff, rule.Threshold)
		}

	case rule.TargetType == store.TargetFilteredPost &&
		rule.Condition == store.ConditionRelevanceBelow &&
		rule.Action == store.ActionDelete:
		if dryRun {
			affected, err = e.db.CountFilteredBelow(float64(rule.Threshold))
		} else {
			affected, err = e.db.DeleteBelowRelevance(float64(rule.Threshold))
		}

	case rule.TargetType == store.TargetDiscoveryResult &&
		rule.Condition == store.ConditionAgeDays &&
		rule.Action == store.ActionExport:
		cutoff := time.Now().AddDate(0, 0, -rule.Threshold)
		if dryRun {
			affected, err = e.db.CountDiscoveryOlderThan(cutoff)
		} else {
			affected, err = e.exportOldDiscovery(cutoff)
		}

	default:
		err = fmt.Errorf("%s/%s/%s: %w", rule.TargetType, rule.Condition, rule.Action, ErrUnsupportedAction)
	}

	if err != nil {
		res.Executed = false
		res.Error = err.Error()
		e.log.Error().Err(err).Str("rule", rule.ID).Msg("retention: rule failed")
		return res
	}

	res.Affected = affected
	return res
}

// archiveOldPosts archives every post scraped before the cutoff. Each
// post is archived independently: a failure (for example a leftover
// archive row from an interrupted earlier pass) is logged and the pass
// continues with the next post.
func (e *Engine) archiveOldPosts(cutoff time.Time, days int) (int, error) {
	posts, err := e.db.FindPostsOlderThan(cutoff)
	if err != nil {
		return 0, err
	}

	reason := fmt.Sprintf("Auto-archive after %d days", days)
	archived := 0
	for i := range posts {
		if _, err := e.db.ArchivePost(&posts[i], reason); err != nil {
			e.log.Warn().Err(err).Str("post_id", posts[i].ID).Msg("retention: archive failed")
			continue
		}
		archived++
	}

	if archived > 0 {
		e.log.Info().Int("archived", archived).Msg("retention: archived old posts")
	}
	return archived, nil
}

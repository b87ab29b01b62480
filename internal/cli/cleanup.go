package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/socialscraper/graphd/internal/config"
	"github.com/socialscraper/graphd/internal/logging"
	"github.com/socialscraper/graphd/internal/retention"
	"github.com/socialscraper/graphd/internal/store"
)

var cleanupDryRun bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run the retention rules once and report per-rule results",
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "compute affected counts without mutating anything")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SeedDefaultRules(); err != nil {
		return fmt.Errorf("seed default rules: %w", err)
	}

	log := logging.New(cfg.AppEnv)
	eng := retention.New(db, cfg.ExportDir, log)

	results, err := eng.Run(cleanupDryRun)
	if err != nil {
		return err
	}

	for _, r := range results {
		status := "executed"
		if !r.Executed {
			status = "skipped"
		}
		if r.Error != "" {
			status = "failed: " + r.Error
		}
		fmt.Printf("%-10s %-16s %-16s %-8s affected=%-6d %s\n",
			r.RuleID, r.TargetType, r.Condition, r.Action, r.Affected, status)
	}
	return nil
}

// openStore loads config and opens the database, shared by the one-shot
// commands.
func openStore() (config.Config, *store.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return cfg, nil, fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, db, nil
}

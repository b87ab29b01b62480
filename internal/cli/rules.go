package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rulesEnabledOnly bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the configured cleanup rules",
	RunE:  runRules,
}

func init() {
	rulesCmd.Flags().BoolVar(&rulesEnabledOnly, "enabled-only", false, "only show enabled rules")
}

func runRules(cmd *cobra.Command, args []string) error {
	_, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SeedDefaultRules(); err != nil {
		return fmt.Errorf("seed default rules: %w", err)
	}

	rules, err := db.ListCleanupRules(rulesEnabledOnly)
	if err != nil {
		return err
	}

	for _, r := range rules {
		enabled := "enabled"
		if !r.Enabled {
			enabled = "disabled"
		}
		lastRun := "never"
		if !r.LastRun.IsZero() {
			lastRun = r.LastRun.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-10s %-16s %-16s threshold=%-6d %-8s %-9s last-run=%s\n",
			r.ID, r.TargetType, r.Condition, r.Threshold, r.Action, enabled, lastRun)
	}
	return nil
}

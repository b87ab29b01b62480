package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "graphd",
	Short: "Knowledge-graph backend for the social scraper pipeline",
	Long:  "graphd stores curated social-media posts and their derived analyses as a typed graph, answers aggregate queries, and enforces rule-driven retention. Single Go binary with an embedded store.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(rulesCmd)
}

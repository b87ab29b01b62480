package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/socialscraper/graphd/internal/logging"
	"github.com/socialscraper/graphd/internal/service"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print overall store statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := service.New(db, nil, logging.New(cfg.AppEnv))
	stats, err := svc.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("posts:             %d\n", stats.Posts)
	fmt.Printf("filtered posts:    %d\n", stats.FilteredPosts)
	fmt.Printf("discovery results: %d\n", stats.DiscoveryResults)
	fmt.Printf("archived posts:    %d\n", stats.ArchivedPosts)
	fmt.Printf("sentiments:        +%d / -%d / =%d\n",
		stats.Sentiments.Positive, stats.Sentiments.Negative, stats.Sentiments.Neutral)
	fmt.Printf("kols:              %d\n", stats.KOLs)
	fmt.Printf("trends:            %d\n", stats.Trends)
	return nil
}

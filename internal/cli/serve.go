package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/socialscraper/graphd/internal/config"
	"github.com/socialscraper/graphd/internal/logging"
	"github.com/socialscraper/graphd/internal/metrics"
	"github.com/socialscraper/graphd/internal/retention"
	"github.com/socialscraper/graphd/internal/server"
	"github.com/socialscraper/graphd/internal/service"
	"github.com/socialscraper/graphd/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.AppEnv)

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.SeedDefaultRules(); err != nil {
		return fmt.Errorf("seed default rules: %w", err)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	eng := retention.New(db, cfg.ExportDir, log)
	svc := service.New(db, eng, log)
	srv := server.New(svc, VersionString(), log)

	// Periodic retention pass, alongside the manual trigger endpoint.
	sched := cron.New()
	if _, err := sched.AddFunc(cfg.CleanupSchedule, func() {
		if _, err := eng.Run(false); err != nil {
			log.Error().Err(err).Msg("scheduled cleanup failed")
		}
	}); err != nil {
		return fmt.Errorf("cleanup schedule %q: %w", cfg.CleanupSchedule, err)
	}
	sched.Start()
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.ListenAddr()).Str("db", dbPath).Msg("graphd serving")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	<-done
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

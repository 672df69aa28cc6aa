package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mikecalendo/gh-serv/pkg/audit"
	"github.com/mikecalendo/gh-serv/pkg/config"
	"github.com/mikecalendo/gh-serv/pkg/maintenance"
	"github.com/mikecalendo/gh-serv/pkg/server"
	"github.com/mikecalendo/gh-serv/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the git hosting server",
	Long: `Start the git hosting server with the specified configuration.

Examples:
  # Start with default config
  gh-serv run

  # Start with custom config
  gh-serv run --config /etc/gh-serv/config.yaml

  # Override listen address
  gh-serv run --listen 0.0.0.0:8174

  # Validate config without starting
  gh-serv run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	setupLogging(cfg.Logging)

	if runFlags.dryRun {
		fmt.Println("Configuration valid.")
		return nil
	}

	if err := os.MkdirAll(cfg.Git.Root, 0o755); err != nil {
		return fmt.Errorf("failed to create repository root: %w", err)
	}

	var store *audit.Store
	if cfg.Audit.Enabled {
		store, err = audit.Open(cfg.Audit)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer store.Close()
	}

	collector := metrics.NewCollector(cfg.Metrics)
	srv := server.NewServer(cfg, collector, store)

	sweeper := maintenance.New(cfg, collector, store)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start maintenance sweeper: %w", err)
	}
	defer sweeper.Stop()

	watcher := config.NewWatcher(cfgFile, func(newCfg *config.Config) {
		srv.SetConfig(newCfg)
	})
	if err := watcher.Start(); err != nil {
		slog.Warn("config watcher unavailable, reload disabled", "error", err)
	} else {
		defer watcher.Stop()
	}

	return srv.Start(context.Background())
}

func setupLogging(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

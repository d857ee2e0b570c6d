package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mverbruggen/rommelmarkt-zoeker/internal/config"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/export"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/fetch"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/logger"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/storage"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/syncer"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig      string
	flagFullRefresh bool
	flagDryRun      bool
	flagExportJSON  bool
	flagVerbose     bool
)

// NewRootCmd creates the root command with its subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rommelzoeker",
		Short: "Scrape Belgian flea market listings from rommelmarkten.be",
		Long: `A polite scraper for rommelmarkten.be flea market listings.
Crawls the configured provinces and months, stores events in SQLite,
and skips events it has already seen.`,
		SilenceUsage: true,
		RunE:         runScrape,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	cmd.Flags().BoolVar(&flagFullRefresh, "full-refresh", false, "Re-scrape events that are already stored")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Discover events without writing to the database")
	cmd.Flags().BoolVar(&flagExportJSON, "export-json", false, "Write a JSON export after the run")

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newExportCmd())

	return cmd
}

// loadConfig resolves the --config flag, falling back to defaults when no
// file is given, and wires up the logger.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	level := logger.Level(cfg.Logging.Level)
	if flagVerbose {
		level = logger.LevelDebug
	}
	out := io.Writer(os.Stderr)
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
	}
	logger.SetDefault(logger.New(level, out))

	return cfg, nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	mode := syncer.ModeIncremental
	if flagFullRefresh {
		mode = syncer.ModeFullRefresh
	}

	var recorder fetch.Recorder = store
	if flagDryRun {
		recorder = nil
	}
	client := fetch.New(cfg.Scraping, recorder)
	summary, err := syncer.New(cfg, client, store, mode, flagDryRun).Run()
	if err != nil {
		return fmt.Errorf("scrape run: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Scrape complete: %s\n", summary)

	counters, timings := logger.MetricsSnapshot()
	if stats, ok := timings["fetch.request"]; ok {
		logger.Info("run metrics", logger.Fields{
			"requests":      stats.Count,
			"avg_fetch_ms":  stats.Average.Milliseconds(),
			"events_new":    counters["events.inserted"],
			"events_known":  counters["events.skipped"],
			"events_failed": counters["events.errored"],
		})
	}

	if flagExportJSON && !flagDryRun {
		events, err := store.AllEvents()
		if err != nil {
			return fmt.Errorf("reading events for export: %w", err)
		}
		path, err := export.WriteJSON(cfg.Storage.JSONExportPath, "", events)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d events to %s\n", len(events), path)
	}
	return nil
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}

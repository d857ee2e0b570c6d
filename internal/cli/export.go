package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mverbruggen/rommelmarkt-zoeker/internal/export"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/storage"
)

var (
	flagExportFormat string
	flagExportOut    string
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored events to a file",
		Long: `Export all stored events to the configured export directory,
either as a JSON document or as an iCalendar (.ics) feed.`,
		RunE: runExport,
	}

	cmd.Flags().StringVar(&flagExportFormat, "format", "json", "Export format: json or ics")
	cmd.Flags().StringVar(&flagExportOut, "out", "", "Output filename (default: timestamped)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	events, err := store.AllEvents()
	if err != nil {
		return fmt.Errorf("reading events: %w", err)
	}

	var path string
	switch flagExportFormat {
	case "json":
		path, err = export.WriteJSON(cfg.Storage.JSONExportPath, flagExportOut, events)
	case "ics":
		path, err = export.WriteICS(cfg.Storage.JSONExportPath, flagExportOut, events)
	default:
		return fmt.Errorf("invalid format: %s (must be 'json' or 'ics')", flagExportFormat)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d events to %s\n", len(events), path)
	return nil
}

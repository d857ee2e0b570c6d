package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mverbruggen/rommelmarkt-zoeker/internal/event"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/storage"
)

var (
	flagListGemeente string
	flagListFrom     string
	flagListTo       string
	flagListFormat   string
	flagListSort     string
	flagListAll      bool
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored flea market events",
		Long: `List events from the local database, optionally filtered by
municipality or date range. Past events are hidden unless --all is given.`,
		RunE: runList,
	}

	cmd.Flags().StringVar(&flagListGemeente, "gemeente", "", "Filter by municipality")
	cmd.Flags().StringVar(&flagListFrom, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flagListTo, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flagListFormat, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&flagListSort, "sort", "date", "Sort order: date, gemeente, or naam")
	cmd.Flags().BoolVar(&flagListAll, "all", false, "Include events whose date has passed")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	format := OutputFormat(strings.ToLower(flagListFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagListFormat)
	}
	if (flagListFrom == "") != (flagListTo == "") {
		return fmt.Errorf("--from and --to must be given together")
	}

	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	events, err := queryEvents(store)
	if err != nil {
		return fmt.Errorf("querying events: %w", err)
	}

	if !flagListAll {
		events = upcomingOnly(events)
	}
	if err := sortEvents(events, SortOrder(strings.ToLower(flagListSort))); err != nil {
		return err
	}

	return WriteEvents(cmd.OutOrStdout(), events, format, flagVerbose)
}

func queryEvents(store *storage.Store) ([]*event.Event, error) {
	switch {
	case flagListGemeente != "":
		return store.EventsByMunicipality(flagListGemeente)
	case flagListFrom != "":
		return store.EventsByDateRange(flagListFrom, flagListTo)
	default:
		return store.AllEvents()
	}
}

func upcomingOnly(events []*event.Event) []*event.Event {
	kept := events[:0]
	for _, evt := range events {
		if !evt.IsPast() {
			kept = append(kept, evt)
		}
	}
	return kept
}

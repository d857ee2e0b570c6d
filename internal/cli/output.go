package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mverbruggen/rommelmarkt-zoeker/internal/event"
)

// OutputFormat specifies the list output format.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// listResult is the JSON envelope for list output.
type listResult struct {
	ListedAt   time.Time      `json:"listed_at"`
	EventCount int            `json:"event_count"`
	Events     []*event.Event `json:"events"`
}

// WriteEvents writes events in the requested format. Text output is one
// line per event with extra detail lines in verbose mode.
func WriteEvents(w io.Writer, events []*event.Event, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(&listResult{
			ListedAt:   time.Now().UTC(),
			EventCount: len(events),
			Events:     events,
		})
	case FormatText:
		return writeText(w, events, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeText(w io.Writer, events []*event.Event, verbose bool) error {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	for _, evt := range events {
		fmt.Fprintf(w, "%s  %s (%s)\n", displayDate(evt), evt.Name, evt.Municipality)
		if verbose {
			if evt.StartTime != "" {
				times := evt.StartTime
				if evt.EndTime != "" {
					times += " - " + evt.EndTime
				}
				fmt.Fprintf(w, "            %s\n", times)
			}
			if evt.Address != "" {
				fmt.Fprintf(w, "            %s, %s %s\n", evt.Address, evt.PostalCode, evt.Municipality)
			}
			if evt.Organizer != "" {
				fmt.Fprintf(w, "            Organisator: %s\n", evt.Organizer)
			}
			fmt.Fprintf(w, "            %s\n", evt.SourceURL)
		}
	}
	fmt.Fprintf(w, "\nTotal: %d events\n", len(events))
	return nil
}

// displayDate renders the event date column, padding unknown dates so the
// listing stays aligned.
func displayDate(evt *event.Event) string {
	if evt.Date == "" {
		return "????-??-??"
	}
	return evt.Date
}

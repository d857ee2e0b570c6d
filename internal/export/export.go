// Package export writes post-run snapshots of the stored events: a JSON
// document with an export-metadata envelope, and an iCalendar feed that
// can be subscribed to from a calendar client.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mverbruggen/rommelmarkt-zoeker/internal/event"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/logger"
)

// Metadata describes one JSON export.
type Metadata struct {
	ExportedAt  time.Time `json:"exported_at"`
	TotalEvents int       `json:"total_events"`
	Source      string    `json:"source"`
}

// Document is the top-level JSON export structure.
type Document struct {
	Metadata Metadata       `json:"metadata"`
	Events   []*event.Event `json:"events"`
}

// WriteJSON writes all events to a JSON file under dir and returns the
// full path. An empty filename gets a timestamped default.
func WriteJSON(dir, filename string, events []*event.Event) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	if filename == "" {
		filename = fmt.Sprintf("rommelmarkten_%s.json", time.Now().Format("20060102_150405"))
	}
	path := filepath.Join(dir, filename)

	doc := Document{
		Metadata: Metadata{
			ExportedAt:  time.Now().UTC(),
			TotalEvents: len(events),
			Source:      "rommelmarkten.be",
		},
		Events: events,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}

	logger.Info("exported events to JSON", logger.Fields{"path": path, "events": len(events)})
	return path, nil
}

// WriteICS writes all events as a single iCalendar file under dir and
// returns the full path.
func WriteICS(dir, filename string, events []*event.Event) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	if filename == "" {
		filename = fmt.Sprintf("rommelmarkten_%s.ics", time.Now().Format("20060102_150405"))
	}
	path := filepath.Join(dir, filename)

	if err := os.WriteFile(path, []byte(GenerateICS(events)), 0o644); err != nil {
		return "", fmt.Errorf("writing calendar: %w", err)
	}

	logger.Info("exported events to iCalendar", logger.Fields{"path": path, "events": len(events)})
	return path, nil
}

// GenerateICS renders one VCALENDAR with a VEVENT per event. Events
// whose date cannot be parsed are left out.
func GenerateICS(events []*event.Event) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//Rommelmarkt Zoeker//rommelmarkt-zoeker//NL\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")

	stamp := formatICSTime(time.Now().UTC()) + "Z"
	for _, evt := range events {
		writeVEvent(&ics, evt, stamp)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeVEvent(ics *strings.Builder, evt *event.Event, stamp string) {
	date := event.ParseDate(evt.Date)
	if date.IsZero() {
		logger.Debug("skipping event without usable date", logger.Fields{"id": evt.ID})
		return
	}

	start := combine(date, evt.StartTime, 9, 0)
	end := combine(date, evt.EndTime, 17, 0)
	if !end.After(start) {
		end = start.Add(8 * time.Hour)
	}

	ics.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(ics, "UID:%d@rommelmarkten.be\r\n", evt.ID)
	fmt.Fprintf(ics, "DTSTAMP:%s\r\n", stamp)

	// Floating local times: market hours are Belgian wall-clock times.
	fmt.Fprintf(ics, "DTSTART:%s\r\n", formatICSTime(start))
	fmt.Fprintf(ics, "DTEND:%s\r\n", formatICSTime(end))

	fmt.Fprintf(ics, "SUMMARY:%s\r\n", escapeICS(evt.Name))

	location := evt.Municipality
	if evt.Address != "" {
		location = evt.Address + ", " + location
	}
	if evt.VenueName != "" {
		location = evt.VenueName + ", " + location
	}
	if location != "" {
		fmt.Fprintf(ics, "LOCATION:%s\r\n", escapeICS(location))
	}

	if evt.Description != "" {
		fmt.Fprintf(ics, "DESCRIPTION:%s\r\n", escapeICS(evt.Description))
	}
	if evt.SourceURL != "" {
		fmt.Fprintf(ics, "URL:%s\r\n", evt.SourceURL)
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

// combine builds a wall-clock timestamp from an event date and an "HH:MM"
// time string, falling back to the given defaults.
func combine(date time.Time, hhmm string, defHour, defMin int) time.Time {
	hour, min := defHour, defMin
	if t, err := time.Parse("15:04", hhmm); err == nil {
		hour, min = t.Hour(), t.Minute()
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, time.UTC)
}

// formatICSTime formats a time as an iCalendar datetime without zone
// designator.
func formatICSTime(t time.Time) string {
	return t.Format("20060102T150405")
}

// escapeICS escapes special characters per RFC 5545.
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

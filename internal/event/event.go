package event

import (
	"fmt"
	"time"
)

// Event represents a single rommelmarkt (flea market) occurrence as listed
// on rommelmarkten.be. ID is the numeric identifier the site assigns in the
// detail URL and is the primary key in storage.
type Event struct {
	ID           int      `json:"id"`
	Name         string   `json:"naam"`
	Municipality string   `json:"gemeente,omitempty"`
	PostalCode   string   `json:"postcode,omitempty"`
	Address      string   `json:"adres,omitempty"`
	VenueName    string   `json:"locatie_naam,omitempty"`
	Date         string   `json:"datum,omitempty"`      // ISO date "2006-01-02"
	StartTime    string   `json:"start_tijd,omitempty"` // "HH:MM"
	EndTime      string   `json:"eind_tijd,omitempty"`  // "HH:MM"
	Types        []string `json:"types,omitempty"`
	EntryPrice   *float64 `json:"inkom_prijs,omitempty"`
	StallPrice   *float64 `json:"standplaats_prijs,omitempty"`
	Organizer    string   `json:"organisator,omitempty"`
	Phone        string   `json:"telefoon,omitempty"`
	Email        string   `json:"email,omitempty"`
	Website      string   `json:"website,omitempty"`
	Description  string   `json:"beschrijving,omitempty"`
	ImageURL     string   `json:"afbeelding_url,omitempty"`
	SourceURL    string   `json:"source_url"`

	FirstScrapedAt time.Time `json:"first_scraped_at,omitzero"`
	LastUpdatedAt  time.Time `json:"last_updated_at,omitzero"`
}

// Validate reports whether the event carries the fields required for
// persistence. An event without a positive ID or a name must never reach
// storage.
func (e *Event) Validate() error {
	if e.ID <= 0 {
		return fmt.Errorf("event has no id (got %d)", e.ID)
	}
	if e.Name == "" {
		return fmt.Errorf("event %d has no name", e.ID)
	}
	return nil
}

// LogStatus classifies the outcome of one fetch attempt.
type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogError   LogStatus = "error"
	LogSkipped LogStatus = "skipped"
)

// ScrapeLogEntry is one append-only audit row describing a single fetch
// attempt or skip decision. Entries are never updated or deleted.
type ScrapeLogEntry struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
	Status    LogStatus `json:"status"`
	Message   string    `json:"message,omitempty"`
}

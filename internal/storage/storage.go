package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mverbruggen/rommelmarkt-zoeker/internal/event"
)

// ErrNotFound is returned by GetEvent for an unknown event id.
var ErrNotFound = errors.New("event not found")

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY,
    naam TEXT NOT NULL,
    gemeente TEXT,
    postcode TEXT,
    adres TEXT,
    locatie_naam TEXT,
    datum TEXT,
    start_tijd TEXT,
    eind_tijd TEXT,
    types TEXT NOT NULL DEFAULT '[]',
    inkom_prijs REAL,
    standplaats_prijs REAL,
    organisator TEXT,
    telefoon TEXT,
    email TEXT,
    website TEXT,
    beschrijving TEXT,
    afbeelding_url TEXT,
    source_url TEXT,
    first_scraped_at TEXT NOT NULL,
    last_updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_datum ON events(datum);
CREATE INDEX IF NOT EXISTS idx_events_gemeente ON events(gemeente);
CREATE INDEX IF NOT EXISTS idx_events_postcode ON events(postcode);

CREATE TABLE IF NOT EXISTS scrape_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    status TEXT NOT NULL,
    message TEXT
);
`

// Store is the SQLite-backed event store. A run owns it exclusively;
// no concurrent writers are assumed.
type Store struct {
	db *sql.DB

	// now is replaced in tests to control provenance timestamps.
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the
// schema. The parent directory is created when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertEvent inserts or updates an event in one atomic statement. On
// insert both first_scraped_at and last_updated_at are set to now; on
// update every mutable column is overwritten and last_updated_at bumped
// while first_scraped_at is preserved. Events failing validation are
// rejected before touching the database.
func (s *Store) UpsertEvent(evt *event.Event) error {
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid event: %w", err)
	}

	types, err := json.Marshal(evt.Types)
	if err != nil {
		return fmt.Errorf("encoding types for event %d: %w", evt.ID, err)
	}

	now := s.now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(`
		INSERT INTO events (
			id, naam, gemeente, postcode, adres, locatie_naam,
			datum, start_tijd, eind_tijd, types,
			inkom_prijs, standplaats_prijs,
			organisator, telefoon, email, website,
			beschrijving, afbeelding_url, source_url,
			first_scraped_at, last_updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			naam = excluded.naam,
			gemeente = excluded.gemeente,
			postcode = excluded.postcode,
			adres = excluded.adres,
			locatie_naam = excluded.locatie_naam,
			datum = excluded.datum,
			start_tijd = excluded.start_tijd,
			eind_tijd = excluded.eind_tijd,
			types = excluded.types,
			inkom_prijs = excluded.inkom_prijs,
			standplaats_prijs = excluded.standplaats_prijs,
			organisator = excluded.organisator,
			telefoon = excluded.telefoon,
			email = excluded.email,
			website = excluded.website,
			beschrijving = excluded.beschrijving,
			afbeelding_url = excluded.afbeelding_url,
			source_url = excluded.source_url,
			last_updated_at = excluded.last_updated_at`,
		evt.ID, evt.Name, evt.Municipality, evt.PostalCode, evt.Address, evt.VenueName,
		evt.Date, evt.StartTime, evt.EndTime, string(types),
		nullFloat(evt.EntryPrice), nullFloat(evt.StallPrice),
		evt.Organizer, evt.Phone, evt.Email, evt.Website,
		evt.Description, evt.ImageURL, evt.SourceURL,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting event %d: %w", evt.ID, err)
	}
	return nil
}

// EventExists reports whether an event with the given id is stored.
func (s *Store) EventExists(id int) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM events WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking event %d: %w", id, err)
	}
	return true, nil
}

// GetEvent loads one event by id, or ErrNotFound.
func (s *Store) GetEvent(id int) (*event.Event, error) {
	row := s.db.QueryRow(selectColumns+` FROM events WHERE id = ?`, id)
	evt, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading event %d: %w", id, err)
	}
	return evt, nil
}

// AllEvents returns every stored event ordered by date.
func (s *Store) AllEvents() ([]*event.Event, error) {
	return s.queryEvents(selectColumns + ` FROM events ORDER BY datum, id`)
}

// EventsByMunicipality returns events whose gemeente matches the given
// name (substring, case-insensitive), ordered by date.
func (s *Store) EventsByMunicipality(municipality string) ([]*event.Event, error) {
	return s.queryEvents(
		selectColumns+` FROM events WHERE gemeente LIKE ? ORDER BY datum, id`,
		"%"+municipality+"%")
}

// EventsByDateRange returns events with an ISO date within [start, end].
func (s *Store) EventsByDateRange(start, end string) ([]*event.Event, error) {
	return s.queryEvents(
		selectColumns+` FROM events WHERE datum BETWEEN ? AND ? ORDER BY datum, id`,
		start, end)
}

// CountEvents returns the number of stored events.
func (s *Store) CountEvents() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return count, nil
}

// AppendLog appends one scrape audit entry. Entries are never updated.
func (s *Store) AppendLog(entry event.ScrapeLogEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO scrape_log (url, timestamp, status, message) VALUES (?, ?, ?, ?)`,
		entry.URL, entry.Timestamp.UTC().Format(time.RFC3339), string(entry.Status), entry.Message)
	if err != nil {
		return fmt.Errorf("appending scrape log: %w", err)
	}
	return nil
}

// LogEntries returns the audit log in insertion order.
func (s *Store) LogEntries() ([]event.ScrapeLogEntry, error) {
	rows, err := s.db.Query(`SELECT url, timestamp, status, message FROM scrape_log ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading scrape log: %w", err)
	}
	defer rows.Close()

	var entries []event.ScrapeLogEntry
	for rows.Next() {
		var entry event.ScrapeLogEntry
		var ts, status string
		var message sql.NullString
		if err := rows.Scan(&entry.URL, &ts, &status, &message); err != nil {
			return nil, fmt.Errorf("scanning scrape log row: %w", err)
		}
		entry.Timestamp, _ = time.Parse(time.RFC3339, ts)
		entry.Status = event.LogStatus(status)
		entry.Message = message.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

const selectColumns = `SELECT
	id, naam, gemeente, postcode, adres, locatie_naam,
	datum, start_tijd, eind_tijd, types,
	inkom_prijs, standplaats_prijs,
	organisator, telefoon, email, website,
	beschrijving, afbeelding_url, source_url,
	first_scraped_at, last_updated_at`

func (s *Store) queryEvents(query string, args ...interface{}) ([]*event.Event, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row scanner) (*event.Event, error) {
	var (
		evt                  event.Event
		gemeente, postcode   sql.NullString
		adres, locatieNaam   sql.NullString
		datum, start, eind   sql.NullString
		typesJSON            string
		inkom, standplaats   sql.NullFloat64
		organisator, tel     sql.NullString
		email, website       sql.NullString
		beschrijving, afb    sql.NullString
		sourceURL            sql.NullString
		firstScraped, lastUp string
	)

	err := row.Scan(
		&evt.ID, &evt.Name, &gemeente, &postcode, &adres, &locatieNaam,
		&datum, &start, &eind, &typesJSON,
		&inkom, &standplaats,
		&organisator, &tel, &email, &website,
		&beschrijving, &afb, &sourceURL,
		&firstScraped, &lastUp,
	)
	if err != nil {
		return nil, err
	}

	evt.Municipality = gemeente.String
	evt.PostalCode = postcode.String
	evt.Address = adres.String
	evt.VenueName = locatieNaam.String
	evt.Date = datum.String
	evt.StartTime = start.String
	evt.EndTime = eind.String
	evt.Organizer = organisator.String
	evt.Phone = tel.String
	evt.Email = email.String
	evt.Website = website.String
	evt.Description = beschrijving.String
	evt.ImageURL = afb.String
	evt.SourceURL = sourceURL.String

	if err := json.Unmarshal([]byte(typesJSON), &evt.Types); err != nil {
		evt.Types = nil
	}
	if inkom.Valid {
		evt.EntryPrice = &inkom.Float64
	}
	if standplaats.Valid {
		evt.StallPrice = &standplaats.Float64
	}
	evt.FirstScrapedAt, _ = time.Parse(time.RFC3339, firstScraped)
	evt.LastUpdatedAt, _ = time.Parse(time.RFC3339, lastUp)

	return &evt, nil
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

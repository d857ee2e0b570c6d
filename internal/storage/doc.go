// Package storage persists events and the scrape audit log in SQLite.
//
// The schema is embedded and applied on Open, so a fresh database file is
// usable immediately. Event writes are single atomic upserts: an insert
// sets both provenance timestamps, a conflicting update overwrites the
// mutable columns and bumps last_updated_at while first_scraped_at keeps
// its original value. The scrape_log table is append-only.
package storage

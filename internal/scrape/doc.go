// Package scrape parses rommelmarkten.be listing and detail pages.
//
// Listing pages enumerate events for one province and month and may span
// multiple pages; ParseListing extracts the event links and whether a next
// page exists. Detail pages describe a single event; ParseDetail extracts a
// full event record, treating everything beyond the id and name as
// best-effort. The markup carries no stable ids or classes for most fields,
// so extraction leans on text patterns the site has proven to keep.
package scrape

// Package event defines the rommelmarkt event record and the scrape audit
// log entry shared by the scraper, storage, and export packages.
//
// Serialized field names mirror the rommelmarkten.be vocabulary (naam,
// gemeente, standplaats) so exports line up with the source site and the
// on-disk schema. Optional text fields use the empty string for "not present
// on the page"; optional prices use nil.
package event

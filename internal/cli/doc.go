// Package cli implements the rommelzoeker command line interface: the
// root scrape command plus the list and export subcommands.
package cli

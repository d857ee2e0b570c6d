// Package syncer drives the crawl: it walks the configured province/month
// matrix, discovers events through listing pages, and reconciles each
// candidate against the store.
//
// The engine decides insert vs. update vs. skip per event id. In
// incremental mode an id that is already stored is skipped without a detail
// fetch, trading staleness for crawl politeness; full-refresh mode
// re-extracts every candidate. Per-item failures are logged and never halt
// the run; only configuration and storage failures abort it.
package syncer

import (
	"fmt"
	"strings"
	"time"

	"github.com/mverbruggen/rommelmarkt-zoeker/internal/config"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/event"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/logger"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/scrape"
)

// Mode selects the reconciliation policy for ids that already exist.
type Mode string

const (
	ModeIncremental Mode = "incremental"
	ModeFullRefresh Mode = "full_refresh"
)

// maxListingPages bounds the pagination loop per (province, month) so a
// pathological next-link cycle cannot run forever.
const maxListingPages = 50

// Store is the persistence surface the engine needs. *storage.Store
// satisfies it; tests use an in-memory fake.
type Store interface {
	UpsertEvent(evt *event.Event) error
	EventExists(id int) (bool, error)
	AppendLog(entry event.ScrapeLogEntry) error
}

// Fetcher issues one polite GET. *fetch.Client satisfies it.
type Fetcher interface {
	Get(url string) (string, int, error)
}

// Summary reports what a run did.
type Summary struct {
	Found    int `json:"found"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Errored  int `json:"errored"`
}

func (s *Summary) String() string {
	return fmt.Sprintf("found %d, inserted %d, updated %d, skipped %d, errored %d",
		s.Found, s.Inserted, s.Updated, s.Skipped, s.Errored)
}

// Syncer is the crawl orchestrator. It owns the store for the duration of
// one run and executes strictly sequentially.
type Syncer struct {
	cfg     *config.Config
	fetcher Fetcher
	store   Store
	mode    Mode
	dryRun  bool

	// now is replaced in tests.
	now func() time.Time
}

// New creates a sync engine. mode must be ModeIncremental or
// ModeFullRefresh; dryRun suppresses all upserts while still logging what
// a real run would do.
func New(cfg *config.Config, fetcher Fetcher, store Store, mode Mode, dryRun bool) *Syncer {
	return &Syncer{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		mode:    mode,
		dryRun:  dryRun,
		now:     time.Now,
	}
}

// Run crawls every configured (province, month) pair and returns the run
// summary. It returns an error only for conditions that invalidate the
// whole run (storage failure); per-page and per-event failures are counted
// in the summary instead.
func (s *Syncer) Run() (*Summary, error) {
	months := s.cfg.MonthsToScrape(s.now())
	provinces := s.cfg.Target.Provinces

	logger.Info("starting crawl", logger.Fields{
		"provinces": strings.Join(provinces, ","),
		"months":    strings.Join(months, ","),
		"mode":      string(s.mode),
		"dry_run":   s.dryRun,
	})

	summary := &Summary{}
	for _, province := range provinces {
		for _, month := range months {
			if err := s.syncProvinceMonth(province, month, summary); err != nil {
				return summary, err
			}
		}
	}

	logger.Info("crawl complete", logger.Fields{
		"found": summary.Found, "inserted": summary.Inserted,
		"updated": summary.Updated, "skipped": summary.Skipped,
		"errored": summary.Errored,
	})
	return summary, nil
}

// syncProvinceMonth walks all listing pages for one pair and reconciles
// every discovered candidate.
func (s *Syncer) syncProvinceMonth(province, month string, summary *Summary) error {
	links, ok := s.collectCandidates(province, month, summary)
	if !ok {
		return nil
	}
	if len(links) == 0 {
		logger.Warn("no events found", logger.Fields{"province": province, "month": month})
		return nil
	}

	logger.Info("listing discovered", logger.Fields{
		"province": province, "month": month, "events": len(links),
	})

	for _, link := range links {
		summary.Found++
		if err := s.reconcile(link, summary); err != nil {
			return err
		}
	}
	return nil
}

// collectCandidates fetches all listing pages for a (province, month) pair
// and returns the candidate links, deduplicated across pages. ok is false
// when the first listing page could not be fetched.
func (s *Syncer) collectCandidates(province, month string, summary *Summary) ([]scrape.EventLink, bool) {
	url := listingURL(s.cfg.Target.BaseURL, province, month)

	var links []scrape.EventLink
	seen := make(map[int]bool)

	for page := 1; ; page++ {
		html, _, err := s.fetcher.Get(url)
		if err != nil {
			logger.Error("listing fetch failed", logger.Fields{
				"province": province, "month": month, "url": url,
			}, err)
			summary.Errored++
			return links, page > 1
		}

		parsed, err := scrape.ParseListing(strings.NewReader(html), s.cfg.Target.BaseURL)
		if err != nil {
			logger.Error("listing parse failed", logger.Fields{"url": url}, err)
			summary.Errored++
			return links, page > 1
		}

		for _, link := range parsed.Links {
			if seen[link.ID] {
				continue
			}
			seen[link.ID] = true
			links = append(links, link)
		}

		if !parsed.HasNextPage || parsed.NextPageURL == url {
			return links, true
		}
		if page >= maxListingPages {
			logger.Warn("pagination limit reached", logger.Fields{
				"province": province, "month": month, "pages": page,
			})
			return links, true
		}
		url = parsed.NextPageURL
	}
}

// reconcile applies the mode policy to one candidate. Returns an error
// only on storage failure.
func (s *Syncer) reconcile(link scrape.EventLink, summary *Summary) error {
	exists, err := s.store.EventExists(link.ID)
	if err != nil {
		return fmt.Errorf("checking event %d: %w", link.ID, err)
	}

	// Incremental runs treat stored events as settled: skip without
	// fetching. Content drift after first scrape is only picked up by a
	// full refresh.
	if exists && s.mode == ModeIncremental {
		logger.Debug("skipping existing event", logger.Fields{"id": link.ID})
		logger.IncrCounter("events.skipped")
		summary.Skipped++
		s.appendLog(event.ScrapeLogEntry{
			URL:       link.URL,
			Timestamp: s.now().UTC(),
			Status:    event.LogSkipped,
			Message:   "already stored",
		})
		return nil
	}

	html, _, err := s.fetcher.Get(link.URL)
	if err != nil {
		// The fetch layer already appended the error log entry.
		logger.Error("detail fetch failed", logger.Fields{"id": link.ID, "url": link.URL}, err)
		logger.IncrCounter("events.errored")
		summary.Errored++
		return nil
	}

	evt, err := scrape.ParseDetail(strings.NewReader(html), link.URL, link.ID)
	if err != nil {
		logger.Error("detail extraction failed", logger.Fields{"id": link.ID, "url": link.URL}, err)
		logger.IncrCounter("events.errored")
		summary.Errored++
		s.appendLog(event.ScrapeLogEntry{
			URL:       link.URL,
			Timestamp: s.now().UTC(),
			Status:    event.LogError,
			Message:   err.Error(),
		})
		return nil
	}

	if s.dryRun {
		action := "insert"
		if exists {
			action = "update"
		}
		logger.Info("dry run: would "+action, logger.Fields{"id": evt.ID, "name": evt.Name})
		if exists {
			summary.Updated++
		} else {
			summary.Inserted++
		}
		return nil
	}

	if err := s.store.UpsertEvent(evt); err != nil {
		return fmt.Errorf("persisting event %d: %w", evt.ID, err)
	}

	if exists {
		logger.Info("updated event", logger.Fields{"id": evt.ID, "name": evt.Name, "gemeente": evt.Municipality})
		logger.IncrCounter("events.updated")
		summary.Updated++
	} else {
		logger.Info("added event", logger.Fields{"id": evt.ID, "name": evt.Name, "gemeente": evt.Municipality})
		logger.IncrCounter("events.inserted")
		summary.Inserted++
	}
	return nil
}

func (s *Syncer) appendLog(entry event.ScrapeLogEntry) {
	if s.dryRun {
		return
	}
	if err := s.store.AppendLog(entry); err != nil {
		logger.Warn("appending scrape log entry failed", logger.Fields{"url": entry.URL, "error": err.Error()})
	}
}

// listingURL builds the listing page URL for one province and month,
// following the site's own URL structure.
func listingURL(baseURL, province, month string) string {
	return fmt.Sprintf("%s/rommelmarkten-tijdens-%s-in-%s",
		strings.TrimSuffix(baseURL, "/"), month, province)
}

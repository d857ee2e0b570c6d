// Package fetch implements the polite HTTP layer of the scraper.
//
// All outbound traffic goes through a single Client that enforces a global
// minimum delay between requests, retries transient failures with the same
// delay applied, and appends one audit log entry per completed fetch. The
// crawl targets a single site, so the rate limit is global rather than
// per-host.
package fetch

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mverbruggen/rommelmarkt-zoeker/internal/config"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/event"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/logger"
)

// Recorder receives one audit entry per completed fetch or skip decision.
type Recorder interface {
	AppendLog(entry event.ScrapeLogEntry) error
}

// ClientError reports a 4xx response. Client errors are never retried.
type ClientError struct {
	URL        string
	StatusCode int
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error fetching %s: status %d", e.URL, e.StatusCode)
}

// FetchError reports a transient failure (network error, timeout, or 5xx)
// that persisted through all retry attempts.
type FetchError struct {
	URL        string
	StatusCode int // 0 when the failure happened before a response arrived
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: status %d after %d attempts", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetching %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client issues rate-limited, retried GET requests against the target site.
// It is not safe for concurrent use; the crawl is strictly sequential.
type Client struct {
	http       *http.Client
	userAgent  string
	delay      time.Duration
	maxRetries int
	recorder   Recorder

	lastRequestEnd time.Time

	// sleep is replaced in tests to avoid real politeness waits.
	sleep func(time.Duration)
}

// New creates a fetch client from the scraping configuration. The recorder
// may be nil when no audit trail is wanted (dry-run tooling).
func New(cfg config.ScrapingConfig, recorder Recorder) *Client {
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout()},
		userAgent:  cfg.UserAgent,
		delay:      cfg.Delay(),
		maxRetries: cfg.MaxRetries,
		recorder:   recorder,
		sleep:      time.Sleep,
	}
}

// Get fetches url and returns the body and HTTP status code.
//
// Transient failures (connection errors, timeouts, 5xx) are retried up to
// MaxRetries additional attempts with the politeness delay applied between
// them; the final failure surfaces as *FetchError. A 4xx response surfaces
// immediately as *ClientError. Exactly one ScrapeLogEntry is appended per
// call, recording the final outcome.
func (c *Client) Get(url string) (string, int, error) {
	var (
		body     string
		status   int
		attempts int
	)

	operation := func() error {
		c.waitForRateLimit()
		attempts++

		start := time.Now()
		b, s, err := c.doRequest(url)
		c.lastRequestEnd = time.Now()
		logger.RecordTiming("fetch.request", time.Since(start))

		status = s
		if err != nil {
			logger.Debug("request attempt failed", logger.Fields{
				"url": url, "attempt": attempts, "error": err.Error(),
			})
			return &FetchError{URL: url, Attempts: attempts, Err: err}
		}

		switch {
		case s >= 500:
			logger.Debug("request attempt failed", logger.Fields{
				"url": url, "attempt": attempts, "status": s,
			})
			return &FetchError{URL: url, StatusCode: s, Attempts: attempts}
		case s >= 400:
			return backoff.Permanent(&ClientError{URL: url, StatusCode: s})
		}

		body = b
		return nil
	}

	// The politeness wait inside each attempt already spaces retries out,
	// so the retry policy itself adds no extra pause.
	policy := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(c.maxRetries))
	err := backoff.Retry(operation, policy)

	entry := event.ScrapeLogEntry{
		URL:       url,
		Timestamp: time.Now().UTC(),
		Status:    event.LogSuccess,
	}
	if err != nil {
		entry.Status = event.LogError
		entry.Message = err.Error()
	}
	c.appendLog(entry)

	if err != nil {
		return "", status, err
	}
	return body, status, nil
}

// waitForRateLimit blocks until the configured delay has passed since the
// end of the previous request.
func (c *Client) waitForRateLimit() {
	if c.delay <= 0 || c.lastRequestEnd.IsZero() {
		return
	}
	elapsed := time.Since(c.lastRequestEnd)
	if elapsed < c.delay {
		c.sleep(c.delay - elapsed)
	}
}

func (c *Client) doRequest(url string) (string, int, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "nl-BE,nl;q=0.9,en;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("reading response body: %w", err)
	}
	return string(data), resp.StatusCode, nil
}

func (c *Client) appendLog(entry event.ScrapeLogEntry) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.AppendLog(entry); err != nil {
		logger.Warn("appending scrape log entry failed", logger.Fields{"url": entry.URL, "error": err.Error()})
	}
}

package scrape

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mverbruggen/rommelmarkt-zoeker/internal/logger"
)

// eventLinkPattern matches event detail hrefs: /rommelmarkt/<id>/<slug>.
var eventLinkPattern = regexp.MustCompile(`/rommelmarkt/(\d+)/([^?#]+)`)

// EventLink points at one event detail page found on a listing page.
type EventLink struct {
	ID   int
	Slug string
	URL  string
}

// ListingPage is the parsed form of one province/month listing page.
type ListingPage struct {
	Links       []EventLink
	HasNextPage bool
	NextPageURL string
}

// ParseListing extracts all event links from a listing page. Links are
// deduplicated by event id (the site pins some events into an extra slot).
// A malformed individual entry is skipped and logged, never fatal for the
// page. Re-parsing the same html yields the same result.
func ParseListing(r io.Reader, baseURL string) (*ListingPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing listing HTML: %w", err)
	}

	page := &ListingPage{}
	seen := make(map[int]bool)

	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		match := eventLinkPattern.FindStringSubmatch(href)
		if match == nil {
			return
		}

		id, err := strconv.Atoi(match[1])
		if err != nil || id <= 0 {
			logger.Debug("skipping malformed event link", logger.Fields{"href": href})
			return
		}
		if seen[id] {
			return
		}
		seen[id] = true

		page.Links = append(page.Links, EventLink{
			ID:   id,
			Slug: strings.TrimSuffix(match[2], "/"),
			URL:  absoluteURL(baseURL, href),
		})
	})

	page.NextPageURL = findNextPage(doc, baseURL)
	page.HasNextPage = page.NextPageURL != ""

	return page, nil
}

// findNextPage locates the pagination continuation link, if any. The site
// marks it with rel="next" on some templates and a "volgende" anchor on
// others.
func findNextPage(doc *goquery.Document, baseURL string) string {
	if href, ok := doc.Find(`a[rel="next"]`).First().Attr("href"); ok && href != "" {
		return absoluteURL(baseURL, href)
	}

	var next string
	doc.Find("a[href]").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		if strings.HasPrefix(text, "volgende") {
			if href, ok := sel.Attr("href"); ok && href != "" {
				next = absoluteURL(baseURL, href)
				return false
			}
		}
		return true
	})
	return next
}

// absoluteURL resolves a possibly relative href against the site base URL.
func absoluteURL(baseURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return strings.TrimSuffix(baseURL, "/") + href
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + href
}

package scrape

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mverbruggen/rommelmarkt-zoeker/internal/cfemail"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/event"
	"github.com/mverbruggen/rommelmarkt-zoeker/internal/logger"
)

// ExtractionError reports a detail page missing a required field. It is
// fatal only for that page; the sync engine logs it and moves on.
type ExtractionError struct {
	URL    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %s", e.URL, e.Reason)
}

// dutchMonthNumbers maps month names and abbreviations as they appear in
// date lines to month numbers.
var dutchMonthNumbers = map[string]time.Month{
	"januari": 1, "jan": 1,
	"februari": 2, "feb": 2,
	"maart": 3, "mrt": 3, "mar": 3,
	"april": 4, "apr": 4,
	"mei":  5,
	"juni": 6, "jun": 6,
	"juli": 7, "jul": 7,
	"augustus": 8, "aug": 8,
	"september": 9, "sep": 9, "sept": 9,
	"oktober": 10, "okt": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

var (
	sectionHeaders = []string{"thema", "waar", "contact", "wanneer", "info", "prijs"}
	dutchDayNames  = []string{
		"maandag", "dinsdag", "woensdag", "donderdag", "vrijdag", "zaterdag", "zondag",
	}

	// knownTypes is the controlled category vocabulary the site uses as
	// badges. Unknown badge labels are still captured verbatim so new
	// categories survive without a code change.
	knownTypes = []string{
		"rommelmarkt", "binnenrommelmarkt", "buitenrommelmarkt",
		"antiekbeurs", "brocante beurs", "brocantebeurs",
		"kinderrommelmarkt", "tweedehandsmarkt", "vlooienmarkt",
		"verzamelbeurs", "curiosamarkt", "garageverkoop",
	}

	datePattern = regexp.MustCompile(`(?i)(?:ma|di|wo|do|vr|za|zo|maandag|dinsdag|woensdag|donderdag|vrijdag|zaterdag|zondag)\s+` +
		`(\d{1,2})\s+` +
		`(jan(?:uari)?|feb(?:ruari)?|mrt|mar(?:t)?|apr(?:il)?|mei|jun(?:i)?|jul(?:i)?|aug(?:ustus)?|sep(?:t(?:ember)?)?|okt(?:ober)?|oct|nov(?:ember)?|dec(?:ember)?)\s+` +
		`(\d{4})`)

	timePattern = regexp.MustCompile(`(\d{1,2})[:.](\d{2})\s*(?:-|–|tot)\s*(\d{1,2})[:.](\d{2})`)

	postalPattern = regexp.MustCompile(`\b(\d{4})\s+([A-Z][A-Za-z\-]+(?:\s*-\s*[A-Za-z]+)?)`)

	streetSuffixes = `straat|laan|plein|weg|baan|dreef|steenweg|lei|kaai|ring|boulevard|dijk|gracht|singel|pad|hof|park|wijk|veld|markt`

	addressPattern = regexp.MustCompile(`(?i)\b([A-Z][a-z]+(?:` + streetSuffixes + `))\s+(\d+[A-Za-z]?)\b`)

	multiwordAddressPattern = regexp.MustCompile(`(?i)\b([A-Z][a-z]+\s+(?:[A-Z]?[a-z]+\s+)*(?:` + streetSuffixes + `))\s+(\d+[A-Za-z]?)\b`)

	organizerPattern = regexp.MustCompile(`(?i)(?:organisator|georganiseerd door|org\.?)[:\s]+([^\n,]+)`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:tel(?:efoon)?|gsm|phone)[.:\s]*(\+?32[\s./\-]?(?:\d[\s./\-]?){8,})`),
		regexp.MustCompile(`(?i)(?:tel(?:efoon)?|gsm|phone)[.:\s]*(0\d[\s./\-]?(?:\d[\s./\-]?){7,})`),
		regexp.MustCompile(`(\+32[\s./\-]?\d[\s./\-]?(?:\d[\s./\-]?){7,})`),
		regexp.MustCompile(`(0\d{1,3}[\s./\-]?\d{2}[\s./\-]?\d{2}[\s./\-]?\d{2})`),
	}

	plainEmailPattern = regexp.MustCompile(`[\w.+\-]+@[\w\-]+\.[\w.\-]+`)

	cfTokenPattern = regexp.MustCompile(`(?i)#([a-f0-9]+)$`)

	slugPostcodePattern = regexp.MustCompile(`\s+\d{4}\s*$`)

	whitespaceRun = regexp.MustCompile(`\s+`)

	badgeClassPattern = regexp.MustCompile(`(?i)badge|theme|tag|label|category`)

	contactTrailPattern = regexp.MustCompile(`(?i)\s*(tel|gsm|email|www|http)`)

	separatorRun = regexp.MustCompile(`[\s./\-]+`)
)

// ParseDetail extracts one event record from a detail page. The id comes
// from the detail URL; name falls back to the URL slug when the markup
// carries no usable title. Missing id or name is fatal for the page, every
// other field is best-effort and left empty when absent.
func ParseDetail(r io.Reader, sourceURL string, id int) (*event.Event, error) {
	if id <= 0 {
		return nil, &ExtractionError{URL: sourceURL, Reason: "no event id"}
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing detail HTML: %w", err)
	}

	// Flattened page text with whitespace runs collapsed; most optional
	// fields are recovered from free text rather than markup structure.
	text := whitespaceRun.ReplaceAllString(doc.Text(), " ")

	name := extractTitle(doc)
	if name == "" {
		name = titleFromSlug(sourceURL)
	}
	if name == "" {
		return nil, &ExtractionError{URL: sourceURL, Reason: "no event name in markup or URL"}
	}

	evt := &event.Event{
		ID:        id,
		Name:      name,
		VenueName: extractVenueName(doc),
		Date:      extractDate(text),
		Types:     extractTypes(doc),
		Organizer: extractOrganizer(text),
		Phone:     extractPhone(text),
		Email:     extractEmail(doc, text, sourceURL),
		Website:   extractWebsite(doc, sourceURL),
		ImageURL:  extractImage(doc, sourceURL),
		SourceURL: sourceURL,

		EntryPrice: extractPrice(text, []string{"inkom", "toegang", "entree", "entrance"}),
		StallPrice: extractPrice(text, []string{"standplaats", "stand", "tafel", "kraam"}),
	}

	evt.StartTime, evt.EndTime = extractTimes(text)
	evt.PostalCode, evt.Municipality = extractPostalAndMunicipality(text)
	evt.Address = extractAddress(text)
	evt.Description = extractDescription(doc)

	return evt, nil
}

// extractTitle pulls the event name from the <title> tag ("Name |
// rommelmarkten.be") or, failing that, the first h3 that is not a section
// header or a map marker.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		if name, _, found := strings.Cut(title, " | "); found {
			return strings.TrimSpace(name)
		}
	}

	var name string
	doc.Find("h3").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text == "" || sel.Find("img").Length() > 0 {
			return true
		}
		lower := strings.ToLower(text)
		for _, header := range sectionHeaders {
			if strings.Contains(lower, header) {
				return true
			}
		}
		name = text
		return false
	})
	return name
}

// titleFromSlug recovers a readable name from the detail URL slug.
func titleFromSlug(sourceURL string) string {
	match := eventLinkPattern.FindStringSubmatch(sourceURL)
	if match == nil {
		return ""
	}
	title := strings.ReplaceAll(match[2], "-", " ")
	title = slugPostcodePattern.ReplaceAllString(title, "")
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}

	words := strings.Fields(title)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// extractVenueName returns the first h4 that is not a date header.
func extractVenueName(doc *goquery.Document) string {
	var venue string
	doc.Find("h4").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return true
		}
		lower := strings.ToLower(text)
		for _, day := range dutchDayNames {
			if strings.Contains(lower, day) {
				return true
			}
		}
		venue = text
		return false
	})
	return venue
}

// extractDate finds a "za 7 feb 2026" style date line and returns it as an
// ISO date, or "" when no valid date is present.
func extractDate(text string) string {
	match := datePattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}

	day, err := strconv.Atoi(match[1])
	if err != nil {
		return ""
	}
	month, ok := dutchMonthNumbers[strings.ToLower(match[2])]
	if !ok {
		return ""
	}
	year, err := strconv.Atoi(match[3])
	if err != nil {
		return ""
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		// A date like "za 31 feb 2026" normalized away; the line was not
		// a real calendar date.
		return ""
	}
	return t.Format("2006-01-02")
}

// extractTimes finds "9:00 - 17:30" or "09.00 tot 17.30" and returns
// normalized HH:MM start and end times.
func extractTimes(text string) (start, end string) {
	match := timePattern.FindStringSubmatch(text)
	if match == nil {
		return "", ""
	}
	startHour, _ := strconv.Atoi(match[1])
	endHour, _ := strconv.Atoi(match[3])
	return fmt.Sprintf("%02d:%s", startHour, match[2]), fmt.Sprintf("%02d:%s", endHour, match[4])
}

// extractPostalAndMunicipality finds the Belgian "9140 TEMSE" pattern.
func extractPostalAndMunicipality(text string) (postal, municipality string) {
	match := postalPattern.FindStringSubmatch(text)
	if match == nil {
		return "", ""
	}
	return match[1], titleCase(match[2])
}

// extractAddress finds a street-plus-number line using common Dutch street
// suffixes, trying single-word street names before multi-word ones.
func extractAddress(text string) string {
	if match := addressPattern.FindString(text); match != "" {
		return strings.TrimSpace(match)
	}
	if match := multiwordAddressPattern.FindString(text); match != "" {
		return strings.TrimSpace(match)
	}
	return ""
}

// extractTypes collects category labels from badge-style elements. Known
// vocabulary entries are normalized; other badge labels are kept verbatim.
func extractTypes(doc *goquery.Document) []string {
	var types []string
	seen := make(map[string]bool)

	add := func(label string) {
		key := strings.ToLower(label)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		types = append(types, label)
	}

	doc.Find("span, a, div").Each(func(i int, sel *goquery.Selection) {
		class, _ := sel.Attr("class")
		if !badgeClassPattern.MatchString(class) {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" || len(text) > 40 || sel.Children().Length() > 0 {
			return
		}
		lower := strings.ToLower(text)
		for _, known := range knownTypes {
			if lower == known || strings.Contains(lower, known) {
				add(titleCase(lower))
				return
			}
		}
		// Forward-compatible: keep unrecognized badge labels as-is.
		add(text)
	})

	return types
}

var pricePatterns = map[string]*regexp.Regexp{}

func init() {
	for _, keyword := range []string{
		"inkom", "toegang", "entree", "entrance",
		"standplaats", "stand", "tafel", "kraam",
	} {
		pricePatterns[keyword] = regexp.MustCompile(
			`(?i)` + keyword + `[:\s]*\**(\d+(?:[,.]\d+)?)\s*(?:€|EUR|euro)?`)
	}
}

// extractPrice finds a price anchored to one of the given keywords, e.g.
// "Inkom: 4,50 €" or "standplaats 9 EUR". Unparsable price text yields nil.
func extractPrice(text string, keywords []string) *float64 {
	for _, keyword := range keywords {
		pattern, ok := pricePatterns[keyword]
		if !ok {
			continue
		}
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
		if err != nil || value < 0 {
			continue
		}
		return &value
	}
	return nil
}

// extractOrganizer finds the organizer name after an "Organisator:" style
// label, trimming trailing contact info.
func extractOrganizer(text string) string {
	match := organizerPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	org := strings.TrimSpace(match[1])
	if idx := contactTrailPattern.FindStringIndex(org); idx != nil {
		org = strings.TrimSpace(org[:idx[0]])
	}
	if len(org) < 3 {
		return ""
	}
	return org
}

// extractPhone finds a Belgian phone number, preferring numbers introduced
// by a tel/gsm label, and normalizes separators to single spaces.
func extractPhone(text string) string {
	for _, pattern := range phonePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		phone := strings.TrimSpace(match[1])
		return strings.TrimSpace(separatorRun.ReplaceAllString(phone, " "))
	}
	return ""
}

// extractEmail recovers the organizer email. The site protects addresses
// with the Cloudflare obfuscation scheme, either as an email-protection
// href fragment or a data-cfemail attribute; a decode failure leaves the
// field empty and is logged, never fatal. Unprotected plain-text addresses
// are picked up as a fallback.
func extractEmail(doc *goquery.Document, text, sourceURL string) string {
	tryDecode := func(token string) string {
		email, err := cfemail.Decode(token)
		if err != nil {
			logger.Warn("email token decode failed", logger.Fields{"url": sourceURL, "error": err.Error()})
			return ""
		}
		return email
	}

	var email string
	doc.Find(`a[href*="/cdn-cgi/l/email-protection"]`).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if match := cfTokenPattern.FindStringSubmatch(href); match != nil {
			if email = tryDecode(match[1]); email != "" {
				return false
			}
		}
		return true
	})
	if email != "" {
		return email
	}

	if token, ok := doc.Find("[data-cfemail]").First().Attr("data-cfemail"); ok {
		if email = tryDecode(token); email != "" {
			return email
		}
	}

	return plainEmailPattern.FindString(text)
}

// extractWebsite returns the first external non-mailto link on the page.
func extractWebsite(doc *goquery.Document, sourceURL string) string {
	var website string
	doc.Find("a[href]").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !strings.HasPrefix(href, "http") {
			return true
		}
		if strings.Contains(href, "rommelmarkten.be") || strings.HasPrefix(href, "mailto:") {
			return true
		}
		website = href
		return false
	})
	return website
}

// extractDescription joins the first few substantial content paragraphs,
// filtering site boilerplate.
func extractDescription(doc *goquery.Document) string {
	boilerplate := []string{"cookie", "privacy", "copyright", "advertentie"}

	var paragraphs []string
	doc.Find("p").Each(func(i int, sel *goquery.Selection) {
		if len(paragraphs) >= 3 {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if len(text) <= 50 {
			return
		}
		lower := strings.ToLower(text)
		for _, skip := range boilerplate {
			if strings.Contains(lower, skip) {
				return
			}
		}
		paragraphs = append(paragraphs, text)
	})

	return strings.Join(paragraphs, "\n\n")
}

// extractImage finds the event poster image, preferring affiche/poster
// style filenames, then any content image.
func extractImage(doc *goquery.Document, sourceURL string) string {
	base := siteBase(sourceURL)
	var fallback, found string

	doc.Find("img[src]").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		lower := strings.ToLower(src)
		for _, indicator := range []string{"affiche", "poster", "flyer", "banner"} {
			if strings.Contains(lower, indicator) {
				found = absoluteURL(base, src)
				return false
			}
		}
		if fallback == "" && strings.Contains(lower, "/content/") {
			fallback = absoluteURL(base, src)
		}
		return true
	})

	if found != "" {
		return found
	}
	return fallback
}

// siteBase reduces a page URL to scheme://host for resolving relative srcs.
func siteBase(pageURL string) string {
	rest, ok := strings.CutPrefix(pageURL, "https://")
	scheme := "https://"
	if !ok {
		rest, ok = strings.CutPrefix(pageURL, "http://")
		scheme = "http://"
		if !ok {
			return pageURL
		}
	}
	host, _, _ := strings.Cut(rest, "/")
	return scheme + host
}

// titleCase uppercases the first letter of each word, lowercasing the rest.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

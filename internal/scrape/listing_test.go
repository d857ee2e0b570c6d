package scrape

import (
	"os"
	"strings"
	"testing"
)

const baseURL = "https://www.rommelmarkten.be"

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return string(data)
}

func TestParseListing(t *testing.T) {
	html := loadFixture(t, "listing.html")

	page, err := ParseListing(strings.NewReader(html), baseURL)
	if err != nil {
		t.Fatalf("ParseListing() unexpected error: %v", err)
	}

	// The fixture references 31502 twice (pinned + regular slot) and one
	// malformed link; three unique events remain.
	if len(page.Links) != 3 {
		t.Fatalf("got %d links, want 3: %+v", len(page.Links), page.Links)
	}

	want := []EventLink{
		{ID: 31502, Slug: "grote-rommelmarkt-centrum-temse-9140", URL: baseURL + "/rommelmarkt/31502/grote-rommelmarkt-centrum-temse-9140"},
		{ID: 31650, Slug: "binnenrommelmarkt-sporthal-gent", URL: "https://www.rommelmarkten.be/rommelmarkt/31650/binnenrommelmarkt-sporthal-gent"},
		{ID: 31711, Slug: "garageverkoop-wijk-zuid-mechelen", URL: baseURL + "/rommelmarkt/31711/garageverkoop-wijk-zuid-mechelen"},
	}
	for i, w := range want {
		if page.Links[i] != w {
			t.Errorf("link[%d] = %+v, want %+v", i, page.Links[i], w)
		}
	}

	if !page.HasNextPage {
		t.Error("expected pagination continuation to be detected")
	}
	if page.NextPageURL != baseURL+"/rommelmarkten-tijdens-juni-in-antwerpen?pagina=2" {
		t.Errorf("next page url = %q", page.NextPageURL)
	}
}

func TestParseListingIsRestartable(t *testing.T) {
	html := loadFixture(t, "listing.html")

	first, err := ParseListing(strings.NewReader(html), baseURL)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ParseListing(strings.NewReader(html), baseURL)
	if err != nil {
		t.Fatal(err)
	}

	if len(first.Links) != len(second.Links) {
		t.Fatalf("re-parse yielded %d links, first parse %d", len(second.Links), len(first.Links))
	}
	for i := range first.Links {
		if first.Links[i] != second.Links[i] {
			t.Errorf("link[%d] differs between parses", i)
		}
	}
}

func TestParseListingNoEvents(t *testing.T) {
	html := `<html><body><p>Geen rommelmarkten gevonden.</p></body></html>`

	page, err := ParseListing(strings.NewReader(html), baseURL)
	if err != nil {
		t.Fatalf("ParseListing() unexpected error: %v", err)
	}
	if len(page.Links) != 0 {
		t.Errorf("got %d links, want 0", len(page.Links))
	}
	if page.HasNextPage {
		t.Error("empty page should have no pagination")
	}
}

func TestParseListingRelNextPagination(t *testing.T) {
	html := `<html><body>
		<a href="/rommelmarkt/100/markt-een">Markt</a>
		<link rel="x"><a rel="next" href="/lijst?pagina=3">2</a>
	</body></html>`

	page, err := ParseListing(strings.NewReader(html), baseURL)
	if err != nil {
		t.Fatal(err)
	}
	if page.NextPageURL != baseURL+"/lijst?pagina=3" {
		t.Errorf("next page url = %q, rel=next should be honored", page.NextPageURL)
	}
}

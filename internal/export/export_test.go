package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mverbruggen/rommelmarkt-zoeker/internal/event"
)

func floatPtr(f float64) *float64 { return &f }

func sampleEvents() []*event.Event {
	return []*event.Event{
		{
			ID:           31650,
			Name:         "Grote Rommelmarkt Centrum",
			Municipality: "Temse",
			PostalCode:   "9140",
			Address:      "Kapelanielaan 27",
			VenueName:    "Parochiezaal Sint-Amelberga",
			Date:         "2026-06-07",
			StartTime:    "09:00",
			EndTime:      "17:30",
			EntryPrice:   floatPtr(2.5),
			SourceURL:    "https://www.rommelmarkten.be/rommelmarkt/31650/grote-rommelmarkt-centrum",
		},
		{
			ID:           31711,
			Name:         "Garageverkoop, met drankstand; groot",
			Municipality: "Gent",
			Date:         "2026-06-14",
		},
	}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	events := sampleEvents()

	path, err := WriteJSON(dir, "export.json", events)
	if err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if filepath.Base(path) != "export.json" {
		t.Errorf("path = %q, want export.json basename", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshaling export: %v", err)
	}
	if doc.Metadata.Source != "rommelmarkten.be" {
		t.Errorf("metadata source = %q", doc.Metadata.Source)
	}
	if doc.Metadata.TotalEvents != 2 || len(doc.Events) != 2 {
		t.Errorf("total_events = %d, events = %d, want 2 each", doc.Metadata.TotalEvents, len(doc.Events))
	}
	if doc.Events[0].Name != "Grote Rommelmarkt Centrum" {
		t.Errorf("first event name = %q", doc.Events[0].Name)
	}
	if !strings.Contains(string(data), `"gemeente"`) {
		t.Error("export does not use the Dutch field names")
	}
}

func TestWriteJSONDefaultFilename(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteJSON(dir, "", nil)
	if err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "rommelmarkten_") || !strings.HasSuffix(base, ".json") {
		t.Errorf("default filename = %q", base)
	}
}

func TestGenerateICS(t *testing.T) {
	ics := GenerateICS(sampleEvents())

	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"VERSION:2.0\r\n",
		"UID:31650@rommelmarkten.be\r\n",
		"DTSTART:20260607T090000\r\n",
		"DTEND:20260607T173000\r\n",
		"SUMMARY:Grote Rommelmarkt Centrum\r\n",
		"LOCATION:Parochiezaal Sint-Amelberga\\, Kapelanielaan 27\\, Temse\r\n",
		"URL:https://www.rommelmarkten.be/rommelmarkt/31650/grote-rommelmarkt-centrum\r\n",
		// No times known: fall back to 09:00 with an 8 hour duration.
		"DTSTART:20260614T090000\r\n",
		"DTEND:20260614T170000\r\n",
		"SUMMARY:Garageverkoop\\, met drankstand\\; groot\r\n",
		"END:VCALENDAR\r\n",
	} {
		if !strings.Contains(ics, want) {
			t.Errorf("calendar missing %q", want)
		}
	}

	if got := strings.Count(ics, "BEGIN:VEVENT\r\n"); got != 2 {
		t.Errorf("VEVENT count = %d, want 2", got)
	}
}

func TestGenerateICSSkipsUndatedEvents(t *testing.T) {
	ics := GenerateICS([]*event.Event{{ID: 1, Name: "Zonder Datum"}})
	if strings.Contains(ics, "BEGIN:VEVENT") {
		t.Error("undated event produced a VEVENT")
	}
}

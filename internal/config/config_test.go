package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
target:
  provinces: [antwerpen]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Scraping.DelaySeconds != 2.5 {
		t.Errorf("delay = %v, want default 2.5", cfg.Scraping.DelaySeconds)
	}
	if cfg.Scraping.MaxRetries != 3 {
		t.Errorf("max retries = %d, want default 3", cfg.Scraping.MaxRetries)
	}
	if cfg.Target.BaseURL != "https://www.rommelmarkten.be" {
		t.Errorf("base url = %q", cfg.Target.BaseURL)
	}
	if !reflect.DeepEqual(cfg.Target.Provinces, []string{"antwerpen"}) {
		t.Errorf("provinces = %v, file value should win over default", cfg.Target.Provinces)
	}
	if cfg.Scraping.Delay() != 2500*time.Millisecond {
		t.Errorf("Delay() = %v, want 2.5s", cfg.Scraping.Delay())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "negative delay",
			mutate:    func(c *Config) { c.Scraping.DelaySeconds = -1 },
			wantField: "scraping.delay_seconds",
		},
		{
			name:      "negative retries",
			mutate:    func(c *Config) { c.Scraping.MaxRetries = -1 },
			wantField: "scraping.max_retries",
		},
		{
			name:      "empty user agent",
			mutate:    func(c *Config) { c.Scraping.UserAgent = "" },
			wantField: "scraping.user_agent",
		},
		{
			name:      "bad base url",
			mutate:    func(c *Config) { c.Target.BaseURL = "ftp://example.be" },
			wantField: "target.base_url",
		},
		{
			name:      "no provinces",
			mutate:    func(c *Config) { c.Target.Provinces = nil },
			wantField: "target.provinces",
		},
		{
			name:      "unknown explicit month",
			mutate:    func(c *Config) { c.Target.Months = []string{"smarch"} },
			wantField: "target.months",
		},
		{
			name:      "unknown preset",
			mutate:    func(c *Config) { c.Target.MonthSelection = "soon" },
			wantField: "target.month_selection",
		},
		{
			name:      "empty database path",
			mutate:    func(c *Config) { c.Storage.DatabasePath = "" },
			wantField: "storage.database_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			cfgErr, ok := err.(*ConfigurationError)
			if !ok {
				t.Fatalf("error type = %T, want *ConfigurationError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("error field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestMonthsToScrape(t *testing.T) {
	june := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	november := time.Date(2024, time.November, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		selection string
		months    []string
		now       time.Time
		want      []string
	}{
		{
			name:      "current only",
			selection: "current",
			now:       june,
			want:      []string{"juni"},
		},
		{
			name:      "next_3 includes current month",
			selection: "next_3",
			now:       june,
			want:      []string{"juni", "juli", "augustus", "september"},
		},
		{
			name:      "next_3 wraps the year boundary",
			selection: "next_3",
			now:       november,
			want:      []string{"november", "december", "januari", "februari"},
		},
		{
			name:      "all months",
			selection: "all",
			now:       june,
			want:      DutchMonths,
		},
		{
			name:      "explicit list wins over preset",
			selection: "all",
			months:    []string{"Mei", "juni"},
			now:       june,
			want:      []string{"mei", "juni"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Target.MonthSelection = tt.selection
			cfg.Target.Months = tt.months
			got := cfg.MonthsToScrape(tt.now)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MonthsToScrape() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
scraping:
  delay_seconds: -2
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should reject negative delay")
	}
	if !strings.Contains(err.Error(), "delay_seconds") {
		t.Errorf("error should name the offending field, got %v", err)
	}
}

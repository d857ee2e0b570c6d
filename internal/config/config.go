// Package config loads and validates the scraper configuration.
//
// Configuration lives in a YAML file mirroring the sections of the crawl:
// scraping (politeness and retry settings), target (site, provinces,
// months), storage (database and export paths), and logging. Missing values
// fall back to safe defaults; invalid values fail the run before any
// network activity.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DutchMonths lists month names in order as they appear in listing URLs.
var DutchMonths = []string{
	"januari", "februari", "maart", "april", "mei", "juni",
	"juli", "augustus", "september", "oktober", "november", "december",
}

// ConfigurationError reports an invalid or missing configuration value.
// It is fatal to the whole run.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Config holds all immutable settings for one run.
type Config struct {
	Scraping ScrapingConfig `yaml:"scraping"`
	Target   TargetConfig   `yaml:"target"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ScrapingConfig controls the fetch layer.
type ScrapingConfig struct {
	DelaySeconds   float64 `yaml:"delay_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	UserAgent      string  `yaml:"user_agent"`
}

// Delay returns the minimum inter-request delay as a Duration.
func (s ScrapingConfig) Delay() time.Duration {
	return time.Duration(s.DelaySeconds * float64(time.Second))
}

// Timeout returns the per-request timeout as a Duration.
func (s ScrapingConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// TargetConfig selects what to crawl.
type TargetConfig struct {
	BaseURL        string   `yaml:"base_url"`
	Provinces      []string `yaml:"provinces"`
	MonthSelection string   `yaml:"month_selection"`
	Months         []string `yaml:"months"` // explicit list, overrides the preset
}

// StorageConfig locates the database and export directory.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	JSONExportPath string `yaml:"json_export_path"`
}

// LoggingConfig controls log level and optional log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Scraping: ScrapingConfig{
			DelaySeconds:   2.5,
			MaxRetries:     3,
			TimeoutSeconds: 30,
			UserAgent:      "rommelzoeker/1.0 (polite scraper; contact via repository)",
		},
		Target: TargetConfig{
			BaseURL: "https://www.rommelmarkten.be",
			Provinces: []string{
				"antwerpen", "limburg", "oost-vlaanderen",
				"vlaams-brabant", "west-vlaanderen",
			},
			MonthSelection: "next_3",
		},
		Storage: StorageConfig{
			DatabasePath:   "data/rommelmarkten.db",
			JSONExportPath: "data/exports",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// Load reads a YAML configuration file, applies defaults for absent values,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every value a run depends on.
func (c *Config) Validate() error {
	if c.Scraping.DelaySeconds < 0 {
		return &ConfigurationError{Field: "scraping.delay_seconds", Reason: "must be >= 0"}
	}
	if c.Scraping.MaxRetries < 0 {
		return &ConfigurationError{Field: "scraping.max_retries", Reason: "must be >= 0"}
	}
	if c.Scraping.TimeoutSeconds <= 0 {
		return &ConfigurationError{Field: "scraping.timeout_seconds", Reason: "must be > 0"}
	}
	if c.Scraping.UserAgent == "" {
		return &ConfigurationError{Field: "scraping.user_agent", Reason: "must not be empty"}
	}
	if !strings.HasPrefix(c.Target.BaseURL, "http") {
		return &ConfigurationError{Field: "target.base_url", Reason: "must be an http(s) URL"}
	}
	if len(c.Target.Provinces) == 0 {
		return &ConfigurationError{Field: "target.provinces", Reason: "must list at least one province"}
	}
	for _, m := range c.Target.Months {
		if !isDutchMonth(m) {
			return &ConfigurationError{Field: "target.months", Reason: fmt.Sprintf("unknown month %q", m)}
		}
	}
	if len(c.Target.Months) == 0 {
		if _, err := presetCount(c.Target.MonthSelection); err != nil {
			return &ConfigurationError{Field: "target.month_selection", Reason: err.Error()}
		}
	}
	if c.Storage.DatabasePath == "" {
		return &ConfigurationError{Field: "storage.database_path", Reason: "must not be empty"}
	}
	return nil
}

// MonthsToScrape resolves the configured month selection relative to now.
// An explicit months list wins; otherwise the preset expands to the current
// month plus the requested number of following months, wrapping across the
// year boundary.
func (c *Config) MonthsToScrape(now time.Time) []string {
	if len(c.Target.Months) > 0 {
		months := make([]string, len(c.Target.Months))
		for i, m := range c.Target.Months {
			months[i] = strings.ToLower(strings.TrimSpace(m))
		}
		return months
	}

	count, err := presetCount(c.Target.MonthSelection)
	if err != nil {
		// Validate rejects unknown presets; keep a sane fallback anyway.
		count = 3
	}
	if count == 12 {
		months := make([]string, len(DutchMonths))
		copy(months, DutchMonths)
		return months
	}

	current := int(now.Month()) - 1
	months := make([]string, 0, count+1)
	for i := 0; i <= count; i++ {
		months = append(months, DutchMonths[(current+i)%12])
	}
	return months
}

// presetCount translates a named preset into the number of months after the
// current one. "all" maps to 12 as a marker for the whole year.
func presetCount(selection string) (int, error) {
	switch selection {
	case "current":
		return 0, nil
	case "all":
		return 12, nil
	}
	if rest, ok := strings.CutPrefix(selection, "next_"); ok {
		n, err := strconv.Atoi(rest)
		if err == nil && n > 0 && n < 12 {
			return n, nil
		}
	}
	return 0, fmt.Errorf("unknown month selection %q (want current, next_N, or all)", selection)
}

func isDutchMonth(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range DutchMonths {
		if m == name {
			return true
		}
	}
	return false
}

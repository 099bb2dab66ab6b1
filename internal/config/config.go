// Package config holds the agent configuration and its layered loading:
// defaults, TOML config file, DECKHAND_* environment variables, and CLI
// flags, in increasing order of precedence.
package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the runtime configuration of the deckhand agent.
type Config struct {
	// DataDir is where the card map and table layout JSON files live.
	DataDir string

	// MapFile and LayoutFile override the default paths under DataDir.
	MapFile    string
	LayoutFile string

	// ListenAddr is the HTTP API bind address. Empty disables the API.
	ListenAddr string

	// PollInterval is the sleep between poll cycles per reader.
	PollInterval time.Duration

	// SampleWindow is the bounded duration of one reader sampling
	// window; ProbeTimeout bounds each probe inside it.
	SampleWindow time.Duration
	ProbeTimeout time.Duration

	// Debounce tuning for the stability engine.
	StabilityTime time.Duration
	FoldDelay     time.Duration
	RecentWindow  time.Duration

	// HistorySize bounds the per-position detection history.
	HistorySize int

	// WatchMap reloads the card map when the file changes on disk.
	WatchMap bool

	// Demo runs without hardware; readers never detect anything.
	Demo bool
}

// Default returns a Config with production defaults.
func Default() Config {
	return Config{
		DataDir:       ".",
		ListenAddr:    "0.0.0.0:8000",
		PollInterval:  120 * time.Millisecond,
		SampleWindow:  450 * time.Millisecond,
		ProbeTimeout:  40 * time.Millisecond,
		StabilityTime: 3 * time.Second,
		FoldDelay:     5 * time.Second,
		RecentWindow:  10 * time.Second,
		HistorySize:   50,
		WatchMap:      true,
	}
}

// Validate checks the configuration and fills derived defaults.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data-dir is required")
	}
	if c.MapFile == "" {
		c.MapFile = filepath.Join(c.DataDir, "card_map.json")
	}
	if c.LayoutFile == "" {
		c.LayoutFile = filepath.Join(c.DataDir, "table_config.json")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.SampleWindow <= 0 {
		return fmt.Errorf("sample window must be positive")
	}
	if c.ProbeTimeout <= 0 || c.ProbeTimeout > c.SampleWindow {
		return fmt.Errorf("probe timeout must be positive and no longer than the sample window")
	}
	if c.StabilityTime <= 0 {
		return fmt.Errorf("stability time must be positive")
	}
	if c.FoldDelay <= 0 {
		return fmt.Errorf("fold delay must be positive")
	}
	if c.RecentWindow < c.StabilityTime {
		return fmt.Errorf("recent window must be at least the stability time")
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history size must be positive")
	}
	return nil
}

// setter applies layered configuration values while respecting flags the
// user set explicitly (those always win).
type setter struct {
	changed map[string]bool
}

func newSetter(changed map[string]bool) *setter {
	return &setter{changed: changed}
}

func (s *setter) str(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *setter) duration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *setter) intFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i > 0 {
		*dst = i
	}
	return nil
}

func (s *setter) intValue(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *setter) boolPtr(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *setter) boolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors Config with string durations to stay TOML friendly.
type fileConfig struct {
	DataDir       string `toml:"data_dir"`
	MapFile       string `toml:"map_file"`
	LayoutFile    string `toml:"layout_file"`
	ListenAddr    string `toml:"listen_addr"`
	PollInterval  string `toml:"poll_interval"`
	SampleWindow  string `toml:"sample_window"`
	ProbeTimeout  string `toml:"probe_timeout"`
	StabilityTime string `toml:"stability_time"`
	FoldDelay     string `toml:"fold_delay"`
	RecentWindow  string `toml:"recent_window"`
	HistorySize   int    `toml:"history_size"`
	WatchMap      *bool  `toml:"watch_map"`
	Demo          *bool  `toml:"demo"`
}

// DefaultPath returns ~/.deckhand/config.toml, or empty if the home
// directory cannot be determined.
func DefaultPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".deckhand", "config.toml")
	}
	return ""
}

// Exists reports whether a file exists at the given path.
func Exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// ApplyFile loads a TOML config file and applies it to cfg, skipping any
// field whose flag was set explicitly.
func ApplyFile(cfg *Config, path string, changed map[string]bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := toml.Unmarshal(b, &fc); err != nil {
		return err
	}

	s := newSetter(changed)
	s.str("data-dir", fc.DataDir, &cfg.DataDir)
	s.str("map-file", fc.MapFile, &cfg.MapFile)
	s.str("layout-file", fc.LayoutFile, &cfg.LayoutFile)
	s.str("listen", fc.ListenAddr, &cfg.ListenAddr)

	if err := s.duration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.duration("sample-window", fc.SampleWindow, &cfg.SampleWindow); err != nil {
		return err
	}
	if err := s.duration("probe-timeout", fc.ProbeTimeout, &cfg.ProbeTimeout); err != nil {
		return err
	}
	if err := s.duration("stability-time", fc.StabilityTime, &cfg.StabilityTime); err != nil {
		return err
	}
	if err := s.duration("fold-delay", fc.FoldDelay, &cfg.FoldDelay); err != nil {
		return err
	}
	if err := s.duration("recent-window", fc.RecentWindow, &cfg.RecentWindow); err != nil {
		return err
	}

	s.intValue("history-size", fc.HistorySize, &cfg.HistorySize)
	s.boolPtr("watch-map", fc.WatchMap, &cfg.WatchMap)
	s.boolPtr("demo", fc.Demo, &cfg.Demo)
	return nil
}

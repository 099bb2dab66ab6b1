package config

import "os"

// ApplyEnv applies DECKHAND_* environment variables to cfg. Env values
// override file config but lose to explicitly set flags.
func ApplyEnv(cfg *Config, changed map[string]bool) error {
	s := newSetter(changed)

	s.str("data-dir", os.Getenv("DECKHAND_DATA_DIR"), &cfg.DataDir)
	s.str("map-file", os.Getenv("DECKHAND_MAP_FILE"), &cfg.MapFile)
	s.str("layout-file", os.Getenv("DECKHAND_LAYOUT_FILE"), &cfg.LayoutFile)
	s.str("listen", os.Getenv("DECKHAND_LISTEN_ADDR"), &cfg.ListenAddr)

	if err := s.duration("poll", os.Getenv("DECKHAND_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.duration("sample-window", os.Getenv("DECKHAND_SAMPLE_WINDOW"), &cfg.SampleWindow); err != nil {
		return err
	}
	if err := s.duration("probe-timeout", os.Getenv("DECKHAND_PROBE_TIMEOUT"), &cfg.ProbeTimeout); err != nil {
		return err
	}
	if err := s.duration("stability-time", os.Getenv("DECKHAND_STABILITY_TIME"), &cfg.StabilityTime); err != nil {
		return err
	}
	if err := s.duration("fold-delay", os.Getenv("DECKHAND_FOLD_DELAY"), &cfg.FoldDelay); err != nil {
		return err
	}
	if err := s.duration("recent-window", os.Getenv("DECKHAND_RECENT_WINDOW"), &cfg.RecentWindow); err != nil {
		return err
	}

	if err := s.intFromString("history-size", os.Getenv("DECKHAND_HISTORY_SIZE"), &cfg.HistorySize); err != nil {
		return err
	}
	s.boolFromString("watch-map", os.Getenv("DECKHAND_WATCH_MAP"), &cfg.WatchMap)
	s.boolFromString("demo", os.Getenv("DECKHAND_DEMO"), &cfg.Demo)
	return nil
}

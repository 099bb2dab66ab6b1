package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/feltworks/deckhand"
	"github.com/feltworks/deckhand/internal/config"
	"github.com/feltworks/deckhand/internal/table"
	"github.com/feltworks/deckhand/pkg/log"
)

const helpDescription = `
Poll NFC readers placed under table positions, debounce raw tag
sightings into stable hands, and serve the result as JSON.

Highlights:
  - Per-position poll loops with a sliding recency window, so a card
    must dwell before it counts and must stay gone before it folds.
  - Card UID to label mappings persisted as JSON and hot-reloaded on
    file change; configure via file, env, or flags.
  - Demo mode runs the full stack without reader hardware.
`

var exampleUsage = strings.TrimSpace(`
  deckhand --data-dir /var/lib/deckhand
  deckhand --config $HOME/.deckhand/config.toml --listen :8000
  deckhand --demo --stability-time 1s --fold-delay 2s
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := config.Default()
	var cfgPath string

	logger := log.NewZerolog()
	zl := logger.Unwrap()

	root := &cobra.Command{
		Use:     "deckhand",
		Short:   "Card-presence service for RFID poker-table readers",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = config.DefaultPath()
			}

			// Precedence: flags > env > file > defaults.
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && config.Exists(cfgFile) {
				if err := config.ApplyFile(&cfg, cfgFile, changed); err != nil {
					return fmt.Errorf("load config: %w", err)
				}
			}
			if err := config.ApplyEnv(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			zl.Info().Interface("config", cfg).Msg("configuration")

			dh, err := deckhand.New(cfg, deckhand.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("create deckhand: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			if err := dh.Start(ctx); err != nil {
				return fmt.Errorf("start deckhand: %w", err)
			}

			doneCh := make(chan struct{})
			go func() {
				ticker := time.NewTicker(100 * time.Millisecond)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						status := dh.Status()
						if status == table.StateStopped || status == table.StateCrashed {
							close(doneCh)
							return
						}
					}
				}
			}()

			select {
			case <-sigCh:
				zl.Info().Msg("received signal, stopping...")
			case <-doneCh:
				if dh.Status() == table.StateCrashed {
					zl.Error().Msg("deckhand crashed")
				}
				return nil
			}

			if err := dh.Stop(); err != nil {
				return fmt.Errorf("stop deckhand: %w", err)
			}
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.deckhand/config.toml)")
	root.Flags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding card_map.json and table_config.json")
	root.Flags().StringVar(&cfg.MapFile, "map-file", "", "card map path (defaults to <data-dir>/card_map.json)")
	root.Flags().StringVar(&cfg.LayoutFile, "layout-file", "", "table layout path (defaults to <data-dir>/table_config.json)")
	root.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP API listen address")

	root.Flags().DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "pause between reader polls")
	root.Flags().DurationVar(&cfg.SampleWindow, "sample-window", cfg.SampleWindow, "per-poll sampling window")
	root.Flags().DurationVar(&cfg.ProbeTimeout, "probe-timeout", cfg.ProbeTimeout, "single probe timeout within the sampling window")
	root.Flags().DurationVar(&cfg.StabilityTime, "stability-time", cfg.StabilityTime, "continuous presence required before a card counts")
	root.Flags().DurationVar(&cfg.FoldDelay, "fold-delay", cfg.FoldDelay, "continuous absence required before a hand folds")
	root.Flags().DurationVar(&cfg.RecentWindow, "recent-window", cfg.RecentWindow, "sliding window of observations considered present")
	root.Flags().IntVar(&cfg.HistorySize, "history-size", cfg.HistorySize, "observations retained per position")

	root.Flags().BoolVar(&cfg.WatchMap, "watch-map", cfg.WatchMap, "hot-reload the card map on file change")
	root.Flags().BoolVar(&cfg.Demo, "demo", cfg.Demo, "run without reader hardware")

	if err := root.Execute(); err != nil {
		zl.Error().Err(err).Msg("deckhand")
		os.Exit(1)
	}
}

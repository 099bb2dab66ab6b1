// Package deckhand runs an RFID card-table service: it polls NFC readers
// placed under table positions, debounces raw tag sightings into stable
// hands, and serves the result over a JSON HTTP API.
//
// Example usage:
//
//	cfg := deckhand.DefaultConfig()
//	cfg.DataDir = "/var/lib/deckhand"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	dh, err := deckhand.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := dh.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer dh.Stop()
package deckhand

import (
	"context"
	"sync"
	"time"

	"github.com/feltworks/deckhand/internal/adapters/fs"
	"github.com/feltworks/deckhand/internal/adapters/httpapi"
	"github.com/feltworks/deckhand/internal/adapters/reader"
	"github.com/feltworks/deckhand/internal/config"
	"github.com/feltworks/deckhand/internal/domain"
	"github.com/feltworks/deckhand/internal/ports"
	"github.com/feltworks/deckhand/internal/stability"
	"github.com/feltworks/deckhand/internal/table"
	"github.com/feltworks/deckhand/pkg/log"
)

// Config holds the service configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = config.Config

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return config.Default()
}

// ShutdownTimeout bounds how long Stop waits for poll tasks to drain.
const ShutdownTimeout = 5 * time.Second

// Deckhand is the embeddable card-table service. Use New() to create an
// instance, then Start() to begin polling and serving.
type Deckhand struct {
	config    Config
	opts      options
	lifecycle *table.Lifecycle
	table     *table.Table
	labels    *table.Labels
	layout    fs.TableLayout
	api       *httpapi.Server
	watcher   *fs.MapWatcher
	logger    log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New wires a Deckhand instance from configuration. The instance starts
// in StateStopped; call Start() to begin. Returns an error if the
// configuration is invalid or the table layout cannot be read.
func New(cfg Config, opts ...Option) (*Deckhand, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	labels := table.NewLabels(fs.NewCardMapFile(cfg.MapFile), logger)

	layout, err := fs.NewLayoutFile(cfg.LayoutFile).Load(context.Background())
	if err != nil {
		return nil, err
	}

	params := table.Params{
		PollInterval: cfg.PollInterval,
		ProbeTimeout: cfg.ProbeTimeout,
		HistorySize:  cfg.HistorySize,
		Engine: stability.Params{
			StabilityTime: cfg.StabilityTime,
			FoldDelay:     cfg.FoldDelay,
			RecentWindow:  cfg.RecentWindow,
		},
	}
	tbl := table.New(params, labels, logger, o.events)

	for _, name := range layout.PositionNames() {
		spec := layout.Readers[name]
		target, err := buildTarget(cfg, o, name, spec)
		if err != nil {
			return nil, err
		}
		sampler := reader.NewSampler(target,
			reader.WithWindow(cfg.SampleWindow),
			reader.WithProbeTimeout(cfg.ProbeTimeout))
		tbl.AddPosition(name, spec.Position, sampler)
	}

	dh := &Deckhand{
		config:    cfg,
		opts:      o,
		lifecycle: table.NewLifecycle(logger),
		table:     tbl,
		labels:    labels,
		layout:    layout,
		logger:    logger,
	}
	if cfg.ListenAddr != "" {
		dh.api = httpapi.NewServer(cfg.ListenAddr, tbl, labels, layout, logger)
	}
	if cfg.WatchMap {
		dh.watcher = fs.NewMapWatcher(cfg.MapFile, func() {
			labels.Reload(context.Background())
		}, logger)
	}
	return dh, nil
}

func buildTarget(cfg Config, o options, name string, spec fs.ReaderSpec) (ports.Target, error) {
	if cfg.Demo || o.readerFactory == nil {
		return reader.NewDemoTarget(), nil
	}
	return o.readerFactory(name, spec)
}

// Start begins polling and serving in the background. Returns
// immediately after the poll tasks and the API listener are up. The
// provided context bounds the lifetime of the poll loops.
func (d *Deckhand) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := d.lifecycle.TransitionTo(table.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.lifecycle.SetCancel(cancel)

	if err := d.labels.Load(runCtx); err != nil {
		cancel()
		_ = d.lifecycle.TransitionTo(table.StateCrashed, "card map load failed")
		return err
	}

	if d.watcher != nil {
		if err := d.watcher.Start(runCtx); err != nil {
			// Live reload is a convenience; run without it.
			d.logger.Warn("card map watcher unavailable", log.Err(err))
			d.watcher = nil
		}
	}

	if d.api != nil {
		if err := d.api.Start(); err != nil {
			cancel()
			_ = d.lifecycle.TransitionTo(table.StateCrashed, "api listen failed")
			return err
		}
	}

	d.lifecycle.AddWorker()
	go func() {
		defer d.lifecycle.WorkerDone()

		if err := d.lifecycle.TransitionTo(table.StateRunning, "table polling"); err != nil {
			d.logger.Error("failed to transition to running", log.Err(err))
			return
		}

		if err := d.table.Run(runCtx); err != nil && err != context.Canceled {
			d.logger.Error("table crashed", log.Err(err))
			_ = d.lifecycle.TransitionTo(table.StateCrashed, err.Error())
		}
	}()

	return nil
}

// Stop gracefully shuts the service down: stops the API listener, halts
// the poll tasks, and waits up to ShutdownTimeout for them to drain.
// Returns domain.ErrShutdownTimeout if a poll task failed to stop.
func (d *Deckhand) Stop() error {
	d.mu.Lock()

	if !d.lifecycle.CanStop() {
		d.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := d.lifecycle.TransitionTo(table.StateStopping, "Stop() called"); err != nil {
		d.mu.Unlock()
		return err
	}

	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()

	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.api != nil {
		if err := d.api.Stop(); err != nil {
			d.logger.Warn("api shutdown error", log.Err(err))
		}
	}

	err := d.lifecycle.WaitWithTimeout(ShutdownTimeout)
	if err != nil {
		_ = d.lifecycle.TransitionTo(table.StateCrashed, "shutdown timeout")
	} else {
		_ = d.lifecycle.TransitionTo(table.StateStopped, "graceful shutdown")
	}
	return err
}

// Status returns the current lifecycle state. Safe to call concurrently.
func (d *Deckhand) Status() table.RunState {
	return d.lifecycle.State()
}

// Table exposes the running table for embedders that want direct access
// to hands, states, and history without going through the HTTP API.
func (d *Deckhand) Table() *table.Table {
	return d.table
}

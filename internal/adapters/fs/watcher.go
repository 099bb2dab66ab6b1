package fs

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/feltworks/deckhand/pkg/log"
)

// MapWatcher watches the card map file and invokes a reload callback
// when it changes on disk, so external edits (or another process writing
// the file) take effect without a restart. Events are debounced because
// editors and atomic renames produce bursts.
type MapWatcher struct {
	path     string
	debounce time.Duration
	onChange func()
	logger   log.Logger

	mu      sync.Mutex
	pending *time.Timer
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewMapWatcher creates a watcher for the given file. onChange is called
// from the watcher goroutine after the debounce delay.
func NewMapWatcher(path string, onChange func(), logger log.Logger) *MapWatcher {
	if logger == nil {
		logger = log.NewNoop()
	}
	return &MapWatcher{
		path:     path,
		debounce: 100 * time.Millisecond,
		onChange: onChange,
		logger:   logger,
	}
}

// Start begins watching. The watch is on the parent directory: atomic
// save (tmp + rename) replaces the inode, which a file-level watch would
// lose track of.
func (w *MapWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer watcher.Close()
		w.loop(runCtx, watcher)
	}()
	return nil
}

// Stop terminates the watcher and waits for its goroutine.
func (w *MapWatcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	w.mu.Lock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
}

func (w *MapWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("card map watch error", log.Err(err))
		}
	}
}

func (w *MapWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, func() {
		w.logger.Info("card map changed on disk, reloading", log.Str("path", w.path))
		w.onChange()
	})
}

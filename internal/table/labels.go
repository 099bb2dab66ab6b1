package table

import (
	"context"
	"strings"
	"sync"

	"github.com/feltworks/deckhand/internal/ports"
	"github.com/feltworks/deckhand/pkg/log"
)

// Labels is the in-memory UID to card-label map backed by a repository.
// Reads dominate (every recorded observation resolves a label), so it is
// guarded by an RWMutex; administrative updates persist through the
// repository and are visible to subsequent recomputations.
type Labels struct {
	repo   ports.MapRepository
	logger log.Logger

	mu sync.RWMutex
	m  map[string]string
}

// NewLabels creates an empty label store over the given repository.
func NewLabels(repo ports.MapRepository, logger log.Logger) *Labels {
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Labels{repo: repo, logger: logger, m: map[string]string{}}
}

// Load replaces the in-memory map from the repository.
func (l *Labels) Load(ctx context.Context) error {
	m, err := l.repo.Load(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.m = m
	l.mu.Unlock()
	l.logger.Info("card map loaded", log.Int("mappings", len(m)))
	return nil
}

// Reload re-reads the repository, used by the file watcher. Failures are
// logged and the previous map is kept.
func (l *Labels) Reload(ctx context.Context) {
	if err := l.Load(ctx); err != nil {
		l.logger.Warn("card map reload failed", log.Err(err))
	}
}

// Lookup resolves a UID to its label.
func (l *Labels) Lookup(uid string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	label, ok := l.m[normalizeUID(uid)]
	return label, ok
}

// Assign maps a UID to a label and persists the whole map.
func (l *Labels) Assign(ctx context.Context, uid, label string) error {
	uid = normalizeUID(uid)
	l.mu.Lock()
	l.m[uid] = label
	snapshot := copyMap(l.m)
	l.mu.Unlock()

	if err := l.repo.Save(ctx, snapshot); err != nil {
		return err
	}
	l.logger.Info("card mapped", log.Str("uid", uid), log.Str("label", label))
	return nil
}

// Clear removes a UID's mapping and persists the change.
func (l *Labels) Clear(ctx context.Context, uid string) error {
	uid = normalizeUID(uid)
	l.mu.Lock()
	delete(l.m, uid)
	snapshot := copyMap(l.m)
	l.mu.Unlock()

	if err := l.repo.Save(ctx, snapshot); err != nil {
		return err
	}
	l.logger.Info("card unmapped", log.Str("uid", uid))
	return nil
}

// All returns a copy of the current mapping.
func (l *Labels) All() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyMap(l.m)
}

func normalizeUID(uid string) string {
	return strings.ToUpper(strings.TrimSpace(uid))
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

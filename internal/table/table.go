// Package table orchestrates the card-table core: one poll task per
// configured reader position, each owning its detection history and
// stable hand, publishing an atomically swapped state projection for
// concurrent API readers.
package table

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/feltworks/deckhand/internal/domain"
	"github.com/feltworks/deckhand/internal/ports"
	"github.com/feltworks/deckhand/internal/stability"
	"github.com/feltworks/deckhand/pkg/log"
)

// Params tunes the table's poll loops and debouncing.
type Params struct {
	PollInterval time.Duration
	ProbeTimeout time.Duration
	HistorySize  int
	Engine       stability.Params
}

// DefaultParams returns production tuning.
func DefaultParams() Params {
	return Params{
		PollInterval: 120 * time.Millisecond,
		ProbeTimeout: 40 * time.Millisecond,
		HistorySize:  stability.DefaultHistorySize,
		Engine:       stability.DefaultParams(),
	}
}

// Events receives hand transitions. Calls are made synchronously from
// the owning poll task; implementations must not block.
type Events interface {
	OnHandChanged(position string, hand domain.StableHand, event stability.Event)
}

// position is the per-reader unit of ownership. history and hand are
// mutated only by the owning poll task; mu additionally guards them for
// diagnostic reads. state is the lock-free projection for API readers.
type position struct {
	name   string
	seat   string
	reader ports.Reader

	mu      sync.Mutex
	history *stability.History
	hand    domain.StableHand
	engine  *stability.Engine

	state atomic.Pointer[domain.PositionState]
}

// Table holds all configured positions and runs their poll loops.
type Table struct {
	params    Params
	labels    ports.LabelResolver
	logger    log.Logger
	events    Events
	positions map[string]*position
	order     []string

	lastUID atomic.Value // string
	nowFunc func() time.Time
}

// New creates a table with no positions; add them with AddPosition
// before Run.
func New(params Params, labels ports.LabelResolver, logger log.Logger, events Events) *Table {
	if params.PollInterval <= 0 {
		params.PollInterval = 120 * time.Millisecond
	}
	if params.ProbeTimeout <= 0 {
		params.ProbeTimeout = 40 * time.Millisecond
	}
	if logger == nil {
		logger = log.NewNoop()
	}
	if labels == nil {
		labels = unmappedResolver{}
	}
	return &Table{
		params:    params,
		labels:    labels,
		logger:    logger,
		events:    events,
		positions: map[string]*position{},
		nowFunc:   time.Now,
	}
}

// AddPosition registers a reader under a position name. seat is the
// human-readable placement shown to consumers. Not safe to call after
// Run has started.
func (t *Table) AddPosition(name, seat string, rdr ports.Reader) {
	if seat == "" {
		seat = name
	}
	p := &position{
		name:    name,
		seat:    seat,
		reader:  rdr,
		history: stability.NewHistory(t.params.HistorySize),
		engine:  stability.NewEngine(t.params.Engine),
	}
	empty := stability.Project(name, domain.StableHand{}, time.Time{})
	p.state.Store(&empty)
	t.positions[name] = p
	t.order = append(t.order, name)
	sort.Strings(t.order)
}

// Run polls every position until the context is canceled. Positions are
// independent and polled concurrently; an individual position never
// fails the group (read errors degrade to empty detections), so Run
// returns only on cancellation.
func (t *Table) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range t.order {
		p := t.positions[name]
		g.Go(func() error { return t.poll(ctx, p) })
	}
	return g.Wait()
}

func (t *Table) poll(ctx context.Context, p *position) error {
	t.logger.Info("polling position", log.Str("position", p.name), log.Str("seat", p.seat))
	for {
		res := p.reader.Sample(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.tick(p, res, t.nowFunc())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.params.PollInterval):
		}
	}
}

// tick feeds one poll result through record, recompute, and projection.
func (t *Table) tick(p *position, res domain.PollResult, now time.Time) {
	p.mu.Lock()

	switch res.Status {
	case domain.PollDetected:
		// Readers built outside this package may report detected with an
		// empty UID list; treat that like an empty window.
		if len(res.UIDs) > 0 {
			p.history.Record(res.UIDs, t.labels.Lookup, now)
			t.lastUID.Store(res.UIDs[len(res.UIDs)-1])
		}
	case domain.PollTransient:
		// Treated exactly like an empty window; surfaced at debug only
		// so a flaky bus does not flood the log.
		t.logger.Debug("transient read failure", log.Str("position", p.name), log.Err(res.Err))
	}

	ev := p.engine.Recompute(p.history, &p.hand, now)
	hand := snapshotHand(p.hand)
	st := stability.Project(p.name, p.hand, now)
	p.state.Store(&st)
	p.mu.Unlock()

	switch ev {
	case stability.EventStable:
		t.logger.Info("hand stable",
			log.Str("position", p.name),
			log.Int("cards", len(hand.Cards)),
			log.Strs("uids", hand.UIDs()))
	case stability.EventCleared:
		t.logger.Info("hand cleared", log.Str("position", p.name))
	case stability.EventFold:
		t.logger.Info("hand folded", log.Str("position", p.name))
	}
	if ev != stability.EventNone && t.events != nil {
		t.events.OnHandChanged(p.name, hand, ev)
	}
}

// Positions returns the configured position names in sorted order.
func (t *Table) Positions() []string {
	return append([]string(nil), t.order...)
}

// Seat returns the human-readable placement of a position.
func (t *Table) Seat(name string) (string, error) {
	p, ok := t.positions[name]
	if !ok {
		return "", domain.ErrUnknownPosition
	}
	return p.seat, nil
}

// State returns the current projection for one position.
func (t *Table) State(name string) (domain.PositionState, error) {
	p, ok := t.positions[name]
	if !ok {
		return domain.PositionState{}, domain.ErrUnknownPosition
	}
	return *p.state.Load(), nil
}

// States returns the projections of all positions.
func (t *Table) States() map[string]domain.PositionState {
	out := make(map[string]domain.PositionState, len(t.positions))
	for name, p := range t.positions {
		out[name] = *p.state.Load()
	}
	return out
}

// Hand returns the stable hand for one position.
func (t *Table) Hand(name string) (domain.StableHand, error) {
	p, ok := t.positions[name]
	if !ok {
		return domain.StableHand{}, domain.ErrUnknownPosition
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return snapshotHand(p.hand), nil
}

// Hands returns the stable hands of all positions.
func (t *Table) Hands() map[string]domain.StableHand {
	out := make(map[string]domain.StableHand, len(t.positions))
	for name, p := range t.positions {
		p.mu.Lock()
		out[name] = snapshotHand(p.hand)
		p.mu.Unlock()
	}
	return out
}

// History returns up to limit recent observations for a position,
// oldest first. limit <= 0 returns everything retained.
func (t *Table) History(name string, limit int) ([]domain.TagObservation, error) {
	p, ok := t.positions[name]
	if !ok {
		return nil, domain.ErrUnknownPosition
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history.Tail(limit), nil
}

// LastUID returns the most recently detected raw UID across all
// positions, for the capture workflow. Empty if nothing was ever seen.
func (t *Table) LastUID() string {
	v, _ := t.lastUID.Load().(string)
	return v
}

// ProbeOnce performs a single bounded diagnostic probe of a position's
// reader, outside the poll pipeline.
func (t *Table) ProbeOnce(ctx context.Context, name string) (uid, label string, err error) {
	p, ok := t.positions[name]
	if !ok {
		return "", "", domain.ErrUnknownPosition
	}
	raw, err := p.reader.Target().Probe(ctx, t.params.ProbeTimeout)
	if err != nil || len(raw) == 0 {
		return "", "", err
	}
	uid = domain.UIDHex(raw)
	label, _ = t.labels.Lookup(uid)
	return uid, label, nil
}

// ReadPage reads one page of tag memory through a position's reader.
func (t *Table) ReadPage(ctx context.Context, name string, page int) ([]byte, error) {
	p, ok := t.positions[name]
	if !ok {
		return nil, domain.ErrUnknownPosition
	}
	return p.reader.Target().ReadPage(ctx, page)
}

// WritePage writes one page of tag memory through a position's reader.
func (t *Table) WritePage(ctx context.Context, name string, page int, data []byte) error {
	p, ok := t.positions[name]
	if !ok {
		return domain.ErrUnknownPosition
	}
	return p.reader.Target().WritePage(ctx, page, data)
}

// unmappedResolver leaves every UID unlabeled.
type unmappedResolver struct{}

func (unmappedResolver) Lookup(string) (string, bool) { return "", false }

func snapshotHand(h domain.StableHand) domain.StableHand {
	h.Cards = append([]domain.StableCard(nil), h.Cards...)
	return h
}

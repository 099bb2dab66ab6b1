package stability

import (
	"sort"
	"time"

	"github.com/feltworks/deckhand/internal/domain"
)

// Debounce defaults, matching the physical tuning of the table readers.
const (
	// DefaultStabilityTime is how long a UID must be continuously
	// present inside the recency window before joining the stable hand.
	DefaultStabilityTime = 3 * time.Second

	// DefaultFoldDelay is how long detections must be absent before a
	// stable hand is cleared.
	DefaultFoldDelay = 5 * time.Second

	// DefaultRecentWindow is the sliding span of history considered
	// when computing stability.
	DefaultRecentWindow = 10 * time.Second
)

// Params tunes one engine instance. An engine is instantiated per
// position so tables can mix reader characteristics.
type Params struct {
	StabilityTime time.Duration
	FoldDelay     time.Duration
	RecentWindow  time.Duration
}

// DefaultParams returns the production debounce tuning.
func DefaultParams() Params {
	return Params{
		StabilityTime: DefaultStabilityTime,
		FoldDelay:     DefaultFoldDelay,
		RecentWindow:  DefaultRecentWindow,
	}
}

// Event describes the observable transition produced by one recompute.
type Event int

const (
	// EventNone: the hand did not change.
	EventNone Event = iota

	// EventStable: the stable card set changed and is non-empty.
	EventStable

	// EventCleared: the stable set changed to empty while detections
	// are still arriving (distinct from a fold timeout).
	EventCleared

	// EventFold: the fold grace period elapsed with no detections and
	// the hand was cleared.
	EventFold
)

// String returns the event name as logged.
func (e Event) String() string {
	switch e {
	case EventStable:
		return "stable"
	case EventCleared:
		return "cleared"
	case EventFold:
		return "fold"
	default:
		return "none"
	}
}

// Engine computes the stable hand for one position from its detection
// history. It is pure computation: no I/O, no failure modes. Recompute
// is idempotent for a fixed now and unchanged history.
type Engine struct {
	params Params
}

// NewEngine creates an engine with the given tuning. Zero durations fall
// back to the defaults.
func NewEngine(p Params) *Engine {
	if p.StabilityTime <= 0 {
		p.StabilityTime = DefaultStabilityTime
	}
	if p.FoldDelay <= 0 {
		p.FoldDelay = DefaultFoldDelay
	}
	if p.RecentWindow <= 0 {
		p.RecentWindow = DefaultRecentWindow
	}
	return &Engine{params: p}
}

// Params returns the engine's tuning.
func (e *Engine) Params() Params { return e.params }

// Recompute updates hand from the recent slice of history and reports
// the transition that occurred, if any.
func (e *Engine) Recompute(hist *History, hand *domain.StableHand, now time.Time) Event {
	recent := hist.Recent(now, e.params.RecentWindow)
	if len(recent) == 0 {
		return e.absent(hand, now)
	}

	// Any recent observation cancels a pending fold, even if the
	// stable set ends up differing.
	hand.FoldStarted = time.Time{}

	cards := dedupe(recent)

	stable := cards[:0]
	for _, c := range cards {
		if now.Sub(c.FirstSeen) >= e.params.StabilityTime {
			stable = append(stable, c)
		}
	}

	// Canonical ordering: ascending by UID, so the change test below is
	// independent of arrival order.
	sort.Slice(stable, func(i, j int) bool { return stable[i].UID < stable[j].UID })

	changed := !sameUIDs(stable, hand.Cards)
	// Replace the cards either way so labels and last-seen timestamps
	// stay current while the set identity is unchanged.
	hand.Cards = append(hand.Cards[:0:0], stable...)
	if !changed {
		return EventNone
	}
	hand.LastStable = now
	if len(stable) == 0 {
		return EventCleared
	}
	return EventStable
}

// absent handles an empty recency window: start the fold grace timer,
// and clear the hand once the full fold delay has elapsed.
func (e *Engine) absent(hand *domain.StableHand, now time.Time) Event {
	if len(hand.Cards) == 0 {
		return EventNone
	}
	if hand.FoldStarted.IsZero() {
		hand.FoldStarted = now
		return EventNone
	}
	if now.Sub(hand.FoldStarted) < e.params.FoldDelay {
		return EventNone
	}
	hand.Cards = nil
	hand.LastStable = time.Time{}
	hand.FoldStarted = time.Time{}
	return EventFold
}

// dedupe collapses observations to one card per UID, tracking the
// earliest and latest sighting and carrying the most recent label.
func dedupe(recent []domain.TagObservation) []domain.StableCard {
	byUID := make(map[string]int, 2)
	cards := make([]domain.StableCard, 0, 2)
	for _, o := range recent {
		i, ok := byUID[o.UID]
		if !ok {
			byUID[o.UID] = len(cards)
			cards = append(cards, domain.StableCard{
				UID:       o.UID,
				Label:     o.Label,
				FirstSeen: o.Time,
				LastSeen:  o.Time,
			})
			continue
		}
		c := &cards[i]
		if o.Time.Before(c.FirstSeen) {
			c.FirstSeen = o.Time
		}
		if !o.Time.Before(c.LastSeen) {
			c.LastSeen = o.Time
			c.Label = o.Label
		}
	}
	return cards
}

func sameUIDs(a []domain.StableCard, b []domain.StableCard) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].UID != b[i].UID {
			return false
		}
	}
	return true
}

// Project derives the externally visible position state from a hand.
// The primary card is the lowest-UID stable card.
func Project(position string, hand domain.StableHand, now time.Time) domain.PositionState {
	st := domain.PositionState{
		Position: position,
		HandSize: len(hand.Cards),
		Hand:     append([]domain.StableCard(nil), hand.Cards...),
	}
	if len(hand.Cards) > 0 {
		st.UID = hand.Cards[0].UID
		st.Label = hand.Cards[0].Label
		st.LastSeen = now
	}
	return st
}

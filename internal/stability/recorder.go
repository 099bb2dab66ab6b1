// Package stability implements the card-presence debouncing core: a
// bounded per-position detection history and the engine that turns noisy
// intermittent tag sightings into a stable hand with debounce-in and
// fold (debounce-out) hysteresis.
package stability

import (
	"time"

	"github.com/feltworks/deckhand/internal/domain"
)

// DefaultHistorySize bounds the detection history per position.
const DefaultHistorySize = 50

// History is an ordered, capacity-bounded sequence of tag observations
// for a single position. Oldest entries are evicted first on overflow,
// independent of the recency-based windowing done by the engine.
// A History is owned by exactly one poll task and is not safe for
// concurrent use.
type History struct {
	capacity int
	obs      []domain.TagObservation
}

// NewHistory creates a history bounded to the given capacity.
// Non-positive capacities fall back to DefaultHistorySize.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{capacity: capacity}
}

// Record appends one observation per detected UID (a sampling window
// yields 0, 1, or 2 UIDs), resolving labels at observation time. It
// never fails; unmapped UIDs simply carry an empty label.
func (h *History) Record(uids []string, resolve func(string) (string, bool), now time.Time) {
	for _, uid := range uids {
		var label string
		if resolve != nil {
			label, _ = resolve(uid)
		}
		h.obs = append(h.obs, domain.TagObservation{UID: uid, Label: label, Time: now})
	}
	if excess := len(h.obs) - h.capacity; excess > 0 {
		h.obs = append(h.obs[:0], h.obs[excess:]...)
	}
}

// Recent returns the observations no older than window relative to now,
// in recording order. The returned slice aliases the history and must
// not be retained across Record calls.
func (h *History) Recent(now time.Time, window time.Duration) []domain.TagObservation {
	for i, o := range h.obs {
		if now.Sub(o.Time) <= window {
			return h.obs[i:]
		}
	}
	return nil
}

// Tail returns a copy of the newest limit observations, oldest first.
// limit <= 0 returns everything retained.
func (h *History) Tail(limit int) []domain.TagObservation {
	start := 0
	if limit > 0 && len(h.obs) > limit {
		start = len(h.obs) - limit
	}
	out := make([]domain.TagObservation, len(h.obs)-start)
	copy(out, h.obs[start:])
	return out
}

// Len returns the number of retained observations.
func (h *History) Len() int { return len(h.obs) }

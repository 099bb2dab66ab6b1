package domain

import "time"

// StableCard is one debounced card in a stable hand.
type StableCard struct {
	UID   string `json:"uid"`
	Label string `json:"label,omitempty"`

	// FirstSeen is the earliest observation of this UID inside the
	// recency window; stability is measured from it.
	FirstSeen time.Time `json:"first_seen"`

	// LastSeen is the most recent observation of this UID.
	LastSeen time.Time `json:"last_seen"`
}

// StableHand is the debounced set of cards currently held at a position.
// Cards are unique by UID and ordered ascending by UID, so hand equality
// between poll ticks is a pure set-identity test.
type StableHand struct {
	Cards []StableCard `json:"cards"`

	// LastStable is when the card set last changed. Zero if the hand
	// has never stabilized (or was folded).
	LastStable time.Time `json:"last_stable"`

	// FoldStarted is when the recency window was first observed empty
	// while cards were still held. Zero when no fold is pending.
	FoldStarted time.Time `json:"fold_started"`
}

// UIDs returns the hand's card UIDs in canonical order.
func (h StableHand) UIDs() []string {
	out := make([]string, len(h.Cards))
	for i, c := range h.Cards {
		out[i] = c.UID
	}
	return out
}

// IsStable reports whether the hand currently holds at least one card.
func (h StableHand) IsStable() bool { return len(h.Cards) > 0 }

// PositionState is the externally visible projection of a position,
// recomputed from the stable hand on every poll tick. The primary UID and
// label come from the lowest-UID stable card, for single-card consumers.
type PositionState struct {
	Position string       `json:"position"`
	UID      string       `json:"uid,omitempty"`
	Label    string       `json:"label,omitempty"`
	LastSeen time.Time    `json:"last_seen"`
	HandSize int          `json:"hand_size"`
	Hand     []StableCard `json:"hand_cards"`
}

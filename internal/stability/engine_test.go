package stability

import (
	"testing"
	"time"

	"github.com/feltworks/deckhand/internal/domain"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// at converts a scenario offset in seconds to an absolute instant.
func at(sec float64) time.Time {
	return t0.Add(time.Duration(sec * float64(time.Second)))
}

func resolver(m map[string]string) func(string) (string, bool) {
	return func(uid string) (string, bool) {
		label, ok := m[uid]
		return label, ok
	}
}

// feed records uid sightings every tick seconds over [from, to) and
// recomputes after each tick, returning the last event.
func feed(e *Engine, h *History, hand *domain.StableHand, uids []string, resolve func(string) (string, bool), from, to, tick float64) Event {
	ev := EventNone
	for s := from; s < to; s += tick {
		now := at(s)
		h.Record(uids, resolve, now)
		ev = e.Recompute(h, hand, now)
	}
	return ev
}

func TestDebounceInBoundary(t *testing.T) {
	e := NewEngine(DefaultParams())
	h := NewHistory(DefaultHistorySize)
	var hand domain.StableHand

	// Continuous sightings from t=0; the card must not stabilize
	// before 3.0s and must stabilize at exactly 3.0s.
	for s := 0.0; s < 3.0; s += 0.12 {
		h.Record([]string{"04AA"}, nil, at(s))
		if ev := e.Recompute(h, &hand, at(s)); ev != EventNone {
			t.Fatalf("at t=%.2fs: event %v before stability time", s, ev)
		}
		if hand.IsStable() {
			t.Fatalf("at t=%.2fs: hand stable before 3.0s", s)
		}
	}

	if ev := e.Recompute(h, &hand, at(3.0)); ev != EventStable {
		t.Fatalf("at t=3.0s: event = %v, want stable (boundary inclusive)", ev)
	}
	if got := hand.UIDs(); len(got) != 1 || got[0] != "04AA" {
		t.Fatalf("hand UIDs = %v, want [04AA]", got)
	}
	if !hand.LastStable.Equal(at(3.0)) {
		t.Fatalf("LastStable = %v, want %v", hand.LastStable, at(3.0))
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	e := NewEngine(DefaultParams())
	h := NewHistory(DefaultHistorySize)
	var hand domain.StableHand

	// Dual detections at the production poll cadence (~0.5s per cycle:
	// 450ms sampling window plus the 120ms sleep).
	feed(e, h, &hand, []string{"04AA", "04BB"}, nil, 0, 4.0, 0.5)

	now := at(4.0)
	e.Recompute(h, &hand, now)
	before := hand
	if !before.IsStable() {
		t.Fatal("precondition: hand not stable before idempotence check")
	}

	if ev := e.Recompute(h, &hand, now); ev != EventNone {
		t.Fatalf("second recompute event = %v, want none", ev)
	}
	if got, want := hand.UIDs(), before.UIDs(); len(got) != len(want) {
		t.Fatalf("hand changed across identical recomputes: %v vs %v", got, want)
	}
	if !hand.LastStable.Equal(before.LastStable) {
		t.Fatalf("LastStable churned: %v vs %v", hand.LastStable, before.LastStable)
	}
}

func TestDualCardCanonicalOrdering(t *testing.T) {
	e := NewEngine(DefaultParams())
	h := NewHistory(DefaultHistorySize)
	var hand domain.StableHand

	// Record the higher UID first every poll cycle (~0.5s cadence);
	// ordering must still be ascending by UID, not arrival order.
	feed(e, h, &hand, []string{"04FF", "04AA"}, nil, 0, 3.5, 0.5)

	got := hand.UIDs()
	if len(got) != 2 || got[0] != "04AA" || got[1] != "04FF" {
		t.Fatalf("hand UIDs = %v, want [04AA 04FF]", got)
	}
}

func TestFoldAfterDelay(t *testing.T) {
	e := NewEngine(DefaultParams())
	h := NewHistory(DefaultHistorySize)
	var hand domain.StableHand

	feed(e, h, &hand, []string{"04AA"}, nil, 0, 3.5, 0.12)
	if !hand.IsStable() {
		t.Fatal("hand not stable after 3.5s of sightings")
	}

	// Absence begins at t=3.5s but the card stays inside the 10s
	// recency window until its last observation ages out, so the fold
	// timer starts only once the window is first observed empty.
	lastSeen := 3.5 - 0.02 // just shy of the final feed tick
	var foldStart time.Time
	for s := 3.5; s < 25.0; s += 0.12 {
		now := at(s)
		ev := e.Recompute(h, &hand, now)

		windowEmpty := len(h.Recent(now, e.Params().RecentWindow)) == 0
		if windowEmpty && foldStart.IsZero() {
			foldStart = hand.FoldStarted
			if foldStart.IsZero() {
				t.Fatalf("at t=%.2fs: window empty but fold timer not started", s)
			}
		}

		elapsed := now.Sub(foldStart)
		switch {
		case foldStart.IsZero() || elapsed < DefaultFoldDelay:
			if ev == EventFold {
				t.Fatalf("at t=%.2fs: folded before grace elapsed", s)
			}
			if !hand.IsStable() {
				t.Fatalf("at t=%.2fs: hand cleared before fold delay", s)
			}
		default:
			if !hand.IsStable() {
				// Cleared, as expected, at or after foldStart + 5s.
				if ev != EventFold && !hand.LastStable.IsZero() {
					t.Fatalf("at t=%.2fs: hand empty but not via fold", s)
				}
				if !hand.FoldStarted.IsZero() {
					t.Fatal("fold timer not reset after fold")
				}
				return
			}
		}
	}
	t.Fatalf("hand never folded (last sighting at t=%.2fs)", lastSeen)
}

func TestReappearanceCancelsFold(t *testing.T) {
	e := NewEngine(DefaultParams())
	h := NewHistory(DefaultHistorySize)
	var hand domain.StableHand

	// Stable card, then force the window empty by jumping past the
	// recency window so the fold timer starts.
	feed(e, h, &hand, []string{"04AA"}, nil, 0, 3.5, 0.12)
	if !hand.IsStable() {
		t.Fatal("precondition: hand not stable")
	}

	foldAt := 14.0 // > last sighting + 10s window
	if ev := e.Recompute(h, &hand, at(foldAt)); ev != EventNone {
		t.Fatalf("fold-start tick event = %v, want none", ev)
	}
	if hand.FoldStarted.IsZero() {
		t.Fatal("fold timer did not start on first empty window")
	}
	if !hand.IsStable() {
		t.Fatal("hand cleared during grace period")
	}

	// Reappearance at 4.9s into the 5.0s countdown cancels the fold.
	// The window could only read empty because the card's earlier
	// observations had aged out, so the reappearing sighting is fresh:
	// the hand empties through the cleared path, never the fold path.
	reappear := foldAt + 4.9
	h.Record([]string{"04AA"}, nil, at(reappear))
	if ev := e.Recompute(h, &hand, at(reappear)); ev != EventCleared {
		t.Fatalf("reappearance event = %v, want cleared", ev)
	}
	if !hand.FoldStarted.IsZero() {
		t.Fatal("fold timer not canceled by reappearance")
	}

	// Continued sightings: no fold may fire, and the card re-stabilizes
	// once it has dwelled for the stability time again.
	var stableAt time.Time
	for s := reappear + 0.12; s < reappear+4.0; s += 0.12 {
		now := at(s)
		h.Record([]string{"04AA"}, nil, now)
		switch e.Recompute(h, &hand, now) {
		case EventFold:
			t.Fatalf("at t=%.2fs: fold fired despite renewed detections", s)
		case EventStable:
			if stableAt.IsZero() {
				stableAt = now
			}
		}
	}
	if stableAt.IsZero() {
		t.Fatal("card never re-stabilized after reappearance")
	}
	if got := stableAt.Sub(at(reappear)); got < DefaultStabilityTime || got > DefaultStabilityTime+200*time.Millisecond {
		t.Fatalf("re-stabilized %v after reappearance, want >= %v within one tick", got, DefaultStabilityTime)
	}
	if got := hand.UIDs(); len(got) != 1 || got[0] != "04AA" {
		t.Fatalf("hand UIDs = %v, want [04AA]", got)
	}
}

func TestShortGapNeedsNoRestabilize(t *testing.T) {
	e := NewEngine(DefaultParams())
	h := NewHistory(DefaultHistorySize)
	var hand domain.StableHand

	feed(e, h, &hand, []string{"04AA"}, nil, 0, 3.5, 0.12)
	if !hand.IsStable() {
		t.Fatal("precondition: hand not stable")
	}

	// A gap short enough that the card never exits the 10s window: the
	// window stays non-empty, no fold timer starts, and the card stays
	// stable throughout with no new dwell required.
	for s := 3.5; s < 12.0; s += 0.12 {
		if ev := e.Recompute(h, &hand, at(s)); ev != EventNone {
			t.Fatalf("at t=%.2fs: event %v during tolerated gap", s, ev)
		}
		if !hand.FoldStarted.IsZero() {
			t.Fatalf("at t=%.2fs: fold timer started with card still in window", s)
		}
		if !hand.IsStable() {
			t.Fatalf("at t=%.2fs: hand lost during tolerated gap", s)
		}
	}

	h.Record([]string{"04AA"}, nil, at(12.0))
	if ev := e.Recompute(h, &hand, at(12.0)); ev != EventNone {
		t.Fatalf("resumption event = %v, want none (set never changed)", ev)
	}
	if !hand.IsStable() {
		t.Fatal("hand lost on resumption inside the window")
	}
}

func TestScenarioSingleCardWithLabel(t *testing.T) {
	e := NewEngine(DefaultParams())
	h := NewHistory(DefaultHistorySize)
	var hand domain.StableHand
	resolve := resolver(map[string]string{"04AA": "A♠"})

	var stableAt time.Time
	for s := 0.0; s <= 10.0; s += 0.12 {
		now := at(s)
		h.Record([]string{"04AA"}, resolve, now)
		ev := e.Recompute(h, &hand, now)

		if s < 3.0 && hand.IsStable() {
			t.Fatalf("at t=%.2fs: hand non-empty before 3.0s", s)
		}
		if ev == EventStable && stableAt.IsZero() {
			stableAt = now
		}
	}

	if stableAt.IsZero() || stableAt.After(at(3.2)) {
		t.Fatalf("stabilized at %v, want within one tick of t=3.0s", stableAt)
	}
	if len(hand.Cards) != 1 || hand.Cards[0].UID != "04AA" || hand.Cards[0].Label != "A♠" {
		t.Fatalf("hand = %+v, want single 04AA/A♠", hand.Cards)
	}

	st := Project("seat_1", hand, at(10.0))
	if st.UID != "04AA" || st.Label != "A♠" || st.HandSize != 1 {
		t.Fatalf("projection = %+v, want uid=04AA label=A♠ hand_size=1", st)
	}
	if !st.LastSeen.Equal(at(10.0)) {
		t.Fatalf("projection LastSeen = %v, want now", st.LastSeen)
	}
}

func TestScenarioShortPresenceThenAbsence(t *testing.T) {
	e := NewEngine(DefaultParams())
	h := NewHistory(DefaultHistorySize)
	var hand domain.StableHand

	// Observed t=0..3.5s, absent thereafter. Expect: stable at 3.0s;
	// fold timer starts once the window first reads empty; hand clears
	// 5.0s after that.
	var stableAt, foldStart, clearedAt time.Time
	for s := 0.0; s < 30.0; s += 0.12 {
		now := at(s)
		if s <= 3.5 {
			h.Record([]string{"04AA"}, nil, now)
		}
		ev := e.Recompute(h, &hand, now)
		switch ev {
		case EventStable:
			if stableAt.IsZero() {
				stableAt = now
			}
		case EventFold:
			clearedAt = now
		}
		if foldStart.IsZero() && !hand.FoldStarted.IsZero() {
			foldStart = hand.FoldStarted
		}
	}

	if stableAt.IsZero() || stableAt.Before(at(2.99)) || stableAt.After(at(3.2)) {
		t.Fatalf("stableAt = %v, want ~t=3.0s", stableAt)
	}
	// The last observation is near t=3.5s; it exits the 10s window
	// around t=13.5s, which is when the fold timer must start.
	if foldStart.IsZero() || foldStart.Before(at(13.4)) || foldStart.After(at(13.7)) {
		t.Fatalf("foldStart = %v, want ~t=13.5s", foldStart)
	}
	if clearedAt.IsZero() {
		t.Fatal("hand never folded")
	}
	if got := clearedAt.Sub(foldStart); got < DefaultFoldDelay || got > DefaultFoldDelay+200*time.Millisecond {
		t.Fatalf("fold elapsed = %v, want >= %v within one tick", got, DefaultFoldDelay)
	}
	if hand.IsStable() || !hand.LastStable.IsZero() || !hand.FoldStarted.IsZero() {
		t.Fatalf("hand not fully reset after fold: %+v", hand)
	}
}

func TestClearedDistinctFromFold(t *testing.T) {
	e := NewEngine(Params{StabilityTime: 2 * time.Second, FoldDelay: 5 * time.Second, RecentWindow: 3 * time.Second})
	h := NewHistory(DefaultHistorySize)
	var hand domain.StableHand

	// Card A is sighted only during [0, 1.0s] but stabilizes at 2.0s
	// while its observations are still inside the 3s window. Card B
	// starts at 3.5s. When A's last sighting ages out (t>4.0s) B is not
	// yet stable, so the set changes to empty through the cleared path
	// while detections are still arriving; no fold may fire.
	sawCleared := false
	for s := 0.0; s < 7.0; s += 0.1 {
		now := at(s)
		if s <= 1.0 {
			h.Record([]string{"04AA"}, nil, now)
		}
		if s >= 3.5 {
			h.Record([]string{"04BB"}, nil, now)
		}
		ev := e.Recompute(h, &hand, now)
		if ev == EventFold {
			t.Fatalf("at t=%.2fs: fold fired while detections present", s)
		}
		if ev == EventCleared {
			sawCleared = true
			if s < 4.0 || s > 4.3 {
				t.Fatalf("cleared at t=%.2fs, want just after A exits the window (~4.1s)", s)
			}
		}
	}
	if !sawCleared {
		t.Fatal("expected a cleared transition when A aged out before B stabilized")
	}
	if got := hand.UIDs(); len(got) != 1 || got[0] != "04BB" {
		t.Fatalf("hand UIDs = %v, want [04BB] after B stabilizes", got)
	}
}

func TestLabelRefreshOnUnchangedSet(t *testing.T) {
	e := NewEngine(DefaultParams())
	h := NewHistory(DefaultHistorySize)
	var hand domain.StableHand

	labels := map[string]string{}
	feed(e, h, &hand, []string{"04AA"}, resolver(labels), 0, 3.5, 0.12)
	if hand.Cards[0].Label != "" {
		t.Fatalf("label = %q, want unmapped", hand.Cards[0].Label)
	}

	// Mapping assigned mid-flight: the next observation carries the new
	// label and the hand picks it up without a set change.
	labels["04AA"] = "K♦"
	h.Record([]string{"04AA"}, resolver(labels), at(3.6))
	if ev := e.Recompute(h, &hand, at(3.6)); ev != EventNone {
		t.Fatalf("event = %v, want none (set identity unchanged)", ev)
	}
	if hand.Cards[0].Label != "K♦" {
		t.Fatalf("label = %q, want K♦ after mapping", hand.Cards[0].Label)
	}
}

package table

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// memRepo is an in-memory ports.MapRepository.
type memRepo struct {
	mu    sync.Mutex
	m     map[string]string
	saves int
	fail  error
}

func (r *memRepo) Load(ctx context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]string{}
	for k, v := range r.m {
		out[k] = v
	}
	return out, nil
}

func (r *memRepo) Save(ctx context.Context, m map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.m = m
	r.saves++
	return nil
}

func TestLabelsAssignLookupClear(t *testing.T) {
	repo := &memRepo{}
	labels := NewLabels(repo, nil)
	ctx := context.Background()

	if err := labels.Assign(ctx, "04aa", "A♠"); err != nil {
		t.Fatal(err)
	}

	// Lookup normalizes case and whitespace.
	if got, ok := labels.Lookup(" 04AA "); !ok || got != "A♠" {
		t.Fatalf("Lookup = %q/%v, want A♠/true", got, ok)
	}

	if err := labels.Clear(ctx, "04AA"); err != nil {
		t.Fatal(err)
	}
	if _, ok := labels.Lookup("04AA"); ok {
		t.Fatal("mapping survived Clear")
	}
	if repo.saves != 2 {
		t.Fatalf("saves = %d, want 2 (persist on every admin change)", repo.saves)
	}
}

func TestLabelsSaveFailureSurfaces(t *testing.T) {
	repo := &memRepo{fail: errors.New("disk full")}
	labels := NewLabels(repo, nil)

	if err := labels.Assign(context.Background(), "04AA", "A♠"); err == nil {
		t.Fatal("expected persistence error")
	}
}

func TestLabelsLoadReplacesMap(t *testing.T) {
	repo := &memRepo{m: map[string]string{"04BB": "K♦"}}
	labels := NewLabels(repo, nil)

	if err := labels.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got, ok := labels.Lookup("04BB"); !ok || got != "K♦" {
		t.Fatalf("Lookup after Load = %q/%v", got, ok)
	}

	all := labels.All()
	all["04CC"] = "mutated"
	if _, ok := labels.Lookup("04CC"); ok {
		t.Fatal("All() exposed internal map")
	}
}

func TestLifecycleTransitions(t *testing.T) {
	lc := NewLifecycle(nil)

	if lc.State() != StateStopped {
		t.Fatalf("initial state = %v", lc.State())
	}
	if !lc.CanStart() || lc.CanStop() {
		t.Fatal("stopped lifecycle should be startable and not stoppable")
	}

	if err := lc.TransitionTo(StateRunning, "skip starting"); err == nil {
		t.Fatal("Stopped -> Running must be rejected")
	}
	if err := lc.TransitionTo(StateStarting, "start"); err != nil {
		t.Fatal(err)
	}
	if err := lc.TransitionTo(StateRunning, "started"); err != nil {
		t.Fatal(err)
	}
	if !lc.CanStop() || lc.CanStart() {
		t.Fatal("running lifecycle should be stoppable and not startable")
	}
	if err := lc.TransitionTo(StateStopping, "stop"); err != nil {
		t.Fatal(err)
	}
	if err := lc.TransitionTo(StateStopped, "stopped"); err != nil {
		t.Fatal(err)
	}
	if err := lc.TransitionTo(StateStarting, "restart"); err != nil {
		t.Fatal(err)
	}
	if err := lc.TransitionTo(StateCrashed, "boom"); err != nil {
		t.Fatal(err)
	}
	if !lc.CanStart() {
		t.Fatal("crashed lifecycle should be restartable")
	}
}

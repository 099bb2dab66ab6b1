// Package reader adapts a physical tag driver (ports.Target) into the
// sampling Reader the poll loop consumes. One sample runs repeated
// short-timeout probes over a bounded window and keeps the two most
// frequently sensed UIDs, which is how overlapping cards are separated:
// the field couples to each tag intermittently, so counting sightings
// over the window recovers both.
package reader

import (
	"context"
	"sort"
	"time"

	"github.com/feltworks/deckhand/internal/domain"
	"github.com/feltworks/deckhand/internal/ports"
)

// Sampling defaults, matching the physical tuning of the table readers.
const (
	DefaultSampleWindow = 450 * time.Millisecond
	DefaultProbeTimeout = 40 * time.Millisecond
)

// maxOverlap is the most tags one sampling window can resolve.
const maxOverlap = 2

// Sampler implements ports.Reader over a Target.
type Sampler struct {
	target  ports.Target
	window  time.Duration
	probe   time.Duration
	nowFunc func() time.Time
}

// Option tunes a Sampler.
type Option func(*Sampler)

// WithWindow sets the sampling window duration.
func WithWindow(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithProbeTimeout sets the per-probe timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.probe = d
		}
	}
}

// withClock overrides the time source; tests only.
func withClock(now func() time.Time) Option {
	return func(s *Sampler) { s.nowFunc = now }
}

// NewSampler creates a sampling reader over the given driver.
func NewSampler(target ports.Target, opts ...Option) *Sampler {
	s := &Sampler{
		target:  target,
		window:  DefaultSampleWindow,
		probe:   DefaultProbeTimeout,
		nowFunc: time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Target returns the underlying driver.
func (s *Sampler) Target() ports.Target { return s.target }

// Sample runs one bounded window of probes. Individual probe errors are
// tolerated; a window in which every probe failed is reported as
// transient so the caller can log it, and is otherwise equivalent to an
// empty detection.
func (s *Sampler) Sample(ctx context.Context) domain.PollResult {
	counts := make(map[string]int, maxOverlap)
	var probes, failures int
	var lastErr error

	deadline := s.nowFunc().Add(s.window)
	for s.nowFunc().Before(deadline) {
		if ctx.Err() != nil {
			break
		}
		probes++
		uid, err := s.target.Probe(ctx, s.probe)
		if err != nil {
			failures++
			lastErr = err
			continue
		}
		if len(uid) > 0 {
			counts[domain.UIDHex(uid)]++
		}
	}

	if len(counts) == 0 {
		if probes > 0 && failures == probes {
			return domain.Transient(lastErr)
		}
		return domain.Detected(nil)
	}
	return domain.Detected(topTwo(counts))
}

// topTwo returns the up-to-two most frequently sensed UIDs, most common
// first; count ties break by UID so the result is deterministic.
func topTwo(counts map[string]int) []string {
	uids := make([]string, 0, len(counts))
	for uid := range counts {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool {
		if counts[uids[i]] != counts[uids[j]] {
			return counts[uids[i]] > counts[uids[j]]
		}
		return uids[i] < uids[j]
	})
	if len(uids) > maxOverlap {
		uids = uids[:maxOverlap]
	}
	return uids
}

package ports

import (
	"context"
	"time"

	"github.com/feltworks/deckhand/internal/domain"
)

// Target is the minimal contract of a physical tag reader. Drivers for
// concrete hardware live outside this module; deckhand only requires the
// ability to probe for a single tag within a bounded timeout and to do
// page-level tag memory I/O.
type Target interface {
	// Probe attempts one read of a tag UID, blocking at most timeout.
	// Returns (nil, nil) when no tag is in the field.
	Probe(ctx context.Context, timeout time.Duration) ([]byte, error)

	// ReadPage reads one 4-byte page of tag memory.
	ReadPage(ctx context.Context, page int) ([]byte, error)

	// WritePage writes one 4-byte page of tag memory.
	WritePage(ctx context.Context, page int, data []byte) error
}

// Reader samples a position for currently visible tags. One sampling
// window is bounded in duration and senses at most two overlapping tags.
type Reader interface {
	// Sample runs one bounded sampling window. It never returns an
	// error: transient hardware failures are reported via the result
	// status and treated as "nothing detected" downstream.
	Sample(ctx context.Context) domain.PollResult

	// Target exposes the underlying driver for tag memory I/O and
	// diagnostic single probes.
	Target() Target
}

package domain

import "errors"

// Domain errors returned by the public API; check with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("deckhand: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("deckhand: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("deckhand: shutdown timeout")

	// ErrUnknownPosition is returned for lookups of unconfigured positions.
	ErrUnknownPosition = errors.New("deckhand: unknown position")

	// ErrNoReader is returned when a position has no reader attached.
	ErrNoReader = errors.New("deckhand: no reader for position")
)

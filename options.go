package deckhand

import (
	"github.com/feltworks/deckhand/internal/adapters/fs"
	"github.com/feltworks/deckhand/internal/ports"
	"github.com/feltworks/deckhand/internal/table"
	"github.com/feltworks/deckhand/pkg/log"
)

// ReaderFactory builds the hardware target for one configured reader.
// name is the position key from the table layout; spec carries the
// reader's declared type and bus addressing.
type ReaderFactory func(name string, spec fs.ReaderSpec) (ports.Target, error)

// Events receives hand transitions from the running table. See
// table.Events for the calling contract.
type Events = table.Events

// Option configures optional behavior of a Deckhand instance.
type Option func(*options)

type options struct {
	logger        log.Logger
	readerFactory ReaderFactory
	events        Events
}

func defaultOptions() options {
	return options{logger: log.NewNoop()}
}

// WithLogger sets the logger. If not provided, output is discarded.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithReaderFactory sets the factory used to open hardware readers.
// Without one, every position gets a demo target that never detects a
// tag, which is also what the demo config flag forces.
func WithReaderFactory(f ReaderFactory) Option {
	return func(o *options) {
		o.readerFactory = f
	}
}

// WithEventHandler sets a handler for hand transitions. Calls are made
// synchronously from the poll tasks; handlers must not block.
func WithEventHandler(events Events) Option {
	return func(o *options) {
		o.events = events
	}
}

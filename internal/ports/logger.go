package ports

import "github.com/feltworks/deckhand/pkg/log"

// Logger re-exports the logging abstraction so core packages can depend
// on ports alone.
type Logger = log.Logger

// Field re-exports the structured log field type.
type Field = log.Field

// Field constructors, re-exported for convenience.
var (
	Str  = log.Str
	Int  = log.Int
	Dur  = log.Dur
	Time = log.Time
	Strs = log.Strs
	Err  = log.Err
	Any  = log.Any
)

package log

// Noop discards all log messages. Used as the default in library mode
// and in tests that do not assert on log output.
type Noop struct{}

// NewNoop returns a logger that discards everything.
func NewNoop() *Noop { return &Noop{} }

func (Noop) Debug(msg string, fields ...Field) {}
func (Noop) Info(msg string, fields ...Field)  {}
func (Noop) Warn(msg string, fields ...Field)  {}
func (Noop) Error(msg string, fields ...Field) {}

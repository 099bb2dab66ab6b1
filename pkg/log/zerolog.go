package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Zerolog adapts a zerolog.Logger to the Logger interface.
type Zerolog struct {
	l zerolog.Logger
}

// NewZerolog creates an adapter with human-readable console output on stderr.
func NewZerolog() *Zerolog {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return &Zerolog{l: zerolog.New(out).With().Timestamp().Logger()}
}

// WrapZerolog adapts an existing zerolog.Logger.
func WrapZerolog(l zerolog.Logger) *Zerolog {
	return &Zerolog{l: l}
}

func (z *Zerolog) Debug(msg string, fields ...Field) { emit(z.l.Debug(), msg, fields) }
func (z *Zerolog) Info(msg string, fields ...Field)  { emit(z.l.Info(), msg, fields) }
func (z *Zerolog) Warn(msg string, fields ...Field)  { emit(z.l.Warn(), msg, fields) }
func (z *Zerolog) Error(msg string, fields ...Field) { emit(z.l.Error(), msg, fields) }

// Unwrap returns the underlying zerolog.Logger.
func (z *Zerolog) Unwrap() zerolog.Logger { return z.l }

func emit(ev *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			ev = ev.Str(f.Key, v)
		case int:
			ev = ev.Int(f.Key, v)
		case time.Duration:
			ev = ev.Dur(f.Key, v)
		case time.Time:
			ev = ev.Time(f.Key, v)
		case []string:
			ev = ev.Strs(f.Key, v)
		case error:
			ev = ev.Err(v)
		default:
			ev = ev.Interface(f.Key, v)
		}
	}
	ev.Msg(msg)
}

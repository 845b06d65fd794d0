// Package logging builds the daemon's zerolog loggers and bridges engine
// traces into them.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/slide-sensor/internal/slide"
)

// New returns a logger writing JSON lines to w at the named level.
// An empty level means info.
func New(w io.Writer, level string) (zerolog.Logger, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Subsystem returns a child logger tagged with the subsystem name.
func Subsystem(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("subsystem", name).Logger()
}

// TraceSink writes engine traces at debug level.
type TraceSink struct {
	log zerolog.Logger
}

// NewTraceSink returns a sink logging to log. When debug is disabled on log
// it returns nil so the engine skips building traces altogether.
func NewTraceSink(log zerolog.Logger) slide.Sink {
	if log.GetLevel() > zerolog.DebugLevel {
		return nil
	}
	return &TraceSink{log: log}
}

func (s *TraceSink) Trace(t slide.Trace) {
	ev := s.log.Debug().
		Uint16("tick", uint16(t.Tick)).
		Str("kind", string(t.Kind))

	switch t.Kind {
	case slide.TracePhase:
		ev = ev.Stringer("from", t.From).Stringer("to", t.To).Int("channel", t.Channel)
	case slide.TraceAbort:
		ev = ev.Stringer("from", t.From).Str("reason", string(t.Reason))
	case slide.TraceReject:
		ev = ev.Int("channel", t.Channel).Str("reason", string(t.Reason)).
			Uint32("value", t.Value).Uint32("min", t.Min).Uint32("max", t.Max)
	case slide.TraceVerdict:
		ev = ev.Str("event", string(t.Event))
	case slide.TraceSegment:
		ev = ev.Int("channel", t.Channel).
			Uint32("value", t.Value).Uint32("min", t.Min).Uint32("max", t.Max)
	}
	ev.Msg("trace")
}

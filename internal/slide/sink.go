package slide

// TraceKind classifies a Trace record.
type TraceKind string

const (
	TracePhase   TraceKind = "phase"   // phase transition
	TraceAbort   TraceKind = "abort"   // session dropped without an event
	TraceReject  TraceKind = "reject"  // validator rejected the session
	TraceVerdict TraceKind = "verdict" // validator accepted the session
	TraceSegment TraceKind = "segment" // per-segment measurement during validation
)

// Trace is a structured debug record emitted by the engine.
type Trace struct {
	Tick    Tick
	Kind    TraceKind
	From    Phase
	To      Phase
	Channel int
	Reason  Reason
	Event   EventType
	// Measured value and the bounds it was checked against, where relevant.
	Value uint32
	Min   uint32
	Max   uint32
}

// Sink receives traces. A nil Sink disables tracing entirely.
type Sink interface {
	Trace(t Trace)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Trace)

func (f SinkFunc) Trace(t Trace) { f(t) }

// MultiSink fans a trace out to several sinks.
type MultiSink []Sink

func (m MultiSink) Trace(t Trace) {
	for _, s := range m {
		if s != nil {
			s.Trace(t)
		}
	}
}

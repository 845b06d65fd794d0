package slide

import "fmt"

// Engine recognises slide gestures from per-tick pad samples.
// It is not safe for concurrent use; call Step from a single goroutine.
type Engine struct {
	cal     Calibration
	n       int
	sampler *sampler
	session Session
	tick    Tick
	start   Tick

	keys   KeyProcessor
	keymap []KeyCode
	sink   Sink
}

// Option configures an Engine.
type Option func(*Engine)

// WithKeyProcessor delegates single-channel touches to kp. keymap gives the
// key code for each channel; missing or KeyNone entries produce no key.
func WithKeyProcessor(kp KeyProcessor, keymap []KeyCode) Option {
	return func(e *Engine) {
		e.keys = kp
		e.keymap = append([]KeyCode(nil), keymap...)
	}
}

// WithSink sends debug traces to s.
func WithSink(s Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithStartTick sets the tick counter value the engine starts from.
func WithStartTick(t Tick) Option {
	return func(e *Engine) {
		e.start = t % TickModulus
	}
}

// NewEngine creates an engine for the channel count described by cal.
func NewEngine(cal Calibration, opts ...Option) (*Engine, error) {
	n := cal.Channels()
	if err := cal.Validate(n); err != nil {
		return nil, err
	}
	e := &Engine{
		cal:     cal.clone(),
		n:       n,
		sampler: newSampler(n, cal.DebounceScanCount, cal.DebounceReleaseCount),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Reset()
	return e, nil
}

// Reset returns the engine to its initial state: Idle, zeroed channels and
// the start tick.
func (e *Engine) Reset() {
	e.sampler.reset()
	e.session = Session{Phase: PhaseIdle, Visited: make([]bool, e.n)}
	e.tick = e.start
	if e.keys != nil {
		e.keys.Reset()
	}
}

// Channels returns the number of pads.
func (e *Engine) Channels() int {
	return e.n
}

// Tick returns the tick of the most recent Step.
func (e *Engine) Tick() Tick {
	return e.tick
}

// Phase returns the current session phase.
func (e *Engine) Phase() Phase {
	return e.session.Phase
}

// Session returns a copy of the current session.
func (e *Engine) Session() Session {
	s := e.session
	s.Visited = append([]bool(nil), e.session.Visited...)
	return s
}

// Channel returns a copy of channel i's debounce state.
func (e *Engine) Channel(i int) Channel {
	return e.sampler.channels[i]
}

// Step consumes one tick of readings (one entry per channel, true = pressed)
// and returns the tick's event.
func (e *Engine) Step(pressed []bool) Event {
	e.tick = e.tick.Next()
	scan := e.sampler.update(e.tick, pressed)
	ev := Event{Tick: e.tick, Type: EventNone}

	if key := e.processKey(scan); key != KeyNone {
		ev.Type = EventKey
		ev.Key = key
	}

	if scan.Count > 1 {
		if e.session.Phase != PhaseIdle {
			e.abort(ReasonMultiTouch)
		}
		return ev
	}

	switch e.session.Phase {
	case PhaseIdle:
		if scan.Count == 1 && e.isEnd(scan.Index) && e.sampler.channels[scan.Index].Pushed {
			e.session.First = scan.Index
			e.session.Last = scan.Index
			e.visit(scan.Index)
			e.setPhase(PhaseFirstPush, scan.Index)
		}
	case PhaseFirstPush:
		if scan.Count == 1 && scan.Index != e.session.Last && e.sampler.channels[scan.Index].Pushed {
			e.session.Last = scan.Index
			e.visit(scan.Index)
			e.setPhase(PhaseSecondPush, scan.Index)
		}
	case PhaseSecondPush:
		if scan.Count == 1 && e.sampler.pressConfirmed(scan.Index) {
			e.session.Last = scan.Index
			e.visit(scan.Index)
			if e.isEnd(scan.Index) && scan.Index != e.session.First {
				e.setPhase(PhaseFinishing, scan.Index)
			}
		}
	}

	if e.session.Phase == PhaseFinishing && e.sampler.channels[e.session.Last].Released {
		v := validate(&e.cal, &e.session, e.sampler.channels, e.tick, e.sink)
		ev.Type = v.Event
		ev.Key = KeyNone
		ev.Reason = v.Reason
		e.setPhase(PhaseIdle, e.session.Last)
		e.clearVisited()
		return ev
	}

	if e.session.Phase != PhaseIdle && e.sampler.releaseConfirmed(e.session.Last) {
		idle := TickSub(e.tick, e.sampler.channels[e.session.Last].ReleaseTick)
		if uint16(idle) > e.cal.ReleaseDelay {
			e.abort(ReasonTimeout)
		}
	}
	return ev
}

// processKey drives the single-key collaborator. While a slide is under way
// or several pads are touched it is fed KeyNone and reset.
func (e *Engine) processKey(scan Scan) KeyCode {
	if e.keys == nil {
		return KeyNone
	}
	if scan.Count <= 1 && e.session.Phase <= PhaseFirstPush {
		key := KeyNone
		if scan.Count == 1 && scan.Index < len(e.keymap) {
			key = e.keymap[scan.Index]
		}
		return e.keys.Process(key)
	}
	e.keys.Process(KeyNone)
	e.keys.Reset()
	return KeyNone
}

func (e *Engine) isEnd(i int) bool {
	return i == 0 || i == e.n-1
}

func (e *Engine) visit(i int) {
	e.session.Visited[i] = true
}

func (e *Engine) clearVisited() {
	for i := range e.session.Visited {
		e.session.Visited[i] = false
	}
}

func (e *Engine) abort(reason Reason) {
	from := e.session.Phase
	e.session.Phase = PhaseIdle
	e.clearVisited()
	if e.sink != nil {
		e.sink.Trace(Trace{Tick: e.tick, Kind: TraceAbort, From: from, To: PhaseIdle, Channel: e.session.Last, Reason: reason})
	}
}

func (e *Engine) setPhase(to Phase, channel int) {
	from := e.session.Phase
	e.session.Phase = to
	if e.sink != nil {
		e.sink.Trace(Trace{Tick: e.tick, Kind: TracePhase, From: from, To: to, Channel: channel})
	}
}

func (e *Engine) String() string {
	return fmt.Sprintf("slide.Engine{channels=%d phase=%s tick=%d}", e.n, e.session.Phase, e.tick)
}

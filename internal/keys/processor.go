// Package keys turns a per-tick key reading into click, multi-click and
// long-press events. It is the single-key collaborator of slide.Engine.
package keys

import "github.com/sweeney/slide-sensor/internal/slide"

// Action is what happened to a key.
type Action uint8

const (
	ActionNone Action = iota
	ActionShort
	ActionDouble
	ActionTriple
	ActionLong
	ActionHold
	ActionLongUp
)

func (a Action) String() string {
	switch a {
	case ActionShort:
		return "SHORT"
	case ActionDouble:
		return "DOUBLE"
	case ActionTriple:
		return "TRIPLE"
	case ActionLong:
		return "LONG"
	case ActionHold:
		return "HOLD"
	case ActionLongUp:
		return "LONG_UP"
	}
	return "NONE"
}

const (
	actionShift = 12
	codeMask    = 1<<actionShift - 1
)

// MaxCode is the largest key code Encode keeps intact.
const MaxCode = codeMask

// Encode packs a key code (low 12 bits) and an action into one KeyCode.
func Encode(code slide.KeyCode, a Action) slide.KeyCode {
	return code&codeMask | slide.KeyCode(a)<<actionShift
}

// Decode splits a KeyCode produced by Encode.
func Decode(k slide.KeyCode) (slide.KeyCode, Action) {
	return k & codeMask, Action(k >> actionShift)
}

// Config holds the tick counts of the key processor.
type Config struct {
	// Ticks a key must be read before it counts as pressed.
	ScanCount uint16
	// Ticks held after confirmation before a long press fires.
	LongTicks uint16
	// Repeat interval of hold events after a long press. 0 disables.
	HoldTicks uint16
	// Ticks to wait after a release for another click. 0 reports every
	// click as SHORT immediately.
	MultiClickTicks uint16
}

// DefaultConfig returns tick counts suited to a 10ms scan.
func DefaultConfig() Config {
	return Config{
		ScanCount:       2,
		LongTicks:       150,
		HoldTicks:       30,
		MultiClickTicks: 40,
	}
}

// Processor implements slide.KeyProcessor.
type Processor struct {
	cfg Config

	current  slide.KeyCode
	debounce uint16
	pressed  bool
	held     uint32
	long     bool

	clickKey slide.KeyCode
	clicks   int
	window   uint16
}

// NewProcessor creates a processor with the given tick counts.
func NewProcessor(cfg Config) *Processor {
	if cfg.ScanCount == 0 {
		cfg.ScanCount = 1
	}
	return &Processor{cfg: cfg}
}

// Process consumes one tick's key reading and returns the encoded event
// that fired on this tick, or slide.KeyNone.
func (p *Processor) Process(key slide.KeyCode) slide.KeyCode {
	if key != slide.KeyNone {
		return p.press(key)
	}
	return p.release()
}

func (p *Processor) press(key slide.KeyCode) slide.KeyCode {
	if key != p.current {
		p.current = key
		p.debounce = 0
		p.pressed = false
		p.held = 0
		p.long = false
		if p.clickKey != key {
			// Clicks on a different key do not chain.
			p.clicks = 0
		}
	}

	if !p.pressed {
		p.debounce++
		if p.debounce >= p.cfg.ScanCount {
			p.pressed = true
		}
		return slide.KeyNone
	}

	p.held++
	long := uint32(p.cfg.LongTicks)
	switch {
	case long > 0 && p.held == long:
		p.long = true
		p.clicks = 0
		return Encode(key, ActionLong)
	case p.long && p.cfg.HoldTicks > 0 && (p.held-long)%uint32(p.cfg.HoldTicks) == 0:
		return Encode(key, ActionHold)
	}
	return slide.KeyNone
}

func (p *Processor) release() slide.KeyCode {
	if p.current != slide.KeyNone {
		out := slide.KeyNone
		if p.pressed {
			if p.long {
				out = Encode(p.current, ActionLongUp)
			} else {
				p.clickKey = p.current
				p.clicks++
				p.window = 0
				if p.cfg.MultiClickTicks == 0 {
					out = p.flush()
				}
			}
		}
		p.current = slide.KeyNone
		p.debounce = 0
		p.pressed = false
		p.held = 0
		p.long = false
		return out
	}

	if p.clicks > 0 {
		p.window++
		if p.window >= p.cfg.MultiClickTicks {
			return p.flush()
		}
	}
	return slide.KeyNone
}

func (p *Processor) flush() slide.KeyCode {
	a := ActionShort
	switch {
	case p.clicks >= 3:
		a = ActionTriple
	case p.clicks == 2:
		a = ActionDouble
	}
	out := Encode(p.clickKey, a)
	p.clicks = 0
	p.window = 0
	return out
}

// Reset drops any press and pending clicks.
func (p *Processor) Reset() {
	cfg := p.cfg
	*p = Processor{cfg: cfg}
}

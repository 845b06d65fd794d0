// Package slide contains the pure gesture logic for a line of touch pads.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time).
// Time is always a tick counter advanced by Engine.Step.
package slide

// Phase is the progress of the current slide session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFirstPush
	PhaseSecondPush
	PhaseFinishing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseFirstPush:
		return "FIRST_PUSH"
	case PhaseSecondPush:
		return "SECOND_PUSH"
	case PhaseFinishing:
		return "FINISHING"
	}
	return "UNKNOWN"
}

// EventType is the per-tick output of the engine.
type EventType string

const (
	EventNone          EventType = "NONE"
	EventKey           EventType = "KEY"
	EventSlideForward  EventType = "SLIDE_FORWARD"
	EventSlideBackward EventType = "SLIDE_BACKWARD"
	EventRejected      EventType = "REJECTED"
)

// IsSlide reports whether t is one of the slide verdicts.
func (t EventType) IsSlide() bool {
	return t == EventSlideForward || t == EventSlideBackward
}

// Reason explains a rejection or an aborted session.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonTimeDiff          Reason = "time_diff"
	ReasonZeroElapsed       Reason = "zero_elapsed"
	ReasonVelocity          Reason = "velocity"
	ReasonVelocityDiff      Reason = "velocity_diff"
	ReasonVelocityDiffTotal Reason = "velocity_diff_total"
	ReasonMultiTouch        Reason = "multi_touch"
	ReasonTimeout           Reason = "timeout"
)

// KeyCode identifies a single-key event. KeyNone means no key.
type KeyCode uint16

const KeyNone KeyCode = 0

// Event is the result of one tick.
type Event struct {
	Tick   Tick
	Type   EventType
	Key    KeyCode // set for EventKey
	Reason Reason  // set for EventRejected
}

// Channel is the debounce state of one touch pad.
type Channel struct {
	// Consecutive pressed ticks, saturates at the scan count
	DebounceCount uint8
	// Consecutive released ticks, saturates at the release count
	ReleaseCount uint8
	// Tick at which the press / release was confirmed
	PushTick    Tick
	ReleaseTick Tick
	// Press / release confirmed on the current tick
	Pushed   bool
	Released bool
}

// Session is the current gesture attempt.
type Session struct {
	Phase Phase
	First int
	Last  int
	// Channels confirmed as part of this attempt.
	Visited []bool
}

// KeyProcessor turns a per-tick key reading into click/long-press events.
// Process receives KeyNone when no single channel is pressed and returns
// KeyNone when nothing fires on this tick.
type KeyProcessor interface {
	Process(key KeyCode) KeyCode
	Reset()
}

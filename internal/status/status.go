// Package status provides a thread-safe status tracker for the slide-sensor
// daemon. It is written by the run loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/slide-sensor/internal/slide"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs   int64
	Channels int
	Pins     []int
	Broker   string
	Redis    string
	HTTPAddr string
}

// EventCounts tallies the events produced since startup.
type EventCounts struct {
	Forward    int
	Backward   int
	Rejected   int
	Keys       int
	Rejections map[slide.Reason]int
}

func (c EventCounts) clone() EventCounts {
	cp := c
	cp.Rejections = make(map[slide.Reason]int, len(c.Rejections))
	for k, v := range c.Rejections {
		cp.Rejections[k] = v
	}
	return cp
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Phase         slide.Phase
	Tick          slide.Tick
	Pressed       []bool
	Counts        EventCounts
	LastEvent     *slide.Event
	LastEventAt   time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Counts:    EventCounts{Rejections: map[slide.Reason]int{}},
		},
	}
}

// Observe records one engine step: the phase after the step, the raw pad
// readings and the step's event. Called from runLoop on every tick.
func (t *Tracker) Observe(ev slide.Event, phase slide.Phase, pressed []bool, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Phase = phase
	t.snap.Tick = ev.Tick
	t.snap.Pressed = append(t.snap.Pressed[:0], pressed...)

	switch ev.Type {
	case slide.EventSlideForward:
		t.snap.Counts.Forward++
	case slide.EventSlideBackward:
		t.snap.Counts.Backward++
	case slide.EventRejected:
		t.snap.Counts.Rejected++
		t.snap.Counts.Rejections[ev.Reason]++
	case slide.EventKey:
		t.snap.Counts.Keys++
	default:
		return
	}
	last := ev
	t.snap.LastEvent = &last
	t.snap.LastEventAt = at
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Pressed = append([]bool(nil), t.snap.Pressed...)
	s.Counts = t.snap.Counts.clone()
	if t.snap.LastEvent != nil {
		last := *t.snap.LastEvent
		s.LastEvent = &last
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

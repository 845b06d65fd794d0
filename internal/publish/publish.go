// Package publish defines how gesture events leave the daemon and the JSON
// payloads shared by every transport.
package publish

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sweeney/slide-sensor/internal/keys"
	"github.com/sweeney/slide-sensor/internal/slide"
)

// Publisher publishes events to a broker.
type Publisher interface {
	// Publish sends a gesture event.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether a broker connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event is an engine event stamped with wall-clock time.
type Event struct {
	Timestamp time.Time
	slide.Event
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the message body for gesture events.
type Payload struct {
	Slide SlidePayload `json:"slide"`
}

// SlidePayload contains the gesture event details.
type SlidePayload struct {
	Timestamp string `json:"timestamp"`
	Tick      uint16 `json:"tick"`
	Event     string `json:"event"`
	Key       *Key   `json:"key,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Key describes a single-key event.
type Key struct {
	Code   uint16 `json:"code"`
	Action string `json:"action"`
}

// FormatPayload creates the JSON payload for a gesture event.
func FormatPayload(event Event) ([]byte, error) {
	p := Payload{
		Slide: SlidePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Tick:      uint16(event.Tick),
			Event:     string(event.Type),
			Reason:    string(event.Reason),
		},
	}
	if event.Type == slide.EventKey {
		code, action := keys.Decode(event.Key)
		p.Slide.Key = &Key{Code: uint16(code), Action: action.String()}
	}
	return json.Marshal(p)
}

// SystemPayload represents the message payload for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Fanout publishes to every publisher in turn. Errors are joined; one
// failing transport does not stop the others.
type Fanout []Publisher

func (f Fanout) Publish(event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) PublishSystem(event SystemEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishSystem(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsConnected reports true when every publisher that tracks its connection
// is connected.
func (f Fanout) IsConnected() bool {
	for _, p := range f {
		if cs, ok := p.(ConnectionStatus); ok && !cs.IsConnected() {
			return false
		}
	}
	return true
}

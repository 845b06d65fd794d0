package publish

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/slide-sensor/internal/keys"
	"github.com/sweeney/slide-sensor/internal/slide"
)

var ts = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestFormatPayloadSlide(t *testing.T) {
	data, err := FormatPayload(Event{Timestamp: ts, Event: slide.Event{Tick: 21, Type: slide.EventSlideForward}})
	require.NoError(t, err)

	var p Payload
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, "SLIDE_FORWARD", p.Slide.Event)
	assert.Equal(t, uint16(21), p.Slide.Tick)
	assert.Equal(t, "2026-01-01T12:00:00Z", p.Slide.Timestamp)
	assert.Nil(t, p.Slide.Key)
	assert.NotContains(t, string(data), "reason")
}

func TestFormatPayloadRejected(t *testing.T) {
	data, err := FormatPayload(Event{Timestamp: ts, Event: slide.Event{Type: slide.EventRejected, Reason: slide.ReasonVelocity}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"reason":"velocity"`)
}

func TestFormatPayloadKey(t *testing.T) {
	ev := Event{Timestamp: ts, Event: slide.Event{Type: slide.EventKey, Key: keys.Encode(1, keys.ActionDouble)}}
	data, err := FormatPayload(ev)
	require.NoError(t, err)

	var p Payload
	require.NoError(t, json.Unmarshal(data, &p))
	require.NotNil(t, p.Slide.Key)
	assert.Equal(t, uint16(1), p.Slide.Key.Code)
	assert.Equal(t, "DOUBLE", p.Slide.Key.Action)
}

func TestFormatSystemPayload(t *testing.T) {
	data, err := FormatSystemPayload(SystemEvent{Timestamp: ts, Event: "SHUTDOWN", Reason: "SIGTERM"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"system":{"timestamp":"2026-01-01T12:00:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`, string(data))

	raw := []byte(`{"status":{}}`)
	data, err = FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	require.NoError(t, err)
	assert.Equal(t, raw, data)
}

func TestFanout(t *testing.T) {
	a, b := NewFakePublisher(), NewFakePublisher()
	a.PublishError = errors.New("broker down")
	f := Fanout{a, b}

	err := f.Publish(Event{Timestamp: ts, Event: slide.Event{Type: slide.EventSlideBackward}})
	require.Error(t, err)
	assert.Len(t, b.Events, 1, "second publisher still receives the event")

	require.NoError(t, f.PublishSystem(SystemEvent{Event: "STARTUP"}))
	assert.Len(t, a.SystemEvents, 1)
	assert.Len(t, b.SystemEvents, 1)

	assert.False(t, f.IsConnected())
	a.Connected, b.Connected = true, true
	assert.True(t, f.IsConnected())

	require.NoError(t, f.Close())
	assert.True(t, a.Closed)
	assert.True(t, b.Closed)
}

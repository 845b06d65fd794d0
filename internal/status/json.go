package status

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/sweeney/slide-sensor/internal/keys"
	"github.com/sweeney/slide-sensor/internal/slide"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Phase         string         `json:"phase"`
	Tick          uint16         `json:"tick"`
	Pressed       []bool         `json:"pressed"`
	LastEvent     *LastEventJSON `json:"last_event,omitempty"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"event_counts"`
	Config        ConfigJSON     `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// LastEventJSON describes the most recent non-NONE event.
type LastEventJSON struct {
	Event     string `json:"event"`
	Tick      uint16 `json:"tick"`
	Key       string `json:"key,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Forward    int            `json:"slide_forward"`
	Backward   int            `json:"slide_backward"`
	Rejected   int            `json:"rejected"`
	Keys       int            `json:"key"`
	Rejections map[string]int `json:"rejections,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs   int64  `json:"poll_ms"`
	Channels int    `json:"channels"`
	Pins     []int  `json:"pins"`
	Broker   string `json:"broker"`
	Redis    string `json:"redis,omitempty"`
	HTTPAddr string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	pressed := snap.Pressed
	if pressed == nil {
		pressed = []bool{}
	}
	inner := StatusInner{
		Phase:         snap.Phase.String(),
		Tick:          uint16(snap.Tick),
		Pressed:       pressed,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Forward:  snap.Counts.Forward,
			Backward: snap.Counts.Backward,
			Rejected: snap.Counts.Rejected,
			Keys:     snap.Counts.Keys,
		},
		Config: ConfigJSON{
			PollMs:   snap.Config.PollMs,
			Channels: snap.Config.Channels,
			Pins:     snap.Config.Pins,
			Broker:   snap.Config.Broker,
			Redis:    snap.Config.Redis,
			HTTPAddr: snap.Config.HTTPAddr,
		},
	}
	if len(snap.Counts.Rejections) > 0 {
		inner.Counts.Rejections = make(map[string]int, len(snap.Counts.Rejections))
		for reason, n := range snap.Counts.Rejections {
			inner.Counts.Rejections[string(reason)] = n
		}
	}
	if snap.LastEvent != nil {
		inner.LastEvent = &LastEventJSON{
			Event:     string(snap.LastEvent.Type),
			Tick:      uint16(snap.LastEvent.Tick),
			Reason:    string(snap.LastEvent.Reason),
			Timestamp: snap.LastEventAt.UTC().Format(time.RFC3339Nano),
		}
		if snap.LastEvent.Type == slide.EventKey {
			inner.LastEvent.Key = KeyLabel(snap.LastEvent.Key)
		}
	}
	return inner
}

// KeyLabel renders an encoded key event as "<code>:<ACTION>".
func KeyLabel(k slide.KeyCode) string {
	code, action := keys.Decode(k)
	return strconv.Itoa(int(code)) + ":" + action.String()
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for a system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// Package mqtt publishes gesture events to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/slide-sensor/internal/publish"
)

// Topic is the MQTT topic for gesture events.
const Topic = "input/touch/slide/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "input/touch/slide/system"

// DefaultBufferSize is the number of messages kept while disconnected.
const DefaultBufferSize = 256

// Config configures the MQTT publisher.
type Config struct {
	Broker      string
	ClientID    string // defaults to "slide-sensor-" plus a random suffix
	Topic       string
	SystemTopic string
	BufferSize  int
}

func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = "slide-sensor-" + uuid.NewString()[:8]
	}
	if c.Topic == "" {
		c.Topic = Topic
	}
	if c.SystemTopic == "" {
		c.SystemTopic = TopicSystem
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	return c
}

// FormatWillPayload returns the last-will payload the broker publishes on
// the system topic if the daemon disappears without a clean disconnect.
func FormatWillPayload() []byte {
	data, _ := json.Marshal(publish.SystemPayload{
		System: publish.SystemPayloadInner{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Event:     "OFFLINE",
			Reason:    "LWT",
		},
	})
	return data
}

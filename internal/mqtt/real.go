package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/sweeney/slide-sensor/internal/publish"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// client is the part of paho.Client the publisher uses.
// IsConnectionOpen is used instead of IsConnected: with auto-reconnect paho
// reports connected while it is still retrying.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnectionOpen() bool
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client client
	cfg    Config
	log    zerolog.Logger

	mu       sync.Mutex
	outbox   *outbox
	flushing bool
}

// NewRealPublisher creates a publisher connected to the configured broker.
// The initial connection is retried in the background; publishing before it
// succeeds buffers.
func NewRealPublisher(cfg Config, log zerolog.Logger) (*RealPublisher, error) {
	cfg = cfg.withDefaults()
	p := &RealPublisher{
		cfg:    cfg,
		log:    log,
		outbox: newOutbox(cfg.BufferSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(cfg.SystemTopic, string(FormatWillPayload()), 1, true).
		SetOnConnectHandler(func(paho.Client) {
			log.Info().Str("broker", cfg.Broker).Msg("connected")
			p.flush()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("connection lost")
		})

	c := paho.NewClient(opts)
	token := c.Connect()
	if token.WaitTimeout(connectTimeout) {
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("connect to broker: %w", err)
		}
	} else {
		log.Warn().Str("broker", cfg.Broker).Msg("broker not reachable yet, buffering")
	}

	p.client = c
	return p, nil
}

func newPublisherWithClient(c client, cfg Config, log zerolog.Logger) *RealPublisher {
	cfg = cfg.withDefaults()
	return &RealPublisher{
		client: c,
		cfg:    cfg,
		log:    log,
		outbox: newOutbox(cfg.BufferSize),
	}
}

// Publish sends a gesture event to the broker.
func (p *RealPublisher) Publish(event publish.Event) error {
	payload, err := publish.FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(pendingMsg{topic: p.cfg.Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the broker.
func (p *RealPublisher) PublishSystem(event publish.SystemEvent) error {
	payload, err := publish.FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.send(pendingMsg{topic: p.cfg.SystemTopic, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client != nil && p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outbox.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if p.client != nil {
		p.client.Disconnect(1000) // 1 second quiesce
	}
	return nil
}

// send publishes msg directly when the connection is open and no replay is
// running, and queues it otherwise.
func (p *RealPublisher) send(msg pendingMsg) error {
	p.mu.Lock()
	if !p.IsConnected() || p.flushing {
		p.queueLocked(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.publishNow(msg); err != nil {
		p.mu.Lock()
		p.queueLocked(msg)
		p.mu.Unlock()
		return err
	}
	return nil
}

func (p *RealPublisher) queueLocked(msg pendingMsg) {
	if p.outbox.add(msg) {
		p.log.Warn().Int("capacity", p.cfg.BufferSize).Msg("outbox full, dropped oldest message")
	}
}

func (p *RealPublisher) publishNow(msg pendingMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

// flush replays queued messages oldest first and stops at the first failure,
// leaving that message at the head of the outbox. The lock is released while
// each message is in flight; messages sent meanwhile are queued behind the
// replay so ordering is kept.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	if p.flushing {
		p.mu.Unlock()
		return
	}
	p.flushing = true

	sent := 0
	for {
		msg, ok := p.outbox.peek()
		if !ok {
			break
		}
		dropped := p.outbox.dropped
		p.mu.Unlock()

		err := p.publishNow(msg)

		p.mu.Lock()
		if err != nil {
			p.log.Warn().Err(err).Int("pending", p.outbox.len()).Msg("replay failed")
			break
		}
		// A full outbox may have evicted msg while it was in flight.
		if p.outbox.dropped == dropped {
			p.outbox.pop()
		}
		sent++
	}
	p.flushing = false
	p.mu.Unlock()

	if sent > 0 {
		p.log.Info().Int("count", sent).Msg("replayed queued messages")
	}
}

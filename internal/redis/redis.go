// Package redis publishes gesture events to Redis: every event goes out on a
// pub/sub channel and the latest one is kept in a hash for pollers.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sweeney/slide-sensor/internal/publish"
)

// DefaultKey is used both as the pub/sub channel and the hash key.
const DefaultKey = "touch-slide"

// DefaultSystemChannel carries lifecycle events.
const DefaultSystemChannel = "touch-slide:system"

const opTimeout = 2 * time.Second

// Config configures the Redis publisher.
type Config struct {
	Addr          string
	DB            int
	Key           string
	SystemChannel string
}

// Publisher implements publish.Publisher on top of go-redis.
type Publisher struct {
	client *redis.Client
	cfg    Config
	log    zerolog.Logger
}

// NewPublisher connects to Redis and verifies the connection with PING.
func NewPublisher(ctx context.Context, cfg Config, log zerolog.Logger) (*Publisher, error) {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.SystemChannel == "" {
		cfg.SystemChannel = DefaultSystemChannel
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	log.Info().Str("addr", cfg.Addr).Msg("connected")

	return &Publisher{client: client, cfg: cfg, log: log}, nil
}

// Publish publishes the event payload and records it as the latest event.
func (p *Publisher) Publish(event publish.Event) error {
	payload, err := publish.FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pipe := p.client.Pipeline()
	pipe.HSet(ctx, p.cfg.Key, HashFields(event))
	pipe.Publish(ctx, p.cfg.Key, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", p.cfg.Key, err)
	}
	return nil
}

// PublishSystem publishes a lifecycle event on the system channel.
func (p *Publisher) PublishSystem(event publish.SystemEvent) error {
	payload, err := publish.FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.cfg.SystemChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.cfg.SystemChannel, err)
	}
	return nil
}

// Close closes the client.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// HashFields returns the hash fields written for an event.
func HashFields(event publish.Event) map[string]interface{} {
	return map[string]interface{}{
		"last-event":     string(event.Type),
		"last-tick":      strconv.Itoa(int(event.Tick)),
		"last-timestamp": event.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

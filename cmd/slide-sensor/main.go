// Command slide-sensor polls a strip of capacitive touch pads, recognises
// slide gestures and publishes them to MQTT, Redis and websocket clients.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sweeney/slide-sensor/internal/config"
	"github.com/sweeney/slide-sensor/internal/gpio"
	"github.com/sweeney/slide-sensor/internal/keys"
	"github.com/sweeney/slide-sensor/internal/logging"
	"github.com/sweeney/slide-sensor/internal/metrics"
	"github.com/sweeney/slide-sensor/internal/mqtt"
	"github.com/sweeney/slide-sensor/internal/publish"
	"github.com/sweeney/slide-sensor/internal/redis"
	"github.com/sweeney/slide-sensor/internal/slide"
	"github.com/sweeney/slide-sensor/internal/status"
	"github.com/sweeney/slide-sensor/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used when empty)")
	poll := flag.Int("poll-ms", 0, "Pad polling interval in milliseconds")
	chip := flag.String("chip", "", "GPIO chip name")
	broker := flag.String("broker", "", "MQTT broker address (empty disables MQTT)")
	redisAddr := flag.String("redis", "", "Redis address host:port (empty disables Redis)")
	httpAddr := flag.String("http", "", "HTTP status address (empty disables)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	printState := flag.Bool("print-state", false, "Print current pad state and exit")

	flag.Parse()

	// Only flags given on the command line override the file.
	var o config.FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll-ms":
			o.PollMS = poll
		case "chip":
			o.Chip = chip
		case "broker":
			o.MQTTBroker = broker
		case "redis":
			o.RedisAddr = redisAddr
		case "http":
			o.HTTPAddr = httpAddr
		case "log-level":
			o.LogLevel = logLevel
		}
	})

	if err := run(*configPath, o, *printState); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string, o config.FlagOverrides) (config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	o.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(configPath string, o config.FlagOverrides, printState bool) error {
	cfg, err := loadConfig(configPath, o)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(os.Stderr, cfg.Logging.Level)
	if err != nil {
		return err
	}

	// Initialize GPIO
	reader, err := gpio.NewRealReader(cfg.GPIO.Chip, cfg.Pins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	// Print state mode
	if printState {
		pressed, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Println(formatPads(pressed))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder, err := metrics.NewRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	engine, err := slide.NewEngine(cfg.Calibration(),
		slide.WithKeyProcessor(keys.NewProcessor(cfg.KeyProcessorConfig()), cfg.Keymap()),
		slide.WithSink(slide.MultiSink{recorder, logging.NewTraceSink(logging.Subsystem(log, "engine"))}),
	)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	// Initialize publishers
	var (
		fanout     publish.Fanout
		mqttStatus publish.ConnectionStatus
	)
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Topic:       cfg.MQTT.Topic,
			SystemTopic: cfg.MQTT.SystemTopic,
			BufferSize:  cfg.MQTT.BufferSize,
		}, logging.Subsystem(log, "mqtt"))
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		fanout = append(fanout, p)
		mqttStatus = p
	}
	if cfg.Redis.Addr != "" {
		p, err := redis.NewPublisher(ctx, redis.Config{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
			Key:  cfg.Redis.Key,
		}, logging.Subsystem(log, "redis"))
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		fanout = append(fanout, p)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:   int64(cfg.PollMS),
		Channels: len(cfg.Channels),
		Pins:     cfg.Pins(),
		Broker:   cfg.MQTT.Broker,
		Redis:    cfg.Redis.Addr,
		HTTPAddr: cfg.HTTP.Addr,
	})

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		hub := web.NewHub(logging.Subsystem(log, "ws"))
		go hub.Run(ctx)
		fanout = append(fanout, hub)

		srv := web.New(cfg.HTTP.Addr, tracker, hub, promhttp.Handler())
		httpLog := logging.Subsystem(log, "http")
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				httpLog.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		httpLog.Info().Str("addr", cfg.HTTP.Addr).Msg("http status server listening")
	}
	defer fanout.Close()

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := publish.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := fanout.PublishSystem(startupEvent); err != nil {
		log.Warn().Err(err).Msg("failed to publish startup event")
	} else {
		log.Info().Msg("published startup event")
	}

	log.Info().
		Int("poll_ms", cfg.PollMS).
		Str("chip", cfg.GPIO.Chip).
		Ints("pins", cfg.Pins()).
		Str("broker", cfg.MQTT.Broker).
		Str("redis", cfg.Redis.Addr).
		Msg("started")

	ticker := time.NewTicker(cfg.PollInterval())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopDeps{
		reader:     reader,
		engine:     engine,
		publisher:  fanout,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		recorder:   recorder,
		log:        log,
		now:        time.Now,
	}, ticker.C, sigCh)
}

// loopDeps are the collaborators of runLoop. tracker, recorder and
// mqttStatus may be nil.
type loopDeps struct {
	reader     gpio.Reader
	engine     *slide.Engine
	publisher  publish.Publisher
	mqttStatus publish.ConnectionStatus
	tracker    *status.Tracker
	recorder   *metrics.Recorder
	log        zerolog.Logger
	now        func() time.Time
}

func runLoop(d loopDeps, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			d.log.Info().Stringer("signal", s).Msg("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := publish.SystemEvent{
				Timestamp: d.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if d.tracker != nil {
				if d.mqttStatus != nil {
					d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
				}
				snap := d.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				d.log.Warn().Err(err).Msg("failed to publish shutdown event")
			} else {
				d.log.Info().Msg("published shutdown event")
			}
			return nil

		case <-tick:
			t := d.now()
			pressed, err := d.reader.Read()
			if err != nil {
				d.log.Error().Err(err).Msg("gpio read error")
				if d.recorder != nil {
					d.recorder.ObserveReadError()
				}
				continue
			}

			ev := d.engine.Step(pressed)
			if d.recorder != nil {
				d.recorder.ObserveTick(ev)
			}

			if ev.Type != slide.EventNone {
				logEvent(d.log, ev)
				// Don't crash on publish failure
				if err := d.publisher.Publish(publish.Event{Timestamp: t, Event: ev}); err != nil {
					d.log.Warn().Err(err).Msg("publish error")
				}
			}

			// Update status tracker for HTTP consumers
			if d.tracker != nil {
				d.tracker.Observe(ev, d.engine.Phase(), pressed, t)
				if d.mqttStatus != nil {
					d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
				}
			}
		}
	}
}

func logEvent(log zerolog.Logger, ev slide.Event) {
	switch ev.Type {
	case slide.EventKey:
		log.Debug().Uint16("tick", uint16(ev.Tick)).Str("key", status.KeyLabel(ev.Key)).Msg("key")
	case slide.EventRejected:
		log.Info().Uint16("tick", uint16(ev.Tick)).Str("reason", string(ev.Reason)).Msg("slide rejected")
	default:
		log.Info().Uint16("tick", uint16(ev.Tick)).Str("event", string(ev.Type)).Msg("slide")
	}
}

// formatPads renders pad states left to right, e.g. "pads: 0=off 1=ON 2=off".
func formatPads(pressed []bool) string {
	parts := make([]string, len(pressed))
	for i, p := range pressed {
		state := "off"
		if p {
			state = "ON"
		}
		parts[i] = fmt.Sprintf("%d=%s", i, state)
	}
	return "pads: " + strings.Join(parts, " ")
}

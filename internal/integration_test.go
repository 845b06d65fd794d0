package internal

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/slide-sensor/internal/config"
	"github.com/sweeney/slide-sensor/internal/gpio"
	"github.com/sweeney/slide-sensor/internal/keys"
	"github.com/sweeney/slide-sensor/internal/publish"
	"github.com/sweeney/slide-sensor/internal/slide"
	"github.com/sweeney/slide-sensor/internal/status"
)

var epoch = time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)

func pads(n int, on ...int) []bool {
	s := make([]bool, n)
	for _, c := range on {
		s[c] = true
	}
	return s
}

func hold(sample []bool, ticks int) [][]bool {
	out := make([][]bool, ticks)
	for i := range out {
		out[i] = sample
	}
	return out
}

func slideSamples(n int, order ...int) [][]bool {
	var out [][]bool
	for _, c := range order {
		out = append(out, hold(pads(n, c), 5)...)
		out = append(out, hold(pads(n), 2)...)
	}
	return out
}

// pump reads every sample through the reader, steps the engine and publishes
// non-NONE events stamped 10ms apart, the way the daemon loop does.
func pump(t *testing.T, reader gpio.Reader, engine *slide.Engine, pub publish.Publisher, tracker *status.Tracker, ticks int) {
	t.Helper()
	for i := 0; i < ticks; i++ {
		at := epoch.Add(time.Duration(i) * 10 * time.Millisecond)
		pressed, err := reader.Read()
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		ev := engine.Step(pressed)
		if ev.Type != slide.EventNone {
			pub.Publish(publish.Event{Timestamp: at, Event: ev})
		}
		if tracker != nil {
			tracker.Observe(ev, engine.Phase(), pressed, at)
		}
	}
}

func newConfiguredEngine(t *testing.T, cfg config.Config) *slide.Engine {
	t.Helper()
	engine, err := slide.NewEngine(cfg.Calibration(),
		slide.WithKeyProcessor(keys.NewProcessor(cfg.KeyProcessorConfig()), cfg.Keymap()))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

// TestIntegrationFullFlow drives a forward and a backward slide from fake
// GPIO through the engine to the publisher.
func TestIntegrationFullFlow(t *testing.T) {
	cfg := config.DefaultConfig()
	samples := append(slideSamples(3, 0, 1, 2), slideSamples(3, 2, 1, 0)...)
	samples = append(samples, hold(pads(3), 60)...)

	reader := gpio.NewFakeReader(samples)
	pub := publish.NewFakePublisher()
	tracker := status.NewTracker(epoch, status.Config{Channels: 3})

	pump(t, reader, newConfiguredEngine(t, cfg), pub, tracker, len(samples))

	var slides []slide.EventType
	for _, ev := range pub.Events {
		if ev.Type.IsSlide() {
			slides = append(slides, ev.Type)
		}
	}
	if len(slides) != 2 || slides[0] != slide.EventSlideForward || slides[1] != slide.EventSlideBackward {
		t.Fatalf("slides: got %v, want [SLIDE_FORWARD SLIDE_BACKWARD]", slides)
	}

	snap := tracker.Snapshot()
	if snap.Counts.Forward != 1 || snap.Counts.Backward != 1 {
		t.Errorf("tracker counts: got %+v", snap.Counts)
	}
	if snap.Phase != slide.PhaseIdle {
		t.Errorf("phase after gestures: got %s, want IDLE", snap.Phase)
	}
}

// TestIntegrationPayloadFormat verifies the exact JSON structure.
func TestIntegrationPayloadFormat(t *testing.T) {
	reader := gpio.NewFakeReader(slideSamples(3, 0, 1, 2))
	engine, err := slide.NewEngine(slide.DefaultCalibration(3))
	if err != nil {
		t.Fatal(err)
	}
	pub := publish.NewFakePublisher()

	pump(t, reader, engine, pub, nil, 21)

	if len(pub.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(pub.Payloads))
	}
	expected := `{"slide":{"timestamp":"2026-02-02T22:18:12.2Z","tick":21,"event":"SLIDE_FORWARD"}}`
	if string(pub.Payloads[0]) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", pub.Payloads[0], expected)
	}
}

// TestIntegrationKeyPayloadFormat taps the middle pad and checks the key
// event payload.
func TestIntegrationKeyPayloadFormat(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Keys = config.KeysConfig{ScanCount: 2, LongTicks: 50, MultiClickTicks: 3}
	samples := append(hold(pads(3, 1), 4), hold(pads(3), 8)...)

	pub := publish.NewFakePublisher()
	pump(t, gpio.NewFakeReader(samples), newConfiguredEngine(t, cfg), pub, nil, len(samples))

	if len(pub.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(pub.Payloads))
	}
	expected := `{"slide":{"timestamp":"2026-02-02T22:18:12.07Z","tick":8,"event":"KEY","key":{"code":2,"action":"SHORT"}}}`
	if string(pub.Payloads[0]) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", pub.Payloads[0], expected)
	}
}

// TestIntegrationRejectedPayloadFormat checks the reason field of a
// rejected gesture.
func TestIntegrationRejectedPayloadFormat(t *testing.T) {
	cal := slide.DefaultCalibration(3)
	cal.VelocityMax = []uint16{5, 5}
	engine, err := slide.NewEngine(cal)
	if err != nil {
		t.Fatal(err)
	}
	pub := publish.NewFakePublisher()

	pump(t, gpio.NewFakeReader(slideSamples(3, 0, 1, 2)), engine, pub, nil, 21)

	expected := `{"slide":{"timestamp":"2026-02-02T22:18:12.2Z","tick":21,"event":"REJECTED","reason":"velocity"}}`
	if len(pub.Payloads) != 1 || string(pub.Payloads[0]) != expected {
		t.Errorf("unexpected payloads: %q\nwant: %s", pub.Payloads, expected)
	}
}

// TestIntegrationMultiTouchPublishesNothing puts a second finger down in
// the middle of a slide.
func TestIntegrationMultiTouchPublishesNothing(t *testing.T) {
	var samples [][]bool
	samples = append(samples, hold(pads(3, 0), 5)...)
	samples = append(samples, hold(pads(3), 2)...)
	samples = append(samples, hold(pads(3, 1), 3)...)
	samples = append(samples, hold(pads(3, 1, 2), 3)...)
	samples = append(samples, hold(pads(3, 2), 5)...)
	samples = append(samples, hold(pads(3), 5)...)

	engine, err := slide.NewEngine(slide.DefaultCalibration(3))
	if err != nil {
		t.Fatal(err)
	}
	pub := publish.NewFakePublisher()
	pump(t, gpio.NewFakeReader(samples), engine, pub, nil, len(samples))

	if len(pub.Events) != 0 {
		t.Errorf("expected no events after multi-touch, got %+v", pub.Events)
	}
}

// TestIntegrationFourPadConfig loads a four-pad YAML layout and slides
// across it backwards.
func TestIntegrationFourPadConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
channels:
  - {pin: 17, key: 1, time_diff_max: 40}
  - {pin: 27, key: 2, time_diff_max: 40}
  - {pin: 22, key: 3, time_diff_max: 40}
  - {pin: 23, key: 4, time_diff_max: 40}
segments:
  - {distance: 100, velocity_max: 60}
  - {distance: 100, velocity_max: 60}
  - {distance: 100, velocity_max: 60}
velocity_diff_max: [20, 20]
velocity_diff_total_max: 40
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	samples := slideSamples(4, 3, 2, 1, 0)
	pub := publish.NewFakePublisher()
	pump(t, gpio.NewFakeReader(samples), newConfiguredEngine(t, cfg), pub, nil, len(samples))

	var got []slide.EventType
	for _, ev := range pub.Events {
		if ev.Type != slide.EventKey {
			got = append(got, ev.Type)
		}
	}
	if len(got) != 1 || got[0] != slide.EventSlideBackward {
		t.Errorf("got %v, want [SLIDE_BACKWARD]", got)
	}
}

// TestIntegrationPublishFailureDoesNotCrash keeps stepping after the
// publisher fails.
func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	pub := publish.NewFakePublisher()
	pub.PublishError = errors.New("connection refused")
	engine, err := slide.NewEngine(slide.DefaultCalibration(3))
	if err != nil {
		t.Fatal(err)
	}
	tracker := status.NewTracker(epoch, status.Config{})

	samples := append(slideSamples(3, 0, 1, 2), slideSamples(3, 0, 1, 2)...)
	pump(t, gpio.NewFakeReader(samples), engine, pub, tracker, len(samples))

	if got := tracker.Snapshot().Counts.Forward; got != 2 {
		t.Errorf("forward count: got %d, want 2", got)
	}
}

// TestIntegrationStartupPayloadFormat checks the STARTUP system payload
// built from a status snapshot.
func TestIntegrationStartupPayloadFormat(t *testing.T) {
	tracker := status.NewTracker(epoch, status.Config{PollMs: 10, Channels: 3, Pins: []int{5, 6, 13}})
	snap := tracker.Snapshot()

	pub := publish.NewFakePublisher()
	pub.PublishSystem(publish.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	})

	if len(pub.SystemPayloads) != 1 {
		t.Fatalf("expected 1 system payload, got %d", len(pub.SystemPayloads))
	}
	if string(pub.SystemPayloads[0]) != string(status.FormatStatusEvent(snap, "STARTUP", "")) {
		t.Error("RawPayload should be published verbatim")
	}
}

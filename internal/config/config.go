// Package config loads the daemon configuration from YAML and turns it into
// an engine calibration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/slide-sensor/internal/gpio"
	"github.com/sweeney/slide-sensor/internal/keys"
	"github.com/sweeney/slide-sensor/internal/slide"
)

type Config struct {
	PollMS int `yaml:"poll_ms"`

	GPIO GPIOConfig `yaml:"gpio"`

	// One entry per pad, ordered from the forward start to the far end.
	Channels []ChannelConfig `yaml:"channels"`

	// One entry per gap between adjacent pads.
	Segments []SegmentConfig `yaml:"segments"`

	// One entry per inner pad (len(channels)-2).
	VelocityDiffMax      []uint16 `yaml:"velocity_diff_max"`
	VelocityDiffTotalMax uint32   `yaml:"velocity_diff_total_max"`
	ReleaseDelay         uint16   `yaml:"release_delay"`

	Debounce DebounceConfig `yaml:"debounce"`

	Keys KeysConfig `yaml:"keys"`

	MQTT MQTTConfig `yaml:"mqtt"`

	Redis RedisConfig `yaml:"redis"`

	HTTP HTTPConfig `yaml:"http"`

	Logging LoggingConfig `yaml:"logging"`
}

type GPIOConfig struct {
	Chip string `yaml:"chip"`
}

type ChannelConfig struct {
	Pin         int    `yaml:"pin"`
	Key         uint16 `yaml:"key"`
	TimeDiffMin uint16 `yaml:"time_diff_min"`
	TimeDiffMax uint16 `yaml:"time_diff_max"`
}

type SegmentConfig struct {
	Distance    uint16 `yaml:"distance"`
	VelocityMin uint16 `yaml:"velocity_min"`
	VelocityMax uint16 `yaml:"velocity_max"`
}

type DebounceConfig struct {
	ScanCount    uint8 `yaml:"scan_count"`
	ReleaseCount uint8 `yaml:"release_count"`
}

type KeysConfig struct {
	ScanCount       uint16 `yaml:"scan_count"`
	LongTicks       uint16 `yaml:"long_ticks"`
	HoldTicks       uint16 `yaml:"hold_ticks"`
	MultiClickTicks uint16 `yaml:"multi_click_ticks"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"` // empty disables MQTT
	ClientID    string `yaml:"client_id"`
	Topic       string `yaml:"topic"`
	SystemTopic string `yaml:"system_topic"`
	BufferSize  int    `yaml:"buffer_size"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"` // empty disables Redis
	DB   int    `yaml:"db"`
	Key  string `yaml:"key"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status server
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a three-pad layout on the default pins with the
// permissive default calibration.
func DefaultConfig() Config {
	cal := slide.DefaultCalibration(len(gpio.DefaultPins))
	kc := keys.DefaultConfig()

	cfg := Config{
		PollMS: 10,
		GPIO:   GPIOConfig{Chip: gpio.DefaultChip},

		VelocityDiffMax:      cal.VelocityDiffMax,
		VelocityDiffTotalMax: cal.VelocityDiffTotalMax,
		ReleaseDelay:         cal.ReleaseDelay,
		Debounce: DebounceConfig{
			ScanCount:    cal.DebounceScanCount,
			ReleaseCount: cal.DebounceReleaseCount,
		},
		Keys: KeysConfig{
			ScanCount:       kc.ScanCount,
			LongTicks:       kc.LongTicks,
			HoldTicks:       kc.HoldTicks,
			MultiClickTicks: kc.MultiClickTicks,
		},
		HTTP:    HTTPConfig{Addr: ":80"},
		Logging: LoggingConfig{Level: "info"},
	}
	for i, pin := range gpio.DefaultPins {
		cfg.Channels = append(cfg.Channels, ChannelConfig{
			Pin:         pin,
			Key:         uint16(i + 1),
			TimeDiffMin: cal.TimeDiffMin[i],
			TimeDiffMax: cal.TimeDiffMax[i],
		})
	}
	for i := range cal.Distance {
		cfg.Segments = append(cfg.Segments, SegmentConfig{
			Distance:    cal.Distance[i],
			VelocityMin: cal.VelocityMin[i],
			VelocityMax: cal.VelocityMax[i],
		})
	}
	return cfg
}

// Load reads a YAML file on top of DefaultConfig. Unknown fields are errors.
// Lists in the file replace the defaults as a whole.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of DefaultConfig and validates the result.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks daemon settings and the calibration they describe.
func (c Config) Validate() error {
	if c.PollMS <= 0 {
		return fmt.Errorf("poll_ms must be positive, got %d", c.PollMS)
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	seen := make(map[int]bool, len(c.Channels))
	for i, ch := range c.Channels {
		if ch.Pin < 0 {
			return fmt.Errorf("channel %d: negative pin %d", i, ch.Pin)
		}
		if seen[ch.Pin] {
			return fmt.Errorf("channel %d: pin %d used twice", i, ch.Pin)
		}
		seen[ch.Pin] = true
		if ch.Key > keys.MaxCode {
			return fmt.Errorf("channel %d: key %d exceeds %d", i, ch.Key, keys.MaxCode)
		}
	}
	if err := c.Calibration().Validate(len(c.Channels)); err != nil {
		return err
	}
	return nil
}

// PollInterval returns the tick period.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollMS) * time.Millisecond
}

// Pins returns the GPIO line offsets in channel order.
func (c Config) Pins() []int {
	pins := make([]int, len(c.Channels))
	for i, ch := range c.Channels {
		pins[i] = ch.Pin
	}
	return pins
}

// Keymap returns the key code reported for each channel.
func (c Config) Keymap() []slide.KeyCode {
	km := make([]slide.KeyCode, len(c.Channels))
	for i, ch := range c.Channels {
		km[i] = slide.KeyCode(ch.Key)
	}
	return km
}

// Calibration converts the per-channel and per-segment settings into the
// engine's calibration arrays.
func (c Config) Calibration() slide.Calibration {
	cal := slide.Calibration{
		TimeDiffMin:          make([]uint16, len(c.Channels)),
		TimeDiffMax:          make([]uint16, len(c.Channels)),
		VelocityMin:          make([]uint16, len(c.Segments)),
		VelocityMax:          make([]uint16, len(c.Segments)),
		Distance:             make([]uint16, len(c.Segments)),
		VelocityDiffMax:      append([]uint16(nil), c.VelocityDiffMax...),
		VelocityDiffTotalMax: c.VelocityDiffTotalMax,
		ReleaseDelay:         c.ReleaseDelay,
		DebounceScanCount:    c.Debounce.ScanCount,
		DebounceReleaseCount: c.Debounce.ReleaseCount,
	}
	for i, ch := range c.Channels {
		cal.TimeDiffMin[i] = ch.TimeDiffMin
		cal.TimeDiffMax[i] = ch.TimeDiffMax
	}
	for i, s := range c.Segments {
		cal.Distance[i] = s.Distance
		cal.VelocityMin[i] = s.VelocityMin
		cal.VelocityMax[i] = s.VelocityMax
	}
	return cal
}

// KeyProcessorConfig returns the single-key processor settings.
func (c Config) KeyProcessorConfig() keys.Config {
	return keys.Config{
		ScanCount:       c.Keys.ScanCount,
		LongTicks:       c.Keys.LongTicks,
		HoldTicks:       c.Keys.HoldTicks,
		MultiClickTicks: c.Keys.MultiClickTicks,
	}
}

type FlagOverrides struct {
	PollMS     *int
	Chip       *string
	MQTTBroker *string
	RedisAddr  *string
	HTTPAddr   *string
	LogLevel   *string
}

// Apply copies every set override into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.PollMS != nil {
		cfg.PollMS = *o.PollMS
	}
	if o.Chip != nil {
		cfg.GPIO.Chip = *o.Chip
	}
	if o.MQTTBroker != nil {
		cfg.MQTT.Broker = *o.MQTTBroker
	}
	if o.RedisAddr != nil {
		cfg.Redis.Addr = *o.RedisAddr
	}
	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

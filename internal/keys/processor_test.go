package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/slide-sensor/internal/slide"
)

const key slide.KeyCode = 7

func testConfig() Config {
	return Config{ScanCount: 2, LongTicks: 5, HoldTicks: 2, MultiClickTicks: 3}
}

// feed runs the inputs through p and returns the non-empty outputs keyed by
// 1-based tick.
func feed(p *Processor, inputs ...slide.KeyCode) map[int]slide.KeyCode {
	out := map[int]slide.KeyCode{}
	for i, in := range inputs {
		if k := p.Process(in); k != slide.KeyNone {
			out[i+1] = k
		}
	}
	return out
}

func ticks(k slide.KeyCode, n int) []slide.KeyCode {
	out := make([]slide.KeyCode, n)
	for i := range out {
		out[i] = k
	}
	return out
}

func seq(parts ...[]slide.KeyCode) []slide.KeyCode {
	var out []slide.KeyCode
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestEncodeDecode(t *testing.T) {
	code, action := Decode(Encode(key, ActionDouble))
	assert.Equal(t, key, code)
	assert.Equal(t, ActionDouble, action)
	assert.Equal(t, "DOUBLE", action.String())
}

func TestSingleClick(t *testing.T) {
	p := NewProcessor(testConfig())
	got := feed(p, seq(ticks(key, 3), ticks(slide.KeyNone, 4))...)
	require.Len(t, got, 1)
	assert.Equal(t, Encode(key, ActionShort), got[7])
}

func TestDoubleClick(t *testing.T) {
	p := NewProcessor(testConfig())
	got := feed(p, seq(
		ticks(key, 3), ticks(slide.KeyNone, 1),
		ticks(key, 3), ticks(slide.KeyNone, 4),
	)...)
	require.Len(t, got, 1)
	assert.Equal(t, Encode(key, ActionDouble), got[11])
}

func TestClicksSaturateAtTriple(t *testing.T) {
	p := NewProcessor(testConfig())
	var in []slide.KeyCode
	for i := 0; i < 4; i++ {
		in = append(in, seq(ticks(key, 3), ticks(slide.KeyNone, 1))...)
	}
	in = append(in, ticks(slide.KeyNone, 3)...)
	got := feed(p, in...)
	require.Len(t, got, 1)
	for _, k := range got {
		_, a := Decode(k)
		assert.Equal(t, ActionTriple, a)
	}
}

func TestLongPressHoldAndRelease(t *testing.T) {
	p := NewProcessor(testConfig())
	got := feed(p, seq(ticks(key, 10), ticks(slide.KeyNone, 5))...)

	assert.Equal(t, Encode(key, ActionLong), got[7])
	assert.Equal(t, Encode(key, ActionHold), got[9])
	assert.Equal(t, Encode(key, ActionLongUp), got[11])
	assert.Len(t, got, 3, "long press must not also report a click")
}

func TestBounceIsNotAClick(t *testing.T) {
	p := NewProcessor(testConfig())
	got := feed(p, seq(ticks(key, 1), ticks(slide.KeyNone, 6))...)
	assert.Empty(t, got)
}

func TestImmediateClickWithoutWindow(t *testing.T) {
	cfg := testConfig()
	cfg.MultiClickTicks = 0
	p := NewProcessor(cfg)
	got := feed(p, seq(ticks(key, 3), ticks(slide.KeyNone, 1))...)
	assert.Equal(t, map[int]slide.KeyCode{4: Encode(key, ActionShort)}, got)
}

func TestResetDropsPendingClicks(t *testing.T) {
	p := NewProcessor(testConfig())
	feed(p, seq(ticks(key, 3), ticks(slide.KeyNone, 1))...)
	p.Reset()
	got := feed(p, ticks(slide.KeyNone, 5)...)
	assert.Empty(t, got)
}

func TestDifferentKeyBreaksChain(t *testing.T) {
	p := NewProcessor(testConfig())
	other := slide.KeyCode(9)
	got := feed(p, seq(
		ticks(key, 3), ticks(slide.KeyNone, 1),
		ticks(other, 3), ticks(slide.KeyNone, 4),
	)...)
	require.Len(t, got, 1)
	assert.Equal(t, Encode(other, ActionShort), got[11])
}

func TestEngineDelegatesToProcessor(t *testing.T) {
	cal := slide.DefaultCalibration(3)
	p := NewProcessor(testConfig())
	e, err := slide.NewEngine(cal, slide.WithKeyProcessor(p, []slide.KeyCode{0, key, 0}))
	require.NoError(t, err)

	pressed := []bool{false, true, false}
	released := []bool{false, false, false}
	var events []slide.Event
	for i := 0; i < 3; i++ {
		events = append(events, e.Step(pressed))
	}
	for i := 0; i < 4; i++ {
		events = append(events, e.Step(released))
	}

	require.Equal(t, slide.EventKey, events[6].Type)
	code, action := Decode(events[6].Key)
	assert.Equal(t, key, code)
	assert.Equal(t, ActionShort, action)
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/slide-sensor/internal/slide"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := NewRecorder(prometheus.NewRegistry())
	require.NoError(t, err)
	return r
}

func TestObserveTick(t *testing.T) {
	r := newTestRecorder(t)

	r.ObserveTick(slide.Event{Type: slide.EventNone})
	r.ObserveTick(slide.Event{Type: slide.EventSlideForward})
	r.ObserveTick(slide.Event{Type: slide.EventRejected, Reason: slide.ReasonVelocity})
	r.ObserveTick(slide.Event{Type: slide.EventRejected, Reason: slide.ReasonVelocity})

	assert.Equal(t, 4.0, testutil.ToFloat64(r.ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.events.WithLabelValues("SLIDE_FORWARD")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.events.WithLabelValues("REJECTED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.rejections.WithLabelValues("velocity")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.events.WithLabelValues("NONE")))
}

func TestTraceUpdatesPhaseAndAborts(t *testing.T) {
	r := newTestRecorder(t)

	r.Trace(slide.Trace{Kind: slide.TracePhase, From: slide.PhaseIdle, To: slide.PhaseFirstPush})
	assert.Equal(t, 1.0, testutil.ToFloat64(r.phase))

	r.Trace(slide.Trace{Kind: slide.TracePhase, From: slide.PhaseFirstPush, To: slide.PhaseSecondPush})
	assert.Equal(t, 2.0, testutil.ToFloat64(r.phase))

	r.Trace(slide.Trace{Kind: slide.TraceAbort, From: slide.PhaseSecondPush, Reason: slide.ReasonMultiTouch})
	assert.Equal(t, 0.0, testutil.ToFloat64(r.phase))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.aborts.WithLabelValues("multi_touch")))
}

func TestReadErrors(t *testing.T) {
	r := newTestRecorder(t)
	r.ObserveReadError()
	assert.Equal(t, 1.0, testutil.ToFloat64(r.readErrors))
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)
	_, err = NewRecorder(reg)
	assert.Error(t, err)
}

func TestRecorderAsEngineSink(t *testing.T) {
	r := newTestRecorder(t)
	e, err := slide.NewEngine(slide.DefaultCalibration(3), slide.WithSink(r))
	require.NoError(t, err)

	both := []bool{true, true, false}
	first := []bool{true, false, false}
	for i := 0; i < 3; i++ {
		r.ObserveTick(e.Step(first))
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(r.phase))
	for i := 0; i < 3; i++ {
		r.ObserveTick(e.Step(both))
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(r.aborts.WithLabelValues("multi_touch")))
	assert.Equal(t, 6.0, testutil.ToFloat64(r.ticks))
}

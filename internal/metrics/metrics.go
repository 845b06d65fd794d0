// Package metrics exposes gesture engine counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/slide-sensor/internal/slide"
)

const namespace = "slide"

// Recorder counts engine activity. It implements slide.Sink so aborts and
// phase changes are observed without the engine knowing about Prometheus.
type Recorder struct {
	ticks      prometheus.Counter
	readErrors prometheus.Counter
	events     *prometheus.CounterVec
	rejections *prometheus.CounterVec
	aborts     *prometheus.CounterVec
	phase      prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Engine steps taken.",
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_errors_total",
			Help:      "Failed pad reads.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events produced, by type.",
		}, []string{"type"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Gestures rejected by the validator, by reason.",
		}, []string{"reason"}),
		aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aborts_total",
			Help:      "Sessions dropped without an event, by reason.",
		}, []string{"reason"}),
		phase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase",
			Help:      "Current state machine phase (0 idle .. 3 finishing).",
		}),
	}
	for _, c := range []prometheus.Collector{r.ticks, r.readErrors, r.events, r.rejections, r.aborts, r.phase} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveTick counts one engine step and its event, if any.
func (r *Recorder) ObserveTick(ev slide.Event) {
	r.ticks.Inc()
	if ev.Type == slide.EventNone || ev.Type == "" {
		return
	}
	r.events.WithLabelValues(string(ev.Type)).Inc()
	if ev.Type == slide.EventRejected {
		r.rejections.WithLabelValues(string(ev.Reason)).Inc()
	}
}

// ObserveReadError counts a failed pad read.
func (r *Recorder) ObserveReadError() {
	r.readErrors.Inc()
}

func (r *Recorder) Trace(t slide.Trace) {
	switch t.Kind {
	case slide.TracePhase:
		r.phase.Set(float64(t.To))
	case slide.TraceAbort:
		r.aborts.WithLabelValues(string(t.Reason)).Inc()
		r.phase.Set(float64(slide.PhaseIdle))
	case slide.TraceReject, slide.TraceVerdict:
		r.phase.Set(float64(slide.PhaseIdle))
	}
}

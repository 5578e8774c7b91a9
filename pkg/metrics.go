package emtf

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the track finder counters. A nil *Metrics records nothing.
type Metrics struct {
	events        prometheus.Counter
	missingInputs *prometheus.CounterVec
	hits          *prometheus.CounterVec
	skips         *prometheus.CounterVec
	tracks        *prometheus.CounterVec
	eventDuration prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emtf",
			Subsystem: "trackfinder",
			Name:      "events_total",
			Help:      "Events processed",
		}),
		missingInputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emtf",
			Subsystem: "trackfinder",
			Name:      "missing_inputs_total",
			Help:      "Events skipped because an enabled input collection was missing",
		}, []string{"subsystem"}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emtf",
			Subsystem: "trackfinder",
			Name:      "hits_total",
			Help:      "Normalized hits by subsystem",
		}, []string{"subsystem"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emtf",
			Subsystem: "trackfinder",
			Name:      "skipped_primitives_total",
			Help:      "Malformed primitives dropped by subsystem",
		}, []string{"subsystem"}),
		tracks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emtf",
			Subsystem: "trackfinder",
			Name:      "tracks_total",
			Help:      "Tracks found by mode",
		}, []string{"mode"}),
		eventDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "emtf",
			Subsystem: "trackfinder",
			Name:      "event_duration_seconds",
			Help:      "Time to process one event in all sector processors",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
	}

	for _, c := range []prometheus.Collector{m.events, m.missingInputs, m.hits, m.skips, m.tracks, m.eventDuration} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) missingInput(s Subsystem) {
	if m == nil {
		return
	}
	m.missingInputs.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) observe(output *Output, hits []NormalizedHit, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.events.Inc()
	m.eventDuration.Observe(elapsed.Seconds())
	for _, h := range hits {
		m.hits.WithLabelValues(h.Subsystem.String()).Inc()
	}
	for _, s := range output.Skips {
		m.skips.WithLabelValues(s.Primitive.Subsystem.String()).Inc()
	}
	for _, t := range output.Tracks {
		m.tracks.WithLabelValues(modeLabel(t.Mode)).Inc()
	}
}

var modeLabels = [16]string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12", "13", "14", "15"}

func modeLabel(mode int) string {
	if mode < 0 || mode > 15 {
		return "invalid"
	}
	return modeLabels[mode]
}

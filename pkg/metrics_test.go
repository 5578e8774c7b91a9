package emtf

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	config := DefaultConfiguration()
	config.RetainHits = false
	tf := newTestTrackFinder(t, config)

	registry := prometheus.NewRegistry()
	metrics, err := NewMetrics(registry)
	require.NoError(t, err)
	tf.SetMetrics(metrics)

	prims := threeStationMuon()
	prims = append(prims, RawPrimitive{Subsystem: CSC, Endcap: 3, Valid: true})
	_, err = tf.Process(context.Background(), muonEvent(config, 1, prims))
	require.NoError(t, err)
	_, err = tf.Process(context.Background(), &Event{ID: 2})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.events))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.hits.WithLabelValues("CSC")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.skips.WithLabelValues("CSC")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.tracks.WithLabelValues("14")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.missingInputs.WithLabelValues("CSC")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.eventDuration))

	count, err := testutil.GatherAndCount(registry, "emtf_trackfinder_events_total", "emtf_trackfinder_tracks_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetricsDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewMetrics(registry)
	require.NoError(t, err)
	_, err = NewMetrics(registry)
	assert.Error(t, err)
}

func TestNilMetrics(t *testing.T) {
	var metrics *Metrics
	assert.NotPanics(t, func() {
		metrics.missingInput(CSC)
		metrics.observe(&Output{}, nil, time.Millisecond)
	})
}

func TestModeLabel(t *testing.T) {
	assert.Equal(t, "15", modeLabel(15))
	assert.Equal(t, "0", modeLabel(0))
	assert.Equal(t, "invalid", modeLabel(16))
}

package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveMeeting()
	m.ObserveMeeting()
	m.ObserveAcceptance(true)
	m.ObserveAcceptance(false)
	m.ObserveAcceptance(false)
	m.ObserveNest(true)
	m.ObserveNest(false)
	m.ObserveCacheLookup(true)
	m.ObservePhase("meet", 25*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.meetings))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.acceptance.WithLabelValues("accept")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.acceptance.WithLabelValues("reject")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nests.WithLabelValues("deleted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nests.WithLabelValues("kept")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))

	count, err := testutil.GatherAndCount(reg, "antclust_phase_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	m.ObserveMeeting()
	m.ObserveAcceptance(true)
	m.ObservePhase("shrink", time.Second)
	m.ObserveNest(false)
	m.ObserveCacheLookup(false)
}

func TestTracerAvailable(t *testing.T) {
	require.NotNil(t, Tracer())
}

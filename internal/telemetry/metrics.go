// Package telemetry holds the Prometheus metrics and OpenTelemetry tracer used
// by clustering runs. A nil *Metrics is valid and records nothing.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "antclust"

type Metrics struct {
	meetings      prometheus.Counter
	acceptance    *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	nests         *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
}

// NewMetrics registers the clustering metrics on reg. A nil registerer builds
// working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		meetings: factory.NewCounter(prometheus.CounterOpts{
			Name: "antclust_meetings_total",
			Help: "Main loop meetings handed to the rule set",
		}),
		acceptance: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "antclust_acceptance_total",
			Help: "Acceptance evaluations by verdict",
		}, []string{"verdict"}),
		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "antclust_phase_duration_seconds",
			Help:    "Wall time per clustering phase",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"phase"}),
		nests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "antclust_nests_total",
			Help: "Nests evaluated during pruning by outcome",
		}, []string{"outcome"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "antclust_similarity_cache_lookups_total",
			Help: "Similarity cache lookups by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveMeeting() {
	if m == nil {
		return
	}
	m.meetings.Inc()
}

func (m *Metrics) ObserveAcceptance(accepted bool) {
	if m == nil {
		return
	}
	verdict := "reject"
	if accepted {
		verdict = "accept"
	}
	m.acceptance.WithLabelValues(verdict).Inc()
}

func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *Metrics) ObserveNest(deleted bool) {
	if m == nil {
		return
	}
	outcome := "kept"
	if deleted {
		outcome = "deleted"
	}
	m.nests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Tracer returns the tracer for clustering phases. It is a no-op unless the
// host process installs a tracer provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

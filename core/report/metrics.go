package report

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "darasa"

// Metrics collects the report engine telemetry.
type Metrics struct {
	computations  *prometheus.CounterVec
	failures      *prometheus.CounterVec
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	discarded     *prometheus.CounterVec
	dirty         prometheus.Gauge
	duration      *prometheus.HistogramVec
}

// NewMetrics creates the report metrics and registers them with reg (skipped when reg is nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "report",
				Name:      name,
				Help:      help,
			},
			[]string{"kind"},
		)
	}

	m := &Metrics{
		computations:  counter("computations_total", "Number of report computations"),
		failures:      counter("computation_failures_total", "Number of failed report computations"),
		cacheHits:     counter("cache_hits_total", "Number of reports served from the cache"),
		cacheMisses:   counter("cache_misses_total", "Number of report cache misses"),
		invalidations: counter("invalidations_total", "Number of report invalidations"),
		discarded:     counter("discarded_total", "Number of computed reports not cached because they were invalidated meanwhile"),
		dirty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "report",
			Name:      "dirty",
			Help:      "Number of invalidated reports waiting for a refresh",
		}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "report",
				Name:      "compute_duration_seconds",
				Help:      "Report computation latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.computations,
			m.failures,
			m.cacheHits,
			m.cacheMisses,
			m.invalidations,
			m.discarded,
			m.dirty,
			m.duration,
		)
	}
	return m
}

func (m *Metrics) observeCompute(kind string, start time.Time, err error) {
	m.computations.WithLabelValues(kind).Inc()
	m.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		m.failures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) cacheHit(kind string)    { m.cacheHits.WithLabelValues(kind).Inc() }
func (m *Metrics) cacheMiss(kind string)   { m.cacheMisses.WithLabelValues(kind).Inc() }
func (m *Metrics) invalidated(kind string) { m.invalidations.WithLabelValues(kind).Inc() }
func (m *Metrics) discard(kind string)     { m.discarded.WithLabelValues(kind).Inc() }
func (m *Metrics) setDirty(n int)          { m.dirty.Set(float64(n)) }

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SearchMetrics records search execution outcomes.
type SearchMetrics struct {
	duration    *prometheus.HistogramVec
	executions  *prometheus.CounterVec
	leads       *prometheus.CounterVec
	claimLosses prometheus.Counter
	stale       prometheus.Gauge
}

// NewSearchMetrics registers the search metrics on the provided registerer.
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	if reg == nil {
		return &SearchMetrics{}
	}
	m := &SearchMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "provider_duration_seconds",
			Help:      "Time spent waiting on the listing provider.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"source", "status"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "executions_total",
			Help:      "Search executions by terminal status.",
		}, []string{"source", "status"}),
		leads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "leads_persisted_total",
			Help:      "Leads stored after de-duplication.",
		}, []string{"source"}),
		claimLosses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "claim_conflicts_total",
			Help:      "Execute calls rejected because the search was no longer pending.",
		}),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "stale_running",
			Help:      "Searches stuck in running past the staleness threshold at the last check.",
		}),
	}
	reg.MustRegister(m.duration, m.executions, m.leads, m.claimLosses, m.stale)
	return m
}

// ObserveExecution records one terminal execution.
func (m *SearchMetrics) ObserveExecution(source, status string, duration time.Duration, leads int) {
	if m == nil || m.executions == nil {
		return
	}
	source = normalizeLabel(source)
	status = normalizeLabel(status)
	m.duration.WithLabelValues(source, status).Observe(duration.Seconds())
	m.executions.WithLabelValues(source, status).Inc()
	if leads > 0 {
		m.leads.WithLabelValues(source).Add(float64(leads))
	}
}

// IncClaimConflict counts a lost pending->running claim.
func (m *SearchMetrics) IncClaimConflict() {
	if m == nil || m.claimLosses == nil {
		return
	}
	m.claimLosses.Inc()
}

// SetStaleRunning publishes the latest stale-run count.
func (m *SearchMetrics) SetStaleRunning(count int) {
	if m == nil || m.stale == nil {
		return
	}
	m.stale.Set(float64(count))
}

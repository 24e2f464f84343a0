package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry       *prometheus.Registry
	syncRuns       *prometheus.CounterVec // total syncs
	syncDuration   prometheus.Histogram   // time to sync
	recordOutcomes *prometheus.CounterVec // per-record reconcile outcomes
	piholeRequests *prometheus.CounterVec // pihole api requests
	unifiRequests  *prometheus.CounterVec // unifi controller requests
}

// Public interface for metrics operations
func (m *Metrics) IncSyncRun(success bool) {
	status := boolToResult(success)
	m.syncRuns.WithLabelValues(status).Inc()
}

func (m *Metrics) SetSyncDuration(duration time.Duration) {
	m.syncDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncRecordOutcome(outcome string) {
	if outcome == "" {
		return
	}
	m.recordOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncPiholeRequest(success bool) {
	status := boolToResult(success)
	m.piholeRequests.WithLabelValues(status).Inc()
}

func (m *Metrics) IncUnifiRequest(operation string, success bool) {
	if !isValidOperation(operation) {
		return
	}
	status := boolToResult(success)
	m.unifiRequests.WithLabelValues(operation, status).Inc()
}

// Validation helpers
func boolToResult(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}

func isValidOperation(op string) bool {
	switch op {
	case "login", "read", "devices", "create":
		return true
	}
	return false
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	namespace := "pihole_unifi_sync"

	m := &Metrics{
		registry: registry,

		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Total number of synchronization runs",
		}, []string{"status"}),

		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of synchronization runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		recordOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_outcomes_total",
			Help:      "Per-record reconciliation outcomes",
		}, []string{"outcome"}),

		piholeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pihole_requests_total",
			Help:      "Total Pi-hole API requests",
		}, []string{"status"}),

		unifiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unifi_requests_total",
			Help:      "Total Unifi controller requests",
		}, []string{"operation", "status"}),
	}

	registry.MustRegister(
		m.syncRuns,
		m.syncDuration,
		m.recordOutcomes,
		m.piholeRequests,
		m.unifiRequests,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

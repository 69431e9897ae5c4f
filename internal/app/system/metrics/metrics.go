// Package metrics exposes Prometheus counters for authentication and group
// administration. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "groupshare"

// Metrics holds the service's collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	linksIssued   *prometheus.CounterVec
	verifications *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	replays       prometheus.Counter
	groupChanges  *prometheus.CounterVec
	adminChanges  *prometheus.CounterVec
	cleanupPurged prometheus.Counter
}

// New creates the collectors and registers them, along with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		linksIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "magic_links_issued_total",
			Help:      "Magic links issued, by type.",
		}, []string{"type"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "magic_link_verifications_total",
			Help:      "Magic link verifications, by outcome or error code.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Refresh credential exchanges, by result.",
		}, []string{"result"}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_replays_total",
			Help:      "Refresh credentials presented after they were rotated.",
		}),
		groupChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "group_changes_total",
			Help:      "Active group changes, by kind (switch, select).",
		}, []string{"kind"}),
		adminChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_changes_total",
			Help:      "Group administration operations, by action and result.",
		}, []string{"action", "result"}),
		cleanupPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_sessions_purged_total",
			Help:      "Stale refresh sessions removed by the cleanup worker.",
		}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.linksIssued,
		m.verifications,
		m.refreshes,
		m.replays,
		m.groupChanges,
		m.adminChanges,
		m.cleanupPurged,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

func (m *Metrics) LinkIssued(tokenType string) {
	if m == nil {
		return
	}
	m.linksIssued.WithLabelValues(tokenType).Inc()
}

func (m *Metrics) Verification(result string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

// Replay counts a rotated refresh credential presented again.
func (m *Metrics) Replay() {
	if m == nil {
		return
	}
	m.replays.Inc()
}

func (m *Metrics) GroupChange(kind string) {
	if m == nil {
		return
	}
	m.groupChanges.WithLabelValues(kind).Inc()
}

func (m *Metrics) AdminChange(action, result string) {
	if m == nil {
		return
	}
	m.adminChanges.WithLabelValues(action, result).Inc()
}

func (m *Metrics) Purged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.cleanupPurged.Add(float64(n))
}

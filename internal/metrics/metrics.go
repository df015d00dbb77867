// Package metrics exposes prometheus counters for command processing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "proposal_engine"

// Command outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeUnknown  = "unknown"
)

// Metrics owns its own registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	Commands        *prometheus.CounterVec
	CommandDuration prometheus.Histogram
	Versions        *prometheus.CounterVec
	SyncStatus      *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	StoreErrors     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands processed, by name and outcome.",
		}, []string{"command", "outcome"}),
		CommandDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time to process one command request.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		Versions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_entries_total",
			Help:      "History entries written, by action.",
		}, []string{"action"}),
		SyncStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_status_total",
			Help:      "Sync status observed after each committed command.",
		}, []string{"status"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions held by the HTTP service.",
		}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Snapshot store failures, by operation.",
		}, []string{"op"}),
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

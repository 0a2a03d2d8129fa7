// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package metrics exposes Prometheus collectors for the sync engine.
//
// Collectors live on a private registry so several engines (or tests) can
// coexist in one process. Every method is safe to call on a nil *Metrics,
// which lets callers treat metrics as optional.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sync_keeper"

// Cycle outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Upload outcomes.
const (
	UploadAcked     = "acked"
	UploadConflict  = "conflict"
	UploadTransient = "transient"
	UploadRejected  = "rejected"
)

// Metrics holds every collector of the engine.
type Metrics struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	uploads       *prometheus.CounterVec
	downloads     *prometheus.CounterVec
	conflicts     *prometheus.CounterVec
	pending       prometheus.Gauge
	failed        prometheus.Gauge
	unresolved    prometheus.Gauge
}

// New registers the collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Sync cycles by outcome.",
		}, []string{"outcome"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of sync cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Queue entries sent to the remote service by operation and outcome.",
		}, []string{"operation", "outcome"}),
		downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_records_total",
			Help:      "Remote records absorbed during download by entity type.",
		}, []string{"entity_type"}),
		conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Detected conflicts by policy and resolution.",
		}, []string{"policy", "resolution"}),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_pending",
			Help:      "Queue entries waiting for upload.",
		}),
		failed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_failed",
			Help:      "Queue entries marked permanently failed.",
		}),
		unresolved: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conflicts_unresolved",
			Help:      "Conflicts waiting for a resolution.",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCycle counts a finished cycle and records its duration.
func (m *Metrics) ObserveCycle(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

// ObserveUpload counts one upload attempt.
func (m *Metrics) ObserveUpload(operation, outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(operation, outcome).Inc()
}

// ObserveDownload counts n absorbed remote records.
func (m *Metrics) ObserveDownload(entityType string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.downloads.WithLabelValues(entityType).Add(float64(n))
}

// ObserveConflict counts a detected conflict.
func (m *Metrics) ObserveConflict(policy, resolution string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(policy, resolution).Inc()
}

// SetBacklog updates the queue and conflict gauges.
func (m *Metrics) SetBacklog(pending, failed, unresolved int64) {
	if m == nil {
		return
	}
	m.pending.Set(float64(pending))
	m.failed.Set(float64(failed))
	m.unresolved.Set(float64(unresolved))
}

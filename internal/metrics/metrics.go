// Package metrics exposes engine and HTTP counters in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "imoveis"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	recomputes    *prometheus.CounterVec
	passes        prometheus.Counter
	derivedWrites prometheus.Counter
	lifecycle     *prometheus.CounterVec
	jobs          *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recomputes_total",
			Help:      "Recompute calls, by whether they reached a fixed point.",
		}, []string{"converged"}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recompute_passes_total",
			Help:      "Rule table passes run by Recompute.",
		}),
		derivedWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "derived_writes_total",
			Help:      "Derived field values written by Recompute.",
		}),
		lifecycle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_operations_total",
			Help:      "Property lifecycle operations, by operation.",
		}, []string{"op"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_jobs_total",
			Help:      "Finished export jobs, by type and final status.",
		}, []string{"type", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		m.recomputes, m.passes, m.derivedWrites, m.lifecycle, m.jobs,
		m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecomputeDone implements engine.Recorder.
func (m *Metrics) RecomputeDone(passes, writes int, converged bool) {
	m.recomputes.WithLabelValues(strconv.FormatBool(converged)).Inc()
	m.passes.Add(float64(passes))
	m.derivedWrites.Add(float64(writes))
}

// LifecycleOp implements engine.Recorder.
func (m *Metrics) LifecycleOp(op string) {
	m.lifecycle.WithLabelValues(op).Inc()
}

// JobFinished counts a job that reached a final status.
func (m *Metrics) JobFinished(jobType, status string) {
	m.jobs.WithLabelValues(jobType, status).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

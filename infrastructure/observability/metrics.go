// Package observability holds the Prometheus collector, the HTTP
// metrics middleware and the OpenTelemetry tracing setup.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the versioning backend.
// Every collector carries its own registry so tests can build as many
// as they like without duplicate-registration panics.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Engine metrics
	DomainEvents     *prometheus.CounterVec
	SnapshotsCreated prometheus.Counter
	Rollbacks        *prometheus.CounterVec
	Merges           *prometheus.CounterVec
	DiffDuration     prometheus.Histogram

	// Concurrency metrics
	LockContention *prometheus.CounterVec

	// Scheduler metrics
	SweepDuration  prometheus.Histogram
	SweepSnapshots prometheus.Counter
	SweepSkipped   prometheus.Counter
}

// NewCollector creates a metrics collector under the given namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	domainEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_events_total",
			Help:      "Total number of domain events emitted",
		},
		[]string{"event_type"},
	)

	snapshotsCreated := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_created_total",
			Help:      "Total number of snapshots created",
		},
	)

	rollbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollbacks_total",
			Help:      "Total number of rollback attempts by outcome",
		},
		[]string{"status"},
	)

	merges := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merges_total",
			Help:      "Total number of merge analyses by outcome",
		},
		[]string{"status"},
	)

	diffDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "diff_duration_seconds",
			Help:      "Version comparison duration in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	lockContention := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_contention_total",
			Help:      "Total number of failed node lock acquisitions",
		},
		[]string{"operation"},
	)

	sweepDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Snapshot sweep duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	sweepSnapshots := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_snapshots_total",
			Help:      "Total number of snapshots created by the sweep",
		},
	)

	sweepSkipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_skipped_total",
			Help:      "Total number of nodes skipped by the sweep",
		},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		domainEvents,
		snapshotsCreated,
		rollbacks,
		merges,
		diffDuration,
		lockContention,
		sweepDuration,
		sweepSnapshots,
		sweepSkipped,
	)

	return &Collector{
		registry:         registry,
		HTTPRequests:     httpRequests,
		HTTPDuration:     httpDuration,
		DomainEvents:     domainEvents,
		SnapshotsCreated: snapshotsCreated,
		Rollbacks:        rollbacks,
		Merges:           merges,
		DiffDuration:     diffDuration,
		LockContention:   lockContention,
		SweepDuration:    sweepDuration,
		SweepSnapshots:   sweepSnapshots,
		SweepSkipped:     sweepSkipped,
	}
}

// Handler serves the collector's registry, mounted on /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// LockContentionHook adapts the collector to the node locker's
// contention callback.
func (c *Collector) LockContentionHook() func(nodeID, operation string) {
	return func(_, operation string) {
		// Node ids are unbounded; only the operation is labeled.
		c.LockContention.WithLabelValues(operation).Inc()
	}
}

// SweepHook adapts the collector to the snapshot scheduler's sweep
// callback.
func (c *Collector) SweepHook() func(snapshotted, skipped int, duration time.Duration) {
	return func(snapshotted, skipped int, duration time.Duration) {
		c.SweepDuration.Observe(duration.Seconds())
		c.SweepSnapshots.Add(float64(snapshotted))
		c.SweepSkipped.Add(float64(skipped))
	}
}

// ObserveDiffDuration records one version comparison.
func (c *Collector) ObserveDiffDuration(duration time.Duration) {
	c.DiffDuration.Observe(duration.Seconds())
}

// CacheStats mirrors the diff cache's counters for export.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
	UsedBytes int64
	HitRate   float64
}

// RegisterCacheStats exports the diff cache's counters. Hits, misses
// and evictions are monotonic and exported as counters; the rest as
// gauges. Call at most once per collector.
func (c *Collector) RegisterCacheStats(namespace string, stats func() CacheStats) {
	c.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		}, func() float64 { return float64(stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		}, func() float64 { return float64(stats().Misses) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Total number of cache evictions",
		}, func() float64 { return float64(stats().Evictions) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Current number of cache entries",
		}, func() float64 { return float64(stats().Entries) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_used_bytes",
			Help:      "Current cache memory usage in bytes",
		}, func() float64 { return float64(stats().UsedBytes) }),
	)
}

package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepcae-backend/domain/events"
	"deepcae-backend/infrastructure/observability"
)

func newEvent(eventType string) events.BaseEvent {
	return events.BaseEvent{
		AggregateID: "meshA",
		EventType:   eventType,
		Timestamp:   time.Now(),
		Version:     1,
	}
}

func TestEventMetricsHandler(t *testing.T) {
	collector := observability.NewCollector("deepcae")
	handler := observability.NewEventMetricsHandler(collector)
	ctx := context.Background()

	require.NoError(t, handler.Handle(ctx, newEvent(events.TypeSnapshotCreated)))
	require.NoError(t, handler.Handle(ctx, newEvent(events.TypeSnapshotCreated)))
	require.NoError(t, handler.Handle(ctx, newEvent(events.TypeRollbackCompleted)))
	require.NoError(t, handler.Handle(ctx, newEvent(events.TypeRollbackFailed)))
	require.NoError(t, handler.Handle(ctx, newEvent(events.TypeMergeAnalysisCompleted)))
	require.NoError(t, handler.Handle(ctx, newEvent(events.TypeBranchCreated)))

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.SnapshotsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Rollbacks.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Rollbacks.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Merges.WithLabelValues("analyzed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.DomainEvents.WithLabelValues(events.TypeSnapshotCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.DomainEvents.WithLabelValues(events.TypeBranchCreated)))
}

func TestEventMetricsHandler_Interface(t *testing.T) {
	handler := observability.NewEventMetricsHandler(observability.NewCollector("deepcae"))

	assert.True(t, handler.SupportsEvent(events.TypeTagCreated))
	assert.True(t, handler.SupportsEvent("anything"))
	assert.Equal(t, "metrics-collector", handler.Name())
	assert.Less(t, handler.Priority(), 100)
}

func TestMetricsMiddleware(t *testing.T) {
	collector := observability.NewCollector("deepcae")

	r := chi.NewRouter()
	r.Use(observability.MetricsMiddleware(collector))
	r.Get("/api/v1/nodes/{nodeId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nodes/meshA", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The route label carries the pattern, not the concrete path.
	got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("GET", "/api/v1/nodes/{nodeId}", "200"))
	assert.Equal(t, 1.0, got)
}

func TestMetricsMiddleware_UnmatchedRoute(t *testing.T) {
	collector := observability.NewCollector("deepcae")

	r := chi.NewRouter()
	r.Use(observability.MetricsMiddleware(collector))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("GET", "unmatched", "404"))
	assert.Equal(t, 1.0, got)
}

func TestCollector_Handler(t *testing.T) {
	collector := observability.NewCollector("deepcae")
	collector.SnapshotsCreated.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "deepcae_snapshots_created_total 1")
	assert.Contains(t, body, "deepcae_sweep_snapshots_total")
}

func TestCollector_LockContentionHook(t *testing.T) {
	collector := observability.NewCollector("deepcae")

	hook := collector.LockContentionHook()
	hook("meshA", "update")
	hook("meshB", "update")
	hook("meshA", "rollback")

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.LockContention.WithLabelValues("update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.LockContention.WithLabelValues("rollback")))
}

func TestCollector_SweepHook(t *testing.T) {
	collector := observability.NewCollector("deepcae")

	hook := collector.SweepHook()
	hook(3, 2, 150*time.Millisecond)
	hook(1, 0, 50*time.Millisecond)

	assert.Equal(t, 4.0, testutil.ToFloat64(collector.SweepSnapshots))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.SweepSkipped))
}

func TestCollector_RegisterCacheStats(t *testing.T) {
	collector := observability.NewCollector("deepcae")
	collector.RegisterCacheStats("deepcae", func() observability.CacheStats {
		return observability.CacheStats{
			Hits:      10,
			Misses:    4,
			Evictions: 1,
			Entries:   6,
			UsedBytes: 2048,
			HitRate:   10.0 / 14.0,
		}
	})

	assert.Equal(t, 10.0, gatherValue(t, collector.Registry(), "deepcae_cache_hits_total"))
	assert.Equal(t, 4.0, gatherValue(t, collector.Registry(), "deepcae_cache_misses_total"))
	assert.Equal(t, 1.0, gatherValue(t, collector.Registry(), "deepcae_cache_evictions_total"))
	assert.Equal(t, 6.0, gatherValue(t, collector.Registry(), "deepcae_cache_entries"))
	assert.Equal(t, 2048.0, gatherValue(t, collector.Registry(), "deepcae_cache_used_bytes"))
}

// gatherValue reads a single-sample metric family from the registry.
func gatherValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		require.Len(t, family.GetMetric(), 1)
		metric := family.GetMetric()[0]
		if counter := metric.GetCounter(); counter != nil {
			return counter.GetValue()
		}
		return metric.GetGauge().GetValue()
	}

	t.Fatalf("metric %s not found", name)
	return 0
}

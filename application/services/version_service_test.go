package services

import (
	"context"
	"sync"
	"testing"
	"time"

	appevents "deepcae-backend/application/events"
	"deepcae-backend/application/ports"
	"deepcae-backend/domain/core/entities"
	"deepcae-backend/domain/core/valueobjects"
	"deepcae-backend/domain/events"
	"deepcae-backend/domain/versioning"
	"deepcae-backend/infrastructure/concurrency"
	"deepcae-backend/infrastructure/persistence/memory"
	pkgerrors "deepcae-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEngine wires every service over the in-memory store, the way the
// container does it in production.
type testEngine struct {
	store     *memory.InMemoryVersionStore
	locker    *concurrency.MemoryNodeLocker
	bus       *appevents.HandlerRegistry
	differ    *versioning.DiffEngine
	versions  *VersionService
	snapshots *SnapshotService
	branches  *BranchService
	tags      *TagService
	rollbacks *RollbackService
	merges    *MergeService
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewInMemoryVersionStore()
	locker := concurrency.NewMemoryNodeLocker(logger)
	bus := appevents.NewHandlerRegistry(logger)
	differ := versioning.NewDiffEngine(0)
	merger := versioning.NewMerger(differ)

	branches := NewBranchService(store, bus, logger)
	tags := NewTagService(store, bus, logger)
	snapshots := NewSnapshotService(store, tags, branches, locker, bus, logger)
	versions := NewVersionService(store, differ, locker, branches, nil, logger)
	rollbacks := NewRollbackService(store, differ, snapshots, tags, branches, locker, bus, logger)
	merges := NewMergeService(store, branches, merger, locker, bus, logger)

	return &testEngine{
		store:     store,
		locker:    locker,
		bus:       bus,
		differ:    differ,
		versions:  versions,
		snapshots: snapshots,
		branches:  branches,
		tags:      tags,
		rollbacks: rollbacks,
		merges:    merges,
	}
}

func (e *testEngine) write(t *testing.T, node string, data map[string]interface{}) *entities.Version {
	t.Helper()
	v, err := e.versions.UpdateNodeData(context.Background(), mustNodeID(t, node), data, "update", "tester")
	require.NoError(t, err)
	return v
}

func (e *testEngine) currentData(t *testing.T, node string) map[string]interface{} {
	t.Helper()
	record, err := e.versions.GetNode(context.Background(), mustNodeID(t, node))
	require.NoError(t, err)
	return record.CurrentData().Raw()
}

func (e *testEngine) versionCount(t *testing.T, node string) int {
	t.Helper()
	record, err := e.store.GetNode(context.Background(), mustNodeID(t, node))
	require.NoError(t, err)
	if record == nil {
		return 0
	}
	return record.VersionCount()
}

// capturedEvents records every event type seen on the bus.
type capturedEvents struct {
	mu    sync.Mutex
	seen  []events.DomainEvent
	types []string
}

func (e *testEngine) captureEvents(t *testing.T) *capturedEvents {
	t.Helper()
	c := &capturedEvents{}
	err := e.bus.On(ports.WildcardEventType, func(ctx context.Context, event events.DomainEvent) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.seen = append(c.seen, event)
		c.types = append(c.types, event.GetEventType())
	})
	require.NoError(t, err)
	return c
}

func (c *capturedEvents) has(eventType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.types {
		if t == eventType {
			return true
		}
	}
	return false
}

func (c *capturedEvents) count(eventType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.types {
		if t == eventType {
			n++
		}
	}
	return n
}

func mustNodeID(t *testing.T, id string) valueobjects.NodeID {
	t.Helper()
	nodeID, err := valueobjects.NewNodeID(id)
	require.NoError(t, err)
	return nodeID
}

func mustBranchID(t *testing.T, id string) valueobjects.BranchID {
	t.Helper()
	branchID, err := valueobjects.NewBranchID(id)
	require.NoError(t, err)
	return branchID
}

func mustDocument(t *testing.T, data map[string]interface{}) valueobjects.Document {
	t.Helper()
	doc, err := valueobjects.NewDocument(data)
	require.NoError(t, err)
	return doc
}

// stubCache counts hits so tests can tell a cached diff from a
// recomputed one.
type stubCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
	sets    int
}

func newStubCache() *stubCache {
	return &stubCache{entries: map[string][]byte{}}
}

func (c *stubCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return value, ok, nil
}

func (c *stubCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.sets++
	return nil
}

func (c *stubCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *stubCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string][]byte{}
	return nil
}

func TestVersionService_UpdateNodeData_AppendsVersions(t *testing.T) {
	e := newTestEngine(t)

	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1})
	v2 := e.write(t, "meshA", map[string]interface{}{"a": 2})

	assert.Equal(t, 1, v1.ID().Sequence())
	assert.Equal(t, 2, v2.ID().Sequence())
	assert.True(t, v2.ID().Follows(v1.ID()))
	assert.Equal(t, 2, e.versionCount(t, "meshA"))
}

func TestVersionService_UpdateNodeData_RejectsUnserializableData(t *testing.T) {
	e := newTestEngine(t)

	cyclic := map[string]interface{}{}
	cyclic["self"] = cyclic

	_, err := e.versions.UpdateNodeData(context.Background(), mustNodeID(t, "meshA"), cyclic, "update", "tester")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Equal(t, 0, e.versionCount(t, "meshA"))
}

func TestVersionService_UpdateNodeData_FailsFastWhenLocked(t *testing.T) {
	e := newTestEngine(t)
	e.write(t, "meshA", map[string]interface{}{"a": 1})

	lock, err := e.locker.Acquire(context.Background(), mustNodeID(t, "meshA"), "rollback")
	require.NoError(t, err)
	defer lock.Release()

	_, err = e.versions.UpdateNodeData(context.Background(), mustNodeID(t, "meshA"), map[string]interface{}{"a": 2}, "update", "tester")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConcurrency(err))
}

func TestVersionService_UpdateNodeData_AdvancesActiveBranchHead(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.branches.EnsureMainBranch(ctx, "tester")
	require.NoError(t, err)

	v := e.write(t, "meshA", map[string]interface{}{"a": 1})

	main, err := e.branches.GetBranch(ctx, valueobjects.MainBranchID)
	require.NoError(t, err)
	assert.True(t, main.HeadVersionID().Equals(v.ID()))
	assert.True(t, main.NodeID().Equals(v.NodeID()))
}

func TestVersionService_GetVersionHistory_NewestFirst(t *testing.T) {
	e := newTestEngine(t)
	e.write(t, "meshA", map[string]interface{}{"i": 1})
	e.write(t, "meshA", map[string]interface{}{"i": 2})
	e.write(t, "meshA", map[string]interface{}{"i": 3})

	history, err := e.versions.GetVersionHistory(context.Background(), mustNodeID(t, "meshA"))
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, 3, history[0].ID().Sequence())
	assert.Equal(t, 2, history[1].ID().Sequence())
	assert.Equal(t, 1, history[2].ID().Sequence())
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i-1].Timestamp().After(history[i].Timestamp()))
	}
}

func TestVersionService_GetVersionHistory_UnknownNode(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.versions.GetVersionHistory(context.Background(), mustNodeID(t, "ghost"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestVersionService_GetVersion(t *testing.T) {
	e := newTestEngine(t)
	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1})
	e.write(t, "meshA", map[string]interface{}{"a": 2})

	got, err := e.versions.GetVersion(context.Background(), v1.ID())
	require.NoError(t, err)
	assert.True(t, got.ID().Equals(v1.ID()))
	assert.Equal(t, v1.Checksum(), got.Checksum())
}

func TestVersionService_GetVersion_Unknown(t *testing.T) {
	e := newTestEngine(t)
	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1})

	missing, err := valueobjects.NewVersionID(v1.NodeID(), 99)
	require.NoError(t, err)

	_, err = e.versions.GetVersion(context.Background(), missing)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestVersionService_CompareVersions(t *testing.T) {
	e := newTestEngine(t)
	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1})
	v2 := e.write(t, "meshA", map[string]interface{}{"a": 2, "b": 3})

	diff, err := e.versions.CompareVersions(context.Background(), v1.ID(), v2.ID())
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, diff.Added)
	assert.Empty(t, diff.Removed)
	require.Len(t, diff.Modified, 1)
	assert.Equal(t, "a", diff.Modified[0].Path)
	assert.Equal(t, float64(1), diff.Modified[0].OldValue)
	assert.Equal(t, float64(2), diff.Modified[0].NewValue)
}

func TestVersionService_CompareVersions_IdenticalVersionsAreEmpty(t *testing.T) {
	e := newTestEngine(t)
	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1, "nested": map[string]interface{}{"x": true}})

	diff, err := e.versions.CompareVersions(context.Background(), v1.ID(), v1.ID())
	require.NoError(t, err)

	assert.True(t, diff.IsEmpty())
	assert.Equal(t, float64(1), diff.Statistics.CompatibilityScore)
}

func TestVersionService_CompareVersions_UsesCache(t *testing.T) {
	logger := zap.NewNop()
	store := memory.NewInMemoryVersionStore()
	locker := concurrency.NewMemoryNodeLocker(logger)
	differ := versioning.NewDiffEngine(0)
	cache := newStubCache()
	versions := NewVersionService(store, differ, locker, nil, cache, logger)

	ctx := context.Background()
	v1, err := versions.UpdateNodeData(ctx, mustNodeID(t, "meshA"), map[string]interface{}{"a": 1}, "initial", "tester")
	require.NoError(t, err)
	v2, err := versions.UpdateNodeData(ctx, mustNodeID(t, "meshA"), map[string]interface{}{"a": 2}, "second", "tester")
	require.NoError(t, err)

	first, err := versions.CompareVersions(ctx, v1.ID(), v2.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 0, cache.hits)

	second, err := versions.CompareVersions(ctx, v1.ID(), v2.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.Statistics, second.Statistics)
	assert.Equal(t, first.Modified, second.Modified)
}

func TestVersionService_ListNodes(t *testing.T) {
	e := newTestEngine(t)
	e.write(t, "meshB", map[string]interface{}{"b": 1})
	e.write(t, "meshA", map[string]interface{}{"a": 1})

	nodes, err := e.versions.ListNodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "meshA", nodes[0].ID().String())
	assert.Equal(t, "meshB", nodes[1].ID().String())
}

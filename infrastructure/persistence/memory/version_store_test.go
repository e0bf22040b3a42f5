package memory

import (
	"context"
	"fmt"
	"testing"

	"deepcae-backend/domain/core/valueobjects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNodeID(t *testing.T, id string) valueobjects.NodeID {
	t.Helper()
	nodeID, err := valueobjects.NewNodeID(id)
	require.NoError(t, err)
	return nodeID
}

func mustDocument(t *testing.T, data map[string]interface{}) valueobjects.Document {
	t.Helper()
	doc, err := valueobjects.NewDocument(data)
	require.NoError(t, err)
	return doc
}

func TestInMemoryVersionStore_GetNode_Missing(t *testing.T) {
	store := NewInMemoryVersionStore()

	record, err := store.GetNode(context.Background(), mustNodeID(t, "meshA"))

	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestInMemoryVersionStore_UpdateNodeData_CreatesNodeOnFirstWrite(t *testing.T) {
	store := NewInMemoryVersionStore()
	ctx := context.Background()
	nodeID := mustNodeID(t, "meshA")

	v, err := store.UpdateNodeData(ctx, nodeID, mustDocument(t, map[string]interface{}{"a": 1}), "initial", "tester")
	require.NoError(t, err)

	assert.Equal(t, 1, v.ID().Sequence())
	assert.Equal(t, "initial", v.Description())
	assert.Equal(t, "tester", v.CreatedBy())

	record, err := store.GetNode(ctx, nodeID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 1, record.VersionCount())

	value, ok := record.CurrentData().ValueAt("a")
	require.True(t, ok)
	assert.Equal(t, float64(1), value)
}

func TestInMemoryVersionStore_SequencesAreMonotonic(t *testing.T) {
	store := NewInMemoryVersionStore()
	ctx := context.Background()
	nodeID := mustNodeID(t, "meshA")

	for i := 1; i <= 5; i++ {
		v, err := store.UpdateNodeData(ctx, nodeID, mustDocument(t, map[string]interface{}{"i": i}), fmt.Sprintf("write %d", i), "tester")
		require.NoError(t, err)
		assert.Equal(t, i, v.ID().Sequence())
	}
}

func TestInMemoryVersionStore_HistoryIsStrictlyDescending(t *testing.T) {
	store := NewInMemoryVersionStore()
	ctx := context.Background()
	nodeID := mustNodeID(t, "meshA")

	// rapid writes can land on the same clock reading; the store must
	// still keep timestamps strictly increasing
	for i := 0; i < 20; i++ {
		_, err := store.UpdateNodeData(ctx, nodeID, mustDocument(t, map[string]interface{}{"i": i}), "write", "tester")
		require.NoError(t, err)
	}

	record, err := store.GetNode(ctx, nodeID)
	require.NoError(t, err)
	require.NotNil(t, record)

	history := record.History()
	require.Len(t, history, 20)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i-1].Timestamp().After(history[i].Timestamp()),
			"history[%d] must be newer than history[%d]", i-1, i)
		assert.Greater(t, history[i-1].ID().Sequence(), history[i].ID().Sequence())
	}
}

func TestInMemoryVersionStore_ReadsAreSnapshots(t *testing.T) {
	store := NewInMemoryVersionStore()
	ctx := context.Background()
	nodeID := mustNodeID(t, "meshA")

	_, err := store.UpdateNodeData(ctx, nodeID, mustDocument(t, map[string]interface{}{"a": 1}), "initial", "tester")
	require.NoError(t, err)

	before, err := store.GetNode(ctx, nodeID)
	require.NoError(t, err)

	_, err = store.UpdateNodeData(ctx, nodeID, mustDocument(t, map[string]interface{}{"a": 2}), "second", "tester")
	require.NoError(t, err)

	// the earlier read must not see the later write
	assert.Equal(t, 1, before.VersionCount())

	after, err := store.GetNode(ctx, nodeID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.VersionCount())
}

func TestInMemoryVersionStore_StoredVersionsAreIsolatedFromCallers(t *testing.T) {
	store := NewInMemoryVersionStore()
	ctx := context.Background()
	nodeID := mustNodeID(t, "meshA")

	v, err := store.UpdateNodeData(ctx, nodeID, mustDocument(t, map[string]interface{}{"a": 1}), "initial", "tester")
	require.NoError(t, err)

	// mutating the map handed out by Raw must not reach stored state
	raw := v.Data().Raw()
	raw["a"] = float64(999)

	record, err := store.GetNode(ctx, nodeID)
	require.NoError(t, err)
	value, ok := record.CurrentData().ValueAt("a")
	require.True(t, ok)
	assert.Equal(t, float64(1), value)
}

func TestInMemoryVersionStore_GetAllNodes_SortedByID(t *testing.T) {
	store := NewInMemoryVersionStore()
	ctx := context.Background()

	for _, id := range []string{"meshC", "meshA", "meshB"} {
		_, err := store.UpdateNodeData(ctx, mustNodeID(t, id), mustDocument(t, map[string]interface{}{"id": id}), "initial", "tester")
		require.NoError(t, err)
	}

	nodes, err := store.GetAllNodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	got := []string{nodes[0].ID().String(), nodes[1].ID().String(), nodes[2].ID().String()}
	assert.Equal(t, []string{"meshA", "meshB", "meshC"}, got)
}

func BenchmarkInMemoryVersionStore_UpdateNodeData(b *testing.B) {
	store := NewInMemoryVersionStore()
	ctx := context.Background()
	nodeID, _ := valueobjects.NewNodeID("bench")
	doc, _ := valueobjects.NewDocument(map[string]interface{}{"a": 1, "b": "two", "c": []interface{}{1, 2, 3}})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.UpdateNodeData(ctx, nodeID, doc, "bench", "bench")
	}
}

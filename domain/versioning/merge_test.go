package versioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "deepcae-backend/pkg/errors"
)

func newTestMerger() *Merger {
	return NewMerger(NewDiffEngine(0))
}

func TestMerger_DetectConflicts_BothSidesDiverge(t *testing.T) {
	m := newTestMerger()

	base := doc(t, map[string]interface{}{"x": 1})
	current := doc(t, map[string]interface{}{"x": 2})
	incoming := doc(t, map[string]interface{}{"x": 3})

	conflicts := m.DetectConflicts(base, current, incoming)

	require.Len(t, conflicts, 1)
	assert.Equal(t, "x", conflicts[0].Path)
	assert.Equal(t, float64(2), conflicts[0].CurrentValue)
	assert.Equal(t, float64(3), conflicts[0].IncomingValue)
	assert.Equal(t, float64(1), conflicts[0].BaseValue)
	assert.False(t, conflicts[0].IsResolved(), "resolution is undefined before auto-resolution")
}

func TestMerger_DetectConflicts_NoConflictCases(t *testing.T) {
	m := newTestMerger()
	base := doc(t, map[string]interface{}{"x": 1, "y": 1})

	t.Run("one sided change", func(t *testing.T) {
		current := doc(t, map[string]interface{}{"x": 2, "y": 1})
		conflicts := m.DetectConflicts(base, current, base)
		assert.Empty(t, conflicts)
	})

	t.Run("disjoint changes", func(t *testing.T) {
		current := doc(t, map[string]interface{}{"x": 2, "y": 1})
		incoming := doc(t, map[string]interface{}{"x": 1, "y": 2})
		conflicts := m.DetectConflicts(base, current, incoming)
		assert.Empty(t, conflicts)
	})

	t.Run("identical change on both sides", func(t *testing.T) {
		current := doc(t, map[string]interface{}{"x": 5, "y": 1})
		incoming := doc(t, map[string]interface{}{"x": 5, "y": 1})
		conflicts := m.DetectConflicts(base, current, incoming)
		assert.Empty(t, conflicts)
	})
}

func TestMerger_DetectConflicts_AncestorOverlap(t *testing.T) {
	m := newTestMerger()

	base := doc(t, map[string]interface{}{
		"cfg": map[string]interface{}{"a": 1, "b": 2},
	})
	// current edits a field inside cfg, incoming replaces cfg wholesale
	current := doc(t, map[string]interface{}{
		"cfg": map[string]interface{}{"a": 9, "b": 2},
	})
	incoming := doc(t, map[string]interface{}{
		"cfg": []interface{}{1, 2},
	})

	conflicts := m.DetectConflicts(base, current, incoming)

	require.Len(t, conflicts, 1)
	assert.Equal(t, "cfg", conflicts[0].Path)
}

func TestMerger_AutoResolve(t *testing.T) {
	m := newTestMerger()

	conflicts := []MergeConflict{
		{Path: "a", CurrentValue: float64(1), IncomingValue: float64(2)},
		{Path: "b", CurrentValue: "old", IncomingValue: float64(3)},
		{Path: "c", CurrentValue: "left", IncomingValue: "right"},
	}

	resolved, n := m.AutoResolve(conflicts)

	assert.Equal(t, 2, n)
	assert.Equal(t, ResolutionIncoming, resolved[0].Resolution)
	assert.False(t, resolved[1].IsResolved(), "kind mismatch stays open")
	assert.Equal(t, ResolutionIncoming, resolved[2].Resolution)
	assert.Equal(t, 1, UnresolvedCount(resolved))

	assert.False(t, conflicts[0].IsResolved(), "input slice is not mutated")
}

func TestMerger_AutoResolve_KeepsExistingResolutions(t *testing.T) {
	m := newTestMerger()

	conflicts := []MergeConflict{
		{Path: "a", CurrentValue: float64(1), IncomingValue: float64(2), Resolution: ResolutionCurrent},
	}

	resolved, n := m.AutoResolve(conflicts)

	assert.Equal(t, 0, n)
	assert.Equal(t, ResolutionCurrent, resolved[0].Resolution)
}

func TestMerger_Merge_FastForwardUnion(t *testing.T) {
	m := newTestMerger()

	base := doc(t, map[string]interface{}{"a": 1})
	current := doc(t, map[string]interface{}{"a": 1, "local": true})
	incoming := doc(t, map[string]interface{}{"a": 1, "b": 2, "c": 3, "d": 4})

	merged, err := m.Merge(base, current, incoming, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"a":     float64(1),
		"local": true,
		"b":     float64(2),
		"c":     float64(3),
		"d":     float64(4),
	}, merged.Raw())
}

func TestMerger_Merge_AppliesIncomingRemovals(t *testing.T) {
	m := newTestMerger()

	base := doc(t, map[string]interface{}{"a": 1, "b": 2})
	current := base
	incoming := doc(t, map[string]interface{}{"a": 1})

	merged, err := m.Merge(base, current, incoming, nil)
	require.NoError(t, err)

	_, ok := merged.ValueAt("b")
	assert.False(t, ok)
}

func TestMerger_Merge_RejectsUnresolved(t *testing.T) {
	m := newTestMerger()
	base := doc(t, map[string]interface{}{"x": 1})

	conflicts := []MergeConflict{{Path: "x", CurrentValue: float64(2), IncomingValue: "3"}}

	_, err := m.Merge(base, base, base, conflicts)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestMerger_Merge_AppliesResolutions(t *testing.T) {
	m := newTestMerger()

	base := doc(t, map[string]interface{}{"x": 1, "y": 1, "z": 1})
	current := doc(t, map[string]interface{}{"x": 2, "y": 2, "z": 2})
	incoming := doc(t, map[string]interface{}{"x": 3, "y": 3, "z": 3})

	conflicts := m.DetectConflicts(base, current, incoming)
	require.Len(t, conflicts, 3)
	for i := range conflicts {
		switch conflicts[i].Path {
		case "x":
			conflicts[i].Resolution = ResolutionCurrent
		case "y":
			conflicts[i].Resolution = ResolutionIncoming
		case "z":
			conflicts[i].Resolution = ResolutionCustom
			conflicts[i].CustomValue = 42
		}
	}

	merged, err := m.Merge(base, current, incoming, conflicts)
	require.NoError(t, err)

	x, _ := merged.ValueAt("x")
	y, _ := merged.ValueAt("y")
	z, _ := merged.ValueAt("z")
	assert.Equal(t, float64(2), x)
	assert.Equal(t, float64(3), y)
	assert.Equal(t, float64(42), z)
}

func TestMerger_Merge_MergeResolutionUnionsObjects(t *testing.T) {
	m := newTestMerger()

	base := doc(t, map[string]interface{}{
		"cfg": map[string]interface{}{"shared": 1},
	})
	current := doc(t, map[string]interface{}{
		"cfg": map[string]interface{}{"shared": 1, "left": true},
	})
	incoming := doc(t, map[string]interface{}{
		"cfg": map[string]interface{}{"shared": 1, "right": true},
	})

	conflicts := []MergeConflict{{
		Path:          "cfg",
		CurrentValue:  map[string]interface{}{"shared": float64(1), "left": true},
		IncomingValue: map[string]interface{}{"shared": float64(1), "right": true},
		Resolution:    ResolutionMerge,
	}}

	merged, err := m.Merge(base, current, incoming, conflicts)
	require.NoError(t, err)

	cfg, ok := merged.ValueAt("cfg")
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{
		"shared": float64(1),
		"left":   true,
		"right":  true,
	}, cfg)
}

func TestMerger_Merge_ConflictCoversDescendantChanges(t *testing.T) {
	m := newTestMerger()

	base := doc(t, map[string]interface{}{
		"cfg": map[string]interface{}{"a": 1},
	})
	current := doc(t, map[string]interface{}{
		"cfg": map[string]interface{}{"a": 2},
	})
	incoming := doc(t, map[string]interface{}{
		"cfg": map[string]interface{}{"a": 3},
	})

	conflicts := m.DetectConflicts(base, current, incoming)
	require.Len(t, conflicts, 1)
	conflicts[0].Resolution = ResolutionCurrent

	merged, err := m.Merge(base, current, incoming, conflicts)
	require.NoError(t, err)

	a, _ := merged.ValueAt("cfg.a")
	assert.Equal(t, float64(2), a, "resolved conflict must suppress the raw incoming change")
}

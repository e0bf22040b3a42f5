// Package integration exercises the versioning engine end to end over
// the in-memory store.
package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appevents "deepcae-backend/application/events"
	"deepcae-backend/application/services"
	"deepcae-backend/domain/core/valueobjects"
	"deepcae-backend/domain/versioning"
	"deepcae-backend/infrastructure/concurrency"
	"deepcae-backend/infrastructure/persistence/memory"
	"deepcae-backend/tests/fixtures"
)

type engine struct {
	versions  *services.VersionService
	snapshots *services.SnapshotService
	rollbacks *services.RollbackService
	branches  *services.BranchService
	tags      *services.TagService
	merges    *services.MergeService
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewInMemoryVersionStore()
	locker := concurrency.NewMemoryNodeLocker(logger)
	bus := appevents.NewHandlerRegistry(logger)
	differ := versioning.NewDiffEngine(0)
	merger := versioning.NewMerger(differ)

	branches := services.NewBranchService(store, bus, logger)
	tags := services.NewTagService(store, bus, logger)
	snapshots := services.NewSnapshotService(store, tags, branches, locker, bus, logger)
	versions := services.NewVersionService(store, differ, locker, branches, nil, logger)
	rollbacks := services.NewRollbackService(store, differ, snapshots, tags, branches, locker, bus, logger)
	merges := services.NewMergeService(store, branches, merger, locker, bus, logger)

	return &engine{
		versions:  versions,
		snapshots: snapshots,
		rollbacks: rollbacks,
		branches:  branches,
		tags:      tags,
		merges:    merges,
	}
}

func nodeID(t *testing.T, s string) valueobjects.NodeID {
	t.Helper()
	id, err := valueobjects.NewNodeID(s)
	require.NoError(t, err)
	return id
}

func branchID(t *testing.T, s string) valueobjects.BranchID {
	t.Helper()
	id, err := valueobjects.NewBranchID(s)
	require.NoError(t, err)
	return id
}

// TestExcavationLifecycle walks a node through updates, a checkpoint
// snapshot and a backed-up rollback, checking the branch head and tag
// bookkeeping along the way.
func TestExcavationLifecycle(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	pit := nodeID(t, "pit-12")

	_, err := e.branches.EnsureMainBranch(ctx, "system")
	require.NoError(t, err)

	v1, err := e.versions.UpdateNodeData(ctx, pit, fixtures.ExcavationData(8), "stage 1 excavation", "lead-engineer")
	require.NoError(t, err)
	v2, err := e.versions.UpdateNodeData(ctx, pit, fixtures.ExcavationData(12), "stage 2 excavation", "lead-engineer")
	require.NoError(t, err)
	assert.True(t, v2.ID().Follows(v1.ID()))

	snapshot, err := e.snapshots.CreateSnapshot(ctx, pit, "pre-dewatering state", "lead-engineer")
	require.NoError(t, err)
	assert.Equal(t, 3, snapshot.ID().Sequence())

	nodeTags := e.tags.GetTagsForNode(ctx, pit)
	require.Len(t, nodeTags, 1)
	assert.Equal(t, valueobjects.TagTypeCheckpoint, nodeTags[0].Type())
	assert.Equal(t, "pre-dewatering state", nodeTags[0].Name())

	main, err := e.branches.GetBranch(ctx, valueobjects.MainBranchID)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ID().String(), main.HeadVersionID().String())

	result, err := e.rollbacks.Rollback(ctx, pit, "lead-engineer", services.RollbackOptions{
		TargetVersionID:           v1.ID(),
		PreserveCurrentAsSnapshot: true,
		CreateBackup:              true,
	})
	require.NoError(t, err)
	require.NotNil(t, result.NewVersion)
	require.NotNil(t, result.BackupVersion)
	assert.Equal(t, float64(8), result.NewVersion.Data().Raw()["depth"])

	// chain is v1, v2, checkpoint, backup, rollback
	history, err := e.versions.GetVersionHistory(ctx, pit)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, result.NewVersion.ID().String(), history[0].ID().String())

	main, err = e.branches.GetBranch(ctx, valueobjects.MainBranchID)
	require.NoError(t, err)
	assert.Equal(t, result.NewVersion.ID().String(), main.HeadVersionID().String())
}

// TestBranchDivergeAndMerge branches off a baseline, changes the strut
// design on the variant and merges it back without conflicts.
func TestBranchDivergeAndMerge(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	pit := nodeID(t, "pit-12")

	_, err := e.branches.EnsureMainBranch(ctx, "system")
	require.NoError(t, err)

	base, err := e.versions.UpdateNodeData(ctx, pit, fixtures.ExcavationData(10), "baseline", "lead-engineer")
	require.NoError(t, err)

	steel := branchID(t, "steel-struts")
	_, err = e.branches.CreateBranch(ctx, steel, "steel strut variant", base.ID(), "strut-engineer")
	require.NoError(t, err)
	_, err = e.branches.SwitchBranch(ctx, steel)
	require.NoError(t, err)

	variant := fixtures.ExcavationData(10)
	variant["struts"] = []interface{}{
		map[string]interface{}{"level": -1.5, "preload": 450.0, "material": "steel"},
	}
	_, err = e.versions.UpdateNodeData(ctx, pit, variant, "steel struts", "strut-engineer")
	require.NoError(t, err)

	analysis, err := e.merges.AnalyzeMerge(ctx, steel, valueobjects.MainBranchID)
	require.NoError(t, err)
	assert.Empty(t, analysis.Conflicts)
	assert.False(t, analysis.RequiresManualResolution)
	assert.Nil(t, analysis.MergedVersion)

	result, err := e.merges.MergeBranch(ctx, steel, valueobjects.MainBranchID, "lead-engineer")
	require.NoError(t, err)
	require.NotNil(t, result.MergedVersion)
	assert.Equal(t, 3, result.MergedVersion.ID().Sequence())

	merged := result.MergedVersion.Data().Raw()
	struts, ok := merged["struts"].([]interface{})
	require.True(t, ok)
	require.Len(t, struts, 1)
	first, ok := struts[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "steel", first["material"])
	assert.Equal(t, float64(450), first["preload"])

	main, err := e.branches.GetBranch(ctx, valueobjects.MainBranchID)
	require.NoError(t, err)
	assert.Equal(t, result.MergedVersion.ID().String(), main.HeadVersionID().String())
}

// TestReconstructedHistoryDiff compares the ends of a prebuilt stage
// progression.
func TestReconstructedHistoryDiff(t *testing.T) {
	record := fixtures.NewNodeRecordBuilder().
		WithNode("pit-12").
		WithDepthProgression(8, 10.5, 12).
		MustBuild()

	require.Equal(t, 3, record.VersionCount())

	history := record.History()
	oldest := history[len(history)-1]
	current := record.Current()
	require.NotNil(t, current)

	differ := versioning.NewDiffEngine(0)
	diff := differ.Compare(oldest.Data(), current.Data())

	changed := diff.ChangedPaths()
	assert.Contains(t, changed, "depth")
	assert.Contains(t, changed, "wall.toe_level")
	assert.NotContains(t, changed, "wall.type")
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Removed)
}

package services

import (
	"context"
	"testing"

	"deepcae-backend/domain/core/valueobjects"
	"deepcae-backend/domain/events"
	pkgerrors "deepcae-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotService_CreateSnapshot(t *testing.T) {
	e := newTestEngine(t)
	captured := e.captureEvents(t)
	ctx := context.Background()
	v1 := e.write(t, "meshA", map[string]interface{}{"depth": 12.5, "stages": []interface{}{"excavate"}})

	snap, err := e.snapshots.CreateSnapshot(ctx, mustNodeID(t, "meshA"), "before redesign", "tester")
	require.NoError(t, err)

	assert.Equal(t, 2, snap.ID().Sequence())
	assert.True(t, snap.ID().Follows(v1.ID()))
	assert.Equal(t, "before redesign", snap.Description())
	assert.Equal(t, v1.Data().Raw(), snap.Data().Raw())
	assert.True(t, captured.has(events.TypeSnapshotCreated))
}

func TestSnapshotService_CreateSnapshot_TagsCheckpoint(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.write(t, "meshA", map[string]interface{}{"a": 1})

	snap, err := e.snapshots.CreateSnapshot(ctx, mustNodeID(t, "meshA"), "before redesign", "tester")
	require.NoError(t, err)

	tags := e.tags.GetTagsForNode(ctx, mustNodeID(t, "meshA"))
	require.Len(t, tags, 1)
	assert.Equal(t, "before redesign", tags[0].Name())
	assert.Equal(t, valueobjects.TagTypeCheckpoint, tags[0].Type())
	assert.True(t, tags[0].VersionID().Equals(snap.ID()))
}

func TestSnapshotService_CreateSnapshot_UnknownNode(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.snapshots.CreateSnapshot(context.Background(), mustNodeID(t, "ghost"), "nothing here", "tester")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestSnapshotService_CreateSnapshot_FailsFastWhenLocked(t *testing.T) {
	e := newTestEngine(t)
	e.write(t, "meshA", map[string]interface{}{"a": 1})

	lock, err := e.locker.Acquire(context.Background(), mustNodeID(t, "meshA"), "merge")
	require.NoError(t, err)
	defer lock.Release()

	_, err = e.snapshots.CreateSnapshot(context.Background(), mustNodeID(t, "meshA"), "blocked", "tester")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConcurrency(err))
	assert.Equal(t, 1, e.versionCount(t, "meshA"))
}

func TestSnapshotService_SnapshotIsIsolatedFromLaterWrites(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.write(t, "meshA", map[string]interface{}{"depth": 12.5})

	snap, err := e.snapshots.CreateSnapshot(ctx, mustNodeID(t, "meshA"), "save point", "tester")
	require.NoError(t, err)

	e.write(t, "meshA", map[string]interface{}{"depth": 30.0})

	reloaded, err := e.versions.GetVersion(ctx, snap.ID())
	require.NoError(t, err)
	assert.Equal(t, 12.5, reloaded.Data().Raw()["depth"])
}

func TestSnapshotService_CreateSnapshot_AdvancesActiveBranchHead(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.branches.EnsureMainBranch(ctx, "tester")
	require.NoError(t, err)
	e.write(t, "meshA", map[string]interface{}{"a": 1})

	snap, err := e.snapshots.CreateSnapshot(ctx, mustNodeID(t, "meshA"), "save point", "tester")
	require.NoError(t, err)

	main, err := e.branches.GetBranch(ctx, valueobjects.MainBranchID)
	require.NoError(t, err)
	assert.True(t, main.HeadVersionID().Equals(snap.ID()))
}

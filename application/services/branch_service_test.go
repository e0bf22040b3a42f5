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

func TestBranchService_CreateBranch(t *testing.T) {
	e := newTestEngine(t)
	captured := e.captureEvents(t)
	ctx := context.Background()

	branch, err := e.branches.CreateBranch(ctx, mustBranchID(t, "main"), "mainline", valueobjects.VersionID{}, "tester")
	require.NoError(t, err)

	assert.Equal(t, "main", branch.ID().String())
	assert.True(t, branch.IsActive())
	assert.True(t, branch.IsRoot())
	assert.False(t, branch.HasHead())
	assert.True(t, captured.has(events.TypeBranchCreated))
}

func TestBranchService_CreateBranch_DuplicateID(t *testing.T) {
	e := newTestEngine(t)
	captured := e.captureEvents(t)
	ctx := context.Background()

	_, err := e.branches.CreateBranch(ctx, mustBranchID(t, "feature-x"), "first", valueobjects.VersionID{}, "tester")
	require.NoError(t, err)

	_, err = e.branches.CreateBranch(ctx, mustBranchID(t, "feature-x"), "second", valueobjects.VersionID{}, "tester")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
	assert.True(t, captured.has(events.TypeBranchCreateFailed))

	assert.Len(t, e.branches.GetBranches(ctx), 1)
}

func TestBranchService_CreateBranch_UnknownBaseVersion(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1})

	missing, err := valueobjects.NewVersionID(v1.NodeID(), 42)
	require.NoError(t, err)

	_, err = e.branches.CreateBranch(ctx, mustBranchID(t, "feature-x"), "branch off nothing", missing, "tester")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Empty(t, e.branches.GetBranches(ctx))
}

func TestBranchService_CreateBranch_FromBaseVersion(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1})

	branch, err := e.branches.CreateBranch(ctx, mustBranchID(t, "feature-x"), "experiment", v1.ID(), "tester")
	require.NoError(t, err)

	assert.True(t, branch.BaseVersionID().Equals(v1.ID()))
	assert.True(t, branch.HeadVersionID().Equals(v1.ID()))
	assert.True(t, branch.NodeID().Equals(v1.NodeID()))
	assert.False(t, branch.IsRoot())
}

func TestBranchService_OnlyMainIsBornActive(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.branches.EnsureMainBranch(ctx, "tester")
	require.NoError(t, err)

	created, err := e.branches.CreateBranch(ctx, mustBranchID(t, "feature-x"), "experiment", valueobjects.VersionID{}, "tester")
	require.NoError(t, err)
	assert.False(t, created.IsActive())

	active, ok := e.branches.ActiveBranch(ctx)
	require.True(t, ok)
	assert.Equal(t, "main", active.ID().String())
}

func TestBranchService_EnsureMainBranch_Idempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.branches.EnsureMainBranch(ctx, "tester")
	require.NoError(t, err)
	second, err := e.branches.EnsureMainBranch(ctx, "tester")
	require.NoError(t, err)

	assert.True(t, first.ID().Equals(second.ID()))
	assert.Len(t, e.branches.GetBranches(ctx), 1)
}

func TestBranchService_SwitchBranch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.branches.EnsureMainBranch(ctx, "tester")
	require.NoError(t, err)
	_, err = e.branches.CreateBranch(ctx, mustBranchID(t, "feature-x"), "experiment", valueobjects.VersionID{}, "tester")
	require.NoError(t, err)

	captured := e.captureEvents(t)
	switched, err := e.branches.SwitchBranch(ctx, valueobjects.MainBranchID)
	require.NoError(t, err)

	assert.True(t, switched.IsActive())
	assert.Equal(t, "main", switched.ID().String())
	assert.True(t, captured.has(events.TypeBranchSwitched))

	feature, err := e.branches.GetBranch(ctx, mustBranchID(t, "feature-x"))
	require.NoError(t, err)
	assert.False(t, feature.IsActive())
}

func TestBranchService_SwitchBranch_AlreadyActive(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.branches.EnsureMainBranch(ctx, "tester")
	require.NoError(t, err)

	captured := e.captureEvents(t)
	switched, err := e.branches.SwitchBranch(ctx, valueobjects.MainBranchID)
	require.NoError(t, err)

	assert.True(t, switched.IsActive())
	assert.False(t, captured.has(events.TypeBranchSwitched))
}

func TestBranchService_SwitchBranch_Unknown(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.branches.SwitchBranch(context.Background(), mustBranchID(t, "ghost"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestBranchService_AdvanceHead(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1})
	v2 := e.write(t, "meshA", map[string]interface{}{"a": 2})

	branch, err := e.branches.CreateBranch(ctx, mustBranchID(t, "feature-x"), "experiment", v1.ID(), "tester")
	require.NoError(t, err)
	require.True(t, branch.HeadVersionID().Equals(v1.ID()))

	require.NoError(t, e.branches.AdvanceHead(ctx, branch.ID(), v2.ID()))

	reloaded, err := e.branches.GetBranch(ctx, branch.ID())
	require.NoError(t, err)
	assert.True(t, reloaded.HeadVersionID().Equals(v2.ID()))
}

func TestBranchService_AdvanceHead_RejectsRegression(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1})
	v2 := e.write(t, "meshA", map[string]interface{}{"a": 2})

	branch, err := e.branches.CreateBranch(ctx, mustBranchID(t, "feature-x"), "experiment", v2.ID(), "tester")
	require.NoError(t, err)

	err = e.branches.AdvanceHead(ctx, branch.ID(), v1.ID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))

	reloaded, err := e.branches.GetBranch(ctx, branch.ID())
	require.NoError(t, err)
	assert.True(t, reloaded.HeadVersionID().Equals(v2.ID()))
}

func TestBranchService_RecordWrite_BindsUnboundRootBranch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.branches.EnsureMainBranch(ctx, "tester")
	require.NoError(t, err)

	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1})

	main, err := e.branches.GetBranch(ctx, valueobjects.MainBranchID)
	require.NoError(t, err)
	assert.True(t, main.NodeID().Equals(v1.NodeID()))
	assert.True(t, main.HeadVersionID().Equals(v1.ID()))
}

func TestBranchService_RecordWrite_IgnoresOtherNodes(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	vA := e.write(t, "meshA", map[string]interface{}{"a": 1})
	branch, err := e.branches.CreateBranch(ctx, mustBranchID(t, "feature-a"), "meshA work", vA.ID(), "tester")
	require.NoError(t, err)
	_, err = e.branches.SwitchBranch(ctx, branch.ID())
	require.NoError(t, err)

	e.write(t, "meshB", map[string]interface{}{"b": 1})

	reloaded, err := e.branches.GetBranch(ctx, branch.ID())
	require.NoError(t, err)
	assert.True(t, reloaded.HeadVersionID().Equals(vA.ID()))
	assert.True(t, reloaded.NodeID().Equals(vA.NodeID()))
}

func TestBranchService_GetBranches_ReturnsCopy(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.branches.EnsureMainBranch(ctx, "tester")
	require.NoError(t, err)

	list := e.branches.GetBranches(ctx)
	require.Len(t, list, 1)
	list[0] = nil

	again := e.branches.GetBranches(ctx)
	require.Len(t, again, 1)
	assert.NotNil(t, again[0])
}

func TestBranchService_ActiveBranch_NoneYet(t *testing.T) {
	e := newTestEngine(t)

	_, ok := e.branches.ActiveBranch(context.Background())
	assert.False(t, ok)
}

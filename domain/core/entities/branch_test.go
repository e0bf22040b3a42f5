package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepcae-backend/domain/core/valueobjects"
)

func testVersionID(t *testing.T, node string, seq int) valueobjects.VersionID {
	t.Helper()
	nodeID, err := valueobjects.NewNodeID(node)
	require.NoError(t, err)
	id, err := valueobjects.NewVersionID(nodeID, seq)
	require.NoError(t, err)
	return id
}

func TestNewBranch_MainIsBornActive(t *testing.T) {
	base := testVersionID(t, "meshA", 1)

	main, err := NewBranch(valueobjects.MainBranchID, "trunk", base, "engineer")
	require.NoError(t, err)
	assert.True(t, main.IsActive())
	assert.Equal(t, base, main.HeadVersionID())
	assert.Equal(t, base, main.BaseVersionID())
	assert.Equal(t, "meshA", main.NodeID().String())
	assert.False(t, main.IsRoot())

	featureID, _ := valueobjects.NewBranchID("feature-deeper-wall")
	feature, err := NewBranch(featureID, "deeper wall study", base, "engineer")
	require.NoError(t, err)
	assert.False(t, feature.IsActive())
}

func TestNewBranch_RootBranchIsUnbound(t *testing.T) {
	id, _ := valueobjects.NewBranchID("main")

	branch, err := NewBranch(id, "trunk", valueobjects.VersionID{}, "engineer")
	require.NoError(t, err)

	assert.True(t, branch.IsRoot())
	assert.False(t, branch.HasHead())
	assert.True(t, branch.NodeID().IsZero())
}

func TestNewBranch_Validation(t *testing.T) {
	base := testVersionID(t, "meshA", 1)

	_, err := NewBranch(valueobjects.BranchID{}, "desc", base, "engineer")
	assert.Error(t, err)

	id, _ := valueobjects.NewBranchID("feature")
	_, err = NewBranch(id, "desc", base, "  ")
	assert.Error(t, err)
}

func TestBranch_AdvanceHead(t *testing.T) {
	id, _ := valueobjects.NewBranchID("main")
	v1 := testVersionID(t, "meshA", 1)
	v2 := testVersionID(t, "meshA", 2)
	v3 := testVersionID(t, "meshA", 3)

	branch, err := NewBranch(id, "trunk", v1, "engineer")
	require.NoError(t, err)

	require.NoError(t, branch.AdvanceHead(v2))
	assert.Equal(t, v2, branch.HeadVersionID())

	require.NoError(t, branch.AdvanceHead(v3))
	assert.Equal(t, v3, branch.HeadVersionID())
	assert.Equal(t, v1, branch.BaseVersionID(), "base never moves")
}

func TestBranch_AdvanceHead_Rejections(t *testing.T) {
	id, _ := valueobjects.NewBranchID("main")
	v2 := testVersionID(t, "meshA", 2)

	t.Run("head cannot move backwards", func(t *testing.T) {
		branch, _ := NewBranch(id, "trunk", v2, "engineer")
		err := branch.AdvanceHead(testVersionID(t, "meshA", 1))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "does not follow")
	})

	t.Run("head cannot stay in place", func(t *testing.T) {
		branch, _ := NewBranch(id, "trunk", v2, "engineer")
		assert.Error(t, branch.AdvanceHead(v2))
	})

	t.Run("head cannot jump nodes", func(t *testing.T) {
		branch, _ := NewBranch(id, "trunk", v2, "engineer")
		err := branch.AdvanceHead(testVersionID(t, "meshB", 3))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "tracks node")
	})

	t.Run("zero head rejected", func(t *testing.T) {
		branch, _ := NewBranch(id, "trunk", v2, "engineer")
		assert.Error(t, branch.AdvanceHead(valueobjects.VersionID{}))
	})
}

func TestBranch_RootBranchBindsOnFirstAdvance(t *testing.T) {
	id, _ := valueobjects.NewBranchID("main")
	branch, err := NewBranch(id, "trunk", valueobjects.VersionID{}, "engineer")
	require.NoError(t, err)

	v1 := testVersionID(t, "meshA", 1)
	require.NoError(t, branch.AdvanceHead(v1))

	assert.Equal(t, "meshA", branch.NodeID().String())
	assert.Equal(t, v1, branch.HeadVersionID())
	assert.True(t, branch.IsRoot(), "binding does not invent a base version")

	err = branch.AdvanceHead(testVersionID(t, "meshB", 2))
	assert.Error(t, err, "once bound the branch is pinned to its node")
}

func TestBranch_ActivateDeactivate(t *testing.T) {
	id, _ := valueobjects.NewBranchID("feature")
	branch, _ := NewBranch(id, "study", testVersionID(t, "meshA", 1), "engineer")

	assert.False(t, branch.IsActive())
	branch.Activate()
	assert.True(t, branch.IsActive())
	branch.Deactivate()
	assert.False(t, branch.IsActive())
}

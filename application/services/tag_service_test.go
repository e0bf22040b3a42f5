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

func TestTagService_CreateTag(t *testing.T) {
	e := newTestEngine(t)
	captured := e.captureEvents(t)
	ctx := context.Background()
	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1})

	tag, err := e.tags.CreateTag(ctx, v1.ID(), "v1.0", valueobjects.TagTypeRelease, "first release", "tester")
	require.NoError(t, err)

	assert.False(t, tag.ID().IsZero())
	assert.Equal(t, "v1.0", tag.Name())
	assert.Equal(t, valueobjects.TagTypeRelease, tag.Type())
	assert.True(t, tag.VersionID().Equals(v1.ID()))
	assert.True(t, tag.NodeID().Equals(v1.NodeID()))
	assert.True(t, captured.has(events.TypeTagCreated))
}

func TestTagService_CreateTag_UnknownVersion(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1})

	missing, err := valueobjects.NewVersionID(v1.NodeID(), 99)
	require.NoError(t, err)

	_, err = e.tags.CreateTag(ctx, missing, "ghost", valueobjects.TagTypeMilestone, "points nowhere", "tester")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Empty(t, e.tags.GetTags(ctx))
}

func TestTagService_CreateTag_UnknownNode(t *testing.T) {
	e := newTestEngine(t)

	missing, err := valueobjects.NewVersionID(mustNodeID(t, "ghost"), 1)
	require.NoError(t, err)

	_, err = e.tags.CreateTag(context.Background(), missing, "ghost", valueobjects.TagTypeMilestone, "", "tester")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestTagService_CreateTag_ZeroVersion(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.tags.CreateTag(context.Background(), valueobjects.VersionID{}, "empty", valueobjects.TagTypeMilestone, "", "tester")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestTagService_DuplicateNamesAllowed(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1})
	v2 := e.write(t, "meshA", map[string]interface{}{"a": 2})

	first, err := e.tags.CreateTag(ctx, v1.ID(), "baseline", valueobjects.TagTypeMilestone, "", "tester")
	require.NoError(t, err)
	second, err := e.tags.CreateTag(ctx, v2.ID(), "baseline", valueobjects.TagTypeMilestone, "", "tester")
	require.NoError(t, err)

	assert.False(t, first.ID().Equals(second.ID()))
	assert.Len(t, e.tags.GetTags(ctx), 2)
}

func TestTagService_GetTag(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1})

	created, err := e.tags.CreateTag(ctx, v1.ID(), "v1.0", valueobjects.TagTypeRelease, "", "tester")
	require.NoError(t, err)

	got, err := e.tags.GetTag(ctx, created.ID())
	require.NoError(t, err)
	assert.Equal(t, created.Name(), got.Name())

	_, err = e.tags.GetTag(ctx, valueobjects.NewTagID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestTagService_GetTags_CreationOrder(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	v1 := e.write(t, "meshA", map[string]interface{}{"a": 1})

	_, err := e.tags.CreateTag(ctx, v1.ID(), "first", valueobjects.TagTypeMilestone, "", "tester")
	require.NoError(t, err)
	_, err = e.tags.CreateTag(ctx, v1.ID(), "second", valueobjects.TagTypeBackup, "", "tester")
	require.NoError(t, err)

	list := e.tags.GetTags(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Name())
	assert.Equal(t, "second", list[1].Name())
}

func TestTagService_GetTagsForNode(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	vA := e.write(t, "meshA", map[string]interface{}{"a": 1})
	vB := e.write(t, "meshB", map[string]interface{}{"b": 1})

	_, err := e.tags.CreateTag(ctx, vA.ID(), "a-tag", valueobjects.TagTypeMilestone, "", "tester")
	require.NoError(t, err)
	_, err = e.tags.CreateTag(ctx, vB.ID(), "b-tag", valueobjects.TagTypeMilestone, "", "tester")
	require.NoError(t, err)

	forA := e.tags.GetTagsForNode(ctx, mustNodeID(t, "meshA"))
	require.Len(t, forA, 1)
	assert.Equal(t, "a-tag", forA[0].Name())

	forGhost := e.tags.GetTagsForNode(ctx, mustNodeID(t, "ghost"))
	assert.Empty(t, forGhost)
}

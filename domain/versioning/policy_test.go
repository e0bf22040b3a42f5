package versioning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepcae-backend/domain/core/entities"
	"deepcae-backend/domain/core/valueobjects"
)

func policyVersion(t *testing.T, sizeHint int, at time.Time) *entities.Version {
	t.Helper()
	nodeID, err := valueobjects.NewNodeID("meshA")
	require.NoError(t, err)
	id, err := valueobjects.NewVersionID(nodeID, 1)
	require.NoError(t, err)

	// pad the payload until it crosses the requested size
	filler := make([]interface{}, 0)
	data := map[string]interface{}{"filler": filler}
	for {
		doc, err := valueobjects.NewDocument(data)
		require.NoError(t, err)
		if doc.SizeBytes() >= sizeHint {
			v, err := entities.ReconstructVersion(id, doc, "seed", "tester", at)
			require.NoError(t, err)
			return v
		}
		filler = append(filler, 1.0)
		data["filler"] = filler
	}
}

func TestSnapshotPolicy_Defaults(t *testing.T) {
	p := DefaultSnapshotPolicy()

	assert.Equal(t, 5*time.Minute, p.Interval)
	assert.Equal(t, 1024, p.SizeThreshold)
}

func TestSnapshotPolicy_ShouldSnapshot(t *testing.T) {
	p := DefaultSnapshotPolicy()
	now := time.Now()

	t.Run("node without versions is due", func(t *testing.T) {
		assert.True(t, p.ShouldSnapshot(nil, now))
	})

	t.Run("fresh version is not due regardless of size", func(t *testing.T) {
		v := policyVersion(t, 2048, now.Add(-time.Minute))
		assert.False(t, p.ShouldSnapshot(v, now))
	})

	t.Run("stale but small version is not due", func(t *testing.T) {
		v := policyVersion(t, 16, now.Add(-time.Hour))
		assert.False(t, p.ShouldSnapshot(v, now))
	})

	t.Run("stale and large version is due", func(t *testing.T) {
		v := policyVersion(t, 2048, now.Add(-time.Hour))
		assert.True(t, p.ShouldSnapshot(v, now))
	})

	t.Run("exactly at the interval is not yet due", func(t *testing.T) {
		v := policyVersion(t, 2048, now.Add(-p.Interval))
		assert.False(t, p.ShouldSnapshot(v, now))
	})
}
